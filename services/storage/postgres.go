package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"jkouadio/educarriereworker/internal/crawler"
	apperr "jkouadio/educarriereworker/pkg/errors"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS job_offers (
	id                   SERIAL PRIMARY KEY,
	offer_id             TEXT UNIQUE NOT NULL,
	type                 TEXT,
	title                TEXT,
	url                  TEXT,
	code                 TEXT,
	date_edition         DATE,
	date_limite          DATE,
	metier               TEXT,
	niveau               TEXT,
	experience           TEXT,
	lieu                 TEXT,
	date_publication     DATE,
	entreprise           TEXT,
	description_poste    TEXT,
	profil_poste         TEXT,
	dossier_candidature  TEXT,
	email_candidature    TEXT,
	description_complete TEXT,
	date_added           DATE NOT NULL
)`

const insertSQL = `
INSERT INTO job_offers (
	offer_id, type, title, url, code, date_edition, date_limite,
	metier, niveau, experience, lieu, date_publication, entreprise,
	description_poste, profil_poste, dossier_candidature,
	email_candidature, description_complete, date_added
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (offer_id) DO NOTHING`

// PostgresStore implements Storage using a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore establishes a connection pool and verifies it
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, apperr.NewStorage("failed to connect to database", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.NewStorage("failed to ping database", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// CreateSchema creates the job_offers table if it does not exist
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return apperr.NewStorage("failed to create schema", err)
	}
	return nil
}

// ExternalIDs returns every stored offer id
func (s *PostgresStore) ExternalIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT offer_id FROM job_offers`)
	if err != nil {
		return nil, apperr.NewStorage("failed to query offer ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.NewStorage("failed to scan offer id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.NewStorage("failed to read offer ids", err)
	}
	return ids, nil
}

// UpsertAll inserts new postings in one transaction, skipping offer ids that
// already exist. date_added is set at first insert and never changes since
// conflicts do nothing. On any error the whole batch is rolled back.
func (s *PostgresStore) UpsertAll(ctx context.Context, postings []crawler.JobPosting) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, apperr.NewStorage("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	today := time.Now()
	inserted := 0
	for i := range postings {
		p := &postings[i]
		tag, err := tx.Exec(ctx, insertSQL,
			p.ID, p.Type, p.Title, p.URL, p.Code,
			ParseFrenchDate(p.DateEdition), ParseFrenchDate(p.DateLimite),
			p.Metier, p.Niveau, p.Experience, p.Lieu,
			ParseFrenchDate(p.DatePublication), p.Entreprise,
			p.DescriptionPoste, p.ProfilPoste, p.DossierCandidature,
			p.EmailCandidature, p.DescriptionComplete, today,
		)
		if err != nil {
			return 0, apperr.NewStorage("failed to insert offer "+p.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.NewStorage("failed to commit batch", err)
	}
	return inserted, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ParseFrenchDate parses the site's dd/mm/yyyy date format. Empty or
// unparseable values map to NULL; absence means unknown, not today.
func ParseFrenchDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("02/01/2006", value)
	if err != nil {
		return nil
	}
	return &t
}
