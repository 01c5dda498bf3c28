package crawler

import (
	"context"
	"fmt"
	"hash/fnv"
)

// FieldColumns is the fixed column order of checkpoint artifacts. Every
// field is always written, absent values as empty strings, so downstream
// readers see a stable schema.
var FieldColumns = []string{
	"type", "title", "url", "id", "code", "date_edition", "date_limite",
	"metier", "niveau", "experience", "lieu", "date_publication",
	"entreprise", "description_poste", "profil_poste", "dossier_candidature",
	"email_candidature", "description_complete",
}

// JobPosting represents a scraped job offer. The listing parser fills the
// listing fields only; detail enrichment completes the rest in place. All
// values are raw strings as extracted, date parsing happens at ingestion.
type JobPosting struct {
	Type                string `json:"type"`
	Title               string `json:"title"`
	URL                 string `json:"url"`
	ID                  string `json:"id"`
	Code                string `json:"code"`
	DateEdition         string `json:"date_edition"`
	DateLimite          string `json:"date_limite"`
	Metier              string `json:"metier"`
	Niveau              string `json:"niveau"`
	Experience          string `json:"experience"`
	Lieu                string `json:"lieu"`
	DatePublication     string `json:"date_publication"`
	Entreprise          string `json:"entreprise"`
	DescriptionPoste    string `json:"description_poste"`
	ProfilPoste         string `json:"profil_poste"`
	DossierCandidature  string `json:"dossier_candidature"`
	EmailCandidature    string `json:"email_candidature"`
	DescriptionComplete string `json:"description_complete"`
}

// DetailFields holds the field set extracted from an offer's detail page.
type DetailFields struct {
	Metier              string
	Niveau              string
	Experience          string
	Lieu                string
	DatePublication     string
	DateLimite          string
	Entreprise          string
	DescriptionPoste    string
	ProfilPoste         string
	DossierCandidature  string
	EmailCandidature    string
	DescriptionComplete string
}

// ApplyDetail merges detail-page fields into the posting. The detail page's
// date limite overwrites the listing value when present, last write wins.
func (p *JobPosting) ApplyDetail(d *DetailFields) {
	p.Metier = d.Metier
	p.Niveau = d.Niveau
	p.Experience = d.Experience
	p.Lieu = d.Lieu
	p.DatePublication = d.DatePublication
	if d.DateLimite != "" {
		p.DateLimite = d.DateLimite
	}
	p.Entreprise = d.Entreprise
	p.DescriptionPoste = d.DescriptionPoste
	p.ProfilPoste = d.ProfilPoste
	p.DossierCandidature = d.DossierCandidature
	p.EmailCandidature = d.EmailCandidature
	p.DescriptionComplete = d.DescriptionComplete
}

// Record returns the posting's values in FieldColumns order.
func (p *JobPosting) Record() []string {
	return []string{
		p.Type, p.Title, p.URL, p.ID, p.Code, p.DateEdition, p.DateLimite,
		p.Metier, p.Niveau, p.Experience, p.Lieu, p.DatePublication,
		p.Entreprise, p.DescriptionPoste, p.ProfilPoste, p.DossierCandidature,
		p.EmailCandidature, p.DescriptionComplete,
	}
}

// SyntheticID derives a deterministic identifier for a posting whose listing
// entry carried no extractable offer id, so re-scrapes of the same offer
// still deduplicate.
func SyntheticID(title, entreprise string) string {
	h := fnv.New64a()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(entreprise))
	return fmt.Sprintf("syn-%016x", h.Sum64())
}

// Fetcher fetches a rendered page and verifies that the expected structural
// marker is present in the result.
type Fetcher interface {
	Fetch(ctx context.Context, url, marker string) (string, error)
}
