package crawler

import (
	"context"
	"time"

	apperr "jkouadio/educarriereworker/pkg/errors"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, &mockError{message: "cache miss"}
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}

// scriptedFetcher serves canned markup per URL and records every fetch
type scriptedFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, url, marker string) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	if markup, ok := f.pages[url]; ok {
		return markup, nil
	}
	return "", &FetchError{URL: url, Attempts: 3, Err: apperr.NewEmptyResponse(url)}
}

func (f *scriptedFetcher) callCount(url string) int {
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

// listingHTML builds a listing page containing the given offer blocks
func listingHTML(offers ...string) string {
	page := `<html><body><div class="container"><div class="row">`
	for _, o := range offers {
		page += o
	}
	page += `</div><div class="rt-pagination"></div></div></body></html>`
	return page
}

// offerBlock builds one listing offer container
func offerBlock(offerType, title, href, code, dateEdition, dateLimite string) string {
	link := title
	if href != "" {
		link = `<a href="` + href + `">` + title + `</a>`
	}
	return `<div class="col-md-6 wow fadeInLeft">
		<div class="rt-post post-md style-8">
			<a class="racing" href="#">` + offerType + `</a>
			<h4 class="post-title">` + link + `</h4>
			<span class="rt-meta">
				<li>Code: <span style="color:#FF0000;font-size: 10px;">` + code + `</span></li>
				<li>Date d'édition: <span style="color:#FF0000;font-size: 10px;">` + dateEdition + `</span></li>
				<li>Date limite: <span style="color:#FF0000;font-size: 10px;">` + dateLimite + `</span></li>
			</span>
		</div>
	</div>`
}

// detailHTML builds an offer detail page
func detailHTML(title, entreprise, description, profil, dossier string) string {
	return `<html><body>
	<h2 class="title">` + title + `</h2>
	<ul class="list-group">
		<li class="list-group-item">Métier(s): Comptabilité</li>
		<li class="list-group-item">Niveau(x): BAC+2, BAC+3</li>
		<li class="list-group-item">Expérience: 2 ans</li>
		<li class="list-group-item">Lieu: Abidjan</li>
		<li class="list-group-item">Date de publication: 01/06/2025</li>
		<li class="list-group-item">Date limite: 20/06/2025</li>
	</ul>
	<div class="post-body"><div class="row"><div class="col-xl-9">
		<p>` + entreprise + `</p>
		<p><span style="text-decoration: underline;">Description du poste</span></p>
		<p>` + description + `</p>
		<p><span style="text-decoration: underline;">Profil du poste</span></p>
		<p>` + profil + `</p>
		<p><span style="text-decoration: underline;">Dossiers de candidature</span></p>
		<p>` + dossier + `</p>
	</div></div></div>
	</body></html>`
}
