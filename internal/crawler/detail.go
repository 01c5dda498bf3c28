package crawler

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperr "jkouadio/educarriereworker/pkg/errors"
)

// DetailMarker is the structural invariant of a valid offer detail page.
// Its absence means the proxy returned an error or redirect page.
const DetailMarker = "h2.title"

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// detailLabels maps the label prefixes of the detail page's list-group area
// to their destination fields.
var detailLabels = []struct {
	prefix string
	assign func(*DetailFields, string)
}{
	{"Métier(s):", func(d *DetailFields, v string) { d.Metier = v }},
	{"Niveau(x):", func(d *DetailFields, v string) { d.Niveau = v }},
	{"Expérience:", func(d *DetailFields, v string) { d.Experience = v }},
	{"Lieu:", func(d *DetailFields, v string) { d.Lieu = v }},
	{"Date de publication:", func(d *DetailFields, v string) { d.DatePublication = v }},
	{"Date limite:", func(d *DetailFields, v string) { d.DateLimite = v }},
}

// ParseDetail extracts the full field set from an offer detail page. It
// fails only when the title heading is absent; any individual field whose
// expected structure is missing is left empty.
func ParseDetail(r io.Reader) (*DetailFields, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, apperr.NewStructure("detail", "failed to parse HTML: "+err.Error())
	}

	if doc.Find(DetailMarker).Length() == 0 {
		return nil, apperr.NewStructure("detail", "title heading not found")
	}

	d := &DetailFields{}

	doc.Find("ul.list-group li.list-group-item").Each(func(_ int, li *goquery.Selection) {
		text := strings.TrimSpace(li.Text())
		for _, label := range detailLabels {
			if strings.Contains(text, label.prefix) {
				label.assign(d, strings.TrimSpace(strings.Replace(text, label.prefix, "", 1)))
				break
			}
		}
	})

	body := doc.Find("div.post-body div.col-xl-9").First()
	if body.Length() == 0 {
		return d, nil
	}

	d.DescriptionComplete = strings.TrimSpace(body.Text())

	// The company name is conventionally the first paragraph of the body
	d.Entreprise = strings.TrimSpace(body.Find("p").First().Text())

	// Narrative sections are announced by underlined headers; the section
	// content is the immediately following paragraph.
	body.Find("p").Each(func(_ int, p *goquery.Selection) {
		header := p.Find(`span[style*="text-decoration: underline"]`)
		if header.Length() == 0 {
			return
		}

		next := p.NextAllFiltered("p").First()
		if next.Length() == 0 {
			return
		}
		content := strings.TrimSpace(next.Text())

		switch headerText := strings.TrimSpace(header.Text()); {
		case strings.Contains(headerText, "Description du poste"):
			d.DescriptionPoste = content
		case strings.Contains(headerText, "Profil du poste"):
			d.ProfilPoste = content
		case strings.Contains(headerText, "Dossiers de candidature"):
			d.DossierCandidature = content
			// Only the first email address is kept
			if email := emailPattern.FindString(content); email != "" {
				d.EmailCandidature = email
			}
		}
	})

	return d, nil
}
