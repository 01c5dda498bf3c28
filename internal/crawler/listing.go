package crawler

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperr "jkouadio/educarriereworker/pkg/errors"
)

// ListingMarker confirms a fetched listing page has the expected structure.
const ListingMarker = "div.container"

// offerIDPattern extracts the numeric offer id out of a detail URL like
// .../offre-123456-titre-du-poste
var offerIDPattern = regexp.MustCompile(`offre-(\d+)-`)

// ParseListing extracts the offer stubs present on a listing page, in
// document order. Containers without a title element are skipped as non-item
// noise. Stubs carry listing fields only; an absent offer id is left empty
// and assigned a synthetic id after detail enrichment.
func ParseListing(r io.Reader) ([]JobPosting, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, apperr.NewStructure("listing", "failed to parse HTML: "+err.Error())
	}

	var stubs []JobPosting
	doc.Find("div.col-md-6.wow.fadeInLeft").Each(func(_ int, s *goquery.Selection) {
		titleSel := s.Find("h4.post-title")
		if titleSel.Length() == 0 {
			// Not an offer container
			return
		}

		stub := JobPosting{
			Title: strings.TrimSpace(titleSel.Text()),
		}

		if href, exists := titleSel.Find("a").Attr("href"); exists {
			stub.URL = strings.TrimSpace(href)
			if m := offerIDPattern.FindStringSubmatch(stub.URL); m != nil {
				stub.ID = m[1]
			}
		}

		stub.Type = strings.TrimSpace(s.Find("a.racing").First().Text())

		s.Find("span.rt-meta li").Each(func(_ int, li *goquery.Selection) {
			text := li.Text()
			value := strings.TrimSpace(li.Find("span").First().Text())
			switch {
			case strings.Contains(text, "Code:"):
				stub.Code = value
			case strings.Contains(text, "Date d'édition:"):
				stub.DateEdition = value
			case strings.Contains(text, "Date limite:"):
				stub.DateLimite = value
			}
		})

		stubs = append(stubs, stub)
	})

	return stubs, nil
}
