package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"zonerama/pkg/catalog"
)

// ParseAlbumLinks extracts albums from the HTML of a listing page in document
// order. Repeats are kept; the catalog deduplicates. pageURL resolves
// relative links and excludes links back to the listing itself.
func ParseAlbumLinks(html, pageURL string) ([]catalog.AlbumRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse album listing: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	// the first selector that yields albums wins
	for _, sel := range []string{SelectorAlbumLink, SelectorSecretLink} {
		var albums []catalog.AlbumRef
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			target, err := base.Parse(strings.TrimSpace(href))
			if err != nil || sameDocument(target, base) {
				return
			}

			title := albumTitle(s)
			if isSkipLabel(title) {
				return
			}
			if title == "" {
				title = fmt.Sprintf("Album_%d", len(albums)+1)
			}
			albums = append(albums, catalog.AlbumRef{Name: title, Handle: catalog.Handle(target.String())})
		})
		if len(albums) > 0 {
			return albums, nil
		}
	}
	return nil, nil
}

func albumTitle(s *goquery.Selection) string {
	if t, ok := s.Attr("title"); ok && strings.TrimSpace(t) != "" {
		return strings.Join(strings.Fields(t), " ")
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

func isSkipLabel(title string) bool {
	lower := strings.ToLower(title)
	for _, label := range SkipLabels {
		if strings.Contains(lower, strings.ToLower(label)) {
			return true
		}
	}
	return false
}

func sameDocument(a, b *url.URL) bool {
	return strings.EqualFold(a.Host, b.Host) &&
		strings.TrimSuffix(a.Path, "/") == strings.TrimSuffix(b.Path, "/") &&
		a.RawQuery == b.RawQuery
}
