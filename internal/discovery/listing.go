// Package discovery extracts downloadable links from an HTML directory listing.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/datallboy/bulkfetch/internal/domain"
)

type Lister struct {
	client *http.Client
}

func NewLister(c *http.Client) *Lister {
	if c == nil {
		c = http.DefaultClient
	}
	return &Lister{client: c}
}

// List fetches listingURL and returns the absolute URL of every file it links to,
// in document order. Parent, self, sort-column and directory links are left out.
// Any failure is a *domain.DiscoveryError.
func (l *Lister) List(ctx context.Context, listingURL string) ([]string, error) {
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, &domain.DiscoveryError{URL: listingURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, &domain.DiscoveryError{URL: listingURL, Err: err}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &domain.DiscoveryError{URL: listingURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.DiscoveryError{URL: listingURL, Err: fmt.Errorf("listing returned status: %s", resp.Status)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &domain.DiscoveryError{URL: listingURL, Err: fmt.Errorf("parse listing: %w", err)}
	}

	return ExtractLinks(doc, base), nil
}

// ExtractLinks resolves every file link in doc against base.
func ExtractLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)

		if skipHref(href) {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})

	return links
}

func skipHref(href string) bool {
	switch {
	case href == "", href == "../", href == "..", href == "./", href == ".", href == "/":
		return true
	case strings.HasPrefix(href, "?"), strings.HasPrefix(href, "#"):
		// Apache/nginx sort columns and anchors
		return true
	case strings.HasPrefix(href, "mailto:"), strings.HasPrefix(href, "javascript:"):
		return true
	case strings.HasSuffix(href, "/"):
		// Subdirectory, nothing to save under its name
		return true
	}
	return false
}
