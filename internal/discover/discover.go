package discover

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PDFLinkSelector matches anchors whose href mentions ".pdf".
const PDFLinkSelector = `a[href*=".pdf"]`

// Crawler finds PDF links on a listing page.
type Crawler struct {
	client *http.Client
	log    *slog.Logger
}

func New(client *http.Client, log *slog.Logger) *Crawler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Crawler{client: client, log: log}
}

// Discover fetches listingURL and returns the absolute URLs of its PDF links
// in page order, without exact duplicates.
func (c *Crawler) Discover(ctx context.Context, listingURL string) ([]string, error) {
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch listing: status %d", resp.StatusCode)
	}

	links, err := ExtractPDFLinks(io.LimitReader(resp.Body, 16<<20), base)
	if err != nil {
		return nil, err
	}
	c.log.Info("discovered pdf links", "listing", listingURL, "count", len(links))
	return links, nil
}

// ExtractPDFLinks parses an HTML page and resolves its PDF hrefs against base.
func ExtractPDFLinks(r io.Reader, base *url.URL) ([]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	seen := make(map[string]bool)
	var links []string
	doc.Find(PDFLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		s := abs.String()
		if seen[s] {
			return
		}
		seen[s] = true
		links = append(links, s)
	})
	return links, nil
}
