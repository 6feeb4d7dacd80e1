package enrich

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/Alterya/Globe/services"
)

const pageSummaryLimit = 500

// PageCapture is a lightweight snapshot of a suspect page, kept small
// enough to attach to a record as intel context.
type PageCapture struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// CapturePage fetches a page and extracts its title and a markdown
// summary of the visible content.
func CapturePage(ctx context.Context, pageURL string) (*PageCapture, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build page request")
	}

	resp, err := services.DefaultHttpClient().Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read page body")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parse page")
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return nil, errors.Wrap(err, "convert page to markdown")
	}

	return &PageCapture{
		URL:     pageURL,
		Title:   strings.TrimSpace(doc.Find("title").First().Text()),
		Summary: summarize(markdown),
	}, nil
}

func summarize(markdown string) string {
	collapsed := strings.Join(strings.Fields(markdown), " ")
	runes := []rune(collapsed)
	if len(runes) <= pageSummaryLimit {
		return collapsed
	}
	return string(runes[:pageSummaryLimit]) + "..."
}
