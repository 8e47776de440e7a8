package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"salesgenius/internal/interfaces"

	"golang.org/x/net/html"
)

const maxPageBytes = 5 << 20

// HTMLFetcher downloads a page and keeps only its visible text.
type HTMLFetcher struct {
	client *http.Client
}

func NewHTMLFetcher() *HTMLFetcher {
	return &HTMLFetcher{client: &http.Client{Timeout: 30 * time.Second}}
}

var _ interfaces.PageFetcher = (*HTMLFetcher)(nil)

func (f *HTMLFetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; SalesGeniusBot/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return ExtractText(io.LimitReader(resp.Body, maxPageBytes))
}

// ExtractText walks an HTML document and joins its text nodes, one per line.
// Script, style and noscript content is dropped.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				lines = append(lines, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n"), nil
}
