package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ashita-ai/uxeval/internal/observe"
)

// ErrScreenshotUnsupported is returned by pages that cannot render pixels.
var ErrScreenshotUnsupported = errors.New("scenario: screenshots not supported by this browser")

// maxPageBytes bounds how much of a response body is parsed.
const maxPageBytes = 5 << 20

// Page is a loaded document.
type Page interface {
	observe.RenderTarget
	Status() int
	// ConsoleErrors returns errors the page raised while loading.
	ConsoleErrors() []string
	// Document returns the parsed DOM root.
	Document() *html.Node
}

// Browser navigates to URLs.
type Browser interface {
	Navigate(ctx context.Context, url string) (Page, error)
	// CanScreenshot reports whether pages from this browser render pixels.
	CanScreenshot() bool
}

// HTTPBrowser is a Browser that fetches documents over plain HTTP. It runs
// no scripts and renders nothing, so it is only good for structural checks.
type HTTPBrowser struct {
	client *http.Client
}

// NewHTTPBrowser creates a browser whose requests time out after timeout.
func NewHTTPBrowser(timeout time.Duration) *HTTPBrowser {
	return &HTTPBrowser{client: &http.Client{Timeout: timeout}}
}

// CanScreenshot implements Browser.
func (b *HTTPBrowser) CanScreenshot() bool { return false }

// Navigate fetches url and parses the response. Non-2xx responses still
// return a page; the status is reported through ConsoleErrors the way a
// browser logs a failed resource load.
func (b *HTTPBrowser) Navigate(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scenario: build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scenario: navigate %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("scenario: parse %s: %w", url, err)
	}

	p := &httpPage{
		url:    resp.Request.URL.String(),
		status: resp.StatusCode,
		doc:    doc,
		title:  Title(doc),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.errs = append(p.errs, fmt.Sprintf("Failed to load resource: the server responded with a status of %d (%s)",
			resp.StatusCode, http.StatusText(resp.StatusCode)))
	}
	return p, nil
}

type httpPage struct {
	url    string
	title  string
	status int
	doc    *html.Node
	errs   []string
}

func (p *httpPage) Screenshot(context.Context) ([]byte, error) { return nil, ErrScreenshotUnsupported }
func (p *httpPage) URL() string                                { return p.url }
func (p *httpPage) Title() string                              { return p.title }
func (p *httpPage) Status() int                                { return p.status }
func (p *httpPage) ConsoleErrors() []string                    { return p.errs }
func (p *httpPage) Document() *html.Node                       { return p.doc }

// Title returns the trimmed text of the first <title> element.
func Title(doc *html.Node) string {
	if n := find(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title }); n != nil {
		return strings.TrimSpace(TextContent(n))
	}
	return ""
}

// TextContent concatenates all text below n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// FindAll returns every element below root matching a, in document order.
func FindAll(root *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}
