// Package extract pulls page counts and links out of stored listing and entry pages.
//
// The pipeline only sees the Extractor interface; HTMLExtractor is the
// implementation for the listing site's markup.
package extract

import (
	"bytes"
	"fmt"
	"iter"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"ptscraper/pkg/config"
	errs "ptscraper/pkg/errors"
)

// Extractor derives structure from raw page content.
//
// Links returns a finite sequence that can be ranged over any number of
// times; each pass yields the same links in document order.
type Extractor interface {
	PageCount(content []byte) (int, error)
	Links(content []byte, suffix string) (iter.Seq[string], error)
}

const normalizeFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveEmptyPortSeparator |
	purell.FlagRemoveDotSegments |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveFragment

// HTMLExtractor reads pagination and links with CSS selectors
type HTMLExtractor struct {
	pagination cascadia.Selector
	links      cascadia.Selector
	siteHost   string
}

// NewHTMLExtractor compiles the configured selectors. A selector that does not
// compile is a ParseError and should stop the run.
func NewHTMLExtractor(cfg config.ExtractConfig, baseURL string) (*HTMLExtractor, error) {
	pagination, err := cascadia.Compile(cfg.PaginationSelector)
	if err != nil {
		return nil, errs.Parse(fmt.Sprintf("invalid pagination selector %q", cfg.PaginationSelector), err)
	}
	links, err := cascadia.Compile(cfg.LinkSelector)
	if err != nil {
		return nil, errs.Parse(fmt.Sprintf("invalid link selector %q", cfg.LinkSelector), err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errs.Config("invalid base URL", err)
	}

	return &HTMLExtractor{
		pagination: pagination,
		links:      links,
		siteHost:   strings.ToLower(base.Host),
	}, nil
}

func parse(content []byte) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(content), "text/html")
	if err != nil {
		return nil, errs.Parse("failed to detect charset", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.Parse("failed to parse document", err)
	}
	return doc, nil
}

// PageCount reads the total page count from the second-to-last pagination
// element, the last one being the "next" arrow.
func (e *HTMLExtractor) PageCount(content []byte) (int, error) {
	doc, err := parse(content)
	if err != nil {
		return 0, err
	}

	nodes := doc.FindMatcher(e.pagination)
	if nodes.Length() < 2 {
		return 0, errs.Parse(fmt.Sprintf("expected at least 2 pagination elements, found %d", nodes.Length()), nil)
	}

	text := strings.TrimSpace(nodes.Eq(nodes.Length() - 2).Text())
	text = strings.ReplaceAll(text, ",", "")
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, errs.Parse(fmt.Sprintf("pagination text %q is not a number", text), err)
	}
	if n < 1 {
		return 0, errs.Parse(fmt.Sprintf("page count %d out of range", n), nil)
	}
	return n, nil
}

// Links yields the href of every matched element ending in suffix. Links on the
// site's own host are reduced to a path identifier without the leading slash;
// links elsewhere stay absolute.
func (e *HTMLExtractor) Links(content []byte, suffix string) (iter.Seq[string], error) {
	doc, err := parse(content)
	if err != nil {
		return nil, err
	}
	nodes := doc.FindMatcher(e.links).Nodes

	return func(yield func(string) bool) {
		for _, n := range nodes {
			href, ok := attr(n, "href")
			if !ok {
				continue
			}
			href = strings.TrimSpace(href)
			if !strings.HasSuffix(href, suffix) {
				continue
			}
			link, ok := e.identify(href)
			if !ok {
				continue
			}
			if !yield(link) {
				return
			}
		}
	}, nil
}

func (e *HTMLExtractor) identify(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	nu, err := url.Parse(purell.NormalizeURL(u, normalizeFlags))
	if err != nil {
		return "", false
	}

	path := unescapePath(nu)
	if nu.RawQuery != "" {
		path += "?" + nu.RawQuery
	}

	if nu.Host != "" && !strings.EqualFold(nu.Host, e.siteHost) {
		return nu.Scheme + "://" + nu.Host + path, true
	}

	id := strings.TrimLeft(path, "/")
	if id == "" {
		return "", false
	}
	return id, true
}

// unescapePath undoes the percent-encoding normalisation applies, so stored
// links keep the characters the page used.
func unescapePath(u *url.URL) string {
	escaped := u.EscapedPath()
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return escaped
	}
	return path
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// ExtractFile reads the file at path and collects its links
func ExtractFile(ex Extractor, path, suffix string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	seq, err := ex.Links(content, suffix)
	if err != nil {
		return nil, err
	}

	var links []string
	for link := range seq {
		links = append(links, link)
	}
	return links, nil
}
