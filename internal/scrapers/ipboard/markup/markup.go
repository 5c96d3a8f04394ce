// Package markup contains the adapters that turn the pages of the two supported board versions
// into catalog data.
package markup

import (
	"fmt"
	"forumdl/internal/catalog"
	"forumdl/internal/scrapers/ipboard"
	"forumdl/pkg/htmlutil"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Adapter is a catalog.Adapter that also knows how its server version signs people in.
type Adapter interface {
	catalog.Adapter
	LoginForm() ipboard.LoginForm
}

const (
	VERSION_3 = "v3"
	VERSION_4 = "v4"
)

// New returns the adapter for the given server version.
func New(version string, baseUrl string) (Adapter, error) {
	base, err := parseBase(baseUrl)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(version) {
	case VERSION_3:
		return V3{base: base}, nil
	case VERSION_4, "":
		return V4{base: base}, nil
	}
	return nil, fmt.Errorf("%w: unknown server version %q", catalog.ErrInvalidArgument, version)
}

func parseBase(baseUrl string) (*url.URL, error) {
	base, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("%w: parse base url: %w", catalog.ErrInvalidArgument, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", catalog.ErrInvalidArgument, baseUrl)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	base.RawQuery = ""
	base.Fragment = ""
	return base, nil
}

func resolve(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return base.String() + ref
	}
	return base.ResolveReference(parsed).String()
}

// withQuery sets the given query parameters on a link, keeping the ones already present.
func withQuery(link string, params map[string]string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	query := parsed.Query()
	for k, v := range params {
		query.Set(k, v)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// categoriesIn collects the distinct category anchors of a selection in document order.
func categoriesIn(doc *goquery.Document, sel *goquery.Selection) []catalog.Category {
	var out []catalog.Category
	seen := map[int64]bool{}
	for _, anchor := range htmlutil.GetAnchors(doc.Url, sel) {
		link := anchor.Url.String()
		id, err := catalog.ParseCategoryID(link)
		if err != nil || seen[id] || anchor.Name == "" {
			continue
		}
		seen[id] = true
		out = append(out, catalog.Category{Id: id, Label: anchor.Name, Url: link})
	}
	return out
}

// firstAnchor returns the first resolvable href in the selection.
func firstAnchor(doc *goquery.Document, sel *goquery.Selection) (htmlutil.Anchor, bool) {
	anchors := htmlutil.GetAnchors(doc.Url, sel)
	if len(anchors) == 0 {
		return htmlutil.Anchor{}, false
	}
	return anchors[0], true
}

func count(text string) *int64 {
	n, ok := htmlutil.ParseCount(text)
	if !ok {
		return nil
	}
	return &n
}

// pageCount reads a "Page X of Y" indicator, 0 means the page did not have one.
func pageCount(sel *goquery.Selection) int {
	for _, node := range sel.Nodes {
		_, total, ok := catalog.ParsePageIndicator(htmlutil.CleanText(htmlutil.GetText(node)))
		if ok {
			return total
		}
	}
	return 0
}

// labelledValue splits an element like "<strong>Name</strong> value" into its two halves.
func labelledValue(sel *goquery.Selection, labelSelector string) (catalog.InfoField, bool) {
	name := strings.TrimSuffix(htmlutil.SelectionText(sel.Find(labelSelector).First()), ":")
	if name == "" {
		return catalog.InfoField{}, false
	}
	full := htmlutil.SelectionText(sel)
	value := strings.TrimSpace(strings.TrimPrefix(full, name))
	value = strings.TrimSpace(strings.TrimPrefix(value, ":"))
	return catalog.InfoField{Name: name, Value: value}, true
}
