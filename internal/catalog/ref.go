package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// CategoryRef points at a category either by id or by value, the zero value is invalid.
type CategoryRef struct {
	id       int64
	category *Category
}

func ById(id int64) CategoryRef {
	return CategoryRef{id: id}
}

func ByValue(category Category) CategoryRef {
	return CategoryRef{category: &category}
}

// ParseCategoryRef parses a category given on the command line, either a plain id or a url.
func ParseCategoryRef(s string) (CategoryRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryRef{}, invalidArgument("empty category")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return ById(id), nil
	}
	if !strings.Contains(s, "/") {
		return CategoryRef{}, invalidArgument("%q is neither a category id nor a url", s)
	}
	return ByValue(Category{Url: s}), nil
}

// resolve turns the reference into a canonical category with both an id and a url, it never
// touches the network.
func (r CategoryRef) resolve(adapter Adapter) (Category, error) {
	switch {
	case r.category != nil:
		c := *r.category
		// an id alone is only accepted through ById
		if c.Url == "" {
			return Category{}, invalidArgument("category has no url")
		}
		if c.Id <= 0 {
			id, err := ParseCategoryID(c.Url)
			if err != nil {
				return Category{}, err
			}
			c.Id = id
		}
		return c, nil
	case r.id > 0:
		return Category{Id: r.id, Url: adapter.CategoryURL(r.id)}, nil
	case r.id < 0:
		return Category{}, invalidArgument("negative category id %d", r.id)
	}
	return Category{}, invalidArgument("empty category reference")
}

// ParseCategoryID derives a category id from its url.
func ParseCategoryID(link string) (int64, error) {
	return parseIdFromUrl(link, "showcat", "id")
}

// ParseRecordID derives a record id from its url.
func ParseRecordID(link string) (int64, error) {
	return parseIdFromUrl(link, "showfile", "id")
}

// parseIdFromUrl reads the id out of the first query key present, otherwise from the leading
// digits of the last path segment. Friendly urls that live in the query string
// (`index.php?/files/category/12-maps/`) are handled as paths.
func parseIdFromUrl(link string, keys ...string) (int64, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return 0, invalidArgument("parse url %q: %s", link, err.Error())
	}

	query := parsed.Query()
	for _, key := range keys {
		value := query.Get(key)
		if value == "" {
			continue
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id <= 0 {
			return 0, invalidArgument("%s=%q in %q is not an id", key, value, link)
		}
		return id, nil
	}

	if id, ok := leadingDigitsOfLastSegment(parsed.Path); ok {
		return id, nil
	}
	if strings.HasPrefix(parsed.RawQuery, "/") {
		path, _, _ := strings.Cut(parsed.RawQuery, "&")
		if id, ok := leadingDigitsOfLastSegment(path); ok {
			return id, nil
		}
	}
	return 0, invalidArgument("could not derive an id from %q", link)
}

func leadingDigitsOfLastSegment(path string) (int64, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	last := segments[len(segments)-1]

	end := 0
	for end < len(last) && last[end] >= '0' && last[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(last[:end], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
