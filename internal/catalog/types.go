package catalog

type Category struct {
	Id    int64  `json:"id"`
	Label string `json:"label"`
	Url   string `json:"url"`
	// Parent is the id of the group a leaf category belongs to, 0 for top level entries.
	Parent int64 `json:"parent,omitempty"`
}

type InfoField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type FileEntry struct {
	Filename string `json:"filename"`
	Url      string `json:"url"`
	Info     string `json:"info,omitempty"`
}

type Record struct {
	Id          int64  `json:"id"`
	Url         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Downloads   *int64 `json:"downloads"`
	Views       *int64 `json:"views"`
	Author      string `json:"author,omitempty"`

	// Filename and Listing are only set once the record has gone through a download resolution.
	Filename string      `json:"filename,omitempty"`
	Listing  []FileEntry `json:"listing,omitempty"`
	Info     []InfoField `json:"info,omitempty"`
	Broken   bool        `json:"broken,omitempty"`

	// Category is attached when records are read out of the cache, it is not persisted.
	Category int64 `json:"-"`
}

// Resolved reports whether the record has gone through a download resolution.
func (r Record) Resolved() bool {
	return r.Filename != "" || len(r.Listing) > 0
}

// RecordDetails is what a record's overview page adds on top of its listing entry.
type RecordDetails struct {
	Description string
	Info        []InfoField
}

type SortKey string

const (
	SORT_NAME      SortKey = "name"
	SORT_DATE      SortKey = "date"
	SORT_UPDATED   SortKey = "updated"
	SORT_DOWNLOADS SortKey = "downloads"
	SORT_VIEWS     SortKey = "views"
)

type SortOrder string

const (
	ORDER_ASC  SortOrder = "asc"
	ORDER_DESC SortOrder = "desc"
)

const DefaultPageSize = 25

// ListingOptions controls how a category's listing pages are ordered.
type ListingOptions struct {
	SortKey   SortKey
	SortOrder SortOrder
	PageSize  int
}

func (o ListingOptions) withDefaults() ListingOptions {
	if o.SortKey == "" {
		o.SortKey = SORT_NAME
	}
	if o.SortOrder == "" {
		o.SortOrder = ORDER_ASC
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	return o
}

func ParseSortKey(s string) (SortKey, bool) {
	switch key := SortKey(s); key {
	case SORT_NAME, SORT_DATE, SORT_UPDATED, SORT_DOWNLOADS, SORT_VIEWS:
		return key, true
	}
	return "", false
}

func ParseSortOrder(s string) (SortOrder, bool) {
	switch order := SortOrder(s); order {
	case ORDER_ASC, ORDER_DESC:
		return order, true
	}
	return "", false
}
