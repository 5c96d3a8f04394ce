package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Matcher reports whether a record matches a search.
type Matcher func(record Record) bool

var (
	queryStrip      = regexp.MustCompile(`[^A-Za-z0-9 _-]+`)
	queryWhitespace = regexp.MustCompile(`\s+`)
)

// BuildMatcher compiles a free text query into a case insensitive matcher over titles and
// descriptions where every gap between words matches anything, "fun pics" matches
// "Funny Pictures".
func BuildMatcher(query string) (Matcher, error) {
	query = strings.TrimSpace(queryStrip.ReplaceAllString(query, ""))
	if query == "" {
		return nil, invalidArgument("query has nothing to search for")
	}
	pattern := queryWhitespace.ReplaceAllString(regexp.QuoteMeta(query), ".*")

	re, err := regexp.Compile("(?is)" + pattern)
	if err != nil {
		return nil, invalidArgument("query %q: %s", query, err.Error())
	}
	return func(record Record) bool {
		return re.MatchString(record.Title) || re.MatchString(record.Description)
	}, nil
}

func FindAll(records []Record, matcher Matcher) []Record {
	var out []Record
	for _, r := range records {
		if matcher(r) {
			out = append(out, r)
		}
	}
	return out
}

// FindOne returns the first match in stored order.
func FindOne(records []Record, matcher Matcher) (Record, bool) {
	for _, r := range records {
		if matcher(r) {
			return r, true
		}
	}
	return Record{}, false
}

// Suggestion is a record that looks like a query without matching it.
type Suggestion struct {
	Record     Record
	Similarity float64
}

// Suggest ranks records by how similar their title is to the query, for "did you mean" output
// when nothing matches.
func Suggest(records []Record, query string, n int) []Suggestion {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || n <= 0 {
		return nil
	}

	suggestions := make([]Suggestion, 0, len(records))
	for _, r := range records {
		title := strings.ToLower(r.Title)
		if title == "" {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Record:     r,
			Similarity: matchr.JaroWinkler(query, title, false),
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Similarity > suggestions[j].Similarity
	})
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return suggestions
}
