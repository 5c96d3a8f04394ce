package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMatcher(t *testing.T) {
	testCases := []struct {
		query    string
		record   Record
		expected bool
	}{
		{query: "fun pics", record: Record{Title: "Funny Pictures"}, expected: true},
		{query: "fun pics", record: Record{Title: "Serious Documents"}, expected: false},
		{query: "FUN   PICS", record: Record{Title: "funny pictures"}, expected: true},
		{query: "serious", record: Record{Title: "Unrelated", Description: "Some serious stuff"}, expected: true},
		{query: "map (v2)!", record: Record{Title: "Map v2 final"}, expected: true},
		{query: "a.b", record: Record{Title: "axb"}, expected: false},
		{query: "a.b", record: Record{Title: "ab"}, expected: true},
		{query: "half-life_2", record: Record{Title: "Half-Life_2 textures"}, expected: true},
	}

	for _, test := range testCases {
		matcher, err := BuildMatcher(test.query)
		require.Nil(t, err, test.query)
		require.Equal(t, test.expected, matcher(test.record), "%q against %q", test.query, test.record.Title)
	}
}

func TestBuildMatcherRejectsEmptyQuery(t *testing.T) {
	for _, query := range []string{"", "   ", "!!!", "()"} {
		_, err := BuildMatcher(query)
		require.ErrorIs(t, err, ErrInvalidArgument, query)
	}
}

func TestFindOneUsesStoredOrder(t *testing.T) {
	records := []Record{
		{Id: 3, Title: "Funny Pictures 2"},
		{Id: 1, Title: "Funny Pictures"},
		{Id: 2, Title: "Serious Documents"},
	}
	matcher, err := BuildMatcher("fun pics")
	require.Nil(t, err)

	record, found := FindOne(records, matcher)
	require.True(t, found)
	require.Equal(t, int64(3), record.Id)

	require.Equal(t, []int64{3, 1}, ids(FindAll(records, matcher)))

	matcher, err = BuildMatcher("nothing like it")
	require.Nil(t, err)
	_, found = FindOne(records, matcher)
	require.False(t, found)
	require.Empty(t, FindAll(records, matcher))
}

func TestSuggest(t *testing.T) {
	records := []Record{
		{Id: 1, Title: "Serious Documents"},
		{Id: 2, Title: "Funny Pictures"},
		{Id: 3, Title: ""},
	}
	suggestions := Suggest(records, "funy pictures", 1)
	require.Len(t, suggestions, 1)
	require.Equal(t, int64(2), suggestions[0].Record.Id)
	require.Greater(t, suggestions[0].Similarity, 0.8)

	require.Len(t, Suggest(records, "x", 5), 2)
	require.Nil(t, Suggest(records, "", 5))
}
