package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func storeFixtures(t *testing.T) map[string]func(instance string) Store {
	dir := t.TempDir()
	database, err := OpenSQLite(":memory:")
	require.Nil(t, err)
	t.Cleanup(func() { database.Close() })

	return map[string]func(instance string) Store{
		"json": func(instance string) Store {
			store, err := NewJSONStore(dir, instance)
			require.Nil(t, err)
			return store
		},
		"sqlite": func(instance string) Store {
			store, err := NewSQLiteStore(database, instance)
			require.Nil(t, err)
			return store
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	categories := []Category{
		{Id: 1, Label: "Maps", Url: "https://forum.test/files/category/1-maps/"},
		{Id: 3, Label: "Single Player", Url: "https://forum.test/files/category/3-sp/", Parent: 1},
	}
	records := map[int64][]Record{
		3: {
			{
				Id:          12,
				Url:         "https://forum.test/files/file/12-a/",
				Title:       "A",
				Description: "desc",
				Downloads:   ptr(40),
				Author:      "someone",
				Filename:    "a.zip",
				Listing:     []FileEntry{{Filename: "a.zip", Url: "https://forum.test/a", Info: "2 MB"}},
				Info:        []InfoField{{Name: "Version", Value: "2"}},
			},
			{Id: 2, Title: "B", Views: ptr(7), Broken: true},
		},
		1: {{Id: 1, Title: "C"}},
	}

	for name, newStore := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore("forum.test")

			_, found, err := store.LoadCategories(ctx)
			require.Nil(t, err)
			require.False(t, found)
			loaded, err := store.LoadRecords(ctx)
			require.Nil(t, err)
			require.Empty(t, loaded)

			require.Nil(t, store.SaveCategories(ctx, categories))
			require.Nil(t, store.SaveRecords(ctx, records))

			loadedCategories, found, err := store.LoadCategories(ctx)
			require.Nil(t, err)
			require.True(t, found)
			if diff := cmp.Diff(categories, loadedCategories); diff != "" {
				t.Fatal(diff)
			}

			loaded, err = store.LoadRecords(ctx)
			require.Nil(t, err)
			if diff := cmp.Diff(records, loaded); diff != "" {
				t.Fatal(diff)
			}

			// saves are wholesale
			require.Nil(t, store.SaveRecords(ctx, map[int64][]Record{1: {{Id: 5}}}))
			loaded, err = store.LoadRecords(ctx)
			require.Nil(t, err)
			require.Equal(t, map[int64][]Record{1: {{Id: 5}}}, loaded)

			// instances do not see each other
			other := newStore("other.test")
			_, found, err = other.LoadCategories(ctx)
			require.Nil(t, err)
			require.False(t, found)
		})
	}
}

func TestStoreKeepsRepeatedCategories(t *testing.T) {
	ctx := context.Background()

	// a category linked from two groups shows up twice
	categories := []Category{
		{Id: 1, Label: "Maps", Url: "https://forum.test/files/category/1-maps/"},
		{Id: 4, Label: "Shared", Url: "https://forum.test/files/category/4-shared/", Parent: 1},
		{Id: 2, Label: "Skins", Url: "https://forum.test/files/category/2-skins/"},
		{Id: 4, Label: "Shared", Url: "https://forum.test/files/category/4-shared/", Parent: 2},
	}

	for name, newStore := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore("forum.test")
			require.Nil(t, store.SaveCategories(ctx, categories))

			loaded, found, err := store.LoadCategories(ctx)
			require.Nil(t, err)
			require.True(t, found)
			if diff := cmp.Diff(categories, loaded); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestJSONStoreFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir, "forum.test")
	require.Nil(t, err)

	require.Nil(t, store.SaveRecords(context.Background(), map[int64][]Record{1: {{Id: 1}}}))
	require.FileExists(t, filepath.Join(dir, "forum.test.records.json"))

	entries, err := os.ReadDir(dir)
	require.Nil(t, err)
	require.Len(t, entries, 1)

	_, err = NewJSONStore(dir, "")
	require.ErrorIs(t, err, ErrInvalidArgument)
}
