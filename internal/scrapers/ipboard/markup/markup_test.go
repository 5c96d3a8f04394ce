package markup

import (
	"forumdl/internal/catalog"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadDoc(t *testing.T, name, pageUrl string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.Nil(t, err)
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	require.Nil(t, err)
	doc.Url, err = url.Parse(pageUrl)
	require.Nil(t, err)
	return doc
}

func ptr(n int64) *int64 {
	return &n
}

func TestNew(t *testing.T) {
	testCases := []struct {
		version string
		base    string
		ok      bool
		v3      bool
	}{
		{version: "v3", base: "https://forum.test/forum", ok: true, v3: true},
		{version: "V4", base: "https://forum.test/", ok: true},
		{version: "", base: "https://forum.test", ok: true},
		{version: "v5", base: "https://forum.test/"},
		{version: "v4", base: "forum.test"},
	}

	for _, test := range testCases {
		adapter, err := New(test.version, test.base)
		if !test.ok {
			require.ErrorIs(t, err, catalog.ErrInvalidArgument, test.version, test.base)
			continue
		}
		require.Nil(t, err)
		_, isV3 := adapter.(V3)
		require.Equal(t, test.v3, isV3)
	}
}

func TestV3Urls(t *testing.T) {
	adapter, err := NewV3("https://forum.test/forum")
	require.Nil(t, err)

	require.Equal(t, "https://forum.test/forum/index.php?app=downloads", adapter.RootURL())
	require.Equal(t, "https://forum.test/forum/index.php?app=downloads&showcat=7", adapter.CategoryURL(7))

	category := catalog.Category{Id: 7, Url: adapter.CategoryURL(7)}
	require.Equal(
		t,
		"https://forum.test/forum/index.php?app=downloads&num=10&showcat=7&sort_by=file_downloads&sort_order=desc&st=10",
		adapter.ListingURL(category, 2, catalog.ListingOptions{
			SortKey:   catalog.SORT_DOWNLOADS,
			SortOrder: catalog.ORDER_DESC,
			PageSize:  10,
		}),
	)
	require.Equal(
		t,
		"https://forum.test/forum/index.php?app=downloads&num=25&showcat=7&sort_by=file_name&sort_order=asc&st=0",
		adapter.ListingURL(catalog.Category{Id: 7}, 1, catalog.ListingOptions{}),
	)

	form := adapter.LoginForm()
	require.Equal(t, "https://forum.test/forum/index.php?app=core&module=global&section=login", form.Path)
	require.Equal(t, []string{"auth_key"}, form.TokenFields)
}

func TestV3Extraction(t *testing.T) {
	adapter, err := NewV3("https://forum.test/forum/")
	require.Nil(t, err)

	index := loadDoc(t, "v3_index.html", adapter.RootURL())
	require.Equal(t, []catalog.Category{
		{Id: 1, Label: "Maps", Url: "https://forum.test/forum/index.php?app=downloads&showcat=1"},
		{Id: 2, Label: "Skins & Models", Url: "https://forum.test/forum/index.php?app=downloads&showcat=2"},
	}, adapter.Categories(index))
	require.True(t, adapter.RequiresLogin(index))
	require.True(t, adapter.LoginForm().SignedOut(index))

	listing := loadDoc(t, "v3_listing.html", adapter.CategoryURL(7))
	records, pages := adapter.PageOfRecords(listing)
	require.Equal(t, 3, pages)
	expected := []catalog.Record{
		{
			Id:          101,
			Url:         "https://forum.test/forum/index.php?app=downloads&showfile=101",
			Title:       "Castle Siege",
			Description: "A large castle.",
			Author:      "mapper",
			Downloads:   ptr(1234),
			Views:       ptr(5678),
		},
		{
			Id:     102,
			Url:    "https://forum.test/forum/index.php?app=downloads&showfile=102",
			Title:  "Desert Outpost",
			Author: "someone else",
		},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Fatal(diff)
	}

	file := loadDoc(t, "v3_file.html", records[0].Url)
	require.False(t, adapter.RequiresLogin(file))
	require.Equal(t, catalog.RecordDetails{
		Description: "A large castle. Now with more towers.",
		Info: []catalog.InfoField{
			{Name: "Submitter", Value: "mapper"},
			{Name: "Submitted", Value: "Jan 02 2012"},
			{Name: "File Size", Value: "2.5 MB"},
		},
	}, adapter.RecordDetails(file))

	link, ok := adapter.DownloadLink(file)
	require.True(t, ok)
	require.Equal(t, "https://forum.test/forum/index.php?app=downloads&module=display&section=download&do=confirm_download&id=101", link)

	_, ok = adapter.DownloadLink(listing)
	require.False(t, ok)

	confirm := loadDoc(t, "v3_confirm.html", link)
	require.Equal(t, []catalog.FileEntry{
		{
			Filename: "castle_siege.zip",
			Url:      "https://forum.test/forum/index.php?app=downloads&module=display&section=download&do=do_download&id=101&hash=aaa",
			Info:     "2.5 MB",
		},
		{
			Filename: "castle_siege_readme.txt",
			Url:      "https://forum.test/forum/index.php?app=downloads&module=display&section=download&do=do_download&id=101&hash=bbb",
		},
	}, adapter.FileListing(confirm))
	require.Empty(t, adapter.FileListing(file))
}

func TestV4Urls(t *testing.T) {
	adapter, err := NewV4("https://forum.test")
	require.Nil(t, err)

	require.Equal(t, "https://forum.test/files/", adapter.RootURL())
	require.Equal(t, "https://forum.test/files/category/3-category/", adapter.CategoryURL(3))

	id, err := catalog.ParseCategoryID(adapter.CategoryURL(3))
	require.Nil(t, err)
	require.Equal(t, int64(3), id)

	category := catalog.Category{Id: 3, Url: "https://forum.test/files/category/3-armor/"}
	require.Equal(
		t,
		"https://forum.test/files/category/3-armor/?page=2&sortby=file_views&sortdirection=asc",
		adapter.ListingURL(category, 2, catalog.ListingOptions{SortKey: catalog.SORT_VIEWS}),
	)

	form := adapter.LoginForm()
	require.Equal(t, "https://forum.test/login/", form.Path)
	require.Equal(t, "auth", form.UsernameField)
	require.Equal(t, []string{"csrfKey"}, form.TokenFields)
}

func TestV4Extraction(t *testing.T) {
	adapter, err := NewV4("https://forum.test/")
	require.Nil(t, err)

	index := loadDoc(t, "v4_index.html", adapter.RootURL())
	require.Equal(t, []catalog.Category{
		{Id: 1, Label: "Maps", Url: "https://forum.test/files/category/1-maps/"},
		{Id: 2, Label: "Skins", Url: "https://forum.test/files/category/2-skins/"},
	}, adapter.Categories(index))
	require.True(t, adapter.RequiresLogin(index))

	listing := loadDoc(t, "v4_listing.html", "https://forum.test/files/category/3-armor/?page=1")
	records, pages := adapter.PageOfRecords(listing)
	require.Equal(t, 4, pages)
	expected := []catalog.Record{
		{
			Id:          201,
			Url:         "https://forum.test/files/file/201-red-armor/",
			Title:       "Red Armor",
			Description: "Shiny red armor.",
			Author:      "smith",
			Downloads:   ptr(12001),
			Views:       ptr(40),
		},
		{
			Id:    202,
			Url:   "https://forum.test/files/file/202-blue-armor/",
			Title: "Blue Armor",
		},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Fatal(diff)
	}

	jump := loadDoc(t, "v4_listing_jump.html", "https://forum.test/files/category/3-armor/?page=2")
	records, pages = adapter.PageOfRecords(jump)
	require.Empty(t, records)
	require.Equal(t, 6, pages)

	file := loadDoc(t, "v4_file.html", "https://forum.test/files/file/201-red-armor/")
	require.False(t, adapter.RequiresLogin(file))
	require.Equal(t, catalog.RecordDetails{
		Description: "Shiny red armor. Fits every model.",
		Info: []catalog.InfoField{
			{Name: "Submitted", Value: "03/04/2019"},
			{Name: "File Size", Value: "1.1 MB"},
		},
	}, adapter.RecordDetails(file))

	link, ok := adapter.DownloadLink(file)
	require.True(t, ok)
	require.Equal(t, "https://forum.test/files/file/201-red-armor/?do=download&csrfKey=abc", link)

	confirm := loadDoc(t, "v4_confirm.html", link)
	require.Equal(t, []catalog.FileEntry{
		{
			Filename: "red_armor.zip",
			Url:      "https://forum.test/files/file/201-red-armor/?do=download&r=501&confirm=1&t=1&csrfKey=abc",
			Info:     "1.1 MB",
		},
		{
			Filename: "red_armor_hd.zip",
			Url:      "https://forum.test/files/file/201-red-armor/?do=download&r=502&confirm=1&t=1&csrfKey=abc",
		},
	}, adapter.FileListing(confirm))
}

func TestPageCountWithoutIndicator(t *testing.T) {
	adapter, err := NewV3("https://forum.test/")
	require.Nil(t, err)

	doc := loadDoc(t, "v3_file.html", "https://forum.test/")
	records, pages := adapter.PageOfRecords(doc)
	require.Empty(t, records)
	require.Equal(t, 0, pages)
}
