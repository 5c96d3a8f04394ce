package catalog

import (
	"context"
	"forumdl/internal/components/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFetcher(session Session, sleep *fakeSleep) PaginatedFetcher {
	limiter := NewRateLimiter(DelayWindow{MinMs: 100, MaxMs: 200}, sleep)
	return NewPaginatedFetcher(session, testAdapter{}, limiter, &telemetry.MemoryAPI{})
}

func threePageSession(category Category) *fakeSession {
	adapter := testAdapter{}
	opts := ListingOptions{}.withDefaults()
	return &fakeSession{pages: map[string]string{
		adapter.ListingURL(category, 1, opts): listingPage("Page 1 of 3", testRecord{id: 1}, testRecord{id: 2}),
		adapter.ListingURL(category, 2, opts): listingPage("Page 2 of 3", testRecord{id: 3}, testRecord{id: 4}),
		adapter.ListingURL(category, 3, opts): listingPage("Page 3 of 3", testRecord{id: 5}),
	}}
}

func TestFetchWalksEveryPage(t *testing.T) {
	category := Category{Id: 4, Url: testAdapter{}.CategoryURL(4)}
	session := threePageSession(category)
	sleep := &fakeSleep{}

	records, err := newTestFetcher(session, sleep).Fetch(context.Background(), category, FetchOptions{})
	require.Nil(t, err)
	require.Equal(t, []int64{1, 2, 3, 4, 5}, ids(records))
	require.Len(t, session.fetches, 3)
	require.Len(t, sleep.slept, 2)
	for _, d := range sleep.slept {
		require.GreaterOrEqual(t, d.Milliseconds(), int64(100))
		require.LessOrEqual(t, d.Milliseconds(), int64(200))
	}
	for _, r := range records {
		require.Equal(t, int64(4), r.Category)
	}
}

func TestFetchFirstPageOnly(t *testing.T) {
	category := Category{Id: 4, Url: testAdapter{}.CategoryURL(4)}
	adapter := testAdapter{}
	opts := ListingOptions{}.withDefaults()
	session := &fakeSession{pages: map[string]string{
		adapter.ListingURL(category, 1, opts): listingPage("2 of 3", testRecord{id: 1}, testRecord{id: 2}, testRecord{id: 3}),
		adapter.ListingURL(category, 2, opts): listingPage("3 of 3", testRecord{id: 4}),
	}}
	sleep := &fakeSleep{}

	records, err := newTestFetcher(session, sleep).Fetch(
		context.Background(),
		category,
		FetchOptions{FirstPageOnly: true},
	)
	require.Nil(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids(records))
	require.Len(t, session.fetches, 1)
	require.Empty(t, sleep.slept)
}

func TestFetchWithoutPageIndicator(t *testing.T) {
	category := Category{Id: 4, Url: testAdapter{}.CategoryURL(4)}
	opts := ListingOptions{}.withDefaults()
	session := &fakeSession{pages: map[string]string{
		testAdapter{}.ListingURL(category, 1, opts): listingPage("", testRecord{id: 1}),
	}}

	records, err := newTestFetcher(session, &fakeSleep{}).Fetch(context.Background(), category, FetchOptions{})
	require.Nil(t, err)
	require.Equal(t, []int64{1}, ids(records))
	require.Len(t, session.fetches, 1)
}

func TestFetchUsesListingOptions(t *testing.T) {
	category := Category{Id: 4, Url: testAdapter{}.CategoryURL(4)}
	listing := ListingOptions{SortKey: SORT_DOWNLOADS, SortOrder: ORDER_DESC, PageSize: 50}
	session := &fakeSession{pages: map[string]string{
		testAdapter{}.ListingURL(category, 1, listing): listingPage("1 of 1", testRecord{id: 1}),
	}}

	records, err := newTestFetcher(session, &fakeSleep{}).Fetch(
		context.Background(),
		category,
		FetchOptions{ListingOptions: listing},
	)
	require.Nil(t, err)
	require.Len(t, records, 1)
	require.Contains(t, session.fetches[0], "sort=downloads&order=desc&per=50")
}

func TestFetchPropagatesErrors(t *testing.T) {
	category := Category{Id: 4, Url: testAdapter{}.CategoryURL(4)}
	_, err := newTestFetcher(&fakeSession{}, &fakeSleep{}).Fetch(context.Background(), category, FetchOptions{})
	require.ErrorIs(t, err, ErrStatus)
}

func TestParsePageIndicator(t *testing.T) {
	testCases := []struct {
		text    string
		current int
		total   int
		ok      bool
	}{
		{text: "Page 2 of 3", current: 2, total: 3, ok: true},
		{text: "  page 1   of 12 ", current: 1, total: 12, ok: true},
		{text: "2 of 3", current: 2, total: 3, ok: true},
		{text: "Page 1 of 0", ok: false},
		{text: "Next page", ok: false},
		{text: "", ok: false},
	}

	for _, test := range testCases {
		current, total, ok := ParsePageIndicator(test.text)
		require.Equal(t, test.ok, ok, test.text)
		require.Equal(t, test.current, current, test.text)
		require.Equal(t, test.total, total, test.text)
	}
}
