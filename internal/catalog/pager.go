package catalog

import (
	"context"
	"fmt"
	"forumdl/internal/components/telemetry"
	"regexp"
	"strconv"
)

const report_paginated_fetcher_fetch = "paginated_fetcher.fetch"

type FetchOptions struct {
	ListingOptions
	// FirstPageOnly stops after the first page, used for cheap incremental refreshes.
	FirstPageOnly bool
	// ForceRefresh replaces a category's cached records instead of merging into them.
	ForceRefresh bool
}

// PaginatedFetcher walks the listing pages of a category one at a time.
type PaginatedFetcher struct {
	session Session
	adapter Adapter
	limiter RateLimiter
	tel     telemetry.API
}

func NewPaginatedFetcher(session Session, adapter Adapter, limiter RateLimiter, tel telemetry.API) PaginatedFetcher {
	return PaginatedFetcher{
		session: session,
		adapter: adapter,
		limiter: limiter,
		tel:     tel,
	}
}

// Fetch returns the records of every page of a category in page order.
func (f PaginatedFetcher) Fetch(ctx context.Context, category Category, opts FetchOptions) ([]Record, error) {
	return f.FetchFrom(ctx, category, 1, opts)
}

// FetchFrom is Fetch starting at the given 1-indexed page.
func (f PaginatedFetcher) FetchFrom(ctx context.Context, category Category, page int, opts FetchOptions) ([]Record, error) {
	if page < 1 {
		return nil, invalidArgument("page %d", page)
	}
	listing := opts.ListingOptions.withDefaults()

	var accumulated []Record
	for {
		url := f.adapter.ListingURL(category, page, listing)
		f.tel.ReportDebug(report_paginated_fetcher_fetch, category.Id, page, url)

		doc, err := f.session.FetchPage(ctx, url)
		if err != nil {
			f.tel.ReportBroken(
				report_paginated_fetcher_fetch,
				fmt.Errorf("fetch page %d: %w", page, err),
				url,
			)
			return nil, err
		}

		records, pageCount := f.adapter.PageOfRecords(doc)
		if pageCount < 1 {
			pageCount = 1
		}
		for i := range records {
			records[i].Category = category.Id
		}
		accumulated = append(accumulated, records...)

		if opts.FirstPageOnly || page >= pageCount {
			break
		}

		err = f.limiter.Wait(ctx)
		if err != nil {
			return nil, err
		}
		page++
	}

	f.tel.ReportCount(report_paginated_fetcher_fetch, int64(len(accumulated)))
	return accumulated, nil
}

var pageIndicatorRegex = regexp.MustCompile(`(?i)(?:page\s+)?(\d+)\s+of\s+(\d+)`)

// ParsePageIndicator reads text like "Page 2 of 3", it returns false if there is no indicator.
func ParsePageIndicator(text string) (current int, total int, ok bool) {
	groups := pageIndicatorRegex.FindStringSubmatch(text)
	if len(groups) < 3 {
		return 0, 0, false
	}
	current, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.Atoi(groups[2])
	if err != nil || total < 1 {
		return 0, 0, false
	}
	return current, total, true
}
