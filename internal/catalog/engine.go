package catalog

import (
	"context"
	"errors"
	"fmt"
	"forumdl/internal/components/assert"
	"forumdl/internal/components/chrono"
	"forumdl/internal/components/telemetry"
)

const (
	report_engine_fetch        = "engine.fetch"
	report_engine_download_all = "engine.download-all"
)

type EngineOptions struct {
	Session Session
	Adapter Adapter
	Store   Store
	// Dumper is optional, unknown responses are not kept without it.
	Dumper Dumper

	PageDelay     DelayWindow
	DownloadDelay DelayWindow

	Time  chrono.TimeAPI
	Sleep chrono.SleepAPI
	Tel   telemetry.API
}

// Engine is everything needed to index and download from one catalog instance.
type Engine struct {
	adapter         Adapter
	categories      CategoryIndex
	fetcher         PaginatedFetcher
	cache           *RecordCache
	resolver        Resolver
	downloadLimiter RateLimiter
	tel             telemetry.API
}

func NewEngine(opts EngineOptions) *Engine {
	assert.NotNil(opts.Session)
	assert.NotNil(opts.Adapter)
	assert.NotNil(opts.Store)
	assert.NotNil(opts.Tel)

	if opts.Time == nil {
		opts.Time = chrono.StandardTime{}
	}
	if opts.Sleep == nil {
		opts.Sleep = chrono.StandardSleep{}
	}
	tel := telemetry.NewScopedAPI("catalog", opts.Tel)

	pageLimiter := NewRateLimiter(opts.PageDelay, opts.Sleep)
	cache := NewRecordCache(opts.Store)

	return &Engine{
		adapter:    opts.Adapter,
		categories: NewCategoryIndex(opts.Session, opts.Adapter, opts.Store, pageLimiter, tel),
		fetcher:    NewPaginatedFetcher(opts.Session, opts.Adapter, pageLimiter, tel),
		cache:      cache,
		resolver: NewResolver(
			opts.Session,
			opts.Adapter,
			cache,
			NewFileStreamer(opts.Time, tel),
			opts.Sleep,
			opts.Dumper,
			tel,
		),
		downloadLimiter: NewRateLimiter(opts.DownloadDelay, opts.Sleep),
		tel:             tel,
	}
}

// Categories returns the category tree.
func (e *Engine) Categories(ctx context.Context, opts GetOptions) ([]Category, error) {
	return e.categories.Get(ctx, opts)
}

// Category resolves a reference without touching the network, the label is filled in if the
// category tree is already stored.
func (e *Engine) Category(ctx context.Context, ref CategoryRef) (Category, error) {
	category, err := ref.resolve(e.adapter)
	if err != nil {
		return Category{}, err
	}
	if category.Label != "" {
		return category, nil
	}
	categories, found, err := e.categories.store.LoadCategories(ctx)
	if err != nil || !found {
		return category, nil
	}
	for _, c := range categories {
		if c.Id == category.Id {
			category.Label = c.Label
			category.Parent = c.Parent
			break
		}
	}
	return category, nil
}

// Fetch crawls a category's listing and writes the result through to the cache, merging into
// what is already there unless opts.ForceRefresh is set. It returns every cached record of the
// category afterwards.
func (e *Engine) Fetch(ctx context.Context, ref CategoryRef, opts FetchOptions) ([]Record, error) {
	category, err := e.Category(ctx, ref)
	if err != nil {
		return nil, err
	}

	fresh, err := e.fetcher.Fetch(ctx, category, opts)
	if err != nil {
		return nil, err
	}

	var records []Record
	if opts.ForceRefresh {
		records, err = e.cache.Replace(ctx, category.Id, fresh)
	} else {
		records, err = e.cache.Merge(ctx, category.Id, fresh)
	}
	if err != nil {
		e.tel.ReportBroken(report_engine_fetch, err, category.Id)
		return nil, err
	}

	err = e.cache.Save(ctx)
	if err != nil {
		e.tel.ReportBroken(report_engine_fetch, err, category.Id)
		return nil, err
	}
	e.tel.ReportCount(report_engine_fetch, int64(len(records)))
	return records, nil
}

// Records returns a category's cached records, crawling every page first if nothing is cached.
func (e *Engine) Records(ctx context.Context, ref CategoryRef) ([]Record, error) {
	category, err := ref.resolve(e.adapter)
	if err != nil {
		return nil, err
	}
	cached, err := e.cache.Has(ctx, category.Id)
	if err != nil {
		return nil, err
	}
	if !cached {
		return e.Fetch(ctx, ByValue(category), FetchOptions{})
	}
	return e.cache.Load(ctx, category.Id)
}

// Refresh fetches only the first listing page of a category, which is where new uploads show up
// when sorted by date, and returns the records that were not cached before.
func (e *Engine) Refresh(ctx context.Context, ref CategoryRef, opts ListingOptions) ([]Record, error) {
	category, err := e.Category(ctx, ref)
	if err != nil {
		return nil, err
	}
	before, err := e.cache.Load(ctx, category.Id)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]bool, len(before))
	for _, record := range before {
		known[record.Id] = true
	}

	records, err := e.Fetch(ctx, ByValue(category), FetchOptions{
		ListingOptions: opts,
		FirstPageOnly:  true,
	})
	if err != nil {
		return nil, err
	}

	var added []Record
	for _, record := range records {
		if !known[record.Id] {
			added = append(added, record)
		}
	}
	return added, nil
}

// Search returns every record of a category matching a free text query.
func (e *Engine) Search(ctx context.Context, ref CategoryRef, query string) ([]Record, error) {
	matcher, err := BuildMatcher(query)
	if err != nil {
		return nil, err
	}
	records, err := e.Records(ctx, ref)
	if err != nil {
		return nil, err
	}
	return FindAll(records, matcher), nil
}

// FindOne returns the first record of a category, in cache order, matching a free text query.
func (e *Engine) FindOne(ctx context.Context, ref CategoryRef, query string) (Record, bool, error) {
	matcher, err := BuildMatcher(query)
	if err != nil {
		return Record{}, false, err
	}
	records, err := e.Records(ctx, ref)
	if err != nil {
		return Record{}, false, err
	}
	record, found := FindOne(records, matcher)
	return record, found, nil
}

// FindById returns a cached record by id.
func (e *Engine) FindById(ctx context.Context, ref CategoryRef, id int64) (Record, bool, error) {
	records, err := e.Records(ctx, ref)
	if err != nil {
		return Record{}, false, err
	}
	for _, r := range records {
		if r.Id == id {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

// Suggest returns the n cached records whose titles look the most like the query.
func (e *Engine) Suggest(ctx context.Context, ref CategoryRef, query string, n int) ([]Suggestion, error) {
	records, err := e.Records(ctx, ref)
	if err != nil {
		return nil, err
	}
	return Suggest(records, query, n), nil
}

// Download resolves a cached record into a file inside opts.DestFolder.
func (e *Engine) Download(ctx context.Context, record Record, opts ResolveOptions) (Resolution, error) {
	if record.Category <= 0 {
		return Resolution{}, invalidArgument("record %d was not read from the cache", record.Id)
	}
	if opts.DestFolder == "" {
		return Resolution{}, invalidArgument("no destination folder")
	}
	cached, err := e.cache.Contains(ctx, record)
	if err != nil {
		return Resolution{}, err
	}
	if !cached {
		return Resolution{}, invalidArgument("record %d is not cached in category %d", record.Id, record.Category)
	}
	return e.resolver.Resolve(ctx, record, opts)
}

// BatchResult is the outcome of one record of DownloadAll.
type BatchResult struct {
	Record     Record
	Resolution Resolution
	Err        error
}

// fatalForBatch reports whether an error means every following download would fail as well.
func fatalForBatch(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrConcurrencyLimit) ||
		errors.Is(err, ErrAuth) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// DownloadAll downloads records one after the other, waiting the download delay in between. A
// failed record does not stop the batch unless the failure would repeat for every record, in
// which case that error is returned along with the results so far.
func (e *Engine) DownloadAll(ctx context.Context, records []Record, opts ResolveOptions) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(records))
	for i, record := range records {
		if i > 0 {
			err := e.downloadLimiter.Wait(ctx)
			if err != nil {
				return results, err
			}
		}

		resolution, err := e.Download(ctx, record, opts)
		results = append(results, BatchResult{
			Record:     record,
			Resolution: resolution,
			Err:        err,
		})
		if err != nil && fatalForBatch(err) {
			e.tel.ReportWarning(report_engine_download_all, "stopping batch", record.Id, err)
			return results, fmt.Errorf("download %d: %w", record.Id, err)
		}
	}
	return results, nil
}
