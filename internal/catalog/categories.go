package catalog

import (
	"context"
	"fmt"
	"forumdl/internal/components/telemetry"
)

const (
	report_category_index_get   = "category_index.get"
	report_category_index_crawl = "category_index.crawl"
)

type GetOptions struct {
	ForceRefresh bool
}

// CategoryIndex caches the two level category tree of a catalog.
type CategoryIndex struct {
	session Session
	adapter Adapter
	store   Store
	limiter RateLimiter
	tel     telemetry.API
}

func NewCategoryIndex(session Session, adapter Adapter, store Store, limiter RateLimiter, tel telemetry.API) CategoryIndex {
	return CategoryIndex{
		session: session,
		adapter: adapter,
		store:   store,
		limiter: limiter,
		tel:     tel,
	}
}

// Get returns the stored category tree, crawling it if it was never stored or if a refresh was
// requested. Groups come first, each followed by its leaf categories.
func (c CategoryIndex) Get(ctx context.Context, opts GetOptions) ([]Category, error) {
	if !opts.ForceRefresh {
		categories, found, err := c.store.LoadCategories(ctx)
		if err != nil {
			c.tel.ReportBroken(report_category_index_get, fmt.Errorf("load: %w", err))
			return nil, err
		}
		if found {
			return categories, nil
		}
	}

	categories, err := c.crawl(ctx)
	if err != nil {
		return nil, err
	}

	err = c.store.SaveCategories(ctx, categories)
	if err != nil {
		c.tel.ReportBroken(report_category_index_get, fmt.Errorf("save: %w", err))
		return nil, err
	}
	c.tel.ReportCount(report_category_index_crawl, int64(len(categories)))
	return categories, nil
}

// Lookup finds a category in the (possibly freshly crawled) tree.
func (c CategoryIndex) Lookup(ctx context.Context, id int64) (Category, bool, error) {
	categories, err := c.Get(ctx, GetOptions{})
	if err != nil {
		return Category{}, false, err
	}
	for _, category := range categories {
		if category.Id == id {
			return category, true, nil
		}
	}
	return Category{}, false, nil
}

func (c CategoryIndex) crawl(ctx context.Context) ([]Category, error) {
	rootUrl := c.adapter.RootURL()
	c.tel.ReportDebug(report_category_index_crawl, rootUrl)

	doc, err := c.session.FetchPage(ctx, rootUrl)
	if err != nil {
		c.tel.ReportBroken(report_category_index_crawl, fmt.Errorf("fetch root: %w", err), rootUrl)
		return nil, err
	}
	groups := c.adapter.Categories(doc)
	if len(groups) == 0 {
		err := &ExtractionError{What: "category groups", Url: rootUrl}
		c.tel.ReportBroken(report_category_index_crawl, err)
		return nil, err
	}

	var out []Category
	for i, group := range groups {
		if i > 0 {
			err := c.limiter.Wait(ctx)
			if err != nil {
				return nil, err
			}
		}

		doc, err := c.session.FetchPage(ctx, group.Url)
		if err != nil {
			c.tel.ReportBroken(report_category_index_crawl, fmt.Errorf("fetch group: %w", err), group.Url)
			return nil, err
		}
		leaves := c.adapter.Categories(doc)
		if len(leaves) == 0 {
			err := &ExtractionError{What: "categories", Url: group.Url}
			c.tel.ReportBroken(report_category_index_crawl, err)
			return nil, err
		}

		group.Parent = 0
		out = append(out, group)
		for _, leaf := range leaves {
			leaf.Parent = group.Id
			out = append(out, leaf)
		}
	}
	return out, nil
}
