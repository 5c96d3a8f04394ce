package catalog

import (
	"context"
	"fmt"
)

// RecordCache is the in-memory copy of every category's records. The whole persisted mapping is
// loaded on first use, so Save always writes back every category, including ones the current
// process never touched.
type RecordCache struct {
	store   Store
	loaded  bool
	records map[int64][]Record
}

func NewRecordCache(store Store) *RecordCache {
	return &RecordCache{store: store}
}

func (c *RecordCache) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	records, err := c.store.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if records == nil {
		records = map[int64][]Record{}
	}
	c.records = records
	c.loaded = true
	return nil
}

func withCategory(categoryId int64, records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.Category = categoryId
		out[i] = r
	}
	return out
}

// Load returns a copy of a category's records in stored order, it is empty if the category has
// never been fetched.
func (c *RecordCache) Load(ctx context.Context, categoryId int64) ([]Record, error) {
	err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return withCategory(categoryId, c.records[categoryId]), nil
}

// Has reports whether the category has any records cached.
func (c *RecordCache) Has(ctx context.Context, categoryId int64) (bool, error) {
	err := c.ensureLoaded(ctx)
	if err != nil {
		return false, err
	}
	return len(c.records[categoryId]) > 0, nil
}

// Contains reports whether a record with this id is cached under the record's category.
func (c *RecordCache) Contains(ctx context.Context, record Record) (bool, error) {
	err := c.ensureLoaded(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range c.records[record.Category] {
		if r.Id == record.Id {
			return true, nil
		}
	}
	return false, nil
}

// Categories returns the ids of every category with cached records.
func (c *RecordCache) Categories(ctx context.Context) ([]int64, error) {
	err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// carryForward keeps what only a resolution pass or an overview page could have captured when
// the fresh listing entry does not have it.
func carryForward(previous, fresh Record) Record {
	if fresh.Description == "" {
		fresh.Description = previous.Description
	}
	if len(fresh.Info) == 0 {
		fresh.Info = previous.Info
	}
	if len(fresh.Listing) == 0 {
		fresh.Listing = previous.Listing
	}
	if fresh.Filename == "" {
		fresh.Filename = previous.Filename
	}
	if !fresh.Broken {
		fresh.Broken = previous.Broken
	}
	return fresh
}

func mergeRecords(stored, fresh []Record) []Record {
	out := make([]Record, len(stored), len(stored)+len(fresh))
	copy(out, stored)

	for _, record := range fresh {
		for i := 0; i < len(out); i++ {
			if out[i].Id != record.Id {
				continue
			}
			record = carryForward(out[i], record)
			out = append(out[:i], out[i+1:]...)
			i--
		}
		record.Category = 0
		out = append(out, record)
	}
	return out
}

// Merge folds freshly fetched records into a category. A fresh record replaces the stored one
// with the same id and moves to the end, keeping whatever enrichment it lacks.
func (c *RecordCache) Merge(ctx context.Context, categoryId int64, fresh []Record) ([]Record, error) {
	err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	c.records[categoryId] = mergeRecords(c.records[categoryId], fresh)
	return withCategory(categoryId, c.records[categoryId]), nil
}

// Replace swaps a category's records for a fresh list, records that survive keep their
// enrichment.
func (c *RecordCache) Replace(ctx context.Context, categoryId int64, fresh []Record) ([]Record, error) {
	err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}

	previous := map[int64]Record{}
	for _, r := range c.records[categoryId] {
		previous[r.Id] = r
	}
	kept := make([]Record, 0, len(fresh))
	for _, r := range fresh {
		if old, ok := previous[r.Id]; ok {
			r = carryForward(old, r)
		}
		kept = mergeRecords(kept, []Record{r})
	}

	c.records[categoryId] = kept
	return withCategory(categoryId, kept), nil
}

// Update overwrites a single stored record in place, identified by its Category and Id.
func (c *RecordCache) Update(ctx context.Context, record Record) error {
	err := c.ensureLoaded(ctx)
	if err != nil {
		return err
	}
	list := c.records[record.Category]
	for i := range list {
		if list[i].Id == record.Id {
			record.Category = 0
			list[i] = record
			return nil
		}
	}
	return invalidArgument("record %d is not cached in category %d", record.Id, record.Category)
}

// Save persists the full in-memory mapping.
func (c *RecordCache) Save(ctx context.Context) error {
	err := c.ensureLoaded(ctx)
	if err != nil {
		return err
	}
	err = c.store.SaveRecords(ctx, c.records)
	if err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}
