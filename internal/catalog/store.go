package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Store persists the category tree and the records of a single catalog instance. Saves always
// rewrite everything they are given.
type Store interface {
	// LoadCategories returns false if categories were never saved.
	LoadCategories(ctx context.Context) ([]Category, bool, error)
	SaveCategories(ctx context.Context, categories []Category) error
	// LoadRecords returns every persisted category's records, keyed by category id.
	LoadRecords(ctx context.Context) (map[int64][]Record, error)
	SaveRecords(ctx context.Context, records map[int64][]Record) error
}

// JSONStore keeps one json file per kind of data per catalog instance inside a directory.
type JSONStore struct {
	dir      string
	instance string
}

func NewJSONStore(dir, instance string) (JSONStore, error) {
	if instance == "" {
		return JSONStore{}, invalidArgument("empty store instance name")
	}
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return JSONStore{}, err
	}
	return JSONStore{dir: dir, instance: instance}, nil
}

func (s JSONStore) categoriesPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.categories.json", s.instance))
}

func (s JSONStore) recordsPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.records.json", s.instance))
}

func (s JSONStore) LoadCategories(ctx context.Context) ([]Category, bool, error) {
	var categories []Category
	found, err := readJsonFile(s.categoriesPath(), &categories)
	if err != nil || !found {
		return nil, false, err
	}
	return categories, true, nil
}

func (s JSONStore) SaveCategories(ctx context.Context, categories []Category) error {
	return writeJsonFile(s.categoriesPath(), categories)
}

func (s JSONStore) LoadRecords(ctx context.Context) (map[int64][]Record, error) {
	var persisted map[string][]Record
	_, err := readJsonFile(s.recordsPath(), &persisted)
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]Record, len(persisted))
	for key, records := range persisted {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("records file key %q: %w", key, err)
		}
		out[id] = records
	}
	return out, nil
}

func (s JSONStore) SaveRecords(ctx context.Context, records map[int64][]Record) error {
	persisted := make(map[string][]Record, len(records))
	for id, list := range records {
		persisted[strconv.FormatInt(id, 10)] = list
	}
	return writeJsonFile(s.recordsPath(), persisted)
}

func readJsonFile(path string, out any) (bool, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = json.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// writeJsonFile writes to a temporary file next to the target and renames it into place so a
// crash never leaves a partial file behind.
func writeJsonFile(path string, value any) error {
	serialized, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), fmt.Sprintf(".%s-*", filepath.Base(path)))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(serialized)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}
	return os.Rename(tmp.Name(), path)
}
