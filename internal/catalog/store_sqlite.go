package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

// SQLiteStore keeps the data of any number of catalog instances in a sqlite database.
type SQLiteStore struct {
	db       *sql.DB
	instance string
}

// OpenSQLite opens (and migrates) a sqlite database at the given path, ":memory:" works too.
func OpenSQLite(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer and every ":memory:" connection is its own database
	database.SetMaxOpenConns(1)

	_, err = database.Exec(sqliteSchema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}

func NewSQLiteStore(database *sql.DB, instance string) (SQLiteStore, error) {
	if instance == "" {
		return SQLiteStore{}, invalidArgument("empty store instance name")
	}
	return SQLiteStore{db: database, instance: instance}, nil
}

func (s SQLiteStore) LoadCategories(ctx context.Context) ([]Category, bool, error) {
	var exists int
	err := s.db.QueryRowContext(
		ctx,
		"select count(*) from category_snapshots where instance = ?",
		s.instance,
	).Scan(&exists)
	if err != nil {
		return nil, false, err
	}
	if exists == 0 {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(
		ctx,
		"select id, label, url, parent from categories where instance = ? order by idx",
		s.instance,
	)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		err := rows.Scan(&c.Id, &c.Label, &c.Url, &c.Parent)
		if err != nil {
			return nil, false, err
		}
		categories = append(categories, c)
	}
	return categories, true, rows.Err()
}

func (s SQLiteStore) SaveCategories(ctx context.Context, categories []Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from categories where instance = ?", s.instance)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		"insert or ignore into category_snapshots (instance) values (?)",
		s.instance,
	)
	if err != nil {
		return err
	}

	for i, c := range categories {
		_, err := tx.ExecContext(
			ctx,
			"insert into categories (instance, idx, id, label, url, parent) values (?, ?, ?, ?, ?, ?)",
			s.instance, i, c.Id, c.Label, c.Url, c.Parent,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s SQLiteStore) LoadRecords(ctx context.Context) (map[int64][]Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select category, data from records where instance = ? order by category, idx",
		s.instance,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]Record{}
	for rows.Next() {
		var category int64
		var data string
		err := rows.Scan(&category, &data)
		if err != nil {
			return nil, err
		}
		var record Record
		err = json.Unmarshal([]byte(data), &record)
		if err != nil {
			return nil, fmt.Errorf("decode record in category %d: %w", category, err)
		}
		out[category] = append(out[category], record)
	}
	return out, rows.Err()
}

func (s SQLiteStore) SaveRecords(ctx context.Context, records map[int64][]Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from records where instance = ?", s.instance)
	if err != nil {
		return err
	}

	for category, list := range records {
		for i, record := range list {
			data, err := json.Marshal(record)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(
				ctx,
				"insert into records (instance, category, idx, id, data) values (?, ?, ?, ?, ?)",
				s.instance, category, i, record.Id, string(data),
			)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}
