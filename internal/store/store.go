package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Record is any value stored in a collection. RecordID returns its primary key.
type Record interface {
	RecordID() string
}

func encodeRecord(rec Record) (string, []byte, error) {
	if rec == nil {
		return "", nil, fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	id := strings.TrimSpace(rec.RecordID())
	if id == "" {
		return "", nil, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", nil, fmt.Errorf("%w: encode %s: %w", ErrInvalidRecord, id, err)
	}
	return id, data, nil
}

// Add inserts a new record. An existing primary key fails with ErrDuplicateKey.
func (s *Store) Add(ctx context.Context, c Collection, rec Record) error {
	def, err := defFor(c)
	if err != nil {
		return err
	}
	id, data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO %s (id, data) VALUES (?, ?)", def.table)
	_, err = s.exec(ctx, query, id, string(data))
	return writeError(fmt.Sprintf("add %s/%s", c, id), err)
}

// Update inserts or replaces a record by primary key.
func (s *Store) Update(ctx context.Context, c Collection, rec Record) error {
	def, err := defFor(c)
	if err != nil {
		return err
	}
	id, data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (id, data) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data",
		def.table)
	_, err = s.exec(ctx, query, id, string(data))
	return writeError(fmt.Sprintf("update %s/%s", c, id), err)
}

// Delete removes a record. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, c Collection, id string) error {
	def, err := defFor(c)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", def.table), id)
	return writeError(fmt.Sprintf("delete %s/%s", c, id), err)
}

// Clear removes every record in a collection.
func (s *Store) Clear(ctx context.Context, c Collection) error {
	def, err := defFor(c)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, fmt.Sprintf("DELETE FROM %s", def.table))
	return writeError(fmt.Sprintf("clear %s", c), err)
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, c Collection) (int, error) {
	def, err := defFor(c)
	if err != nil {
		return 0, err
	}
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	ctx = ensureContext(ctx)
	var n int
	err = retryOnBusy(ctx, func() error {
		return db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(1) FROM %s", def.table)).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c, err)
	}
	return n, nil
}

func (s *Store) getRaw(ctx context.Context, c Collection, id string) ([]byte, error) {
	def, err := defFor(c)
	if err != nil {
		return nil, err
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)
	var data string
	err = retryOnBusy(ctx, func() error {
		return db.QueryRowContext(ctx, fmt.Sprintf("SELECT data FROM %s WHERE id = ?", def.table), id).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c, id, err)
	}
	return []byte(data), nil
}

func (s *Store) queryRaw(ctx context.Context, c Collection, where string, args ...any) ([]json.RawMessage, error) {
	def, err := defFor(c)
	if err != nil {
		return nil, err
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)
	query := fmt.Sprintf("SELECT data FROM %s", def.table)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id"

	var out []json.RawMessage
	err = retryOnBusy(ctx, func() error {
		out = out[:0]
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var data string
			if err := rows.Scan(&data); err != nil {
				return err
			}
			out = append(out, json.RawMessage(data))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c, err)
	}
	return out, nil
}

func decodeAll[T any](c Collection, raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", c, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Get returns the record with the given id, or nil when absent.
func Get[T any](ctx context.Context, s *Store, c Collection, id string) (*T, error) {
	raw, err := s.getRaw(ctx, c, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c, id, err)
	}
	return &out, nil
}

// GetAll returns every record in a collection ordered by id.
func GetAll[T any](ctx context.Context, s *Store, c Collection) ([]T, error) {
	raws, err := s.queryRaw(ctx, c, "")
	if err != nil {
		return nil, err
	}
	return decodeAll[T](c, raws)
}

// Query returns the records whose indexed field equals value. No match
// yields an empty slice.
func Query[T any](ctx context.Context, s *Store, c Collection, index string, value any) ([]T, error) {
	def, err := defFor(c)
	if err != nil {
		return nil, err
	}
	path, ok := def.indexes[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no index %q", ErrUnknownIndex, c, index)
	}
	raws, err := s.queryRaw(ctx, c, fmt.Sprintf("json_extract(data, '%s') = ?", path), indexValue(value))
	if err != nil {
		return nil, err
	}
	return decodeAll[T](c, raws)
}
