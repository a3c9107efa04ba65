package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Export writes every collection as one JSON object keyed by collection name.
func (s *Store) Export(ctx context.Context, w io.Writer) (map[Collection]int, error) {
	doc := make(map[string][]json.RawMessage, len(collectionDefs))
	counts := make(map[Collection]int, len(collectionDefs))
	for _, c := range Collections() {
		raws, err := s.queryRaw(ctx, c, "")
		if err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		if raws == nil {
			raws = []json.RawMessage{}
		}
		doc[string(c)] = raws
		counts[c] = len(raws)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("export: write: %w", err)
	}
	return counts, nil
}

type importBatch struct {
	collection Collection
	ids        []string
	records    []string
}

// Import replaces the contents of every collection named in the JSON object
// read from r. Each collection is cleared and repopulated in its own
// transaction; collections absent from the document are left untouched.
// Unknown collection names or records without an id fail before anything
// is written.
func (s *Store) Import(ctx context.Context, r io.Reader) (map[Collection]int, error) {
	if _, err := s.handle(); err != nil {
		return nil, err
	}
	var doc map[string][]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("import: %w: decode: %w", ErrInvalidRecord, err)
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	batches := make([]importBatch, 0, len(names))
	for _, name := range names {
		c, err := ParseCollection(name)
		if err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		batch := importBatch{collection: c}
		for i, raw := range doc[name] {
			var head struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(raw, &head); err != nil {
				return nil, fmt.Errorf("import: %w: %s[%d]: %w", ErrInvalidRecord, name, i, err)
			}
			if strings.TrimSpace(head.ID) == "" {
				return nil, fmt.Errorf("import: %w: %s[%d] has no id", ErrInvalidRecord, name, i)
			}
			batch.ids = append(batch.ids, head.ID)
			batch.records = append(batch.records, string(raw))
		}
		batches = append(batches, batch)
	}

	counts := make(map[Collection]int, len(batches))
	for _, batch := range batches {
		if err := s.importCollection(ctx, batch); err != nil {
			return counts, err
		}
		counts[batch.collection] = len(batch.ids)
		s.logger.Info("collection imported",
			"collection", string(batch.collection),
			"records", len(batch.ids),
		)
	}
	return counts, nil
}

func (s *Store) importCollection(ctx context.Context, batch importBatch) error {
	def, err := defFor(batch.collection)
	if err != nil {
		return err
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", def.table)); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (id, data) VALUES (?, ?)", def.table))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i := range batch.ids {
			if _, err := stmt.ExecContext(ctx, batch.ids[i], batch.records[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return writeError(fmt.Sprintf("import %s", batch.collection), err)
}
