package store

import (
	"context"

	"livecatalog/internal/logging"
)

// ReconcileProductLinks repairs frames whose product link was lost after
// CreateProductFromFrame. It returns the number of frames relinked.
func (s *Store) ReconcileProductLinks(ctx context.Context) (int, error) {
	products, err := GetAll[Product](ctx, s, CollectionProducts)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for i := range products {
		ok, err := s.repairLink(ctx, &products[i])
		if err != nil {
			return repaired, err
		}
		if ok {
			repaired++
			s.logger.Info("frame link repaired",
				logging.String(logging.FieldProductID, products[i].ID),
				logging.String(logging.FieldFrameID, products[i].SourceFrameID),
			)
		}
	}
	return repaired, nil
}

// Stats returns the record count of every collection.
func (s *Store) Stats(ctx context.Context) (map[Collection]int, error) {
	out := make(map[Collection]int, len(collectionDefs))
	for _, c := range Collections() {
		n, err := s.Count(ctx, c)
		if err != nil {
			return nil, err
		}
		out[c] = n
	}
	return out, nil
}
