package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"

	"livecatalog/internal/logging"
)

// CreateProductFromFrame creates a product seeded from a frame's best image
// and links the frame back to it. The two writes are not atomic: when the
// link fails the product is kept and returned together with ErrLinkPending.
// The link is repaired by GetProduct or ReconcileProductLinks.
//
// Creating several products from one frame is allowed; the frame links to
// whichever was created last.
func (s *Store) CreateProductFromFrame(ctx context.Context, frameID string, draft Product) (*Product, error) {
	frame, err := s.GetFrame(ctx, frameID)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, fmt.Errorf("create product from frame %s: %w", frameID, ErrNotFound)
	}

	product := draft
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := s.now()
	product.SourceFrameID = frame.ID
	product.SessionID = frame.SessionID
	product.CreatedAt = now
	product.UpdatedAt = now
	if len(product.Images) == 0 {
		product.Images = []ProductImage{{URL: frame.BestImageURL(), Alt: product.Name, IsDefault: true}}
	}

	if err := s.Add(ctx, CollectionProducts, product); err != nil {
		return nil, err
	}

	if err := s.linkFrame(ctx, frame, product.ID); err != nil {
		logging.WarnWithContext(s.logger, "product created but frame link failed", "product_link_pending",
			logging.String(logging.FieldProductID, product.ID),
			logging.String(logging.FieldFrameID, frame.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `livecatalog db reconcile` or reopen the product"),
			logging.String(logging.FieldImpact, "frame does not show its product until repaired"),
		)
		return &product, fmt.Errorf("%w: frame %s: %w", ErrLinkPending, frame.ID, err)
	}
	return &product, nil
}

func (s *Store) linkFrame(ctx context.Context, frame *CapturedFrame, productID string) error {
	linked := *frame
	linked.ProductDetected = productID
	linked.IsProcessed = true
	if s.failLink != nil {
		if err := s.failLink(&linked); err != nil {
			return err
		}
	}
	if err := s.Update(ctx, CollectionCapturedFrames, linked); err != nil {
		return err
	}
	*frame = linked
	return nil
}

// repairLink links the product's source frame when the frame still exists
// and carries no product. It reports whether a repair was written.
func (s *Store) repairLink(ctx context.Context, product *Product) (bool, error) {
	if product.SourceFrameID == "" {
		return false, nil
	}
	frame, err := s.GetFrame(ctx, product.SourceFrameID)
	if err != nil || frame == nil {
		return false, err
	}
	if frame.ProductDetected != "" {
		return false, nil
	}
	if err := s.linkFrame(ctx, frame, product.ID); err != nil {
		return false, err
	}
	return true, nil
}

// GetProduct returns a product by id, or nil when absent. A pending frame
// link left by CreateProductFromFrame is repaired on the way.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	product, err := Get[Product](ctx, s, CollectionProducts, id)
	if err != nil || product == nil {
		return product, err
	}
	repaired, err := s.repairLink(ctx, product)
	if err != nil {
		s.logger.Warn("frame link repair failed",
			logging.String(logging.FieldProductID, id),
			logging.Error(err),
			logging.String(logging.FieldEventType, "product_link_repair_failed"),
			logging.String(logging.FieldErrorHint, "check database health with `livecatalog db stats`"),
			logging.String(logging.FieldImpact, "link retried on next read"),
		)
	} else if repaired {
		s.logger.Info("frame link repaired",
			logging.String(logging.FieldProductID, id),
			logging.String(logging.FieldFrameID, product.SourceFrameID),
		)
	}
	return product, nil
}

// SaveProduct upserts a product, refreshing its update time.
func (s *Store) SaveProduct(ctx context.Context, product *Product) error {
	if product == nil {
		return fmt.Errorf("%w: nil product", ErrInvalidRecord)
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := s.now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	return s.Update(ctx, CollectionProducts, product)
}

// ProductsForSession returns products created from a session's frames.
func (s *Store) ProductsForSession(ctx context.Context, sessionID string) ([]Product, error) {
	return Query[Product](ctx, s, CollectionProducts, "sessionId", sessionID)
}

// CreateCatalog inserts a catalog, assigning an id and timestamps.
func (s *Store) CreateCatalog(ctx context.Context, catalog *Catalog) error {
	if catalog == nil {
		return fmt.Errorf("%w: nil catalog", ErrInvalidRecord)
	}
	if catalog.ID == "" {
		catalog.ID = uuid.NewString()
	}
	now := s.now()
	catalog.CreatedAt = now
	catalog.UpdatedAt = now
	return s.Add(ctx, CollectionCatalogs, catalog)
}

// GetCatalog returns a catalog by id, or nil when absent.
func (s *Store) GetCatalog(ctx context.Context, id string) (*Catalog, error) {
	return Get[Catalog](ctx, s, CollectionCatalogs, id)
}

// CatalogsByVendor lists a vendor's catalogs ordered by name.
func (s *Store) CatalogsByVendor(ctx context.Context, vendorID string) ([]Catalog, error) {
	catalogs, err := Query[Catalog](ctx, s, CollectionCatalogs, "vendorId", vendorID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(catalogs, func(i, j int) bool { return catalogs[i].Name < catalogs[j].Name })
	return catalogs, nil
}

// AddProductToCatalog appends a product id to a catalog once.
func (s *Store) AddProductToCatalog(ctx context.Context, catalogID, productID string) error {
	catalog, err := s.GetCatalog(ctx, catalogID)
	if err != nil {
		return err
	}
	if catalog == nil {
		return fmt.Errorf("catalog %s: %w", catalogID, ErrNotFound)
	}
	if slices.Contains(catalog.ProductIDs, productID) {
		return nil
	}
	catalog.ProductIDs = append(catalog.ProductIDs, productID)
	catalog.UpdatedAt = s.now()
	return s.Update(ctx, CollectionCatalogs, catalog)
}

// ProductsForCatalog returns a catalog's products in catalog order, skipping
// products that are missing or soft-deleted. A missing catalog yields nil.
func (s *Store) ProductsForCatalog(ctx context.Context, catalogID string) ([]Product, error) {
	catalog, err := s.GetCatalog(ctx, catalogID)
	if err != nil || catalog == nil {
		return nil, err
	}
	products := make([]Product, 0, len(catalog.ProductIDs))
	for _, id := range catalog.ProductIDs {
		product, err := Get[Product](ctx, s, CollectionProducts, id)
		if err != nil {
			return nil, err
		}
		if product == nil || product.IsDeleted {
			continue
		}
		products = append(products, *product)
	}
	return products, nil
}

// SessionProducts returns the products reachable from a session: those of
// every catalog listing the session plus those created from its frames.
func (s *Store) SessionProducts(ctx context.Context, sessionID string) ([]Product, error) {
	catalogs, err := GetAll[Catalog](ctx, s, CollectionCatalogs)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []Product
	add := func(p Product) {
		if p.IsDeleted {
			return
		}
		if _, ok := seen[p.ID]; ok {
			return
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	for _, catalog := range catalogs {
		if !slices.Contains(catalog.SessionIDs, sessionID) {
			continue
		}
		products, err := s.ProductsForCatalog(ctx, catalog.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			add(p)
		}
	}
	direct, err := s.ProductsForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, p := range direct {
		add(p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// IsLinkPending reports whether err carries ErrLinkPending.
func IsLinkPending(err error) bool {
	return errors.Is(err, ErrLinkPending)
}
