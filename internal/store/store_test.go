package store_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"livecatalog/internal/store"
	"livecatalog/internal/testsupport"
)

func TestInitializeTwiceSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.Initialize(ctx); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if err := st.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	if !st.Initialized() {
		t.Fatal("expected store to report initialized")
	}
}

func TestInitializeConcurrentCalls(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- st.Initialize(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Initialize failed: %v", err)
		}
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, first, "Morning drop")
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	got, err := second.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil || got.Name != "Morning drop" {
		t.Fatalf("expected session to survive reopen, got %#v", got)
	}
}

func TestInitializeFailsWhenDataDirIsFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blocker := filepath.Join(testsupport.BaseDir(cfg), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg.Paths.DataDir = filepath.Join(blocker, "data")

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	err = st.Initialize(context.Background())
	if !errors.Is(err, store.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if st.Initialized() {
		t.Fatal("store should not be initialized after failure")
	}
}

func TestInitializeFailsBelowFreeSpaceFloor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.MinFreeMiB = 1 << 40

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := st.Initialize(context.Background()); !errors.Is(err, store.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestOperationsRequireInitialize(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	if _, err := st.GetSession(ctx, "x"); !errors.Is(err, store.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from Get, got %v", err)
	}
	if err := st.Add(ctx, store.CollectionUsers, store.User{ID: "u1", Email: "a@b"}); !errors.Is(err, store.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from Add, got %v", err)
	}
}

func TestAddThenGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	product := store.Product{
		ID:          "p-1",
		Name:        "Linen Scarf",
		Description: "Hand dyed",
		Price:       24.5,
		Category:    "accessories",
		Tags:        []string{"linen", "summer"},
		Attributes:  map[string]string{"material": "linen"},
		Variants:    []store.ProductVariant{{ID: "v-1", Name: "Blue", Price: 24.5, Inventory: 3}},
		Inventory:   3,
		IsPublished: true,
		VendorID:    "vendor-1",
		Images:      []store.ProductImage{{URL: "data:image/jpeg;base64,AA", Alt: "scarf", IsDefault: true}},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if err := st.Add(ctx, store.CollectionProducts, product); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := store.Get[store.Product](ctx, st, store.CollectionProducts, "p-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected product, got nil")
	}
	if !reflect.DeepEqual(*got, product) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", *got, product)
	}
}

func TestAddDuplicateKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.Add(ctx, store.CollectionOrders, store.Order{ID: "o-1", Status: "new"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err := st.Add(ctx, store.CollectionOrders, store.Order{ID: "o-1", Status: "paid"})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestUniqueEmailIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.Add(ctx, store.CollectionUsers, store.User{ID: "u-1", Email: "maker@example.com"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err := st.Add(ctx, store.CollectionUsers, store.User{ID: "u-2", Email: "maker@example.com"})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey for repeated email, got %v", err)
	}
}

func TestUpdateInsertsWhenMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	order := store.Order{ID: "o-9", CustomerID: "c-1", VendorID: "v-1", Status: "new", Total: 10}
	if err := st.Update(ctx, store.CollectionOrders, order); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := store.Get[store.Order](ctx, st, store.CollectionOrders, "o-9")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Status != "new" {
		t.Fatalf("expected inserted order, got %#v", got)
	}

	order.Status = "shipped"
	if err := st.Update(ctx, store.CollectionOrders, order); err != nil {
		t.Fatalf("second Update failed: %v", err)
	}
	got, _ = store.Get[store.Order](ctx, st, store.CollectionOrders, "o-9")
	if got.Status != "shipped" {
		t.Fatalf("expected replaced order, got %#v", got)
	}
	if n, _ := st.Count(ctx, store.CollectionOrders); n != 1 {
		t.Fatalf("expected 1 order, got %d", n)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	got, err := st.GetFrame(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetFrame failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing frame, got %#v", got)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if err := st.Delete(context.Background(), store.CollectionProducts, "missing"); err != nil {
		t.Fatalf("Delete of missing id failed: %v", err)
	}
}

func TestRecordWithoutIDRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	err := st.Add(context.Background(), store.CollectionCatalogs, store.Catalog{Name: "nameless"})
	if !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestQueryByIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	products := []store.Product{
		{ID: "a", Name: "A", VendorID: "v1", Category: "hats", IsPublished: true},
		{ID: "b", Name: "B", VendorID: "v1", Category: "bags", IsPublished: false},
		{ID: "c", Name: "C", VendorID: "v2", Category: "hats", IsPublished: true},
	}
	for _, p := range products {
		if err := st.Add(ctx, store.CollectionProducts, p); err != nil {
			t.Fatalf("Add %s failed: %v", p.ID, err)
		}
	}

	tests := []struct {
		index string
		value any
		want  []string
	}{
		{"vendorId", "v1", []string{"a", "b"}},
		{"category", "hats", []string{"a", "c"}},
		{"isPublished", true, []string{"a", "c"}},
		{"isPublished", false, []string{"b"}},
		{"vendorId", "nobody", nil},
	}
	for _, tc := range tests {
		got, err := store.Query[store.Product](ctx, st, store.CollectionProducts, tc.index, tc.value)
		if err != nil {
			t.Fatalf("Query %s=%v failed: %v", tc.index, tc.value, err)
		}
		var ids []string
		for _, p := range got {
			ids = append(ids, p.ID)
		}
		if !reflect.DeepEqual(ids, tc.want) {
			t.Fatalf("Query %s=%v = %v, want %v", tc.index, tc.value, ids, tc.want)
		}
	}

	if _, err := store.Query[store.Product](ctx, st, store.CollectionProducts, "price", 1); !errors.Is(err, store.ErrUnknownIndex) {
		t.Fatalf("expected ErrUnknownIndex, got %v", err)
	}
}

func TestFramesForSessionSortedByTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := testsupport.NewSession(t, st, "sorted")
	late := testsupport.NewFrame(t, st, session, 10*time.Second)
	early := testsupport.NewFrame(t, st, session, 5*time.Second)
	other := testsupport.NewSession(t, st, "other")
	testsupport.NewFrame(t, st, other, time.Second)

	frames, err := st.FramesForSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("FramesForSession failed: %v", err)
	}
	if len(frames) != 2 || frames[0].ID != early.ID || frames[1].ID != late.ID {
		t.Fatalf("unexpected frame order: %#v", frames)
	}

	bytesUsed, err := st.FrameStorageBytes(ctx, session.ID)
	if err != nil {
		t.Fatalf("FrameStorageBytes failed: %v", err)
	}
	if bytesUsed <= 0 {
		t.Fatalf("expected positive storage bytes, got %d", bytesUsed)
	}
}

func TestUpdateFrameRequiresExisting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	err := st.UpdateFrame(context.Background(), &store.CapturedFrame{ID: "ghost", SessionID: "s"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSessionCascadesFrames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := testsupport.NewSession(t, st, "cascade")
	for i := 0; i < 3; i++ {
		testsupport.NewFrame(t, st, session, time.Duration(i)*time.Second)
	}
	keep := testsupport.NewSession(t, st, "keep")
	testsupport.NewFrame(t, st, keep, 0)

	removed, err := st.DeleteSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 frames removed, got %d", removed)
	}
	frames, err := store.Query[store.CapturedFrame](ctx, st, store.CollectionCapturedFrames, "sessionId", session.ID)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames after cascade, got %d", len(frames))
	}
	if got, _ := st.GetSession(ctx, session.ID); got != nil {
		t.Fatalf("expected session removed, got %#v", got)
	}
	kept, _ := st.FramesForSession(ctx, keep.ID)
	if len(kept) != 1 {
		t.Fatalf("expected other session's frame kept, got %d", len(kept))
	}
}

func TestCreateProductFromFrameLinksFrame(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := testsupport.NewSession(t, st, "products")
	frame := testsupport.NewFrame(t, st, session, time.Second)
	frame.IsEdited = true
	frame.EditedImageURL = "data:image/jpeg;base64,EDIT"
	if err := st.UpdateFrame(ctx, frame); err != nil {
		t.Fatalf("UpdateFrame failed: %v", err)
	}

	product, err := st.CreateProductFromFrame(ctx, frame.ID, store.Product{Name: "Mug", Price: 12})
	if err != nil {
		t.Fatalf("CreateProductFromFrame failed: %v", err)
	}
	if product.SourceFrameID != frame.ID || product.SessionID != session.ID {
		t.Fatalf("product not tied to frame: %#v", product)
	}
	img, ok := product.DefaultImage()
	if !ok || img.URL != frame.EditedImageURL {
		t.Fatalf("expected edited image on product, got %#v", product.Images)
	}

	linked, _ := st.GetFrame(ctx, frame.ID)
	if linked.ProductDetected != product.ID || !linked.IsProcessed {
		t.Fatalf("frame not linked: %#v", linked)
	}

	if _, err := st.CreateProductFromFrame(ctx, "missing", store.Product{Name: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing frame, got %v", err)
	}
}

func TestCreateProductLinkFailureRepairedOnRead(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := testsupport.NewSession(t, st, "pending")
	frame := testsupport.NewFrame(t, st, session, 0)

	store.SetFailLink(st, func(*store.CapturedFrame) error { return errors.New("disk full") })
	product, err := st.CreateProductFromFrame(ctx, frame.ID, store.Product{Name: "Bowl"})
	if !errors.Is(err, store.ErrLinkPending) {
		t.Fatalf("expected ErrLinkPending, got %v", err)
	}
	if product == nil {
		t.Fatal("expected product to be returned with pending link")
	}
	unlinked, _ := st.GetFrame(ctx, frame.ID)
	if unlinked.ProductDetected != "" {
		t.Fatalf("frame should not be linked yet: %#v", unlinked)
	}

	store.SetFailLink(st, nil)
	got, err := st.GetProduct(ctx, product.ID)
	if err != nil || got == nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	repaired, _ := st.GetFrame(ctx, frame.ID)
	if repaired.ProductDetected != product.ID {
		t.Fatalf("expected link repaired on read, got %#v", repaired)
	}
}

func TestReconcileProductLinks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := testsupport.NewSession(t, st, "reconcile")
	frames := []*store.CapturedFrame{
		testsupport.NewFrame(t, st, session, 0),
		testsupport.NewFrame(t, st, session, time.Second),
	}
	store.SetFailLink(st, func(*store.CapturedFrame) error { return errors.New("readonly") })
	for _, f := range frames {
		if _, err := st.CreateProductFromFrame(ctx, f.ID, store.Product{Name: "Item"}); !errors.Is(err, store.ErrLinkPending) {
			t.Fatalf("expected ErrLinkPending, got %v", err)
		}
	}
	store.SetFailLink(st, nil)

	n, err := st.ReconcileProductLinks(ctx)
	if err != nil {
		t.Fatalf("ReconcileProductLinks failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 repaired links, got %d", n)
	}
	if n, _ := st.ReconcileProductLinks(ctx); n != 0 {
		t.Fatalf("expected second pass to repair nothing, got %d", n)
	}
}

func TestCatalogQueries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := testsupport.NewSession(t, st, "market")
	frame := testsupport.NewFrame(t, st, session, 0)
	fromFrame, err := st.CreateProductFromFrame(ctx, frame.ID, store.Product{Name: "Vase", VendorID: "v1"})
	if err != nil {
		t.Fatalf("CreateProductFromFrame failed: %v", err)
	}
	listed := &store.Product{Name: "Plate", VendorID: "v1"}
	deleted := &store.Product{Name: "Cup", VendorID: "v1", IsDeleted: true}
	for _, p := range []*store.Product{listed, deleted} {
		if err := st.SaveProduct(ctx, p); err != nil {
			t.Fatalf("SaveProduct failed: %v", err)
		}
	}

	catalog := &store.Catalog{
		Name:       "Spring",
		VendorID:   "v1",
		SessionIDs: []string{session.ID},
		ProductIDs: []string{listed.ID, deleted.ID, "missing"},
	}
	if err := st.CreateCatalog(ctx, catalog); err != nil {
		t.Fatalf("CreateCatalog failed: %v", err)
	}
	if err := st.CreateCatalog(ctx, &store.Catalog{Name: "Autumn", VendorID: "v1"}); err != nil {
		t.Fatalf("CreateCatalog failed: %v", err)
	}

	catalogs, err := st.CatalogsByVendor(ctx, "v1")
	if err != nil {
		t.Fatalf("CatalogsByVendor failed: %v", err)
	}
	if len(catalogs) != 2 || catalogs[0].Name != "Autumn" {
		t.Fatalf("unexpected catalogs: %#v", catalogs)
	}

	products, err := st.ProductsForCatalog(ctx, catalog.ID)
	if err != nil {
		t.Fatalf("ProductsForCatalog failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != listed.ID {
		t.Fatalf("expected only the live listed product, got %#v", products)
	}

	sessionProducts, err := st.SessionProducts(ctx, session.ID)
	if err != nil {
		t.Fatalf("SessionProducts failed: %v", err)
	}
	ids := map[string]bool{}
	for _, p := range sessionProducts {
		ids[p.ID] = true
	}
	if len(ids) != 2 || !ids[listed.ID] || !ids[fromFrame.ID] {
		t.Fatalf("unexpected session products: %#v", sessionProducts)
	}

	if err := st.AddProductToCatalog(ctx, catalog.ID, fromFrame.ID); err != nil {
		t.Fatalf("AddProductToCatalog failed: %v", err)
	}
	if err := st.AddProductToCatalog(ctx, catalog.ID, fromFrame.ID); err != nil {
		t.Fatalf("repeated AddProductToCatalog failed: %v", err)
	}
	updated, _ := st.GetCatalog(ctx, catalog.ID)
	if len(updated.ProductIDs) != 4 {
		t.Fatalf("expected product appended once, got %v", updated.ProductIDs)
	}
}

func TestSettingsKeys(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	global := &store.Setting{ID: store.GlobalSettingsKey, Values: map[string]any{"theme": "dark"}}
	if err := st.SaveSetting(ctx, global); err != nil {
		t.Fatalf("SaveSetting failed: %v", err)
	}
	user := &store.Setting{ID: store.UserSettingsKey("42")}
	if err := st.SaveSetting(ctx, user); err != nil {
		t.Fatalf("SaveSetting failed: %v", err)
	}

	got, err := st.GetSetting(ctx, "user_42")
	if err != nil || got == nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	g, _ := st.GetSetting(ctx, "global")
	if g.Values["theme"] != "dark" {
		t.Fatalf("unexpected global settings: %#v", g)
	}
	if err := st.SaveSetting(ctx, &store.Setting{}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for empty key, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	session := testsupport.NewSession(t, src, "export")
	testsupport.NewFrame(t, src, session, 0)
	testsupport.NewFrame(t, src, session, time.Second)
	if err := src.Add(ctx, store.CollectionUsers, store.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("Add user failed: %v", err)
	}

	var buf bytes.Buffer
	counts, err := src.Export(ctx, &buf)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if counts[store.CollectionCapturedFrames] != 2 || counts[store.CollectionSessions] != 1 {
		t.Fatalf("unexpected export counts: %v", counts)
	}

	var doc map[string][]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not a JSON object: %v", err)
	}
	for _, c := range store.Collections() {
		if _, ok := doc[string(c)]; !ok {
			t.Fatalf("export missing collection %s", c)
		}
	}

	dst := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := dst.Add(ctx, store.CollectionUsers, store.User{ID: "stale", Email: "old@example.com"}); err != nil {
		t.Fatalf("Add stale user failed: %v", err)
	}
	if _, err := dst.Import(ctx, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if stale, _ := store.Get[store.User](ctx, dst, store.CollectionUsers, "stale"); stale != nil {
		t.Fatal("expected import to clear existing users")
	}
	frames, err := dst.FramesForSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("FramesForSession failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 imported frames, got %d", len(frames))
	}
}

func TestImportRejectsUnknownCollectionBeforeWriting(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := st.Add(ctx, store.CollectionUsers, store.User{ID: "keep", Email: "k@example.com"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	payload := `{"users": [], "widgets": [{"id": "w"}]}`
	if _, err := st.Import(ctx, strings.NewReader(payload)); !errors.Is(err, store.ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
	if kept, _ := store.Get[store.User](ctx, st, store.CollectionUsers, "keep"); kept == nil {
		t.Fatal("users should be untouched after rejected import")
	}

	payload = `{"users": [{"email": "no-id@example.com"}]}`
	if _, err := st.Import(ctx, strings.NewReader(payload)); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestImportFailureRollsBackOnlyThatCollection(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := st.Add(ctx, store.CollectionUsers, store.User{ID: "u1", Email: "u1@example.com"}); err != nil {
		t.Fatalf("Add user failed: %v", err)
	}
	if err := st.Add(ctx, store.CollectionCatalogs, store.Catalog{ID: "c1", Name: "Old"}); err != nil {
		t.Fatalf("Add catalog failed: %v", err)
	}

	payload := `{"catalogs": [{"id": "c2", "name": "New"}], "users": [{"id": "u2"}, {"id": "u2"}]}`
	counts, err := st.Import(ctx, strings.NewReader(payload))
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if counts[store.CollectionCatalogs] != 1 {
		t.Fatalf("expected catalogs imported before the failure, got %v", counts)
	}

	if kept, _ := store.Get[store.User](ctx, st, store.CollectionUsers, "u1"); kept == nil {
		t.Fatal("failed users import should leave existing users in place")
	}
	if dup, _ := store.Get[store.User](ctx, st, store.CollectionUsers, "u2"); dup != nil {
		t.Fatal("failed users import should write nothing")
	}
	if old, _ := store.Get[store.Catalog](ctx, st, store.CollectionCatalogs, "c1"); old != nil {
		t.Fatal("catalogs import should have replaced existing catalogs")
	}
	if imported, _ := store.Get[store.Catalog](ctx, st, store.CollectionCatalogs, "c2"); imported == nil {
		t.Fatal("catalogs import should have committed")
	}
}

func TestStatsCountsEveryCollection(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	session := testsupport.NewSession(t, st, "stats")
	testsupport.NewFrame(t, st, session, 0)

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != len(store.Collections()) {
		t.Fatalf("expected every collection in stats, got %v", stats)
	}
	if stats[store.CollectionSessions] != 1 || stats[store.CollectionCapturedFrames] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
