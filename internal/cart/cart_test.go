package cart

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/shopcar/storefront/internal/models"
	"github.com/shopcar/storefront/internal/storage"
)

// memLineStore is an in-memory LineStore with the same ownership and floor
// semantics as the SQL implementation.
type memLineStore struct {
	nextID  int64
	lines   map[int64]*models.CartLine
	catalog *memCatalog
}

func newMemLineStore(catalog *memCatalog) *memLineStore {
	return &memLineStore{nextID: 1, lines: make(map[int64]*models.CartLine), catalog: catalog}
}

func (m *memLineStore) Insert(ctx context.Context, line *models.CartLine) (int64, error) {
	id := m.nextID
	m.nextID++
	stored := *line
	stored.ID = id
	m.lines[id] = &stored
	return id, nil
}

func (m *memLineStore) owned(userID, lineID int64) (*models.CartLine, bool) {
	line, ok := m.lines[lineID]
	if !ok || line.UserID != userID {
		return nil, false
	}
	return line, true
}

func (m *memLineStore) Increment(ctx context.Context, userID, lineID int64) error {
	line, ok := m.owned(userID, lineID)
	if !ok {
		return storage.ErrNotFound
	}
	line.Quantity++
	return nil
}

func (m *memLineStore) DecrementAboveOne(ctx context.Context, userID, lineID int64) error {
	line, ok := m.owned(userID, lineID)
	if !ok {
		return storage.ErrNotFound
	}
	if line.Quantity > 1 {
		line.Quantity--
	}
	return nil
}

func (m *memLineStore) Update(ctx context.Context, userID, lineID int64, quantity int, remarks string) error {
	line, ok := m.owned(userID, lineID)
	if !ok {
		return storage.ErrNotFound
	}
	line.Quantity = quantity
	line.Remarks = remarks
	return nil
}

func (m *memLineStore) Delete(ctx context.Context, userID, lineID int64) error {
	if _, ok := m.owned(userID, lineID); !ok {
		return storage.ErrNotFound
	}
	delete(m.lines, lineID)
	return nil
}

func (m *memLineStore) ListByUser(ctx context.Context, userID int64) ([]models.CartLineView, error) {
	var views []models.CartLineView
	for _, line := range m.lines {
		if line.UserID != userID {
			continue
		}
		view := models.CartLineView{CartLine: *line}
		if product, ok := m.catalog.products[line.ProductID]; ok {
			view.ProductName = product.Name
			view.ProductPrice = product.Price
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

func (m *memLineStore) SumQuantities(ctx context.Context, userID int64) (int, error) {
	total := 0
	for _, line := range m.lines {
		if line.UserID == userID {
			total += line.Quantity
		}
	}
	return total, nil
}

func (m *memLineStore) ClearUser(ctx context.Context, userID int64) error {
	for id, line := range m.lines {
		if line.UserID == userID {
			delete(m.lines, id)
		}
	}
	return nil
}

type memCatalog struct {
	products map[int64]*models.Product
}

func (m *memCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return product, nil
}

type memDirectory struct {
	users map[int64]*models.User
}

func (m *memDirectory) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

// stubProcessor records every call and answers with a fixed verdict
type stubProcessor struct {
	verdict Verdict
	err     error
	calls   [][]models.CartLineView
}

func (p *stubProcessor) ProcessOrder(ctx context.Context, userID int64, lines []models.CartLineView) (Verdict, error) {
	snapshot := make([]models.CartLineView, len(lines))
	copy(snapshot, lines)
	p.calls = append(p.calls, snapshot)
	if p.err != nil {
		return Verdict{}, p.err
	}
	return p.verdict, nil
}

const (
	testUserID  = int64(1)
	otherUserID = int64(2)
)

func newTestService(processor OrderProcessor) (*Service, *memLineStore) {
	catalog := &memCatalog{products: map[int64]*models.Product{
		10: {ID: 10, Name: "Nike Air", Price: 2330},
		11: {ID: 11, Name: "AirPods", Price: 13000},
	}}
	directory := &memDirectory{users: map[int64]*models.User{
		testUserID:  {ID: testUserID, Email: "shopper@shopcar.local"},
		otherUserID: {ID: otherUserID, Email: "admin@shopcar.local"},
	}}
	lines := newMemLineStore(catalog)
	if processor == nil {
		processor = &stubProcessor{verdict: Verdict{Success: true, Message: "ok"}}
	}
	return NewService(lines, catalog, directory, processor, nil), lines
}

func TestAddToCart_RepeatedAddKeepsDistinctLines(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	first, err := svc.AddToCart(ctx, testUserID, 10, 1, "")
	if err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	second, err := svc.AddToCart(ctx, testUserID, 10, 1, "gift wrap")
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct line ids, got %d twice", first.ID)
	}

	view, err := svc.GetCart(ctx, testUserID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(view.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(view.Lines))
	}
	if view.Lines[0].Quantity != 1 || view.Lines[1].Quantity != 1 {
		t.Fatalf("expected two quantity-1 lines, got %d and %d", view.Lines[0].Quantity, view.Lines[1].Quantity)
	}
}

func TestAddToCart_RejectsUnknownProduct(t *testing.T) {
	svc, _ := newTestService(nil)

	if _, err := svc.AddToCart(context.Background(), testUserID, 999, 1, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddToCart_RejectsNonPositiveQuantity(t *testing.T) {
	svc, lines := newTestService(nil)

	_, err := svc.AddToCart(context.Background(), testUserID, 10, 0, "")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if validation.Field != "quantity" {
		t.Fatalf("expected quantity field error, got %q", validation.Field)
	}
	if len(lines.lines) != 0 {
		t.Fatalf("expected no line stored, got %d", len(lines.lines))
	}
}

func TestIncreaseQuantity_Unbounded(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	line, err := svc.AddToCart(ctx, testUserID, 10, 1, "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := svc.IncreaseQuantity(ctx, testUserID, line.ID); err != nil {
			t.Fatalf("increase %d failed: %v", i, err)
		}
	}

	count, err := svc.BadgeCount(ctx, testUserID)
	if err != nil {
		t.Fatalf("BadgeCount failed: %v", err)
	}
	if count != 51 {
		t.Fatalf("expected quantity 51, got %d", count)
	}
}

func TestDecreaseQuantity_StopsAtOne(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	line, err := svc.AddToCart(ctx, testUserID, 10, 2, "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// 2 -> 1, then two floor no-ops
	for i := 0; i < 3; i++ {
		if err := svc.DecreaseQuantity(ctx, testUserID, line.ID); err != nil {
			t.Fatalf("decrease %d failed: %v", i, err)
		}
	}

	view, err := svc.GetCart(ctx, testUserID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("line must survive the floor, got %d lines", len(view.Lines))
	}
	if view.Lines[0].Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", view.Lines[0].Quantity)
	}
}

func TestIncreaseDecrease_RoundTrip(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	line, err := svc.AddToCart(ctx, testUserID, 10, 3, "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := svc.IncreaseQuantity(ctx, testUserID, line.ID); err != nil {
		t.Fatalf("increase failed: %v", err)
	}
	if err := svc.DecreaseQuantity(ctx, testUserID, line.ID); err != nil {
		t.Fatalf("decrease failed: %v", err)
	}

	view, _ := svc.GetCart(ctx, testUserID)
	if view.Lines[0].Quantity != 3 {
		t.Fatalf("expected quantity back at 3, got %d", view.Lines[0].Quantity)
	}
}

func TestEditLine_OverwritesQuantityAndRemarks(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	line, err := svc.AddToCart(ctx, testUserID, 10, 2, "old note")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := svc.EditLine(ctx, testUserID, line.ID, 7, "new note"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	view, _ := svc.GetCart(ctx, testUserID)
	if view.Lines[0].Quantity != 7 || view.Lines[0].Remarks != "new note" {
		t.Fatalf("expected 7/%q, got %d/%q", "new note", view.Lines[0].Quantity, view.Lines[0].Remarks)
	}
}

func TestEditLine_RejectsZeroQuantityLeavingLineUnchanged(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	line, err := svc.AddToCart(ctx, testUserID, 10, 4, "keep me")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	err = svc.EditLine(ctx, testUserID, line.ID, 0, "dropped")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	view, _ := svc.GetCart(ctx, testUserID)
	if view.Lines[0].Quantity != 4 || view.Lines[0].Remarks != "keep me" {
		t.Fatalf("line changed despite validation failure: %d/%q", view.Lines[0].Quantity, view.Lines[0].Remarks)
	}
}

func TestRemoveLine_DeletesRegardlessOfQuantity(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	line, err := svc.AddToCart(ctx, testUserID, 10, 9, "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := svc.RemoveLine(ctx, testUserID, line.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	view, _ := svc.GetCart(ctx, testUserID)
	if len(view.Lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(view.Lines))
	}
}

func TestLineMutations_RefuseOtherUsersLines(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	line, err := svc.AddToCart(ctx, testUserID, 10, 2, "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	ops := map[string]func() error{
		"increase": func() error { return svc.IncreaseQuantity(ctx, otherUserID, line.ID) },
		"decrease": func() error { return svc.DecreaseQuantity(ctx, otherUserID, line.ID) },
		"edit":     func() error { return svc.EditLine(ctx, otherUserID, line.ID, 5, "") },
		"remove":   func() error { return svc.RemoveLine(ctx, otherUserID, line.ID) },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("%s on foreign line: expected ErrNotFound, got %v", name, err)
		}
	}

	view, _ := svc.GetCart(ctx, testUserID)
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 2 {
		t.Fatalf("owner's line was touched by a foreign mutation")
	}
}

func TestGetCart_IsolatesUsers(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, testUserID, 10, 2, ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.AddToCart(ctx, otherUserID, 11, 1, ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	mine, _ := svc.GetCart(ctx, testUserID)
	theirs, _ := svc.GetCart(ctx, otherUserID)
	if len(mine.Lines) != 1 || mine.Lines[0].ProductID != 10 {
		t.Fatalf("unexpected cart for user %d: %+v", testUserID, mine.Lines)
	}
	if len(theirs.Lines) != 1 || theirs.Lines[0].ProductID != 11 {
		t.Fatalf("unexpected cart for user %d: %+v", otherUserID, theirs.Lines)
	}
}

func TestGetCart_ComputesTotalsAtCurrentPrices(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, testUserID, 10, 2, ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.AddToCart(ctx, testUserID, 11, 1, ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	view, err := svc.GetCart(ctx, testUserID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if view.TotalQuantity != 3 {
		t.Fatalf("expected total quantity 3, got %d", view.TotalQuantity)
	}
	want := 2*2330.0 + 13000.0
	if view.TotalAmount != want {
		t.Fatalf("expected total %.2f, got %.2f", want, view.TotalAmount)
	}
}

func TestBadgeCount_SumsQuantitiesAcrossLines(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, testUserID, 10, 3, ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.AddToCart(ctx, testUserID, 10, 2, ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	count, err := svc.BadgeCount(ctx, testUserID)
	if err != nil {
		t.Fatalf("BadgeCount failed: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected badge 5, got %d", count)
	}
}
