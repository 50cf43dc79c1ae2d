package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"checkout-svc/models"

	"github.com/shopspring/decimal"
)

var errBoom = errors.New("boom")

// memStore is an in-memory Store. InTx holds one lock for the whole
// transaction and applies staged writes only when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	products map[string]models.Product
	orders   map[string]models.Order
	items    []models.OrderItem
	payments []models.Payment
	history  []models.StatusHistory

	// failOn names a Tx method that returns errBoom.
	failOn string
	// block makes InTx wait for ctx to end.
	block bool
}

func newMemStore(products ...models.Product) *memStore {
	s := &memStore{
		products: make(map[string]models.Product),
		orders:   make(map[string]models.Order),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) GetProduct(_ context.Context, id string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return p, nil
}

func (s *memStore) stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].StockQuantity
}

func (s *memStore) setPrice(id string, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.Price = decimal.RequireFromString(price)
	s.products[id] = p
}

func (s *memStore) deactivate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.IsActive = false
	s.products[id] = p
}

func (s *memStore) counts() (orders, items, payments, history int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders), len(s.items), len(s.payments), len(s.history)
}

func (s *memStore) order(id string) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *memStore) historyFor(orderID string) []models.StatusHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StatusHistory
	for _, h := range s.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:        s,
		decrease: make(map[string]int),
		statuses: make(map[string]models.OrderStatus),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for _, o := range tx.orders {
		s.orders[o.ID] = o
	}
	for id, status := range tx.statuses {
		o := s.orders[id]
		o.Status = status
		s.orders[id] = o
	}
	for id, qty := range tx.decrease {
		p := s.products[id]
		p.StockQuantity -= qty
		s.products[id] = p
	}
	s.items = append(s.items, tx.items...)
	s.payments = append(s.payments, tx.payments...)
	s.history = append(s.history, tx.history...)
	return nil
}

type memTx struct {
	s        *memStore
	orders   []models.Order
	items    []models.OrderItem
	payments []models.Payment
	history  []models.StatusHistory
	decrease map[string]int
	statuses map[string]models.OrderStatus
}

func (t *memTx) fail(method string) error {
	if t.s.failOn == method {
		return errBoom
	}
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, order models.Order) error {
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	t.orders = append(t.orders, order)
	return nil
}

func (t *memTx) InsertItem(_ context.Context, item models.OrderItem) error {
	if err := t.fail("InsertItem"); err != nil {
		return err
	}
	t.items = append(t.items, item)
	return nil
}

func (t *memTx) DecrementStock(_ context.Context, productID string, qty int) (bool, error) {
	if err := t.fail("DecrementStock"); err != nil {
		return false, err
	}
	p, ok := t.s.products[productID]
	if !ok || !p.IsActive || p.StockQuantity-t.decrease[productID] < qty {
		return false, nil
	}
	t.decrease[productID] += qty
	return true, nil
}

func (t *memTx) InsertPayment(_ context.Context, payment models.Payment) error {
	if err := t.fail("InsertPayment"); err != nil {
		return err
	}
	t.payments = append(t.payments, payment)
	return nil
}

func (t *memTx) LockOrderStatus(_ context.Context, orderID string) (models.OrderStatus, error) {
	if status, ok := t.statuses[orderID]; ok {
		return status, nil
	}
	o, ok := t.s.orders[orderID]
	if !ok {
		return "", ErrOrderNotFound
	}
	return o.Status, nil
}

func (t *memTx) UpdateOrderStatus(_ context.Context, orderID string, status models.OrderStatus, _ time.Time) error {
	if err := t.fail("UpdateOrderStatus"); err != nil {
		return err
	}
	t.statuses[orderID] = status
	return nil
}

func (t *memTx) AppendHistory(_ context.Context, entry models.StatusHistory) error {
	if err := t.fail("AppendHistory"); err != nil {
		return err
	}
	t.history = append(t.history, entry)
	return nil
}

// barrierCatalog holds every reader until all expected readers have read,
// so concurrent checkouts verify against the same stock snapshot.
type barrierCatalog struct {
	next    CatalogReader
	barrier *sync.WaitGroup
}

func (c *barrierCatalog) GetProduct(ctx context.Context, id string) (models.Product, error) {
	p, err := c.next.GetProduct(ctx, id)
	c.barrier.Done()
	c.barrier.Wait()
	return p, err
}

type fakeDiscounts struct {
	discounts map[string]models.Discount
	eligible  map[string][]string
	err       error
}

func (f *fakeDiscounts) FindActiveDiscountByCode(_ context.Context, code string, now time.Time) (models.Discount, error) {
	if f.err != nil {
		return models.Discount{}, f.err
	}
	d, ok := f.discounts[code]
	if !ok {
		return models.Discount{}, ErrDiscountNotFound
	}
	if err := CheckDiscountActive(d, now); err != nil {
		return models.Discount{}, err
	}
	return d, nil
}

func (f *fakeDiscounts) ListEligibleProductIDs(_ context.Context, discountID string) ([]string, error) {
	return f.eligible[discountID], nil
}

type sentConfirmation struct {
	email, name  string
	confirmation models.OrderConfirmation
	ordersStored int
}

type fakeNotifier struct {
	mu    sync.Mutex
	store *memStore
	sent  []sentConfirmation
	err   error
}

func (n *fakeNotifier) SendOrderConfirmation(ctx context.Context, email, name string, c models.OrderConfirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	stored := 0
	if n.store != nil {
		stored, _, _, _ = n.store.counts()
	}
	n.sent = append(n.sent, sentConfirmation{email: email, name: name, confirmation: c, ordersStored: stored})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return n.err
}

func product(id, price string, stock int) models.Product {
	return models.Product{
		ID:            id,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
