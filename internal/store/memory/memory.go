package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dastak/backend/internal/domain"
	"dastak/backend/internal/store"
	"dastak/backend/internal/xid"
)

// Store is an in-memory Repository used in dev mode (no DATABASE_URL) and
// in unit tests. All maps are guarded by one RWMutex; the commit path does
// a full validation pass before touching any state so a failed commit
// leaves nothing behind.
type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	bills    map[string]domain.Bill
	sales    []domain.SalesEntry
	settings map[string]string
	seq      int64
}

func New() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		bills:    make(map[string]domain.Bill),
		sales:    make([]domain.SalesEntry, 0, 64),
		settings: make(map[string]string),
	}
}

// NewSeeded returns a store preloaded with a small demo catalog.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seed := []domain.Product{
		{Name: "Notebook A5", PurchasePriceCents: 3500, SellingPriceCents: 6000, Quantity: 40},
		{Name: "Ballpoint Pen", PurchasePriceCents: 500, SellingPriceCents: 1000, Quantity: 200},
		{Name: "Stapler", PurchasePriceCents: 9000, SellingPriceCents: 14500, Quantity: 15},
		{Name: "Printer Paper 500pk", PurchasePriceCents: 22000, SellingPriceCents: 31000, Quantity: 25},
		{Name: "Whiteboard Marker", PurchasePriceCents: 1200, SellingPriceCents: 2200, Quantity: 80},
	}
	for i, p := range seed {
		p.ID = xid.New("prod")
		p.ProfitCents = p.Profit()
		p.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		s.products[p.ID] = p
		s.seq++
	}
	return s
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PurchasePriceCents < 0 || product.SellingPriceCents < 0 || product.Quantity < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		// The sequence keeps listing order stable when several products
		// are created within the same clock tick.
		product.CreatedAt = time.Now().UTC().Add(time.Duration(s.seq) * time.Nanosecond)
	}
	s.seq++
	product.ProfitCents = product.Profit()
	s.products[product.ID] = product

	created := product
	return &created, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID < products[j].ID
		}
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PurchasePriceCents < 0 || product.SellingPriceCents < 0 || product.Quantity < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	product.ProfitCents = product.Profit()
	s.products[product.ID] = product

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	// Historical bill items keep their own name/price snapshot, so no
	// cleanup of committed bills happens here.
	delete(s.products, id)
	return nil
}

func (s *Store) IncreaseStock(_ context.Context, id string, qty int) error {
	if qty < 1 {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	product.Quantity += qty
	s.products[id] = product
	return nil
}

func (s *Store) DecreaseStock(_ context.Context, id string, qty int) error {
	if qty < 1 {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	if product.Quantity < qty {
		return store.ErrInsufficientStock
	}
	product.Quantity -= qty
	s.products[id] = product
	return nil
}

func (s *Store) CommitBill(_ context.Context, draft domain.Bill) (*domain.Bill, error) {
	if len(draft.Items) == 0 || draft.DiscountCents < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validation pass first: nothing below this loop may fail, so a
	// rejected commit leaves products, bills, and the ledger untouched.
	needed := make(map[string]int, len(draft.Items))
	for _, item := range draft.Items {
		if item.Quantity < 1 {
			return nil, store.ErrValidation
		}
		needed[item.ProductID] += item.Quantity
	}
	for productID, qty := range needed {
		product, ok := s.products[productID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if product.Quantity < qty {
			return nil, store.ErrInsufficientStock
		}
	}

	bill := draft
	bill.ID = xid.New("bill")
	bill.CreatedAt = time.Now().UTC()

	profitCents := int64(0)
	items := make([]domain.BillItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		product := s.products[item.ProductID]
		product.Quantity -= item.Quantity
		s.products[item.ProductID] = product

		item.ID = xid.New("item")
		item.BillID = bill.ID
		item.SubtotalCents = int64(item.Quantity) * item.UnitPriceCents
		items = append(items, item)

		// Profit uses the purchase price as of commit time, not as of
		// the moment the line was added.
		profitCents += int64(item.Quantity) * (item.UnitPriceCents - product.PurchasePriceCents)
	}
	bill.Items = items
	s.bills[bill.ID] = bill

	s.sales = append(s.sales, domain.SalesEntry{
		ID:          xid.New("sale"),
		OccurredAt:  bill.CreatedAt,
		AmountCents: bill.FinalAmountCents,
		ProfitCents: profitCents,
	})

	committed := bill
	return &committed, nil
}

func (s *Store) GetBill(_ context.Context, id string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, ok := s.bills[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := bill
	found.Items = append([]domain.BillItem(nil), bill.Items...)
	return &found, nil
}

func (s *Store) ListRecentBills(_ context.Context, limit int) ([]domain.Bill, error) {
	if limit < 1 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	bills := make([]domain.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		bill := b
		bill.Items = append([]domain.BillItem(nil), b.Items...)
		bills = append(bills, bill)
	}
	sort.Slice(bills, func(i, j int) bool {
		if bills[i].CreatedAt.Equal(bills[j].CreatedAt) {
			return bills[i].ID > bills[j].ID
		}
		return bills[i].CreatedAt.After(bills[j].CreatedAt)
	})
	if len(bills) > limit {
		bills = bills[:limit]
	}
	return bills, nil
}

// AppendSale inserts a ledger entry directly, bypassing the commit
// path. Tests use it to place entries at chosen timestamps.
func (s *Store) AppendSale(entry domain.SalesEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("sale")
	}
	entry.OccurredAt = entry.OccurredAt.UTC()
	s.sales = append(s.sales, entry)
}

func (s *Store) SalesInRange(_ context.Context, from time.Time, to time.Time) ([]domain.SalesEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.SalesEntry, 0, len(s.sales))
	for _, entry := range s.sales {
		// Bounds are inclusive at both ends.
		if entry.OccurredAt.Before(from) || entry.OccurredAt.After(to) {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
	return entries, nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.settings[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) SetSetting(_ context.Context, key string, value string) error {
	if strings.TrimSpace(key) == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = value
	return nil
}

func (s *Store) ExportSnapshot(ctx context.Context) ([]byte, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := domain.Snapshot{
		ExportedAt: time.Now().UTC(),
		Products:   products,
		Bills:      make([]domain.Bill, 0, len(s.bills)),
		Sales:      append([]domain.SalesEntry(nil), s.sales...),
		Settings:   make(map[string]string, len(s.settings)),
	}
	for _, bill := range s.bills {
		snapshot.Bills = append(snapshot.Bills, bill)
	}
	sort.Slice(snapshot.Bills, func(i, j int) bool {
		return snapshot.Bills[i].CreatedAt.Before(snapshot.Bills[j].CreatedAt)
	})
	for k, v := range s.settings {
		snapshot.Settings[k] = v
	}

	return json.Marshal(snapshot)
}

func (s *Store) ImportSnapshot(_ context.Context, data []byte) error {
	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[string]domain.Product, len(snapshot.Products))
	for _, p := range snapshot.Products {
		s.products[p.ID] = p
	}
	s.bills = make(map[string]domain.Bill, len(snapshot.Bills))
	for _, b := range snapshot.Bills {
		s.bills[b.ID] = b
	}
	s.sales = append([]domain.SalesEntry(nil), snapshot.Sales...)
	s.settings = make(map[string]string, len(snapshot.Settings))
	for k, v := range snapshot.Settings {
		s.settings[k] = v
	}
	return nil
}
