// Package billing holds the in-progress bill for the single active
// register session. Nothing here touches storage until the bill is
// handed to the committer; the builder only snapshots catalog data.
package billing

import (
	"context"
	"sync"

	"dastak/backend/internal/domain"
	"dastak/backend/internal/store"
)

// CatalogReader is the slice of the repository the builder needs to
// snapshot product data and pre-check stock.
type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Builder struct {
	catalog CatalogReader

	mu        sync.Mutex
	bill      domain.Bill
	listeners []func(domain.Bill)
}

func NewBuilder(catalog CatalogReader) *Builder {
	return &Builder{catalog: catalog}
}

// AddItem appends qty units of a product to the draft. Lines for the
// same product merge into one, and the stock pre-check covers the
// merged quantity. On any error the draft is left untouched.
func (b *Builder) AddItem(ctx context.Context, productID string, qty int) (*domain.Bill, error) {
	if qty < 1 {
		return nil, store.ErrValidation
	}

	product, err := b.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	existing := -1
	for i, item := range b.bill.Items {
		if item.ProductID == productID {
			existing = i
			break
		}
	}

	wanted := qty
	if existing >= 0 {
		wanted += b.bill.Items[existing].Quantity
	}
	// Advisory only; the committer re-checks inside its transaction.
	if product.Quantity < wanted {
		return nil, store.ErrInsufficientStock
	}

	if existing >= 0 {
		item := &b.bill.Items[existing]
		item.Quantity = wanted
		item.SubtotalCents = int64(item.Quantity) * item.UnitPriceCents
	} else {
		b.bill.Items = append(b.bill.Items, domain.BillItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			UnitPriceCents: product.SellingPriceCents,
			Quantity:       qty,
			SubtotalCents:  int64(qty) * product.SellingPriceCents,
		})
	}

	b.recalcLocked()
	return b.snapshotLocked(), nil
}

// RemoveItem drops the line at index. Out-of-range indexes are a
// silent no-op so a double-tap on the register cannot fail.
func (b *Builder) RemoveItem(index int) *domain.Bill {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index >= 0 && index < len(b.bill.Items) {
		b.bill.Items = append(b.bill.Items[:index], b.bill.Items[index+1:]...)
		b.recalcLocked()
	}
	return b.snapshotLocked()
}

// ApplyDiscount sets a flat discount in cents. The final amount is
// simply total minus discount; a discount larger than the total yields
// a negative final amount, matching how the register has always
// behaved.
func (b *Builder) ApplyDiscount(discountCents int64) (*domain.Bill, error) {
	if discountCents < 0 {
		return nil, store.ErrValidation
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.bill.DiscountCents = discountCents
	b.recalcLocked()
	return b.snapshotLocked(), nil
}

// Reset clears the draft back to an empty bill.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bill = domain.Bill{}
	b.notifyLocked()
}

// Bill returns a deep copy of the current draft.
func (b *Builder) Bill() *domain.Bill {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Subscribe registers fn to run after every draft change. Listeners
// are called synchronously with a copy of the bill.
func (b *Builder) Subscribe(fn func(domain.Bill)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *Builder) recalcLocked() {
	total := int64(0)
	for _, item := range b.bill.Items {
		total += item.SubtotalCents
	}
	b.bill.TotalCents = total
	b.bill.FinalAmountCents = total - b.bill.DiscountCents
	b.notifyLocked()
}

func (b *Builder) notifyLocked() {
	if len(b.listeners) == 0 {
		return
	}
	snapshot := *b.snapshotLocked()
	for _, fn := range b.listeners {
		fn(snapshot)
	}
}

func (b *Builder) snapshotLocked() *domain.Bill {
	out := b.bill
	out.Items = make([]domain.BillItem, len(b.bill.Items))
	copy(out.Items, b.bill.Items)
	return &out
}
