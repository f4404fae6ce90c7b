package store

import (
	"context"
	"errors"
	"time"

	"dastak/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")

	// ErrCommitFailed wraps any storage-layer failure during a bill commit.
	// The transaction rollback guarantee means the store is in its
	// pre-commit state whenever this error is returned.
	ErrCommitFailed = errors.New("bill commit failed")
)

type Repository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	IncreaseStock(ctx context.Context, id string, qty int) error
	DecreaseStock(ctx context.Context, id string, qty int) error

	// CommitBill persists a draft bill atomically: the bill row, every
	// line item, the stock decrement for every involved product, and
	// exactly one sales ledger entry either all exist afterwards or none
	// do. Stock is re-validated inside the transaction.
	CommitBill(ctx context.Context, draft domain.Bill) (*domain.Bill, error)
	GetBill(ctx context.Context, id string) (*domain.Bill, error)
	ListRecentBills(ctx context.Context, limit int) ([]domain.Bill, error)

	SalesInRange(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesEntry, error)

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key string, value string) error

	ExportSnapshot(ctx context.Context) ([]byte, error)
	ImportSnapshot(ctx context.Context, data []byte) error
}
