// Package service holds the business rules between the HTTP layer and
// the repository: catalog validation, the register draft, report
// aggregation, and the commit handoff.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"dastak/backend/internal/billing"
	"dastak/backend/internal/cache"
	"dastak/backend/internal/domain"
	"dastak/backend/internal/store"
)

type Service struct {
	repo      store.Repository
	builder   *billing.Builder
	reports   cache.ReportCache
	weekStart time.Weekday
	reportTTL time.Duration

	now func() time.Time
}

func New(repo store.Repository, reports cache.ReportCache, weekStart time.Weekday, reportTTL time.Duration) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	return &Service{
		repo:      repo,
		builder:   billing.NewBuilder(repo),
		reports:   reports,
		weekStart: weekStart,
		reportTTL: reportTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Builder exposes the register draft for callers that want change
// notifications.
func (s *Service) Builder() *billing.Builder {
	return s.builder
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.PurchasePriceCents < 0 || req.SellingPriceCents < 0 || req.Quantity < 0 {
		return nil, store.ErrValidation
	}

	return s.repo.CreateProduct(ctx, domain.Product{
		Name:               name,
		PurchasePriceCents: req.PurchasePriceCents,
		SellingPriceCents:  req.SellingPriceCents,
		Quantity:           req.Quantity,
	})
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// UpdateProduct applies a partial update. Only fields present in the
// request change; profit is recomputed whenever either price moves.
func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	current, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.PurchasePriceCents != nil {
		next.PurchasePriceCents = *req.PurchasePriceCents
	}
	if req.SellingPriceCents != nil {
		next.SellingPriceCents = *req.SellingPriceCents
	}
	if req.Quantity != nil {
		next.Quantity = *req.Quantity
	}
	if next.Name == "" || next.PurchasePriceCents < 0 || next.SellingPriceCents < 0 || next.Quantity < 0 {
		return nil, store.ErrValidation
	}

	return s.repo.UpdateProduct(ctx, next)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

// AdjustStock moves a product's stock by delta, in either direction.
// A zero delta is rejected; a decrease past zero fails with
// ErrInsufficientStock and changes nothing.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	switch {
	case delta > 0:
		if err := s.repo.IncreaseStock(ctx, id, delta); err != nil {
			return nil, err
		}
	case delta < 0:
		if err := s.repo.DecreaseStock(ctx, id, -delta); err != nil {
			return nil, err
		}
	default:
		return nil, store.ErrValidation
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CurrentBill() *domain.Bill {
	return s.builder.Bill()
}

func (s *Service) AddBillItem(ctx context.Context, req domain.AddItemRequest) (*domain.Bill, error) {
	return s.builder.AddItem(ctx, req.ProductID, req.Quantity)
}

func (s *Service) RemoveBillItem(index int) *domain.Bill {
	return s.builder.RemoveItem(index)
}

func (s *Service) ApplyDiscount(req domain.DiscountRequest) (*domain.Bill, error) {
	return s.builder.ApplyDiscount(req.DiscountCents)
}

func (s *Service) ClearBill() *domain.Bill {
	s.builder.Reset()
	return s.builder.Bill()
}

// CommitBill persists the current draft atomically. The draft is reset
// only after the repository reports success; on any failure it stays
// intact so the operator can retry or adjust.
func (s *Service) CommitBill(ctx context.Context) (*domain.Bill, error) {
	draft := s.builder.Bill()
	committed, err := s.repo.CommitBill(ctx, *draft)
	if err != nil {
		return nil, err
	}
	s.builder.Reset()
	return committed, nil
}

func (s *Service) GetBill(ctx context.Context, id string) (*domain.Bill, error) {
	return s.repo.GetBill(ctx, id)
}

func (s *Service) ListRecentBills(ctx context.Context, limit int) ([]domain.Bill, error) {
	return s.repo.ListRecentBills(ctx, limit)
}

// SalesReport aggregates the ledger over the rolling window containing
// at. Reports for past windows never change, so they cache well.
func (s *Service) SalesReport(ctx context.Context, period string, at time.Time) (*domain.SalesReport, error) {
	if at.IsZero() {
		at = s.now()
	}
	window, err := windowFor(period, at, s.weekStart)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("report:%s:%s", period, window.From.Format("2006-01-02"))
	if cached, err := s.reports.Get(ctx, key); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		log.Printf("[service] report cache get failed: %v", err)
	}

	entries, err := s.repo.SalesInRange(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}

	report := domain.SalesReport{
		Period:           period,
		From:             window.From,
		To:               window.To,
		Bills:            len(entries),
		TotalAmountCents: TotalAmount(entries),
		TotalProfitCents: TotalProfit(entries),
		Entries:          entries,
	}

	if err := s.reports.Set(ctx, key, report, s.reportTTL); err != nil {
		log.Printf("[service] report cache set failed: %v", err)
	}
	return &report, nil
}

func (s *Service) SalesInRange(ctx context.Context, from, to time.Time) ([]domain.SalesEntry, error) {
	if to.Before(from) {
		return nil, store.ErrValidation
	}
	return s.repo.SalesInRange(ctx, from, to)
}
