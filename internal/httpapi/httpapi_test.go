package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dastak/backend/internal/cache"
	"dastak/backend/internal/domain"
	"dastak/backend/internal/license"
	"dastak/backend/internal/service"
	"dastak/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real
// AuthManager and real license manager so handler tests exercise the
// complete request path.
func newTestAPI(t *testing.T) (*API, *memory.Store) {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopReportCache{}, time.Monday, time.Minute)
	auth := NewAuthManager(repo, "test-secret", time.Hour)
	lic := license.NewManager(repo, "license-secret", 5)

	ctx := context.Background()
	if err := auth.SeedOwnerPassword(ctx, "owner123"); err != nil {
		t.Fatalf("seed owner password: %v", err)
	}
	if err := lic.EnsureFirstLaunch(ctx); err != nil {
		t.Fatalf("first launch: %v", err)
	}

	return New(svc, auth, lic, nil, "Dastak Stationery", "*"), repo
}

func login(t *testing.T, handler http.Handler) string {
	t.Helper()

	payload, _ := json.Marshal(domain.LoginRequest{Password: "owner123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func doJSON(t *testing.T, handler http.Handler, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsOpen(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), "", http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), "", http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, "", http.MethodGet, "/api/v1/products", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = doJSON(t, handler, "garbage", http.MethodGet, "/api/v1/products", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestProductCRUD(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler)

	rec := doJSON(t, handler, token, http.MethodPost, "/api/v1/products", domain.ProductCreateRequest{
		Name:               "Glue Stick",
		PurchasePriceCents: 300,
		SellingPriceCents:  700,
		Quantity:           50,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Product.ProfitCents != 400 {
		t.Fatalf("expected derived profit 400, got %d", created.Product.ProfitCents)
	}

	id := created.Product.ID
	newName := "Glue Stick XL"
	rec = doJSON(t, handler, token, http.MethodPut, "/api/v1/products/"+id, domain.ProductUpdateRequest{Name: &newName})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, token, http.MethodPost, "/api/v1/products/"+id+"/stock", domain.StockAdjustRequest{Delta: -10})
	if rec.Code != http.StatusOK {
		t.Fatalf("stock: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, token, http.MethodDelete, "/api/v1/products/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, handler, token, http.MethodGet, "/api/v1/products/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", rec.Code)
	}
}

func TestBillFlowOverHTTP(t *testing.T) {
	api, repo := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler)
	ctx := context.Background()

	products, err := repo.ListProducts(ctx)
	if err != nil || len(products) == 0 {
		t.Fatalf("seeded products: %v", err)
	}
	pen := products[0]
	for _, p := range products {
		if p.Name == "Ballpoint Pen" {
			pen = p
		}
	}

	rec := doJSON(t, handler, token, http.MethodPost, "/api/v1/bill", domain.AddItemRequest{ProductID: pen.ID, Quantity: 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("add item: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, token, http.MethodPost, "/api/v1/bill/discount", domain.DiscountRequest{DiscountCents: 500})
	if rec.Code != http.StatusOK {
		t.Fatalf("discount: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, token, http.MethodPost, "/api/v1/bill/commit", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("commit: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var committed struct {
		Bill domain.Bill `json:"bill"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&committed); err != nil {
		t.Fatalf("decode commit response: %v", err)
	}
	if committed.Bill.FinalAmountCents != 3*pen.SellingPriceCents-500 {
		t.Fatalf("unexpected final amount %d", committed.Bill.FinalAmountCents)
	}

	rec = doJSON(t, handler, token, http.MethodGet, "/api/v1/bills/"+committed.Bill.ID+"/receipt.pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("receipt: expected PDF content type, got %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("receipt body is not a PDF")
	}

	rec = doJSON(t, handler, token, http.MethodGet, "/api/v1/reports/sales?period=day", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var report domain.SalesReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Bills != 1 || report.TotalAmountCents != committed.Bill.FinalAmountCents {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestCommitConflictMapsTo409(t *testing.T) {
	api, repo := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler)
	ctx := context.Background()

	product, err := repo.CreateProduct(ctx, domain.Product{
		Name: "Scarce Item", SellingPriceCents: 1000, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doJSON(t, handler, token, http.MethodPost, "/api/v1/bill", domain.AddItemRequest{ProductID: product.ID, Quantity: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("add item: expected 200, got %d", rec.Code)
	}
	if err := repo.DecreaseStock(ctx, product.ID, 1); err != nil {
		t.Fatalf("concurrent decrease: %v", err)
	}

	rec = doJSON(t, handler, token, http.MethodPost, "/api/v1/bill/commit", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// Clear the stuck draft and ensure the register recovers.
	rec = doJSON(t, handler, token, http.MethodDelete, "/api/v1/bill", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", rec.Code)
	}
}

func TestLicenseGateBlocksExpiredTrial(t *testing.T) {
	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopReportCache{}, time.Monday, time.Minute)
	auth := NewAuthManager(repo, "test-secret", time.Hour)
	lic := license.NewManager(repo, "license-secret", 5)
	ctx := context.Background()

	if err := auth.SeedOwnerPassword(ctx, "owner123"); err != nil {
		t.Fatalf("seed owner password: %v", err)
	}
	// First launch six days ago; five-day trial is over.
	expired := time.Now().UTC().AddDate(0, 0, -6).Format(time.RFC3339)
	if err := repo.SetSetting(ctx, domain.SettingFirstLaunch, expired); err != nil {
		t.Fatalf("set first launch: %v", err)
	}

	api := New(svc, auth, lic, nil, "Dastak Stationery", "*")
	handler := api.Handler()
	token := login(t, handler)

	rec := doJSON(t, handler, token, http.MethodGet, "/api/v1/products", nil)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 on expired trial, got %d", rec.Code)
	}

	// License routes stay open so the key can still be entered.
	rec = doJSON(t, handler, "", http.MethodGet, "/api/v1/license", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("license status: expected 200, got %d", rec.Code)
	}

	key, err := lic.MintKey("shop-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	rec = doJSON(t, handler, "", http.MethodPost, "/api/v1/license/activate", domain.ActivateRequest{Key: key})
	if rec.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, token, http.MethodGet, "/api/v1/products", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after activation, got %d", rec.Code)
	}
}

func TestSalesRangeQuery(t *testing.T) {
	api, repo := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler)

	day := time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)
	repo.AppendSale(domain.SalesEntry{OccurredAt: day, AmountCents: 1200, ProfitCents: 400})
	repo.AppendSale(domain.SalesEntry{OccurredAt: day.AddDate(0, 0, 3), AmountCents: 800, ProfitCents: 100})

	path := fmt.Sprintf("/api/v1/sales?from=%s&to=%s", "2026-04-01", "2026-04-02")
	rec := doJSON(t, handler, token, http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Entries          []domain.SalesEntry `json:"entries"`
		TotalAmountCents int64               `json:"total_amount_cents"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 1 || resp.TotalAmountCents != 1200 {
		t.Fatalf("unexpected range result: %+v", resp)
	}

	rec = doJSON(t, handler, token, http.MethodGet, "/api/v1/sales?from=2026-04-05&to=2026-04-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", rec.Code)
	}
}

func TestBackupRoutesWithoutManager(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler)

	rec := doJSON(t, handler, token, http.MethodPost, "/api/v1/backup", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("trigger: expected 503, got %d", rec.Code)
	}

	rec = doJSON(t, handler, token, http.MethodGet, "/api/v1/backup/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var status domain.BackupStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Configured {
		t.Fatal("backup must report unconfigured")
	}
}
