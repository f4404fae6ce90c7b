// Package httpapi is the HTTP surface of the register backend. Routing
// stays on the standard mux; handlers translate between JSON and the
// service layer and map the store's sentinel errors onto status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dastak/backend/internal/backup"
	"dastak/backend/internal/domain"
	"dastak/backend/internal/license"
	"dastak/backend/internal/receipt"
	"dastak/backend/internal/service"
	"dastak/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	license       *license.Manager
	backups       *backup.Manager
	shopName      string
	allowedOrigin string
}

func New(svc *service.Service, auth *AuthManager, lic *license.Manager, backups *backup.Manager, shopName, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		license:       lic,
		backups:       backups,
		shopName:      shopName,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/license", a.handleLicenseStatus)
	mux.HandleFunc("/api/v1/license/activate", a.handleLicenseActivate)

	mux.HandleFunc("/api/v1/products", a.protect(a.handleProducts))
	mux.HandleFunc("/api/v1/products/", a.protect(a.handleProductActions))
	mux.HandleFunc("/api/v1/bill", a.protect(a.handleBill))
	mux.HandleFunc("/api/v1/bill/items/", a.protect(a.handleBillItemRemove))
	mux.HandleFunc("/api/v1/bill/discount", a.protect(a.handleBillDiscount))
	mux.HandleFunc("/api/v1/bill/commit", a.protect(a.handleBillCommit))
	mux.HandleFunc("/api/v1/bills", a.protect(a.handleBills))
	mux.HandleFunc("/api/v1/bills/", a.protect(a.handleBillActions))
	mux.HandleFunc("/api/v1/sales", a.protect(a.handleSales))
	mux.HandleFunc("/api/v1/reports/sales", a.protect(a.handleSalesReport))
	mux.HandleFunc("/api/v1/backup", a.protect(a.handleBackupTrigger))
	mux.HandleFunc("/api/v1/backup/status", a.protect(a.handleBackupStatus))
	mux.HandleFunc("/api/v1/backup/restore", a.protect(a.handleBackupRestore))

	return a.withCORS(mux)
}

// protect wraps a handler with the bearer-token check and the license
// gate. Login and license routes stay open so an expired trial can
// still be activated.
func (a *API) protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		if err := a.auth.ParseToken(strings.TrimPrefix(header, "Bearer ")); err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		allowed, err := a.license.Allowed(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !allowed {
			writeError(w, http.StatusPaymentRequired, errors.New("trial expired, activation required"))
			return
		}

		next(w, r)
	}
}

func (a *API) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLicenseStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	status, err := a.license.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleLicenseActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.ActivateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.license.Activate(r.Context(), req.Key); err != nil {
		if errors.Is(err, license.ErrInvalidKey) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	status, err := a.license.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/products/")
	if rest == "" {
		writeError(w, http.StatusNotFound, errors.New("missing product id"))
		return
	}

	if id, ok := strings.CutSuffix(rest, "/stock"); ok {
		a.handleStockAdjust(w, r, id)
		return
	}
	id := rest

	switch r.Method {
	case http.MethodGet:
		product, err := a.service.GetProduct(r.Context(), id)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodPut:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), id, req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodDelete:
		if err := a.service.DeleteProduct(r.Context(), id); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleStockAdjust(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleBill(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"bill": a.service.CurrentBill()})
	case http.MethodPost:
		var req domain.AddItemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		bill, err := a.service.AddBillItem(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
	case http.MethodDelete:
		writeJSON(w, http.StatusOK, map[string]any{"bill": a.service.ClearBill()})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleBillItemRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/bill/items/")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid item index %q", raw))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bill": a.service.RemoveBillItem(index)})
}

func (a *API) handleBillDiscount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.DiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bill, err := a.service.ApplyDiscount(req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
}

func (a *API) handleBillCommit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	bill, err := a.service.CommitBill(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bill": bill})
}

func (a *API) handleBills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 20, 200)
	bills, err := a.service.ListRecentBills(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (a *API) handleBillActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bills/")
	if id, ok := strings.CutSuffix(rest, "/receipt.pdf"); ok {
		a.handleReceiptPDF(w, r, id)
		return
	}

	bill, err := a.service.GetBill(r.Context(), rest)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
}

func (a *API) handleReceiptPDF(w http.ResponseWriter, r *http.Request, id string) {
	bill, err := a.service.GetBill(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	data, err := receipt.PDF(*bill, a.shopName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "receipt-"+id+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	from, err := parseDate(r.URL.Query().Get("from"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := a.service.SalesInRange(r.Context(), from, to)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":            entries,
		"total_amount_cents": service.TotalAmount(entries),
		"total_profit_cents": service.TotalProfit(entries),
	})
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = domain.PeriodDay
	}

	var at time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid date %q", raw))
			return
		}
		at = parsed
	}

	report, err := a.service.SalesReport(r.Context(), period, at)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleBackupTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if a.backups == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("backup not configured"))
		return
	}

	started := a.backups.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]any{"started": started})
}

func (a *API) handleBackupStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if a.backups == nil {
		writeJSON(w, http.StatusOK, domain.BackupStatus{})
		return
	}
	writeJSON(w, http.StatusOK, a.backups.Status(r.Context()))
}

func (a *API) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if a.backups == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("backup not configured"))
		return
	}

	if err := a.backups.Restore(r.Context()); err != nil {
		if errors.Is(err, backup.ErrNoBackups) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": true})
}

// parseDate accepts YYYY-MM-DD and anchors it to the start or end of
// that day.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("missing from/to date")
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	if endOfDay {
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC), nil
	}
	return t, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 4xx messages are user-facing; 5xx details stay in the log.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
