package domain

import "time"

// Product is a catalog entry. ProfitCents is always derived from the two
// prices and never accepted from callers.
type Product struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	PurchasePriceCents int64     `json:"purchase_price_cents"`
	SellingPriceCents  int64     `json:"selling_price_cents"`
	Quantity           int       `json:"quantity"`
	ProfitCents        int64     `json:"profit_cents"`
	CreatedAt          time.Time `json:"created_at"`
}

// Profit returns the derived per-unit profit for the current prices.
func (p Product) Profit() int64 {
	return p.SellingPriceCents - p.PurchasePriceCents
}

type ProductCreateRequest struct {
	Name               string `json:"name"`
	PurchasePriceCents int64  `json:"purchase_price_cents"`
	SellingPriceCents  int64  `json:"selling_price_cents"`
	Quantity           int    `json:"quantity"`
}

type ProductUpdateRequest struct {
	Name               *string `json:"name,omitempty"`
	PurchasePriceCents *int64  `json:"purchase_price_cents,omitempty"`
	SellingPriceCents  *int64  `json:"selling_price_cents,omitempty"`
	Quantity           *int    `json:"quantity,omitempty"`
}

type StockAdjustRequest struct {
	Delta int `json:"delta"`
}

// BillItem is one line of a bill. ProductName and UnitPriceCents are
// snapshots captured when the line was added; later product edits or
// deletes do not reach back into them.
type BillItem struct {
	ID             string `json:"id,omitempty"`
	BillID         string `json:"bill_id,omitempty"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

// Bill is either the in-progress draft owned by the builder (ID and
// CreatedAt empty) or an immutable committed record.
type Bill struct {
	ID               string     `json:"id,omitempty"`
	CreatedAt        time.Time  `json:"created_at,omitzero"`
	Items            []BillItem `json:"items"`
	TotalCents       int64      `json:"total_cents"`
	DiscountCents    int64      `json:"discount_cents"`
	FinalAmountCents int64      `json:"final_amount_cents"`
}

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type DiscountRequest struct {
	DiscountCents int64 `json:"discount_cents"`
}

// SalesEntry is one append-only ledger row per committed bill.
type SalesEntry struct {
	ID          string    `json:"id"`
	OccurredAt  time.Time `json:"occurred_at"`
	AmountCents int64     `json:"amount_cents"`
	ProfitCents int64     `json:"profit_cents"`
}

type SalesReport struct {
	Period           string       `json:"period"`
	From             time.Time    `json:"from"`
	To               time.Time    `json:"to"`
	Bills            int          `json:"bills"`
	TotalAmountCents int64        `json:"total_amount_cents"`
	TotalProfitCents int64        `json:"total_profit_cents"`
	Entries          []SalesEntry `json:"entries"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

type LicenseStatus struct {
	Activated     bool   `json:"activated"`
	TrialActive   bool   `json:"trial_active"`
	RemainingDays int    `json:"remaining_days"`
	FirstLaunch   string `json:"first_launch,omitempty"`
}

type ActivateRequest struct {
	Key string `json:"key"`
}

type BackupStatus struct {
	Configured   bool   `json:"configured"`
	Running      bool   `json:"running"`
	LastBackupAt string `json:"last_backup_at,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// Snapshot is the full persistent state of the store, serialized as one
// blob for cloud backup. The backup layer treats it as opaque bytes.
type Snapshot struct {
	ExportedAt time.Time         `json:"exported_at"`
	Products   []Product         `json:"products"`
	Bills      []Bill            `json:"bills"`
	Sales      []SalesEntry      `json:"sales"`
	Settings   map[string]string `json:"settings"`
}

const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

const (
	SettingFirstLaunch       = "first_launch"
	SettingActivationKey     = "activation_key"
	SettingOwnerPasswordHash = "owner_password_hash"
	SettingLastBackupAt      = "last_backup_at"
)
