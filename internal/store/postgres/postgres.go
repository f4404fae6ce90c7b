package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"dastak/backend/internal/domain"
	"dastak/backend/internal/store"
	"dastak/backend/internal/xid"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Println("[postgres] migrations applied")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PurchasePriceCents < 0 || product.SellingPriceCents < 0 || product.Quantity < 0 {
		return nil, store.ErrValidation
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.ProfitCents = product.Profit()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, purchase_price_cents, selling_price_cents, quantity, profit_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, product.ID, product.Name, product.PurchasePriceCents, product.SellingPriceCents, product.Quantity, product.ProfitCents, product.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, purchase_price_cents, selling_price_cents, quantity, profit_cents, created_at
		FROM products
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PurchasePriceCents, &p.SellingPriceCents, &p.Quantity, &p.ProfitCents, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, purchase_price_cents, selling_price_cents, quantity, profit_cents, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.PurchasePriceCents, &p.SellingPriceCents, &p.Quantity, &p.ProfitCents, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PurchasePriceCents < 0 || product.SellingPriceCents < 0 || product.Quantity < 0 {
		return nil, store.ErrValidation
	}
	product.ProfitCents = product.Profit()

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, purchase_price_cents = $3, selling_price_cents = $4, quantity = $5, profit_cents = $6
		WHERE id = $1
	`, product.ID, product.Name, product.PurchasePriceCents, product.SellingPriceCents, product.Quantity, product.ProfitCents)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IncreaseStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET quantity = quantity + $2 WHERE id = $1
	`, id, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DecreaseStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return store.ErrValidation
	}

	// The quantity guard lives in the WHERE clause so check-then-decrement
	// is a single statement and can never drive stock negative.
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET quantity = quantity - $2 WHERE id = $1 AND quantity >= $2
	`, id, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := s.GetProduct(ctx, id); err != nil {
			return err
		}
		return store.ErrInsufficientStock
	}
	return nil
}

func (s *Store) CommitBill(ctx context.Context, draft domain.Bill) (*domain.Bill, error) {
	if len(draft.Items) == 0 || draft.DiscountCents < 0 {
		return nil, store.ErrValidation
	}
	for _, item := range draft.Items {
		if item.Quantity < 1 {
			return nil, store.ErrValidation
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, commitFailed(err)
	}
	defer func() { _ = tx.Rollback() }()

	bill := draft
	bill.ID = xid.New("bill")
	bill.CreatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bills (id, created_at, total_cents, discount_cents, final_amount_cents)
		VALUES ($1,$2,$3,$4,$5)
	`, bill.ID, bill.CreatedAt, bill.TotalCents, bill.DiscountCents, bill.FinalAmountCents)
	if err != nil {
		return nil, commitFailed(err)
	}

	profitCents := int64(0)
	items := make([]domain.BillItem, 0, len(draft.Items))
	for position, item := range draft.Items {
		var purchaseCents int64
		var available int
		err := tx.QueryRowContext(ctx, `
			SELECT purchase_price_cents, quantity
			FROM products
			WHERE id = $1
			FOR UPDATE
		`, item.ProductID).Scan(&purchaseCents, &available)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, commitFailed(err)
		}
		// Stock may have moved since the line was added; this re-check
		// inside the transaction is the one that counts.
		if available < item.Quantity {
			return nil, store.ErrInsufficientStock
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity - $2 WHERE id = $1
		`, item.ProductID, item.Quantity)
		if err != nil {
			return nil, commitFailed(err)
		}

		item.ID = xid.New("item")
		item.BillID = bill.ID
		item.SubtotalCents = int64(item.Quantity) * item.UnitPriceCents
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bill_items (id, bill_id, product_id, product_name, unit_price_cents, quantity, subtotal_cents, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, item.ID, item.BillID, item.ProductID, item.ProductName, item.UnitPriceCents, item.Quantity, item.SubtotalCents, position)
		if err != nil {
			return nil, commitFailed(err)
		}

		items = append(items, item)
		profitCents += int64(item.Quantity) * (item.UnitPriceCents - purchaseCents)
	}
	bill.Items = items

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, occurred_at, amount_cents, profit_cents)
		VALUES ($1,$2,$3,$4)
	`, xid.New("sale"), bill.CreatedAt, bill.FinalAmountCents, profitCents)
	if err != nil {
		return nil, commitFailed(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, commitFailed(err)
	}

	return &bill, nil
}

func commitFailed(err error) error {
	return fmt.Errorf("%w: %v", store.ErrCommitFailed, err)
}

func (s *Store) GetBill(ctx context.Context, id string) (*domain.Bill, error) {
	var bill domain.Bill
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, total_cents, discount_cents, final_amount_cents
		FROM bills
		WHERE id = $1
	`, id).Scan(&bill.ID, &bill.CreatedAt, &bill.TotalCents, &bill.DiscountCents, &bill.FinalAmountCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	bill.CreatedAt = bill.CreatedAt.UTC()

	items, err := s.billItems(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	bill.Items = items
	return &bill, nil
}

func (s *Store) billItems(ctx context.Context, billID string) ([]domain.BillItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bill_id, product_id, product_name, unit_price_cents, quantity, subtotal_cents
		FROM bill_items
		WHERE bill_id = $1
		ORDER BY position
	`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.BillItem, 0, 8)
	for rows.Next() {
		var item domain.BillItem
		if err := rows.Scan(&item.ID, &item.BillID, &item.ProductID, &item.ProductName, &item.UnitPriceCents, &item.Quantity, &item.SubtotalCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListRecentBills(ctx context.Context, limit int) ([]domain.Bill, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, total_cents, discount_cents, final_amount_cents
		FROM bills
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0, limit)
	for rows.Next() {
		var bill domain.Bill
		if err := rows.Scan(&bill.ID, &bill.CreatedAt, &bill.TotalCents, &bill.DiscountCents, &bill.FinalAmountCents); err != nil {
			return nil, err
		}
		bill.CreatedAt = bill.CreatedAt.UTC()
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bills {
		items, err := s.billItems(ctx, bills[i].ID)
		if err != nil {
			return nil, err
		}
		bills[i].Items = items
	}
	return bills, nil
}

func (s *Store) SalesInRange(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurred_at, amount_cents, profit_cents
		FROM sales
		WHERE occurred_at BETWEEN $1 AND $2
		ORDER BY occurred_at DESC, id DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.SalesEntry, 0, 64)
	for rows.Next() {
		var entry domain.SalesEntry
		if err := rows.Scan(&entry.ID, &entry.OccurredAt, &entry.AmountCents, &entry.ProfitCents); err != nil {
			return nil, err
		}
		entry.OccurredAt = entry.OccurredAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key string, value string) error {
	if strings.TrimSpace(key) == "" {
		return store.ErrValidation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value)
		VALUES ($1,$2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}

func (s *Store) ExportSnapshot(ctx context.Context) ([]byte, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	bills, err := s.ListRecentBills(ctx, 1_000_000)
	if err != nil {
		return nil, err
	}
	sales, err := s.SalesInRange(ctx, time.Unix(0, 0).UTC(), time.Now().UTC().Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	settings := make(map[string]string)
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return json.Marshal(domain.Snapshot{
		ExportedAt: time.Now().UTC(),
		Products:   products,
		Bills:      bills,
		Sales:      sales,
		Settings:   settings,
	})
}

func (s *Store) ImportSnapshot(ctx context.Context, data []byte) error {
	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"bill_items", "bills", "sales", "products", "app_settings"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}

	for _, p := range snapshot.Products {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, name, purchase_price_cents, selling_price_cents, quantity, profit_cents, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, p.ID, p.Name, p.PurchasePriceCents, p.SellingPriceCents, p.Quantity, p.ProfitCents, p.CreatedAt)
		if err != nil {
			return err
		}
	}
	for _, bill := range snapshot.Bills {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bills (id, created_at, total_cents, discount_cents, final_amount_cents)
			VALUES ($1,$2,$3,$4,$5)
		`, bill.ID, bill.CreatedAt, bill.TotalCents, bill.DiscountCents, bill.FinalAmountCents)
		if err != nil {
			return err
		}
		for position, item := range bill.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO bill_items (id, bill_id, product_id, product_name, unit_price_cents, quantity, subtotal_cents, position)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`, item.ID, bill.ID, item.ProductID, item.ProductName, item.UnitPriceCents, item.Quantity, item.SubtotalCents, position)
			if err != nil {
				return err
			}
		}
	}
	for _, entry := range snapshot.Sales {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sales (id, occurred_at, amount_cents, profit_cents)
			VALUES ($1,$2,$3,$4)
		`, entry.ID, entry.OccurredAt, entry.AmountCents, entry.ProfitCents)
		if err != nil {
			return err
		}
	}
	for k, v := range snapshot.Settings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO app_settings (key, value) VALUES ($1,$2)
		`, k, v)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
