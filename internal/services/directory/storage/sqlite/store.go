// Package sqlite implements directory persistence over SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/paperco/orderdesk/internal/platform/storage/sqlitemigrate"
	"github.com/paperco/orderdesk/internal/services/directory/domain"
	"github.com/paperco/orderdesk/internal/services/directory/storage"
	"github.com/paperco/orderdesk/internal/services/directory/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// firstCustomerSeq is the sequence number behind the first assigned
// customer id, C-5001.
const firstCustomerSeq = 5001

// Store implements directory persistence over SQLite.
//
// A single file backs both the catalog and the customer ledger so
// fulfillment mutations share one visibility boundary.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Open opens a directory SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB, clock: time.Now}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// PutProduct inserts or replaces a catalog entry.
func (s *Store) PutProduct(ctx context.Context, product storage.Product) error {
	if strings.TrimSpace(product.SKU) == "" {
		return fmt.Errorf("product sku is required")
	}
	now := toMillis(s.clock())
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO products (sku, name, description, unit_price, vat_rate, available, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(sku) DO UPDATE SET
    name = excluded.name,
    description = excluded.description,
    unit_price = excluded.unit_price,
    vat_rate = excluded.vat_rate,
    available = excluded.available,
    updated_at = excluded.updated_at;
`, product.SKU, product.Name, product.Description, product.UnitPrice, product.VATRate, product.Available, now, now)
	if err != nil {
		return fmt.Errorf("put product %s: %w", product.SKU, err)
	}
	return nil
}

// GetProduct fetches one catalog entry by SKU.
func (s *Store) GetProduct(ctx context.Context, sku string) (storage.Product, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT sku, name, description, unit_price, vat_rate, available FROM products WHERE sku = ?;
`, sku)
	var p storage.Product
	err := row.Scan(&p.SKU, &p.Name, &p.Description, &p.UnitPrice, &p.VATRate, &p.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Product{}, fmt.Errorf("product %s: %w", sku, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Product{}, fmt.Errorf("get product %s: %w", sku, err)
	}
	return p, nil
}

// SearchProducts ranks the catalog against a free-text query by token
// overlap and returns up to limit matches, best first. The catalog is
// small enough to rank in memory.
func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]storage.Product, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT sku, name, description, unit_price, vat_rate, available FROM products ORDER BY sku;
`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []storage.Product
	var docs []string
	for rows.Next() {
		var p storage.Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Description, &p.UnitPrice, &p.VATRate, &p.Available); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
		docs = append(docs, p.SKU+" "+p.Name+" "+p.Description)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	ranked := domain.Rank(query, docs, limit)
	matches := make([]storage.Product, 0, len(ranked))
	for _, r := range ranked {
		matches = append(matches, products[r.Index])
	}
	return matches, nil
}

// DecrementInventory reduces a product's available quantity, refusing
// to go negative.
func (s *Store) DecrementInventory(ctx context.Context, sku string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", quantity)
	}
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE products SET available = available - ?, updated_at = ?
WHERE sku = ? AND available >= ?;
`, quantity, toMillis(s.clock()), sku, quantity)
	if err != nil {
		return fmt.Errorf("decrement inventory %s: %w", sku, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement inventory %s: %w", sku, err)
	}
	if affected == 0 {
		if _, err := s.GetProduct(ctx, sku); err != nil {
			return err
		}
		return fmt.Errorf("decrement %s by %d: %w", sku, quantity, storage.ErrInsufficientStock)
	}
	return nil
}

// CreateCustomer assigns the next id in the C-5001 sequence and
// persists the record atomically.
func (s *Store) CreateCustomer(ctx context.Context, draft storage.NewCustomer) (storage.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(draft.Email))
	if email == "" {
		return storage.Customer{}, fmt.Errorf("customer email is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Customer{}, fmt.Errorf("begin create customer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(seq), ?) + 1 FROM customers;
`, firstCustomerSeq-1).Scan(&seq); err != nil {
		return storage.Customer{}, fmt.Errorf("next customer seq: %w", err)
	}

	customer := storage.Customer{
		ID:          fmt.Sprintf("C-%d", seq),
		Name:        strings.TrimSpace(draft.Name),
		Email:       email,
		Address:     strings.TrimSpace(draft.Address),
		CreditLimit: draft.CreditLimit,
	}
	now := toMillis(s.clock())
	if _, err := tx.ExecContext(ctx, `
INSERT INTO customers (id, seq, name, email, address, credit_limit, open_receivables, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?);
`, customer.ID, seq, customer.Name, customer.Email, customer.Address, customer.CreditLimit, now, now); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") && strings.Contains(err.Error(), "email") {
			return storage.Customer{}, fmt.Errorf("create customer %s: %w", email, storage.ErrDuplicateEmail)
		}
		return storage.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return storage.Customer{}, fmt.Errorf("commit create customer: %w", err)
	}
	return customer, nil
}

// GetCustomer fetches one customer by id.
func (s *Store) GetCustomer(ctx context.Context, id string) (storage.Customer, error) {
	return s.getCustomer(ctx, "id = ?", id)
}

// GetCustomerByEmail fetches one customer by email, case-insensitive.
func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (storage.Customer, error) {
	return s.getCustomer(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) getCustomer(ctx context.Context, where string, arg any) (storage.Customer, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, email, address, credit_limit, open_receivables FROM customers WHERE `+where+`;
`, arg)
	var c storage.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.CreditLimit, &c.OpenReceivables)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Customer{}, fmt.Errorf("customer %v: %w", arg, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Customer{}, fmt.Errorf("get customer %v: %w", arg, err)
	}
	return c, nil
}

// IncreaseOpenReceivables raises a customer's credit exposure.
func (s *Store) IncreaseOpenReceivables(ctx context.Context, id string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("receivables amount must not be negative, got %.2f", amount)
	}
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE customers SET open_receivables = open_receivables + ?, updated_at = ? WHERE id = ?;
`, amount, toMillis(s.clock()), id)
	if err != nil {
		return fmt.Errorf("increase receivables %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increase receivables %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("customer %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
