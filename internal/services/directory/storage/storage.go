// Package storage defines the persistence contract for the customer
// and product directory.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientStock indicates an inventory decrement would go
	// negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicateEmail indicates a customer with that email already exists.
	ErrDuplicateEmail = errors.New("customer email already exists")
)

// Product is one catalog entry.
type Product struct {
	SKU         string
	Name        string
	Description string
	UnitPrice   float64
	VATRate     float64
	Available   int
}

// Customer is one directory account.
type Customer struct {
	ID              string
	Name            string
	Email           string
	Address         string
	CreditLimit     float64
	OpenReceivables float64
}

// NewCustomer carries the fields for a customer record to be created.
// The store assigns the ID.
type NewCustomer struct {
	Name        string
	Email       string
	Address     string
	CreditLimit float64
}

// Store persists directory records.
type Store interface {
	PutProduct(ctx context.Context, product Product) error
	GetProduct(ctx context.Context, sku string) (Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]Product, error)
	DecrementInventory(ctx context.Context, sku string, quantity int) error

	CreateCustomer(ctx context.Context, draft NewCustomer) (Customer, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (Customer, error)
	IncreaseOpenReceivables(ctx context.Context, id string, amount float64) error

	Close() error
}
