package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	directorystorage "github.com/paperco/orderdesk/internal/services/directory/storage"
	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

type fakeCatalog struct {
	products  map[string][]directorystorage.Product
	customers map[string]directorystorage.Customer
	searchErr error
}

func (f *fakeCatalog) SearchProducts(_ context.Context, query string, _ int) ([]directorystorage.Product, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.products[query], nil
}

func (f *fakeCatalog) GetCustomerByEmail(_ context.Context, email string) (directorystorage.Customer, error) {
	c, ok := f.customers[strings.ToLower(email)]
	if !ok {
		return directorystorage.Customer{}, fmt.Errorf("customer %s: %w", email, directorystorage.ErrNotFound)
	}
	return c, nil
}

func testParsedOrder() domain.ParsedOrder {
	return domain.ParsedOrder{
		MessageID: "msg-1",
		Buyer: domain.Buyer{
			Name:           "Baumarkt Nord GmbH",
			Email:          "orders@baumarkt-nord.example",
			BillingAddress: "Hafenstr. 12, Hamburg",
		},
		Lines: []domain.LineRequest{
			{ProductText: "a4 copy paper", Quantity: 100},
		},
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[string][]directorystorage.Product{
			"a4 copy paper": {
				{SKU: "SKU-100", Name: "Copy paper A4", Description: "white 80g", UnitPrice: 4.5, VATRate: 0.19, Available: 200},
				{SKU: "SKU-300", Name: "Copy paper A3", Description: "recycled", UnitPrice: 6.9, VATRate: 0.07, Available: 80},
			},
		},
		customers: map[string]directorystorage.Customer{
			"orders@baumarkt-nord.example": {
				ID: "C-1001", Name: "Baumarkt Nord GmbH", Email: "orders@baumarkt-nord.example",
				Address: "Hafenstr. 12, Hamburg", CreditLimit: 10000, OpenReceivables: 1000,
			},
		},
	}
}

func TestEnricherEnrich(t *testing.T) {
	t.Parallel()

	t.Run("resolves lines and customer", func(t *testing.T) {
		t.Parallel()
		enricher := NewEnricher(testCatalog())
		evidence := domain.NewEvidence()
		got, err := enricher.Enrich(context.Background(), testParsedOrder(), evidence)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.MessageID != "msg-1" {
			t.Errorf("unexpected message id %q", got.MessageID)
		}
		if len(got.Lines) != 1 || got.Lines[0].SKU != "SKU-100" {
			t.Fatalf("unexpected lines: %+v", got.Lines)
		}
		if got.Lines[0].Requested != 100 || got.Lines[0].UnitPrice != 4.5 {
			t.Errorf("unexpected line: %+v", got.Lines[0])
		}
		if got.Customer.ID != "C-1001" || got.Customer.CreditLimit != 10000 {
			t.Errorf("unexpected customer: %+v", got.Customer)
		}
	})

	t.Run("records every lookup as evidence", func(t *testing.T) {
		t.Parallel()
		enricher := NewEnricher(testCatalog())
		evidence := domain.NewEvidence()
		if _, err := enricher.Enrich(context.Background(), testParsedOrder(), evidence); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		queries := evidence.Queries()
		if len(queries) != 2 || queries[0] != "a4 copy paper" {
			t.Errorf("unexpected queries: %v", queries)
		}
		snippets := evidence.Snippets()
		// Two catalog candidates plus the customer record.
		if len(snippets) != 3 {
			t.Fatalf("expected 3 snippets, got %v", snippets)
		}
		if !strings.Contains(snippets[0], "SKU-100") || !strings.Contains(snippets[2], "C-1001") {
			t.Errorf("unexpected snippets: %v", snippets)
		}
	})

	t.Run("unknown buyer becomes placeholder with starter credit", func(t *testing.T) {
		t.Parallel()
		catalog := testCatalog()
		catalog.customers = nil
		enricher := NewEnricher(catalog)
		got, err := enricher.Enrich(context.Background(), testParsedOrder(), domain.NewEvidence())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Customer.ID != domain.PlaceholderCustomerID {
			t.Errorf("expected placeholder id, got %q", got.Customer.ID)
		}
		if got.Customer.CreditLimit != domain.StarterCreditLimit {
			t.Errorf("expected starter credit limit, got %.2f", got.Customer.CreditLimit)
		}
		if got.Customer.Address != "Hafenstr. 12, Hamburg" {
			t.Errorf("expected billing address carried, got %q", got.Customer.Address)
		}
	})

	t.Run("unmatched product fails the enrichment", func(t *testing.T) {
		t.Parallel()
		order := testParsedOrder()
		order.Lines = append(order.Lines, domain.LineRequest{ProductText: "submarine", Quantity: 1})
		enricher := NewEnricher(testCatalog())
		_, err := enricher.Enrich(context.Background(), order, domain.NewEvidence())
		if !errors.Is(err, ErrNoCatalogMatch) {
			t.Fatalf("expected ErrNoCatalogMatch, got %v", err)
		}
		if !strings.Contains(err.Error(), "submarine") {
			t.Errorf("expected error to name the product text, got %v", err)
		}
	})

	t.Run("search failure is wrapped", func(t *testing.T) {
		t.Parallel()
		catalog := testCatalog()
		catalog.searchErr = errors.New("db locked")
		enricher := NewEnricher(catalog)
		if _, err := enricher.Enrich(context.Background(), testParsedOrder(), domain.NewEvidence()); err == nil {
			t.Fatal("expected error")
		}
	})
}
