package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	directorystorage "github.com/paperco/orderdesk/internal/services/directory/storage"
	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

// ErrNoCatalogMatch indicates a line's product text matched nothing in
// the catalog.
var ErrNoCatalogMatch = errors.New("no catalog match")

// searchLimit bounds how many catalog candidates one line pulls into
// the evidence buffer.
const searchLimit = 3

// Catalog is the directory surface the enricher resolves against.
type Catalog interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]directorystorage.Product, error)
	GetCustomerByEmail(ctx context.Context, email string) (directorystorage.Customer, error)
}

// Enricher resolves parsed orders against the directory. Every lookup
// it issues lands in the run's evidence buffer, so the grounding gate
// judges the enriched order against exactly what was retrieved.
type Enricher struct {
	catalog Catalog
}

// NewEnricher builds a directory-backed enricher.
func NewEnricher(catalog Catalog) *Enricher {
	return &Enricher{catalog: catalog}
}

// Enrich resolves each line against the catalog and the buyer against
// the customer directory. An unknown buyer yields a placeholder
// customer with the starter credit limit; fulfillment creates the real
// record. An unmatched product fails the enrichment.
func (e *Enricher) Enrich(ctx context.Context, order domain.ParsedOrder, evidence *domain.Evidence) (domain.EnrichedOrder, error) {
	if e == nil || e.catalog == nil {
		return domain.EnrichedOrder{}, errors.New("catalog is not configured")
	}

	lines := make([]domain.ResolvedLine, 0, len(order.Lines))
	for _, request := range order.Lines {
		evidence.AddQuery(request.ProductText)
		matches, err := e.catalog.SearchProducts(ctx, request.ProductText, searchLimit)
		if err != nil {
			return domain.EnrichedOrder{}, fmt.Errorf("search catalog for %q: %w", request.ProductText, err)
		}
		if len(matches) == 0 {
			return domain.EnrichedOrder{}, fmt.Errorf("resolve %q: %w", request.ProductText, ErrNoCatalogMatch)
		}
		for _, match := range matches {
			evidence.AddSnippet(formatProductSnippet(match))
		}
		top := matches[0]
		lines = append(lines, domain.ResolvedLine{
			SKU:       top.SKU,
			Name:      top.Name,
			UnitPrice: top.UnitPrice,
			VATRate:   top.VATRate,
			Available: top.Available,
			Requested: request.Quantity,
		})
	}

	customer, err := e.resolveCustomer(ctx, order.Buyer, evidence)
	if err != nil {
		return domain.EnrichedOrder{}, err
	}

	return domain.EnrichedOrder{
		MessageID: order.MessageID,
		Customer:  customer,
		Lines:     lines,
	}, nil
}

func (e *Enricher) resolveCustomer(ctx context.Context, buyer domain.Buyer, evidence *domain.Evidence) (domain.Customer, error) {
	email := strings.TrimSpace(buyer.Email)
	if email != "" {
		evidence.AddQuery("customer " + email)
		record, err := e.catalog.GetCustomerByEmail(ctx, email)
		switch {
		case err == nil:
			evidence.AddSnippet(formatCustomerSnippet(record))
			return domain.Customer{
				ID:              record.ID,
				Name:            record.Name,
				Email:           record.Email,
				Address:         record.Address,
				CreditLimit:     record.CreditLimit,
				OpenReceivables: record.OpenReceivables,
			}, nil
		case !errors.Is(err, directorystorage.ErrNotFound):
			return domain.Customer{}, fmt.Errorf("lookup customer %s: %w", email, err)
		}
	}

	// Unknown buyer: carry a placeholder so the decision stage can judge
	// credit against the starter limit the record will be created with.
	address := strings.TrimSpace(buyer.BillingAddress)
	if address == "" {
		address = strings.TrimSpace(buyer.ShippingAddress)
	}
	return domain.Customer{
		ID:          domain.PlaceholderCustomerID,
		Name:        strings.TrimSpace(buyer.Name),
		Email:       email,
		Address:     address,
		CreditLimit: domain.StarterCreditLimit,
	}, nil
}

func formatProductSnippet(p directorystorage.Product) string {
	return fmt.Sprintf("%s %s (%s) unit %.2f vat %.2f available %d",
		p.SKU, p.Name, p.Description, p.UnitPrice, p.VATRate, p.Available)
}

func formatCustomerSnippet(c directorystorage.Customer) string {
	return fmt.Sprintf("%s %s <%s> credit limit %.2f open receivables %.2f",
		c.ID, c.Name, c.Email, c.CreditLimit, c.OpenReceivables)
}
