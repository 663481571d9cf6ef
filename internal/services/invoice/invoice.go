// Package invoice renders invoice documents for fulfilled orders and
// issues signed download grants for them.
package invoice

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.Number}}</title></head>
<body>
<h1>Invoice {{.Number}}</h1>
<p>Date: {{.Date}}</p>
<h2>Bill to</h2>
<p>{{.Customer.Name}}<br>{{.Customer.Address}}<br>{{.Customer.Email}}</p>
<table border="1" cellspacing="0" cellpadding="4">
<tr><th>SKU</th><th>Item</th><th>Qty</th><th>Unit price</th><th>Subtotal</th></tr>
{{range .Lines}}<tr><td>{{.SKU}}</td><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.Subtotal}}</td></tr>
{{end}}</table>
<p>Subtotal: {{.Subtotal}}<br>
VAT: {{.Tax}}<br>
Shipping: {{.Shipping}}<br>
<strong>Total: {{.GrandTotal}}</strong></p>
</body>
</html>
`

// Renderer writes invoice documents to a local directory. When a grant
// issuer is configured, each reference carries a signed download grant.
type Renderer struct {
	dir    string
	grants *GrantIssuer
	tmpl   *template.Template
	clock  func() time.Time
}

// NewRenderer builds an invoice renderer writing into dir. The grant
// issuer is optional.
func NewRenderer(dir string, grants *GrantIssuer, clock func() time.Time) (*Renderer, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("invoice directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create invoice directory: %w", err)
	}
	tmpl, err := template.New("invoice").Parse(invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	if clock == nil {
		clock = time.Now
	}
	return &Renderer{dir: dir, grants: grants, tmpl: tmpl, clock: clock}, nil
}

type invoiceLine struct {
	SKU       string
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

type invoiceData struct {
	Number     string
	Date       string
	Customer   domain.Customer
	Lines      []invoiceLine
	Subtotal   string
	Tax        string
	Shipping   string
	GrandTotal string
}

// RenderInvoice writes the invoice document and returns its reference.
func (r *Renderer) RenderInvoice(_ context.Context, order domain.EnrichedOrder, totals domain.OrderTotals) (domain.InvoiceRef, error) {
	if r == nil {
		return domain.InvoiceRef{}, fmt.Errorf("renderer is not configured")
	}

	now := r.clock().UTC()
	number := invoiceNumber(now, order.MessageID)
	data := invoiceData{
		Number:     number,
		Date:       now.Format("2006-01-02"),
		Customer:   order.Customer,
		Subtotal:   domain.FormatEUR(totals.Subtotal),
		Tax:        domain.FormatEUR(totals.Tax),
		Shipping:   domain.FormatEUR(totals.Shipping),
		GrandTotal: domain.FormatEUR(totals.GrandTotal),
	}
	for i, line := range order.Lines {
		data.Lines = append(data.Lines, invoiceLine{
			SKU:       line.SKU,
			Name:      line.Name,
			Quantity:  line.Requested,
			UnitPrice: domain.FormatEUR(line.UnitPrice),
			Subtotal:  domain.FormatEUR(totals.Lines[i].Subtotal),
		})
	}

	var rendered strings.Builder
	if err := r.tmpl.Execute(&rendered, data); err != nil {
		return domain.InvoiceRef{}, fmt.Errorf("render invoice %s: %w", number, err)
	}
	location := filepath.Join(r.dir, number+".html")
	if err := os.WriteFile(location, []byte(rendered.String()), 0o644); err != nil {
		return domain.InvoiceRef{}, fmt.Errorf("write invoice %s: %w", number, err)
	}

	ref := domain.InvoiceRef{Number: number, Location: location}
	if r.grants != nil {
		grant, err := r.grants.Issue(number)
		if err != nil {
			return domain.InvoiceRef{}, fmt.Errorf("issue download grant for %s: %w", number, err)
		}
		ref.Grant = grant
	}
	return ref, nil
}

// invoiceNumber derives a stable document number from the render date
// and the message the order arrived on.
func invoiceNumber(now time.Time, messageID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, messageID)
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), strings.Trim(sanitized, "-"))
}
