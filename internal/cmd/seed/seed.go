// Package seed loads demo catalog, customer, and inbox fixtures into
// the local SQLite stores.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	entrypoint "github.com/paperco/orderdesk/internal/platform/cmd"
	directorystorage "github.com/paperco/orderdesk/internal/services/directory/storage"
	directorysqlite "github.com/paperco/orderdesk/internal/services/directory/storage/sqlite"
	inboxstorage "github.com/paperco/orderdesk/internal/services/inbox/storage"
	inboxsqlite "github.com/paperco/orderdesk/internal/services/inbox/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	InboxDBPath     string `env:"ORDERDESK_SEED_INBOX_DB_PATH" envDefault:"data/inbox.db"`
	DirectoryDBPath string `env:"ORDERDESK_SEED_DIRECTORY_DB_PATH" envDefault:"data/directory.db"`
	SkipMessages    bool   `env:"ORDERDESK_SEED_SKIP_MESSAGES" envDefault:"false"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.InboxDBPath, "inbox-db-path", cfg.InboxDBPath, "The inbox SQLite database path")
	fs.StringVar(&cfg.DirectoryDBPath, "directory-db-path", cfg.DirectoryDBPath, "The directory SQLite database path")
	fs.BoolVar(&cfg.SkipMessages, "skip-messages", cfg.SkipMessages, "Seed only the directory, not the inbox")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	for _, dbPath := range []string{cfg.InboxDBPath, cfg.DirectoryDBPath} {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
	}

	directoryStore, err := directorysqlite.Open(cfg.DirectoryDBPath)
	if err != nil {
		return fmt.Errorf("open directory sqlite store: %w", err)
	}
	defer directoryStore.Close()

	products := sampleProducts()
	for _, product := range products {
		if err := directoryStore.PutProduct(ctx, product); err != nil {
			return fmt.Errorf("seed product %s: %w", product.SKU, err)
		}
	}
	fmt.Fprintf(out, "seeded %d products\n", len(products))

	created := 0
	for _, draft := range sampleCustomers() {
		if _, err := directoryStore.CreateCustomer(ctx, draft); err != nil {
			// Re-running the seed against an existing directory is
			// fine; existing customers are kept as they are.
			if errors.Is(err, directorystorage.ErrDuplicateEmail) {
				continue
			}
			return fmt.Errorf("seed customer %s: %w", draft.Email, err)
		}
		created++
	}
	fmt.Fprintf(out, "seeded %d customers\n", created)

	if cfg.SkipMessages {
		return nil
	}

	inboxStore, err := inboxsqlite.Open(cfg.InboxDBPath)
	if err != nil {
		return fmt.Errorf("open inbox sqlite store: %w", err)
	}
	defer inboxStore.Close()

	messages := sampleMessages()
	for _, msg := range messages {
		if err := inboxStore.PutMessage(ctx, msg); err != nil {
			return fmt.Errorf("seed message %s: %w", msg.ID, err)
		}
	}
	fmt.Fprintf(out, "seeded %d messages\n", len(messages))
	return nil
}

func sampleProducts() []directorystorage.Product {
	return []directorystorage.Product{
		{SKU: "SKU-100", Name: "Wood screws 4x40", Description: "Countersunk chipboard screws, box of 500", UnitPrice: 4.5, VATRate: 0.19, Available: 200},
		{SKU: "SKU-101", Name: "Wood screws 5x60", Description: "Countersunk chipboard screws, box of 250", UnitPrice: 5.2, VATRate: 0.19, Available: 120},
		{SKU: "SKU-200", Name: "Sanding discs 125mm", Description: "Mixed grit pack for random orbital sanders", UnitPrice: 1.2, VATRate: 0.07, Available: 50},
		{SKU: "SKU-300", Name: "Cordless drill 18V", Description: "Brushless drill driver with two batteries", UnitPrice: 189.0, VATRate: 0.19, Available: 12},
	}
}

func sampleCustomers() []directorystorage.NewCustomer {
	return []directorystorage.NewCustomer{
		{Name: "Baumarkt Nord GmbH", Email: "einkauf@baumarkt-nord.example", Address: "Hafenstr. 12, 20457 Hamburg", CreditLimit: 10000},
		{Name: "Schreinerei Weber", Email: "info@schreinerei-weber.example", Address: "Lindenweg 3, 79098 Freiburg", CreditLimit: 5000},
	}
}

func sampleMessages() []inboxstorage.Message {
	received := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)
	return []inboxstorage.Message{
		{
			ID:         "msg-demo-1",
			Subject:    "Bestellung Schrauben",
			Sender:     "einkauf@baumarkt-nord.example",
			Body:       "Hello, please send us 100 boxes of wood screws 4x40 and 10 packs of sanding discs. Regards, Baumarkt Nord",
			ReceivedAt: received,
		},
		{
			ID:         "msg-demo-2",
			Subject:    "Newsletter",
			Sender:     "marketing@tools-weekly.example",
			Body:       "Check out this week's best deals on power tools!",
			ReceivedAt: received.Add(5 * time.Minute),
		},
	}
}
