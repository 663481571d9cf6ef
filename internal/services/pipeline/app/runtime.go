// Package app wires the pipeline runtime: storage, collaborator
// adapters, the routing graph, and the inbox drain loop.
package app

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperco/orderdesk/internal/platform/timeouts"
	directorystorage "github.com/paperco/orderdesk/internal/services/directory/storage"
	directorysqlite "github.com/paperco/orderdesk/internal/services/directory/storage/sqlite"
	inboxsqlite "github.com/paperco/orderdesk/internal/services/inbox/storage/sqlite"
	"github.com/paperco/orderdesk/internal/services/invoice"
	"github.com/paperco/orderdesk/internal/services/mailer"
	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
	"github.com/paperco/orderdesk/internal/services/pipeline/extract"
	"github.com/paperco/orderdesk/internal/services/pipeline/policy"
	pipelinesqlite "github.com/paperco/orderdesk/internal/services/pipeline/storage/sqlite"
	"github.com/paperco/orderdesk/internal/services/review"
	"github.com/paperco/orderdesk/internal/services/safety"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls pipeline startup, dependencies, and loop
// behavior.
type RuntimeConfig struct {
	Port            int
	InboxDBPath     string
	DirectoryDBPath string
	RunsDBPath      string
	PolicyPath      string
	InvoiceDir      string

	ModelURL    string
	ModelAPIKey string
	Model       string

	ReviewURL     string
	ReviewToken   string
	ReviewChannel string

	MailURL   string
	MailToken string

	SafetyURL   string
	SafetyToken string

	GrantIssuer   string
	GrantAudience string
	GrantKey      string
	GrantTTL      time.Duration

	PollInterval time.Duration
	BatchSize    int
	Drain        bool
}

const (
	defaultPipelinePort = 8091
	defaultInboxDB      = "data/inbox.db"
	defaultDirectoryDB  = "data/directory.db"
	defaultRunsDB       = "data/pipeline.db"
	defaultInvoiceDir   = "data/invoices"
	defaultBatchSize    = 16
)

// Run starts the pipeline runtime dependencies and the inbox drain
// loop. In drain mode it processes the backlog once and returns; in
// serve mode it polls until the context is canceled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPipelinePort
	}
	if strings.TrimSpace(cfg.InboxDBPath) == "" {
		cfg.InboxDBPath = defaultInboxDB
	}
	if strings.TrimSpace(cfg.DirectoryDBPath) == "" {
		cfg.DirectoryDBPath = defaultDirectoryDB
	}
	if strings.TrimSpace(cfg.RunsDBPath) == "" {
		cfg.RunsDBPath = defaultRunsDB
	}
	if strings.TrimSpace(cfg.InvoiceDir) == "" {
		cfg.InvoiceDir = defaultInvoiceDir
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = timeouts.InboxPoll
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	for _, dbPath := range []string{cfg.InboxDBPath, cfg.DirectoryDBPath, cfg.RunsDBPath} {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
	}

	inboxStore, err := inboxsqlite.Open(cfg.InboxDBPath)
	if err != nil {
		return fmt.Errorf("open inbox sqlite store: %w", err)
	}
	defer func() {
		if closeErr := inboxStore.Close(); closeErr != nil {
			log.Printf("close inbox sqlite store: %v", closeErr)
		}
	}()

	directoryStore, err := directorysqlite.Open(cfg.DirectoryDBPath)
	if err != nil {
		return fmt.Errorf("open directory sqlite store: %w", err)
	}
	defer func() {
		if closeErr := directoryStore.Close(); closeErr != nil {
			log.Printf("close directory sqlite store: %v", closeErr)
		}
	}()

	runStore, err := pipelinesqlite.Open(cfg.RunsDBPath)
	if err != nil {
		return fmt.Errorf("open pipeline sqlite store: %w", err)
	}
	defer func() {
		if closeErr := runStore.Close(); closeErr != nil {
			log.Printf("close pipeline sqlite store: %v", closeErr)
		}
	}()

	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("load pipeline policy: %w", err)
	}

	graph, err := buildGraph(cfg, directoryStore, pol)
	if err != nil {
		return err
	}
	loop := NewLoop(inboxStore, graph, cfg.BatchSize)
	loop.SetAudit(runStore)

	if cfg.Drain {
		processed, err := loop.DrainOnce(ctx)
		log.Printf("inbox drain processed=%d", processed)
		return err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on pipeline port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("pipeline.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("pipeline server listening at %v", listener.Addr())
	return loop.Run(ctx, cfg.PollInterval)
}

func buildGraph(cfg RuntimeConfig, directoryStore *directorysqlite.Store, pol policy.Policy) (*domain.Graph, error) {
	modelConfig := extract.Config{
		ResponsesURL: cfg.ModelURL,
		APIKey:       cfg.ModelAPIKey,
		Model:        cfg.Model,
	}

	reviewChannel := review.New(review.Config{
		BaseURL:   cfg.ReviewURL,
		Token:     cfg.ReviewToken,
		ChannelID: cfg.ReviewChannel,
	})
	outbound := mailer.New(mailer.Config{
		BaseURL: cfg.MailURL,
		Token:   cfg.MailToken,
	})

	var grants *invoice.GrantIssuer
	if strings.TrimSpace(cfg.GrantKey) != "" {
		raw, err := invoice.DecodeKey(cfg.GrantKey)
		if err != nil {
			return nil, fmt.Errorf("decode grant key: %w", err)
		}
		if len(raw) == ed25519.SeedSize {
			raw = ed25519.NewKeyFromSeed(raw)
		}
		grants, err = invoice.NewGrantIssuer(cfg.GrantIssuer, cfg.GrantAudience, raw, cfg.GrantTTL, nil)
		if err != nil {
			return nil, fmt.Errorf("configure grant issuer: %w", err)
		}
	}
	invoices, err := invoice.NewRenderer(cfg.InvoiceDir, grants, nil)
	if err != nil {
		return nil, fmt.Errorf("configure invoice renderer: %w", err)
	}

	records := &recordStoreAdapter{store: directoryStore}
	graph := domain.NewPipelineGraph(domain.PipelineDeps{
		Classifier:  extract.NewClassifier(modelConfig),
		Parser:      extract.NewParser(modelConfig),
		Enricher:    extract.NewEnricher(directoryStore),
		Grounding:   domain.NewGroundingGate(extract.NewEvaluator(modelConfig)),
		Policy:      pol.DecisionPolicy(),
		Approval:    domain.NewApprovalGate(reviewChannel, pol.ApprovalPolicy(), nil, nil),
		Fulfillment: domain.NewFulfillmentStage(records, invoices, outbound, nil, nil),
		Rejection:   domain.NewRejectionStage(outbound),
		Screen: safety.New(safety.Config{
			BaseURL: cfg.SafetyURL,
			Token:   cfg.SafetyToken,
		}),
	})
	return graph, nil
}

// recordStoreAdapter maps the fulfillment-side record boundary onto the
// directory store.
type recordStoreAdapter struct {
	store *directorysqlite.Store
}

func (a *recordStoreAdapter) CreateCustomer(ctx context.Context, draft domain.CustomerDraft) (domain.Customer, error) {
	created, err := a.store.CreateCustomer(ctx, directorystorage.NewCustomer{
		Name:        draft.Name,
		Email:       draft.Email,
		Address:     draft.Address,
		CreditLimit: draft.CreditLimit,
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return domain.Customer{
		ID:              created.ID,
		Name:            created.Name,
		Email:           created.Email,
		Address:         created.Address,
		CreditLimit:     created.CreditLimit,
		OpenReceivables: created.OpenReceivables,
	}, nil
}

func (a *recordStoreAdapter) DecrementInventory(ctx context.Context, sku string, quantity int) error {
	return a.store.DecrementInventory(ctx, sku, quantity)
}

func (a *recordStoreAdapter) IncreaseOpenReceivables(ctx context.Context, customerID string, amount float64) error {
	return a.store.IncreaseOpenReceivables(ctx, customerID, amount)
}
