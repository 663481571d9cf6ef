// Package pipeline parses pipeline command flags and launches the
// pipeline runtime.
package pipeline

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/paperco/orderdesk/internal/platform/cmd"
	pipelineserver "github.com/paperco/orderdesk/internal/services/pipeline/app"
)

// Config holds pipeline command configuration.
type Config struct {
	Port            int    `env:"ORDERDESK_PIPELINE_PORT" envDefault:"8091"`
	InboxDBPath     string `env:"ORDERDESK_PIPELINE_INBOX_DB_PATH" envDefault:"data/inbox.db"`
	DirectoryDBPath string `env:"ORDERDESK_PIPELINE_DIRECTORY_DB_PATH" envDefault:"data/directory.db"`
	RunsDBPath      string `env:"ORDERDESK_PIPELINE_RUNS_DB_PATH" envDefault:"data/pipeline.db"`
	PolicyPath      string `env:"ORDERDESK_PIPELINE_POLICY_PATH"`
	InvoiceDir      string `env:"ORDERDESK_PIPELINE_INVOICE_DIR" envDefault:"data/invoices"`

	ModelURL    string `env:"ORDERDESK_PIPELINE_MODEL_URL"`
	ModelAPIKey string `env:"ORDERDESK_PIPELINE_MODEL_API_KEY"`
	Model       string `env:"ORDERDESK_PIPELINE_MODEL" envDefault:"gpt-4o-mini"`

	ReviewURL     string `env:"ORDERDESK_PIPELINE_REVIEW_URL"`
	ReviewToken   string `env:"ORDERDESK_PIPELINE_REVIEW_TOKEN"`
	ReviewChannel string `env:"ORDERDESK_PIPELINE_REVIEW_CHANNEL"`

	MailURL   string `env:"ORDERDESK_PIPELINE_MAIL_URL"`
	MailToken string `env:"ORDERDESK_PIPELINE_MAIL_TOKEN"`

	SafetyURL   string `env:"ORDERDESK_PIPELINE_SAFETY_URL"`
	SafetyToken string `env:"ORDERDESK_PIPELINE_SAFETY_TOKEN"`

	GrantIssuer   string        `env:"ORDERDESK_PIPELINE_GRANT_ISSUER" envDefault:"orderdesk"`
	GrantAudience string        `env:"ORDERDESK_PIPELINE_GRANT_AUDIENCE" envDefault:"invoice-download"`
	GrantKey      string        `env:"ORDERDESK_PIPELINE_GRANT_KEY"`
	GrantTTL      time.Duration `env:"ORDERDESK_PIPELINE_GRANT_TTL" envDefault:"72h"`

	PollInterval time.Duration `env:"ORDERDESK_PIPELINE_POLL_INTERVAL" envDefault:"5s"`
	BatchSize    int           `env:"ORDERDESK_PIPELINE_BATCH_SIZE" envDefault:"16"`
	Drain        bool          `env:"ORDERDESK_PIPELINE_DRAIN" envDefault:"false"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The pipeline health gRPC server port")
	fs.StringVar(&cfg.InboxDBPath, "inbox-db-path", cfg.InboxDBPath, "The inbox SQLite database path")
	fs.StringVar(&cfg.DirectoryDBPath, "directory-db-path", cfg.DirectoryDBPath, "The directory SQLite database path")
	fs.StringVar(&cfg.RunsDBPath, "runs-db-path", cfg.RunsDBPath, "The run audit SQLite database path")
	fs.StringVar(&cfg.PolicyPath, "policy-path", cfg.PolicyPath, "Routing and approval policy YAML path")
	fs.StringVar(&cfg.InvoiceDir, "invoice-dir", cfg.InvoiceDir, "Directory for rendered invoices")
	fs.StringVar(&cfg.ModelURL, "model-url", cfg.ModelURL, "Model responses endpoint URL")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model name for extraction calls")
	fs.StringVar(&cfg.ReviewURL, "review-url", cfg.ReviewURL, "Review channel API base URL")
	fs.StringVar(&cfg.ReviewChannel, "review-channel", cfg.ReviewChannel, "Review channel identifier")
	fs.StringVar(&cfg.MailURL, "mail-url", cfg.MailURL, "Mail gateway base URL")
	fs.StringVar(&cfg.SafetyURL, "safety-url", cfg.SafetyURL, "Content-safety service base URL")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Inbox poll interval in serve mode")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Maximum messages fetched per drain pass")
	fs.BoolVar(&cfg.Drain, "drain", cfg.Drain, "Drain the backlog once and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the pipeline runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePipeline, func(context.Context) error {
		return pipelineserver.Run(ctx, pipelineserver.RuntimeConfig{
			Port:            cfg.Port,
			InboxDBPath:     cfg.InboxDBPath,
			DirectoryDBPath: cfg.DirectoryDBPath,
			RunsDBPath:      cfg.RunsDBPath,
			PolicyPath:      cfg.PolicyPath,
			InvoiceDir:      cfg.InvoiceDir,
			ModelURL:        cfg.ModelURL,
			ModelAPIKey:     cfg.ModelAPIKey,
			Model:           cfg.Model,
			ReviewURL:       cfg.ReviewURL,
			ReviewToken:     cfg.ReviewToken,
			ReviewChannel:   cfg.ReviewChannel,
			MailURL:         cfg.MailURL,
			MailToken:       cfg.MailToken,
			SafetyURL:       cfg.SafetyURL,
			SafetyToken:     cfg.SafetyToken,
			GrantIssuer:     cfg.GrantIssuer,
			GrantAudience:   cfg.GrantAudience,
			GrantKey:        cfg.GrantKey,
			GrantTTL:        cfg.GrantTTL,
			PollInterval:    cfg.PollInterval,
			BatchSize:       cfg.BatchSize,
			Drain:           cfg.Drain,
		})
	})
}
