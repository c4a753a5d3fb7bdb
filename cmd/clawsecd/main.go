// Command clawsecd runs the policy enforcement engine as an HTTP service.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clawsec/core/internal/analyzer"
	"github.com/clawsec/core/internal/api"
	"github.com/clawsec/core/internal/approval"
	"github.com/clawsec/core/internal/approval/archive"
	"github.com/clawsec/core/internal/approval/transport"
	"github.com/clawsec/core/internal/clock"
	"github.com/clawsec/core/internal/config"
	"github.com/clawsec/core/internal/detect"
	"github.com/clawsec/core/internal/filter"
	"github.com/clawsec/core/internal/ledger"
	"github.com/clawsec/core/internal/store"
	"github.com/clawsec/core/internal/telemetry"
)

const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorBlue  = "\033[34m"
	ColorGreen = "\033[32m"
)

func main() {
	os.Exit(Run(os.Args))
}

func Run(args []string) int {
	fs := flag.NewFlagSet("clawsecd", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to clawsec.yaml (defaults to upward discovery from the working directory)")
	addr := fs.String("addr", ":8090", "HTTP listen address")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	fmt.Fprintf(os.Stdout, "%sclawsecd starting...%s\n", ColorBold+ColorBlue, ColorReset)

	logLevel := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	path := *configPath
	if path == "" {
		path = config.Discover(".")
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("config load failed", "error", err)
		return 1
	}
	switch cfg.Global.LogLevel {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
	logger.Info("config loaded", "path", path, "version", cfg.Version)

	clk := clock.Real{}

	// === SUBSYSTEM WIRING ===
	spendLedger, err := buildLedger(context.Background(), cfg, clk, logger)
	if err != nil {
		logger.Error("ledger backend init failed", "error", err)
		return 1
	}

	rules := cfg.RulesConfig()
	detectors := []detect.Detector{
		detect.NewPurchaseDetector(rules.Purchase, spendLedger),
		detect.NewWebsiteDetector(rules.Website),
		detect.NewDestructiveDetector(rules.Destructive),
		detect.NewSecretsDetector(rules.Secrets),
		detect.NewExfiltrationDetector(rules.Exfiltration),
		detect.NewSanitizationDetector(rules.Sanitization),
	}

	ruleActions := map[detect.Category]analyzer.RuleActions{
		detect.CategoryPurchase:     {Action: rules.Purchase.Action},
		detect.CategoryWebsite:      {Action: rules.Website.Action},
		detect.CategoryDestructive:  {Action: rules.Destructive.Action},
		detect.CategorySecrets:      {Action: rules.Secrets.Action},
		detect.CategoryExfiltration: {Action: rules.Exfiltration.Action},
		detect.CategorySanitization: {Action: rules.Sanitization.Action},
	}

	engine := analyzer.New(analyzer.Config{
		Enabled:     cfg.Global.Enabled,
		Detectors:   detectors,
		RuleActions: ruleActions,
		CacheTTL:    5 * time.Second,
		Cache:       buildCache(cfg),
	}, clk, logger)

	outputFilter := filter.New(rules.Sanitization, rules.Secrets, logger)

	// Metrics default to a no-op meter; a host that wants real export wires
	// its own MeterProvider in before calling Run (SPEC_FULL.md §1.2).
	metrics := telemetry.New(nil)

	store := approval.NewStore(clk, true, 30*time.Second)
	defer store.Stop()

	nativeTransport := transport.NewNative(store)
	agentConfirmTransport := transport.NewAgentConfirm(store, cfg.Approval.AgentConfirm.Enabled, cfg.Approval.AgentConfirm.ParameterName)

	var webhookTransport *transport.Webhook
	if cfg.Approval.Webhook.Enabled {
		webhookTransport = transport.NewWebhook(cfg.WebhookConfig(), store)
		webhookTransport.SetMetrics(metrics)
		if archiver, err := buildArchiver(context.Background(), cfg); err != nil {
			logger.Error("archive backend init failed", "error", err)
		} else if archiver != nil {
			webhookTransport.SetArchiver(archiver)
		}
	}

	server := api.NewServer(api.Dependencies{
		Analyzer:      engine,
		Store:         store,
		Native:        nativeTransport,
		AgentConfirm:  agentConfirmTransport,
		Webhook:       webhookTransport,
		Filter:        outputFilter,
		Clock:         clk,
		Logger:        logger,
		Metrics:       metrics,
		NativeTimeout: cfg.NativeTimeout(),
		Port:          portFromAddr(*addr),
		Host:          "0.0.0.0",
		Enabled:       cfg.Global.Enabled,
	})

	fmt.Fprintf(os.Stdout, "%sclawsecd ready: http://localhost%s%s\n", ColorBold+ColorGreen, *addr, ColorReset)
	fmt.Fprintln(os.Stdout, "press ctrl+c to stop")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx, api.ServeConfig{
		Addr:           *addr,
		RateLimitRPS:   20,
		RateLimitBurst: 40,
	}); err != nil {
		logger.Error("server exited with error", "error", err)
		return 1
	}
	return 0
}

// buildLedger constructs the spend ledger, optionally backed by Postgres or
// SQLite per cfg.Backing.Ledger (SPEC_FULL.md §1.2). Defaults to the
// in-memory ledger, honoring spec.md's "no disk persistence" Non-goal.
func buildLedger(ctx context.Context, cfg config.Config, clk clock.Clock, logger *slog.Logger) (*ledger.Ledger, error) {
	switch cfg.Backing.Ledger.Driver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.Backing.Ledger.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger backend: %w", err)
		}
		backend := store.NewPostgresLedgerBackend(db)
		if err := backend.Migrate(ctx); err != nil {
			return nil, err
		}
		return ledger.NewWithBackend(ctx, clk, backend, logger)
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Backing.Ledger.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger backend: %w", err)
		}
		backend, err := store.NewSQLiteLedgerBackend(db)
		if err != nil {
			return nil, err
		}
		return ledger.NewWithBackend(ctx, clk, backend, logger)
	default:
		return ledger.New(clk), nil
	}
}

// buildCache returns the analyzer's CacheBackend per cfg.Backing.Cache, or
// nil to keep the built-in in-memory map (SPEC_FULL.md §1.2).
func buildCache(cfg config.Config) analyzer.CacheBackend {
	if cfg.Backing.Cache.Driver != "redis" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Backing.Cache.Addr})
	return analyzer.NewRedisCache(client)
}

// buildArchiver returns the webhook transport's optional blob archiver per
// cfg.Backing.Archive, or nil when archiving is disabled.
func buildArchiver(ctx context.Context, cfg config.Config) (transport.BlobArchiver, error) {
	switch cfg.Backing.Archive.Driver {
	case "s3":
		return archive.NewS3Archiver(ctx, archive.S3Config{
			Bucket: cfg.Backing.Archive.Bucket,
			Region: cfg.Backing.Archive.Region,
			Prefix: cfg.Backing.Archive.Prefix,
		})
	default:
		return nil, nil
	}
}

func portFromAddr(addr string) int {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			port := 0
			for _, c := range addr[i+1:] {
				if c < '0' || c > '9' {
					return 0
				}
				port = port*10 + int(c-'0')
			}
			return port
		}
	}
	return 0
}
