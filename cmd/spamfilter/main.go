package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/events"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/ledger"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/elastic"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/resilience"
	"github.com/google/uuid"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file")
	collectionName := flag.String("collection", "", "collection preset (CW09A, CW09B, MQ09, MQE1, CW12B)")
	home := flag.String("home", "", "dataset home holding <collection>/base_spam_runs")
	input := flag.String("input", "", "input root with submission files (overrides preset)")
	output := flag.String("output", "", "output root template containing {threshold} (overrides preset)")
	workers := flag.Int("workers", 0, "number of files processed concurrently")
	timeout := flag.Duration("timeout", 0, "overall deadline for the run, 0 for none")
	backend := flag.String("backend", "", "scoring backend: elasticsearch, postgres or redis")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	applyFlags(cfg, *collectionName, *home, *input, *output, *workers, *timeout, *backend)
	if cfg.Pipeline.Collection != "" {
		preset, err := collection.Lookup(cfg.Pipeline.Collection)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		preset.Apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return 1
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	runID := uuid.NewString()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)

	m := metrics.New(nil)
	checker := health.NewChecker()

	lookup, closeBackend, err := openBackend(cfg, checker)
	if err != nil {
		log.Error("failed to open scoring backend", "backend", cfg.Scoring.Backend, "error", err)
		return 1
	}
	defer closeBackend()

	guard := scoring.NewGuard(lookup, scoring.GuardConfig{
		Name:      cfg.Scoring.Backend,
		Timeout:   cfg.Scoring.LookupTimeout,
		RateLimit: cfg.Scoring.RateLimit,
		Burst:     cfg.Scoring.Burst,
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Scoring.CircuitBreaker.FailureThreshold,
			ResetTimeout:     cfg.Scoring.CircuitBreaker.ResetTimeout,
		},
	}, m)

	var notifiers []pipeline.Notifier
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka)
		}))
		notifiers = append(notifiers, events.NewPublisher(producer))
	}
	if cfg.Ledger.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			log.Error("failed to connect run ledger", "error", err)
			return 1
		}
		defer db.Close()
		store := ledger.NewStore(db.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Error("failed to prepare run ledger", "error", err)
			return 1
		}
		checker.Register("ledger", health.PingCheck(db.Ping))
		notifiers = append(notifiers, store)
	}

	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
			"/health/live":  checker.LiveHandler(),
			"/health/ready": checker.ReadyHandler(),
		})
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(sctx)
		}()
	}

	pctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = checker.Preflight(pctx)
	cancel()
	if err != nil {
		log.Error("preflight failed", "error", err)
		return 1
	}

	jobs, err := pipeline.Discover(cfg.Pipeline.InputRoot, cfg.Pipeline.FileSuffix)
	if err != nil {
		log.Error("failed to discover submissions", "error", err)
		return 1
	}
	fmt.Printf("there are %d TREC submission files found to be processed...\n", len(jobs))

	scheduler := pipeline.NewScheduler(pipeline.Config{
		Concurrency:      cfg.Pipeline.Concurrency,
		Timeout:          cfg.Pipeline.Timeout,
		ProgressInterval: cfg.Pipeline.ProgressInterval,
	}, processor.Options{
		OutputRoot:    cfg.Pipeline.OutputRoot,
		Lookup:        guard,
		NoResultDocID: cfg.Pipeline.NoResultDocID,
		Metrics:       m,
	}, notifiers...)

	summary := scheduler.Run(ctx, jobs)
	summary.Print(os.Stdout)
	if !summary.OK() {
		return 2
	}
	return 0
}

func applyFlags(cfg *config.Config, collectionName, home, input, output string, workers int, timeout time.Duration, backend string) {
	if collectionName != "" {
		cfg.Pipeline.Collection = collectionName
	}
	if home != "" {
		cfg.Pipeline.Home = home
	}
	if input != "" {
		cfg.Pipeline.InputRoot = input
	}
	if output != "" {
		cfg.Pipeline.OutputRootTemplate = output
	}
	if workers > 0 {
		cfg.Pipeline.Concurrency = workers
	}
	if timeout > 0 {
		cfg.Pipeline.Timeout = timeout
	}
	if backend != "" {
		cfg.Scoring.Backend = backend
	}
}

// openBackend connects the configured scoring backend and registers its
// health check. The returned func releases the connection.
func openBackend(cfg *config.Config, checker *health.Checker) (scoring.Lookup, func(), error) {
	switch cfg.Scoring.Backend {
	case config.BackendElasticsearch:
		client, err := elastic.NewClient(cfg.Elasticsearch)
		if err != nil {
			return nil, nil, err
		}
		checker.Register("elasticsearch", health.PingCheck(func(ctx context.Context) error {
			return elastic.Ping(ctx, client)
		}))
		return scoring.NewElastic(client, cfg.Elasticsearch), func() {}, nil
	case config.BackendPostgres:
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		checker.Register("postgres", health.PingCheck(db.Ping))
		return scoring.NewPostgres(db), closeQuietly(db, "postgres"), nil
	case config.BackendRedis:
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		checker.Register("redis", health.PingCheck(client.Ping))
		return scoring.NewRedis(client), closeQuietly(client, "redis"), nil
	default:
		return nil, nil, fmt.Errorf("unknown scoring backend %q", cfg.Scoring.Backend)
	}
}

func closeQuietly(c io.Closer, name string) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Warn("closing backend", "backend", name, "error", err)
		}
	}
}
