// Package main implements the ClaimLens API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/claimlens/claimlens/engine/ingest"
	"github.com/claimlens/claimlens/engine/keyword"
	"github.com/claimlens/claimlens/engine/policy"
	"github.com/claimlens/claimlens/engine/precedent"
	"github.com/claimlens/claimlens/engine/semantic"
	"github.com/claimlens/claimlens/pkg/metrics"
	"github.com/claimlens/claimlens/pkg/mid"
	"github.com/claimlens/claimlens/pkg/ollama"
	"github.com/claimlens/claimlens/pkg/openai"
	"github.com/claimlens/claimlens/pkg/repo"
	"github.com/claimlens/claimlens/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	CORSOrigin   string
	DBPath       string
	DocumentsDir string
	NATSUrl      string
	EmbedBackend string
	OllamaURL    string
	OllamaModel  string
	OpenAIKey    string
	OpenAIModel  string
	EmbedRate    float64
	EmbedBurst   int
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		DBPath:       envOr("DB_PATH", "data/claimlens.db"),
		DocumentsDir: envOr("DOCUMENTS_DIR", "data/documents"),
		NATSUrl:      envOr("NATS_URL", nats.DefaultURL),
		EmbedBackend: envOr("EMBED_BACKEND", "ollama"),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:  envOr("OLLAMA_MODEL", "nomic-embed-text"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  os.Getenv("OPENAI_EMBED_MODEL"),
		EmbedRate:    10,
		EmbedBurst:   20,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Open SQLite ---
	db, err := repo.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	// --- Embedding backend ---
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	guarded := semantic.Guard(embedder,
		resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.EmbedRate, Burst: cfg.EmbedBurst}),
		resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 5, Timeout: 30 * time.Second, HalfOpenMax: 2}),
	)

	// --- Search engine ---
	index := semantic.NewIndex(guarded, logger)
	matcher := keyword.New(index)
	searcher := policy.NewService(index, matcher, nil, logger)
	indexer := ingest.NewIndexer(index, guarded, logger)

	// --- Precedent store ---
	precedents := precedent.NewStore(repo.NewPrecedentRepo(db), guarded, logger)
	if err := precedents.Load(ctx); err != nil {
		return fmt.Errorf("load precedents: %w", err)
	}

	// --- NATS (optional) ---
	var nc *nats.Conn
	if cfg.NATSUrl != "" {
		nc, err = nats.Connect(cfg.NATSUrl, nats.Name("claimlens-api"))
		if err != nil {
			logger.Warn("nats unavailable, ingestion runs over HTTP only", "err", err)
		} else {
			defer nc.Close()
			sub, err := ingest.StartConsumer(nc, indexer)
			if err != nil {
				return fmt.Errorf("ingest consumer: %w", err)
			}
			defer sub.Unsubscribe()
		}
	}

	// --- Metrics ---
	reg := metrics.New()

	// --- HTTP server ---
	app := newAPI(searcher, precedents, indexer, index, nc, cfg.DocumentsDir, reg, logger)

	handler := mid.Chain(app.routes(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("claimlens-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// buildEmbedder selects the embedding backend from config.
func buildEmbedder(cfg Config) (semantic.Embedder, error) {
	switch cfg.EmbedBackend {
	case "ollama":
		return ollama.NewEmbedClient(cfg.OllamaURL, cfg.OllamaModel), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("embed backend openai requires OPENAI_API_KEY")
		}
		return openai.NewEmbedClient(cfg.OpenAIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown embed backend %q", cfg.EmbedBackend)
	}
}
