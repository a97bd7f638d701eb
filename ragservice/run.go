// Package ragservice wires configuration, dependencies, and the HTTP server
// into a runnable service, and exposes the offline sync and seed entrypoints.
package ragservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyberrag/cyberrag/internal/api"
	"github.com/cyberrag/cyberrag/internal/checkpoint"
	"github.com/cyberrag/cyberrag/internal/config"
	"github.com/cyberrag/cyberrag/internal/embeddings"
	"github.com/cyberrag/cyberrag/internal/embeddings/ollama"
	"github.com/cyberrag/cyberrag/internal/health"
	"github.com/cyberrag/cyberrag/internal/history"
	"github.com/cyberrag/cyberrag/internal/llm"
	"github.com/cyberrag/cyberrag/internal/llm/openai"
	"github.com/cyberrag/cyberrag/internal/logger"
	"github.com/cyberrag/cyberrag/internal/model"
	"github.com/cyberrag/cyberrag/internal/nvd"
	"github.com/cyberrag/cyberrag/internal/rag"
	"github.com/cyberrag/cyberrag/internal/searchindex"
	syncer "github.com/cyberrag/cyberrag/internal/sync"
)

// Run starts the CyberRAG HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("cyberrag")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("weaviate_url", cfg.WeaviateURL).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Msg("CyberRAG service starting")

	ctx, stop := newServerContext()
	defer stop()

	deps, err := initDependencies(cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	answerer := rag.NewAnswerer(deps.idx, deps.emb, deps.gen, cfg.TopK, log)
	router := api.NewRouter(api.RouterDeps{
		Answerer:   answerer,
		Index:      deps.idx,
		Feed:       deps.feed,
		Watermark:  deps.cp,
		Ledger:     deps.ledger,
		EmbedModel: cfg.EmbedModel,
	})

	svcHealth := startHealthCheckers(ctx, cfg, log, deps)

	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// RunSync performs one incremental refresh cycle and exits.
func RunSync() error {
	log := logger.New("cyberrag-sync")

	cfg, err := config.New()
	if err != nil {
		return err
	}

	ctx, stop := newServerContext()
	defer stop()

	deps, err := initDependencies(cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	s := syncer.NewSyncer(deps.feed, deps.cp, syncer.NewSynchronizer(deps.idx, deps.emb, log), deps.ledger, log)
	report, err := s.Run(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("added", report.Added).
		Int("updated", report.Updated).
		Int("skipped", len(report.Skipped)).
		Bool("partial", report.Partial).
		Msg("sync finished")
	return nil
}

// RunSeed rebuilds the index from the full feed. Destroys the existing
// collection.
func RunSeed() error {
	log := logger.New("cyberrag-seed")

	cfg, err := config.New()
	if err != nil {
		return err
	}

	ctx, stop := newServerContext()
	defer stop()

	deps, err := initDependencies(cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	log.Info().Msg("fetching full feed; this takes a while")
	records, err := deps.feed.FetchAll(ctx)
	if err != nil && len(records) == 0 {
		return err
	}
	if err != nil {
		log.Warn().Err(err).Int("records", len(records)).Msg("feed truncated; seeding with partial data")
	}

	normalized := normalizeAll(records, log)

	seeder := syncer.NewSeeder(deps.idx, deps.emb, cfg.SeedBatchSize, log)
	inserted, err := seeder.Seed(ctx, normalized)
	if err != nil {
		return err
	}

	if err := deps.cp.Save(time.Now()); err != nil {
		return err
	}
	log.Info().Int("inserted", inserted).Msg("seed finished")
	return nil
}

// normalizeAll converts feed records into documents, dropping records without
// ids.
func normalizeAll(records []nvd.Record, log zerolog.Logger) []model.Document {
	docs := make([]model.Document, 0, len(records))
	for _, rec := range records {
		doc, err := nvd.Normalize(rec)
		if err != nil {
			log.Warn().Err(err).Msg("skipping record")
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

type serviceDeps struct {
	idx    searchindex.Index
	emb    embeddings.EmbeddingProvider
	gen    llm.Generator
	feed   *nvd.Client
	cp     *checkpoint.Checkpoint
	ledger *history.Store
}

func (d *serviceDeps) close() {
	if d.ledger != nil {
		_ = d.ledger.Close()
	}
}

// initDependencies constructs required components and enforces fail-fast on
// missing deps.
func initDependencies(cfg *config.Config, log zerolog.Logger) (*serviceDeps, error) {
	idx, err := searchindex.NewWeaviateIndex(cfg.WeaviateURL, cfg.SearchAlpha, log)
	if err != nil {
		log.Error().Err(err).Msg("Search index unavailable")
		return nil, err
	}

	emb := ollama.New(cfg.OllamaURL, cfg.EmbedModel)

	gen, err := openai.New(openai.Config{
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		APIKey:  cfg.OpenAIAPIKey,
	})
	if err != nil {
		log.Error().Err(err).Msg("Generation backend unavailable")
		return nil, err
	}

	feed := nvd.NewClient(nvd.Options{
		BaseURL:      cfg.NVDBaseURL,
		APIKey:       cfg.NVDAPIKey,
		PageSize:     cfg.NVDPageSize,
		KeyedDelay:   cfg.NVDKeyedDelay,
		UnkeyedDelay: cfg.NVDUnkeyedDelay,
	}, log)

	cp, err := checkpoint.New(cfg.CheckpointPath)
	if err != nil {
		return nil, err
	}

	ledger, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		log.Warn().Err(err).Msg("run ledger unavailable; continuing without it")
		ledger = nil
	}

	return &serviceDeps{idx: idx, emb: emb, gen: gen, feed: feed, cp: cp, ledger: ledger}, nil
}

// startHealthCheckers starts component checkers and the service-level
// aggregator; binds the health endpoint.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *serviceDeps) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	var checkers []health.HealthChecker
	add := func(name string, p health.HealthPinger) {
		c := health.NewComponentChecker(name, p.HealthPing, log, probeTimeout)
		go c.Start(ctx, interval)
		checkers = append(checkers, c)
	}

	if p, ok := deps.idx.(health.HealthPinger); ok {
		add("searchindex", p)
	}
	if p, ok := deps.emb.(health.HealthPinger); ok {
		add("embeddings", p)
	}
	if p, ok := deps.gen.(health.HealthPinger); ok {
		add("llm", p)
	}

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// waitUntilHealthy blocks until service health is healthy or the startup
// window expires. Checkers start unhealthy and need one probe cycle.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := cfg.HealthIntervalSeconds * 2
	if timeoutSeconds < 60 {
		timeoutSeconds = 60
	}
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on
// SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
