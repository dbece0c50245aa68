package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apihttp "mpc-plus/internal/api/http"
	"mpc-plus/internal/audit"
	"mpc-plus/internal/auth"
	"mpc-plus/internal/config"
	"mpc-plus/internal/extraction"
	redisstore "mpc-plus/internal/ingest/infrastructure/redis"
	"mpc-plus/internal/ingest/watcher"
	"mpc-plus/internal/observability/logging"
	"mpc-plus/internal/observability/metrics"
	qaapp "mpc-plus/internal/qa/application"
	qa "mpc-plus/internal/qa/domain"
	"mpc-plus/internal/qa/infrastructure/memory"
	qarepo "mpc-plus/internal/qa/infrastructure/postgres"
	"mpc-plus/internal/qa/infrastructure/yamlfile"
	qahttp "mpc-plus/internal/qa/interfaces/http"
)

const serviceName = "mpc-plus"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("config error", zap.Error(err))
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("logger error", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db error", zap.Error(err))
		}
		defer db.Close()
	}
	metrics.Init(db, logger)

	records, thresholds, auditLogger, err := buildStores(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("store error", zap.Error(err))
	}

	missingNode, _ := cfg.MissingNodePolicy()
	strategies, _ := cfg.Strategies()
	extractor, err := extraction.NewExtractor(
		extraction.WithMissingNodePolicy(missingNode),
		extraction.WithStrategies(strategies),
		extraction.WithLogger(logger.Named("extraction")),
	)
	if err != nil {
		logger.Fatal("extractor error", zap.Error(err))
	}

	queryService, err := qaapp.NewQueryService(records, thresholds,
		qaapp.WithSessionWindow(cfg.SessionWindow),
		qaapp.WithLogger(logger.Named("query")),
	)
	if err != nil {
		logger.Fatal("query service error", zap.Error(err))
	}
	recordService, err := qaapp.NewRecordService(records, auditLogger, qaapp.SystemClock{}, logger.Named("records"))
	if err != nil {
		logger.Fatal("record service error", zap.Error(err))
	}
	ingestService, err := qaapp.NewIngestService(extractor, records, thresholds,
		qaapp.WithMachines(cfg.Machines),
		qaapp.WithIngestLogger(logger.Named("ingest")),
	)
	if err != nil {
		logger.Fatal("ingest service error", zap.Error(err))
	}

	if len(cfg.Watch.Paths) > 0 {
		monitor, err := buildMonitor(ctx, cfg, ingestService, logger)
		if err != nil {
			logger.Fatal("watcher error", zap.Error(err))
		}
		go func() {
			if err := monitor.Run(ctx); err != nil {
				logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	qaHandler, err := qahttp.NewHandler(queryService, recordService, logger.Named("http"))
	if err != nil {
		logger.Fatal("qa handler error", zap.Error(err))
	}
	ingestHandler, err := qahttp.NewIngestHandler(ingestService, logger.Named("http"))
	if err != nil {
		logger.Fatal("ingest handler error", zap.Error(err))
	}

	policy := auth.NewPolicy([]string{"/healthz", "/metrics", "/ingest/"}, auth.QARules)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy, logger.Named("auth"))
	ingestAuth := auth.NewIngestVerifier([]byte(cfg.IngestSecret), cfg.IngestMaxSkew)

	mux := http.NewServeMux()
	mux.Handle(qahttp.IngestPath, ingestAuth.Wrap(ingestHandler))
	qaHandler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", apihttp.HealthHandler())

	var handler http.Handler = authMiddleware.Wrap(mux)
	if cfg.RateLimit.RPS > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
		handler = apihttp.NewRateLimitMiddleware(limiter)(handler)
	}
	handler = apihttp.LoggingMiddleware(handler, logger.Named("access"))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.Bool("postgres", db != nil))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server error", zap.Error(err))
	}
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// buildStores selects Postgres when a database is configured, otherwise the
// in-memory record store and the YAML (or empty) threshold set.
func buildStores(ctx context.Context, cfg config.Config, db *sql.DB, logger *zap.Logger) (qa.CheckRecordRepository, qa.ThresholdRepository, audit.Logger, error) {
	var fileThresholds *yamlfile.ThresholdRepository
	if cfg.ThresholdsFile != "" {
		repo, err := yamlfile.NewThresholdRepository(cfg.ThresholdsFile)
		if err != nil {
			return nil, nil, nil, err
		}
		fileThresholds = repo
	}

	if db == nil {
		logger.Warn("no database configured; check records are kept in memory")
		auditLogger := audit.NewZapLogger(logger.Named("audit"))
		if fileThresholds != nil {
			return memory.NewRecordRepository(), fileThresholds, auditLogger, nil
		}
		return memory.NewRecordRepository(), memory.NewThresholdRepository(), auditLogger, nil
	}

	if err := qarepo.EnsureSchema(ctx, db); err != nil {
		return nil, nil, nil, err
	}
	auditRepo := audit.NewRepository(db)
	if err := auditRepo.EnsureSchema(ctx); err != nil {
		return nil, nil, nil, err
	}
	thresholds := qarepo.NewThresholdRepository(db)
	if fileThresholds != nil {
		seed, err := fileThresholds.GetAll(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, threshold := range seed {
			if err := thresholds.Upsert(ctx, threshold); err != nil {
				return nil, nil, nil, err
			}
		}
		logger.Info("thresholds seeded", zap.String("file", cfg.ThresholdsFile), zap.Int("count", len(seed)))
	}
	return qarepo.NewRecordRepository(db, logger.Named("records")), thresholds, auditRepo, nil
}

func buildMonitor(ctx context.Context, cfg config.Config, processor watcher.FolderProcessor, logger *zap.Logger) (*watcher.Monitor, error) {
	var store watcher.ProcessedStore = watcher.NewMemoryProcessedStore()
	if cfg.Watch.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Watch.Redis.Addr,
			Password: cfg.Watch.Redis.Password,
			DB:       cfg.Watch.Redis.DB,
		})
		redisStore, err := redisstore.NewProcessedStore(client, cfg.Watch.Redis.KeyPrefix, cfg.Watch.Redis.TTL)
		if err != nil {
			return nil, err
		}
		if err := redisStore.Ping(ctx); err != nil {
			return nil, err
		}
		store = redisStore
		logger.Info("watcher dedup in redis", zap.String("addr", cfg.Watch.Redis.Addr))
	}
	return watcher.NewMonitor(watcher.Config{
		Paths:        cfg.Watch.Paths,
		SettleDelay:  cfg.Watch.SettleDelay,
		ScanExisting: cfg.Watch.ScanExisting,
	}, processor, store, logger.Named("watcher"))
}
