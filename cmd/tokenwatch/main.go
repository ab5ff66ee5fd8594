package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"tokenwatch/internal/classify"
	"tokenwatch/internal/client/dexscreener"
	"tokenwatch/internal/client/rugcheck"
	"tokenwatch/internal/config"
	cronrunner "tokenwatch/internal/cron"
	"tokenwatch/internal/db"
	"tokenwatch/internal/dedup"
	"tokenwatch/internal/discovery"
	"tokenwatch/internal/handler"
	"tokenwatch/internal/labeler"
	"tokenwatch/internal/logger"
	"tokenwatch/internal/notifier"
	"tokenwatch/internal/pacer"
	"tokenwatch/internal/pipeline"
	"tokenwatch/internal/ratelimit"
	"tokenwatch/internal/repository"
	gormrepository "tokenwatch/internal/repository/gorm"
	"tokenwatch/internal/safety"
	"tokenwatch/internal/stream"
	"tokenwatch/internal/web"

	_ "tokenwatch/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("TW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TW_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dexHTTP := &http.Client{Timeout: cfg.Dexscreener.Timeout}
	dexClient := dexscreener.NewClient(dexHTTP, cfg.Dexscreener.BaseURL)
	apiLimiter := ratelimit.New(cfg.RateLimit.CallsPerMinute, cfg.RateLimit.Burst)
	source := &discovery.DexscreenerSource{
		Client:  dexClient,
		Limiter: apiLimiter,
		Logger:  logger,
		Config:  cfg.Scan,
	}

	var rug pipeline.RugReporter
	if cfg.Rugcheck.Enabled {
		rugHTTP := &http.Client{Timeout: cfg.Rugcheck.Timeout}
		rug = rugcheck.NewClient(rugHTTP, cfg.Rugcheck.BaseURL)
	}

	ledger := dedup.New(cfg.Dedup.Cooldown, store, logger)
	if err := ledger.Load(ctx); err != nil {
		logger.Warn("ledger load failed, starting empty", zap.Error(err))
	}

	alertPacer := pacer.New(cfg.Pacer, logger)
	alertPacer.IsDuplicate = func(c pacer.Candidate, now time.Time) bool {
		return ledger.IsDuplicate(c.Snapshot.Chain, c.Snapshot.Address, c.Snapshot.Name, now)
	}
	seedPacer(ctx, store, alertPacer, logger)

	var hub *stream.Hub
	if cfg.Stream.Enabled {
		hub = stream.NewHub(cfg.Stream.SubscriberBuf, logger)
	}

	var tokenLabeler *labeler.TokenLabeler
	if cfg.Labeler.Enabled {
		tokenLabeler = &labeler.TokenLabeler{Rules: labeler.DefaultRules(), Logger: logger}
	}

	var tg *notifier.Telegram
	var transport pipeline.Transport
	if cfg.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.Token) != "" {
		tg, err = notifier.NewTelegram(cfg.Telegram, logger)
		if err != nil {
			logger.Fatal("telegram init failed", zap.Error(err))
		}
		transport = tg
	} else {
		logger.Info("telegram disabled, alerts are logged only")
	}

	pipe := &pipeline.Pipeline{
		Config:     cfg,
		Sources:    []discovery.Source{source},
		Rug:        rug,
		Limiter:    apiLimiter,
		Safety:     &safety.Evaluator{Config: cfg.Safety, Logger: logger},
		Classifier: &classify.Classifier{Config: cfg.Classifier, Logger: logger},
		Labeler:    tokenLabeler,
		Ledger:     ledger,
		Pacer:      alertPacer,
		Repo:       store,
		Transport:  transport,
		Hub:        hub,
		Logger:     logger,
	}

	if tg != nil {
		tg.StatusText = func() string { return statusText(pipe) }
		tg.Start(ctx)
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(web.CORS())
	engine.Use(web.RequestLogger(logger))
	engine.Use(web.RequireToken())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	web.RegisterDocs(engine)
	alertHandler := &handler.AlertHandler{Repo: store, Logger: logger}
	alertHandler.Register(engine)
	checkHandler := &handler.CheckHandler{Repo: store, Logger: logger}
	checkHandler.Register(engine)
	statsHandler := &handler.StatsHandler{Repo: store, Logger: logger}
	statsHandler.Register(engine)
	pipelineHandler := &handler.PipelineHandler{Pipeline: pipe, Logger: logger}
	pipelineHandler.Register(engine)
	streamHandler := &handler.StreamHandler{Hub: hub, Logger: logger}
	streamHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx)

	scanSpec := "@every " + cfg.Scan.Interval.String()
	_, err = cronRunner.Add(scanSpec, func(ctx context.Context) {
		if _, err := pipe.RunCycle(ctx); err != nil {
			logger.Warn("scan cycle finished with errors", zap.Error(err))
			if tg != nil {
				tg.SendError(ctx, err.Error())
			}
		}
	})
	if err != nil {
		logger.Fatal("cron register scan failed", zap.Error(err))
	}

	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.LedgerPurge, func(ctx context.Context) {
			n, err := ledger.PurgeStale(ctx, time.Now().UTC())
			if err != nil {
				logger.Warn("ledger purge failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("purged stale ledger entries", zap.Int64("count", n))
			}
		})
		if err != nil {
			logger.Warn("cron register ledger purge failed", zap.Error(err))
		}

		_, err = cronRunner.Add(cfg.Cron.StatsReport, func(ctx context.Context) {
			summary, err := store.StatsSummary(ctx, nil)
			if err != nil {
				logger.Warn("stats summary failed", zap.Error(err))
				return
			}
			lastHour, err := store.CountAlertsSince(ctx, time.Now().UTC().Add(-time.Hour))
			if err != nil {
				logger.Warn("recent alert count failed", zap.Error(err))
			}
			logger.Info("scanner totals",
				zap.Int64("checks", summary.TotalChecks),
				zap.Int64("passed", summary.TotalPassed),
				zap.Int64("rejected", summary.TotalRejected),
				zap.Int64("duplicates", summary.TotalDuplicates),
				zap.Int64("alerts", summary.TotalAlerts),
				zap.Int64("alerts_last_hour", lastHour))
		})
		if err != nil {
			logger.Warn("cron register stats report failed", zap.Error(err))
		}
	}

	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// seedPacer rebuilds the send window from recent alert rows so a restart
// cannot burst past the per-minute cap.
func seedPacer(ctx context.Context, store repository.Repository, p *pacer.Pacer, logger *zap.Logger) {
	cutoff := time.Now().UTC().Add(-time.Minute)
	alerts, err := store.ListAlerts(ctx, repository.ListAlertsParams{
		Since: &cutoff,
		Limit: p.Target,
	})
	if err != nil {
		logger.Warn("pacer seed failed, starting with a fresh window", zap.Error(err))
		return
	}
	times := make([]time.Time, 0, len(alerts))
	for _, a := range alerts {
		times = append(times, a.SentAt)
	}
	p.Seed(times)
	if len(times) > 0 {
		logger.Info("pacer window seeded", zap.Int("recent_alerts", len(times)))
	}
}

func statusText(pipe *pipeline.Pipeline) string {
	st := pipe.Status()
	var b strings.Builder
	b.WriteString("📊 <b>Scanner Status</b>\n\n")
	if st.Running {
		b.WriteString("🔄 Scan cycle in progress\n")
	} else {
		b.WriteString("🟢 Online and monitoring\n")
	}
	fmt.Fprintf(&b, "⛓ Chains: %s\n", strings.Join(st.Chains, ", "))
	fmt.Fprintf(&b, "⏱ Interval: %s\n", st.Interval)
	fmt.Fprintf(&b, "📨 Sent last minute: %d/%d\n", st.Pacer.SentLastMinute, st.Pacer.TargetPerMinute)
	fmt.Fprintf(&b, "🗂 Queue depth: %d\n", st.Pacer.QueueDepth)
	fmt.Fprintf(&b, "🧾 Ledger size: %d\n", st.LedgerSize)
	if last := st.LastCycle; last != nil {
		fmt.Fprintf(&b, "\n<b>Last cycle</b>\nfetched %d, passed %d, alerted %d, rejected %d, duplicates %d",
			last.Fetched, last.Passed, last.Alerted, last.Rejected, last.Duplicates)
	}
	return b.String()
}
