package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ivr-engine/internal/alert"
	"ivr-engine/internal/auth"
	"ivr-engine/internal/calllog"
	"ivr-engine/internal/config"
	"ivr-engine/internal/flow"
	"ivr-engine/internal/menu"
	"ivr-engine/internal/sweeper"
	"ivr-engine/internal/webhook"
	"ivr-engine/pkg/logger"
	"ivr-engine/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	var alerts alert.Notifier = alert.SlogNotifier{}
	if cfg.Alert.WebhookURL != "" {
		alerts = alert.NewWebhookNotifier(cfg.Alert.WebhookURL, 5*time.Second)
	}

	// Menu reads go through the redis read-through cache when a TTL is set.
	var menus menu.Repository = menu.NewPostgresRepo(db)
	if cfg.Redis.MenuCacheTTL > 0 {
		menus = menu.NewCachedRepo(menus, rdb, cfg.Redis.MenuCacheTTL)
	}

	recorder := calllog.NewRecorder(calllog.NewPostgresRepo(db), alerts, cfg.Engine.LogWriteTimeout)
	dispatcher := flow.NewDispatcher(menus)

	h := webhook.NewHandler(menus, dispatcher, recorder, alerts, cfg.Engine.RepoTimeout)
	ops := webhook.NewOpsHandler(menus, recorder, cfg.Engine.RepoTimeout)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, registerDeps{
		cfg:     cfg,
		db:      db,
		webhook: h,
		ops:     ops,
		authMW:  auth.RequireAccessToken(authManager),
	})

	var sw *sweeper.Sweeper
	if cfg.Sweeper.Schedule != "" {
		sw = sweeper.New(recorder, cfg.Sweeper.MaxAge)
		if err := sw.Start(cfg.Sweeper.Schedule); err != nil {
			log.Error("sweeper init failed", "err", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("engine listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if sw != nil {
		sw.Stop()
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
