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

	"nexuscrm/internal/auth"
	"nexuscrm/internal/clients"
	"nexuscrm/internal/config"
	"nexuscrm/internal/crm"
	"nexuscrm/internal/graphqlapi"
	"nexuscrm/internal/httpapi"
	"nexuscrm/internal/outbox"
	"nexuscrm/internal/realtime"
	"nexuscrm/internal/voice"
	"nexuscrm/pkg/logger"
	"nexuscrm/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	orchestration := clients.NewOrchestrationClient(cfg.Services.OrchestrationURL, cfg.Services.OrchestrationTimeout, log)
	reasoning := clients.NewReasoningClient(cfg.Services.ReasoningURL, log)
	search := clients.NewSearchClient(cfg.Services.SearchURL, log)
	geospatial := clients.NewGeospatialClient(cfg.Services.GeospatialURL, log)
	var identity *clients.IdentityClient
	if cfg.Services.IdentityURL != "" {
		identity = clients.NewIdentityClient(cfg.Services.IdentityURL, log)
	}

	verifier, err := auth.NewVerifier(cfg, identity)
	if err != nil {
		log.Error("auth verifier init failed", "error", err)
		os.Exit(1)
	}

	crmStore := crm.NewPostgresStore(db)
	crmSvc := crm.NewService(crmStore, reasoning, search, orchestration, geospatial, log)

	hub := realtime.NewHub(verifier, log)

	voiceStore := voice.NewPostgresStore(db)
	limiter := voice.NewRedisLimiter(rdb, cfg.Vapi.MaxConcurrentCalls, log)
	vapi := voice.NewVapiClient(cfg.Vapi, log)
	voiceMgr := voice.NewManager(voiceStore, crmStore, reasoning, vapi, limiter, hub, log)
	webhook := voice.NewWebhookHandler(voiceMgr, cfg.Vapi.WebhookSecret, rdb, log)

	worker := outbox.NewWorker(outbox.NewPostgresStore(db), map[string]outbox.Handler{
		outbox.KindIndexContact: crmSvc.IndexContactHandler(),
	}, log)
	go worker.Run(rootCtx)

	checker := httpapi.NewChecker(db, rdb, orchestration, reasoning, search, geospatial, identity, log)
	health := httpapi.NewHandler(checker, db)

	schema, err := graphqlapi.NewSchema(graphqlapi.NewResolver(crmSvc, voiceMgr, checker, log))
	if err != nil {
		log.Error("graphql schema init failed", "error", err)
		os.Exit(1)
	}
	gql := graphqlapi.NewHandler(schema, cfg.IsProduction(), log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, health, webhook, hub)
	registerProtectedRoutes(r, verifier, gql)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := logger.ShutdownFlush(shutdownCtx, 2*time.Second); err != nil {
		log.Error("log flush failed", "error", err)
	}
}
