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

	"leadflow-platform/internal/campaigns"
	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/comms"
	"leadflow-platform/internal/config"
	"leadflow-platform/internal/contentgen"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/crosschannel"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/internal/delivery"
	"leadflow-platform/internal/events"
	"leadflow-platform/internal/handover"
	"leadflow-platform/internal/httpapi"
	"leadflow-platform/internal/leads"
	"leadflow-platform/internal/reporting"
	"leadflow-platform/internal/router"
	"leadflow-platform/internal/scoring"
	"leadflow-platform/pkg/logger"
	"leadflow-platform/pkg/utils"

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

	// Persistence
	leadRepo := leads.NewPostgresRepo(db)
	convRepo := conversations.NewPostgresRepo(db)
	commRepo := comms.NewPostgresRepo(db)
	decisionSvc := decisions.NewService(decisions.NewPostgresRepo(db))
	campaignProvider := campaigns.NewPostgresProvider(db)

	// Orchestration
	tracker := conversations.NewTracker(convRepo)
	commSvc := comms.NewService(commRepo, decisionSvc)

	dispatchers := delivery.NewRegistry().
		Register(channels.ChannelEmail, delivery.NewLogDispatcher(channels.ChannelEmail)).
		Register(channels.ChannelSMS, delivery.NewLogDispatcher(channels.ChannelSMS)).
		Register(channels.ChannelChat, delivery.NewLogDispatcher(channels.ChannelChat))

	rt, err := router.New(router.Deps{
		Leads:       leadRepo,
		Tracker:     tracker,
		Campaigns:   campaignProvider,
		Decisions:   decisionSvc,
		Scorer:      scoring.NewScorer(leadRepo, decisionSvc),
		Evaluator:   handover.NewEvaluator(),
		Carrier:     crosschannel.NewManager(),
		Comms:       commSvc,
		Dispatchers: dispatchers,
		Generator:   contentgen.NewTemplateGenerator(),
		Events:      events.NewRedisSink(rdb, cfg.Engage.EventChannelPrefix),
		Redis:       rdb,
		LockTTL:     cfg.Engage.ConversationLockTTL,
	})
	if err != nil {
		log.Error("router init failed", "err", err)
		os.Exit(1)
	}

	h := httpapi.Handlers{
		Router:    rt,
		Leads:     leadRepo,
		Comms:     commSvc,
		Decisions: decisionSvc,
		Reporting: reporting.NewService(reporting.NewPostgresRepo(db)),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, db, rdb)

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
}
