package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"leadgate/internal/archive"
	"leadgate/internal/audit"
	"leadgate/internal/dedup"
	"leadgate/internal/lead/protect"
	"leadgate/internal/pipeline"
	"leadgate/internal/platform/config"
	"leadgate/internal/platform/httpserver"
	"leadgate/internal/platform/logger"
	"leadgate/internal/platform/metrics"
	"leadgate/internal/platform/middleware"
	"leadgate/internal/platform/postgres"
	platformredis "leadgate/internal/platform/redis"
	"leadgate/internal/store"
	httptransport "leadgate/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	protector, err := protect.New(cfg.EncryptionKey)
	if err != nil {
		log.Error("field protection unavailable", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("primary store unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	primary := store.NewPostgresStore(db)
	if err := primary.EnsureSchema(ctx); err != nil {
		log.Error("primary store schema", "error", err)
		os.Exit(1)
	}

	auditStore := audit.NewPostgresStore(db)
	if err := auditStore.EnsureSchema(ctx); err != nil {
		log.Error("audit store schema", "error", err)
		os.Exit(1)
	}

	var trailOpts []audit.Option
	if len(cfg.KafkaBrokers) > 0 {
		mirror, err := audit.NewKafkaMirror(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("audit mirror unavailable", "error", err)
			os.Exit(1)
		}
		defer mirror.Close(ctx)
		trailOpts = append(trailOpts, audit.WithMirror(mirror))
	}
	trail := audit.NewTrail(auditStore, cfg.Actor, log, trailOpts...)

	var arch archive.Archive = archive.Noop{}
	if cfg.ArchiveDir != "" {
		fsArchive, err := archive.NewFSArchive(cfg.ArchiveDir)
		if err != nil {
			log.Error("archive unavailable", "error", err)
			os.Exit(1)
		}
		arch = fsArchive
	}

	var index dedup.Index = dedup.NewInMemoryIndex()
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("dedup index unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		index = dedup.NewRedisIndex(redisClient, cfg.DedupTTL)
	}

	m := metrics.New()
	pipe, err := pipeline.New(protector, primary, arch, index, trail, m, log,
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithCallTimeout(cfg.CallTimeout),
	)
	if err != nil {
		log.Error("pipeline construction failed", "error", err)
		os.Exit(1)
	}

	validator, err := middleware.NewJWTValidator(cfg.JWTSigningKey)
	if err != nil {
		log.Error("api auth unavailable", "error", err)
		os.Exit(1)
	}

	handler := httptransport.NewHandler(pipe, primary, trail, validator, log)
	srv := httpserver.New(cfg.HTTPAddr, httptransport.NewRouter(handler), cfg.CallTimeout)

	log.Info("starting leadgate", "addr", cfg.HTTPAddr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
