package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/writersinn/taskhub/internal/config"
	"github.com/writersinn/taskhub/internal/db"
	httpx "github.com/writersinn/taskhub/internal/http"
	"github.com/writersinn/taskhub/internal/observability"
	"github.com/writersinn/taskhub/internal/queue/redisclient"
	"github.com/writersinn/taskhub/internal/uploads"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing is optional; without an endpoint spans just never leave the process
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "taskhub-api", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(3 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	// migrations run on boot so the schema is always current
	if err := db.Migrate(cfg.DBURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)
	err = db.EnsureAdminUser(seedCtx, pool, cfg)
	cancelSeed()

	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(registry)

	// redis is optional; without it rate limiting is per-process
	var redis *redisclient.Client

	if cfg.RedisAddr != "" {
		redis = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancelPing := config.WithTimeout(2 * time.Second)
		err = redis.Ping(pingCtx)
		cancelPing()

		if err != nil {
			log.Warn("redis unreachable, using in-memory rate limits", "err", err)
			_ = redis.Close()
			redis = nil
		} else {
			defer redis.Close()
		}
	}

	store, err := buildUploadStore(cfg)

	if err != nil {
		log.Error("upload store init failed", "err", err)
		os.Exit(1)
	}

	// set up routers with the wiring
	router := httpx.NewRouter(httpx.Deps{
		Cfg:      cfg,
		Log:      log,
		Pool:     pool,
		Prom:     prom,
		Registry: registry,
		Redis:    redis,
		Uploads:  store,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctxTimeOut := 10 * time.Second

		ctx, cancel := config.WithTimeout(ctxTimeOut)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func buildUploadStore(cfg config.Config) (uploads.Store, error) {
	if cfg.UploadDriver == "s3" {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()

		return uploads.NewS3Store(ctx, uploads.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}

	return uploads.NewDiskStore(cfg.UploadsDir)
}
