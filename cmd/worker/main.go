package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/writersinn/taskhub/internal/config"
	"github.com/writersinn/taskhub/internal/db"
	"github.com/writersinn/taskhub/internal/notifications"
	"github.com/writersinn/taskhub/internal/observability"
	"github.com/writersinn/taskhub/internal/queue/worker"
	"github.com/writersinn/taskhub/internal/repo/postgres"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "taskhub-worker", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				sctx, cancel := config.WithTimeout(3 * time.Second)
				defer cancel()
				_ = shutdownTracer(sctx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	jobsRepo := postgres.NewJobsRepo(pool, prom)

	// mail goes through the circuit breaker whichever provider backs it
	var inner notifications.Notifier = notifications.NewLogNotifier()

	if cfg.MailDriver == "smtp" {
		inner = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		})
	}

	notifier := notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
		Cooldown:         15 * time.Second,
	})

	exec := worker.NewExecutor(notifier, prom)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  100 * time.Millisecond,
		WorkerID:      workerID,
		Concurrency:   4,
		ShutdownGrace: 10 * time.Second,
		LockTTL:       60 * time.Second,
	}, jobsRepo, exec, log)

	// health probes on a side port
	healthSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port+1),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := healthSrv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(3 * time.Second)
	_ = healthSrv.Shutdown(shutdownCtx)
	cancel()

	log.Info("worker shutdown complete")
}
