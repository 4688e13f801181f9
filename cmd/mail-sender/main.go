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

	"todo_service/internal/config"
	"todo_service/internal/email"
	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/mailer"
	"todo_service/internal/metrics"
	"todo_service/internal/rabbitmq"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoadMailSender(config.Path())
	log := setupLogger(cfg.Env)

	log.Info("Starting mail-sender", slog.String("env", cfg.Env))

	startServer(ctx, cfg, log)
}

func startServer(ctx context.Context, cfg *config.MailSender, log *slog.Logger) {
	r, err := rabbitmq.New(log, cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName, cfg.RabbitMQ.Prefetch)
	if err != nil {
		log.Error("failed to init rabbitmq", sl.Err(err))
		return
	}
	defer r.Close()

	m := &mailer.Mailer{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	limiter := rate.NewLimiter(rate.Limit(cfg.Email.RatePerSecond), cfg.Email.Burst)
	worker := email.NewWorker(log, m, limiter, collector)

	metricsSrv := &http.Server{
		Addr:              cfg.Email.MetricsAddress,
		Handler:           metrics.Handler(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", sl.Err(err))
		}
	}()

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := r.StartReading(ctx, worker.Handle); err != nil {
			log.Error("failed to start reading", sl.Err(err))
			return
		}
	}()

	log.Info("consumer successfully started")

	select {
	case <-ctx.Done():
		log.Info("shutting down consumer...")
		<-done
	case <-done:
		log.Info("consumer finished the work")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown error", sl.Err(err))
	}

	log.Info("service gracefully stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
