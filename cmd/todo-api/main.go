package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"todo_service/internal/auth"
	"todo_service/internal/auth/session"
	"todo_service/internal/auth/verification"
	"todo_service/internal/cache"
	"todo_service/internal/config"
	"todo_service/internal/email"
	"todo_service/internal/http_server/handlers/login"
	"todo_service/internal/http_server/handlers/logout"
	"todo_service/internal/http_server/handlers/register"
	"todo_service/internal/http_server/handlers/resend"
	"todo_service/internal/http_server/handlers/todos"
	"todo_service/internal/http_server/handlers/users"
	"todo_service/internal/http_server/handlers/verify"
	sl "todo_service/internal/lib/logger/sl"
	"todo_service/internal/metrics"
	"todo_service/internal/middleware/authorize"
	"todo_service/internal/middleware/ratelimit"
	"todo_service/internal/models"
	"todo_service/internal/rabbitmq"
	"todo_service/internal/storage/postgres"
	"todo_service/internal/storage/redis"
	"todo_service/internal/todo"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad(config.Path())

	log := setupLogger(cfg.Env)

	log.Info("starting todo service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(cfg.Postgres.URL()); err != nil {
			log.Error("failed to apply migrations", sl.Err(err))
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	storage, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	kv, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer kv.Close()

	msgBroker, err := rabbitmq.New(log, cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName, 0)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	outbox := email.NewOutbox(log, msgBroker, cfg.Outbox.Size, cfg.Outbox.PublishTimeout, collector)

	outboxCtx, stopOutbox := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		outbox.Run(outboxCtx)
	}()

	sessions := session.New(kv, cfg.Tokens.TTL)
	gate := verification.New(log, kv, cfg.Verification, collector)
	usersCache := cache.New(log, kv, cache.UsersKey, cfg.Cache.TTL, auth.PublicUsersLoader(storage), collector)
	todosCache := cache.New(log, kv, cache.TodosKey, cfg.Cache.TTL, storage.Todos, collector)

	authService := auth.New(log, storage, storage, sessions, gate, usersCache, todosCache, outbox, cfg.Tokens.Secret, cfg.Tokens.TTL)
	todoService := todo.New(log, storage, todosCache)

	router := setupRouter(log, cfg, authService, todoService, registry)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	stopOutbox()
	wg.Wait()

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	authService *auth.Auth,
	todoService *todo.Service,
	registry *prometheus.Registry,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	authenticated := authorize.New(log, authService)
	adminOnly := authorize.RequireRole(models.RoleAdmin)
	anyRole := authorize.RequireRole(models.RoleAdmin, models.RoleUser)

	r.Route("/auth", func(r chi.Router) {
		r.With(ratelimit.Register()).Post("/register", register.New(log, validate, authService))
		r.With(ratelimit.Verify()).Post("/verify", verify.New(log, validate, authService))
		r.With(ratelimit.ResendVerificationCode()).Post("/verify/resend", resend.New(log, validate, authService))
		r.With(ratelimit.Login()).Post("/login", login.New(log, validate, authService))
		r.With(ratelimit.Logout(), authenticated).Post("/logout", logout.New(log, authService))
	})

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.API(), authenticated)

		r.With(adminOnly).Get("/users", users.List(log, authService))
		r.With(adminOnly).Delete("/users/{id}", users.Delete(log, authService))

		r.Route("/todo", func(r chi.Router) {
			r.With(anyRole).Post("/", todos.Create(log, validate, todoService))
			r.With(adminOnly).Get("/", todos.List(log, todoService))
			r.With(anyRole).Get("/user/{userId}", todos.ListByUser(log, todoService))
			r.With(adminOnly).Get("/{id}", todos.Get(log, todoService))
			r.With(adminOnly).Put("/{id}", todos.Update(log, validate, todoService))
			r.With(adminOnly).Delete("/{id}", todos.Delete(log, todoService))
		})
	})

	r.Handle("/metrics", metrics.Handler(registry))

	return r
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
	case envProd:
		fallthrough
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
