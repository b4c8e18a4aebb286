package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrops/internal/domain/adjustments"
	"hrops/internal/domain/audit"
	"hrops/internal/domain/auth"
	"hrops/internal/domain/employees"
	"hrops/internal/domain/notifications"
	"hrops/internal/platform/config"
	"hrops/internal/platform/db"
	"hrops/internal/platform/email"
	"hrops/internal/platform/metrics"
	"hrops/internal/transport/http/api"
	adjustmentshandler "hrops/internal/transport/http/handlers/adjustments"
	audithandler "hrops/internal/transport/http/handlers/audit"
	authhandler "hrops/internal/transport/http/handlers/auth"
	employeeshandler "hrops/internal/transport/http/handlers/employees"
	notificationshandler "hrops/internal/transport/http/handlers/notifications"
	"hrops/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	collector := metrics.New()

	authService := auth.NewService(auth.NewStore(pool))
	employeeService := employees.NewService(employees.NewStore(pool))
	auditService := audit.New(pool)

	notificationService := notifications.New(notifications.NewStore(pool), email.New(cfg))
	notificationService.DefaultFrom = cfg.EmailFrom
	gateway := notifications.NewGateway(notificationService, authService)

	adjustmentService := adjustments.NewService(adjustments.NewStore(pool), authService, gateway)
	idempotency := middleware.NewIdempotencyStore(pool)

	isProd := cfg.Environment == "production"

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(isProd))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, authService))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authService, cfg.JWTSecret, cfg.TokenTTL)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Post("/auth/refresh", authHandler.HandleRefresh)
		r.Get("/auth/me", authHandler.HandleMe)

		adjustmentsHandler := adjustmentshandler.NewHandler(adjustmentService, authService, auditService, idempotency, collector)
		adjustmentsHandler.RegisterRoutes(r)

		employeesHandler := employeeshandler.NewHandler(employeeService, authService, auditService)
		employeesHandler.RegisterRoutes(r)

		notificationsHandler := notificationshandler.NewHandler(notificationService)
		notificationsHandler.RegisterRoutes(r)

		auditHandler := audithandler.NewHandler(auditService, authService)
		auditHandler.RegisterRoutes(r)
	})

	log.Printf("hrops server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
