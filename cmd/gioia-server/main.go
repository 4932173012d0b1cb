package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/victorwp288/gioia-beauty-sub001/internal/catalog"
	"github.com/victorwp288/gioia-beauty-sub001/internal/handlers"
	"github.com/victorwp288/gioia-beauty-sub001/internal/hours"
	"github.com/victorwp288/gioia-beauty-sub001/internal/outbox"
	"github.com/victorwp288/gioia-beauty-sub001/internal/storage"
	"github.com/victorwp288/gioia-beauty-sub001/libs/config"
	"github.com/victorwp288/gioia-beauty-sub001/libs/db"
	"github.com/victorwp288/gioia-beauty-sub001/libs/httpx"
	"github.com/victorwp288/gioia-beauty-sub001/libs/kafkax"
	otelx "github.com/victorwp288/gioia-beauty-sub001/libs/otel"
	"github.com/victorwp288/gioia-beauty-sub001/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "gioia-server")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	table := hours.Default()
	if err := table.Validate(); err != nil {
		panic(err)
	}
	cat, err := catalog.New(catalog.Default())
	if err != nil {
		panic(err)
	}

	appointmentRepo := storage.NewAppointmentRepository(pool, logger)
	vacationRepo := storage.NewVacationRepository(pool, logger)
	newsletterRepo := storage.NewNewsletterRepository(pool)
	outboxRepo := outbox.NewRepository()

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	policy := handlers.SlotPolicy{
		Step:        config.Minutes("SLOT_STEP_MINUTES", 10*time.Minute),
		MinLeadTime: config.Minutes("BOOKING_MIN_LEAD_MINUTES", 60*time.Minute),
	}
	window := handlers.CountsWindow{
		MonthsBack:    config.Int("COUNTS_MONTHS_BACK", 3),
		MonthsForward: config.Int("COUNTS_MONTHS_FORWARD", 6),
	}

	bookingHandler := handlers.NewBookingHandler(appointmentRepo, vacationRepo, outboxRepo, cat, table, policy, logger)
	appointmentsHandler := handlers.NewAppointmentsHandler(appointmentRepo, window, logger)
	vacationHandler := handlers.NewVacationHandler(vacationRepo, appointmentRepo, logger)
	catalogHandler := handlers.NewCatalogHandler(cat)
	newsletterHandler := handlers.NewNewsletterHandler(newsletterRepo, outboxRepo, logger)
	adminAuth := handlers.NewAdminAuth(
		config.String("ADMIN_PASSWORD_BCRYPT", ""),
		config.String("ADMIN_JWT_SECRET", "dev-secret-change-me"),
		config.Minutes("ADMIN_TOKEN_TTL_MINUTES", 12*time.Hour),
		logger,
	)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	mux.HandleFunc("/api/v1/public/services", catalogHandler.Services)
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Create)
	mux.HandleFunc("/api/v1/public/newsletter/subscribe", newsletterHandler.Subscribe)
	mux.HandleFunc("/api/v1/public/newsletter/unsubscribe", newsletterHandler.Unsubscribe)

	mux.HandleFunc("/api/v1/admin/login", adminAuth.Login)
	mux.Handle("/api/appointments/by-date", adminAuth.Require(http.HandlerFunc(appointmentsHandler.ByDate)))
	mux.Handle("/api/appointments/counts", adminAuth.Require(http.HandlerFunc(appointmentsHandler.Counts)))
	mux.Handle("/api/v1/admin/appointments/cancel", adminAuth.Require(http.HandlerFunc(bookingHandler.Cancel)))
	mux.Handle("GET /api/v1/admin/vacations", adminAuth.Require(http.HandlerFunc(vacationHandler.List)))
	mux.Handle("POST /api/v1/admin/vacations", adminAuth.Require(http.HandlerFunc(vacationHandler.Create)))
	mux.Handle("DELETE /api/v1/admin/vacations/{id}", adminAuth.Require(http.HandlerFunc(vacationHandler.Delete)))
	mux.Handle("/api/v1/admin/newsletter/subscribers", adminAuth.Require(http.HandlerFunc(newsletterHandler.List)))

	middleware := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(corsPolicy()),
		httpx.WithBodyLimit(int64(config.Int("BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(30 * time.Second),
	}
	middleware = append(middleware, rateLimitMiddleware(logger))

	httpHandler := httpx.Chain(mux, middleware...)
	httpHandler = otelhttp.NewHandler(httpHandler, "gioia")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func corsPolicy() httpx.CORSPolicy {
	var origins []string
	for _, o := range strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return httpx.CORSPolicy{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           10 * time.Minute,
	}
}

// rateLimitMiddleware prefers the Redis fixed-window limiter so multiple
// instances share a budget; without REDIS_ADDR it falls back in-process.
func rateLimitMiddleware(logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: config.String("REDIS_PASSWORD", "")})
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "gioia").Middleware(logger, true)
	}
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}
