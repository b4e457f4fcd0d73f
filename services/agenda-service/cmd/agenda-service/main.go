package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plicometria/agenda/libs/config"
	"github.com/plicometria/agenda/libs/db"
	"github.com/plicometria/agenda/libs/httpx"
	"github.com/plicometria/agenda/libs/kafkax"
	otelx "github.com/plicometria/agenda/libs/otel"
	"github.com/plicometria/agenda/libs/redisx"
	"github.com/plicometria/agenda/libs/runtime"
	"github.com/plicometria/agenda/services/agenda-service/internal/cache"
	"github.com/plicometria/agenda/services/agenda-service/internal/consumer"
	"github.com/plicometria/agenda/services/agenda-service/internal/handlers"
	"github.com/plicometria/agenda/services/agenda-service/internal/inbox"
	"github.com/plicometria/agenda/services/agenda-service/internal/outbox"
	"github.com/plicometria/agenda/services/agenda-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "agenda-service")
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

	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 2)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if dir := config.String("MIGRATIONS_DIR", "migrations"); dir != "" {
		if err := db.Migrate(ctx, pool, dir); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}

	outboxRepo := outbox.NewRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	serviceRepo := storage.NewServiceRepository(pool)
	billRepo := storage.NewBillRepository(pool, outboxRepo)

	var rdb *redis.Client
	var backing cache.Backing
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redisx.Open(redisx.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		backing = cache.NewRedisBacking(rdb, config.String("CACHE_KEY", cache.DefaultKey))
	}
	reconciler := cache.NewReconciler(appointmentRepo, backing, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	if brokers != "" {
		// Each instance keeps its own consumer group so every one of them
		// observes every appointment event and can fold it into its cache.
		// The inbox dedupe is scoped to the same group: the table is shared,
		// and an unscoped claim by one instance would starve the others.
		groupID := config.String("KAFKA_GROUP_ID", service+"-"+uuid.NewString()[:8])
		inboxRepo := inbox.NewRepository(pool, groupID)
		invalidate := consumer.InvalidationHandler(reconciler, logger)
		for _, topic := range []string{outbox.EventAppointmentCreated, outbox.EventAppointmentUpdated} {
			eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
				Brokers: brokers,
				GroupID: groupID,
				Topic:   topic,
			}, invalidate)
			go eventConsumer.Run(ctx)
		}
	}

	appointmentHandler := handlers.NewAppointmentHandler(appointmentRepo, serviceRepo, billRepo, outboxRepo, reconciler, logger)
	calendarHandler := handlers.NewCalendarHandler(reconciler, logger)
	billHandler := handlers.NewBillHandler(billRepo, logger)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			appointmentHandler.Create(w, r)
			return
		}
		appointmentHandler.List(w, r)
	})
	mux.HandleFunc("/api/v1/appointments/update", appointmentHandler.Update)
	mux.HandleFunc("/api/v1/calendar/events", calendarHandler.Events)
	mux.HandleFunc("/api/v1/bills", billHandler.List)

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 300)
	var limiter httpx.Middleware
	if rdb != nil {
		limiter = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service).Middleware(logger, true)
	} else {
		limiter = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		limiter,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "agenda")
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
