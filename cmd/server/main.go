package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	catalogHandler "ecommerce/internal/catalog/handler"
	catalogMetrics "ecommerce/internal/catalog/metrics"
	catalogService "ecommerce/internal/catalog/service"
	catalogStore "ecommerce/internal/catalog/store"
	customerHandler "ecommerce/internal/customer/handler"
	customerMetrics "ecommerce/internal/customer/metrics"
	customerService "ecommerce/internal/customer/service"
	customerStore "ecommerce/internal/customer/store"
	jwttoken "ecommerce/internal/jwt_token"
	orderHandler "ecommerce/internal/ordering/handler"
	orderMetrics "ecommerce/internal/ordering/metrics"
	orderService "ecommerce/internal/ordering/service"
	orderStore "ecommerce/internal/ordering/store"
	"ecommerce/internal/platform/config"
	"ecommerce/internal/platform/httpserver"
	"ecommerce/internal/platform/idempotency"
	"ecommerce/internal/platform/kafka/producer"
	"ecommerce/internal/platform/logger"
	"ecommerce/internal/platform/metrics"
	"ecommerce/internal/platform/postgres"
	"ecommerce/internal/platform/ratelimit"
	"ecommerce/internal/platform/redis"
	httptransport "ecommerce/internal/transport/http"
	"ecommerce/pkg/platform/events"
	"ecommerce/pkg/platform/middleware/admin"
	"ecommerce/pkg/platform/middleware/auth"
	"ecommerce/pkg/platform/tx"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// cleanupInterval is how often in-memory idempotency and rate limit stores
// evict expired entries.
const cleanupInterval = time.Minute

// stores groups the three repositories with the runner that spans them.
type stores struct {
	customers interface {
		customerService.Store
		orderService.CustomerStore
	}
	products interface {
		catalogService.Store
		orderService.ProductStore
	}
	orders orderService.OrderStore
	runner tx.Runner
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	health := map[string]httptransport.HealthCheck{}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		health["database"] = db.PingContext
	}
	st := buildStores(db, cfg.Database)
	log.Info("stores ready", "postgres", db != nil, "driver", cfg.Database.Driver)

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = redisClient.Health
	}

	publisher, runEvents, closePublisher, err := buildPublisher(ctx, cfg.Kafka, log, health)
	if err != nil {
		return err
	}
	defer closePublisher()

	customers, err := customerService.New(st.customers, st.runner,
		customerService.WithLogger(log),
		customerService.WithMetrics(customerMetrics.New()),
	)
	if err != nil {
		return err
	}
	catalog, err := catalogService.New(st.products, st.runner,
		catalogService.WithLogger(log),
		catalogService.WithMetrics(catalogMetrics.New()),
		catalogService.WithDefaultCurrency(cfg.DefaultCurrency),
		catalogService.WithLowStockThreshold(cfg.Ordering.LowStockThreshold),
	)
	if err != nil {
		return err
	}
	orders, err := orderService.New(st.orders, st.customers, st.products, st.runner,
		orderService.WithLogger(log),
		orderService.WithMetrics(orderMetrics.New()),
		orderService.WithPublisher(publisher),
		orderService.WithDefaultCurrency(cfg.DefaultCurrency),
	)
	if err != nil {
		return err
	}

	if cfg.SeedDemo {
		if err := seedDemo(ctx, customers, catalog, log); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	jwt := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.Issuer, jwttoken.Audience)
	validator := jwttoken.NewJWTServiceAdapter(jwt)
	backOffice := func(next http.Handler) http.Handler {
		return auth.RequireAuth(validator, log)(admin.RequireAdmin(log)(next))
	}

	httpMetrics := metrics.New()
	idemStore, limitStore, cleanups := buildRedisBackedStores(redisClient)
	idem := idempotency.NewMiddleware(idemStore, cfg.Idempotency.TTL,
		idempotency.WithLogger(log),
		idempotency.WithMetrics(httpMetrics),
	)
	var rateLimit func(http.Handler) http.Handler
	if !cfg.RateLimit.Disabled {
		rateLimit = ratelimit.NewMiddleware(limitStore, cfg.RateLimit.Limit, cfg.RateLimit.Window,
			ratelimit.WithLogger(log),
			ratelimit.WithMetrics(httpMetrics),
		).Handler
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   httpMetrics,
		RateLimit: rateLimit,
		Health:    health,
		Modules: []httptransport.Registrar{
			customerHandler.New(customers, log),
			catalogHandler.New(catalog, log, backOffice),
			orderHandler.New(orders, log, backOffice, idem.Handler),
		},
	})
	srv := httpserver.New(cfg.Addr, router)
	return serve(ctx, func(ctx context.Context) error {
		return httpserver.Run(ctx, srv, log)
	}, runEvents, cleanups...)
}

// serve runs the HTTP server and background workers until ctx ends. Events
// keep flowing until the server has finished shutting down, so requests
// completing during shutdown still reach the sink before it drains.
func serve(ctx context.Context, serveHTTP, runEvents func(context.Context) error, workers ...func(context.Context) error) error {
	eventsCtx, stopEvents := context.WithCancel(context.WithoutCancel(ctx))
	defer stopEvents()

	g, ctx := errgroup.WithContext(ctx)
	if runEvents != nil {
		g.Go(func() error {
			return runEvents(eventsCtx)
		})
	}
	for _, work := range workers {
		g.Go(func() error {
			return work(ctx)
		})
	}
	g.Go(func() error {
		defer stopEvents()
		return serveHTTP(ctx)
	})
	return g.Wait()
}

func buildStores(db *sql.DB, cfg config.DatabaseConfig) stores {
	if db == nil {
		customers := customerStore.NewInMemory()
		products := catalogStore.NewInMemory()
		orders := orderStore.NewInMemory()
		return stores{
			customers: customers,
			products:  products,
			orders:    orders,
			runner:    tx.NewMemoryRunner([]tx.Snapshotter{customers, products, orders}, tx.WithTimeout(cfg.TxTimeout)),
		}
	}
	return stores{
		customers: customerStore.NewPostgres(db),
		products:  catalogStore.NewPostgres(db),
		orders:    orderStore.NewPostgres(db),
		runner:    tx.NewSQLRunner(db, tx.WithTimeout(cfg.TxTimeout)),
	}
}

// buildRedisBackedStores shares idempotency records and rate limit windows
// through Redis when it is configured, otherwise keeps them per process with
// cleanup loops for expired entries.
func buildRedisBackedStores(client *redis.Client) (idempotency.Store, ratelimit.Store, []func(context.Context) error) {
	if client == nil {
		idem := idempotency.NewInMemory()
		limits := ratelimit.NewInMemory()
		cleanups := []func(context.Context) error{
			func(ctx context.Context) error { return idem.StartCleanup(ctx, cleanupInterval) },
			func(ctx context.Context) error { return limits.StartCleanup(ctx, cleanupInterval) },
		}
		return idem, limits, cleanups
	}
	return idempotency.NewRedis(client.Client), ratelimit.NewRedis(client.Client), nil
}

// buildPublisher returns the Kafka-backed dispatcher, its run loop and the
// producer's close func when brokers are configured, otherwise a publisher
// that only logs.
func buildPublisher(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger, health map[string]httptransport.HealthCheck) (events.Publisher, func(context.Context) error, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Info("kafka not configured; order events are logged only")
		return events.NewLogPublisher(log), nil, func() {}, nil
	}
	p, err := producer.New(cfg, producer.WithLogger(log), producer.WithMetrics(producer.NewMetrics()))
	if err != nil {
		return nil, nil, nil, err
	}
	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.EnsureTopic(setupCtx, 3, 1); err != nil {
		log.Warn("kafka topic bootstrap failed", "topic", cfg.OrderTopic, "error", err)
	}
	health["kafka"] = p.Ping

	dispatcher := events.NewDispatcher(p,
		events.WithDispatcherLogger(log),
		events.WithPublishTimeout(cfg.PublishTimeout),
	)
	closeProducer := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.PublishTimeout)
		defer cancel()
		p.Close(closeCtx)
	}
	return dispatcher, dispatcher.Run, closeProducer, nil
}
