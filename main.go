package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	appcart "github.com/shopcore/cartservice/internal/application/cart"
	appcheckout "github.com/shopcore/cartservice/internal/application/checkout"
	appreaper "github.com/shopcore/cartservice/internal/application/reaper"
	domaincart "github.com/shopcore/cartservice/internal/domain/cart"
	domaincatalog "github.com/shopcore/cartservice/internal/domain/catalog"
	"github.com/shopcore/cartservice/internal/domain/order"
	"github.com/shopcore/cartservice/internal/domain/outbox"
	catalogcache "github.com/shopcore/cartservice/internal/infrastructure/catalog"
	"github.com/shopcore/cartservice/internal/infrastructure/events"
	"github.com/shopcore/cartservice/internal/infrastructure/httpapi"
	"github.com/shopcore/cartservice/internal/infrastructure/id"
	"github.com/shopcore/cartservice/internal/infrastructure/memory"
	"github.com/shopcore/cartservice/internal/infrastructure/payment"
	"github.com/shopcore/cartservice/internal/infrastructure/sqlite"
	"github.com/shopcore/cartservice/internal/infrastructure/worker"
	"github.com/shopcore/cartservice/internal/pkg/config"
	"github.com/shopcore/cartservice/internal/pkg/logging"
)

func main() {
	cfg := config.Load()

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cartRepo, catalogRepo, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		logger.Fatal("store_init_failed", zap.Error(err))
	}
	defer cleanup()

	cachedCatalog := catalogcache.New(catalogRepo, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)

	checkoutOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_attempts_total",
			Help: "Checkout attempts by terminal outcome.",
		},
		[]string{"outcome"},
	)
	reapedLines := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cart_lines_reaped_total",
			Help: "Cart lines removed by the TTL reaper.",
		},
	)
	httpMetrics := httpapi.Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		Durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
	prometheus.MustRegister(checkoutOutcomes, reapedLines, httpMetrics.Requests, httpMetrics.Durations)

	bus := events.NewBus(logger)
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	if cfg.AMQPURL != "" {
		relay, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal("amqp_connect_failed", zap.Error(err))
		}
		defer relay.Close()
		bus.Subscribe(order.CheckoutCompletedEvent{}.EventName(), relay.Relay)
		bus.Subscribe(order.CheckoutFailedEvent{}.EventName(), relay.Relay)
		logger.Info("amqp_relay_enabled", zap.String("exchange", cfg.AMQPExchange))
	}
	bus.Subscribe(order.CheckoutCompletedEvent{}.EventName(), logCheckoutEvent(logger))

	cartService := appcart.NewService(cartRepo, cachedCatalog)
	checkoutService := appcheckout.NewService(
		cartRepo,
		payment.NewSimulatedGateway(cfg.PaymentSuccessRate),
		id.NewUUIDGenerator(),
		bus,
		checkoutOutcomes,
		cfg.IdempotencyTTL,
	)

	reaperWorker := worker.NewReaper(
		appreaper.NewService(cartRepo, cfg.CartTTL),
		cfg.ReapInterval,
		logger,
		reapedLines,
	)
	reaperWorker.Start(ctx)
	defer reaperWorker.Stop()

	handler := httpapi.NewHandler(cartService, checkoutService)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", httpapi.Observability(logger, httpMetrics)(handler.Router()))

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: cors.Default().Handler(mux),
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}

// buildStores picks SQLite when a path is configured, in-memory otherwise.
// Both are seeded with the same demo catalog; product data is owned by the
// catalog service in production and read-only here.
func buildStores(ctx context.Context, cfg config.Config) (domaincart.Repository, domaincatalog.Repository, func(), error) {
	if cfg.DBPath == "" {
		return memory.NewCartRepository(), memory.NewCatalogRepository(demoProducts()...), func() {}, nil
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := sqlite.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	catalogRepo := sqlite.NewCatalogRepository(db)
	if err := catalogRepo.Seed(ctx, demoProducts()); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	return sqlite.NewCartRepository(db), catalogRepo, func() { _ = db.Close() }, nil
}

func demoProducts() []domaincatalog.Product {
	return []domaincatalog.Product{
		{ID: 1, Name: "Wireless Mouse", Price: 24.90, Stock: 120},
		{ID: 2, Name: "Mechanical Keyboard", Price: 89.00, Stock: 45},
		{ID: 3, Name: "USB-C Hub", Price: 39.50, Stock: 80},
		{ID: 4, Name: "27in Monitor", Price: 249.00, Stock: 15},
		{ID: 5, Name: "Laptop Stand", Price: 32.00, Stock: 60},
		{ID: 6, Name: "Webcam", Price: 59.90, Stock: 30},
	}
}

func logCheckoutEvent(logger *zap.Logger) outbox.Handler {
	return func(ctx context.Context, e outbox.Event) error {
		_ = ctx
		evt, ok := e.(order.CheckoutCompletedEvent)
		if !ok {
			return nil
		}
		logger.Info("checkout_completed_event",
			zap.String("attempt_id", evt.AttemptID),
			zap.String("user_id", evt.UserID),
			zap.Int("lines", evt.LineCount),
		)
		return nil
	}
}
