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

	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/metrics"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", cfg.ServiceName)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if cfg.MigrationsAuto {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			log.Error("migrate", "error", err)
			os.Exit(1)
		}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCommitted, 1024, log)
	prod.Start(ctx)

	m := metrics.New()
	cat := &catalog.PostgresStore{DB: db}
	status := &orders.StatusCache{Redis: rdb}
	orderStore := &orders.PostgresStore{DB: db}
	carts := cart.NewService(&cart.PostgresStore{DB: db}, cat, cart.NewRedisCache(rdb), log)

	engine := &orders.Engine{
		Orders:      orderStore,
		Catalog:     cat,
		Pruner:      carts,
		Publisher:   &orders.KafkaPublisher{Producer: prod, Service: cfg.ServiceName},
		Status:      status,
		Metrics:     m,
		Log:         log,
		Concurrency: cfg.CommitConcurrency,
	}
	co := &checkout.Service{
		Planner: &checkout.Planner{Carts: carts, Catalog: cat, Addresses: &address.PostgresBook{DB: db}},
		Drafts:  &checkout.RedisDraftStore{Redis: rdb, TTL: cfg.DraftTTL},
		Engine:  engine,
		Log:     log,
	}

	router := httpx.NewRouter(m)
	(&httpx.ProductsHandler{Catalog: cat, Log: log}).Register(router)
	(&httpx.CartHandler{Carts: carts, Log: log}).Register(router)
	(&httpx.CheckoutHandler{Checkout: co, Log: log}).Register(router)
	(&httpx.OrdersHandler{Orders: &orders.Service{Orders: orderStore, Status: status, Log: log}, Log: log}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	// handlers still running after a timed-out shutdown get ErrProducerClosed
	prod.Close()
	prod.WaitClosed()
}
