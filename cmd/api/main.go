package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/order-orchestrator/internal/api"
	"github.com/example/order-orchestrator/internal/auth"
	"github.com/example/order-orchestrator/internal/config"
	"github.com/example/order-orchestrator/internal/infrastructure/gateway"
	"github.com/example/order-orchestrator/internal/infrastructure/kafka"
	"github.com/example/order-orchestrator/internal/infrastructure/lock"
	"github.com/example/order-orchestrator/internal/infrastructure/store"
	"github.com/example/order-orchestrator/internal/metrics"
	"github.com/example/order-orchestrator/internal/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Order Orchestrator")
	log.Println("[API] ========================================")
	log.Printf("[API] Store: %s", cfg.OrderStore)
	log.Printf("[API] Kafka: %v (topic %s)", cfg.KafkaBrokers, cfg.KafkaTopic)

	orders, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[API] Failed to open %s store: %v", cfg.OrderStore, err)
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := orchestrator.Deps{
		Store:    orders,
		Clients:  gateway.NewClientGateway(cfg.ClientsURL, &http.Client{Timeout: cfg.GatewayTimeout}),
		Products: gateway.NewProductGateway(cfg.ProductsURL, &http.Client{Timeout: cfg.GatewayTimeout}),
		Stock:    gateway.NewStockGateway(cfg.StockURL, &http.Client{Timeout: cfg.GatewayTimeout}),
		Payments: gateway.NewPaymentGateway(cfg.PaymentsURL, &http.Client{Timeout: cfg.GatewayTimeout}),
		Metrics:  metrics.NewOrchestratorMetrics(registry),
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		deps.Events = producer
	} else {
		log.Println("[API] KAFKA_BROKERS not set, order events are not published")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("[API] Failed to connect to Redis: %v", err)
		}
		deps.Locker = lock.NewRedisLocker(rdb, cfg.PaymentLockTTL)
		log.Printf("[API] Payment lock: Redis %s", cfg.RedisAddr)
	} else {
		log.Println("[API] REDIS_ADDR not set, concurrent payments rely on version checks only")
	}

	orch := orchestrator.New(deps, orchestrator.PaymentConfig{
		SellerID:     cfg.Payment.SellerID,
		Currency:     cfg.Payment.Currency,
		ClientID:     cfg.Payment.ClientID,
		ClientSecret: cfg.Payment.ClientSecret,
		Scope:        cfg.Payment.Scope,
		PollAttempts: cfg.Payment.PollAttempts,
		PollInterval: cfg.Payment.PollInterval,

		PublishTimeout: cfg.PublishTimeout,
	})

	router := api.NewRouter(api.NewHandlers(orch), api.RouterConfig{
		JWT:            auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, time.Hour),
		Metrics:        metrics.NewServerMetrics(registry, "api"),
		Gatherer:       registry,
		RequestTimeout: cfg.RequestTimeout,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[API] Server started on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[API] Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("[API] Server error: %v", err)
	}
	log.Println("[API] Stopped")
}

// openStore connects the configured order store and returns its cleanup
func openStore(ctx context.Context, cfg *config.Config) (store.OrderStore, func(), error) {
	switch cfg.OrderStore {
	case config.StoreDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[API] Using DynamoDB table %s", cfg.DynamoDBTable)
		return store.NewDynamoOrderStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable), func() {}, nil
	default:
		db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := store.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Println("[API] Connected to PostgreSQL, migrations applied")
		return store.NewPostgresOrderStore(db), func() { db.Close() }, nil
	}
}
