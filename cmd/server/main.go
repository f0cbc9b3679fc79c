package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/basket"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/catalog"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/checkout"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/events"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/httpapi"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/order"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/payment"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/profile"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/webhook"
	"github.com/JorgeRiveraMancilla/go-store-api/pkg/keylock"
	"github.com/JorgeRiveraMancilla/go-store-api/pkg/metrics"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Storage backends. "memory" needs no external services; "postgres" /
	// "mongo" connect at startup like the upstream services they replace.
	CatalogBackend string
	BasketBackend  string

	PostgresHost      string
	PostgresPort      int
	PostgresUser      string
	PostgresPassword  string
	PostgresDB        string
	MigrationsDirPath string

	MongoURI string
	MongoDB  string

	RedisAddr string

	KafkaBrokers string
	KafkaTopic   string

	GatewayBaseURL       string
	GatewaySecretKey     string
	GatewayWebhookSecret string

	SeedFilePath string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		CatalogBackend: getEnv("CATALOG_BACKEND", "memory"),
		BasketBackend:  getEnv("BASKET_BACKEND", "memory"),

		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:      getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:  getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:        getEnv("POSTGRES_DB", "store"),
		MigrationsDirPath: getEnv("MIGRATIONS_DIR", "migrations"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "store"),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-events"),

		GatewayBaseURL:       getEnv("PAYMENT_GATEWAY_URL", ""),
		GatewaySecretKey:     getEnv("PAYMENT_SECRET_KEY", ""),
		GatewayWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),

		SeedFilePath: getEnv("SEED_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalogStore, ledger := buildStores(cfg)
	basketRepo := buildBasketRepo(ctx, cfg)
	basketCache := buildBasketCache(cfg)

	if cfg.SeedFilePath != "" {
		seedCatalog(ctx, cfg, catalogStore)
	}

	outbox := events.NewOutbox()
	var sink events.Sink = outbox
	if cfg.KafkaBrokers == "" {
		sink = events.NoopSink{}
	} else {
		publisher := events.NewPublisher(outbox, cfg.KafkaTopic, splitBrokers(cfg.KafkaBrokers)...)
		go publisher.Run(ctx)
		defer publisher.Close()
	}

	gateway := payment.NewStripeClient(payment.StripeConfig{
		BaseURL:       cfg.GatewayBaseURL,
		SecretKey:     cfg.GatewaySecretKey,
		WebhookSecret: cfg.GatewayWebhookSecret,
	})

	locks := keylock.New()
	basketService := basket.NewService(basketRepo, basketCache, catalogStore, locks)
	addressBook := profile.NewMemoryAddressBook()
	checkoutService := checkout.NewService(basketRepo, basketCache, catalogStore, ledger, addressBook, sink, locks)
	if pg, ok := catalogStore.(*catalog.PostgresStore); ok {
		// Catalog and ledger live in the same database here, so the stock
		// decrements and the order insert can share one transaction.
		checkoutService = checkoutService.WithAtomicReserver(checkout.NewPostgresReserver(pg.DB()))
	}
	paymentService := payment.NewService(gateway, basketRepo, basketCache, catalogStore, locks)
	reconciler := webhook.NewReconciler(gateway, ledger, sink)

	m := metrics.NewServerMetrics("api")
	router := httpapi.NewRouter(httpapi.Handlers{
		Products: httpapi.NewProductHandler(catalogStore),
		Baskets:  httpapi.NewBasketHandler(basketService),
		Orders:   httpapi.NewOrderHandler(checkoutService, ledger),
		Payments: httpapi.NewPaymentHandler(paymentService, reconciler),
	}, m, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "store-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("store API starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}

func buildStores(cfg *Config) (catalog.Store, order.Ledger) {
	if cfg.CatalogBackend != "postgres" {
		return catalog.NewMemoryStore(), order.NewMemoryLedger()
	}

	catalogCred := &catalog.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsDirPath,
	}
	catalogStore, err := catalog.NewPostgresStore(catalogCred)
	if err != nil {
		log.Fatalf("failed to connect catalog store: %v", err)
	}
	if err := catalogStore.RunMigrations(catalogCred); err != nil {
		log.Fatalf("failed to run catalog migrations: %v", err)
	}

	ledgerCred := &order.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsDirPath,
	}
	ledger, err := order.NewPostgresLedger(ledgerCred)
	if err != nil {
		log.Fatalf("failed to connect order ledger: %v", err)
	}
	if err := ledger.RunMigrations(ledgerCred); err != nil {
		log.Fatalf("failed to run order migrations: %v", err)
	}

	return catalogStore, ledger
}

func buildBasketRepo(ctx context.Context, cfg *Config) basket.Repository {
	if cfg.BasketBackend != "mongo" {
		return basket.NewMemoryRepository()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	db, err := basket.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("failed to connect basket repository: %v", err)
	}
	return basket.NewMongoRepository(db)
}

func buildBasketCache(cfg *Config) basket.Cache {
	if cfg.RedisAddr == "" {
		return basket.NoopCache{}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return basket.NewRedisCache(client)
}

func seedCatalog(ctx context.Context, cfg *Config, store catalog.Store) {
	inserter, ok := store.(catalog.Inserter)
	if !ok {
		log.Printf("catalog backend does not support seeding, skipping")
		return
	}

	if pg, ok := store.(*catalog.PostgresStore); ok {
		count, err := pg.Count(ctx)
		if err != nil {
			log.Printf("failed to count products before seeding: %v", err)
			return
		}
		if count > 0 {
			return
		}
	}

	n, err := catalog.SeedFromFile(ctx, inserter, cfg.SeedFilePath)
	if err != nil {
		log.Printf("failed to seed catalog: %v", err)
		return
	}
	log.Printf("seeded catalog with %d products", n)
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
