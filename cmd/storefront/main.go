package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/4o31/shop/internal/cart"
	"github.com/4o31/shop/internal/catalog"
	"github.com/4o31/shop/internal/checkout"
	"github.com/4o31/shop/internal/discount"
	"github.com/4o31/shop/internal/events"
	"github.com/4o31/shop/internal/httpapi"
	"github.com/4o31/shop/internal/konami"
	"github.com/4o31/shop/internal/kv"
	"github.com/4o31/shop/internal/receipt"
)

type Config struct {
	HTTPPort        string
	RedisAddr       string
	RedisPassword   string
	CatalogDBPath   string
	MigrationsPath  string
	KafkaBrokers    string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		CatalogDBPath:   getEnv("CATALOG_DB_PATH", ""),
		MigrationsPath:  getEnv("CATALOG_MIGRATIONS_PATH", "migrations"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// Storage: Redis when configured, in-process memory otherwise
	var store kv.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		log.Printf("Connected to Redis at %s", cfg.RedisAddr)
		store = kv.NewBreakerStore(kv.NewRedisStore(redisClient))
	} else {
		log.Println("No REDIS_ADDR set, using in-memory storage")
		store = kv.NewMemoryStore()
	}

	// Catalog: SQLite when configured, the fixture otherwise
	var catalogRepo catalog.Repository
	if cfg.CatalogDBPath != "" {
		sqliteRepo, err := catalog.NewSQLiteRepository(cfg.CatalogDBPath)
		if err != nil {
			log.Fatalf("Failed to open catalog database: %v", err)
		}
		defer sqliteRepo.Close()
		if err := sqliteRepo.RunMigrations(cfg.MigrationsPath); err != nil {
			log.Fatalf("Failed to run catalog migrations: %v", err)
		}
		log.Printf("Catalog loaded from %s", cfg.CatalogDBPath)
		catalogRepo = sqliteRepo
	} else {
		catalogRepo = catalog.NewStaticRepository(catalog.DefaultProducts())
	}

	// Receipt events: Kafka when configured
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaBrokers != "" {
		kafkaPublisher := events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ",")...)
		defer kafkaPublisher.Close()
		log.Printf("Publishing receipt events to %s", cfg.KafkaBrokers)
		publisher = kafkaPublisher
	}

	cartSvc := cart.NewService(catalogRepo)
	engine := discount.NewEngine(store, nil)
	ledger := receipt.NewLedger(store)
	sessions := checkout.NewSessionStore()
	defer sessions.Close()
	checkoutSvc := checkout.NewService(cartSvc, engine, ledger, publisher, sessions, nil)
	detector := konami.NewDetector(nil)
	unlocker := konami.NewUnlocker(store, engine)

	productHandler := httpapi.NewProductHandler(catalogRepo, unlocker, cfg.RequestTimeout)
	cartHandler := httpapi.NewCartHandler(cartSvc, cfg.RequestTimeout)
	checkoutHandler := httpapi.NewCheckoutHandler(checkoutSvc, cfg.RequestTimeout)
	receiptHandler := httpapi.NewReceiptHandler(ledger, cfg.RequestTimeout)
	secretHandler := httpapi.NewSecretHandler(detector, unlocker, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httpapi.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(httpapi.MockAuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", productHandler.Get)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/", cartHandler.Clear)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Begin)
			r.Post("/{sessionID}/discount", checkoutHandler.ApplyDiscount)
			r.Post("/{sessionID}/confirm", checkoutHandler.Confirm)
		})
		r.Get("/receipts/{hash}", receiptHandler.Get)
		r.Get("/receipts", receiptHandler.Get)
		r.Post("/secret/keys", secretHandler.PressKey)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
