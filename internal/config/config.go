package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storefront configures the shopper-facing service.
type Storefront struct {
	// Server
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	// Backend the storefront consumes
	APIBaseURL string
	APITimeout time.Duration

	// Catalog
	CatalogSource         string // http | mock
	CatalogFallbackToMock bool

	// Cart
	CartKeyMode       string // product | variant
	CartAutoCloseWait time.Duration

	// Shopper sessions
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration

	// Persistence
	StorageDriver  string // sqlite | redis | mongo | memory
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	MongoURI       string
	MongoDBName    string
	StorageTimeout time.Duration

	// Payments
	PaymentSimulation  bool
	SimulationSuccess  float64
	SimulationDelay    time.Duration
	PaymentTimeout     time.Duration
	VerificationWindow time.Duration

	// Circuit breaker
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// API configures the /api backend.
type API struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	CORSOrigins     []string

	// Shopify
	ShopifyStoreDomain string
	ShopifyAccessToken string
	ShopifyAPIVersion  string

	// Razorpay
	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string

	// Mongo (status checks)
	MongoURI    string
	MongoDBName string

	// Postgres (orders + outbox)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis (catalog cache)
	EnableCache bool
	RedisAddr   string
	CacheTTL    time.Duration

	// Kafka
	KafkaBrokers []string
	KafkaTopic   string
	OutboxTick   time.Duration

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// LoadEnv reads a .env file when one exists. Missing files are not an error.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func NewStorefront() *Storefront {
	return &Storefront{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: int64(getEnvAsInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		APIBaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8001"), "/"),
		APITimeout: getEnvAsDuration("API_TIMEOUT", 30*time.Second),

		CatalogSource:         getEnv("CATALOG_SOURCE", "http"),
		CatalogFallbackToMock: getEnvAsBool("CATALOG_FALLBACK_TO_MOCK", true),

		CartKeyMode:       getEnv("CART_KEY_MODE", "product"),
		CartAutoCloseWait: getEnvAsDuration("CART_AUTO_CLOSE", 2*time.Second),

		SessionIdleTTL:       getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionSweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),

		StorageDriver:  getEnv("STORAGE_DRIVER", "sqlite"),
		SQLitePath:     getEnv("SQLITE_PATH", "./undhyu.db"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "undhyu"),
		StorageTimeout: getEnvAsDuration("STORAGE_TIMEOUT", 3*time.Second),

		PaymentSimulation:  getEnvAsBool("PAYMENT_SIMULATION", false),
		SimulationSuccess:  getEnvAsFloat("PAYMENT_SIMULATION_SUCCESS_RATE", 0.9),
		SimulationDelay:    getEnvAsDuration("PAYMENT_SIMULATION_DELAY", 2*time.Second),
		PaymentTimeout:     getEnvAsDuration("PAYMENT_TIMEOUT", 15*time.Second),
		VerificationWindow: getEnvAsDuration("PAYMENT_RESULT_WAIT", 10*time.Minute),

		BreakerMaxFailures: uint32(getEnvAsInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: getEnvAsDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
	}
}

func NewAPI() *API {
	return &API{
		HTTPPort:        getEnv("HTTP_PORT", "8001"),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),

		ShopifyStoreDomain: getEnv("SHOPIFY_STORE_DOMAIN", ""),
		ShopifyAccessToken: getEnv("SHOPIFY_STOREFRONT_ACCESS_TOKEN", ""),
		ShopifyAPIVersion:  getEnv("SHOPIFY_API_VERSION", "2024-01"),

		RazorpayKeyID:     getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),

		MongoURI:    getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDBName: getEnv("DB_NAME", "undhyu"),

		DBHost:     getEnv("PG_HOST", "localhost"),
		DBPort:     getEnvAsInt("PG_PORT", 5432),
		DBUser:     getEnv("PG_USER", "postgres"),
		DBPassword: getEnv("PG_PASSWORD", "postgres"),
		DBName:     getEnv("PG_DB", "undhyu"),

		EnableCache: getEnvAsBool("ENABLE_CACHE", true),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:    getEnvAsDuration("CACHE_TTL", 15*time.Minute),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "orders-outbox"),
		OutboxTick:   getEnvAsDuration("OUTBOX_TICK", time.Second),

		BreakerMaxFailures: uint32(getEnvAsInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: getEnvAsDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
	}
}

// Validate reports settings the backend cannot start without.
func (c *API) Validate() error {
	var missing []string
	if c.ShopifyStoreDomain == "" {
		missing = append(missing, "SHOPIFY_STORE_DOMAIN")
	}
	if c.ShopifyAccessToken == "" {
		missing = append(missing, "SHOPIFY_STOREFRONT_ACCESS_TOKEN")
	}
	if c.RazorpayKeyID == "" {
		missing = append(missing, "RAZORPAY_KEY_ID")
	}
	if c.RazorpayKeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
