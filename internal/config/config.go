package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"products-dashboard/internal/models"
)

// Audit database drivers
const (
	AuditDriverPostgres = "postgres"
	AuditDriverSQLite   = "sqlite"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Snapshot
	SnapshotSource   string
	SnapshotCacheTTL time.Duration

	// Remote products API
	APIBaseURL string
	APITimeout time.Duration

	// Redis
	RedisURL string

	// NATS
	NATSURL string

	// Audit database
	AuditDBDriver   string
	DBHost          string
	DBPort          int
	DBUser          string
	DBPassword      string
	DBName          string
	DBSSLMode       string
	AuditSQLitePath string

	// Pagination
	DefaultItemsPerPage int
	MaxItemsPerPage     int

	// Sessions
	SessionIdleTimeout time.Duration

	// CORS
	CORSAllowedOrigins []string
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultItemsPerPage, _ := strconv.Atoi(getEnv("DEFAULT_ITEMS_PER_PAGE", "10"))
	maxItemsPerPage, _ := strconv.Atoi(getEnv("MAX_ITEMS_PER_PAGE", "100"))

	cfg := &Config{
		// Server
		Port:        getEnv("PORT", "8088"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Snapshot
		SnapshotSource:   getEnv("SNAPSHOT_SOURCE", "data.json"),
		SnapshotCacheTTL: getDuration("SNAPSHOT_CACHE_TTL", 5*time.Minute),

		// Remote products API
		APIBaseURL: strings.TrimSuffix(getEnv("API_BASE_URL", "https://api.escuelajs.co/api/v1"), "/"),
		APITimeout: getDuration("API_TIMEOUT", 15*time.Second),

		// Redis and NATS are optional: empty disables them
		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),

		// Audit database
		AuditDBDriver:   strings.ToLower(getEnv("AUDIT_DB_DRIVER", "")),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          dbPort,
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", ""),
		DBName:          getEnv("DB_NAME", "products_dashboard"),
		DBSSLMode:       getEnv("DB_SSLMODE", "disable"),
		AuditSQLitePath: getEnv("AUDIT_SQLITE_PATH", "dashboard_audit.db"),

		// Pagination
		DefaultItemsPerPage: defaultItemsPerPage,
		MaxItemsPerPage:     maxItemsPerPage,

		// Sessions
		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),

		// CORS
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8088")),
	}

	if cfg.DefaultItemsPerPage < 1 {
		cfg.DefaultItemsPerPage = 10
	}
	if cfg.MaxItemsPerPage < cfg.DefaultItemsPerPage {
		cfg.MaxItemsPerPage = cfg.DefaultItemsPerPage
	}
	return cfg
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// InitAuditDB opens the audit database for the configured driver and migrates
// the audit table. It returns nil, nil when auditing is disabled.
func InitAuditDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.AuditDBDriver {
	case "":
		return nil, nil
	case AuditDriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	case AuditDriverSQLite:
		dialector = sqlite.Open(cfg.AuditSQLitePath)
	default:
		return nil, fmt.Errorf("unsupported AUDIT_DB_DRIVER %q", cfg.AuditDBDriver)
	}

	var logLevel logger.LogLevel
	if cfg.IsProduction() {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	log.Println("Running audit auto-migrations...")
	if err := db.AutoMigrate(&models.AuditEntry{}); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Audit auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("WARNING: invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
