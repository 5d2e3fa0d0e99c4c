package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/pollsite/poll-api/internal/config"
	"github.com/pollsite/poll-api/internal/logger"
	"github.com/pollsite/poll-api/internal/storage/migrations"
)

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

// DefaultConnectionConfig returns default connection configuration
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    50,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		MaxRetries:      3,
		RetryDelay:      time.Second * 2,
	}
}

// DatabaseMetrics holds database connection metrics
type DatabaseMetrics struct {
	OpenConnections  int
	InUseConnections int
	IdleConnections  int
}

// Connect establishes a connection to the PostgreSQL database
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return ConnectWithConfig(cfg, DefaultConnectionConfig())
}

// ConnectWithConfig establishes a connection with custom pool and retry settings
func ConnectWithConfig(cfg *config.Config, connCfg *ConnectionConfig) (*gorm.DB, error) {
	log := logger.For(logger.Database, "")

	if err := validateDatabaseConfig(cfg); err != nil {
		log.Error("Database configuration validation failed", "error", err)
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	log.Debug("Connecting to database", "host", cfg.DB.Host, "port", cfg.DB.Port, "database", cfg.DB.Name)

	gormConfig := &gorm.Config{
		Logger: gormLogLevel(cfg),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var db *gorm.DB
	var err error
	retryDelay := connCfg.RetryDelay

	for attempt := 1; attempt <= connCfg.MaxRetries; attempt++ {
		log.Debug("Database connection attempt", "attempt", attempt, "max_retries", connCfg.MaxRetries)

		db, err = gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormConfig)
		if err == nil {
			break
		}

		log.Warn("Database connection failed", "attempt", attempt, "error", err)
		if attempt < connCfg.MaxRetries {
			time.Sleep(retryDelay)
			retryDelay *= 2
		}
	}
	if err != nil {
		log.Error("Failed to connect to database after retries", "error", err, "attempts", connCfg.MaxRetries)
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connCfg.MaxRetries, err)
	}

	if err := configureConnectionPool(db, connCfg); err != nil {
		return nil, fmt.Errorf("failed to configure connection pool: %w", err)
	}

	if err := HealthCheck(db); err != nil {
		log.Error("Database connection test failed", "error", err)
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	log.Info("Successfully connected to PostgreSQL database",
		"host", cfg.DB.Host,
		"database", cfg.DB.Name,
		"max_open_conns", connCfg.MaxOpenConns,
		"max_idle_conns", connCfg.MaxIdleConns)

	return db, nil
}

func gormLogLevel(cfg *config.Config) gormLogger.Interface {
	if cfg.Server.GinMode == "debug" {
		return gormLogger.Default.LogMode(gormLogger.Info)
	}
	return gormLogger.Default.LogMode(gormLogger.Silent)
}

func validateDatabaseConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if cfg.DB.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if cfg.DB.Port == "" {
		return fmt.Errorf("database port cannot be empty")
	}
	if cfg.DB.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if cfg.DB.User == "" {
		return fmt.Errorf("database user cannot be empty")
	}
	return nil
}

func configureConnectionPool(db *gorm.DB, cfg *ConnectionConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return nil
}

// GetDatabaseMetrics returns current database connection metrics
func GetDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	sqlDB, err := db.DB()
	if err != nil {
		return &DatabaseMetrics{}
	}

	stats := sqlDB.Stats()
	return &DatabaseMetrics{
		OpenConnections:  stats.OpenConnections,
		InUseConnections: stats.InUse,
		IdleConnections:  stats.Idle,
	}
}

// HealthCheck pings the database with a five second timeout
func HealthCheck(db *gorm.DB) error {
	return HealthCheckWithTimeout(db, 5*time.Second)
}

// HealthCheckWithTimeout pings the database with a custom timeout
func HealthCheckWithTimeout(db *gorm.DB, timeout time.Duration) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// AutoMigrate applies every pending schema migration
func AutoMigrate(db *gorm.DB, settings migrations.Settings) error {
	log := logger.For(logger.Migrations, "")
	log.Info("Starting database migrations...", "user_table", settings.UserTable)

	if err := HealthCheck(db); err != nil {
		log.Error("Database health check failed before migrations", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}

	startTime := time.Now()
	if err := migrations.RunMigrations(db, settings); err != nil {
		log.Error("Database migrations failed", "error", err, "duration", time.Since(startTime))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations completed successfully", "duration", time.Since(startTime))
	return nil
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	log := logger.For(logger.Database, "")

	if db == nil {
		log.Warn("Attempted to close nil database connection")
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	metrics := GetDatabaseMetrics(db)
	log.Debug("Database metrics before closing",
		"open_connections", metrics.OpenConnections,
		"in_use_connections", metrics.InUseConnections,
		"idle_connections", metrics.IdleConnections)

	if err := sqlDB.Close(); err != nil {
		log.Error("Failed to close database connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	log.Info("Database connection closed successfully")
	return nil
}
