package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/pollsite/poll-api/internal/config"
	"github.com/pollsite/poll-api/internal/domain/account"
	"github.com/pollsite/poll-api/internal/domain/poll"
	"github.com/pollsite/poll-api/internal/logger"
	"github.com/pollsite/poll-api/internal/storage/migrations"
)

// Container holds every PostgreSQL repository over one connection pool
type Container struct {
	db        *gorm.DB
	log       *log.Logger
	userTable string
	questions *PostgresQuestionRepository
	choices   *PostgresChoiceRepository
	images    *PostgresImageRepository
	users     *PostgresUserRepository
	inspector *SchemaInspector
}

// NewContainer connects, optionally migrates, and builds all repositories
func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.For(logger.Repository, "postgres_container")
	log.Info("Initializing PostgreSQL repository container...")

	db, err := Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Storage.MigrateOnStart {
		settings := migrations.Settings{UserTable: cfg.Auth.UserTable}
		if err := AutoMigrate(db, settings); err != nil {
			_ = Close(db)
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	container := NewContainerWithDB(db, cfg.Auth.UserTable)
	if err := container.Health(context.Background()); err != nil {
		log.Error("Container health check failed", "error", err)
		_ = Close(db)
		return nil, fmt.Errorf("container health check failed: %w", err)
	}

	log.Info("PostgreSQL repository container initialized successfully")
	return container, nil
}

// NewContainerWithDB creates a container with an existing database connection
func NewContainerWithDB(db *gorm.DB, userTable string) *Container {
	if userTable == "" {
		userTable = migrations.DefaultSettings().UserTable
	}

	return &Container{
		db:        db,
		log:       logger.For(logger.Repository, "postgres_container"),
		userTable: userTable,
		questions: NewPostgresQuestionRepository(db),
		choices:   NewPostgresChoiceRepository(db),
		images:    NewPostgresImageRepository(db),
		users:     NewPostgresUserRepository(db, userTable),
		inspector: NewSchemaInspector(db),
	}
}

// Questions returns the question repository
func (c *Container) Questions() poll.QuestionRepository {
	return c.questions
}

// Choices returns the choice repository
func (c *Container) Choices() poll.ChoiceRepository {
	return c.choices
}

// Images returns the image repository
func (c *Container) Images() poll.ImageRepository {
	return c.images
}

// Users returns the user repository
func (c *Container) Users() account.UserRepository {
	return c.users
}

// Schema returns the catalog inspector for this database
func (c *Container) Schema() *SchemaInspector {
	return c.inspector
}

// Health pings the database and checks every table is reachable
func (c *Container) Health(ctx context.Context) error {
	if err := HealthCheck(c.db); err != nil {
		c.log.Error("Database health check failed", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}

	tables := []string{c.userTable, "questions", "choices", "question_images"}
	for _, table := range tables {
		var count int64
		if err := c.db.WithContext(ctx).Table(table).Limit(1).Count(&count).Error; err != nil {
			c.log.Error("Repository health check failed", "table", table, "error", err)
			return fmt.Errorf("table %s health check failed: %w", table, err)
		}
	}

	metrics := GetDatabaseMetrics(c.db)
	c.log.Debug("Container health check completed",
		"open_connections", metrics.OpenConnections,
		"in_use_connections", metrics.InUseConnections,
		"idle_connections", metrics.IdleConnections)
	return nil
}

// Close shuts down the connection pool
func (c *Container) Close() error {
	c.log.Info("Closing PostgreSQL repository container...")

	if err := Close(c.db); err != nil {
		return err
	}
	c.db = nil
	return nil
}
