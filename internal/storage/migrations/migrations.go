package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/pollsite/poll-api/internal/logger"
)

// advisoryLockID serializes concurrent runners on one database
const advisoryLockID int64 = 7254021601

// Settings carries values migrations resolve at run time
type Settings struct {
	// UserTable is the table of the configured user entity
	UserTable string
}

// DefaultSettings returns settings matching the default configuration
func DefaultSettings() Settings {
	return Settings{UserTable: "users"}
}

func (s Settings) userTable() string {
	if s.UserTable == "" {
		return DefaultSettings().UserTable
	}
	return s.UserTable
}

// Migration represents a database migration
type Migration struct {
	ID           string
	Name         string
	Dependencies []string
	Up           func(*gorm.DB) error
	Down         func(*gorm.DB) error
}

// GetMigrations returns all available migrations in registration order
func GetMigrations(settings Settings) []Migration {
	return []Migration{
		{
			ID:   "0001",
			Name: "initial",
			Up:   migration0001Up(settings),
			Down: migration0001Down(settings),
		},
		{
			ID:           "0002",
			Name:         "question_created_by",
			Dependencies: []string{"0001"},
			Up:           migration0002Up(settings),
			Down:         migration0002Down(settings),
		},
		{
			ID:           "0003",
			Name:         "cascade_question_relations",
			Dependencies: []string{"0002"},
			Up:           migration0003Up(settings),
			Down:         migration0003Down(settings),
		},
		{
			ID:           "0004",
			Name:         "question_images",
			Dependencies: []string{"0003"},
			Up:           migration0004Up,
			Down:         migration0004Down,
		},
	}
}

// MigrationStatus reports whether a migration has been applied
type MigrationStatus struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// Runner applies and reverts migrations against one database
type Runner struct {
	db         *gorm.DB
	migrations []Migration
	log        *log.Logger
}

// NewRunner creates a runner for the registered migrations
func NewRunner(db *gorm.DB, settings Settings) *Runner {
	return NewRunnerWithMigrations(db, GetMigrations(settings))
}

// NewRunnerWithMigrations creates a runner for an explicit migration set
func NewRunnerWithMigrations(db *gorm.DB, migrations []Migration) *Runner {
	return &Runner{
		db:         db,
		migrations: migrations,
		log:        logger.For(logger.Migrations, ""),
	}
}

// Up executes all pending migrations and returns the IDs it applied
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	planned, err := Plan(r.migrations)
	if err != nil {
		return nil, err
	}

	var applied []string
	err = r.withLock(ctx, func(conn *gorm.DB) error {
		if err := createMigrationsTable(conn); err != nil {
			return fmt.Errorf("failed to create migrations table: %w", err)
		}

		history, err := appliedMigrations(conn)
		if err != nil {
			return err
		}
		if err := checkHistory(planned, history.ids()); err != nil {
			return err
		}

		for _, migration := range planned {
			if _, ok := history[migration.ID]; ok {
				r.log.Debug("Migration already applied, skipping", "id", migration.ID, "name", migration.Name)
				continue
			}

			r.log.Info("Running migration", "id", migration.ID, "name", migration.Name)

			err := conn.Transaction(func(tx *gorm.DB) error {
				if err := migration.Up(tx); err != nil {
					return fmt.Errorf("failed to run migration %s: %w", migration.ID, err)
				}

				return recordMigration(tx, migration.ID, migration.Name)
			})
			if err != nil {
				return err
			}

			applied = append(applied, migration.ID)
			r.log.Info("Successfully applied migration", "id", migration.ID)
		}

		return nil
	})
	if err != nil {
		return applied, err
	}

	r.log.Info("All migrations completed successfully", "applied", len(applied))
	return applied, nil
}

// Rollback reverts the last applied migration in dependency order
func (r *Runner) Rollback(ctx context.Context) (*Migration, error) {
	planned, err := Plan(r.migrations)
	if err != nil {
		return nil, err
	}

	var target *Migration
	err = r.withLock(ctx, func(conn *gorm.DB) error {
		if err := createMigrationsTable(conn); err != nil {
			return fmt.Errorf("failed to create migrations table: %w", err)
		}

		history, err := appliedMigrations(conn)
		if err != nil {
			return err
		}
		if err := checkHistory(planned, history.ids()); err != nil {
			return err
		}

		for i := len(planned) - 1; i >= 0; i-- {
			if _, ok := history[planned[i].ID]; ok {
				target = &planned[i]
				break
			}
		}
		if target == nil {
			return ErrNothingToRollback
		}

		r.log.Info("Rolling back migration", "id", target.ID, "name", target.Name)

		return conn.Transaction(func(tx *gorm.DB) error {
			if err := target.Down(tx); err != nil {
				return fmt.Errorf("failed to rollback migration %s: %w", target.ID, err)
			}

			return tx.Exec("DELETE FROM schema_migrations WHERE id = ?", target.ID).Error
		})
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("Successfully rolled back migration", "id", target.ID)
	return target, nil
}

// Status lists every migration in dependency order with its applied state
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	planned, err := Plan(r.migrations)
	if err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	history := migrationHistory{}
	if db.Migrator().HasTable("schema_migrations") {
		if history, err = appliedMigrations(db); err != nil {
			return nil, err
		}
	}

	statuses := make([]MigrationStatus, 0, len(planned))
	for _, m := range planned {
		status := MigrationStatus{ID: m.ID, Name: m.Name}
		if appliedAt, ok := history[m.ID]; ok {
			at := appliedAt
			status.Applied = true
			status.AppliedAt = &at
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// withLock runs fn on a single connection holding the migration advisory lock
func (r *Runner) withLock(ctx context.Context, fn func(conn *gorm.DB) error) error {
	return r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT pg_advisory_lock(?)", advisoryLockID).Error; err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := conn.Exec("SELECT pg_advisory_unlock(?)", advisoryLockID).Error; err != nil {
				r.log.Warn("Failed to release migration lock", "error", err)
			}
		}()

		return fn(conn)
	})
}

// RunMigrations executes all pending migrations
func RunMigrations(db *gorm.DB, settings Settings) error {
	_, err := NewRunner(db, settings).Up(context.Background())
	return err
}

// RollbackMigration rolls back the last applied migration
func RollbackMigration(db *gorm.DB, settings Settings) error {
	_, err := NewRunner(db, settings).Rollback(context.Background())
	return err
}

type migrationHistory map[string]time.Time

func (h migrationHistory) ids() map[string]bool {
	ids := make(map[string]bool, len(h))
	for id := range h {
		ids[id] = true
	}
	return ids
}

// createMigrationsTable creates the migrations tracking table
func createMigrationsTable(db *gorm.DB) error {
	return db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            id VARCHAR(64) PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error
}

func appliedMigrations(db *gorm.DB) (migrationHistory, error) {
	var rows []struct {
		ID        string
		AppliedAt time.Time
	}
	if err := db.Raw("SELECT id, applied_at FROM schema_migrations").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	history := make(migrationHistory, len(rows))
	for _, row := range rows {
		history[row.ID] = row.AppliedAt
	}
	return history, nil
}

// recordMigration records that a migration has been applied
func recordMigration(db *gorm.DB, migrationID, name string) error {
	return db.Exec("INSERT INTO schema_migrations (id, name) VALUES (?, ?)", migrationID, name).Error
}

func execAll(db *gorm.DB, statements []string) error {
	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			return err
		}
	}
	return nil
}
