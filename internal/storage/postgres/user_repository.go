package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pollsite/poll-api/internal/domain/account"
	"github.com/pollsite/poll-api/internal/domain/common"
	"github.com/pollsite/poll-api/internal/logger"
)

// PostgresUserRepository implements account.UserRepository on the configured user table
type PostgresUserRepository struct {
	db    *gorm.DB
	table string
	log   *log.Logger
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db *gorm.DB, table string) *PostgresUserRepository {
	return &PostgresUserRepository{
		db:    db,
		table: table,
		log:   logger.For(logger.Repository, "user"),
	}
}

func (r *PostgresUserRepository) users(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *account.User) error {
	r.log.Debug("Creating user", "username", user.Username, "email", user.Email)

	if err := user.Validate(); err != nil {
		r.log.Error("User validation failed", "error", err)
		return fmt.Errorf("user validation failed: %w: %w", common.ErrInvalidInput, err)
	}

	if err := r.users(ctx).Create(user).Error; err != nil {
		r.log.Error("Failed to create user", "error", err, "username", user.Username)
		return translateError("failed to create user", err)
	}

	r.log.Info("User created successfully", "id", user.ID, "username", user.Username)
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	var user account.User
	if err := r.users(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError("failed to get user by ID", err)
	}

	return &user, nil
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*account.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty: %w", common.ErrInvalidInput)
	}

	var user account.User
	if err := r.users(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateError("failed to get user by username", err)
	}

	return &user, nil
}

// Delete removes the user; the database cascades to the questions they created
func (r *PostgresUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.users(ctx).Where("id = ?", id).Delete(&account.User{})
	if result.Error != nil {
		r.log.Error("Failed to delete user", "id", id, "error", result.Error)
		return translateError("failed to delete user", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}

	r.log.Info("User deleted successfully", "id", id)
	return nil
}
