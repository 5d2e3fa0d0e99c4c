package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pollsite/poll-api/internal/domain/common"
	"github.com/pollsite/poll-api/internal/domain/poll"
	"github.com/pollsite/poll-api/internal/logger"
)

// PostgresChoiceRepository implements poll.ChoiceRepository using GORM
type PostgresChoiceRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresChoiceRepository creates a new PostgreSQL choice repository
func NewPostgresChoiceRepository(db *gorm.DB) *PostgresChoiceRepository {
	return &PostgresChoiceRepository{
		db:  db,
		log: logger.For(logger.Repository, "choice"),
	}
}

func (r *PostgresChoiceRepository) Create(ctx context.Context, choice *poll.Choice) error {
	if err := choice.Validate(); err != nil {
		return fmt.Errorf("choice validation failed: %w: %w", common.ErrInvalidInput, err)
	}

	if err := r.db.WithContext(ctx).Create(choice).Error; err != nil {
		r.log.Error("Failed to create choice", "question_id", choice.QuestionID, "error", err)
		return translateError("failed to create choice", err)
	}

	r.log.Debug("Choice created", "id", choice.ID, "question_id", choice.QuestionID)
	return nil
}

func (r *PostgresChoiceRepository) GetByQuestion(ctx context.Context, questionID uuid.UUID) ([]poll.Choice, error) {
	var choices []poll.Choice
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("choice_text ASC").
		Find(&choices).Error
	if err != nil {
		return nil, translateError("failed to get choices", err)
	}

	return choices, nil
}

// IncrementVotes adds one vote in a single UPDATE so concurrent votes are not lost
func (r *PostgresChoiceRepository) IncrementVotes(ctx context.Context, questionID, choiceID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&poll.Choice{}).
		Where("id = ? AND question_id = ?", choiceID, questionID).
		UpdateColumn("votes", gorm.Expr("votes + ?", 1))
	if result.Error != nil {
		r.log.Error("Failed to increment votes", "choice_id", choiceID, "error", result.Error)
		return translateError("failed to record vote", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("choice %s of question %s: %w", choiceID, questionID, common.ErrNotFound)
	}

	return nil
}
