package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pollsite/poll-api/internal/domain/common"
	"github.com/pollsite/poll-api/internal/domain/poll"
	"github.com/pollsite/poll-api/internal/logger"
)

// PostgresQuestionRepository implements poll.QuestionRepository using GORM
type PostgresQuestionRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresQuestionRepository creates a new PostgreSQL question repository
func NewPostgresQuestionRepository(db *gorm.DB) *PostgresQuestionRepository {
	return &PostgresQuestionRepository{
		db:  db,
		log: logger.For(logger.Repository, "question"),
	}
}

func orderedChoices(db *gorm.DB) *gorm.DB {
	return db.Order("choices.choice_text ASC")
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("question_images.order_num ASC")
}

// Create inserts the question together with any choices already attached to it
func (r *PostgresQuestionRepository) Create(ctx context.Context, question *poll.Question) error {
	r.log.Debug("Creating question", "text", question.QuestionText, "created_by", question.CreatedByID)

	if err := question.Validate(); err != nil {
		return fmt.Errorf("question validation failed: %w: %w", common.ErrInvalidInput, err)
	}

	if err := r.db.WithContext(ctx).Omit("Images").Create(question).Error; err != nil {
		r.log.Error("Failed to create question", "error", err)
		return translateError("failed to create question", err)
	}

	r.log.Info("Question created successfully", "id", question.ID, "choices", len(question.Choices))
	return nil
}

func (r *PostgresQuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*poll.Question, error) {
	var question poll.Question
	err := r.db.WithContext(ctx).
		Preload("Choices", orderedChoices).
		Preload("Images", orderedImages).
		First(&question, "id = ?", id).Error
	if err != nil {
		return nil, translateError("failed to get question", err)
	}

	return &question, nil
}

// ListPublished returns questions published in [since, before], newest first.
// A zero since leaves the lower bound open.
func (r *PostgresQuestionRepository) ListPublished(ctx context.Context, before, since time.Time, limit int) ([]*poll.Question, error) {
	query := r.db.WithContext(ctx).
		Preload("Choices", orderedChoices).
		Where("pub_date <= ?", before)
	if !since.IsZero() {
		query = query.Where("pub_date >= ?", since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var questions []*poll.Question
	if err := query.Order("pub_date DESC, id").Find(&questions).Error; err != nil {
		r.log.Error("Failed to list published questions", "error", err)
		return nil, translateError("failed to list questions", err)
	}

	r.log.Debug("Retrieved published questions", "count", len(questions))
	return questions, nil
}

func (r *PostgresQuestionRepository) ListByCreator(ctx context.Context, userID uuid.UUID) ([]*poll.Question, error) {
	var questions []*poll.Question
	err := r.db.WithContext(ctx).
		Where("created_by_id = ?", userID).
		Order("pub_date DESC, id").
		Find(&questions).Error
	if err != nil {
		return nil, translateError("failed to list questions by creator", err)
	}

	return questions, nil
}

// Delete removes the question; the database cascades to its choices and images
func (r *PostgresQuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&poll.Question{}, "id = ?", id)
	if result.Error != nil {
		r.log.Error("Failed to delete question", "id", id, "error", result.Error)
		return translateError("failed to delete question", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("question %s: %w", id, common.ErrNotFound)
	}

	r.log.Info("Question deleted successfully", "id", id)
	return nil
}
