package postgres

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pollsite/poll-api/internal/domain/poll"
	"github.com/pollsite/poll-api/internal/logger"
)

// PostgresImageRepository implements poll.ImageRepository using GORM
type PostgresImageRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresImageRepository creates a new PostgreSQL image repository
func NewPostgresImageRepository(db *gorm.DB) *PostgresImageRepository {
	return &PostgresImageRepository{
		db:  db,
		log: logger.For(logger.Repository, "image"),
	}
}

func (r *PostgresImageRepository) Create(ctx context.Context, image *poll.Image) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		r.log.Error("Failed to create image", "question_id", image.QuestionID, "error", err)
		return translateError("failed to create image", err)
	}

	r.log.Info("Image stored", "id", image.ID, "question_id", image.QuestionID, "size", image.Size)
	return nil
}

func (r *PostgresImageRepository) GetByID(ctx context.Context, id uuid.UUID) (*poll.Image, error) {
	var image poll.Image
	if err := r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, translateError("failed to get image", err)
	}
	return &image, nil
}

func (r *PostgresImageRepository) GetByQuestion(ctx context.Context, questionID uuid.UUID) ([]poll.Image, error) {
	var images []poll.Image
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("order_num ASC").
		Find(&images).Error
	if err != nil {
		return nil, translateError("failed to get images", err)
	}
	return images, nil
}

// GetByCreator returns the images of every question the user created
func (r *PostgresImageRepository) GetByCreator(ctx context.Context, userID uuid.UUID) ([]poll.Image, error) {
	var images []poll.Image
	err := r.db.WithContext(ctx).
		Select("question_images.*").
		Joins("JOIN questions ON questions.id = question_images.question_id").
		Where("questions.created_by_id = ?", userID).
		Find(&images).Error
	if err != nil {
		return nil, translateError("failed to get images by creator", err)
	}
	return images, nil
}
