package poll

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QuestionRepository persists questions. Delete removes the question's
// choices and images along with it.
type QuestionRepository interface {
	Create(ctx context.Context, question *Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*Question, error)
	ListPublished(ctx context.Context, before, since time.Time, limit int) ([]*Question, error)
	ListByCreator(ctx context.Context, userID uuid.UUID) ([]*Question, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ChoiceRepository interface {
	Create(ctx context.Context, choice *Choice) error
	GetByQuestion(ctx context.Context, questionID uuid.UUID) ([]Choice, error)
	IncrementVotes(ctx context.Context, questionID, choiceID uuid.UUID) error
}

type ImageRepository interface {
	Create(ctx context.Context, image *Image) error
	GetByID(ctx context.Context, id uuid.UUID) (*Image, error)
	GetByQuestion(ctx context.Context, questionID uuid.UUID) ([]Image, error)
	GetByCreator(ctx context.Context, userID uuid.UUID) ([]Image, error)
}
