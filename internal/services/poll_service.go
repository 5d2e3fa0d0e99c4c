package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pollsite/poll-api/internal/domain/account"
	"github.com/pollsite/poll-api/internal/domain/common"
	"github.com/pollsite/poll-api/internal/domain/poll"
	"github.com/pollsite/poll-api/internal/logger"
	"github.com/pollsite/poll-api/internal/storage"
	"github.com/pollsite/poll-api/internal/storage/objectstore"
	"github.com/pollsite/poll-api/internal/validation"
)

// DefaultListLimit es la cantidad de preguntas del índice
const DefaultListLimit = 5

// PollService maneja la lógica de negocio de preguntas, opciones e imágenes
type PollService struct {
	questions    poll.QuestionRepository
	choices      poll.ChoiceRepository
	images       poll.ImageRepository
	users        account.UserRepository
	blobs        objectstore.ImageStore
	validator    validation.QuestionValidation
	maxImageSize int64
	now          func() time.Time
	log          *log.Logger
}

// NewPollService crea una nueva instancia del servicio de encuestas
func NewPollService(repos storage.Container, blobs objectstore.ImageStore, maxImageSize int64) *PollService {
	return &PollService{
		questions:    repos.Questions(),
		choices:      repos.Choices(),
		images:       repos.Images(),
		users:        repos.Users(),
		blobs:        blobs,
		validator:    validation.QuestionValidation{},
		maxImageSize: maxImageSize,
		now:          time.Now,
		log:          logger.For(logger.Service, "poll"),
	}
}

// CreateQuestionRequest representa una solicitud para crear una pregunta
type CreateQuestionRequest struct {
	QuestionText string     `json:"question_text" binding:"required"`
	PubDate      *time.Time `json:"pub_date"`
	Choices      []string   `json:"choices"`
}

// ListOptions filtra el listado de preguntas publicadas
type ListOptions struct {
	Limit      int
	RecentOnly bool
}

// ChoiceResult es una opción con su porcentaje de votos
type ChoiceResult struct {
	ID         uuid.UUID `json:"id"`
	ChoiceText string    `json:"choice_text"`
	Votes      int       `json:"votes"`
	Percentage float64   `json:"percentage"`
}

// QuestionResults resume la votación de una pregunta
type QuestionResults struct {
	QuestionID   uuid.UUID      `json:"question_id"`
	QuestionText string         `json:"question_text"`
	TotalVotes   int            `json:"total_votes"`
	Choices      []ChoiceResult `json:"choices"`
}

// CreateQuestion crea una pregunta. createdBy es nil para preguntas anónimas.
func (s *PollService) CreateQuestion(ctx context.Context, req CreateQuestionRequest, createdBy *uuid.UUID) (*poll.Question, error) {
	if err := s.validator.ValidateQuestionText(req.QuestionText); err != nil {
		return nil, invalid(err)
	}
	if err := s.validator.ValidateChoices(req.Choices); err != nil {
		return nil, invalid(err)
	}

	pubDate := s.now()
	if req.PubDate != nil {
		if err := s.validator.ValidatePubDate(*req.PubDate); err != nil {
			return nil, invalid(err)
		}
		pubDate = *req.PubDate
	}

	q := poll.NewQuestion(req.QuestionText, pubDate, createdBy)
	for _, text := range req.Choices {
		q.AddChoice(text)
	}

	if err := s.questions.Create(ctx, q); err != nil {
		if errors.Is(err, common.ErrInvalidReference) {
			return nil, fmt.Errorf("creator does not exist: %w", err)
		}
		return nil, err
	}

	s.log.Info("Question created", "id", q.ID, "created_by", createdBy, "choices", len(q.Choices))
	return q, nil
}

// GetQuestion obtiene una pregunta publicada. Las no publicadas solo son
// visibles para quien las creó.
func (s *PollService) GetQuestion(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*poll.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !q.IsPublished(s.now()) && (viewer == nil || !q.IsOwnedBy(*viewer)) {
		return nil, fmt.Errorf("question %s: %w", id, common.ErrNotFound)
	}
	return q, nil
}

// ListQuestions lista las preguntas publicadas, las más nuevas primero
func (s *PollService) ListQuestions(ctx context.Context, opts ListOptions) ([]*poll.Question, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	now := s.now()
	var since time.Time
	if opts.RecentOnly {
		since = now.Add(-poll.RecentWindow)
	}

	return s.questions.ListPublished(ctx, now, since, limit)
}

// ListByCreator lista todas las preguntas del usuario, incluidas las que
// todavía no se publicaron
func (s *PollService) ListByCreator(ctx context.Context, userID uuid.UUID) ([]*poll.Question, error) {
	return s.questions.ListByCreator(ctx, userID)
}

// ListRecent lista las preguntas publicadas en las últimas 24 horas
func (s *PollService) ListRecent(ctx context.Context, limit int) ([]*poll.Question, error) {
	return s.ListQuestions(ctx, ListOptions{Limit: limit, RecentOnly: true})
}

// AddChoice agrega una opción a una pregunta del usuario
func (s *PollService) AddChoice(ctx context.Context, questionID, actorID uuid.UUID, text string) (*poll.Choice, error) {
	if err := s.validator.ValidateChoiceText(text); err != nil {
		return nil, invalid(err)
	}

	q, err := s.authorize(ctx, questionID, actorID)
	if err != nil {
		return nil, err
	}
	if len(q.Choices) >= validation.MaxChoicesPerQuestion {
		return nil, invalid(fmt.Errorf("a question can have at most %d choices", validation.MaxChoicesPerQuestion))
	}
	text = strings.TrimSpace(text)
	for _, existing := range q.Choices {
		if strings.EqualFold(strings.TrimSpace(existing.ChoiceText), text) {
			return nil, invalid(fmt.Errorf("duplicate choice: %s", text))
		}
	}

	choice := poll.NewChoice(q.ID, text)
	if err := s.choices.Create(ctx, choice); err != nil {
		return nil, err
	}

	s.log.Info("Choice added", "question_id", q.ID, "choice_id", choice.ID)
	return choice, nil
}

// Vote registra un voto para una opción de una pregunta publicada
func (s *PollService) Vote(ctx context.Context, questionID, choiceID uuid.UUID) (*QuestionResults, error) {
	q, err := s.GetQuestion(ctx, questionID, nil)
	if err != nil {
		return nil, err
	}
	if _, ok := q.FindChoice(choiceID); !ok {
		return nil, invalid(fmt.Errorf("choice %s does not belong to question %s", choiceID, questionID))
	}

	if err := s.choices.IncrementVotes(ctx, questionID, choiceID); err != nil {
		return nil, err
	}

	s.log.Debug("Vote recorded", "question_id", questionID, "choice_id", choiceID)
	return s.Results(ctx, questionID)
}

// Results calcula el resultado actual de una pregunta publicada
func (s *PollService) Results(ctx context.Context, questionID uuid.UUID) (*QuestionResults, error) {
	q, err := s.GetQuestion(ctx, questionID, nil)
	if err != nil {
		return nil, err
	}

	total := q.TotalVotes()
	results := &QuestionResults{
		QuestionID:   q.ID,
		QuestionText: q.QuestionText,
		TotalVotes:   total,
		Choices:      make([]ChoiceResult, 0, len(q.Choices)),
	}
	for _, c := range q.Choices {
		r := ChoiceResult{ID: c.ID, ChoiceText: c.ChoiceText, Votes: c.Votes}
		if total > 0 {
			r.Percentage = float64(c.Votes) * 100 / float64(total)
		}
		results.Choices = append(results.Choices, r)
	}
	return results, nil
}

// DeleteQuestion elimina una pregunta junto con sus opciones e imágenes.
// Solo el creador o un usuario staff pueden hacerlo.
func (s *PollService) DeleteQuestion(ctx context.Context, questionID, actorID uuid.UUID) error {
	q, err := s.authorize(ctx, questionID, actorID)
	if err != nil {
		return err
	}

	if err := s.questions.Delete(ctx, q.ID); err != nil {
		return err
	}
	removeBlobs(ctx, s.blobs, q.Images, s.log)

	s.log.Info("Question deleted", "id", q.ID, "actor", actorID, "choices", len(q.Choices), "images", len(q.Images))
	return nil
}

// AttachImage sube una imagen y la asocia a la pregunta
func (s *PollService) AttachImage(ctx context.Context, questionID, actorID uuid.UUID, contentType string, size int64, body io.Reader) (*poll.Image, error) {
	if err := s.validator.ValidateImage(contentType, size, s.maxImageSize); err != nil {
		return nil, invalid(err)
	}

	q, err := s.authorize(ctx, questionID, actorID)
	if err != nil {
		return nil, err
	}

	img := poll.NewImage(q.ID, contentType, size, len(q.Images))
	if err := s.blobs.Put(ctx, img.ObjectKey, body, size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	if err := s.images.Create(ctx, img); err != nil {
		removeBlobs(ctx, s.blobs, []poll.Image{*img}, s.log)
		return nil, err
	}

	s.log.Info("Image attached", "question_id", q.ID, "image_id", img.ID, "size", size)
	return img, nil
}

// OpenImage devuelve los metadatos y el contenido de una imagen. Las imágenes
// de preguntas no publicadas solo las ve quien creó la pregunta.
func (s *PollService) OpenImage(ctx context.Context, imageID uuid.UUID, viewer *uuid.UUID) (*poll.Image, *objectstore.Object, error) {
	img, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.GetQuestion(ctx, img.QuestionID, viewer); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, fmt.Errorf("image %s: %w", imageID, common.ErrNotFound)
		}
		return nil, nil, err
	}

	obj, err := s.blobs.Get(ctx, img.ObjectKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return nil, nil, fmt.Errorf("image %s content: %w", imageID, common.ErrNotFound)
		}
		return nil, nil, err
	}
	return img, obj, nil
}

// authorize carga la pregunta y verifica que el actor pueda modificarla
func (s *PollService) authorize(ctx context.Context, questionID, actorID uuid.UUID) (*poll.Question, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", actorID, common.ErrForbidden)
		}
		return nil, err
	}

	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	if !actor.CanManage(q.CreatedByID) {
		return nil, fmt.Errorf("question %s: %w", questionID, common.ErrForbidden)
	}
	return q, nil
}
