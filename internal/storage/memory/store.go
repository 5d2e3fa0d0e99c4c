// Package memory keeps every repository in process memory. It enforces the
// same references and delete cascades as the PostgreSQL schema:
// user -> questions -> choices, images.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pollsite/poll-api/internal/domain/account"
	"github.com/pollsite/poll-api/internal/domain/common"
	"github.com/pollsite/poll-api/internal/domain/poll"
	"github.com/pollsite/poll-api/internal/logger"
)

type store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]account.User
	questions map[uuid.UUID]poll.Question
	choices   map[uuid.UUID]poll.Choice
	images    map[uuid.UUID]poll.Image
}

func newStore() *store {
	return &store{
		users:     make(map[uuid.UUID]account.User),
		questions: make(map[uuid.UUID]poll.Question),
		choices:   make(map[uuid.UUID]poll.Choice),
		images:    make(map[uuid.UUID]poll.Image),
	}
}

// deleteQuestionLocked removes a question and everything hanging off it
func (s *store) deleteQuestionLocked(id uuid.UUID) {
	delete(s.questions, id)
	for cid, c := range s.choices {
		if c.QuestionID == id {
			delete(s.choices, cid)
		}
	}
	for iid, img := range s.images {
		if img.QuestionID == id {
			delete(s.images, iid)
		}
	}
}

func (s *store) choicesOfLocked(questionID uuid.UUID) []poll.Choice {
	var out []poll.Choice
	for _, c := range s.choices {
		if c.QuestionID == questionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChoiceText < out[j].ChoiceText })
	return out
}

func (s *store) imagesOfLocked(questionID uuid.UUID) []poll.Image {
	var out []poll.Image
	for _, img := range s.images {
		if img.QuestionID == questionID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out
}

// Container holds in-memory repositories sharing one store
type Container struct {
	store     *store
	log       *log.Logger
	questions *QuestionRepository
	choices   *ChoiceRepository
	images    *ImageRepository
	users     *UserRepository
}

// NewContainer creates an empty in-memory container
func NewContainer() *Container {
	s := newStore()
	c := &Container{
		store:     s,
		log:       logger.For(logger.Repository, "memory_container"),
		questions: &QuestionRepository{store: s},
		choices:   &ChoiceRepository{store: s},
		images:    &ImageRepository{store: s},
		users:     &UserRepository{store: s},
	}
	c.log.Info("In-memory repository container initialized")
	return c
}

func (c *Container) Questions() poll.QuestionRepository { return c.questions }

func (c *Container) Choices() poll.ChoiceRepository { return c.choices }

func (c *Container) Images() poll.ImageRepository { return c.images }

func (c *Container) Users() account.UserRepository { return c.users }

func (c *Container) Health(ctx context.Context) error {
	return ctx.Err()
}

func (c *Container) Close() error {
	c.log.Info("Closing in-memory repository container")
	return nil
}

// QuestionRepository implements poll.QuestionRepository
type QuestionRepository struct {
	store *store
}

func (r *QuestionRepository) Create(_ context.Context, question *poll.Question) error {
	if err := question.Validate(); err != nil {
		return fmt.Errorf("question validation failed: %w: %w", common.ErrInvalidInput, err)
	}
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.questions[question.ID]; exists {
		return fmt.Errorf("question %s: %w", question.ID, common.ErrConflict)
	}
	if question.CreatedByID != nil {
		if _, ok := r.store.users[*question.CreatedByID]; !ok {
			return fmt.Errorf("created_by %s: %w", *question.CreatedByID, common.ErrInvalidReference)
		}
	}

	now := time.Now().UTC()
	if question.CreatedAt.IsZero() {
		question.CreatedAt = now
	}
	question.UpdatedAt = now

	for i := range question.Choices {
		c := &question.Choices[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.QuestionID = question.ID
		r.store.choices[c.ID] = *c
	}

	stored := *question
	stored.Choices = nil
	stored.Images = nil
	r.store.questions[question.ID] = stored
	return nil
}

func (r *QuestionRepository) GetByID(_ context.Context, id uuid.UUID) (*poll.Question, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	q, ok := r.store.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, common.ErrNotFound)
	}
	q.Choices = r.store.choicesOfLocked(id)
	q.Images = r.store.imagesOfLocked(id)
	return &q, nil
}

func (r *QuestionRepository) ListPublished(_ context.Context, before, since time.Time, limit int) ([]*poll.Question, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*poll.Question
	for _, q := range r.store.questions {
		if q.PubDate.After(before) {
			continue
		}
		if !since.IsZero() && q.PubDate.Before(since) {
			continue
		}
		q.Choices = r.store.choicesOfLocked(q.ID)
		out = append(out, &q)
	}

	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *QuestionRepository) ListByCreator(_ context.Context, userID uuid.UUID) ([]*poll.Question, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*poll.Question
	for _, q := range r.store.questions {
		if q.IsOwnedBy(userID) {
			out = append(out, &q)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *QuestionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.questions[id]; !ok {
		return fmt.Errorf("question %s: %w", id, common.ErrNotFound)
	}
	r.store.deleteQuestionLocked(id)
	return nil
}

// ChoiceRepository implements poll.ChoiceRepository
type ChoiceRepository struct {
	store *store
}

func (r *ChoiceRepository) Create(_ context.Context, choice *poll.Choice) error {
	if err := choice.Validate(); err != nil {
		return fmt.Errorf("choice validation failed: %w: %w", common.ErrInvalidInput, err)
	}
	if choice.ID == uuid.Nil {
		choice.ID = uuid.New()
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.questions[choice.QuestionID]; !ok {
		return fmt.Errorf("question %s: %w", choice.QuestionID, common.ErrInvalidReference)
	}
	if _, exists := r.store.choices[choice.ID]; exists {
		return fmt.Errorf("choice %s: %w", choice.ID, common.ErrConflict)
	}
	r.store.choices[choice.ID] = *choice
	return nil
}

func (r *ChoiceRepository) GetByQuestion(_ context.Context, questionID uuid.UUID) ([]poll.Choice, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.choicesOfLocked(questionID), nil
}

func (r *ChoiceRepository) IncrementVotes(_ context.Context, questionID, choiceID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.choices[choiceID]
	if !ok || c.QuestionID != questionID {
		return fmt.Errorf("choice %s of question %s: %w", choiceID, questionID, common.ErrNotFound)
	}
	c.Votes++
	r.store.choices[choiceID] = c
	return nil
}

// ImageRepository implements poll.ImageRepository
type ImageRepository struct {
	store *store
}

func (r *ImageRepository) Create(_ context.Context, image *poll.Image) error {
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.questions[image.QuestionID]; !ok {
		return fmt.Errorf("question %s: %w", image.QuestionID, common.ErrInvalidReference)
	}
	for _, existing := range r.store.images {
		if existing.ObjectKey == image.ObjectKey {
			return fmt.Errorf("object key %s: %w", image.ObjectKey, common.ErrConflict)
		}
	}
	if image.UploadedAt.IsZero() {
		image.UploadedAt = time.Now().UTC()
	}
	r.store.images[image.ID] = *image
	return nil
}

func (r *ImageRepository) GetByID(_ context.Context, id uuid.UUID) (*poll.Image, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	img, ok := r.store.images[id]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", id, common.ErrNotFound)
	}
	return &img, nil
}

func (r *ImageRepository) GetByQuestion(_ context.Context, questionID uuid.UUID) ([]poll.Image, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.imagesOfLocked(questionID), nil
}

func (r *ImageRepository) GetByCreator(_ context.Context, userID uuid.UUID) ([]poll.Image, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []poll.Image
	for _, img := range r.store.images {
		q, ok := r.store.questions[img.QuestionID]
		if ok && q.IsOwnedBy(userID) {
			out = append(out, img)
		}
	}
	return out, nil
}

// UserRepository implements account.UserRepository
type UserRepository struct {
	store *store
}

func (r *UserRepository) Create(_ context.Context, user *account.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("user validation failed: %w: %w", common.ErrInvalidInput, err)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.users {
		if existing.ID == user.ID || existing.Username == user.Username {
			return fmt.Errorf("user %s: %w", user.Username, common.ErrConflict)
		}
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.store.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*account.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*account.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty: %w", common.ErrInvalidInput)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, common.ErrNotFound)
}

// Delete removes the user and cascades to the questions they created
func (r *UserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	delete(r.store.users, id)

	for qid, q := range r.store.questions {
		if q.IsOwnedBy(id) {
			r.store.deleteQuestionLocked(qid)
		}
	}
	return nil
}

// sortNewestFirst orders by publication date, newest first, breaking ties by
// id so listings are stable across calls
func sortNewestFirst(questions []*poll.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		if !a.PubDate.Equal(b.PubDate) {
			return a.PubDate.After(b.PubDate)
		}
		return a.ID.String() < b.ID.String()
	})
}
