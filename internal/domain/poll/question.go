package poll

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecentWindow is how long after publication a question counts as recent
const RecentWindow = 24 * time.Hour

// Question is a poll question. Deleting it removes its choices and images;
// deleting its creator removes the question.
type Question struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	QuestionText string     `json:"question_text" gorm:"size:200;not null"`
	PubDate      time.Time  `json:"pub_date" gorm:"not null"`
	CreatedByID  *uuid.UUID `json:"created_by,omitempty" gorm:"type:uuid"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Choices []Choice `json:"choices,omitempty" gorm:"foreignKey:QuestionID"`
	Images  []Image  `json:"images,omitempty" gorm:"foreignKey:QuestionID"`
}

// TableName overrides the table name used by GORM
func (Question) TableName() string {
	return "questions"
}

// BeforeCreate sets a UUID before creating the record
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// NewQuestion creates a question. createdBy may be nil for anonymous questions.
func NewQuestion(text string, pubDate time.Time, createdBy *uuid.UUID) *Question {
	return &Question{
		ID:           uuid.New(),
		QuestionText: strings.TrimSpace(text),
		PubDate:      pubDate,
		CreatedByID:  createdBy,
		CreatedAt:    time.Now(),
	}
}

// AddChoice appends a new choice bound to this question
func (q *Question) AddChoice(text string) *Choice {
	c := NewChoice(q.ID, text)
	q.Choices = append(q.Choices, *c)
	return &q.Choices[len(q.Choices)-1]
}

// WasPublishedRecently reports whether the question was published within
// RecentWindow before now. Future publication dates are not recent.
func (q *Question) WasPublishedRecently(now time.Time) bool {
	return !q.PubDate.After(now) && !q.PubDate.Before(now.Add(-RecentWindow))
}

// IsPublished reports whether the publication date has been reached
func (q *Question) IsPublished(now time.Time) bool {
	return !q.PubDate.After(now)
}

// IsOwnedBy checks if the given user created this question
func (q *Question) IsOwnedBy(userID uuid.UUID) bool {
	return q.CreatedByID != nil && *q.CreatedByID == userID
}

// TotalVotes sums votes over the loaded choices
func (q *Question) TotalVotes() int {
	total := 0
	for _, c := range q.Choices {
		total += c.Votes
	}
	return total
}

// FindChoice returns the loaded choice with the given id
func (q *Question) FindChoice(choiceID uuid.UUID) (*Choice, bool) {
	for i := range q.Choices {
		if q.Choices[i].ID == choiceID {
			return &q.Choices[i], true
		}
	}
	return nil, false
}

// Validate checks if the question data is valid
func (q *Question) Validate() error {
	if q.QuestionText == "" {
		return fmt.Errorf("question_text is required")
	}
	if len([]rune(q.QuestionText)) > 200 {
		return fmt.Errorf("question_text must be at most 200 characters")
	}
	if q.PubDate.IsZero() {
		return fmt.Errorf("pub_date is required")
	}
	for i := range q.Choices {
		if err := q.Choices[i].Validate(); err != nil {
			return fmt.Errorf("choice %d: %w", i, err)
		}
	}
	return nil
}
