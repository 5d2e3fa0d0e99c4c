package poll

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Choice is one answer of a question
type Choice struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	QuestionID uuid.UUID `json:"question_id" gorm:"type:uuid;not null"`
	ChoiceText string    `json:"choice_text" gorm:"size:200;not null"`
	Votes      int       `json:"votes" gorm:"not null;default:0"`
}

func (Choice) TableName() string {
	return "choices"
}

func (c *Choice) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func NewChoice(questionID uuid.UUID, text string) *Choice {
	return &Choice{
		ID:         uuid.New(),
		QuestionID: questionID,
		ChoiceText: strings.TrimSpace(text),
	}
}

func (c *Choice) Validate() error {
	if c.ChoiceText == "" {
		return fmt.Errorf("choice_text is required")
	}
	if len([]rune(c.ChoiceText)) > 200 {
		return fmt.Errorf("choice_text must be at most 200 characters")
	}
	if c.Votes < 0 {
		return fmt.Errorf("votes cannot be negative")
	}
	return nil
}

// Image is an illustration attached to a question; the bytes live in object storage
type Image struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	QuestionID  uuid.UUID `json:"question_id" gorm:"type:uuid;not null"`
	ObjectKey   string    `json:"-" gorm:"size:255;not null"`
	ContentType string    `json:"content_type" gorm:"size:100;not null"`
	Size        int64     `json:"size" gorm:"not null"`
	OrderNum    int       `json:"order_num" gorm:"not null;default:0"`
	UploadedAt  time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
}

func (Image) TableName() string {
	return "question_images"
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// NewImage builds an image record with an object key scoped under its question
func NewImage(questionID uuid.UUID, contentType string, size int64, orderNum int) *Image {
	id := uuid.New()
	return &Image{
		ID:          id,
		QuestionID:  questionID,
		ObjectKey:   fmt.Sprintf("questions/%s/%s", questionID, id),
		ContentType: contentType,
		Size:        size,
		OrderNum:    orderNum,
		UploadedAt:  time.Now(),
	}
}
