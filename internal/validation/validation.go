package validation

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Límites compartidos con el esquema de la base de datos
const (
	MaxQuestionTextLength = 200
	MaxChoiceTextLength   = 200
	MaxUsernameLength     = 150
	MinPasswordLength     = 8
	MaxChoicesPerQuestion = 20
)

// AllowedImageTypes lista los content types aceptados para imágenes de preguntas
var AllowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateRequired valida que un campo no esté vacío
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(fieldName + " is required")
	}
	return nil
}

// ValidateMinLength valida la longitud mínima de un string
func ValidateMinLength(value string, minLength int, fieldName string) error {
	if utf8.RuneCountInString(value) < minLength {
		return errors.New(fieldName + " must be at least " + strconv.Itoa(minLength) + " characters long")
	}
	return nil
}

// ValidateMaxLength valida la longitud máxima de un string
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return errors.New(fieldName + " must be at most " + strconv.Itoa(maxLength) + " characters long")
	}
	return nil
}

// ValidateEmail valida formato básico de email
func ValidateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return errors.New("email must have a valid format")
	}
	return nil
}

// QuestionValidation contiene validaciones específicas para preguntas
type QuestionValidation struct{}

// ValidateQuestionText valida el texto de una pregunta
func (v QuestionValidation) ValidateQuestionText(text string) error {
	if err := ValidateRequired(text, "question_text"); err != nil {
		return err
	}
	return ValidateMaxLength(strings.TrimSpace(text), MaxQuestionTextLength, "question_text")
}

// ValidateChoices valida la lista de opciones enviada al crear una pregunta
func (v QuestionValidation) ValidateChoices(choices []string) error {
	if len(choices) > MaxChoicesPerQuestion {
		return errors.New("a question can have at most " + strconv.Itoa(MaxChoicesPerQuestion) + " choices")
	}
	seen := make(map[string]bool, len(choices))
	for _, choice := range choices {
		if err := v.ValidateChoiceText(choice); err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimSpace(choice))
		if seen[key] {
			return errors.New("duplicate choice: " + strings.TrimSpace(choice))
		}
		seen[key] = true
	}
	return nil
}

// ValidateChoiceText valida el texto de una opción
func (v QuestionValidation) ValidateChoiceText(text string) error {
	if err := ValidateRequired(text, "choice_text"); err != nil {
		return err
	}
	return ValidateMaxLength(strings.TrimSpace(text), MaxChoiceTextLength, "choice_text")
}

// ValidatePubDate rechaza fechas de publicación vacías
func (v QuestionValidation) ValidatePubDate(pubDate time.Time) error {
	if pubDate.IsZero() {
		return errors.New("pub_date is required")
	}
	return nil
}

// ValidateImage valida tipo y tamaño de una imagen subida
func (v QuestionValidation) ValidateImage(contentType string, size, maxSize int64) error {
	if !AllowedImageTypes[contentType] {
		return errors.New("unsupported image type: " + contentType)
	}
	if size <= 0 {
		return errors.New("image is empty")
	}
	if maxSize > 0 && size > maxSize {
		return errors.New("image exceeds maximum size of " + strconv.FormatInt(maxSize, 10) + " bytes")
	}
	return nil
}

// UserValidation contiene validaciones específicas para usuarios
type UserValidation struct{}

// ValidateUsername valida el nombre de usuario
func (v UserValidation) ValidateUsername(username string) error {
	if err := ValidateRequired(username, "username"); err != nil {
		return err
	}
	if err := ValidateMinLength(username, 3, "username"); err != nil {
		return err
	}
	if err := ValidateMaxLength(username, MaxUsernameLength, "username"); err != nil {
		return err
	}
	if strings.ContainsAny(username, " \t\n") {
		return errors.New("username cannot contain whitespace")
	}
	return nil
}

// ValidateUserEmail valida el email de un usuario
func (v UserValidation) ValidateUserEmail(email string) error {
	if err := ValidateRequired(email, "email"); err != nil {
		return err
	}
	return ValidateEmail(strings.TrimSpace(email))
}

// ValidatePassword valida la longitud mínima de la contraseña
func (v UserValidation) ValidatePassword(password string) error {
	if err := ValidateRequired(password, "password"); err != nil {
		return err
	}
	return ValidateMinLength(password, MinPasswordLength, "password")
}
