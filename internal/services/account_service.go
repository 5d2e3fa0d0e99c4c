package services

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pollsite/poll-api/internal/auth"
	"github.com/pollsite/poll-api/internal/domain/account"
	"github.com/pollsite/poll-api/internal/domain/common"
	"github.com/pollsite/poll-api/internal/domain/poll"
	"github.com/pollsite/poll-api/internal/logger"
	"github.com/pollsite/poll-api/internal/storage"
	"github.com/pollsite/poll-api/internal/storage/objectstore"
	"github.com/pollsite/poll-api/internal/validation"
)

// TokenGenerator emite tokens de acceso
type TokenGenerator interface {
	Generate(userID uuid.UUID, username string) (string, time.Time, error)
}

// AccountService maneja registro, login y baja de usuarios
type AccountService struct {
	users     account.UserRepository
	images    poll.ImageRepository
	blobs     objectstore.ImageStore
	tokens    TokenGenerator
	validator validation.UserValidation
	log       *log.Logger
}

// NewAccountService crea una nueva instancia del servicio de cuentas
func NewAccountService(repos storage.Container, blobs objectstore.ImageStore, tokens TokenGenerator) *AccountService {
	return &AccountService{
		users:     repos.Users(),
		images:    repos.Images(),
		blobs:     blobs,
		tokens:    tokens,
		validator: validation.UserValidation{},
		log:       logger.For(logger.Service, "account"),
	}
}

// RegisterRequest representa una solicitud para crear un usuario
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest representa las credenciales de login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult es el token emitido y el usuario autenticado
type LoginResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *account.User `json:"user"`
}

// Register crea un nuevo usuario
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*account.User, error) {
	if err := s.validator.ValidateUsername(req.Username); err != nil {
		return nil, invalid(err)
	}
	if err := s.validator.ValidateUserEmail(req.Email); err != nil {
		return nil, invalid(err)
	}
	if err := s.validator.ValidatePassword(req.Password); err != nil {
		return nil, invalid(err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := account.NewUser(req.Username, req.Email, hash)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User registered", "id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifica las credenciales y emite un token
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidInput) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.log.Warn("Failed login attempt", "username", req.Username)
		return nil, err
	}

	token, expiresAt, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetUser obtiene un usuario por su ID
func (s *AccountService) GetUser(ctx context.Context, id uuid.UUID) (*account.User, error) {
	return s.users.GetByID(ctx, id)
}

// DeleteAccount elimina al usuario; sus preguntas, opciones e imágenes se
// eliminan en cascada
func (s *AccountService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	images, err := s.images.GetByCreator(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	removeBlobs(ctx, s.blobs, images, s.log)

	s.log.Info("Account deleted", "id", userID, "images", len(images))
	return nil
}
