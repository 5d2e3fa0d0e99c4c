package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/pollsite/poll-api/internal/auth"
	"github.com/pollsite/poll-api/internal/logger"
	authmw "github.com/pollsite/poll-api/internal/middleware/auth"
	"github.com/pollsite/poll-api/internal/response"
	"github.com/pollsite/poll-api/internal/services"
)

type UserHandler struct {
	accounts *services.AccountService
	log      *log.Logger
}

func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		log:      logger.For(logger.Handler, "user"),
	}
}

// Register handles POST /api/users
func (h *UserHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.log.Debug("Registration rejected", "username", req.Username, "error", err)
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "User created successfully", user)
}

// Login handles POST /api/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.UnauthorizedError(c, err.Error())
			return
		}
		h.log.Error("Login failed", "error", err)
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Login successful", result)
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := authmw.UserID(c)

	user, err := h.accounts.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", user)
}

// DeleteMe handles DELETE /api/users/me
func (h *UserHandler) DeleteMe(c *gin.Context) {
	userID, _ := authmw.UserID(c)

	if err := h.accounts.DeleteAccount(c.Request.Context(), userID); err != nil {
		h.log.Error("Failed to delete account", "user_id", userID, "error", err)
		response.FromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
