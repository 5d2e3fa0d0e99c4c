package handlers

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pollsite/poll-api/internal/logger"
	authmw "github.com/pollsite/poll-api/internal/middleware/auth"
	"github.com/pollsite/poll-api/internal/response"
	"github.com/pollsite/poll-api/internal/services"
)

type QuestionHandler struct {
	polls *services.PollService
	log   *log.Logger
}

func NewQuestionHandler(polls *services.PollService) *QuestionHandler {
	return &QuestionHandler{
		polls: polls,
		log:   logger.For(logger.Handler, "question"),
	}
}

type AddChoiceRequest struct {
	ChoiceText string `json:"choice_text" binding:"required"`
}

type VoteRequest struct {
	ChoiceID string `json:"choice_id" binding:"required"`
}

// viewer returns the authenticated user id, or nil for anonymous requests
func viewer(c *gin.Context) *uuid.UUID {
	if id, ok := authmw.UserID(c); ok {
		return &id
	}
	return nil
}

// ListQuestions handles GET /api/questions?limit=5&recent=true
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	opts := services.ListOptions{}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 100 {
			response.BadRequestError(c, "limit must be between 1 and 100")
			return
		}
		opts.Limit = limit
	}
	if raw := c.Query("recent"); raw != "" {
		recent, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequestError(c, "recent must be a boolean")
			return
		}
		opts.RecentOnly = recent
	}

	questions, err := h.polls.ListQuestions(c.Request.Context(), opts)
	if err != nil {
		h.log.Error("Failed to list questions", "error", err)
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", questions)
}

// ListMine handles GET /api/users/me/questions, including unpublished ones
func (h *QuestionHandler) ListMine(c *gin.Context) {
	userID, _ := authmw.UserID(c)

	questions, err := h.polls.ListByCreator(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to list user questions", "user_id", userID, "error", err)
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", questions)
}

// CreateQuestion handles POST /api/questions. Anonymous requests create
// questions without a creator.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return
	}

	q, err := h.polls.CreateQuestion(c.Request.Context(), req, viewer(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Question created successfully", q)
}

// GetQuestion handles GET /api/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	q, err := h.polls.GetQuestion(c.Request.Context(), id, viewer(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", q)
}

// DeleteQuestion handles DELETE /api/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, _ := authmw.UserID(c)

	if err := h.polls.DeleteQuestion(c.Request.Context(), id, userID); err != nil {
		response.FromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddChoice handles POST /api/questions/:id/choices
func (h *QuestionHandler) AddChoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req AddChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return
	}
	userID, _ := authmw.UserID(c)

	choice, err := h.polls.AddChoice(c.Request.Context(), id, userID, req.ChoiceText)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Choice added successfully", choice)
}

// Vote handles POST /api/questions/:id/vote
func (h *QuestionHandler) Vote(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "You didn't select a choice.")
		return
	}
	choiceID, err := uuid.Parse(req.ChoiceID)
	if err != nil {
		response.BadRequestError(c, "choice_id must be a valid UUID")
		return
	}

	results, err := h.polls.Vote(c.Request.Context(), id, choiceID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Vote recorded", results)
}

// Results handles GET /api/questions/:id/results
func (h *QuestionHandler) Results(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	results, err := h.polls.Results(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", results)
}
