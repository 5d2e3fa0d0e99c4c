package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pollsite/poll-api/internal/response"
)

// parseID reads a UUID path parameter, answering 400 when it is malformed
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequestError(c, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
