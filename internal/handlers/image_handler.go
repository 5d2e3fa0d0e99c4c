package handlers

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/pollsite/poll-api/internal/logger"
	authmw "github.com/pollsite/poll-api/internal/middleware/auth"
	"github.com/pollsite/poll-api/internal/response"
	"github.com/pollsite/poll-api/internal/services"
)

type ImageHandler struct {
	polls       *services.PollService
	maxFileSize int64
	log         *log.Logger
}

func NewImageHandler(polls *services.PollService, maxFileSize int64) *ImageHandler {
	return &ImageHandler{
		polls:       polls,
		maxFileSize: maxFileSize,
		log:         logger.For(logger.Handler, "image"),
	}
}

// UploadImage handles POST /api/questions/:id/images (multipart field "file")
func (h *ImageHandler) UploadImage(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, _ := authmw.UserID(c)

	if h.maxFileSize > 0 {
		// Leave room for the multipart envelope around the file
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+1<<20)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequestError(c, "No file provided: "+err.Error())
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	img, err := h.polls.AttachImage(c.Request.Context(), questionID, userID, contentType, header.Size, file)
	if err != nil {
		h.log.Debug("Image upload rejected", "question_id", questionID, "error", err)
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "File uploaded successfully", img)
}

// GetImage handles GET /api/images/:id and streams the stored bytes. Images of
// unpublished questions answer 404 to everyone but the question's creator.
func (h *ImageHandler) GetImage(c *gin.Context) {
	imageID, ok := parseID(c, "id")
	if !ok {
		return
	}

	viewerID := viewer(c)
	img, obj, err := h.polls.OpenImage(c.Request.Context(), imageID, viewerID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = img.ContentType
	}

	// An authenticated read may be an owner previewing an unpublished question
	if viewerID == nil {
		c.Header("Cache-Control", "public, max-age=86400")
	} else {
		c.Header("Cache-Control", "private, max-age=300")
	}
	c.Header("Vary", "Authorization")
	c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))
	c.DataFromReader(http.StatusOK, obj.Size, contentType, obj.Body, nil)
}
