package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubVerifier struct {
	tokens map[string]uuid.UUID
}

func (s stubVerifier) Verify(token string) (uuid.UUID, error) {
	if id, ok := s.tokens[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("bad token")
}

func setupRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, id.String())
	})
	return r
}

func perform(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	r := setupRouter(RequireAuth(stubVerifier{tokens: map[string]uuid.UUID{"good": userID}}))

	w := perform(r, "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer bad").Code)
}

func TestOptionalAuth(t *testing.T) {
	userID := uuid.New()
	r := setupRouter(OptionalAuth(stubVerifier{tokens: map[string]uuid.UUID{"good": userID}}))

	w := perform(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	w = perform(r, "bearer good")
	assert.Equal(t, userID.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer bad").Code)
}
