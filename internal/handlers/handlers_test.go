package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollsite/poll-api/internal/auth"
	authmw "github.com/pollsite/poll-api/internal/middleware/auth"
	"github.com/pollsite/poll-api/internal/services"
	"github.com/pollsite/poll-api/internal/storage/memory"
	"github.com/pollsite/poll-api/internal/storage/objectstore"
)

type testEnv struct {
	router *gin.Engine
	tokens *auth.TokenIssuer
	blobs  *objectstore.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenIssuer("handler-secret", time.Hour)
	require.NoError(t, err)

	repos := memory.NewContainer()
	blobs := objectstore.NewMemoryStore()
	polls := services.NewPollService(repos, blobs, 64)
	accounts := services.NewAccountService(repos, blobs, tokens)

	questions := NewQuestionHandler(polls)
	images := NewImageHandler(polls, 64)
	users := NewUserHandler(accounts)

	required := authmw.RequireAuth(tokens)
	optional := authmw.OptionalAuth(tokens)

	r := gin.New()
	r.POST("/users", users.Register)
	r.POST("/login", users.Login)
	r.GET("/me", required, users.Me)
	r.GET("/me/questions", required, questions.ListMine)
	r.DELETE("/me", required, users.DeleteMe)
	r.GET("/questions", questions.ListQuestions)
	r.POST("/questions", optional, questions.CreateQuestion)
	r.GET("/questions/:id", optional, questions.GetQuestion)
	r.DELETE("/questions/:id", required, questions.DeleteQuestion)
	r.POST("/questions/:id/choices", required, questions.AddChoice)
	r.POST("/questions/:id/vote", questions.Vote)
	r.GET("/questions/:id/results", questions.Results)
	r.POST("/questions/:id/images", required, images.UploadImage)
	r.GET("/images/:id", optional, images.GetImage)

	return &testEnv{router: r, tokens: tokens, blobs: blobs}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signup registers a user and returns a bearer token for it
func (e *testEnv) signup(t *testing.T, username string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/users", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/login", "", gin.H{"username": username, "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data services.LoginResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.Token
}

type questionBody struct {
	Data struct {
		ID      uuid.UUID `json:"id"`
		Choices []struct {
			ID uuid.UUID `json:"id"`
		} `json:"choices"`
	} `json:"data"`
}

func (e *testEnv) createQuestion(t *testing.T, token string, choices ...string) questionBody {
	t.Helper()

	w := e.do(t, http.MethodPost, "/questions", token, gin.H{
		"question_text": "What's up?",
		"choices":       choices,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var q questionBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	return q
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestMalformedIDs(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/questions/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id must be a valid UUID", errorMessage(t, w))

	w = env.do(t, http.MethodGet, "/images/42", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListQuestionsQueryValidation(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/questions?limit=0", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/questions?limit=abc", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/questions?recent=maybe", "", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/questions?limit=5&recent=true", "", nil).Code)
}

func TestCreateQuestionAnonymousAndOwned(t *testing.T) {
	env := newTestEnv(t)

	anonymous := env.createQuestion(t, "", "yes", "no")
	assert.Len(t, anonymous.Data.Choices, 2)

	w := env.do(t, http.MethodPost, "/questions", "garbage", gin.H{"question_text": "Who?"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/questions", "", gin.H{"question_text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := env.signup(t, "ada")
	owned := env.createQuestion(t, token)

	w = env.do(t, http.MethodGet, "/questions/"+owned.Data.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVoteFlow(t *testing.T) {
	env := newTestEnv(t)
	q := env.createQuestion(t, "", "red", "blue")
	path := "/questions/" + q.Data.ID.String()

	w := env.do(t, http.MethodPost, path+"/vote", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You didn't select a choice.", errorMessage(t, w))

	w = env.do(t, http.MethodPost, path+"/vote", "", gin.H{"choice_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, path+"/vote", "", gin.H{"choice_id": uuid.NewString()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, path+"/vote", "", gin.H{"choice_id": q.Data.Choices[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, path+"/results", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var results struct {
		Data services.QuestionResults `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Equal(t, 1, results.Data.TotalVotes)

	w = env.do(t, http.MethodGet, "/questions/"+uuid.NewString()+"/results", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddChoiceAndDeleteRequireOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "ada")
	other := env.signup(t, "bob")
	q := env.createQuestion(t, owner)
	path := "/questions/" + q.Data.ID.String()

	w := env.do(t, http.MethodPost, path+"/choices", "", gin.H{"choice_text": "maybe"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, path+"/choices", other, gin.H{"choice_text": "maybe"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, path+"/choices", owner, gin.H{"choice_text": "maybe"})
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, path, other, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, "", nil).Code)
}

func TestRegisterAndLoginErrors(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ada")

	w := env.do(t, http.MethodPost, "/users", "", gin.H{
		"username": "ada",
		"email":    "ada2@example.com",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/users", "", gin.H{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/login", "", gin.H{"username": "ada", "password": "wrong one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteMeRemovesOwnedQuestions(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "ada")
	q := env.createQuestion(t, token, "a")

	w := env.do(t, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/me", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/questions/"+q.Data.ID.String(), "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/me", token, nil).Code)
}

func uploadRequest(t *testing.T, path, token, contentType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="pic"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestImageUploadAndDownload(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "ada")
	q := env.createQuestion(t, token)
	path := "/questions/" + q.Data.ID.String() + "/images"

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, uploadRequest(t, path, token, "image/png", []byte("png-bytes")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, env.blobs.Len())

	var uploaded struct {
		Data struct {
			ID uuid.UUID `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	w = env.do(t, http.MethodGet, "/images/"+uploaded.Data.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", w.Body.String())

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, uploadRequest(t, path, token, "text/plain", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, uploadRequest(t, path, token, "image/png", make([]byte, 128)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, env.blobs.Len())

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/images/"+uuid.NewString(), "", nil).Code)
}

func TestImageUploadWithoutFile(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "ada")
	q := env.createQuestion(t, token)

	w := env.do(t, http.MethodPost, "/questions/"+q.Data.ID.String()+"/images", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnpublishedQuestionImageIsHidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "ada")
	other := env.signup(t, "bob")

	w := env.do(t, http.MethodPost, "/questions", owner, gin.H{
		"question_text": "Coming soon?",
		"pub_date":      time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var q questionBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, uploadRequest(t, "/questions/"+q.Data.ID.String()+"/images", owner, "image/gif", []byte("gif")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var uploaded struct {
		Data struct {
			ID uuid.UUID `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	path := "/images/" + uploaded.Data.ID.String()

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, other, nil).Code)

	w = env.do(t, http.MethodGet, path, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gif", w.Body.String())
	assert.Contains(t, w.Header().Get("Cache-Control"), "private")
}

func TestAddChoiceDuplicateIsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "ada")
	q := env.createQuestion(t, owner, "yes")

	w := env.do(t, http.MethodPost, "/questions/"+q.Data.ID.String()+"/choices", owner, gin.H{"choice_text": "YES"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "duplicate choice")
}

func TestListMine(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "ada")
	env.createQuestion(t, owner)
	env.createQuestion(t, "")

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/me/questions", "", nil).Code)

	w := env.do(t, http.MethodGet, "/me/questions", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []struct {
			ID uuid.UUID `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
}
