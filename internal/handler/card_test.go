package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famasyang/flashcard/internal/repository"
)

func newTestCardHandler(t *testing.T) *CardHandler {
	t.Helper()
	store, err := repository.NewCardStore(t.TempDir())
	require.NoError(t, err)
	return NewCardHandler(store)
}

// newCardContext builds an echo context carrying the identity claims the
// auth middleware would have set.
func newCardContext(e *echo.Echo, req *http.Request, username, role string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("username", username)
	c.Set("role", role)
	return c, rec
}

func seedCard(t *testing.T, h *CardHandler, name, content, username string, public bool) {
	t.Helper()
	require.NoError(t, h.Cards.Save(name, content, username, public))
}

func TestCardListScopes(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)
	seedCard(t, h, "animals", "cat,feline\ndog,canine\n", "", true)
	seedCard(t, h, "mine", "ergo,therefore\n", "alice", false)

	req := httptest.NewRequest(http.MethodGet, "/v1/cards", nil)
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Public  []repository.CardInfo `json:"public_cards"`
		Private []repository.CardInfo `json:"user_cards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Public, 1)
	assert.Equal(t, "animals", resp.Public[0].Name)
	assert.Equal(t, 2, resp.Public[0].WordCount)
	require.Len(t, resp.Private, 1)
	assert.Equal(t, "mine", resp.Private[0].Name)
}

func TestCardGetReturnsQuestions(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)
	seedCard(t, h, "animals", "cat,feline\ndog,canine\n", "", true)

	req := httptest.NewRequest(http.MethodGet, "/v1/cards/animals", nil)
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	c.SetParamNames("name")
	c.SetParamValues("animals")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Questions []repository.CardEntry `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Questions, 2)
	assert.Equal(t, "cat", resp.Questions[0].Word)
}

func TestCardGetNotFound(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/cards/ghost", nil)
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	c.SetParamNames("name")
	c.SetParamValues("ghost")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCardQuestion(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)
	seedCard(t, h, "animals", "cat,feline\ndog,canine\nfox,vulpine\nowl,strigine\nbee,apian\n", "", true)

	req := httptest.NewRequest(http.MethodGet, "/v1/cards/animals/question/1", nil)
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	c.SetParamNames("name", "index")
	c.SetParamValues("animals", "1")
	require.NoError(t, h.Question(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var q struct {
		Word          string   `json:"word"`
		CorrectAnswer string   `json:"correct_answer"`
		Options       []string `json:"options"`
		WordOptions   []string `json:"word_options"`
		Total         int      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "dog", q.Word)
	assert.Equal(t, "canine", q.CorrectAnswer)
	assert.Len(t, q.Options, 4)
	assert.Contains(t, q.Options, "canine")
	assert.Len(t, q.WordOptions, 4)
	assert.Contains(t, q.WordOptions, "dog")
	assert.Equal(t, 5, q.Total)
}

func TestCardQuestionPastEnd(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)
	seedCard(t, h, "animals", "cat,feline\n", "", true)

	req := httptest.NewRequest(http.MethodGet, "/v1/cards/animals/question/5", nil)
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	c.SetParamNames("name", "index")
	c.SetParamValues("animals", "5")
	require.NoError(t, h.Question(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCardUploadJSON(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)

	body := `{"name":"verbs","words":["run","jump"],"definitions":["to move fast","to leap"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/cards", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	require.NoError(t, h.Upload(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	entries, err := h.Cards.Get("verbs", "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "to move fast", entries[0].Definition)
}

func TestCardUploadPublicNeedsAdmin(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)

	body := `{"name":"verbs","words":["run"],"definitions":["to move fast"],"is_public":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/cards", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	require.NoError(t, h.Upload(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/cards", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec = newCardContext(e, req, "root", repository.RoleAdmin)
	require.NoError(t, h.Upload(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCardUploadMultipart(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "nouns.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("tree,a woody plant\nriver,a stream of water\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/cards", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	require.NoError(t, h.Upload(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	entries, err := h.Cards.Get("nouns", "alice")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCardUploadDuplicate(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)
	seedCard(t, h, "verbs", "run,to move fast\n", "alice", false)

	body := `{"name":"verbs","words":["walk"],"definitions":["to go on foot"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/cards", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	require.NoError(t, h.Upload(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCardDeleteOwnPrivateOnly(t *testing.T) {
	e := echo.New()
	h := newTestCardHandler(t)
	seedCard(t, h, "shared", "cat,feline\n", "", true)
	seedCard(t, h, "shared", "cat,gato\n", "alice", false)

	req := httptest.NewRequest(http.MethodDelete, "/v1/cards/shared", nil)
	c, rec := newCardContext(e, req, "alice", repository.RoleUser)
	c.SetParamNames("name")
	c.SetParamValues("shared")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The public copy must survive a self-service delete.
	entries, err := h.Cards.Get("shared", "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "feline", entries[0].Definition)

	// A second delete finds nothing private.
	req = httptest.NewRequest(http.MethodDelete, "/v1/cards/shared", nil)
	c, rec = newCardContext(e, req, "alice", repository.RoleUser)
	c.SetParamNames("name")
	c.SetParamValues("shared")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
