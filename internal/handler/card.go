package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/famasyang/flashcard/internal/queue"
	"github.com/famasyang/flashcard/internal/quiz"
	"github.com/famasyang/flashcard/internal/repository"
	queue_publisher "github.com/famasyang/flashcard/internal/service"
	"github.com/famasyang/flashcard/internal/utils"
)

// maxCardUploadBytes caps a single card file. Card sets are plain text
// word lists; anything bigger than this is not one.
const maxCardUploadBytes = 1 << 20

// CardHandler serves the card listing, quiz and upload endpoints.
type CardHandler struct {
	Cards *repository.CardStore
}

func NewCardHandler(cards *repository.CardStore) *CardHandler {
	return &CardHandler{Cards: cards}
}

// cardUploadReq is the JSON upload variant: parallel word/definition
// slices joined by index.
type cardUploadReq struct {
	Name        string   `json:"name"`
	Words       []string `json:"words"`
	Definitions []string `json:"definitions"`
	IsPublic    bool     `json:"is_public"`
}

// List returns the public card sets plus the caller's private sets.
func (h *CardHandler) List(c echo.Context) error {
	username, err := getUsername(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	public, private, err := h.Cards.List(username)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list cards failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"public_cards": public,
		"user_cards":   private,
	})
}

// Get returns a card's entries as the question sequence for a quiz run.
// ?random=true returns a fresh permutation; otherwise file order.
func (h *CardHandler) Get(c echo.Context) error {
	username, err := getUsername(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	name := utils.SanitizeCardName(c.Param("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card name"})
	}

	entries, err := h.Cards.Get(name, username)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "card not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read card failed"})
	}
	if boolQuery(c, "random") {
		entries = quiz.Shuffle(entries)
	}
	return c.JSON(http.StatusOK, echo.Map{"questions": entries})
}

// Question returns one multiple-choice quiz step for a card.
func (h *CardHandler) Question(c echo.Context) error {
	username, err := getUsername(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	name := utils.SanitizeCardName(c.Param("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card name"})
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid question index"})
	}

	entries, err := h.Cards.Get(name, username)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "card not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read card failed"})
	}

	q, err := quiz.BuildQuestion(entries, index, boolQuery(c, "random"))
	if err != nil {
		if errors.Is(err, quiz.ErrNoMoreQuestions) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no more questions"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "build question failed"})
	}
	return c.JSON(http.StatusOK, q)
}

// Upload creates a new card set. Two body shapes are accepted: a
// multipart form with a .txt file under "file", or JSON with parallel
// words/definitions slices. Public scope requires the admin role.
func (h *CardHandler) Upload(c echo.Context) error {
	username, err := getUsername(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var name, content string
	var public bool

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		name, content, public, err = readMultipartCard(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	} else {
		var req cardUploadReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		if len(req.Words) == 0 || len(req.Words) != len(req.Definitions) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "words and definitions must be non-empty and equal length"})
		}
		entries := make([]repository.CardEntry, len(req.Words))
		for i := range req.Words {
			entries[i] = repository.CardEntry{
				Word:       strings.TrimSpace(req.Words[i]),
				Definition: strings.TrimSpace(req.Definitions[i]),
			}
		}
		name = req.Name
		content = repository.SerializeCard(entries)
		public = req.IsPublic
	}

	name = utils.SanitizeCardName(name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card name"})
	}
	if public && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if len(repository.ParseCard(content)) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "card has no valid entries"})
	}

	if err := h.Cards.Save(name, content, username, public); err != nil {
		if errors.Is(err, repository.ErrCardExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "card already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save card failed"})
	}

	scope := "private"
	if public {
		scope = "public"
	}
	_ = queue_publisher.PublishActivity(c.Request().Context(), queue.ActivityEvent{
		Kind:     queue.KindCardUploaded,
		Username: username,
		Card:     name,
		Scope:    scope,
	})

	return c.JSON(http.StatusCreated, echo.Map{"message": "card uploaded", "name": name})
}

// Delete removes one of the caller's private cards. Public cards are
// untouchable here; only the admin surface deletes those.
func (h *CardHandler) Delete(c echo.Context) error {
	username, err := getUsername(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	name := utils.SanitizeCardName(c.Param("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid card name"})
	}

	if err := h.Cards.DeletePrivate(name, username); err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "card not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete card failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// readMultipartCard extracts the card name, file content and scope flag
// from a multipart upload form.
func readMultipartCard(c echo.Context) (name, content string, public bool, err error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", "", false, errors.New("file field required")
	}
	if fh.Size > maxCardUploadBytes {
		return "", "", false, errors.New("file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return "", "", false, errors.New("open upload failed")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxCardUploadBytes))
	if err != nil {
		return "", "", false, errors.New("read upload failed")
	}

	name = c.FormValue("name")
	if name == "" {
		name = fh.Filename
	}
	public, _ = strconv.ParseBool(c.FormValue("is_public"))
	return name, string(data), public, nil
}

// boolQuery parses a boolean query parameter, defaulting to false.
func boolQuery(c echo.Context, key string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(key))
	return v
}
