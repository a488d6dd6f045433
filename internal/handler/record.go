package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/famasyang/flashcard/internal/queue"
	"github.com/famasyang/flashcard/internal/repository"
	queue_publisher "github.com/famasyang/flashcard/internal/service"
)

// RecordHandler serves learning-record writes and the leaderboard.
type RecordHandler struct {
	Records *repository.RecordRepo
}

func NewRecordHandler(records *repository.RecordRepo) *RecordHandler {
	return &RecordHandler{Records: records}
}

type recordReq struct {
	Word string `json:"word"`
}

// Record stores one learned word for the caller on today's date. The
// insert is idempotent, so answering the same word twice in a day keeps
// the leaderboard count honest.
func (h *RecordHandler) Record(c echo.Context) error {
	username, err := getUsername(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req recordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Word = strings.TrimSpace(req.Word)
	if req.Word == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "word required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Records.RecordAnswer(ctx, username, repository.Today(), req.Word); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save record failed"})
	}

	_ = queue_publisher.PublishActivity(ctx, queue.ActivityEvent{
		Kind:     queue.KindWordLearned,
		Username: username,
		Word:     req.Word,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "recorded"})
}

// Leaderboard returns the per-user word totals for one day, most words
// first. ?day=YYYY-MM-DD selects a past day; the default is today.
func (h *RecordHandler) Leaderboard(c echo.Context) error {
	day := c.QueryParam("day")
	if day == "" {
		day = repository.Today()
	} else if _, err := time.Parse(repository.DayFormat, day); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Records.Leaderboard(ctx, day)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"day": day, "leaderboard": entries})
}
