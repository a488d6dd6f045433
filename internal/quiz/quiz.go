// Package quiz turns a card's word/definition list into randomized
// multiple-choice questions. The engine is pure in-memory data
// manipulation; persistence and HTTP concerns stay outside.
package quiz

import (
	"errors"
	"math/rand/v2"

	"github.com/famasyang/flashcard/internal/repository"
)

// ErrNoMoreQuestions is returned when the requested index is past the end
// of the card. Clients use it to detect the end of a quiz run.
var ErrNoMoreQuestions = errors.New("no more questions")

// distractorCount is how many wrong options accompany the correct one.
const distractorCount = 3

// Question is one quiz step. Options holds definition choices for the
// target word; WordOptions holds word choices for the reverse direction.
// The correct entries are shuffled in with the distractors.
type Question struct {
	Word          string   `json:"word"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
	WordOptions   []string `json:"word_options"`
	Index         int      `json:"index"`
	Total         int      `json:"total"`
}

// Shuffle returns a uniformly random permutation of the entries. The input
// slice is not modified.
func Shuffle(entries []repository.CardEntry) []repository.CardEntry {
	out := make([]repository.CardEntry, len(entries))
	copy(out, entries)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// BuildQuestion selects entries[index] as the target and builds the answer
// choices around it. When randomize is set, the entry list is reshuffled
// first; each call shuffles independently, so a caller that wants a stable
// random order must persist one shuffled sequence itself.
func BuildQuestion(entries []repository.CardEntry, index int, randomize bool) (Question, error) {
	total := len(entries)
	if index < 0 || index >= total {
		return Question{}, ErrNoMoreQuestions
	}
	pool := entries
	if randomize {
		pool = Shuffle(entries)
	}
	target := pool[index]

	return Question{
		Word:          target.Word,
		CorrectAnswer: target.Definition,
		Options:       buildOptions(pool, target.Definition, func(e repository.CardEntry) string { return e.Definition }),
		WordOptions:   buildOptions(pool, target.Word, func(e repository.CardEntry) string { return e.Word }),
		Index:         index,
		Total:         total,
	}, nil
}

// buildOptions picks up to three distractor values for the given field,
// appends the correct value and shuffles the result. Entries whose field
// equals the correct value are excluded from the distractor pool, so the
// correct answer appears exactly once. With fewer than three candidates
// the choice set simply comes out shorter.
func buildOptions(pool []repository.CardEntry, correct string, field func(repository.CardEntry) string) []string {
	candidates := make([]string, 0, len(pool))
	for _, e := range pool {
		if v := field(e); v != correct {
			candidates = append(candidates, v)
		}
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > distractorCount {
		candidates = candidates[:distractorCount]
	}
	options := append(candidates, correct)
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}
