// Package queue defines message payloads exchanged over the message broker.
package queue

// Activity event kinds published by the API.
const (
    KindUserRegistered = "user.registered"
    KindCardUploaded   = "card.uploaded"
    KindWordLearned    = "word.learned"
)

// ActivityEvent is published whenever something noteworthy happens in the
// learning flow: a registration, a card upload or a newly learned word.
// It carries enough information for downstream consumers to log or feed
// analytics without querying the primary database. Fields that do not
// apply to a given kind stay empty.
type ActivityEvent struct {
    Kind       string `json:"kind"`
    Username   string `json:"username"`
    Card       string `json:"card,omitempty"`
    Scope      string `json:"scope,omitempty"` // "public" | "private"
    Word       string `json:"word,omitempty"`
    OccurredAt string `json:"occurred_at"`
}
