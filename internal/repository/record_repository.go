package repository

import (
	"context"
	"database/sql"
	"time"
)

// DayFormat is the calendar-day key used for learning records. Days are
// computed in UTC so a record belongs to the same bucket no matter which
// server handles the request.
const DayFormat = "2006-01-02"

// Today returns the current UTC day key.
func Today() string { return time.Now().UTC().Format(DayFormat) }

// LeaderboardEntry is one row of the daily ranking.
type LeaderboardEntry struct {
	Username   string `json:"username"`
	TotalWords int    `json:"total_words"`
}

// DailyRecord is a per-user per-day aggregate, used by the admin view.
type DailyRecord struct {
	Username   string `json:"username"`
	Day        string `json:"day"`
	TotalWords int    `json:"total_words"`
}

// RecordRepo stores one row per (username, day, word). The unique key over
// those three columns makes recording idempotent: answering the same word
// twice on one day counts once, no matter how often it is presented.
type RecordRepo struct{ DB *sql.DB }

func NewRecordRepo(db *sql.DB) *RecordRepo { return &RecordRepo{DB: db} }

// RecordAnswer notes that the user answered the word on the given day.
// Re-inserting an existing row is a no-op (INSERT IGNORE against the
// unique key), which replaces the original whole-document read-modify-write
// with a single row-level operation.
func (r *RecordRepo) RecordAnswer(ctx context.Context, username, day, word string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO learning_records (username, day, word) VALUES (?,?,?)",
		username, day, word)
	return err
}

// Leaderboard returns the ranking for a day, most words first. Ties are
// broken by username ascending so the order is deterministic.
func (r *RecordRepo) Leaderboard(ctx context.Context, day string) ([]LeaderboardEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT username, COUNT(*) AS total_words
		 FROM learning_records WHERE day=?
		 GROUP BY username
		 ORDER BY total_words DESC, username ASC`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.TotalWords); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AllRecords returns every per-user per-day total, newest day first, for
// the admin records view.
func (r *RecordRepo) AllRecords(ctx context.Context) ([]DailyRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT username, day, COUNT(*) AS total_words
		 FROM learning_records
		 GROUP BY username, day
		 ORDER BY day DESC, total_words DESC, username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []DailyRecord{}
	for rows.Next() {
		var d DailyRecord
		if err := rows.Scan(&d.Username, &d.Day, &d.TotalWords); err != nil {
			return nil, err
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

// DeleteForUser removes a user's learning history. Called when an admin
// deletes the account itself.
func (r *RecordRepo) DeleteForUser(ctx context.Context, username string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM learning_records WHERE username=?", username)
	return err
}
