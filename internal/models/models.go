package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentRecord marks a filename as fully ingested into the knowledge base.
type DocumentRecord struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

type FeedbackRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Verdict   int       `json:"verdict"`
}

// RetrievedChunk is a single similarity-search hit handed to the orchestrator.
type RetrievedChunk struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

const (
	VerdictHelpful    = 1
	VerdictNotHelpful = -1
)
