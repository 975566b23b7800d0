package domain

import "time"

// ChatMessage is a lobby chat entry. Chat is scoped to the lifetime of a
// poll: the history is wiped when a poll ends.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
