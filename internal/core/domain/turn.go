package domain

import "time"

// Sender identifies who authored a Turn.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderAI   Sender = "AI"
)

// Turn is one immutable message in a user's conversation history.
type Turn struct {
	ID        string
	UserID    string
	Sender    Sender
	Content   string
	CreatedAt time.Time
}
