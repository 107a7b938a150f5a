package core

import "time"

// Message is the domain model for a chat message. Once persisted it is
// immutable; the hub never edits or deletes stored messages.
type Message struct {
	ID        int64
	Sender    string
	Recipient string // empty for group messages
	IsPrivate bool
	Body      string
	CreatedAt time.Time
}
