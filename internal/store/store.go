package store

import (
	"context"
	"time"
)

// User represents a registered user. Usernames are unique case-insensitively
// and stored lowercase.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// FriendStatus defines friend relationship status.
type FriendStatus string

const (
	FriendStatusPending  FriendStatus = "pending"
	FriendStatusAccepted FriendStatus = "accepted"
	FriendStatusRejected FriendStatus = "rejected"
)

// Friend represents a friend relationship. At most one record exists per
// unordered user pair, regardless of who initiated the request.
type Friend struct {
	ID        int64
	UserID    int64 // requester
	FriendID  int64 // recipient
	Status    FriendStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message represents a persisted chat message. IsPrivate implies a non-empty
// Recipient; group messages have no recipient.
type Message struct {
	ID        int64
	Sender    string
	Recipient string
	IsPrivate bool
	Body      string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username, case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers finds users whose username contains the query, excluding
	// the given username.
	SearchUsers(ctx context.Context, query, exclude string) ([]*User, error)
}

// FriendStore handles friend persistence.
type FriendStore interface {
	// CreateFriendRequest creates a new friend request (pending status).
	CreateFriendRequest(ctx context.Context, userID, friendID int64) (*Friend, error)

	// UpdateFriendStatus updates the status of a friendship.
	UpdateFriendStatus(ctx context.Context, userID, friendID int64, status FriendStatus) error

	// GetFriendship retrieves the friendship between two users, checking
	// both directions.
	GetFriendship(ctx context.Context, userID, friendID int64) (*Friend, error)

	// ListFriends lists friendships for a user, optionally filtered by status.
	ListFriends(ctx context.Context, userID int64, status *FriendStatus) ([]*Friend, error)

	// ListAcceptedFriendNames returns the usernames of all accepted friends
	// of the named user, in a single query. Used by presence propagation.
	ListAcceptedFriendNames(ctx context.Context, username string) ([]string, error)

	// IsFriend checks if two users are friends (accepted, either direction).
	IsFriend(ctx context.Context, userID, friendID int64) (bool, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListGroupMessages returns the most recent non-private messages, at
	// most limit of them, ordered oldest-first.
	ListGroupMessages(ctx context.Context, limit int) ([]*Message, error)

	// ListConversation returns all private messages between the two
	// usernames, in either direction, ordered oldest-first.
	ListConversation(ctx context.Context, a, b string) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	FriendStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
