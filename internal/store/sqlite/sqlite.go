package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/driftchat/driftchat-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS friends (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	friend_id  INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (user_id, friend_id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (friend_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	sender     TEXT NOT NULL,
	recipient  TEXT,
	is_private BOOLEAN NOT NULL DEFAULT 0,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_group ON messages(is_private, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender, recipient);
CREATE INDEX IF NOT EXISTS idx_friends_friend ON friends(friend_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies the
// schema. Use ":memory:" for an ephemeral store in tests.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username. The username column uses
// NOCASE collation, so the lookup is case-insensitive.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// SearchUsers finds users whose username contains the query, excluding the
// given username.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query, exclude string) ([]*store.User, error) {
	stmt := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username LIKE ? AND username != ?
		ORDER BY username
	`
	rows, err := s.db.QueryContext(ctx, stmt, "%"+query+"%", exclude)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// ==== FriendStore implementation ====

// CreateFriendRequest creates a new friend request (pending status).
func (s *SQLiteStore) CreateFriendRequest(ctx context.Context, userID, friendID int64) (*store.Friend, error) {
	query := `
		INSERT INTO friends (user_id, friend_id, status)
		VALUES (?, ?, 'pending')
	`
	result, err := s.db.ExecContext(ctx, query, userID, friendID)
	if err != nil {
		return nil, fmt.Errorf("insert friend request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getFriendByID(ctx, id)
}

// getFriendByID is a helper to retrieve a friend record by ID.
func (s *SQLiteStore) getFriendByID(ctx context.Context, id int64) (*store.Friend, error) {
	query := `
		SELECT id, user_id, friend_id, status, created_at, updated_at
		FROM friends
		WHERE id = ?
	`
	var friend store.Friend
	var status string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&friend.ID,
		&friend.UserID,
		&friend.FriendID,
		&status,
		&friend.CreatedAt,
		&friend.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("friend not found: %w", err)
		}
		return nil, fmt.Errorf("query friend: %w", err)
	}
	friend.Status = store.FriendStatus(status)
	return &friend, nil
}

// UpdateFriendStatus updates the status of a friendship.
func (s *SQLiteStore) UpdateFriendStatus(ctx context.Context, userID, friendID int64, status store.FriendStatus) error {
	query := `
		UPDATE friends
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND friend_id = ?
	`
	result, err := s.db.ExecContext(ctx, query, string(status), userID, friendID)
	if err != nil {
		return fmt.Errorf("update friend status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("friendship not found")
	}
	return nil
}

// GetFriendship retrieves the friendship between two users, checking both
// directions.
func (s *SQLiteStore) GetFriendship(ctx context.Context, userID, friendID int64) (*store.Friend, error) {
	query := `
		SELECT id, user_id, friend_id, status, created_at, updated_at
		FROM friends
		WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)
	`
	var friend store.Friend
	var status string
	err := s.db.QueryRowContext(ctx, query, userID, friendID, friendID, userID).Scan(
		&friend.ID,
		&friend.UserID,
		&friend.FriendID,
		&status,
		&friend.CreatedAt,
		&friend.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("friendship not found: %w", err)
		}
		return nil, fmt.Errorf("query friendship: %w", err)
	}
	friend.Status = store.FriendStatus(status)
	return &friend, nil
}

// ListFriends lists friendships for a user, optionally filtered by status.
func (s *SQLiteStore) ListFriends(ctx context.Context, userID int64, status *store.FriendStatus) ([]*store.Friend, error) {
	var query string
	var args []interface{}

	if status != nil {
		query = `
			SELECT id, user_id, friend_id, status, created_at, updated_at
			FROM friends
			WHERE (user_id = ? OR friend_id = ?) AND status = ?
			ORDER BY updated_at DESC
		`
		args = []interface{}{userID, userID, string(*status)}
	} else {
		query = `
			SELECT id, user_id, friend_id, status, created_at, updated_at
			FROM friends
			WHERE user_id = ? OR friend_id = ?
			ORDER BY updated_at DESC
		`
		args = []interface{}{userID, userID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query friends: %w", err)
	}
	defer rows.Close()

	var friends []*store.Friend
	for rows.Next() {
		var friend store.Friend
		var statusStr string
		if err := rows.Scan(&friend.ID, &friend.UserID, &friend.FriendID, &statusStr, &friend.CreatedAt, &friend.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friend.Status = store.FriendStatus(statusStr)
		friends = append(friends, &friend)
	}

	return friends, rows.Err()
}

// ListAcceptedFriendNames returns usernames of all accepted friends of the
// named user. For each relationship touching the user it yields the other
// participant, in a single query.
func (s *SQLiteStore) ListAcceptedFriendNames(ctx context.Context, username string) ([]string, error) {
	query := `
		SELECT other.username
		FROM friends f
		JOIN users me ON me.username = ?
		JOIN users other ON other.id = CASE WHEN f.user_id = me.id THEN f.friend_id ELSE f.user_id END
		WHERE (f.user_id = me.id OR f.friend_id = me.id) AND f.status = 'accepted'
	`
	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("query friend names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan friend name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// IsFriend checks if two users are friends (accepted, either direction).
func (s *SQLiteStore) IsFriend(ctx context.Context, userID, friendID int64) (bool, error) {
	query := `
		SELECT 1 FROM friends
		WHERE ((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?))
		AND status = 'accepted'
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, userID, friendID, friendID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query friendship: %w", err)
	}
	return true, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and sets its ID. The caller assigns
// CreatedAt; the store does not touch it.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (sender, recipient, is_private, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	var recipient sql.NullString
	if msg.IsPrivate {
		recipient = sql.NullString{String: msg.Recipient, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query, msg.Sender, recipient, msg.IsPrivate, msg.Body, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// ListGroupMessages returns the most recent non-private messages, at most
// limit of them, ordered oldest-first.
func (s *SQLiteStore) ListGroupMessages(ctx context.Context, limit int) ([]*store.Message, error) {
	query := `
		SELECT id, sender, recipient, is_private, body, created_at
		FROM messages
		WHERE is_private = 0
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to get chronological order.
	for i := 0; i < len(messages)/2; i++ {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, nil
}

// ListConversation returns all private messages between the two usernames,
// in either direction, ordered oldest-first.
func (s *SQLiteStore) ListConversation(ctx context.Context, a, b string) ([]*store.Message, error) {
	query := `
		SELECT id, sender, recipient, is_private, body, created_at
		FROM messages
		WHERE is_private = 1
		  AND ((sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?))
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*store.Message, error) {
	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var recipient sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Sender, &recipient, &msg.IsPrivate, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if recipient.Valid {
			msg.Recipient = recipient.String
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
