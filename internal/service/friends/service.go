package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/driftchat/driftchat-server/internal/store"
)

// Common errors for friend operations.
var (
	ErrCannotFriendSelf     = errors.New("cannot send friend request to yourself")
	ErrAlreadyFriends       = errors.New("already friends")
	ErrRequestAlreadyExists = errors.New("friend request already exists")
	ErrRequestNotFound      = errors.New("friend request not found")
	ErrUserNotFound         = errors.New("user not found")
)

// Service provides friend management business logic. The real-time core only
// reads the resulting relationships; request lifecycle lives here.
type Service struct {
	store store.Store
}

// New creates a new friend service.
func New(st store.Store) *Service {
	return &Service{
		store: st,
	}
}

// SendRequest sends a friend request from one user to another. At most one
// relationship record may exist per unordered user pair.
func (s *Service) SendRequest(ctx context.Context, fromUserID, toUserID int64) (*store.Friend, error) {
	if fromUserID == toUserID {
		return nil, ErrCannotFriendSelf
	}

	if _, err := s.store.GetUserByID(ctx, toUserID); err != nil {
		return nil, ErrUserNotFound
	}

	existing, err := s.store.GetFriendship(ctx, fromUserID, toUserID)
	if err == nil && existing != nil {
		if existing.Status == store.FriendStatusAccepted {
			return nil, ErrAlreadyFriends
		}
		return nil, ErrRequestAlreadyExists
	}

	friend, err := s.store.CreateFriendRequest(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("create friend request: %w", err)
	}

	return friend, nil
}

// AcceptRequest accepts a pending friend request sent to userID.
func (s *Service) AcceptRequest(ctx context.Context, userID, fromUserID int64) error {
	existing, err := s.store.GetFriendship(ctx, fromUserID, userID)
	if err != nil {
		return ErrRequestNotFound
	}

	// Must be pending and directed to the accepting user.
	if existing.Status != store.FriendStatusPending || existing.FriendID != userID {
		return ErrRequestNotFound
	}

	if err := s.store.UpdateFriendStatus(ctx, existing.UserID, existing.FriendID, store.FriendStatusAccepted); err != nil {
		return fmt.Errorf("accept request: %w", err)
	}

	return nil
}

// RejectRequest rejects a pending friend request sent to userID. The record
// is kept with rejected status so the pair invariant holds.
func (s *Service) RejectRequest(ctx context.Context, userID, fromUserID int64) error {
	existing, err := s.store.GetFriendship(ctx, fromUserID, userID)
	if err != nil {
		return ErrRequestNotFound
	}

	if existing.Status != store.FriendStatusPending || existing.FriendID != userID {
		return ErrRequestNotFound
	}

	if err := s.store.UpdateFriendStatus(ctx, existing.UserID, existing.FriendID, store.FriendStatusRejected); err != nil {
		return fmt.Errorf("reject request: %w", err)
	}

	return nil
}

// ListFriends returns all accepted friendships for a user.
func (s *Service) ListFriends(ctx context.Context, userID int64) ([]*store.Friend, error) {
	status := store.FriendStatusAccepted
	friends, err := s.store.ListFriends(ctx, userID, &status)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// ListPendingRequests returns incoming pending friend requests for a user.
func (s *Service) ListPendingRequests(ctx context.Context, userID int64) ([]*store.Friend, error) {
	status := store.FriendStatusPending
	all, err := s.store.ListFriends(ctx, userID, &status)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}

	// Only requests addressed to this user count as incoming.
	var incoming []*store.Friend
	for _, f := range all {
		if f.FriendID == userID {
			incoming = append(incoming, f)
		}
	}

	return incoming, nil
}

// IsFriend checks if two users are friends (accepted status).
func (s *Service) IsFriend(ctx context.Context, userID, friendID int64) (bool, error) {
	return s.store.IsFriend(ctx, userID, friendID)
}
