package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/driftchat/driftchat-server/internal/store"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory Storage double with switchable failure modes.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []*store.Message
	friends  map[string][]string // identity -> accepted friend names

	failSave    bool
	failList    bool
	failFriends bool
}

func newMemStore() *memStore {
	return &memStore{friends: make(map[string][]string)}
}

func (m *memStore) befriend(a, b string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.friends[a] = append(m.friends[a], b)
	m.friends[b] = append(m.friends[b], a)
}

func (m *memStore) seed(msg store.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	m.messages = append(m.messages, &msg)
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *memStore) SaveMessage(_ context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errStoreDown
	}
	m.nextID++
	msg.ID = m.nextID
	saved := *msg
	m.messages = append(m.messages, &saved)
	return nil
}

func (m *memStore) ListGroupMessages(_ context.Context, limit int) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errStoreDown
	}
	var group []*store.Message
	for _, msg := range m.messages {
		if !msg.IsPrivate {
			group = append(group, msg)
		}
	}
	if len(group) > limit {
		group = group[len(group)-limit:]
	}
	return group, nil
}

func (m *memStore) ListConversation(_ context.Context, a, b string) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errStoreDown
	}
	var conv []*store.Message
	for _, msg := range m.messages {
		if !msg.IsPrivate {
			continue
		}
		if (msg.Sender == a && msg.Recipient == b) || (msg.Sender == b && msg.Recipient == a) {
			conv = append(conv, msg)
		}
	}
	return conv, nil
}

func (m *memStore) ListAcceptedFriendNames(_ context.Context, username string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFriends {
		return nil, errStoreDown
	}
	return m.friends[username], nil
}

func startHub(t *testing.T, st Storage) *Hub {
	t.Helper()

	hub := NewHub(st, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("events channel closed while waiting for kind %v", kind)
			}
			if ev != nil && ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent asserts that no event of the given kind shows up within a
// short window.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func connect(hub *Hub, id string) *Client {
	c := NewClient(id)
	hub.RegisterClient(c)
	return c
}

// announce binds the identity and waits until the hub has processed the
// command, by chasing it with a history request: commands from one
// connection are handled in submission order, so the reply doubles as a
// barrier.
func announce(t *testing.T, c *Client, identity string) {
	t.Helper()

	c.Commands <- &Command{Kind: CommandAnnounce, Identity: identity}
	c.Commands <- &Command{Kind: CommandGroupHistory, CorrelationID: "sync"}
	mustEvent(t, c.Events, EventHistory)
}
