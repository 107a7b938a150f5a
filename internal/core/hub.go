package core

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/store"
)

// DefaultHistoryLimit caps the initial group history replay.
const DefaultHistoryLimit = 100

// Storage is the slice of persistence the hub depends on. A failing store
// degrades delivery and history but never crashes the dispatcher.
type Storage interface {
	SaveMessage(ctx context.Context, msg *store.Message) error
	ListGroupMessages(ctx context.Context, limit int) ([]*store.Message, error)
	ListConversation(ctx context.Context, a, b string) ([]*store.Message, error)
	ListAcceptedFriendNames(ctx context.Context, username string) ([]string, error)
}

// Hub is the single dispatcher for all connection events. Registry and
// roster are confined to the Run goroutine, so no locking is needed: every
// announce, send, history request and disconnect is serialized through one
// queue, which also preserves per-connection submission order.
type Hub struct {
	store        Storage
	log          *zerolog.Logger
	historyLimit int
	clock        monotonicClock

	registry *Registry
	roster   *Roster
	clients  map[string]*Client // connection id -> client

	register   chan *Client
	unregister chan *Client
	commands   chan envelope
}

type envelope struct {
	client *Client
	cmd    *Command
}

// NewHub creates a hub backed by the given storage. historyLimit <= 0 falls
// back to DefaultHistoryLimit.
func NewHub(st Storage, logger *zerolog.Logger, historyLimit int) *Hub {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		store:        st,
		log:          logger,
		historyLimit: historyLimit,
		registry:     NewRegistry(),
		roster:       NewRoster(),
		clients:      make(map[string]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		commands:     make(chan envelope),
	}
}

// RegisterClient hands a new connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient removes a closed connection from the hub. Safe to call
// for a client that was already dropped.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Run processes connection events until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c.ID] = c
			h.registry.Open(c.ID)
			go h.pump(ctx, c)
		case c := <-h.unregister:
			h.dropClient(ctx, c)
		case env := <-h.commands:
			h.handleCommand(ctx, env.client, env.cmd)
		}
	}
}

// pump forwards a client's commands into the hub queue until the client is
// unregistered.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			select {
			case h.commands <- envelope{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	if _, ok := h.clients[c.ID]; !ok {
		return // connection already dropped
	}

	switch cmd.Kind {
	case CommandAnnounce:
		h.handleAnnounce(ctx, c, cmd)
	case CommandSendGroup:
		h.handleSendGroup(ctx, c, cmd)
	case CommandSendDirect:
		h.handleSendDirect(ctx, c, cmd)
	case CommandGroupHistory:
		h.handleGroupHistory(ctx, c, cmd)
	case CommandDirectHistory:
		h.handleDirectHistory(ctx, c, cmd)
	default:
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

func (h *Hub) handleAnnounce(ctx context.Context, c *Client, cmd *Command) {
	identity := normalizeIdentity(cmd.Identity)
	if identity == "" {
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "identity is required")})
		return
	}

	prev := h.registry.Bind(c.ID, identity)
	if prev == identity {
		return // re-announce is idempotent
	}
	if prev != "" {
		h.roster.Leave(prev, c.ID)
		if !h.roster.IsOnline(prev) {
			h.broadcastPresence(ctx, prev, EventFriendOffline)
		}
	}

	wasOnline := h.roster.IsOnline(identity)
	h.roster.Join(identity, c.ID)
	c.Identity = identity
	h.log.Debug().Str("client_id", c.ID).Str("identity", identity).Msg("identity announced")

	// Presence is edge-triggered: only the first connection of an identity
	// notifies friends.
	if !wasOnline {
		h.broadcastPresence(ctx, identity, EventFriendOnline)
	}
}

func (h *Hub) handleSendGroup(ctx context.Context, c *Client, cmd *Command) {
	if c.Identity == "" {
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeNotAnnounced, "announce an identity first")})
		return
	}

	msg := &store.Message{
		Sender:    c.Identity,
		Body:      cmd.Text,
		CreatedAt: h.clock.Now(),
	}
	if err := h.store.SaveMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("sender", c.Identity).Msg("persist group message failed, skipping delivery")
		return
	}

	// Group chat is global: every open connection gets it, announced or not,
	// sender included.
	ev := &Event{Kind: EventGroupMessage, Message: fromStored(msg)}
	for _, cl := range h.clients {
		h.deliver(cl, ev)
	}
}

func (h *Hub) handleSendDirect(ctx context.Context, c *Client, cmd *Command) {
	if c.Identity == "" {
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeNotAnnounced, "announce an identity first")})
		return
	}
	to := normalizeIdentity(cmd.Identity)
	if to == "" {
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "recipient is required")})
		return
	}

	msg := &store.Message{
		Sender:    c.Identity,
		Recipient: to,
		IsPrivate: true,
		Body:      cmd.Text,
		CreatedAt: h.clock.Now(),
	}
	if err := h.store.SaveMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("sender", c.Identity).Str("recipient", to).Msg("persist direct message failed, skipping delivery")
		return
	}

	// Deliver to every connection of the recipient, and echo to every
	// connection of the sender so other devices see the outgoing message.
	targets := make(map[string]struct{})
	for _, connID := range h.roster.ConnectionsOf(to) {
		targets[connID] = struct{}{}
	}
	for _, connID := range h.roster.ConnectionsOf(c.Identity) {
		targets[connID] = struct{}{}
	}

	ev := &Event{Kind: EventDirectMessage, Message: fromStored(msg)}
	for connID := range targets {
		if cl, ok := h.clients[connID]; ok {
			h.deliver(cl, ev)
		}
	}
}

func (h *Hub) handleGroupHistory(ctx context.Context, c *Client, cmd *Command) {
	stored, err := h.store.ListGroupMessages(ctx, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Str("client_id", c.ID).Msg("group history query failed, replying empty")
		stored = nil
	}
	h.deliver(c, historyEvent(cmd.CorrelationID, stored))
}

func (h *Hub) handleDirectHistory(ctx context.Context, c *Client, cmd *Command) {
	if c.Identity == "" {
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeNotAnnounced, "announce an identity first")})
		return
	}
	with := normalizeIdentity(cmd.Identity)
	if with == "" {
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "conversation partner is required")})
		return
	}

	stored, err := h.store.ListConversation(ctx, c.Identity, with)
	if err != nil {
		h.log.Error().Err(err).Str("client_id", c.ID).Str("with", with).Msg("conversation query failed, replying empty")
		stored = nil
	}
	ev := historyEvent(cmd.CorrelationID, stored)
	ev.User = with
	h.deliver(c, ev)
}

// broadcastPresence notifies every connection of every online accepted
// friend. A failing friend lookup is logged and the broadcast skipped; it
// must not take the connection lifecycle down with it.
func (h *Hub) broadcastPresence(ctx context.Context, identity string, kind EventKind) {
	friends, err := h.store.ListAcceptedFriendNames(ctx, identity)
	if err != nil {
		h.log.Warn().Err(err).Str("identity", identity).Msg("friend lookup failed, skipping presence broadcast")
		return
	}

	ev := &Event{Kind: kind, User: identity}
	for _, friend := range friends {
		for _, connID := range h.roster.ConnectionsOf(friend) {
			if cl, ok := h.clients[connID]; ok {
				h.deliver(cl, ev)
			}
		}
	}
}

func (h *Hub) dropClient(ctx context.Context, c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	identity := h.registry.Close(c.ID)
	close(c.done)
	close(c.Events)

	if identity == "" {
		return
	}
	h.roster.Leave(identity, c.ID)
	// Offline is edge-triggered on the last connection of the identity.
	if !h.roster.IsOnline(identity) {
		h.broadcastPresence(ctx, identity, EventFriendOffline)
	}
}

// deliver sends an event without blocking the dispatcher. Slow consumers
// lose events rather than stall everyone else.
func (h *Hub) deliver(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("client_id", c.ID).Msg("event dropped for slow consumer")
	}
}

func historyEvent(correlationID string, stored []*store.Message) *Event {
	msgs := make([]Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, fromStored(m))
	}
	return &Event{Kind: EventHistory, CorrelationID: correlationID, Messages: msgs}
}

func fromStored(m *store.Message) Message {
	return Message{
		ID:        m.ID,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		IsPrivate: m.IsPrivate,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func normalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
