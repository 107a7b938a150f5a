package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/store"
)

// MessageHandlers provides HTTP read access to conversation history. The
// real-time channel serves the same data; this endpoint exists for clients
// that want history before opening a socket.
type MessageHandlers struct {
	store store.MessageStore
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.MessageStore, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{store: st, log: logger}
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID        int64  `json:"id"`
	From      string `json:"from"`
	To        string `json:"to,omitempty"`
	Text      string `json:"text"`
	Private   bool   `json:"private"`
	CreatedAt string `json:"created_at"`
}

// Conversation returns the directed conversation between the authenticated
// user and another identity, oldest-first.
// GET /api/messages?with=
func (h *MessageHandlers) Conversation(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	with := strings.ToLower(strings.TrimSpace(c.Query("with")))
	if with == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "with is required"})
		return
	}

	messages, err := h.store.ListConversation(c.Request.Context(), username, with)
	if err != nil {
		h.log.Error().Err(err).Str("user", username).Str("with", with).Msg("conversation query failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, MessageResponse{
			ID:        m.ID,
			From:      m.Sender,
			To:        m.Recipient,
			Text:      m.Body,
			Private:   m.IsPrivate,
			CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, response)
}
