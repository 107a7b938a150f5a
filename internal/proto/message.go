package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client. ID is an
// optional correlation token; replies to history requests echo it.
type Inbound struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello         = "hello"
	InboundTypeMsg           = "msg"
	InboundTypeDirect        = "dm"
	InboundTypeHistory       = "history"
	InboundTypeDirectHistory = "dm_history"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameMessage       = "message"
	EventNameDirect        = "dm"
	EventNameFriendOnline  = "friend_online"
	EventNameFriendOffline = "friend_offline"
	EventNameHistory       = "history"
)

// HelloData announces the client's identity. Token is optional; when set it
// must be a valid credential and its username takes precedence over User.
type HelloData struct {
	User     string `json:"user"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// MsgData is a group chat message from the client.
type MsgData struct {
	Text string `json:"text"`
}

// DirectData is a directed message to a single identity.
type DirectData struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// DirectHistoryData requests the conversation with another identity.
type DirectHistoryData struct {
	With string `json:"with"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is a chat message as delivered to clients.
type EventMessage struct {
	ID      int64  `json:"id,omitempty"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Text    string `json:"text"`
	Private bool   `json:"private,omitempty"`
	TS      int64  `json:"ts"`
}

// EventPresence notifies about a friend's presence transition.
type EventPresence struct {
	User string `json:"user"`
}

// EventHistory delivers an ordered message sequence.
type EventHistory struct {
	With     string         `json:"with,omitempty"`
	Messages []EventMessage `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
