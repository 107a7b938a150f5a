package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventGroupMessage notifies clients about a message in the group chat.
	EventGroupMessage EventKind = iota
	// EventDirectMessage notifies the recipient of a directed message, and
	// echoes it to the sender's connections.
	EventDirectMessage
	// EventFriendOnline notifies clients that a friend came online.
	EventFriendOnline
	// EventFriendOffline notifies clients that a friend went offline.
	EventFriendOffline
	// EventHistory delivers message history in response to a request.
	EventHistory
	// EventError notifies clients about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind          EventKind
	User          string // identity, for presence events
	CorrelationID string // set on EventHistory replies
	Message       Message
	Messages      []Message // for EventHistory
	Error         *CoreError
}
