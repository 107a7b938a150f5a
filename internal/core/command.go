package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandAnnounce binds an identity to the connection.
	CommandAnnounce CommandKind = iota
	// CommandSendGroup delivers a chat message to everyone connected.
	CommandSendGroup
	// CommandSendDirect delivers a chat message to a single identity.
	CommandSendDirect
	// CommandGroupHistory requests the most recent group messages.
	CommandGroupHistory
	// CommandDirectHistory requests the conversation with another identity.
	CommandDirectHistory
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Identity string // announced identity, or directed-message recipient
	Text     string
	// CorrelationID is echoed back on history replies so the client can
	// match the reply to its request.
	CorrelationID string
}
