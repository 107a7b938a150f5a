package core

// Client is one live connection as seen by the core layer. Identity is empty
// until the client announces itself and is written only by the hub loop.
type Client struct {
	ID       string
	Identity string
	Commands chan *Command
	Events   chan *Event

	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		done:     make(chan struct{}),
	}
}

// Done is closed when the hub has unregistered the client. No further events
// are delivered after that.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
