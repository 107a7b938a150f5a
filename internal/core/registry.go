package core

// Registry tracks live connections and the identity bound to each. State is
// process-local and owned by the hub loop; nothing outside this package may
// touch the map directly.
type Registry struct {
	conns map[string]string // connection id -> identity, "" until announced
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]string)}
}

// Open records a new connection with no identity bound yet.
func (r *Registry) Open(connID string) {
	r.conns[connID] = ""
}

// Bind associates an identity with the connection, overwriting any previous
// binding. It returns the previously bound identity, or "" if none.
func (r *Registry) Bind(connID, identity string) (prev string) {
	prev = r.conns[connID]
	r.conns[connID] = identity
	return prev
}

// Identity returns the identity bound to the connection, or "".
func (r *Registry) Identity(connID string) string {
	return r.conns[connID]
}

// Close removes the connection and returns the identity it was bound to, or
// "" if it never announced.
func (r *Registry) Close(connID string) string {
	identity := r.conns[connID]
	delete(r.conns, connID)
	return identity
}

// Len returns the number of open connections.
func (r *Registry) Len() int {
	return len(r.conns)
}
