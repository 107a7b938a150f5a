package core

// Roster is the in-memory index from identity to its open connections. It is
// the inverse of the registry's identity column and is kept consistent with
// it by the hub: every Bind pairs with one Join, every Close with one Leave.
// An identity is online iff it has at least one connection here.
type Roster struct {
	bindings map[string]map[string]struct{} // identity -> set of connection ids
}

// NewRoster constructs an empty roster.
func NewRoster() *Roster {
	return &Roster{bindings: make(map[string]map[string]struct{})}
}

// Join adds a connection under the identity.
func (r *Roster) Join(identity, connID string) {
	set, ok := r.bindings[identity]
	if !ok {
		set = make(map[string]struct{})
		r.bindings[identity] = set
	}
	set[connID] = struct{}{}
}

// Leave removes a connection from the identity. The identity's entry is
// dropped once its last connection leaves.
func (r *Roster) Leave(identity, connID string) {
	set, ok := r.bindings[identity]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.bindings, identity)
	}
}

// ConnectionsOf returns the connection ids currently bound to the identity.
func (r *Roster) ConnectionsOf(identity string) []string {
	set := r.bindings[identity]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// IsOnline reports whether the identity has at least one bound connection.
func (r *Roster) IsOnline(identity string) bool {
	return len(r.bindings[identity]) > 0
}
