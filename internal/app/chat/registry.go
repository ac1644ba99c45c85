/*
Package chat contains the core session and message-fanout engine.

This file defines the Registry, the single source of truth for which identities
are currently online and which connection each one is bound to.
*/
package chat

import "relaychat/internal/app/identity"

// Registry maps live connections to identities. It is not safe for concurrent
// use: all access happens on the Hub's event loop goroutine, which gives every
// registry mutation a global total order.
type Registry struct {
	// byConn maps a connection ID to the identity bound to it.
	byConn map[string]identity.Identity

	// byIdentity maps an identity ID to its single live connection ID.
	byIdentity map[string]string

	// order records connection IDs in registration order so roster snapshots
	// are deterministic.
	order []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn:     make(map[string]identity.Identity),
		byIdentity: make(map[string]string),
	}
}

// Register binds connID to ident.ID. The stored profile is overwritten with the
// incoming one, so a rejoin with a new display name or avatar takes effect for
// future messages. If the identity already has a live connection, that prior
// connection is unbound (last login wins) and its ID is returned so the caller
// can deal with the zombie; otherwise the returned string is empty.
func (r *Registry) Register(connID string, ident identity.Identity) (superseded string) {
	if prev, ok := r.byIdentity[ident.ID]; ok && prev != connID {
		delete(r.byConn, prev)
		r.dropFromOrder(prev)
		superseded = prev
	}

	// A connection re-authenticating as a different identity releases its
	// previous binding.
	if old, ok := r.byConn[connID]; ok && old.ID != ident.ID {
		if r.byIdentity[old.ID] == connID {
			delete(r.byIdentity, old.ID)
		}
	}

	if _, ok := r.byConn[connID]; !ok {
		r.order = append(r.order, connID)
	}

	r.byConn[connID] = ident
	r.byIdentity[ident.ID] = connID

	return superseded
}

// Unregister removes the binding for connID if present and returns the identity
// it was bound to. A connection that was already superseded has no binding, so
// its disconnect is a no-op: the second return value is false.
func (r *Registry) Unregister(connID string) (identity.Identity, bool) {
	ident, ok := r.byConn[connID]
	if !ok {
		return identity.Identity{}, false
	}

	delete(r.byConn, connID)
	r.dropFromOrder(connID)

	if r.byIdentity[ident.ID] == connID {
		delete(r.byIdentity, ident.ID)
	}

	return ident, true
}

// Live returns a snapshot of all currently-bound identities in registration order.
func (r *Registry) Live() []identity.Identity {
	out := make([]identity.Identity, 0, len(r.byConn))
	for _, connID := range r.order {
		out = append(out, r.byConn[connID])
	}
	return out
}

// Resolve returns the live connection ID for identityID, if any.
func (r *Registry) Resolve(identityID string) (string, bool) {
	connID, ok := r.byIdentity[identityID]
	return connID, ok
}

// IdentityFor returns the identity bound to connID, if any.
func (r *Registry) IdentityFor(connID string) (identity.Identity, bool) {
	ident, ok := r.byConn[connID]
	return ident, ok
}

func (r *Registry) dropFromOrder(connID string) {
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
