package chat

// Presence tracks the per-identity typing state machine: Idle <-> Typing.
// State is transient and independent per identity; it is reset on disconnect
// and implicitly on send. Owned by the Hub's event loop, not safe for
// concurrent use.
type Presence struct {
	typing map[string]bool
}

// NewPresence returns an empty Presence tracker.
func NewPresence() *Presence {
	return &Presence{typing: make(map[string]bool)}
}

// Start transitions identityID to Typing. It returns true only when the state
// actually changed, so repeated typing_start signals produce a single emission.
func (p *Presence) Start(identityID string) bool {
	if p.typing[identityID] {
		return false
	}
	p.typing[identityID] = true
	return true
}

// Stop transitions identityID to Idle. It returns true only when the identity
// was in Typing state. Called on typing_stop, implicitly on send, and on
// disconnect.
func (p *Presence) Stop(identityID string) bool {
	if !p.typing[identityID] {
		return false
	}
	delete(p.typing, identityID)
	return true
}

// IsTyping reports the current state for identityID.
func (p *Presence) IsTyping(identityID string) bool {
	return p.typing[identityID]
}
