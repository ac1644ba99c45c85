/*
Package identity contains the core data structure describing a chat participant.

An Identity is the durable (session-scoped) profile a client asserts on login.
It is the key under which message history is retained, so it outlives any single
connection: disconnecting does not destroy it, and a later login with the same
ID resumes the same history.
*/
package identity

// Identity represents a chat participant's self-asserted profile.
// Fields use JSON tags for serialization in WebSocket messages and API responses.
type Identity struct {

	// ID is the stable unique identifier for the participant. Server-assigned
	// when the client omits it on authenticate.
	ID string `json:"id"`

	// DisplayName is the name shown to other participants.
	DisplayName string `json:"displayName"`

	// AvatarRef is a URL or opaque reference to the participant's avatar image.
	AvatarRef string `json:"avatarRef,omitempty"`
}
