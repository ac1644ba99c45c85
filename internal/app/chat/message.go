/*
Package chat contains the core session and message-fanout engine: it tracks which
identities are online, routes messages to the correct live connections, retains
per-identity history for replay, and emits typing-presence events.

This file defines the wire protocol: inbound frame types consumed from clients,
outbound event types produced to clients, and the Message value exchanged between
participants.
*/
package chat

import (
	"encoding/json"
	"strings"
	"time"

	"relaychat/internal/app/identity"
	"relaychat/internal/pkg/errs"
)

const (
	// MaxContentBytes is the maximum allowed size (in bytes) for message content.
	MaxContentBytes = 5000

	// MaxCaptionBytes is the maximum allowed size (in bytes) for an image caption.
	MaxCaptionBytes = 500

	// MaxDisplayNameBytes is the maximum allowed size (in bytes) for a display name.
	MaxDisplayNameBytes = 64
)

// FrameType identifies an inbound frame sent by a client.
type FrameType string

const (
	FrameAuthenticate FrameType = "AUTHENTICATE"
	FrameSendMessage  FrameType = "SEND_MESSAGE"
	FrameTypingStart  FrameType = "TYPING_START"
	FrameTypingStop   FrameType = "TYPING_STOP"
)

// EventType identifies an outbound event produced by the server.
type EventType string

const (
	EventAuthenticated    EventType = "AUTHENTICATED"
	EventHistoryReplay    EventType = "HISTORY_REPLAY"
	EventRosterUpdate     EventType = "ROSTER_UPDATE"
	EventMessageDelivered EventType = "MESSAGE_DELIVERED"
	EventTypingChanged    EventType = "TYPING_CHANGED"
	EventError            EventType = "ERROR"
)

// Kind classifies the content of a chat message.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Message is a chat message as stored in history and delivered to recipients.
// Sender name and avatar are denormalized snapshots taken at send time, so later
// identity changes never retroactively alter historical messages.
type Message struct {
	ID           string   `json:"id"`
	SenderID     string   `json:"senderId"`
	SenderName   string   `json:"senderName"`
	SenderAvatar string   `json:"senderAvatar,omitempty"`
	Content      string   `json:"content"`
	Kind         Kind     `json:"kind"`
	Caption      string   `json:"caption,omitempty"`
	Timestamp    int64    `json:"timestamp"`
	TargetIDs    []string `json:"targetIds,omitempty"`
}

// Broadcast reports whether the message is addressed to everyone.
func (m Message) Broadcast() bool {
	return len(m.TargetIDs) == 0
}

// Frame is the envelope for all inbound client frames.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AuthenticatePayload carries the identity a client asserts on login.
// ID may be empty, in which case the server assigns a fresh guest ID.
type AuthenticatePayload struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef,omitempty"`
}

// SendPayload carries an outgoing message request. An empty TargetIDs slice
// means broadcast to everyone currently online.
type SendPayload struct {
	Content   string   `json:"content"`
	Kind      Kind     `json:"kind"`
	Caption   string   `json:"caption,omitempty"`
	TargetIDs []string `json:"targetIds,omitempty"`
}

// Validate checks the payload against content limits and kind rules.
func (p SendPayload) Validate() *errs.CustomError {
	if strings.TrimSpace(p.Content) == "" {
		return errs.NewError(errs.ErrMessageContentEmpty)
	}

	if len(p.Content) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	switch p.Kind {
	case KindText:
		if p.Caption != "" {
			return errs.NewError(errs.ErrCaptionNotAllowed)
		}
	case KindImage:
		if len(p.Caption) > MaxCaptionBytes {
			return errs.NewError(errs.ErrMessageContentTooLong)
		}
	default:
		return errs.NewError(errs.ErrMessageKindInvalid)
	}

	return nil
}

// Event is the envelope for all outbound server events.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// AuthenticatedPayload confirms a successful login to the new connection.
type AuthenticatedPayload struct {
	Identity identity.Identity `json:"identity"`
}

// HistoryReplayPayload carries the full ordered history for the newly
// authenticated identity.
type HistoryReplayPayload struct {
	Messages []Message `json:"messages"`
}

// RosterUpdatePayload carries the current set of live identities.
type RosterUpdatePayload struct {
	Identities []identity.Identity `json:"identities"`
}

// TypingChangedPayload signals a typing-presence transition for one identity.
type TypingChangedPayload struct {
	IdentityID  string `json:"identityId"`
	DisplayName string `json:"displayName,omitempty"`
	IsTyping    bool   `json:"isTyping"`
}

// ErrorPayload carries a business error back to a single connection.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MarshalEvent wraps the payload in an Event envelope stamped with the current
// time and returns its JSON encoding.
func MarshalEvent(t EventType, payload any) ([]byte, error) {
	return json.Marshal(Event{
		Type:      t,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
}
