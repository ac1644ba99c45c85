/*
Package chat contains the core session and message-fanout engine.

This file defines the Hub, the session gateway. It is the only component aware
of transport connections: it translates connection lifecycle and inbound frames
into domain operations on the Registry, HistoryStore, Router, and Presence
tracker, all of which it owns.

Every mutating operation runs on a single event-loop goroutine that drains one
command queue fed by all connections. That serialization is what guarantees
per-sender FIFO delivery and the register -> replay -> roster sequencing without
any locking around the shared maps.
*/
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/app/identity"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

const commandQueueBuffer = 1024

type commandKind int

const (
	cmdAuthenticate commandKind = iota
	cmdSend
	cmdTypingStart
	cmdTypingStop
	cmdDisconnect
	cmdHistorySnapshot
)

// command is one unit of work for the Hub loop.
type command struct {
	kind   commandKind
	client *Client

	auth AuthenticatePayload
	send SendPayload

	// history snapshot request
	identityID string
	reply      chan []Message
}

// Hub coordinates all live connections and owns the serialized domain state.
type Hub struct {
	registry *Registry
	history  *HistoryStore
	router   *Router
	presence *Presence

	// clients maps connection IDs to their transport client. Only
	// authenticated connections are present.
	clients map[string]*Client

	commands chan command

	// done is closed when the Run loop exits so enqueuers never block on a
	// dead hub.
	done     chan struct{}
	doneOnce sync.Once

	logger zerolog.Logger
}

// NewHub constructs a Hub with empty state. Call Run to start processing.
func NewHub() *Hub {
	hubLogger := logx.Logger().With().Str("component", "Hub").Logger()

	registry := NewRegistry()
	history := NewHistoryStore()

	return &Hub{
		registry: registry,
		history:  history,
		router:   NewRouter(registry, history),
		presence: NewPresence(),
		clients:  make(map[string]*Client),
		commands: make(chan command, commandQueueBuffer),
		done:     make(chan struct{}),
		logger:   hubLogger,
	}
}

// Run is the Hub's main event loop. It processes one command to completion
// before taking the next, and exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info().Msg("Hub event loop started.")

	defer func() {
		h.doneOnce.Do(func() { close(h.done) })

		for connID, client := range h.clients {
			delete(h.clients, connID)
			client.closeSend()
		}

		h.logger.Info().Msg("Hub event loop stopped.")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-h.commands:
			h.dispatch(cmd)
		}
	}
}

func (h *Hub) dispatch(cmd command) {
	switch cmd.kind {
	case cmdAuthenticate:
		h.handleAuthenticate(cmd.client, cmd.auth)
	case cmdSend:
		h.handleSend(cmd.client, cmd.send)
	case cmdTypingStart:
		h.handleTyping(cmd.client, true)
	case cmdTypingStop:
		h.handleTyping(cmd.client, false)
	case cmdDisconnect:
		h.handleDisconnect(cmd.client)
	case cmdHistorySnapshot:
		cmd.reply <- h.history.Get(cmd.identityID)
	}
}

// enqueue submits a command to the loop. It blocks until the loop accepts it,
// unless the hub has already shut down.
func (h *Hub) enqueue(cmd command) {
	select {
	case h.commands <- cmd:
	case <-h.done:
	}
}

// Authenticate binds the asserted identity to the client's connection.
func (h *Hub) Authenticate(c *Client, p AuthenticatePayload) {
	h.enqueue(command{kind: cmdAuthenticate, client: c, auth: p})
}

// Send routes a message from the client to its recipients.
func (h *Hub) Send(c *Client, p SendPayload) {
	h.enqueue(command{kind: cmdSend, client: c, send: p})
}

// TypingStart signals that the client's identity started typing.
func (h *Hub) TypingStart(c *Client) {
	h.enqueue(command{kind: cmdTypingStart, client: c})
}

// TypingStop signals that the client's identity stopped typing.
func (h *Hub) TypingStop(c *Client) {
	h.enqueue(command{kind: cmdTypingStop, client: c})
}

// Disconnect removes the client's binding and presence state. Safe to call for
// connections that were never authenticated or were already superseded.
func (h *Hub) Disconnect(c *Client) {
	h.enqueue(command{kind: cmdDisconnect, client: c})
}

// History returns a point-in-time copy of identityID's message log, serialized
// through the event loop so it never observes a half-applied fanout. Returns
// nil if the hub has shut down.
func (h *Hub) History(identityID string) []Message {
	reply := make(chan []Message, 1)
	h.enqueue(command{kind: cmdHistorySnapshot, identityID: identityID, reply: reply})

	select {
	case msgs := <-reply:
		return msgs
	case <-h.done:
		return nil
	}
}

func (h *Hub) handleAuthenticate(c *Client, p AuthenticatePayload) {
	ident, cerr := h.buildIdentity(p)
	if cerr != nil {
		c.SendError(cerr)
		return
	}

	superseded := h.registry.Register(c.connID, ident)
	h.history.Ensure(ident.ID)

	if superseded != "" {
		if old, ok := h.clients[superseded]; ok {
			delete(h.clients, superseded)
			old.Kick("Session replaced by a newer login for this identity.")
		}

		h.logger.Info().
			Str("identity_id", ident.ID).
			Str("old_conn_id", superseded).
			Str("new_conn_id", c.connID).
			Msg("Identity rebound to new connection. Old connection superseded.")
	}

	h.clients[c.connID] = c

	c.SendEvent(EventAuthenticated, AuthenticatedPayload{Identity: ident})
	c.SendEvent(EventHistoryReplay, HistoryReplayPayload{Messages: h.history.Get(ident.ID)})

	h.broadcastRoster()

	h.logger.Info().
		Str("identity_id", ident.ID).
		Str("display_name", ident.DisplayName).
		Int("online", len(h.clients)).
		Msg("Identity authenticated.")
}

// buildIdentity fills in server-assigned defaults for a self-asserted login.
func (h *Hub) buildIdentity(p AuthenticatePayload) (identity.Identity, *errs.CustomError) {
	name := strings.TrimSpace(p.DisplayName)
	if len(name) > MaxDisplayNameBytes {
		return identity.Identity{}, errs.NewError(errs.ErrInvalidDisplayName)
	}

	if name == "" {
		generated, err := randx.DisplayName()
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to generate display name.")
			return identity.Identity{}, errs.NewError(errs.ErrUnknown)
		}
		name = generated
	}

	id := strings.TrimSpace(p.ID)
	if id == "" {
		generated, err := randx.GuestID()
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to generate guest ID.")
			return identity.Identity{}, errs.NewError(errs.ErrUnknown)
		}
		id = generated
	}

	return identity.Identity{
		ID:          id,
		DisplayName: name,
		AvatarRef:   strings.TrimSpace(p.AvatarRef),
	}, nil
}

func (h *Hub) handleSend(c *Client, p SendPayload) {
	sender, ok := h.registry.IdentityFor(c.connID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	// Content delivery is a stronger presence signal than typing_stop, so a
	// send while typing forces the Idle transition.
	if h.presence.Stop(sender.ID) {
		h.emitTypingChanged(sender, false)
	}

	msg, recipients, cerr := h.router.Route(sender, p)
	if cerr != nil {
		c.SendError(cerr)
		return
	}

	h.deliver(msg, recipients)

	h.logger.Debug().
		Str("message_id", msg.ID).
		Str("sender_id", sender.ID).
		Bool("broadcast", msg.Broadcast()).
		Int("recipients", len(recipients)).
		Msg("Message routed.")
}

// deliver marshals the message once and queues it to every recipient with a
// live connection. A full or closed recipient queue drops that one copy and
// never affects the others.
func (h *Hub) deliver(msg Message, recipients []string) {
	frame, err := MarshalEvent(EventMessageDelivered, msg)
	if err != nil {
		h.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Error marshaling message for delivery.")
		return
	}

	for _, identityID := range recipients {
		connID, ok := h.registry.Resolve(identityID)
		if !ok {
			continue
		}

		if client, ok := h.clients[connID]; ok {
			client.enqueueFrame(frame)
		}
	}
}

func (h *Hub) handleTyping(c *Client, started bool) {
	ident, ok := h.registry.IdentityFor(c.connID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	var changed bool
	if started {
		changed = h.presence.Start(ident.ID)
	} else {
		changed = h.presence.Stop(ident.ID)
	}

	if changed {
		h.emitTypingChanged(ident, started)
	}
}

// emitTypingChanged notifies every live connection except the typist's own.
func (h *Hub) emitTypingChanged(ident identity.Identity, isTyping bool) {
	payload := TypingChangedPayload{
		IdentityID: ident.ID,
		IsTyping:   isTyping,
	}
	if isTyping {
		payload.DisplayName = ident.DisplayName
	}

	frame, err := MarshalEvent(EventTypingChanged, payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling typing event.")
		return
	}

	ownConn, _ := h.registry.Resolve(ident.ID)

	for connID, client := range h.clients {
		if connID == ownConn {
			continue
		}
		client.enqueueFrame(frame)
	}
}

func (h *Hub) handleDisconnect(c *Client) {
	if _, tracked := h.clients[c.connID]; tracked {
		delete(h.clients, c.connID)
		c.closeSend()
	}

	ident, ok := h.registry.Unregister(c.connID)
	if !ok {
		// Never authenticated, or already superseded by a newer login.
		h.logger.Debug().Str("conn_id", c.connID).Msg("Disconnect for unbound connection. Nothing to do.")
		return
	}

	if h.presence.Stop(ident.ID) {
		h.emitTypingChanged(ident, false)
	}

	h.broadcastRoster()

	h.logger.Info().
		Str("identity_id", ident.ID).
		Int("online", len(h.clients)).
		Msg("Identity disconnected.")
}

// broadcastRoster pushes the current live-identity snapshot to every connection.
func (h *Hub) broadcastRoster() {
	frame, err := MarshalEvent(EventRosterUpdate, RosterUpdatePayload{Identities: h.registry.Live()})
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling roster update.")
		return
	}

	for _, client := range h.clients {
		client.enqueueFrame(frame)
	}
}
