/*
Package chat contains the core session and message-fanout engine.

This file defines the Router, which turns a validated send request into an
immutable stamped Message, appends it to the correct history logs, and reports
which live identities should receive an immediate delivery. History updates and
the delivery decision happen inside one event-loop step, so no observer can see
one without the other.
*/
package chat

import (
	"time"

	"relaychat/internal/app/identity"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/randx"
)

// Router decides, for each inbound message, which identities receive it and
// which history logs it lands in. It operates purely on identity and message
// values; mapping identities to transport connections is the Hub's job.
type Router struct {
	registry *Registry
	history  *HistoryStore

	// newID and now are injectable for tests.
	newID func() string
	now   func() time.Time
}

// NewRouter returns a Router over the given registry and history store.
func NewRouter(registry *Registry, history *HistoryStore) *Router {
	return &Router{
		registry: registry,
		history:  history,
		newID:    randx.MessageID,
		now:      time.Now,
	}
}

// Route validates p, stamps it into a Message from sender, appends it to every
// entitled history log, and returns the message together with the ordered
// identity IDs that have a live connection and should receive it now.
//
// Broadcast: every live identity except the sender gets a history append and a
// delivery; the sender gets a self-echo append and delivery, so the sender's UI
// reflects the authoritative server copy. Directed: the sender and each named
// target get a history append (targets regardless of liveness, so offline
// targets see it on next replay); delivery goes to the sender plus each target
// that is currently live.
//
// On a validation error nothing is appended and nothing is delivered.
func (rt *Router) Route(sender identity.Identity, p SendPayload) (Message, []string, *errs.CustomError) {
	if cerr := p.Validate(); cerr != nil {
		return Message{}, nil, cerr
	}

	targets := dedupeTargets(p.TargetIDs)
	if len(p.TargetIDs) > 0 && len(targets) == 0 {
		return Message{}, nil, errs.NewError(errs.ErrInvalidParams)
	}

	msg := Message{
		ID:           rt.newID(),
		SenderID:     sender.ID,
		SenderName:   sender.DisplayName,
		SenderAvatar: sender.AvatarRef,
		Content:      p.Content,
		Kind:         p.Kind,
		Caption:      p.Caption,
		Timestamp:    rt.now().UnixMilli(),
		TargetIDs:    targets,
	}

	if msg.Broadcast() {
		return msg, rt.fanoutBroadcast(msg), nil
	}
	return msg, rt.fanoutDirected(msg), nil
}

func (rt *Router) fanoutBroadcast(msg Message) []string {
	// Self-echo first so the sender observes its own message before anyone
	// can reply to it.
	rt.history.Append(msg.SenderID, msg)
	recipients := []string{msg.SenderID}

	for _, ident := range rt.registry.Live() {
		if ident.ID == msg.SenderID {
			continue
		}
		rt.history.Append(ident.ID, msg)
		recipients = append(recipients, ident.ID)
	}

	return recipients
}

func (rt *Router) fanoutDirected(msg Message) []string {
	rt.history.Append(msg.SenderID, msg)
	recipients := []string{msg.SenderID}

	for _, targetID := range msg.TargetIDs {
		if targetID == msg.SenderID {
			// Already covered by the self-echo append above.
			continue
		}

		// An unknown target is not an error: its log is created lazily and
		// the message waits there for its first authenticate.
		rt.history.Append(targetID, msg)

		if _, live := rt.registry.Resolve(targetID); live {
			recipients = append(recipients, targetID)
		}
	}

	return recipients
}

// dedupeTargets removes empty and duplicate target IDs while preserving order.
// A message that names only the sender stays directed; it must not degrade
// into a broadcast.
func dedupeTargets(targetIDs []string) []string {
	if len(targetIDs) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(targetIDs))
	out := make([]string, 0, len(targetIDs))

	for _, id := range targetIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
