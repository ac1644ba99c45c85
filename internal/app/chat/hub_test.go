package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/app/identity"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/randx"
)

func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub
}

// authenticate runs the full login flow for a client and drains the three
// events it receives: authenticated, history replay, roster update.
func authenticate(t *testing.T, hub *Hub, c *Client, p AuthenticatePayload) (identity.Identity, []Message) {
	t.Helper()

	hub.Authenticate(c, p)

	var authed AuthenticatedPayload
	decodePayload(t, mustEvent(t, c, EventAuthenticated), &authed)

	var replay HistoryReplayPayload
	decodePayload(t, mustEvent(t, c, EventHistoryReplay), &replay)

	mustEvent(t, c, EventRosterUpdate)

	return authed.Identity, replay.Messages
}

func TestHubAuthenticateFlow(t *testing.T) {
	hub := startHub(t)
	alice := newTestClient(t, hub)

	hub.Authenticate(alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice", AvatarRef: "av"})

	var authed AuthenticatedPayload
	decodePayload(t, mustEvent(t, alice, EventAuthenticated), &authed)
	assert.Equal(t, "alice", authed.Identity.ID)
	assert.Equal(t, "Alice", authed.Identity.DisplayName)
	assert.Equal(t, "av", authed.Identity.AvatarRef)

	var replay HistoryReplayPayload
	decodePayload(t, mustEvent(t, alice, EventHistoryReplay), &replay)
	assert.Empty(t, replay.Messages)

	var roster RosterUpdatePayload
	decodePayload(t, mustEvent(t, alice, EventRosterUpdate), &roster)
	require.Len(t, roster.Identities, 1)
	assert.Equal(t, "alice", roster.Identities[0].ID)
}

func TestHubAssignsGuestIDAndNameWhenOmitted(t *testing.T) {
	hub := startHub(t)
	c := newTestClient(t, hub)

	ident, _ := authenticate(t, hub, c, AuthenticatePayload{})

	assert.True(t, randx.IsValidGuestID(ident.ID), "expected a guest id, got %q", ident.ID)
	assert.NotEmpty(t, ident.DisplayName)
}

func TestHubRosterTracksJoinsAndLeaves(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(t, hub)
	authenticate(t, hub, alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice"})

	bob := newTestClient(t, hub)
	authenticate(t, hub, bob, AuthenticatePayload{ID: "bob", DisplayName: "Bob"})

	// Alice sees the refreshed roster when Bob joins.
	var roster RosterUpdatePayload
	decodePayload(t, mustEvent(t, alice, EventRosterUpdate), &roster)
	require.Len(t, roster.Identities, 2)
	assert.Equal(t, "alice", roster.Identities[0].ID)
	assert.Equal(t, "bob", roster.Identities[1].ID)

	// And again when Bob leaves.
	hub.Disconnect(bob)
	decodePayload(t, mustEvent(t, alice, EventRosterUpdate), &roster)
	require.Len(t, roster.Identities, 1)
	assert.Equal(t, "alice", roster.Identities[0].ID)
}

func TestHubBroadcastDeliveryAndReplayOnReconnect(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(t, hub)
	authenticate(t, hub, alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice"})

	bob := newTestClient(t, hub)
	authenticate(t, hub, bob, AuthenticatePayload{ID: "bob", DisplayName: "Bob"})
	mustEvent(t, alice, EventRosterUpdate)

	hub.Send(alice, SendPayload{Content: "hi", Kind: KindText})

	var toBob Message
	decodePayload(t, mustEvent(t, bob, EventMessageDelivered), &toBob)
	assert.Equal(t, "hi", toBob.Content)
	assert.Equal(t, "alice", toBob.SenderID)
	assert.Equal(t, "Alice", toBob.SenderName)

	// Sender sees the authoritative server copy too.
	var toAlice Message
	decodePayload(t, mustEvent(t, alice, EventMessageDelivered), &toAlice)
	assert.Equal(t, toBob.ID, toAlice.ID)

	// Bob disconnects and rejoins with the same identity: the broadcast is
	// replayed from his history log.
	hub.Disconnect(bob)
	mustEvent(t, alice, EventRosterUpdate)

	bob2 := newTestClient(t, hub)
	_, replay := authenticate(t, hub, bob2, AuthenticatePayload{ID: "bob", DisplayName: "Bob"})
	require.Len(t, replay, 1)
	assert.Equal(t, "hi", replay[0].Content)
}

func TestHubBroadcastNotRetroactiveForLateJoiners(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(t, hub)
	authenticate(t, hub, alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice"})

	hub.Send(alice, SendPayload{Content: "before carol", Kind: KindText})
	mustEvent(t, alice, EventMessageDelivered)

	carol := newTestClient(t, hub)
	_, replay := authenticate(t, hub, carol, AuthenticatePayload{ID: "carol", DisplayName: "Carol"})
	assert.Empty(t, replay, "broadcasts sent before first registration are never delivered retroactively")
}

func TestHubDirectedMessageToOfflineTarget(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(t, hub)
	authenticate(t, hub, alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice"})

	bob := newTestClient(t, hub)
	authenticate(t, hub, bob, AuthenticatePayload{ID: "bob", DisplayName: "Bob"})
	mustEvent(t, alice, EventRosterUpdate)

	hub.Send(alice, SendPayload{Content: "psst", Kind: KindText, TargetIDs: []string{"ghost"}})

	// Self-echo still fires; bob is not a target and receives nothing.
	mustEvent(t, alice, EventMessageDelivered)
	requireNoEvent(t, bob)

	// The offline target picks the message up on first authenticate.
	ghost := newTestClient(t, hub)
	_, replay := authenticate(t, hub, ghost, AuthenticatePayload{ID: "ghost", DisplayName: "Ghost"})
	require.Len(t, replay, 1)
	assert.Equal(t, "psst", replay[0].Content)
	assert.Equal(t, []string{"ghost"}, replay[0].TargetIDs)
}

func TestHubSendWithoutAuthenticate(t *testing.T) {
	hub := startHub(t)

	stranger := newTestClient(t, hub)
	hub.Send(stranger, SendPayload{Content: "hello?", Kind: KindText})

	var errPayload ErrorPayload
	decodePayload(t, mustEvent(t, stranger, EventError), &errPayload)
	assert.Equal(t, errs.ErrNotAuthenticated, errPayload.Code)

	// No side effects: nothing was appended anywhere.
	assert.Empty(t, hub.History("alice"))
}

func TestHubLastLoginWinsAndZombieGetsNoDeliveries(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(t, hub)
	authenticate(t, hub, alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice"})

	bobOld := newTestClient(t, hub)
	authenticate(t, hub, bobOld, AuthenticatePayload{ID: "bob", DisplayName: "Bob"})
	mustEvent(t, alice, EventRosterUpdate)

	// Bob signs in again from a second connection.
	bobNew := newTestClient(t, hub)
	authenticate(t, hub, bobNew, AuthenticatePayload{ID: "bob", DisplayName: "Bob"})

	var roster RosterUpdatePayload
	decodePayload(t, mustEvent(t, alice, EventRosterUpdate), &roster)
	require.Len(t, roster.Identities, 2, "identity must appear exactly once after rejoin")

	// A broadcast reaches the new connection, never the superseded one.
	hub.Send(alice, SendPayload{Content: "who's there", Kind: KindText})
	mustEvent(t, alice, EventMessageDelivered)
	mustEvent(t, bobNew, EventMessageDelivered)
	requireNoEvent(t, bobOld)

	// The zombie's own disconnect is a no-op: no roster change for anyone.
	hub.Disconnect(bobOld)
	requireNoEvent(t, alice)

	// Only exactly one history copy per identity despite two bob connections.
	assert.Len(t, hub.History("bob"), 1)
}

func TestHubTypingStartIsIdempotent(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(t, hub)
	authenticate(t, hub, alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice"})

	bob := newTestClient(t, hub)
	authenticate(t, hub, bob, AuthenticatePayload{ID: "bob", DisplayName: "Bob"})
	mustEvent(t, alice, EventRosterUpdate)

	hub.TypingStart(alice)
	hub.TypingStart(alice)

	var typing TypingChangedPayload
	decodePayload(t, mustEvent(t, bob, EventTypingChanged), &typing)
	assert.Equal(t, "alice", typing.IdentityID)
	assert.Equal(t, "Alice", typing.DisplayName)
	assert.True(t, typing.IsTyping)

	// Second typing_start produced nothing; next event is the stop.
	hub.TypingStop(alice)
	decodePayload(t, mustEvent(t, bob, EventTypingChanged), &typing)
	assert.False(t, typing.IsTyping)

	// The typist never hears their own presence events.
	requireNoEvent(t, alice)
}

func TestHubSendWhileTypingForcesIdle(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(t, hub)
	authenticate(t, hub, alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice"})

	bob := newTestClient(t, hub)
	authenticate(t, hub, bob, AuthenticatePayload{ID: "bob", DisplayName: "Bob"})
	mustEvent(t, alice, EventRosterUpdate)

	hub.TypingStart(alice)

	var typing TypingChangedPayload
	decodePayload(t, mustEvent(t, bob, EventTypingChanged), &typing)
	assert.True(t, typing.IsTyping)

	// No explicit typing_stop: the send itself is the stronger signal.
	hub.Send(alice, SendPayload{Content: "done typing", Kind: KindText})

	decodePayload(t, mustEvent(t, bob, EventTypingChanged), &typing)
	assert.False(t, typing.IsTyping)

	mustEvent(t, bob, EventMessageDelivered)
}

func TestHubDisconnectWhileTypingEmitsStop(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(t, hub)
	authenticate(t, hub, alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice"})

	bob := newTestClient(t, hub)
	authenticate(t, hub, bob, AuthenticatePayload{ID: "bob", DisplayName: "Bob"})
	mustEvent(t, alice, EventRosterUpdate)

	hub.TypingStart(bob)
	mustEvent(t, alice, EventTypingChanged)

	hub.Disconnect(bob)

	var typing TypingChangedPayload
	decodePayload(t, mustEvent(t, alice, EventTypingChanged), &typing)
	assert.Equal(t, "bob", typing.IdentityID)
	assert.False(t, typing.IsTyping)

	mustEvent(t, alice, EventRosterUpdate)
}

func TestHubHistorySnapshot(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(t, hub)
	authenticate(t, hub, alice, AuthenticatePayload{ID: "alice", DisplayName: "Alice"})

	hub.Send(alice, SendPayload{Content: "one", Kind: KindText})
	hub.Send(alice, SendPayload{Content: "two", Kind: KindText})
	mustEvent(t, alice, EventMessageDelivered)
	mustEvent(t, alice, EventMessageDelivered)

	log := hub.History("alice")
	require.Len(t, log, 2)
	assert.Equal(t, "one", log[0].Content)
	assert.Equal(t, "two", log[1].Content)

	// Identities that never appear anywhere read as empty.
	assert.Empty(t, hub.History("nobody"))
}
