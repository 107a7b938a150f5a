package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/driftchat/driftchat-server/internal/store"
)

func TestAnnounceNotifiesOnlineFriends(t *testing.T) {
	st := newMemStore()
	st.befriend("alice", "bob")
	hub := startHub(t, st)

	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")

	alice := connect(hub, "conn-alice")
	announce(t, alice, "Alice ") // identity is normalized

	ev := mustEvent(t, bob.Events, EventFriendOnline)
	if ev.User != "alice" {
		t.Fatalf("expected presence for alice, got %q", ev.User)
	}
	// alice was offline when bob announced, so she saw nothing.
	mustNoEvent(t, alice.Events, EventFriendOnline)
}

func TestAnnounceSkipsNonFriends(t *testing.T) {
	st := newMemStore()
	hub := startHub(t, st)

	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")

	alice := connect(hub, "conn-alice")
	announce(t, alice, "alice")

	mustNoEvent(t, bob.Events, EventFriendOnline)
}

func TestSecondConnectionDoesNotRepeatPresence(t *testing.T) {
	st := newMemStore()
	st.befriend("alice", "bob")
	hub := startHub(t, st)

	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")

	alice1 := connect(hub, "conn-alice-1")
	announce(t, alice1, "alice")
	mustEvent(t, bob.Events, EventFriendOnline)

	alice2 := connect(hub, "conn-alice-2")
	announce(t, alice2, "alice")
	mustNoEvent(t, bob.Events, EventFriendOnline)

	// Closing one of two connections is not an offline transition.
	hub.UnregisterClient(alice1)
	mustNoEvent(t, bob.Events, EventFriendOffline)

	hub.UnregisterClient(alice2)
	ev := mustEvent(t, bob.Events, EventFriendOffline)
	if ev.User != "alice" {
		t.Fatalf("expected offline for alice, got %q", ev.User)
	}
}

func TestReAnnounceIsIdempotent(t *testing.T) {
	st := newMemStore()
	st.befriend("alice", "bob")
	hub := startHub(t, st)

	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")

	alice := connect(hub, "conn-alice")
	announce(t, alice, "alice")
	mustEvent(t, bob.Events, EventFriendOnline)

	announce(t, alice, "alice")
	mustNoEvent(t, bob.Events, EventFriendOnline)
	mustNoEvent(t, bob.Events, EventFriendOffline)
}

func TestGroupSendReachesEveryConnection(t *testing.T) {
	st := newMemStore()
	hub := startHub(t, st)

	alice := connect(hub, "conn-alice")
	announce(t, alice, "alice")
	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")
	// lurker never announced an identity but still receives group chat.
	lurker := connect(hub, "conn-lurker")

	alice.Commands <- &Command{Kind: CommandSendGroup, Text: "hello room"}

	for _, c := range []*Client{alice, bob, lurker} {
		ev := mustEvent(t, c.Events, EventGroupMessage)
		if ev.Message.Body != "hello room" || ev.Message.Sender != "alice" {
			t.Fatalf("unexpected group message on %s: %+v", c.ID, ev.Message)
		}
		if ev.Message.IsPrivate {
			t.Fatalf("group message marked private")
		}
	}
	if st.count() != 1 {
		t.Fatalf("expected one persisted message, got %d", st.count())
	}
}

func TestGroupSendRequiresAnnounce(t *testing.T) {
	st := newMemStore()
	hub := startHub(t, st)

	c := connect(hub, "conn-anon")
	c.Commands <- &Command{Kind: CommandSendGroup, Text: "hi"}

	ev := mustEvent(t, c.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotAnnounced {
		t.Fatalf("expected not_announced error, got %+v", ev.Error)
	}
	if st.count() != 0 {
		t.Fatalf("message must not be persisted without identity")
	}
}

func TestDirectSendDeliversAndEchoes(t *testing.T) {
	st := newMemStore()
	hub := startHub(t, st)

	alicePhone := connect(hub, "conn-alice-phone")
	announce(t, alicePhone, "alice")
	aliceLaptop := connect(hub, "conn-alice-laptop")
	announce(t, aliceLaptop, "alice")
	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")
	carol := connect(hub, "conn-carol")
	announce(t, carol, "carol")

	alicePhone.Commands <- &Command{Kind: CommandSendDirect, Identity: "bob", Text: "hi bob"}

	for _, c := range []*Client{bob, alicePhone, aliceLaptop} {
		ev := mustEvent(t, c.Events, EventDirectMessage)
		if ev.Message.Sender != "alice" || ev.Message.Recipient != "bob" || ev.Message.Body != "hi bob" {
			t.Fatalf("unexpected direct message on %s: %+v", c.ID, ev.Message)
		}
		if !ev.Message.IsPrivate {
			t.Fatalf("direct message not marked private")
		}
	}
	mustNoEvent(t, carol.Events, EventDirectMessage)
}

func TestDirectSendToOfflineRecipientStillPersists(t *testing.T) {
	st := newMemStore()
	hub := startHub(t, st)

	alice := connect(hub, "conn-alice")
	announce(t, alice, "alice")

	alice.Commands <- &Command{Kind: CommandSendDirect, Identity: "bob", Text: "you there?"}

	// Sender still gets the echo, and the message is durable for history.
	ev := mustEvent(t, alice.Events, EventDirectMessage)
	if ev.Message.Recipient != "bob" {
		t.Fatalf("unexpected recipient %q", ev.Message.Recipient)
	}
	if st.count() != 1 {
		t.Fatalf("expected message persisted, got %d", st.count())
	}
}

func TestPersistFailureSkipsDelivery(t *testing.T) {
	st := newMemStore()
	st.failSave = true
	hub := startHub(t, st)

	alice := connect(hub, "conn-alice")
	announce(t, alice, "alice")
	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")

	alice.Commands <- &Command{Kind: CommandSendGroup, Text: "lost"}
	alice.Commands <- &Command{Kind: CommandSendDirect, Identity: "bob", Text: "also lost"}

	mustNoEvent(t, bob.Events, EventGroupMessage)
	mustNoEvent(t, bob.Events, EventDirectMessage)
	mustNoEvent(t, alice.Events, EventDirectMessage)
}

func TestGroupHistoryCapAndOrder(t *testing.T) {
	st := newMemStore()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 120; i++ {
		st.seed(store.Message{
			Sender:    "alice",
			Body:      fmt.Sprintf("msg-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	// Directed traffic never leaks into the group replay.
	st.seed(store.Message{Sender: "alice", Recipient: "bob", IsPrivate: true, Body: "secret", CreatedAt: base})

	hub := startHub(t, st)
	c := connect(hub, "conn-alice")

	c.Commands <- &Command{Kind: CommandGroupHistory, CorrelationID: "req-1"}
	ev := mustEvent(t, c.Events, EventHistory)

	if ev.CorrelationID != "req-1" {
		t.Fatalf("correlation id not echoed: %q", ev.CorrelationID)
	}
	if len(ev.Messages) != DefaultHistoryLimit {
		t.Fatalf("expected %d messages, got %d", DefaultHistoryLimit, len(ev.Messages))
	}
	if ev.Messages[0].Body != "msg-20" || ev.Messages[len(ev.Messages)-1].Body != "msg-119" {
		t.Fatalf("history window wrong: first=%q last=%q", ev.Messages[0].Body, ev.Messages[len(ev.Messages)-1].Body)
	}
	for _, m := range ev.Messages {
		if m.IsPrivate {
			t.Fatalf("private message leaked into group history")
		}
	}
}

func TestDirectHistoryCoversBothDirections(t *testing.T) {
	st := newMemStore()
	base := time.Now().Add(-time.Hour)
	st.seed(store.Message{Sender: "alice", Recipient: "bob", IsPrivate: true, Body: "one", CreatedAt: base})
	st.seed(store.Message{Sender: "bob", Recipient: "alice", IsPrivate: true, Body: "two", CreatedAt: base.Add(time.Second)})
	st.seed(store.Message{Sender: "alice", Recipient: "carol", IsPrivate: true, Body: "other pair", CreatedAt: base})
	st.seed(store.Message{Sender: "alice", Body: "group", CreatedAt: base})

	hub := startHub(t, st)
	c := connect(hub, "conn-alice")
	announce(t, c, "alice")

	c.Commands <- &Command{Kind: CommandDirectHistory, Identity: "bob", CorrelationID: "req-2"}
	ev := mustEvent(t, c.Events, EventHistory)

	if ev.CorrelationID != "req-2" || ev.User != "bob" {
		t.Fatalf("reply metadata wrong: corr=%q user=%q", ev.CorrelationID, ev.User)
	}
	if len(ev.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(ev.Messages))
	}
	if ev.Messages[0].Body != "one" || ev.Messages[1].Body != "two" {
		t.Fatalf("conversation order wrong: %+v", ev.Messages)
	}
}

func TestHistoryFailureRepliesEmpty(t *testing.T) {
	st := newMemStore()
	st.failList = true
	hub := startHub(t, st)

	c := connect(hub, "conn-alice")
	c.Commands <- &Command{Kind: CommandGroupHistory, CorrelationID: "req-3"}

	ev := mustEvent(t, c.Events, EventHistory)
	if ev.CorrelationID != "req-3" {
		t.Fatalf("correlation id not echoed: %q", ev.CorrelationID)
	}
	if len(ev.Messages) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(ev.Messages))
	}
}

func TestFriendLookupFailureDoesNotBreakAnnounce(t *testing.T) {
	st := newMemStore()
	st.failFriends = true
	hub := startHub(t, st)

	alice := connect(hub, "conn-alice")
	announce(t, alice, "alice")
	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")

	// Presence broadcast was skipped, but messaging still works.
	alice.Commands <- &Command{Kind: CommandSendGroup, Text: "still alive"}
	mustEvent(t, bob.Events, EventGroupMessage)
}

func TestDisconnectStopsDelivery(t *testing.T) {
	st := newMemStore()
	hub := startHub(t, st)

	alice := connect(hub, "conn-alice")
	announce(t, alice, "alice")
	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")

	hub.UnregisterClient(bob)
	<-bob.Done()

	alice.Commands <- &Command{Kind: CommandSendGroup, Text: "after bob left"}
	mustEvent(t, alice.Events, EventGroupMessage)
	mustNoEvent(t, bob.Events, EventGroupMessage)
}

// TestFriendSessionLifecycle walks the common session end to end: two
// friends connect, exchange a directed message, one disconnects, and the
// survivor reads back the conversation.
func TestFriendSessionLifecycle(t *testing.T) {
	st := newMemStore()
	st.befriend("alice", "bob")
	hub := startHub(t, st)

	bob := connect(hub, "conn-bob")
	announce(t, bob, "bob")

	alice := connect(hub, "conn-alice")
	announce(t, alice, "alice")

	online := mustEvent(t, bob.Events, EventFriendOnline)
	if online.User != "alice" {
		t.Fatalf("expected alice online, got %q", online.User)
	}

	alice.Commands <- &Command{Kind: CommandSendDirect, Identity: "bob", Text: "hi"}
	dm := mustEvent(t, bob.Events, EventDirectMessage)
	if dm.Message.Sender != "alice" || dm.Message.Body != "hi" {
		t.Fatalf("unexpected dm: %+v", dm.Message)
	}
	echo := mustEvent(t, alice.Events, EventDirectMessage)
	if echo.Message.Recipient != "bob" {
		t.Fatalf("echo has wrong recipient: %+v", echo.Message)
	}

	hub.UnregisterClient(alice)
	offline := mustEvent(t, bob.Events, EventFriendOffline)
	if offline.User != "alice" {
		t.Fatalf("expected alice offline, got %q", offline.User)
	}

	bob.Commands <- &Command{Kind: CommandDirectHistory, Identity: "alice", CorrelationID: "replay"}
	history := mustEvent(t, bob.Events, EventHistory)
	if len(history.Messages) != 1 || history.Messages[0].Body != "hi" {
		t.Fatalf("unexpected conversation history: %+v", history.Messages)
	}
}
