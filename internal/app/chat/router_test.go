package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"relaychat/internal/app/message"
	"relaychat/internal/app/user"
)

type staticFriends map[string][]user.Friend

func (s staticFriends) Friends(_ context.Context, userID string) ([]user.Friend, error) {
	return s[userID], nil
}

type failingFriends struct{}

func (failingFriends) Friends(context.Context, string) ([]user.Friend, error) {
	return nil, errors.New("store down")
}

func TestRouter_DeliverPrivate(t *testing.T) {
	r := NewRegistry()
	s1, s2 := newFakeConn("s1", "S"), newFakeConn("s2", "S")
	r1 := newFakeConn("r1", "R")
	x1 := newFakeConn("x1", "X")
	for _, c := range []*fakeConn{s1, s2, r1, x1} {
		r.Register(c.userID, c)
	}

	rt := NewRouter(r, staticFriends{})
	msg := message.Message{ID: 1, SenderID: "S", RecipientID: "R", Kind: message.KindText, Content: "hi"}

	if n := rt.DeliverPrivate(msg, "S", "R"); n != 3 {
		t.Errorf("DeliverPrivate() delivered to %d connections, want 3", n)
	}
	for _, c := range []*fakeConn{s1, s2, r1} {
		if got := len(c.ofType(t, TypePrivateMessage)); got != 1 {
			t.Errorf("%s received %d PRIVATE_MESSAGE events, want 1", c.id, got)
		}
	}
	if got := len(x1.events(t)); got != 0 {
		t.Errorf("x1 is not a member of the scope but received %d events", got)
	}
}

func TestRouter_DeliverPrivateOfflineRecipient(t *testing.T) {
	r := NewRegistry()
	s1 := newFakeConn("s1", "S")
	r.Register("S", s1)

	rt := NewRouter(r, staticFriends{})
	if n := rt.DeliverPrivate(message.Message{ID: 1, SenderID: "S", RecipientID: "R"}, "S", "R"); n != 1 {
		t.Errorf("DeliverPrivate() = %d, want only the sender's own connection", n)
	}
}

func TestRouter_DeliverPublicIncludesSender(t *testing.T) {
	r := NewRegistry()
	s1, s2 := newFakeConn("s1", "S"), newFakeConn("s2", "S")
	o1 := newFakeConn("o1", "O")
	for _, c := range []*fakeConn{s1, s2, o1} {
		r.Register(c.userID, c)
	}

	rt := NewRouter(r, staticFriends{})
	rt.DeliverPublic(message.Message{ID: 7, SenderID: "S", Kind: message.KindText, Content: "all"})

	for _, c := range []*fakeConn{s1, s2, o1} {
		evs := c.ofType(t, TypePublicMessage)
		if len(evs) != 1 {
			t.Fatalf("%s received %d PUBLIC_MESSAGE events, want 1", c.id, len(evs))
		}
		var got message.Message
		if err := json.Unmarshal(evs[0].Payload, &got); err != nil {
			t.Fatal(err)
		}
		if got.ID != 7 || got.Content != "all" {
			t.Errorf("%s payload = %+v", c.id, got)
		}
	}
}

func TestRouter_FailingTargetDoesNotAbortDelivery(t *testing.T) {
	r := NewRegistry()
	a, b, c := newFakeConn("a", "A"), newFakeConn("b", "B"), newFakeConn("c", "C")
	b.fail = true
	for _, conn := range []*fakeConn{a, b, c} {
		r.Register(conn.userID, conn)
	}

	rt := NewRouter(r, staticFriends{})
	if n := rt.DeliverPublic(message.Message{ID: 1, SenderID: "A"}); n != 2 {
		t.Errorf("DeliverPublic() = %d, want 2", n)
	}
	if len(a.events(t)) != 1 || len(c.events(t)) != 1 {
		t.Error("healthy connections must still receive the message")
	}
}

func TestRouter_NotifyPresenceFriendsOnly(t *testing.T) {
	r := NewRegistry()
	f1, f2 := newFakeConn("f1", "F"), newFakeConn("f2", "F")
	stranger := newFakeConn("x1", "X")
	self := newFakeConn("u1", "U")
	for _, c := range []*fakeConn{f1, f2, stranger, self} {
		r.Register(c.userID, c)
	}

	friends := staticFriends{"U": {{ID: "F", Name: "f"}, {ID: "OFFLINE", Name: "o"}}}
	rt := NewRouter(r, friends)

	if err := rt.NotifyPresence(context.Background(), "U", true); err != nil {
		t.Fatalf("NotifyPresence() error = %v", err)
	}

	for _, c := range []*fakeConn{f1, f2} {
		evs := c.ofType(t, TypePresence)
		if len(evs) != 1 {
			t.Fatalf("%s received %d PRESENCE events, want 1", c.id, len(evs))
		}
		var p PresencePayload
		if err := json.Unmarshal(evs[0].Payload, &p); err != nil {
			t.Fatal(err)
		}
		if p.UserID != "U" || !p.IsOnline {
			t.Errorf("%s payload = %+v", c.id, p)
		}
	}
	if len(stranger.events(t)) != 0 || len(self.events(t)) != 0 {
		t.Error("presence must reach friends only")
	}
}

func TestRouter_NotifyPresenceStoreError(t *testing.T) {
	rt := NewRouter(NewRegistry(), failingFriends{})
	if err := rt.NotifyPresence(context.Background(), "U", false); err == nil {
		t.Error("NotifyPresence() should surface friend graph errors")
	}
}
