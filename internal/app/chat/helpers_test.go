package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"relaychat/internal/app/memdb"
	"relaychat/internal/app/user"
)

type fakeConn struct {
	id     string
	userID string

	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
	reason string
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (f *fakeConn) ID() string     { return f.id }
func (f *fakeConn) UserID() string { return f.userID }

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrConnClosed
	}
	if f.fail {
		return ErrSendQueueFull
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		f.reason = reason
	}
}

type receivedEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (f *fakeConn) events(t *testing.T) []receivedEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]receivedEvent, 0, len(f.frames))
	for _, raw := range f.frames {
		var ev receivedEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("connection %s received invalid frame %s: %v", f.id, raw, err)
		}
		out = append(out, ev)
	}
	return out
}

func (f *fakeConn) ofType(t *testing.T, typ EventType) []receivedEvent {
	t.Helper()
	var out []receivedEvent
	for _, ev := range f.events(t) {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

type fakeVerifier map[string]user.User

var errBadToken = errors.New("bad token")

func (v fakeVerifier) Verify(_ context.Context, credential string) (user.User, error) {
	u, ok := v[credential]
	if !ok {
		return user.User{}, errBadToken
	}
	return u, nil
}

// testEnv is a hub over an in-memory store with registered users whose credential
// is their name.
type testEnv struct {
	hub   *Hub
	db    *memdb.DB
	users map[string]user.User
}

func newTestEnv(t *testing.T, names ...string) *testEnv {
	t.Helper()
	return newMirroredTestEnv(t, nil, names...)
}

// newMirroredTestEnv is newTestEnv with a presence mirror attached to the hub.
func newMirroredTestEnv(t *testing.T, mirror PresenceMirror, names ...string) *testEnv {
	t.Helper()

	db := memdb.New()
	verifier := fakeVerifier{}
	users := make(map[string]user.User, len(names))

	for _, name := range names {
		acc, err := db.CreateUser(context.Background(), name, "hash")
		if err != nil {
			t.Fatalf("CreateUser(%q) error = %v", name, err)
		}
		verifier[name] = acc.User
		users[name] = acc.User
	}

	hub := NewHub(HubConfig{HistoryLimit: 50, MaxTextLength: 500}, verifier, db, db, mirror)
	t.Cleanup(hub.Shutdown)

	return &testEnv{hub: hub, db: db, users: users}
}

func (e *testEnv) befriend(t *testing.T, a, b string) {
	t.Helper()
	if err := e.db.AddFriend(context.Background(), e.users[a].ID, e.users[b].ID, user.DefaultGroup); err != nil {
		t.Fatalf("AddFriend(%s, %s) error = %v", a, b, err)
	}
}

// connect runs a full Authenticate + Activate for name on a fake connection.
func (e *testEnv) connect(t *testing.T, name, connID string) (*Session, *fakeConn) {
	t.Helper()

	s := e.hub.NewSession()
	u, err := s.Authenticate(context.Background(), name)
	if err != nil {
		t.Fatalf("Authenticate(%s) error = %v", name, err)
	}

	conn := newFakeConn(connID, u.ID)
	if err := s.Activate(conn); err != nil {
		t.Fatalf("Activate(%s) error = %v", connID, err)
	}
	return s, conn
}

func request(t *testing.T, typ EventType, payload any, tempID string) []byte {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(Request{Type: typ, Payload: raw, TempID: tempID})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fakeMirror records presence mirror writes. When hold is set, the first write
// blocks until hold is closed, signalling held once it is waiting.
type fakeMirror struct {
	mu     sync.Mutex
	writes []string
	online map[string]bool

	hold     chan struct{}
	held     chan struct{}
	holdOnce sync.Once
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{online: make(map[string]bool)}
}

func newHeldMirror() *fakeMirror {
	m := newFakeMirror()
	m.hold = make(chan struct{})
	m.held = make(chan struct{})
	return m
}

func (m *fakeMirror) wait() {
	if m.hold == nil {
		return
	}
	m.holdOnce.Do(func() {
		close(m.held)
		<-m.hold
	})
}

func (m *fakeMirror) SetOnline(_ context.Context, userID string) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, "online")
	m.online[userID] = true
	return nil
}

func (m *fakeMirror) SetOffline(_ context.Context, userID string) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, "offline")
	delete(m.online, userID)
	return nil
}

func (m *fakeMirror) snapshot() ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...), len(m.online) > 0
}

// blockingVerifier accepts every credential as alice once release is closed.
type blockingVerifier struct {
	entered chan struct{}
	release chan struct{}
}

func (v *blockingVerifier) Verify(ctx context.Context, credential string) (user.User, error) {
	close(v.entered)
	select {
	case <-v.release:
		return user.User{ID: "u-alice", Name: "alice"}, nil
	case <-ctx.Done():
		return user.User{}, ctx.Err()
	}
}
