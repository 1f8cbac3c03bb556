package chat

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistry_Edges(t *testing.T) {
	r := NewRegistry()

	if first := r.Register("u1", newFakeConn("c1", "u1")); !first {
		t.Error("first Register should report the offline→online edge")
	}
	if first := r.Register("u1", newFakeConn("c2", "u1")); first {
		t.Error("second device must not report an edge")
	}
	if !r.IsOnline("u1") {
		t.Error("u1 should be online")
	}

	userID, last, ok := r.Unregister("c1")
	if !ok || last || userID != "u1" {
		t.Errorf("Unregister(c1) = (%q, %v, %v), want (u1, false, true)", userID, last, ok)
	}
	if !r.IsOnline("u1") {
		t.Error("u1 should stay online while c2 is registered")
	}

	userID, last, ok = r.Unregister("c2")
	if !ok || !last || userID != "u1" {
		t.Errorf("Unregister(c2) = (%q, %v, %v), want (u1, true, true)", userID, last, ok)
	}
	if r.IsOnline("u1") {
		t.Error("u1 should be offline")
	}
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", newFakeConn("c1", "u1"))

	if _, last, ok := r.Unregister("nope"); ok || last {
		t.Errorf("Unregister(unknown) = (_, %v, %v), want no-op", last, ok)
	}
	if _, _, ok := r.Unregister("c1"); !ok {
		t.Fatal("Unregister(c1) should succeed")
	}
	if _, _, ok := r.Unregister("c1"); ok {
		t.Error("second Unregister(c1) should be a no-op")
	}
	if r.ConnectionCount() != 0 || r.OnlineCount() != 0 {
		t.Errorf("registry not empty: %d connections, %d users", r.ConnectionCount(), r.OnlineCount())
	}
}

func TestRegistry_DuplicateConnectionID(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", newFakeConn("c1", "u1"))

	if first := r.Register("u2", newFakeConn("c1", "u2")); first {
		t.Error("re-registering a known connection id must be ignored")
	}
	if r.IsOnline("u2") {
		t.Error("a connection id belongs to at most one user")
	}
}

func TestRegistry_Snapshots(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", newFakeConn("c3", "u1"))
	r.Register("u1", newFakeConn("c1", "u1"))
	r.Register("u2", newFakeConn("c2", "u2"))

	if got := ids(r.ConnectionsOf("u1")); fmt.Sprint(got) != "[c1 c3]" {
		t.Errorf("ConnectionsOf(u1) = %v", got)
	}
	if got := ids(r.ConnectionsOf("nobody")); len(got) != 0 {
		t.Errorf("ConnectionsOf(nobody) = %v", got)
	}
	if got := ids(r.All()); fmt.Sprint(got) != "[c1 c2 c3]" {
		t.Errorf("All() = %v", got)
	}
	if r.OnlineCount() != 2 || r.ConnectionCount() != 3 {
		t.Errorf("counts = (%d users, %d conns), want (2, 3)", r.OnlineCount(), r.ConnectionCount())
	}
}

func TestRegistry_ConcurrentEdgesBalance(t *testing.T) {
	r := NewRegistry()

	var mu sync.Mutex
	rising, falling := 0, 0

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			first := r.Register("u1", newFakeConn(id, "u1"))
			_, last, _ := r.Unregister(id)

			mu.Lock()
			if first {
				rising++
			}
			if last {
				falling++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if rising == 0 || rising != falling {
		t.Errorf("rising=%d falling=%d, every online edge needs a matching offline edge", rising, falling)
	}
	if r.IsOnline("u1") || r.ConnectionCount() != 0 {
		t.Error("registry should be empty")
	}
}

func ids(conns []Conn) []string {
	out := make([]string, len(conns))
	for i, c := range conns {
		out[i] = c.ID()
	}
	return out
}
