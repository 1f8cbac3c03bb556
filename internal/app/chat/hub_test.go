package chat

import (
	"slices"
	"testing"
)

func TestHubConfig_ReadLimit(t *testing.T) {
	tests := []struct {
		maxText int
		want    int64
	}{
		{500, minReadLimit},
		{0, minReadLimit},
		{16000, 4*16000 + envelopeHeadroom},
	}

	for _, tt := range tests {
		if got := (HubConfig{MaxTextLength: tt.maxText}).ReadLimit(); got != tt.want {
			t.Errorf("ReadLimit(MaxTextLength=%d) = %d, want %d", tt.maxText, got, tt.want)
		}
	}

	// An over-length body must still fit in a frame so it can be rejected.
	if limit := (HubConfig{MaxTextLength: DefaultMaxTextLength}).ReadLimit(); limit < 20*DefaultMaxTextLength {
		t.Errorf("ReadLimit() = %d leaves no room for over-length text", limit)
	}
}

func TestHub_MirrorFollowsPresenceEdges(t *testing.T) {
	mirror := newFakeMirror()
	env := newMirroredTestEnv(t, mirror, "alice")

	s1, _ := env.connect(t, "alice", "c1")
	waitFor(t, "online write", func() bool {
		_, online := mirror.snapshot()
		return online
	})

	s2, _ := env.connect(t, "alice", "c2")
	s1.Close()
	s2.Close()

	waitFor(t, "offline write", func() bool {
		writes, online := mirror.snapshot()
		return len(writes) == 2 && !online
	})

	writes, _ := mirror.snapshot()
	if !slices.Equal(writes, []string{"online", "offline"}) {
		t.Errorf("mirror writes = %v, want one per edge", writes)
	}
}

func TestHub_MirrorConvergesOnQuickReconnect(t *testing.T) {
	mirror := newHeldMirror()
	env := newMirroredTestEnv(t, mirror, "alice")

	s1, _ := env.connect(t, "alice", "c1")
	<-mirror.held

	// The offline and second online edges queue up behind the held write.
	s1.Close()
	env.connect(t, "alice", "c2")
	close(mirror.hold)

	waitFor(t, "all edges mirrored", func() bool {
		writes, _ := mirror.snapshot()
		return len(writes) == 3
	})

	writes, online := mirror.snapshot()
	if !online {
		t.Errorf("mirror says alice is offline, registry online = %v", env.hub.Registry().IsOnline(env.users["alice"].ID))
	}
	if !slices.Equal(writes, []string{"online", "online", "online"}) {
		t.Errorf("mirror writes = %v, want the current state written for every edge", writes)
	}
}
