/*
Package chat is the real-time session and fan-out engine.

The Hub owns the presence registry, the router and the background presence worker.
Every websocket connection gets a Session that walks the
Connecting → Authenticated → Active → Closed state machine and a Client that pumps
frames between the socket and the Session.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"relaychat/internal/app/message"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/metrics"
)

const (
	// DefaultHistoryLimit is the number of messages returned by history requests.
	DefaultHistoryLimit = 50

	// DefaultStoreTimeout bounds every verifier and store call made by the engine.
	DefaultStoreTimeout = 5 * time.Second

	// DefaultSendQueueSize is the per-connection outbound buffer.
	DefaultSendQueueSize = 256

	presenceQueueSize = 1024

	// minReadLimit is the smallest inbound frame size a connection accepts.
	minReadLimit = 64 << 10

	// envelopeHeadroom covers the JSON envelope around a message body.
	envelopeHeadroom = 4 << 10
)

// IdentityVerifier turns a connection credential into a user identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (user.User, error)
}

// HistoryStore is the message log the engine appends to and reads from.
type HistoryStore interface {
	Append(ctx context.Context, msg message.Message) (message.Message, error)
	RecentPublic(ctx context.Context, limit int) ([]message.Message, error)
	RecentPrivate(ctx context.Context, a, b string, limit int) ([]message.Message, error)
}

// PresenceMirror receives online/offline edges, e.g. to share them with other processes.
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// HubConfig holds the engine limits. Zero values fall back to the defaults.
type HubConfig struct {
	HistoryLimit  int
	MaxTextLength int
	SendQueueSize int
	StoreTimeout  time.Duration
}

func (c HubConfig) withDefaults() HubConfig {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.MaxTextLength <= 0 {
		c.MaxTextLength = DefaultMaxTextLength
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = DefaultSendQueueSize
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = DefaultStoreTimeout
	}
	return c
}

// ReadLimit is the largest inbound websocket frame accepted. Bodies up to four bytes
// per rune of MaxTextLength fit, so over-length text reaches validation and is
// rejected instead of closing the connection.
func (c HubConfig) ReadLimit() int64 {
	limit := int64(4*c.MaxTextLength + envelopeHeadroom)
	if limit < minReadLimit {
		limit = minReadLimit
	}
	return limit
}

type presenceTask struct {
	userID string
	online bool
}

// Hub coordinates sessions, presence and delivery for the whole process.
type Hub struct {
	config   HubConfig
	registry *Registry
	router   *Router
	verifier IdentityVerifier
	friends  FriendGraph
	history  HistoryStore
	mirror   PresenceMirror
	scopes   *keyedMutex

	// presence edges are processed in order by one worker goroutine.
	presence chan presenceTask

	// mu guards closed against enqueue racing with Shutdown.
	mu     sync.RWMutex
	closed bool

	// wg tracks the worker and any overflow presence goroutines.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewHub constructs a Hub and starts its presence worker. mirror may be nil.
func NewHub(cfg HubConfig, verifier IdentityVerifier, friends FriendGraph, history HistoryStore, mirror PresenceMirror) *Hub {
	registry := NewRegistry()

	h := &Hub{
		config:   cfg.withDefaults(),
		registry: registry,
		router:   NewRouter(registry, friends),
		verifier: verifier,
		friends:  friends,
		history:  history,
		mirror:   mirror,
		scopes:   newKeyedMutex(),
		presence: make(chan presenceTask, presenceQueueSize),
		logger:   logx.Component("Hub"),
	}

	h.wg.Add(1)
	go h.runPresenceLoop()

	return h
}

// Registry returns the presence registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Router returns the fan-out router.
func (h *Hub) Router() *Router {
	return h.router
}

// Config returns the effective engine limits.
func (h *Hub) Config() HubConfig {
	return h.config
}

// NewSession returns a session in the Connecting state.
func (h *Hub) NewSession() *Session {
	return newSession(h)
}

// FriendsWithPresence returns the friends of userID with IsOnline filled in from the
// registry.
func (h *Hub) FriendsWithPresence(ctx context.Context, userID string) ([]user.Friend, error) {
	ctx, cancel := h.storeContext(ctx)
	defer cancel()

	friends, err := h.friends.Friends(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]user.Friend, len(friends))
	for i, f := range friends {
		f.IsOnline = h.registry.IsOnline(f.ID)
		out[i] = f
	}
	return out, nil
}

// PushFriendList sends a fresh FRIEND_LIST to every live connection of userID, e.g.
// after the friend graph changed through the HTTP API.
func (h *Hub) PushFriendList(ctx context.Context, userID string) error {
	conns := h.registry.ConnectionsOf(userID)
	if len(conns) == 0 {
		return nil
	}

	friends, err := h.FriendsWithPresence(ctx, userID)
	if err != nil {
		return err
	}

	data, err := Encode(TypeFriendList, friends)
	if err != nil {
		return err
	}
	h.router.fanOut(conns, data, TypeFriendList)

	return nil
}

// Logout closes every live connection of userID and returns how many were closed.
func (h *Hub) Logout(userID string) int {
	conns := h.registry.ConnectionsOf(userID)
	for _, c := range conns {
		c.Close(ReasonLoggedOut)
	}

	h.logger.Info().Str("user_id", userID).Int("connections", len(conns)).Msg("Forced logout")
	return len(conns)
}

// Shutdown closes every connection, then drains and stops the presence worker.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	for _, c := range h.registry.All() {
		c.Close(ReasonShutdown)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.presence)
	h.mu.Unlock()

	h.wg.Wait()

	h.logger.Info().Msg("Hub shutdown complete.")
}

// publish persists msg and fans it out. Append and delivery run under the scope
// lock, so all live members of a scope observe its messages in persisted order.
func (h *Hub) publish(ctx context.Context, msg message.Message) (message.Message, error) {
	scope := msg.Scope()

	unlock := h.scopes.Lock(scope.Key())
	defer unlock()

	storeCtx, cancel := h.storeContext(ctx)
	saved, err := h.history.Append(storeCtx, msg)
	cancel()
	if err != nil {
		return message.Message{}, err
	}

	metrics.MessagesTotal.WithLabelValues(scope.Label(), string(saved.Kind)).Inc()

	if saved.IsPrivate() {
		h.router.DeliverPrivate(saved, saved.SenderID, saved.RecipientID)
	} else {
		h.router.DeliverPublic(saved)
	}

	return saved, nil
}

func (h *Hub) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.config.StoreTimeout)
}

// presenceChanged schedules the propagation of a presence edge. It never blocks the
// caller; when the worker queue is full the task runs on its own goroutine.
func (h *Hub) presenceChanged(userID string, online bool) {
	metrics.OnlineUsers.Set(float64(h.registry.OnlineCount()))

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	task := presenceTask{userID: userID, online: online}

	select {
	case h.presence <- task:
	default:
		h.logger.Warn().Str("user_id", userID).Msg("Presence queue full, propagating on a separate goroutine")
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.propagatePresence(task)
		}()
	}
}

func (h *Hub) runPresenceLoop() {
	defer h.wg.Done()

	h.logger.Info().Msg("Presence loop started.")

	for task := range h.presence {
		h.propagatePresence(task)
	}

	h.logger.Info().Msg("Presence loop stopped.")
}

func (h *Hub) propagatePresence(task presenceTask) {
	state := "offline"
	if task.online {
		state = "online"
	}
	metrics.PresenceEventsTotal.WithLabelValues(state).Inc()

	ctx, cancel := h.storeContext(context.Background())
	defer cancel()

	if err := h.router.NotifyPresence(ctx, task.userID, task.online); err != nil {
		h.logger.Error().Err(err).Str("user_id", task.userID).Str("state", state).Msg("Failed to notify friends of presence change")
	}

	if h.mirror == nil {
		return
	}

	// The mirror tracks the registry's current state, not the edge.
	var err error
	if h.registry.IsOnline(task.userID) {
		err = h.mirror.SetOnline(ctx, task.userID)
	} else {
		err = h.mirror.SetOffline(ctx, task.userID)
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", task.userID).Msg("Failed to mirror presence")
	}
}
