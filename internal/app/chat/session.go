package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/app/message"
	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/metrics"
)

var (
	// ErrInvalidTransition is returned when a lifecycle method is called in the wrong state.
	ErrInvalidTransition = errors.New("chat: invalid session state transition")

	// ErrSessionNotActive is returned by Handle outside the Active state.
	ErrSessionNotActive = errors.New("chat: session is not active")
)

// State is the lifecycle state of a Session.
type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session drives one connection through Connecting → Authenticated → Active → Closed
// and serves its requests while Active. Closed is terminal.
type Session struct {
	hub *Hub

	mu        sync.Mutex
	state     State
	verifying bool
	user      user.User
	conn      Conn

	logger zerolog.Logger
}

func newSession(h *Hub) *Session {
	return &Session{
		hub:    h,
		state:  StateConnecting,
		logger: logx.Component("Session"),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the verified identity. It is the zero User before authentication.
func (s *Session) User() user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Authenticate verifies credential. On failure the session moves straight to Closed
// and never touches the registry. The lock is released while the verifier runs and
// a concurrent second call is rejected.
func (s *Session) Authenticate(ctx context.Context, credential string) (user.User, error) {
	s.mu.Lock()
	if s.state != StateConnecting || s.verifying {
		s.mu.Unlock()
		return user.User{}, ErrInvalidTransition
	}
	s.verifying = true
	s.mu.Unlock()

	ctx, cancel := s.hub.storeContext(ctx)
	defer cancel()

	u, err := s.hub.verifier.Verify(ctx, credential)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.verifying = false

	// Closed while verifying.
	if s.state != StateConnecting {
		return user.User{}, ErrInvalidTransition
	}

	if err != nil {
		s.state = StateClosed
		return user.User{}, err
	}

	s.user = u
	s.state = StateAuthenticated
	s.logger = s.logger.With().Str("user_id", u.ID).Logger()

	return u, nil
}

// Activate binds conn to the session and registers it as online. The user's
// friends are told asynchronously when this is the user's first connection.
func (s *Session) Activate(conn Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated {
		return ErrInvalidTransition
	}
	if conn.UserID() != s.user.ID {
		return fmt.Errorf("%w: connection belongs to %q", ErrInvalidTransition, conn.UserID())
	}

	s.conn = conn
	s.state = StateActive
	s.logger = s.logger.With().Str("conn_id", conn.ID()).Logger()

	first := s.hub.registry.Register(s.user.ID, conn)
	metrics.WsConnections.Inc()

	s.logger.Info().Bool("first_connection", first).Msg("Session active")

	if first {
		s.hub.presenceChanged(s.user.ID, true)
	}

	return nil
}

// Close ends the session. It is idempotent. The user's friends are told
// asynchronously when this was the user's last connection.
func (s *Session) Close() {
	s.mu.Lock()
	prev := s.state
	s.state = StateClosed
	conn := s.conn
	userID := s.user.ID
	s.mu.Unlock()

	if prev != StateActive {
		return
	}

	_, last, ok := s.hub.registry.Unregister(conn.ID())
	if !ok {
		return
	}
	metrics.WsConnections.Dec()

	s.logger.Info().Bool("last_connection", last).Msg("Session closed")

	if last {
		s.hub.presenceChanged(userID, false)
	}
}

// Handle processes one inbound frame. Requests are answered on the session's own
// connection. Validation and persistence failures are reported to the client as
// events; the only error returned is ErrSessionNotActive.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	s.mu.Lock()
	state, u, conn := s.state, s.user, s.conn
	s.mu.Unlock()

	if state != StateActive {
		return ErrSessionNotActive
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		s.sendError(conn, errs.NewError(errs.ErrMalformedEvent), "")
		return nil
	}

	switch req.Type {
	case TypeGetFriendList:
		s.handleFriendList(ctx, conn, u)

	case TypeGetPublicHistory:
		s.handlePublicHistory(ctx, conn)

	case TypeGetPrivateHistory:
		s.handlePrivateHistory(ctx, conn, u, req)

	case TypeSendMessage:
		s.handleSendMessage(ctx, conn, u, req)

	default:
		s.logger.Warn().Str("event", string(req.Type)).Msg("Client sent unsupported event type")
		s.sendError(conn, errs.NewError(errs.ErrUnsupportedEvent), req.TempID)
	}

	return nil
}

func (s *Session) handleFriendList(ctx context.Context, conn Conn, u user.User) {
	friends, err := s.hub.FriendsWithPresence(ctx, u.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load friend list")
		s.sendError(conn, errs.NewError(errs.ErrStoreUnavailable), "")
		return
	}

	s.send(conn, TypeFriendList, friends)
}

func (s *Session) handlePublicHistory(ctx context.Context, conn Conn) {
	ctx, cancel := s.hub.storeContext(ctx)
	defer cancel()

	history, err := s.hub.history.RecentPublic(ctx, s.hub.config.HistoryLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load public history")
		s.sendError(conn, errs.NewError(errs.ErrStoreUnavailable), "")
		return
	}

	s.send(conn, TypePublicHistory, HistoryPayload{History: nonNil(history)})
}

func (s *Session) handlePrivateHistory(ctx context.Context, conn Conn, u user.User, req Request) {
	var p PrivateHistoryRequest
	if err := json.Unmarshal(req.Payload, &p); err != nil || strings.TrimSpace(p.PeerID) == "" {
		s.sendError(conn, errs.NewError(errs.ErrInvalidParams), req.TempID)
		return
	}
	peerID := strings.TrimSpace(p.PeerID)

	ctx, cancel := s.hub.storeContext(ctx)
	defer cancel()

	history, err := s.hub.history.RecentPrivate(ctx, u.ID, peerID, s.hub.config.HistoryLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("peer_id", peerID).Msg("Failed to load private history")
		s.sendError(conn, errs.NewError(errs.ErrStoreUnavailable), req.TempID)
		return
	}

	s.send(conn, TypePrivateHistory, HistoryPayload{PeerID: peerID, History: nonNil(history)})
}

func (s *Session) handleSendMessage(ctx context.Context, conn Conn, u user.User, req Request) {
	var p SendPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid SEND_MESSAGE payload")
		s.sendError(conn, errs.NewError(errs.ErrMalformedEvent), req.TempID)
		return
	}

	msg, rejectErr := p.BuildMessage(u, s.hub.config.MaxTextLength)
	if rejectErr != nil {
		metrics.MessagesRejectedTotal.WithLabelValues(fmt.Sprint(rejectErr.Code)).Inc()
		s.send(conn, TypeMessageRejected, RejectedPayload{
			Code:   rejectErr.Code,
			Reason: rejectErr.Message,
			TempID: req.TempID,
		})
		return
	}

	saved, err := s.hub.publish(ctx, msg)
	if errors.Is(err, store.ErrNotFound) {
		s.send(conn, TypeMessageRejected, RejectedPayload{
			Code:   errs.ErrUserNotFound,
			Reason: errs.NewError(errs.ErrUserNotFound).Message,
			TempID: req.TempID,
		})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("scope", msg.Scope().Label()).Msg("Failed to persist message")
		s.sendError(conn, errs.NewError(errs.ErrStoreUnavailable), req.TempID)
		return
	}

	if req.TempID != "" {
		s.send(conn, TypeConfirm, ConfirmPayload{
			TempID:    req.TempID,
			MessageID: saved.ID,
			Timestamp: saved.CreatedAt.UnixMilli(),
		})
	}
}

func (s *Session) send(conn Conn, t EventType, payload any) {
	if err := s.hub.router.SendTo(conn, t, payload); err != nil {
		s.logger.Debug().Err(err).Str("event", string(t)).Msg("Reply not queued")
	}
}

func (s *Session) sendError(conn Conn, e *errs.CustomError, tempID string) {
	s.send(conn, TypeError, ErrorPayload{Code: e.Code, Message: e.Message, TempID: tempID})
}

func nonNil(msgs []message.Message) []message.Message {
	if msgs == nil {
		return []message.Message{}
	}
	return msgs
}
