package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// telling the client its session was ended by a forced logout.
	WsCloseCodeSessionKicked = 4001
)

// Close reasons understood by Client.
const (
	ReasonLoggedOut    = "logged out"
	ReasonSlowConsumer = "send queue full"
	ReasonShutdown     = "server shutting down"
	ReasonReadEnded    = "read loop ended"
)

var (
	// ErrConnClosed is returned by Send after Close.
	ErrConnClosed = errors.New("chat: connection closed")

	// ErrSendQueueFull is returned by Send when the outbound buffer is full.
	ErrSendQueueFull = errors.New("chat: send queue full")
)

// Client is a websocket connection bound to an active Session.
type Client struct {
	id     string
	userID string

	conn    *websocket.Conn
	session *Session

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// maximum allowed size (in bytes) of a frame sent by the client.
	readLimit int64

	// done is closed by Close; send is never closed, so Send cannot panic.
	done        chan struct{}
	closeOnce   sync.Once
	closeReason string

	// ctx is canceled when the client closes, aborting in-flight store calls.
	ctx    context.Context
	cancel context.CancelFunc

	logger zerolog.Logger
}

// NewClient wraps an upgraded connection for an authenticated session.
func NewClient(wsConn *websocket.Conn, session *Session, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}

	u := session.User()
	id := randx.ConnectionID()
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:        id,
		userID:    u.ID,
		conn:      wsConn,
		session:   session,
		send:      make(chan []byte, queueSize),
		readLimit: session.hub.config.ReadLimit(),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		logger: logx.Logger().With().
			Str("component", "Client").
			Str("conn_id", id).
			Str("user_id", u.ID).
			Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// UserID returns the id of the user that owns the connection.
func (c *Client) UserID() string { return c.userID }

// Send queues data for WritePump without blocking. A full queue closes the connection.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, closing connection")
		c.Close(ReasonSlowConsumer)
		return ErrSendQueueFull
	}
}

// Close signals both pumps to stop. Only the first reason is kept.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		c.cancel()
		close(c.done)
	})
}

// ReadPump feeds inbound frames to the session one at a time, in arrival order, and
// closes the session when the socket goes away.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(c.readLimit)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		if err := c.session.Handle(c.ctx, data); errors.Is(err, ErrSessionNotActive) {
			return
		}
	}
}

// cleanupOnDisconnect runs when ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.session.Close()
	c.Close(ReasonReadEnded)
}

// WritePump drains the send queue onto the socket and keeps the connection alive
// with pings. It exits after Close, writing a close frame first.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit, which also unblocks ReadPump
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message := <-c.send:
			if !c.writeQueuedMessage(message) {
				c.Close(ReasonReadEnded)
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				c.Close(ReasonReadEnded)
				return
			}

		case <-c.done:
			c.writeCloseMessage()
			return
		}
	}
}

func (c *Client) writeQueuedMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// writeCloseMessage sends a close frame whose code reflects why the client was closed.
func (c *Client) writeCloseMessage() {
	code := websocket.CloseNormalClosure
	switch c.closeReason {
	case ReasonLoggedOut:
		code = WsCloseCodeSessionKicked
	case ReasonSlowConsumer:
		code = websocket.ClosePolicyViolation
	case ReasonShutdown:
		code = websocket.CloseGoingAway
	}

	c.logger.Info().Int("close_code", code).Str("reason", c.closeReason).Msg("Closing websocket connection")

	deadline := time.Now().Add(writeWait)
	if err := c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, c.closeReason), deadline); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send close message")
	}
}
