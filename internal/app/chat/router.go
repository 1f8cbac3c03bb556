package chat

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"relaychat/internal/app/message"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/metrics"
)

// FriendGraph is the read side of the friend store the engine needs.
type FriendGraph interface {
	Friends(ctx context.Context, userID string) ([]user.Friend, error)
}

// Router resolves the live connections of a delivery and queues the encoded event on
// each of them. A failing target never stops delivery to the others.
type Router struct {
	registry *Registry
	friends  FriendGraph
	logger   zerolog.Logger
}

// NewRouter builds a router over registry and friends.
func NewRouter(registry *Registry, friends FriendGraph) *Router {
	return &Router{
		registry: registry,
		friends:  friends,
		logger:   logx.Component("Router"),
	}
}

// DeliverPublic sends msg to every live connection, the sender's own included.
// It returns the number of connections that accepted the event.
func (rt *Router) DeliverPublic(msg message.Message) int {
	data, err := Encode(TypePublicMessage, msg)
	if err != nil {
		rt.logger.Error().Err(err).Int64("message_id", msg.ID).Msg("Failed to encode public message")
		return 0
	}

	return rt.fanOut(rt.registry.All(), data, TypePublicMessage)
}

// DeliverPrivate sends msg to every connection of the sender and of the recipient,
// each connection at most once. An offline recipient is skipped.
func (rt *Router) DeliverPrivate(msg message.Message, senderID, recipientID string) int {
	data, err := Encode(TypePrivateMessage, msg)
	if err != nil {
		rt.logger.Error().Err(err).Int64("message_id", msg.ID).Msg("Failed to encode private message")
		return 0
	}

	targets := rt.registry.ConnectionsOf(senderID)
	if recipientID != senderID {
		seen := make(map[string]struct{}, len(targets))
		for _, c := range targets {
			seen[c.ID()] = struct{}{}
		}
		for _, c := range rt.registry.ConnectionsOf(recipientID) {
			if _, dup := seen[c.ID()]; !dup {
				targets = append(targets, c)
			}
		}
	}

	return rt.fanOut(targets, data, TypePrivateMessage)
}

// NotifyPresence tells every online friend of userID about its new state. Users who
// are not friends of userID receive nothing.
func (rt *Router) NotifyPresence(ctx context.Context, userID string, online bool) error {
	friends, err := rt.friends.Friends(ctx, userID)
	if err != nil {
		return err
	}

	data, err := Encode(TypePresence, PresencePayload{UserID: userID, IsOnline: online})
	if err != nil {
		return err
	}

	delivered := 0
	for _, f := range friends {
		delivered += rt.fanOut(rt.registry.ConnectionsOf(f.ID), data, TypePresence)
	}

	rt.logger.Debug().
		Str("user_id", userID).
		Bool("online", online).
		Int("friends", len(friends)).
		Int("delivered", delivered).
		Msg("Presence change propagated")

	return nil
}

// SendTo queues a single event on conn.
func (rt *Router) SendTo(conn Conn, t EventType, payload any) error {
	data, err := json.Marshal(NewEvent(t, payload))
	if err != nil {
		return err
	}

	if err := conn.Send(data); err != nil {
		rt.dropped(conn, t, err)
		return err
	}
	return nil
}

func (rt *Router) fanOut(targets []Conn, data []byte, t EventType) int {
	delivered := 0
	for _, c := range targets {
		if err := c.Send(data); err != nil {
			rt.dropped(c, t, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (rt *Router) dropped(c Conn, t EventType, err error) {
	metrics.DeliveryDroppedTotal.Inc()
	rt.logger.Warn().
		Err(err).
		Str("conn_id", c.ID()).
		Str("user_id", c.UserID()).
		Str("event", string(t)).
		Msg("Event not delivered to connection")
}
