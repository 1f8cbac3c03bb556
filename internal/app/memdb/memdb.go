/*
Package memdb is an in-memory implementation of store.Store.

It backs STORE_DRIVER=memory (local development) and the tests of the packages that
consume the store contracts. Data does not survive a restart.
*/
package memdb

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"relaychat/internal/app/message"
	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
)

type friendEdge struct {
	friendID string
	group    string
}

// DB is a goroutine-safe in-memory store.
type DB struct {
	mu sync.RWMutex

	accounts map[string]user.Account
	byName   map[string]string

	// friends keeps each owner's edges in insertion order.
	friends map[string][]friendEdge

	messages []message.Message
	lastSeq  int64
	lastTime time.Time

	now func() time.Time
}

var _ store.Store = (*DB)(nil)

// New returns an empty store.
func New() *DB {
	return &DB{
		accounts: make(map[string]user.Account),
		byName:   make(map[string]string),
		friends:  make(map[string][]friendEdge),
		now:      time.Now,
	}
}

// Close is a no-op.
func (d *DB) Close() {}

func (d *DB) CreateUser(ctx context.Context, username, passwordHash string) (user.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := strings.ToLower(username)
	if _, taken := d.byName[key]; taken {
		return user.Account{}, store.ErrConflict
	}

	acc := user.Account{
		User:         user.User{ID: uuid.NewString(), Name: username},
		PasswordHash: passwordHash,
		CreatedAt:    d.now().UTC(),
	}
	d.accounts[acc.ID] = acc
	d.byName[key] = acc.ID

	return acc, nil
}

func (d *DB) UserByName(ctx context.Context, username string) (user.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byName[strings.ToLower(username)]
	if !ok {
		return user.Account{}, store.ErrNotFound
	}
	return d.accounts[id], nil
}

func (d *DB) UserByID(ctx context.Context, id string) (user.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	acc, ok := d.accounts[id]
	if !ok {
		return user.User{}, store.ErrNotFound
	}
	return acc.User, nil
}

func (d *DB) SearchUsers(ctx context.Context, requesterID, query string, limit int) ([]user.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []user.User{}, nil
	}

	exclude := map[string]struct{}{requesterID: {}}
	for _, e := range d.friends[requesterID] {
		exclude[e.friendID] = struct{}{}
	}

	out := []user.User{}
	for _, acc := range d.accounts {
		if _, skip := exclude[acc.ID]; skip {
			continue
		}
		if strings.Contains(strings.ToLower(acc.Name), q) {
			out = append(out, acc.User)
		}
	}

	slices.SortFunc(out, func(a, b user.User) int { return strings.Compare(a.Name, b.Name) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *DB) Friends(ctx context.Context, userID string) ([]user.Friend, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	edges := d.friends[userID]
	out := make([]user.Friend, 0, len(edges))
	for _, e := range edges {
		acc, ok := d.accounts[e.friendID]
		if !ok {
			continue
		}
		out = append(out, user.Friend{ID: acc.ID, Name: acc.Name, Group: e.group})
	}
	return out, nil
}

func (d *DB) AddFriend(ctx context.Context, a, b, group string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[a]; !ok {
		return store.ErrNotFound
	}
	if _, ok := d.accounts[b]; !ok {
		return store.ErrNotFound
	}
	if d.edgeIndex(a, b) >= 0 {
		return store.ErrAlreadyFriends
	}

	d.friends[a] = append(d.friends[a], friendEdge{friendID: b, group: group})
	if d.edgeIndex(b, a) < 0 {
		d.friends[b] = append(d.friends[b], friendEdge{friendID: a, group: user.DefaultGroup})
	}
	return nil
}

func (d *DB) RemoveFriend(ctx context.Context, a, b string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.edgeIndex(a, b)
	if i < 0 {
		return store.ErrNotFound
	}
	d.friends[a] = slices.Delete(d.friends[a], i, i+1)

	if j := d.edgeIndex(b, a); j >= 0 {
		d.friends[b] = slices.Delete(d.friends[b], j, j+1)
	}
	return nil
}

func (d *DB) MoveFriend(ctx context.Context, owner, friend, group string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.edgeIndex(owner, friend)
	if i < 0 {
		return store.ErrNotFound
	}
	d.friends[owner][i].group = group
	return nil
}

func (d *DB) edgeIndex(owner, friend string) int {
	return slices.IndexFunc(d.friends[owner], func(e friendEdge) bool { return e.friendID == friend })
}

// Append stores msg with the next sequence number. Sender and recipient must exist. Timestamps are strictly increasing
// so ordering by time and by sequence agree.
func (d *DB) Append(ctx context.Context, msg message.Message) (message.Message, error) {
	if err := ctx.Err(); err != nil {
		return message.Message{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[msg.SenderID]; !ok {
		return message.Message{}, store.ErrNotFound
	}
	if _, ok := d.accounts[msg.RecipientID]; msg.IsPrivate() && !ok {
		return message.Message{}, store.ErrNotFound
	}

	now := d.now().UTC()
	if !now.After(d.lastTime) {
		now = d.lastTime.Add(time.Microsecond)
	}
	d.lastTime = now
	d.lastSeq++

	msg.ID = d.lastSeq
	msg.CreatedAt = now
	msg.SenderName = d.accounts[msg.SenderID].Name

	d.messages = append(d.messages, msg)
	return msg, nil
}

func (d *DB) RecentPublic(ctx context.Context, limit int) ([]message.Message, error) {
	return d.recent(ctx, message.PublicScope(), limit)
}

func (d *DB) RecentPrivate(ctx context.Context, a, b string, limit int) ([]message.Message, error) {
	return d.recent(ctx, message.PrivateScope(a, b), limit)
}

// ExportHistory snapshots the scope under the lock and calls fn outside it.
func (d *DB) ExportHistory(ctx context.Context, scope message.Scope, fn func(message.Message) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.RLock()
	var msgs []message.Message
	for _, m := range d.messages {
		if m.Scope() == scope {
			msgs = append(msgs, m)
		}
	}
	d.mu.RUnlock()

	for _, m := range msgs {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// recent walks the log backwards collecting the newest limit messages of scope,
// then reverses them into display order.
func (d *DB) recent(ctx context.Context, scope message.Scope, limit int) ([]message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []message.Message{}
	for i := len(d.messages) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if d.messages[i].Scope() == scope {
			out = append(out, d.messages[i])
		}
	}
	slices.Reverse(out)
	return out, nil
}
