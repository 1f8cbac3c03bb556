package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relaychat/internal/app/message"
	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
)

// Queries implements store.Store on top of a pgx pool.
type Queries struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Queries)(nil)

// New wraps pool. The pool is closed by Close.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// Close releases the underlying pool.
func (q *Queries) Close() {
	q.pool.Close()
}

const createUser = `
INSERT INTO users (id, username, password_hash)
VALUES ($1, $2, $3)
RETURNING id, username, password_hash, created_at`

func (q *Queries) CreateUser(ctx context.Context, username, passwordHash string) (user.Account, error) {
	var acc user.Account
	err := q.pool.QueryRow(ctx, createUser, uuid.NewString(), username, passwordHash).
		Scan(&acc.ID, &acc.Name, &acc.PasswordHash, &acc.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return user.Account{}, store.ErrConflict
		}
		return user.Account{}, fmt.Errorf("create user: %w", err)
	}
	return acc, nil
}

const userByName = `
SELECT id, username, password_hash, created_at
FROM users
WHERE lower(username) = lower($1)`

func (q *Queries) UserByName(ctx context.Context, username string) (user.Account, error) {
	var acc user.Account
	err := q.pool.QueryRow(ctx, userByName, username).
		Scan(&acc.ID, &acc.Name, &acc.PasswordHash, &acc.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return user.Account{}, store.ErrNotFound
		}
		return user.Account{}, fmt.Errorf("user by name: %w", err)
	}
	return acc, nil
}

const userByID = `SELECT id, username FROM users WHERE id = $1`

func (q *Queries) UserByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	if err := q.pool.QueryRow(ctx, userByID, id).Scan(&u.ID, &u.Name); err != nil {
		if IsNoRows(err) {
			return user.User{}, store.ErrNotFound
		}
		return user.User{}, fmt.Errorf("user by id: %w", err)
	}
	return u, nil
}

const searchUsers = `
SELECT u.id, u.username
FROM users u
WHERE u.username ILIKE '%' || $2 || '%'
  AND u.id <> $1
  AND NOT EXISTS (SELECT 1 FROM friendships f WHERE f.owner_id = $1 AND f.friend_id = u.id)
ORDER BY u.username
LIMIT $3`

func (q *Queries) SearchUsers(ctx context.Context, requesterID, query string, limit int) ([]user.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []user.User{}, nil
	}

	rows, err := q.pool.Query(ctx, searchUsers, requesterID, escapeLike(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.User, error) {
		var u user.User
		err := row.Scan(&u.ID, &u.Name)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

const listFriends = `
SELECT u.id, u.username, f.group_name
FROM friendships f
JOIN users u ON u.id = f.friend_id
WHERE f.owner_id = $1
ORDER BY f.created_at, u.username`

func (q *Queries) Friends(ctx context.Context, userID string) ([]user.Friend, error) {
	rows, err := q.pool.Query(ctx, listFriends, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}

	friends, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.Friend, error) {
		var f user.Friend
		err := row.Scan(&f.ID, &f.Name, &f.Group)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

const insertFriendship = `
INSERT INTO friendships (owner_id, friend_id, group_name)
VALUES ($1, $2, $3)
ON CONFLICT (owner_id, friend_id) DO NOTHING`

// AddFriend inserts both directions in one transaction. An existing a→b row means the
// pair is already linked. b files a under the default group.
func (q *Queries) AddFriend(ctx context.Context, a, b, group string) error {
	return pgx.BeginFunc(ctx, q.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertFriendship, a, b, group)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return store.ErrNotFound
			}
			return fmt.Errorf("add friend: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrAlreadyFriends
		}

		if _, err := tx.Exec(ctx, insertFriendship, b, a, user.DefaultGroup); err != nil {
			if IsForeignKeyViolation(err) {
				return store.ErrNotFound
			}
			return fmt.Errorf("add friend: %w", err)
		}
		return nil
	})
}

const deleteFriendship = `
DELETE FROM friendships
WHERE (owner_id = $1 AND friend_id = $2) OR (owner_id = $2 AND friend_id = $1)`

func (q *Queries) RemoveFriend(ctx context.Context, a, b string) error {
	tag, err := q.pool.Exec(ctx, deleteFriendship, a, b)
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const moveFriend = `
UPDATE friendships SET group_name = $3
WHERE owner_id = $1 AND friend_id = $2`

func (q *Queries) MoveFriend(ctx context.Context, owner, friend, group string) error {
	tag, err := q.pool.Exec(ctx, moveFriend, owner, friend, group)
	if err != nil {
		return fmt.Errorf("move friend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const insertMessage = `
WITH inserted AS (
    INSERT INTO messages (sender_id, recipient_id, kind, content, file_ref, media_type, original_name)
    VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
    RETURNING id, created_at, sender_id
)
SELECT i.id, i.created_at, u.username
FROM inserted i
JOIN users u ON u.id = i.sender_id`

func (q *Queries) Append(ctx context.Context, msg message.Message) (message.Message, error) {
	err := q.pool.QueryRow(ctx, insertMessage,
		msg.SenderID, msg.RecipientID, string(msg.Kind), msg.Content, msg.FileRef, msg.MediaType, msg.OriginalName,
	).Scan(&msg.ID, &msg.CreatedAt, &msg.SenderName)
	if err != nil {
		if IsForeignKeyViolation(err) || IsNoRows(err) {
			return message.Message{}, store.ErrNotFound
		}
		return message.Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

const messageColumns = `
m.id, m.sender_id, u.username, COALESCE(m.recipient_id, ''), m.kind,
m.content, m.file_ref, m.media_type, m.original_name, m.created_at`

const recentPublic = `
SELECT ` + messageColumns + `
FROM messages m
JOIN users u ON u.id = m.sender_id
WHERE m.recipient_id IS NULL
ORDER BY m.created_at DESC, m.id DESC
LIMIT $1`

func (q *Queries) RecentPublic(ctx context.Context, limit int) ([]message.Message, error) {
	rows, err := q.pool.Query(ctx, recentPublic, limit)
	if err != nil {
		return nil, fmt.Errorf("recent public: %w", err)
	}
	return collectPage(rows)
}

const recentPrivate = `
SELECT ` + messageColumns + `
FROM messages m
JOIN users u ON u.id = m.sender_id
WHERE m.recipient_id IS NOT NULL
  AND LEAST(m.sender_id, m.recipient_id) = LEAST($1::text, $2::text)
  AND GREATEST(m.sender_id, m.recipient_id) = GREATEST($1::text, $2::text)
ORDER BY m.created_at DESC, m.id DESC
LIMIT $3`

func (q *Queries) RecentPrivate(ctx context.Context, a, b string, limit int) ([]message.Message, error) {
	rows, err := q.pool.Query(ctx, recentPrivate, a, b, limit)
	if err != nil {
		return nil, fmt.Errorf("recent private: %w", err)
	}
	return collectPage(rows)
}

const exportPublic = `
SELECT ` + messageColumns + `
FROM messages m
JOIN users u ON u.id = m.sender_id
WHERE m.recipient_id IS NULL
ORDER BY m.created_at, m.id`

const exportPrivate = `
SELECT ` + messageColumns + `
FROM messages m
JOIN users u ON u.id = m.sender_id
WHERE m.recipient_id IS NOT NULL
  AND LEAST(m.sender_id, m.recipient_id) = LEAST($1::text, $2::text)
  AND GREATEST(m.sender_id, m.recipient_id) = GREATEST($1::text, $2::text)
ORDER BY m.created_at, m.id`

// ExportHistory streams the whole scope row by row instead of loading it into memory.
func (q *Queries) ExportHistory(ctx context.Context, scope message.Scope, fn func(message.Message) error) error {
	var rows pgx.Rows
	var err error
	if scope.IsPublic() {
		rows, err = q.pool.Query(ctx, exportPublic)
	} else {
		a, b := scope.Members()
		rows, err = q.pool.Query(ctx, exportPrivate, a, b)
	}
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}

	var m message.Message
	var kind string
	_, err = pgx.ForEachRow(rows, []any{
		&m.ID, &m.SenderID, &m.SenderName, &m.RecipientID, &kind,
		&m.Content, &m.FileRef, &m.MediaType, &m.OriginalName, &m.CreatedAt,
	}, func() error {
		m.Kind = message.Kind(kind)
		return fn(m)
	})
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}
	return nil
}

// collectPage scans a newest-first result set and returns it oldest-first.
func collectPage(rows pgx.Rows) ([]message.Message, error) {
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (message.Message, error) {
		var m message.Message
		var kind string
		err := row.Scan(
			&m.ID, &m.SenderID, &m.SenderName, &m.RecipientID, &kind,
			&m.Content, &m.FileRef, &m.MediaType, &m.OriginalName, &m.CreatedAt,
		)
		m.Kind = message.Kind(kind)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}

	slices.Reverse(msgs)
	return msgs, nil
}
