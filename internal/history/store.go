package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Record is one persisted chat message.
type Record struct {
	ID             string         `db:"id" json:"id"`
	SenderID       string         `db:"sender_id" json:"sender_id"`
	ReceiverID     sql.NullString `db:"receiver_id" json:"-"`
	Body           string         `db:"body" json:"message"`
	SenderUsername string         `db:"sender_username" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"-"`
}

// Store persists chat messages and serves conversation history.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewStore(db *sqlx.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Archive saves one relayed message. Called best-effort from the hub; the
// relay itself does not depend on the write succeeding.
func (s *Store) Archive(ctx context.Context, rec Record) error {
	query := `INSERT INTO chat_messages (id, sender_id, receiver_id, body, sender_username, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.SenderID, rec.ReceiverID, rec.Body, rec.SenderUsername, rec.CreatedAt)
	return err
}

// Between returns the conversation between two users, both directions,
// oldest first.
func (s *Store) Between(ctx context.Context, userA, userB string) ([]Record, error) {
	var out []Record
	query := `SELECT id, sender_id, receiver_id, body, sender_username, created_at
	          FROM chat_messages
	          WHERE (sender_id = $1 AND receiver_id = $2)
	             OR (sender_id = $2 AND receiver_id = $1)
	          ORDER BY created_at ASC`
	if err := s.db.SelectContext(ctx, &out, query, userA, userB); err != nil {
		return nil, err
	}
	return out, nil
}
