package message

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swapbnb/api/internal/database"
)

// Insert writes m using db, which may be a transaction, and fills in its ID and timestamp
func Insert(ctx context.Context, db bun.IDB, m *Message) error {
	row := &database.Message{
		ExchangeID:  m.ExchangeID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Content:     m.Content,
		MessageType: m.MessageType,
	}
	if m.Payload != nil {
		raw, err := json.Marshal(m.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode message payload: %w", err)
		}
		row.Payload = raw
	}

	if _, err := db.NewInsert().Model(row).Returning("id, created_at").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	m.ID = row.ID
	m.CreatedAt = row.CreatedAt
	return nil
}

type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, m *Message) error {
	return Insert(ctx, r.db, m)
}

func (r *Repository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Where("id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// ExchangeParties returns the requester and host of an exchange
func (r *Repository) ExchangeParties(ctx context.Context, exchangeID uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	var ex database.Exchange
	err := r.db.NewSelect().
		Model(&ex).
		Column("requester_id", "host_id").
		Where("id = ?", exchangeID).
		Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return uuid.Nil, uuid.Nil, ErrExchangeNotFound
		}
		return uuid.Nil, uuid.Nil, fmt.Errorf("failed to get exchange parties: %w", err)
	}
	return ex.RequesterID, ex.HostID, nil
}

// Conversation lists every message exchanged between two users, oldest first
func (r *Repository) Conversation(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]Message, error) {
	return r.list(ctx, "conversation", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))", a, b, b, a)
	}, limit, offset)
}

func (r *Repository) ByExchange(ctx context.Context, exchangeID uuid.UUID, limit, offset int) ([]Message, error) {
	return r.list(ctx, "exchange messages", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("exchange_id = ?", exchangeID)
	}, limit, offset)
}

func (r *Repository) list(ctx context.Context, op string, where func(*bun.SelectQuery) *bun.SelectQuery, limit, offset int) ([]Message, error) {
	var rows []database.Message
	err := where(r.db.NewSelect().Model(&rows)).
		Order("created_at ASC", "id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", op, err)
	}

	out := make([]Message, 0, len(rows))
	for i := range rows {
		m, err := mapDBMessage(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// MarkRead sets read_at on a message addressed to receiverID. Messages sent
// to someone else are reported as ErrNotFound.
func (r *Repository) MarkRead(ctx context.Context, messageID, receiverID uuid.UUID) (*Message, error) {
	var row database.Message
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", messageID).
		Where("receiver_id = ?", receiverID).
		Scan(ctx)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	if row.ReadAt == nil {
		now := time.Now()
		_, err := r.db.NewUpdate().
			Model((*database.Message)(nil)).
			Set("read_at = ?", now).
			Where("id = ?", messageID).
			Where("read_at IS NULL").
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to mark message read: %w", err)
		}
		row.ReadAt = &now
	}
	return mapDBMessage(&row)
}

func (r *Repository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := r.db.NewSelect().
		Model((*database.Message)(nil)).
		Where("receiver_id = ?", userID).
		Where("read_at IS NULL").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

func mapDBMessage(row *database.Message) (*Message, error) {
	m := &Message{
		ID:          row.ID,
		ExchangeID:  row.ExchangeID,
		SenderID:    row.SenderID,
		ReceiverID:  row.ReceiverID,
		Content:     row.Content,
		MessageType: row.MessageType,
		ReadAt:      row.ReadAt,
		CreatedAt:   row.CreatedAt,
	}
	if len(row.Payload) > 0 {
		var p Payload
		if err := json.Unmarshal(row.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode payload of message %s: %w", row.ID, err)
		}
		m.Payload = &p
	}
	return m, nil
}
