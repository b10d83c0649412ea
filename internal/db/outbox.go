package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxEntry is a notification waiting for the mailer.
type OutboxEntry struct {
	ID          int64      `json:"id"`
	CandidateID uuid.UUID  `json:"candidate_id"`
	Contact     string     `json:"contact"`
	Template    string     `json:"template"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}

// EnqueueNotification appends a notification to the outbox.
func (db *DB) EnqueueNotification(ctx context.Context, candidateID uuid.UUID, contact string, template string, payload []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO notification_outbox (candidate_id, contact, template, payload)
		 VALUES ($1, $2, $3, $4)`,
		candidateID, contact, template, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s notification: %w", template, err)
	}
	return nil
}

// ListPendingNotifications returns up to limit unsent notifications, oldest first.
func (db *DB) ListPendingNotifications(ctx context.Context, limit int) ([]OutboxEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, candidate_id, contact, template, payload, created_at, sent_at
		 FROM notification_outbox
		 WHERE sent_at IS NULL
		 ORDER BY created_at, id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	entries := []OutboxEntry{}
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.CandidateID, &e.Contact, &e.Template, &e.Payload, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
