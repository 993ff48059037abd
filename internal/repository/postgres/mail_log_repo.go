package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/crewcruise/internal/domain/mail"
)

var _ mail.LogRepo = (*MailLogRepo)(nil)

type MailLogRepo struct{ db *DB }

func NewMailLogRepo(db *DB) *MailLogRepo { return &MailLogRepo{db: db} }

const (
	qMailLogInsert = `
INSERT INTO mail_log (message_id, recipient, subject, sent_at)
VALUES ($1, $2, $3, COALESCE($4, now()))
ON CONFLICT (message_id, recipient) DO UPDATE SET sent_at = EXCLUDED.sent_at
RETURNING id, sent_at;
`
	qMailLogDelivered = `
SELECT EXISTS (SELECT 1 FROM mail_log WHERE message_id = $1 AND recipient = $2);
`
	qMailLogByRecipient = `
SELECT id, message_id, recipient, subject, sent_at
FROM mail_log
WHERE recipient = $1
ORDER BY sent_at DESC
LIMIT $2;
`
)

func (r *MailLogRepo) Create(ctx context.Context, e *mail.LogEntry) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qMailLogInsert,
		e.MessageID,
		e.Recipient,
		e.Subject,
		nullTime(e.SentAt),
	).Scan(&e.ID, &e.SentAt); err != nil {
		return fmt.Errorf("insert mail log: %w", err)
	}
	return nil
}

func (r *MailLogRepo) Delivered(ctx context.Context, messageID, recipient string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var ok bool
	if err := r.db.Pool.QueryRow(ctx, qMailLogDelivered, messageID, recipient).Scan(&ok); err != nil {
		return false, fmt.Errorf("query mail log: %w", err)
	}
	return ok, nil
}

func (r *MailLogRepo) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*mail.LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qMailLogByRecipient, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("query mail log: %w", err)
	}
	defer rows.Close()

	out := make([]*mail.LogEntry, 0, limit)
	for rows.Next() {
		var e mail.LogEntry
		if err := rows.Scan(&e.ID, &e.MessageID, &e.Recipient, &e.Subject, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scan mail log: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
