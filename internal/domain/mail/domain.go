package mail

import (
	"context"
	"time"
)

// Message is a rendered email ready for delivery.
type Message struct {
	ID      string   `json:"id"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html"`
}

// Dispatcher accepts messages for delivery. Implementations must not block on
// the SMTP round trip; delivery failures are the dispatcher's concern.
type Dispatcher interface {
	Dispatch(ctx context.Context, m Message) error
}

// Sender performs the actual delivery to one recipient.
type Sender interface {
	Send(ctx context.Context, to string, m Message) error
}

type Clock interface {
	Now() time.Time
}

// LogEntry records a delivered email.
type LogEntry struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	SentAt    time.Time `json:"sent_at"`
}

type LogRepo interface {
	Create(ctx context.Context, e *LogEntry) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]*LogEntry, error)
	// Delivered reports whether messageID was already sent to recipient.
	Delivered(ctx context.Context, messageID, recipient string) (bool, error)
}
