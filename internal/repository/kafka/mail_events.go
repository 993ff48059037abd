package kafka

import (
	"context"
	"time"

	domainkafka "github.com/NordCoder/crewcruise/internal/domain/kafka"
	"github.com/NordCoder/crewcruise/internal/domain/mail"
)

// MailRequested is the wire form of a mail request on the mail topic.
type MailRequested struct {
	Message     mail.Message `json:"message"`
	RequestedAt time.Time    `json:"requested_at"`
}

type MailEventsKafka struct {
	p *Producer
}

func NewMailEventsKafka(p *Producer) *MailEventsKafka { return &MailEventsKafka{p: p} }

var _ domainkafka.MailEvents = (*MailEventsKafka)(nil)

func (e *MailEventsKafka) PublishMailRequested(ctx context.Context, m mail.Message) error {
	return e.p.PublishJSON(ctx, []byte(m.ID), MailRequested{
		Message:     m,
		RequestedAt: time.Now().UTC(),
	})
}
