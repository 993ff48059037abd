package kafka

import (
	"context"

	"github.com/NordCoder/crewcruise/internal/domain/mail"
)

type MailEvents interface {
	PublishMailRequested(ctx context.Context, m mail.Message) error
}
