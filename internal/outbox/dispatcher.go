package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NordCoder/crewcruise/internal/domain/mail"
	"github.com/NordCoder/crewcruise/internal/domain/outbox"
	"github.com/google/uuid"
)

var ErrNoRecipients = errors.New("mail has no recipients")

// MailDispatcher stores mail requests in the outbox. When ctx carries a
// transaction the request commits or rolls back with it.
type MailDispatcher struct {
	repo outbox.Repository
}

func NewMailDispatcher(repo outbox.Repository) *MailDispatcher {
	return &MailDispatcher{repo: repo}
}

var _ mail.Dispatcher = (*MailDispatcher)(nil)

func (d *MailDispatcher) Dispatch(ctx context.Context, m mail.Message) error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}
	if err := d.repo.Enqueue(ctx, m.ID, outbox.KindMailRequested, data); err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}
