package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/crewcruise/internal/domain/mail"
	"github.com/NordCoder/crewcruise/internal/obs"
	"github.com/NordCoder/crewcruise/internal/obs/retry"
	"go.uber.org/zap"
)

var ErrEmptyMessage = errors.New("mail request without recipients")

type Handler struct {
	Out    mail.Sender
	Store  mail.LogRepo
	Clock  mail.Clock
	Policy retry.Policy
	Log    *zap.Logger
}

// HandleMailRequested delivers m to each recipient and records the delivery.
// Recipients already in the mail log for m.ID are skipped, so a redelivered
// request does not send twice. Every remaining recipient is attempted; the
// error joins the failed ones.
func (h *Handler) HandleMailRequested(ctx context.Context, m mail.Message) error {
	if len(m.To) == 0 {
		return ErrEmptyMessage
	}
	log := obs.WithTrace(ctx, h.logger())

	var errs []error
	for _, to := range m.To {
		sent, err := h.Store.Delivered(ctx, m.ID, to)
		if err != nil {
			// an unreadable log must not block delivery
			log.Warn("mail log lookup failed", zap.String("message_id", m.ID), zap.Error(err))
		}
		if sent {
			log.Info("already delivered; skipping", zap.String("message_id", m.ID), zap.String("to", to))
			continue
		}
		err = retry.Do(ctx, func() error { return h.Out.Send(ctx, to, m) }, h.Policy)
		if err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
			continue
		}
		entry := &mail.LogEntry{
			MessageID: m.ID,
			Recipient: to,
			Subject:   m.Subject,
			SentAt:    h.Clock.Now().UTC(),
		}
		if err := h.Store.Create(ctx, entry); err != nil {
			log.Warn("mail log write failed", zap.String("message_id", m.ID), zap.Error(err))
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
