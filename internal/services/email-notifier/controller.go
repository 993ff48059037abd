package notifier

import (
	"context"
	"errors"

	kafkax "github.com/NordCoder/crewcruise/internal/repository/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type Controller struct {
	log *zap.Logger
	sub *kafkax.Consumer
	uc  *Handler

	mConsumed prometheus.Counter
	mSent     prometheus.Counter
	mErrors   prometheus.Counter
}

func NewController(log *zap.Logger, sub *kafkax.Consumer, uc *Handler, reg prometheus.Registerer) *Controller {
	f := promauto.With(reg)
	return &Controller{
		log: log,
		sub: sub,
		uc:  uc,
		mConsumed: f.NewCounter(prometheus.CounterOpts{
			Name: "email_notifier_messages_consumed_total",
			Help: "MailRequested events consumed.",
		}),
		mSent: f.NewCounter(prometheus.CounterOpts{
			Name: "email_notifier_requests_delivered_total",
			Help: "Mail requests delivered to every recipient.",
		}),
		mErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "email_notifier_errors_total",
			Help: "Mail requests that failed.",
		}),
	}
}

func (c *Controller) Handle(ctx context.Context, _ []byte, ev *kafkax.MailRequested) error {
	c.mConsumed.Inc()
	if err := c.uc.HandleMailRequested(ctx, ev.Message); err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			c.log.Warn("dropping mail request without recipients", zap.String("message_id", ev.Message.ID))
			return nil
		}
		c.mErrors.Inc()
		return err
	}
	c.mSent.Inc()
	return nil
}

func (c *Controller) Run(ctx context.Context) error {
	err := c.sub.Consume(ctx, kafkax.JSONHandler(c.Handle))
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return nil
}
