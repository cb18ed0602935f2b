package noopsubscription

import (
	"context"
	"log/slog"

	"github.com/jademcosta/pescador/pkg/domain"
	"github.com/jademcosta/pescador/pkg/logger"
)

const TYPE = "noop"
const NAME = "noop"

// NoopSubscription never delivers anything. It lets the whole run be exercised
// (window, log shipping, operational API) without a broker around.
type NoopSubscription struct {
	log *slog.Logger
}

func New(l *slog.Logger) *NoopSubscription {
	return &NoopSubscription{
		log: l.With(logger.SubscriptionTypeKey, TYPE),
	}
}

func (noop *NoopSubscription) Next(ctx context.Context) (*domain.Notification, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (noop *NoopSubscription) Type() string {
	return TYPE
}

func (noop *NoopSubscription) Name() string {
	return NAME
}
