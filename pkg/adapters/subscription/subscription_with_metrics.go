package subscription

import (
	"context"
	"sync"

	"github.com/jademcosta/pescador/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	SubscriptionTypeLabel string = "subscription_type"
	NameLabel             string = "name"
)

var (
	ensureMetricRegisteringOnce sync.Once
	receivedCounter             *prometheus.CounterVec
	receiveErrorCounter         *prometheus.CounterVec
	ackCounter                  *prometheus.CounterVec
)

type subscriptionWithMetrics struct {
	wrappedSub  SubscriptionWithMetadata
	wrappedType string
	wrappedName string
}

func NewSubscriptionWithMetrics(sub SubscriptionWithMetadata, metricRegistry *prometheus.Registry) SubscriptionWithMetadata {
	ensureMetricRegisteringOnce.Do(func() {
		receivedCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "notifications_delivered_total",
				Namespace: "pescador",
				Subsystem: "subscription",
				Help:      "count of notifications delivered to the run",
			},
			[]string{SubscriptionTypeLabel, NameLabel},
		)

		receiveErrorCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "receive_errors_total",
				Namespace: "pescador",
				Subsystem: "subscription",
				Help:      "count of errors receiving from the subscription (window end excluded)",
			},
			[]string{SubscriptionTypeLabel, NameLabel},
		)

		ackCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "acks_total",
				Namespace: "pescador",
				Subsystem: "subscription",
				Help:      "count of notifications acknowledged back to the broker",
			},
			[]string{SubscriptionTypeLabel, NameLabel},
		)

		metricRegistry.MustRegister(receivedCounter, receiveErrorCounter, ackCounter)
	})

	return &subscriptionWithMetrics{
		wrappedSub:  sub,
		wrappedType: sub.Type(),
		wrappedName: sub.Name(),
	}
}

func (w *subscriptionWithMetrics) Next(ctx context.Context) (*domain.Notification, error) {
	notification, err := w.wrappedSub.Next(ctx)
	if err != nil {
		if ctx.Err() == nil {
			receiveErrorCounter.WithLabelValues(w.wrappedType, w.wrappedName).Inc()
		}
		return nil, err
	}

	receivedCounter.WithLabelValues(w.wrappedType, w.wrappedName).Inc()

	innerAck := notification.Ack
	notification.Ack = func() {
		innerAck()
		ackCounter.WithLabelValues(w.wrappedType, w.wrappedName).Inc()
	}

	return notification, nil
}

func (w *subscriptionWithMetrics) Type() string {
	return w.wrappedType
}

func (w *subscriptionWithMetrics) Name() string {
	return w.wrappedName
}
