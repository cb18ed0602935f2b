package subscription

import (
	"fmt"
	"log/slog"

	"github.com/jademcosta/pescador/pkg/adapters/subscription/noopsubscription"
	"github.com/jademcosta/pescador/pkg/adapters/subscription/sqs"
	"github.com/jademcosta/pescador/pkg/config"
	"github.com/jademcosta/pescador/pkg/fetcher"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v2"
)

type SubscriptionWithMetadata interface {
	fetcher.Subscription
	Type() string
	Name() string
}

func New(l *slog.Logger, metricRegistry *prometheus.Registry, conf *config.SubscriptionConfig) (SubscriptionWithMetadata, error) {

	var sub SubscriptionWithMetadata
	specificConf, err := yaml.Marshal(conf.Config)
	if err != nil {
		return nil, fmt.Errorf("error parsing subscription config: %w", err)
	}

	switch conf.Type {
	case sqs.TYPE:
		sqsConf, err := sqs.ParseConfig(specificConf)
		if err != nil {
			return nil, fmt.Errorf("error parsing SQS-specific config: %w", err)
		}

		sub, err = sqs.New(l, sqsConf)
		if err != nil {
			return nil, fmt.Errorf("error creating SQS subscription: %w", err)
		}
	case noopsubscription.TYPE:
		sub = noopsubscription.New(l)
	default:
		return nil, fmt.Errorf("invalid subscription type %s", conf.Type)
	}

	return NewSubscriptionWithMetrics(sub, metricRegistry), nil
}
