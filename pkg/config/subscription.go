package config

import "errors"

type SubscriptionConfig struct {
	Type   string      `yaml:"type"`
	Config interface{} `yaml:"config"`
}

func (subConf SubscriptionConfig) validate() error {
	if subConf.Type == "" {
		return errors.New("subscription.type cannot be empty")
	}

	return nil
}
