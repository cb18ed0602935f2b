package config

import "errors"

// APIConfig controls the optional operational HTTP server. Port 0 (the
// default) keeps it off, which is what a plain one-shot run wants.
type APIConfig struct {
	Port int `yaml:"port"`
}

func (apiConf APIConfig) validate() error {
	if apiConf.Port < 0 || apiConf.Port > 65535 {
		return errors.New("api.port must be a valid port number")
	}

	return nil
}

func (apiConf APIConfig) Enabled() bool {
	return apiConf.Port > 0
}
