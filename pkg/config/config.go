package config

import (
	"gopkg.in/yaml.v2"
)

var allowedVals map[string][]string

func init() {
	allowedVals = map[string][]string{
		"log.level":            {"debug", "info", "warn", "error"},
		"log.format":           {"text", "json"},
		"fetch.upload_run_log": {UploadRunLogAuto, UploadRunLogAlways, UploadRunLogNever},
	}
}

type Config struct {
	Log           LogConfig           `yaml:"log"`
	API           APIConfig           `yaml:"api"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Fetch         FetchConfig         `yaml:"fetch"`
	Subscription  SubscriptionConfig  `yaml:"subscription"`
	ObjectStorage ObjectStorageConfig `yaml:"object_storage"`
	Version       string              `yaml:"-"`
}

func New(confData []byte) (*Config, error) {
	c := &Config{}

	err := yaml.Unmarshal(confData, c)
	if err != nil {
		return nil, err
	}

	c.fillDefaultValues()

	err = c.validate()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {

	err := c.Log.validate()
	if err != nil {
		return err
	}

	err = c.Fetch.validate()
	if err != nil {
		return err
	}

	err = c.Subscription.validate()
	if err != nil {
		return err
	}

	err = c.ObjectStorage.validate()
	if err != nil {
		return err
	}

	err = c.API.validate()
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) fillDefaultValues() {
	c.Log = c.Log.fillDefaults()
	c.Fetch = c.Fetch.fillDefaults()
}

func allowed(group []string, elem string) bool {
	for _, a := range group {
		if a == elem {
			return true
		}
	}
	return false
}

func allowedValues(key string) []string {
	return allowedVals[key]
}
