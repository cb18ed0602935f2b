package config

import (
	"errors"
	"fmt"
	"time"
)

const DefaultListenSeconds = 15

const (
	UploadRunLogAuto   = "auto"
	UploadRunLogAlways = "always"
	UploadRunLogNever  = "never"
)

type FetchConfig struct {
	DestinationPath        string `yaml:"destination_path"`
	ListenSeconds          int    `yaml:"listen_seconds"`
	MaxConcurrentDownloads int    `yaml:"max_concurrent_downloads"`
	UploadRunLog           string `yaml:"upload_run_log"`
	GzipRunLog             bool   `yaml:"gzip_run_log"`
}

func (fetchConf FetchConfig) fillDefaults() FetchConfig {
	if fetchConf.ListenSeconds == 0 {
		fetchConf.ListenSeconds = DefaultListenSeconds
	}

	if fetchConf.MaxConcurrentDownloads == 0 {
		fetchConf.MaxConcurrentDownloads = 1
	}

	if fetchConf.UploadRunLog == "" {
		fetchConf.UploadRunLog = UploadRunLogAuto
	}

	return fetchConf
}

func (fetchConf FetchConfig) validate() error {
	if fetchConf.DestinationPath == "" {
		return errors.New("fetch.destination_path cannot be empty")
	}

	if fetchConf.ListenSeconds < 0 {
		return errors.New("fetch.listen_seconds cannot be negative")
	}

	if fetchConf.MaxConcurrentDownloads < 0 {
		return errors.New("fetch.max_concurrent_downloads cannot be negative")
	}

	if !allowed(allowedValues("fetch.upload_run_log"), fetchConf.UploadRunLog) {
		return fmt.Errorf("fetch.upload_run_log should be one of %v",
			allowedValues("fetch.upload_run_log"))
	}

	return nil
}

func (fetchConf FetchConfig) ListenWindow() time.Duration {
	return time.Duration(fetchConf.ListenSeconds) * time.Second
}
