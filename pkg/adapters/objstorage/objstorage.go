package objstorage

import (
	"fmt"
	"log/slog"

	"github.com/jademcosta/pescador/pkg/adapters/objstorage/localstorage"
	"github.com/jademcosta/pescador/pkg/adapters/objstorage/s3"
	"github.com/jademcosta/pescador/pkg/config"
	"github.com/jademcosta/pescador/pkg/fetcher"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v2"
)

type StorageWithMetadata interface {
	fetcher.ObjStorage
	Type() string
	Name() string
}

func New(l *slog.Logger, metricRegistry *prometheus.Registry, conf *config.ObjectStorageConfig) (StorageWithMetadata, error) {

	var objStorage StorageWithMetadata
	specificConf, err := yaml.Marshal(conf.Config)
	if err != nil {
		return nil, fmt.Errorf("error parsing object storage config: %w", err)
	}

	switch conf.Type {
	case s3.TYPE:
		s3Conf, err := s3.ParseConfig(specificConf)
		if err != nil {
			return nil, fmt.Errorf("error parsing s3-specific config: %w", err)
		}

		objStorage, err = s3.New(l, s3Conf)
		if err != nil {
			return nil, fmt.Errorf("error creating S3 object storage: %w", err)
		}
	case localstorage.TYPE:
		localStorageConf, err := localstorage.ParseConfig(specificConf)
		if err != nil {
			return nil, fmt.Errorf("error parsing localstorage-specific config: %w", err)
		}

		objStorage, err = localstorage.New(l, localStorageConf)
		if err != nil {
			return nil, fmt.Errorf("error creating localstorage object storage: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid object storage type %s", conf.Type)
	}

	return NewStorageWithMetrics(objStorage, metricRegistry), nil
}
