package localstorage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jademcosta/pescador/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "localstorage"

type Config struct {
	Path string `yaml:"path"`
}

// LocalStorage treats a local directory as the bucket. Useful for running the
// fetcher without cloud access and for tests.
type LocalStorage struct {
	path string
	log  *slog.Logger
}

func New(l *slog.Logger, c *Config) (*LocalStorage, error) {
	path, err := validateAndFormatPath(c.Path)
	if err != nil {
		return nil, fmt.Errorf("error creating localstorage: %w", err)
	}

	return &LocalStorage{path: path, log: l.With(logger.ObjStorageTypeKey, TYPE)}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing localstorage config: %w", err)
	}

	return conf, nil
}

func (storage *LocalStorage) Download(_ context.Context, key string, destDir string) (string, error) {
	sourcePath := filepath.Join(storage.path, filepath.FromSlash(strings.Trim(key, "/")))

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", fmt.Errorf("error reading object from localstorage: %w", err)
	}

	err = os.MkdirAll(destDir, 0o755)
	if err != nil {
		return "", fmt.Errorf("error creating destination directory: %w", err)
	}

	localPath := filepath.Join(destDir, path.Base(key))
	err = os.WriteFile(localPath, data, 0o644)
	if err != nil {
		return "", fmt.Errorf("error writing object into destination: %w", err)
	}

	return localPath, nil
}

func (storage *LocalStorage) Upload(_ context.Context, key string, body io.Reader) error {
	fullPath := filepath.Join(storage.path, filepath.FromSlash(strings.Trim(key, "/")))

	err := os.MkdirAll(filepath.Dir(fullPath), 0o755)
	if err != nil {
		return fmt.Errorf("error creating object directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("error creating object file: %w", err)
	}
	defer file.Close()

	_, err = io.Copy(file, body)
	if err != nil {
		return fmt.Errorf("error writing object data: %w", err)
	}

	return nil
}

func (storage *LocalStorage) Type() string {
	return TYPE
}

func (storage *LocalStorage) Name() string {
	return storage.path
}

func validateAndFormatPath(path string) (string, error) {
	pathInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("the directory for the path doesn't exist: %w", err)
		}
		return "", fmt.Errorf("error on the provided path: %w", err)
	}

	if !pathInfo.IsDir() {
		return "", fmt.Errorf("provided path is not a directory")
	}

	return strings.TrimSuffix(path, "/"), nil
}
