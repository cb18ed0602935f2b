package logship

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jademcosta/pescador/pkg/config"
	"github.com/jademcosta/pescador/pkg/fetcher"
	"github.com/jademcosta/pescador/pkg/logger"
	"github.com/klauspost/compress/gzip"
)

const shipperComponentType = "logship"
const shipTimeout = 30 * time.Second

// keyPrefix is where run logs land inside the bucket, keeping them apart from
// the fetched objects.
const keyPrefix = "logs/pescador"

// Shipper uploads the sealed run log to the object storage after the run is
// over. The policy decides whether a given run ships its log at all.
type Shipper struct {
	log     *slog.Logger
	storage fetcher.ObjStorage
	conf    config.FetchConfig
}

func New(l *slog.Logger, storage fetcher.ObjStorage, conf config.FetchConfig) *Shipper {
	return &Shipper{
		log:     l.With(logger.ComponentKey, shipperComponentType),
		storage: storage,
		conf:    conf,
	}
}

// ShouldShip applies the upload_run_log policy to the outcome of the run. The
// "auto" policy only ships when at least one object was fetched, so idle runs
// don't pile up log objects in the bucket.
func ShouldShip(policy string, fetchedCount int) bool {
	switch policy {
	case config.UploadRunLogAlways:
		return true
	case config.UploadRunLogNever:
		return false
	default:
		return fetchedCount > 0
	}
}

// Ship uploads the run log file under logs/pescador/<basename>. With gzip
// enabled the content is compressed and the key gets a .gz suffix.
func (shipper *Shipper) Ship(runLogPath string) error {
	content, err := os.ReadFile(runLogPath)
	if err != nil {
		return fmt.Errorf("error reading run log %s: %w", runLogPath, err)
	}

	key := fmt.Sprintf("%s/%s", keyPrefix, filepath.Base(runLogPath))
	var body io.Reader = bytes.NewReader(content)

	if shipper.conf.GzipRunLog {
		compressed, err := gzipContent(content)
		if err != nil {
			return fmt.Errorf("error compressing run log: %w", err)
		}
		body = bytes.NewReader(compressed)
		key += ".gz"
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), shipTimeout)
	defer cancelFunc()

	err = shipper.storage.Upload(ctx, key, body)
	if err != nil {
		return fmt.Errorf("error uploading run log to %s: %w", key, err)
	}

	shipper.log.Info("run log shipped", "key", key)
	return nil
}

func gzipContent(content []byte) ([]byte, error) {
	buf := &bytes.Buffer{}

	writer := gzip.NewWriter(buf)
	_, err := writer.Write(content)
	if err != nil {
		return nil, err
	}

	err = writer.Close()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
