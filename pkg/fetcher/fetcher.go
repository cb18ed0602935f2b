package fetcher

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jademcosta/pescador/pkg/config"
	"github.com/jademcosta/pescador/pkg/domain"
	"github.com/jademcosta/pescador/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const receiveErrorPause = 1 * time.Second

type Subscription interface {
	// Next blocks until a notification arrives or ctx ends. It returns the ctx
	// error once the listening window is over.
	Next(ctx context.Context) (*domain.Notification, error)
}

type ObjStorage interface {
	Download(ctx context.Context, key string, destDir string) (string, error)
	Upload(ctx context.Context, key string, body io.Reader) error
}

// Fetcher consumes bucket notifications for a bounded window and downloads the
// objects they name. Every notification is acked exactly once, no matter what
// parsing or the download did: redelivery is the broker's business, not ours.
type Fetcher struct {
	log          *slog.Logger
	sub          Subscription
	storage      ObjStorage
	destDir      string
	workersCount int
	tracer       trace.Tracer

	mu      sync.Mutex
	fetched []string
}

func New(
	l *slog.Logger, sub Subscription, storage ObjStorage, conf config.FetchConfig,
	tracer trace.Tracer, metricRegistry *prometheus.Registry,
) *Fetcher {

	initializeMetrics(metricRegistry)

	return &Fetcher{
		log:          l.With(logger.ComponentKey, "fetcher"),
		sub:          sub,
		storage:      storage,
		destDir:      conf.DestinationPath,
		workersCount: conf.MaxConcurrentDownloads,
		tracer:       tracer,
	}
}

// Run listens until ctx ends and returns the keys of every object downloaded,
// in completion order. Handlers in flight when the window closes are drained
// before Run returns, and they still ack.
func (f *Fetcher) Run(ctx context.Context) []string {
	work := make(chan *domain.Notification)
	var wg sync.WaitGroup

	for i := 0; i < f.workersCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for notification := range work {
				f.handle(notification)
			}
		}()
	}

	for {
		notification, err := f.sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			f.log.Error("receiving notification failed", "error", err)
			incReceiveError()
			pause(ctx, receiveErrorPause)
			continue
		}

		incReceived()
		work <- notification
	}

	close(work)
	wg.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched
}

func (f *Fetcher) handle(notification *domain.Notification) {
	defer notification.Ack()

	notice, err := domain.ParseObjectNotice(notification.Payload)
	if err != nil {
		f.log.Error("discarding notification with malformed payload",
			"notification_id", notification.ID, "error", err)
		incParseFailed()
		return
	}

	if notice.Name == "" {
		f.log.Debug("notification names no object, skipping",
			"notification_id", notification.ID)
		incSkipped()
		return
	}

	// Downloads run on a fresh context so work already in flight finishes
	// even after the listening window deadline fires.
	ctx, span := f.tracer.Start(context.Background(), "download")
	span.SetAttributes(attribute.String("object_key", notice.Name))

	localPath, err := f.storage.Download(ctx, notice.Name, f.destDir)
	if err != nil {
		span.RecordError(err)
		span.End()
		f.log.Error("failed to download object", "object_key", notice.Name, "error", err)
		incDownloadError()
		return
	}
	span.End()

	incDownloaded()
	f.log.Info("downloaded object", "object_key", notice.Name, "local_path", localPath)

	f.mu.Lock()
	f.fetched = append(f.fetched, notice.Name)
	f.mu.Unlock()
}

// pause keeps a broken broker from being hammered in a tight loop. It is not a
// retry policy: the next receive happens regardless of the previous outcome.
func pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
