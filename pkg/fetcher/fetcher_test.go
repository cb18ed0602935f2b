package fetcher_test

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jademcosta/pescador/pkg/config"
	"github.com/jademcosta/pescador/pkg/domain"
	"github.com/jademcosta/pescador/pkg/fetcher"
	"github.com/jademcosta/pescador/pkg/logger"
	"github.com/jademcosta/pescador/pkg/o11y/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

var llog = logger.NewDummy()
var noopTracer = tracing.NewNoopTracer()

type mockSubscription struct {
	ch chan *domain.Notification
}

func newMockSubscription() *mockSubscription {
	return &mockSubscription{ch: make(chan *domain.Notification, 100)}
}

func (sub *mockSubscription) Next(ctx context.Context) (*domain.Notification, error) {
	select {
	case notification := <-sub.ch:
		return notification, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type mockStorage struct {
	mu         sync.Mutex
	calledWith []string
	destDirs   []string
	err        error
	delay      time.Duration
}

func (storage *mockStorage) Download(_ context.Context, key string, destDir string) (string, error) {
	if storage.delay > 0 {
		time.Sleep(storage.delay)
	}

	storage.mu.Lock()
	defer storage.mu.Unlock()

	storage.calledWith = append(storage.calledWith, key)
	storage.destDirs = append(storage.destDirs, destDir)

	if storage.err != nil {
		return "", storage.err
	}
	return filepath.Join(destDir, filepath.Base(key)), nil
}

func (storage *mockStorage) Upload(_ context.Context, _ string, _ io.Reader) error {
	return nil
}

func (storage *mockStorage) downloadedKeys() []string {
	storage.mu.Lock()
	defer storage.mu.Unlock()
	return append([]string{}, storage.calledWith...)
}

func notificationWithAckCount(payload string, ackCount *atomic.Int32) *domain.Notification {
	return &domain.Notification{
		ID:      "some-id",
		Payload: []byte(payload),
		Ack:     func() { ackCount.Add(1) },
	}
}

func fetchConf(workers int) config.FetchConfig {
	return config.FetchConfig{
		DestinationPath:        "/tmp/dest",
		MaxConcurrentDownloads: workers,
	}
}

func TestDownloadsNotifiedObjects(t *testing.T) {
	sub := newMockSubscription()
	storage := &mockStorage{}
	var acks atomic.Int32

	sub.ch <- notificationWithAckCount(`{"name": "inbox/report.csv"}`, &acks)
	sub.ch <- notificationWithAckCount(`{"name": "inbox/data.json"}`, &acks)

	sut := fetcher.New(llog, sub, storage, fetchConf(1), noopTracer, prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	fetched := sut.Run(ctx)

	assert.Equal(t, []string{"inbox/report.csv", "inbox/data.json"}, fetched,
		"fetched list should hold the object keys in order")
	assert.Equal(t, []string{"inbox/report.csv", "inbox/data.json"}, storage.downloadedKeys(),
		"both objects should have been downloaded")
	assert.Equal(t, "/tmp/dest", storage.destDirs[0], "download should use the configured destination")
	assert.Equal(t, int32(2), acks.Load(), "every notification should be acked exactly once")
}

func TestSkipsNotificationsWithoutName(t *testing.T) {
	sub := newMockSubscription()
	storage := &mockStorage{}
	var acks atomic.Int32

	sub.ch <- notificationWithAckCount(`{"foo": "bar"}`, &acks)

	sut := fetcher.New(llog, sub, storage, fetchConf(1), noopTracer, prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	fetched := sut.Run(ctx)

	assert.Empty(t, fetched, "fetched list should be unchanged")
	assert.Empty(t, storage.downloadedKeys(), "no download should be attempted")
	assert.Equal(t, int32(1), acks.Load(), "the notification should still be acked")
}

func TestMalformedPayloadIsAckedAndIsolated(t *testing.T) {
	sub := newMockSubscription()
	storage := &mockStorage{}
	var acks atomic.Int32

	sub.ch <- notificationWithAckCount(`this is not json`, &acks)
	sub.ch <- notificationWithAckCount(`{"name": "ok.txt"}`, &acks)

	sut := fetcher.New(llog, sub, storage, fetchConf(1), noopTracer, prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	fetched := sut.Run(ctx)

	assert.Equal(t, []string{"ok.txt"}, fetched, "the run should continue past the bad payload")
	assert.Equal(t, int32(2), acks.Load(), "both notifications should be acked")
}

func TestDownloadFailureDoesNotAbortTheRun(t *testing.T) {
	sub := newMockSubscription()
	storage := &mockStorage{err: fmt.Errorf("the bucket is on fire")}
	var acks atomic.Int32

	sub.ch <- notificationWithAckCount(`{"name": "will/fail.bin"}`, &acks)

	sut := fetcher.New(llog, sub, storage, fetchConf(1), noopTracer, prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	fetched := sut.Run(ctx)

	assert.Empty(t, fetched, "a failed download should not be recorded")
	assert.Equal(t, []string{"will/fail.bin"}, storage.downloadedKeys(), "the download should have been tried")
	assert.Equal(t, int32(1), acks.Load(), "the notification should still be acked")
}

func TestEmptyWindowReturnsEmptyList(t *testing.T) {
	sub := newMockSubscription()
	storage := &mockStorage{}

	sut := fetcher.New(llog, sub, storage, fetchConf(1), noopTracer, prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	fetched := sut.Run(ctx)

	assert.Empty(t, fetched, "no messages means an empty fetched list")
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond,
		"the loop should listen for the whole window")
}

func TestInFlightDownloadDrainsPastTheDeadline(t *testing.T) {
	sub := newMockSubscription()
	storage := &mockStorage{delay: 150 * time.Millisecond}
	var acks atomic.Int32

	sub.ch <- notificationWithAckCount(`{"name": "slow/object.dat"}`, &acks)

	sut := fetcher.New(llog, sub, storage, fetchConf(1), noopTracer, prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	fetched := sut.Run(ctx)

	assert.Equal(t, []string{"slow/object.dat"}, fetched,
		"work in flight at the deadline should finish")
	assert.Equal(t, int32(1), acks.Load(), "the drained notification should be acked")
}

func TestConcurrentDeliveryIsSafe(t *testing.T) {
	sub := newMockSubscription()
	storage := &mockStorage{}
	var acks atomic.Int32

	expected := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("batch/file-%d.csv", i)
		expected = append(expected, key)
		sub.ch <- notificationWithAckCount(fmt.Sprintf(`{"name": %q}`, key), &acks)
	}

	sut := fetcher.New(llog, sub, storage, fetchConf(4), noopTracer, prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	fetched := sut.Run(ctx)

	assert.ElementsMatch(t, expected, fetched, "all objects should be fetched under concurrent delivery")
	assert.Equal(t, int32(50), acks.Load(), "every notification should be acked exactly once")
}
