package objstorage

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StorageTypeLabel string = "storage_type"
	NameLabel        string = "name"
	OperationLabel   string = "operation"
)

const (
	downloadOp string = "download"
	uploadOp   string = "upload"
)

var (
	ensureMetricRegisteringOnce sync.Once
	latencyHistogram            *prometheus.HistogramVec
	operationCounter            *prometheus.CounterVec
	operationSuccessCounter     *prometheus.CounterVec
	operationErrorCounter       *prometheus.CounterVec
)

type storageWithMetrics struct {
	storage     StorageWithMetadata
	wrappedType string
	wrappedName string
}

func NewStorageWithMetrics(storage StorageWithMetadata, metricRegistry *prometheus.Registry) StorageWithMetadata {
	ensureMetricRegisteringOnce.Do(func() {
		latencyHistogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:      "operation_latency_seconds",
				Subsystem: "object_storage",
				Namespace: "pescador",
				Help:      "the time it took to finish an object storage operation",
				Buckets:   []float64{0.25, 0.5, 1.0, 1.5, 2.0, 5.0, 10.0, 30.0, 45.0, 60.0, 90.0, 120.0, 180.0, 240.0, 300.0, 600.0},
			},
			[]string{StorageTypeLabel, NameLabel, OperationLabel},
		)

		operationCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "operations_total",
				Namespace: "pescador",
				Subsystem: "object_storage",
				Help:      "count of object storage operations that finished (successful or not)",
			},
			[]string{StorageTypeLabel, NameLabel, OperationLabel},
		)

		operationSuccessCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "operation_success_total",
				Namespace: "pescador",
				Subsystem: "object_storage",
				Help:      "count of successful object storage operations",
			},
			[]string{StorageTypeLabel, NameLabel, OperationLabel},
		)

		operationErrorCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "operation_errors_total",
				Namespace: "pescador",
				Subsystem: "object_storage",
				Help:      "count of object storage operations that errored",
			},
			[]string{StorageTypeLabel, NameLabel, OperationLabel},
		)

		metricRegistry.MustRegister(
			latencyHistogram,
			operationCounter,
			operationSuccessCounter,
			operationErrorCounter,
		)
	})

	return &storageWithMetrics{
		storage:     storage,
		wrappedType: storage.Type(),
		wrappedName: storage.Name(),
	}
}

func (w *storageWithMetrics) Download(ctx context.Context, key string, destDir string) (string, error) {
	startTime := time.Now()

	localPath, err := w.storage.Download(ctx, key, destDir)

	w.observe(downloadOp, time.Since(startTime), err)
	return localPath, err
}

func (w *storageWithMetrics) Upload(ctx context.Context, key string, body io.Reader) error {
	startTime := time.Now()

	err := w.storage.Upload(ctx, key, body)

	w.observe(uploadOp, time.Since(startTime), err)
	return err
}

func (w *storageWithMetrics) observe(operation string, elapsed time.Duration, err error) {
	latencyHistogram.
		WithLabelValues(w.wrappedType, w.wrappedName, operation).
		Observe(elapsed.Seconds())

	operationCounter.
		WithLabelValues(w.wrappedType, w.wrappedName, operation).
		Inc()

	if err != nil {
		operationErrorCounter.WithLabelValues(w.wrappedType, w.wrappedName, operation).Inc()
	} else {
		operationSuccessCounter.WithLabelValues(w.wrappedType, w.wrappedName, operation).Inc()
	}
}

func (w *storageWithMetrics) Type() string {
	return w.wrappedType
}

func (w *storageWithMetrics) Name() string {
	return w.wrappedName
}
