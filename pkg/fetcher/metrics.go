package fetcher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var ensureSingleMetricRegistration sync.Once
var receivedCounter prometheus.Counter
var receiveErrorCounter prometheus.Counter
var parseFailedCounter prometheus.Counter
var skippedCounter prometheus.Counter
var downloadedCounter prometheus.Counter
var downloadErrorCounter prometheus.Counter

func initializeMetrics(metricRegistry *prometheus.Registry) {
	ensureSingleMetricRegistration.Do(func() {
		receivedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pescador",
				Subsystem: "fetcher",
				Name:      "notifications_received_total",
				Help:      "count of notifications delivered by the subscription",
			})

		receiveErrorCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pescador",
				Subsystem: "fetcher",
				Name:      "receive_errors_total",
				Help:      "count of errors receiving from the subscription",
			})

		parseFailedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pescador",
				Subsystem: "fetcher",
				Name:      "payload_parse_failures_total",
				Help:      "count of notifications whose payload could not be parsed",
			})

		skippedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pescador",
				Subsystem: "fetcher",
				Name:      "notifications_skipped_total",
				Help:      "count of notifications that named no object and were skipped",
			})

		downloadedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pescador",
				Subsystem: "fetcher",
				Name:      "objects_downloaded_total",
				Help:      "count of objects successfully downloaded",
			})

		downloadErrorCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pescador",
				Subsystem: "fetcher",
				Name:      "download_errors_total",
				Help:      "count of downloads that failed",
			})

		metricRegistry.MustRegister(
			receivedCounter,
			receiveErrorCounter,
			parseFailedCounter,
			skippedCounter,
			downloadedCounter,
			downloadErrorCounter,
		)
	})
}

func incReceived() {
	receivedCounter.Inc()
}

func incReceiveError() {
	receiveErrorCounter.Inc()
}

func incParseFailed() {
	parseFailedCounter.Inc()
}

func incSkipped() {
	skippedCounter.Inc()
}

func incDownloaded() {
	downloadedCounter.Inc()
}

func incDownloadError() {
	downloadErrorCounter.Inc()
}
