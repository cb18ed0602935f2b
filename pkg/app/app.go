package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/jademcosta/pescador/pkg/adapters/httpin"
	"github.com/jademcosta/pescador/pkg/adapters/objstorage"
	"github.com/jademcosta/pescador/pkg/adapters/subscription"
	"github.com/jademcosta/pescador/pkg/config"
	"github.com/jademcosta/pescador/pkg/fetcher"
	"github.com/jademcosta/pescador/pkg/logger"
	"github.com/jademcosta/pescador/pkg/logship"
	"github.com/jademcosta/pescador/pkg/o11y/tracing"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
)

const tracerShutdownTimeout = 5 * time.Second

// App wires a single run: subscribe, fetch for the listening window, then
// seal and maybe ship the run log.
type App struct {
	conf     *config.Config
	log      *slog.Logger
	runLog   *logger.RunLog
	ctx      context.Context
	stopFunc context.CancelFunc
}

func New(c *config.Config, l *slog.Logger, runLog *logger.RunLog) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		conf:     c,
		log:      l,
		runLog:   runLog,
		ctx:      ctx,
		stopFunc: cancel,
	}
}

// Start runs until the listening window closes or a signal arrives, whichever
// comes first. It returns an error only for bootstrap failures; per-message
// failures are logged and counted instead.
func (a *App) Start() error {
	metricRegistry := prometheus.NewRegistry()
	registerDefaultMetrics(metricRegistry)

	tracer, tracerShutdown, err := a.createTracer()
	if err != nil {
		return fmt.Errorf("error creating tracer: %w", err)
	}

	storage, err := objstorage.New(a.log, metricRegistry, &a.conf.ObjectStorage)
	if err != nil {
		return fmt.Errorf("error creating object storage: %w", err)
	}

	sub, err := subscription.New(a.log, metricRegistry, &a.conf.Subscription)
	if err != nil {
		return fmt.Errorf("error creating subscription: %w", err)
	}

	fetchRunner := fetcher.New(a.log, sub, storage, a.conf.Fetch, tracer, metricRegistry)

	//The shutdown of rungroup seems to be executed from a single goroutine. Meaning that if a
	//waitgroup is added on some interrupt function, it might hang forever.
	var g run.Group

	a.addShutdownRelatedActors(&g)

	var fetched []string
	windowCtx, windowCancel := context.WithTimeout(a.ctx, a.conf.Fetch.ListenWindow())
	g.Add(
		func() error {
			defer windowCancel()
			a.log.Info("listening for notifications",
				"window", a.conf.Fetch.ListenWindow().String(),
				logger.SubscriptionTypeKey, sub.Type(),
				logger.ObjStorageTypeKey, storage.Type())
			fetched = fetchRunner.Run(windowCtx)
			return nil
		},
		func(error) {
			windowCancel()
		},
	)

	if a.conf.API.Enabled() {
		a.addAPIActor(&g, metricRegistry)
	}

	err = g.Run()
	if err != nil {
		a.log.Error("something went wrong when running the components", "error", err)
	}

	a.shutdownTracer(tracerShutdown)
	a.finishRun(storage, fetched)

	return nil
}

// finishRun seals the run log and applies the upload policy. Sealing comes
// first so the shipped file holds every line of the run. Shipping failures are
// logged but don't fail the run: the objects were already fetched.
func (a *App) finishRun(storage fetcher.ObjStorage, fetched []string) {
	a.log.Info("run finished", "fetched_count", len(fetched), "fetched", fetched)

	err := a.runLog.Seal()
	if err != nil {
		a.log.Error("failed to seal run log", "error", err)
		return
	}

	if !logship.ShouldShip(a.conf.Fetch.UploadRunLog, len(fetched)) {
		a.log.Info("skipping run log upload", "policy", a.conf.Fetch.UploadRunLog)
		return
	}

	shipper := logship.New(a.log, storage, a.conf.Fetch)
	err = shipper.Ship(a.runLog.Path())
	if err != nil {
		a.log.Error("failed to ship run log", "error", err)
	}
}

func (a *App) addShutdownRelatedActors(g *run.Group) {
	signalsCh := make(chan os.Signal, 2)
	signal.Notify(signalsCh, syscall.SIGINT, syscall.SIGTERM)

	g.Add(func() error {
		select {
		case s := <-signalsCh:
			a.log.Info("received signal, shutting down", "signal", s.String())
		case <-a.ctx.Done():
		}
		return nil
	}, func(error) {
		a.stopFunc()
		signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	})
}

func (a *App) addAPIActor(g *run.Group, metricRegistry *prometheus.Registry) {
	api := httpin.New(a.log, a.conf.API, metricRegistry, a.conf.Version)

	g.Add(
		func() error {
			err := api.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("api listening and serving failed", "error", err)
				return err
			}
			return nil
		},
		func(error) {
			a.log.Info("shutting down api")
			if err := api.Shutdown(); err != nil {
				a.log.Error("api shutdown failed", "error", err)
			}
		},
	)
}

func (a *App) createTracer() (trace.Tracer, func(context.Context) error, error) {
	if !a.conf.Tracing.Enabled {
		return tracing.NewNoopTracer(), nil, nil
	}

	return tracing.NewTracer(a.conf.Tracing)
}

func (a *App) shutdownTracer(tracerShutdown func(context.Context) error) {
	if tracerShutdown == nil {
		return
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), tracerShutdownTimeout)
	defer cancelFunc()

	if err := tracerShutdown(ctx); err != nil {
		a.log.Error("tracer shutdown failed", "error", err)
	}
}

// Stop ends the listening window early.
func (a *App) Stop() {
	a.stopFunc()
}

func registerDefaultMetrics(registry *prometheus.Registry) {
	registry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/.*")}),
		),
	)
}
