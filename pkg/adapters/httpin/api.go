package httpin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jademcosta/pescador/pkg/config"
	"github.com/jademcosta/pescador/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiComponentType = "api"
const shutdownGracePeriod = 5 * time.Second

// API is the operational surface of a run: metrics, health and version. It is
// only started when a port is configured, since most one-shot runs don't need
// it.
type API struct {
	mux  *chi.Mux
	log  *slog.Logger
	srv  *http.Server
	port int
}

func New(l *slog.Logger, conf config.APIConfig, metricRegistry *prometheus.Registry, appVersion string) *API {
	router := chi.NewRouter()

	api := &API{
		mux:  router,
		log:  l.With(logger.ComponentKey, apiComponentType),
		srv:  &http.Server{Addr: fmt.Sprintf(":%d", conf.Port), Handler: router},
		port: conf.Port,
	}

	registerOperationalRoutes(api, appVersion, metricRegistry)

	return api
}

func (api *API) ListenAndServe() error {
	api.log.Info(fmt.Sprintf("Starting HTTP server on port %d", api.port))
	return fmt.Errorf("on serving HTTP: %w", api.srv.ListenAndServe())
}

func (api *API) Shutdown() error {
	shutdownCtx, shutdownCtxRelease := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer shutdownCtxRelease()

	return api.srv.Shutdown(shutdownCtx)
}

func registerOperationalRoutes(api *API, version string, metricRegistry *prometheus.Registry) {
	metricHandler := promhttp.HandlerFor(metricRegistry, promhttp.HandlerOpts{Registry: metricRegistry})

	api.mux.Get("/version", versionHandler(version))
	api.mux.Handle("/metrics", metricHandler)

	api.mux.Get("/healthy", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func versionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response, err := json.Marshal(map[string]string{"version": version})
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(response) //nolint:errcheck
	}
}
