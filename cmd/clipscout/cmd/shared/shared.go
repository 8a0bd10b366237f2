// Package shared holds the global flags and the runtime every subcommand opens
package shared

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"clipscout/internal/app"
)

// Options are bound to the root command's persistent flags
var Options struct {
	ConfigPath  string
	Verbose     bool
	MetricsAddr string
}

// Open builds the application and starts the metrics endpoint when an address
// is configured. Callers must invoke the returned cleanup.
func Open(ctx context.Context) (*app.App, func(), error) {
	a, cleanup, err := app.InitializeApp(ctx, app.ConfigPath(Options.ConfigPath), app.Verbose(Options.Verbose))
	if err != nil {
		return nil, nil, err
	}

	addr := Options.MetricsAddr
	if addr == "" {
		addr = a.Settings.MetricsAddr
	}
	if addr == "" {
		return a, cleanup, nil
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           metricsMux(a),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	a.Logger.Info("serving metrics", zap.String("addr", addr))

	return a, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		cleanup()
	}, nil
}

func metricsMux(a *app.App) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	return mux
}
