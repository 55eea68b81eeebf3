package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	// WorkerStop is closed to ask queue consumers to return; Group waits for them.
	WorkerStop    chan bool
	Group         *sync.WaitGroup
	CloseServices context.CancelFunc
}

// CreateServer serves handler on listenAddr until ShutDownHandler stops it.
func CreateServer(listenAddr string, service string, handler http.Handler) {
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      otelhttp.NewHandler(handler, service),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr, "service", service)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		if shutdownParams.WorkerStop != nil {
			close(shutdownParams.WorkerStop)
		}
		if shutdownParams.Group != nil {
			shutdownParams.Group.Wait()
		}
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
