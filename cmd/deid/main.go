package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/akolanti/ClinicalRAG/internal/adapter/utils"
	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/customHttpClient"
	"github.com/akolanti/ClinicalRAG/internal/deid"
	"github.com/akolanti/ClinicalRAG/internal/handlers"
	"github.com/akolanti/ClinicalRAG/internal/middleware"
	"github.com/akolanti/ClinicalRAG/internal/queue"
	"github.com/akolanti/ClinicalRAG/internal/server"
	"github.com/akolanti/ClinicalRAG/internal/worker"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

const (
	serviceName = "deid-worker"
	durable     = "deid"
)

func main() {
	settings := config.Get()
	logger_i.Init(serviceName)
	var logger = logger_i.NewLogger("main")

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	var broker atomic.Pointer[queue.Broker]
	stopWorker := make(chan bool)
	var workerGroup sync.WaitGroup

	// status listener and shutdown come first so a signal also ends the reconnect loop
	r := utils.NewRouter(false)
	r.Get("/health", middleware.WrapPublic(handlers.HealthHandler(serviceName)))

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)
	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorker,
		Group:            &workerGroup,
		CloseServices: func() {
			closeExternalServices()
			if b := broker.Load(); b != nil {
				b.Close()
			}
		},
	})
	go server.CreateServer(settings.DeIDStatusAddr, serviceName, r)

	if err := run(serviceContext, settings, &broker, stopWorker, &workerGroup); err != nil {
		if serviceContext.Err() == nil {
			logger.Error("De-identification worker failed to start", "error", err)
			return
		}
	}

	<-stopExecution
	logger.Info("Worker stopped")
}

func run(ctx context.Context, settings *config.Settings, holder *atomic.Pointer[queue.Broker], stop chan bool, group *sync.WaitGroup) error {
	broker, err := queue.Connect(ctx, settings.NatsURL, serviceName)
	if err != nil {
		return err
	}
	holder.Store(broker)

	if err := broker.DeclareQueue(ctx, settings.CleanQueue); err != nil {
		return err
	}
	consumer, err := broker.Consumer(ctx, settings.RawQueue, durable)
	if err != nil {
		return err
	}

	masker := deid.NewMaskerFromSettings(settings, customHttpClient.Get())
	service := deid.NewService(masker, broker, settings.RawQueue, settings.CleanQueue)
	if ctx.Err() == nil {
		worker.New(durable, consumer, service.Handle).Start(stop, group)
	}
	return nil
}
