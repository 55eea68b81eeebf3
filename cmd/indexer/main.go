package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/akolanti/ClinicalRAG/internal/adapter/utils"
	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/data/store"
	"github.com/akolanti/ClinicalRAG/internal/handlers"
	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/internal/middleware"
	"github.com/akolanti/ClinicalRAG/internal/queue"
	"github.com/akolanti/ClinicalRAG/internal/rag/embedding"
	"github.com/akolanti/ClinicalRAG/internal/rag/ingest"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB/flatIndex"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/ClinicalRAG/internal/server"
	"github.com/akolanti/ClinicalRAG/internal/worker"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

const (
	serviceName = "semantic-indexer"
	durable     = "indexer"
)

var logger *logger_i.Logger

func main() {
	settings := config.Get()
	logger_i.Init(serviceName)
	logger = logger_i.NewLogger("main")

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	var broker atomic.Pointer[queue.Broker]
	stopWorker := make(chan bool)
	var workerGroup sync.WaitGroup

	r := utils.NewRouter(false)
	r.Get("/health", middleware.WrapPublic(handlers.HealthHandler(serviceName)))

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	lease := store.GetIndexLease(serviceContext)
	if err := lease.Acquire(serviceContext); err != nil {
		logger.Error("Another indexer owns the index, exiting", "error", err)
		return
	}
	go store.KeepAlive(serviceContext, lease, config.IndexLeaseRenew, func(err error) {
		logger.Error("Index writer lease lost, shutting down", "error", err)
		select {
		case gracefulShutdown <- syscall.SIGTERM:
		default:
		}
	})

	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorker,
		Group:            &workerGroup,
		CloseServices: func() {
			if b := broker.Load(); b != nil {
				b.Close()
			}
			if err := lease.Release(context.Background()); err != nil {
				logger.Warn("Releasing index writer lease", "error", err)
			}
			closeExternalServices()
		},
	})
	go server.CreateServer(settings.IndexerStatusAddr, serviceName, r)

	if err := run(serviceContext, settings, &broker, stopWorker, &workerGroup); err != nil && serviceContext.Err() == nil {
		logger.Error("Indexer failed to start", "error", err)
		_ = lease.Release(context.Background())
		return
	}

	<-stopExecution
	logger.Info("Indexer stopped")
}

func run(ctx context.Context, settings *config.Settings, holder *atomic.Pointer[queue.Broker], stop chan bool, group *sync.WaitGroup) error {
	embedder, err := embedding.NewEmbedder(ctx, settings)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}

	paths := flatIndex.Paths{Index: settings.IndexPath(), Metadata: settings.MetadataPath()}
	index, created, err := flatIndex.OpenOrCreate(paths, embedder.Model(), settings.EmbeddingDimension)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	if created {
		logger.Info("No index on disk, bootstrapping", "dir", settings.DefaultDataDir)
		n, err := ingest.Bootstrap(ctx, index, embedder, settings.DefaultDataDir, config.BootstrapPoolSize)
		if err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		logger.Info("Bootstrap done", "entries", n)
	}
	metrics.SetIndexEntries(index.Len())

	var mirror vectorDB.Mirror
	if q := qdrantDB.GetQuadrantClient(ctx, settings); q != nil {
		if err := ingest.SyncMirror(ctx, index.Snapshot(), q); err != nil {
			logger.Warn("Initial Qdrant sync failed", "error", err)
		}
		mirror = q
	}

	broker, err := queue.Connect(ctx, settings.NatsURL, serviceName)
	if err != nil {
		return err
	}
	holder.Store(broker)
	consumer, err := broker.Consumer(ctx, settings.CleanQueue, durable)
	if err != nil {
		return err
	}

	indexer := ingest.NewIndexer(index, embedder, mirror, settings.CleanQueue, settings.ChunkSize)
	if ctx.Err() == nil {
		worker.New(durable, consumer, indexer.Handle).Start(stop, group)
	}
	return nil
}
