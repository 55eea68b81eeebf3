// @title           Clinical Document Ingestor
// @version         1.0
// @description     Receives clinical documents, extracts their text and queues it for de-identification.

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /
// @schemes   http
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/akolanti/ClinicalRAG/cmd/ingestor/docs"
	"github.com/akolanti/ClinicalRAG/internal/adapter/utils"
	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/data/sqliteStore"
	"github.com/akolanti/ClinicalRAG/internal/data/store"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/extract"
	"github.com/akolanti/ClinicalRAG/internal/handlers"
	"github.com/akolanti/ClinicalRAG/internal/ingestor"
	"github.com/akolanti/ClinicalRAG/internal/middleware"
	"github.com/akolanti/ClinicalRAG/internal/queue"
	"github.com/akolanti/ClinicalRAG/internal/server"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

const serviceName = "doc-ingestor"

func main() {
	settings := config.Get()
	logger_i.Init(serviceName)
	var logger = logger_i.NewLogger("main")

	listenAddr := flag.String("listen-addr", settings.IngestorListenAddr, "server listen address")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	var documents documentModel.DocumentStore
	sqlStore, err := sqliteStore.Open(serviceContext, settings.SQLitePath)
	if err != nil {
		logger.Error("SQLite store unavailable, documents are kept in memory", "error", err)
		documents = store.InitInMemoryDocumentStore()
	} else {
		documents = sqlStore
	}

	// uploads are accepted while the broker is down, they end in ERROR_QUEUE
	broker, err := queue.Dial(settings.NatsURL, serviceName)
	if err != nil {
		logger.Error("Invalid broker configuration", "error", err)
		return
	}
	if broker.Connected() {
		if err := broker.DeclareQueue(serviceContext, settings.RawQueue); err != nil {
			logger.Warn("Could not declare the raw queue, retried on publish", "error", err)
		}
	}

	service := ingestor.NewService(documents, extract.NewFileExtractor(), broker, settings.RawQueue, settings.UploadDir)
	handlers.InitIngestHandler(service)

	r := utils.GetRouter().Router
	r.Post("/ingest/", middleware.Wrap(handlers.PostIngestHandler))
	r.Get("/documents/", middleware.Wrap(handlers.ListDocumentsHandler))
	r.Get("/documents/{id}", middleware.Wrap(handlers.GetDocumentHandler))
	r.Get("/health", middleware.WrapPublic(handlers.HealthHandler(serviceName)))

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices: func() {
			closeExternalServices()
			broker.Close()
			if err := documents.Close(); err != nil {
				logger.Error("Closing document store", "error", err)
			}
		},
	})
	go server.CreateServer(*listenAddr, serviceName, r)

	<-stopExecution
	logger.Info("Server stopped")
}
