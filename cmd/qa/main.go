// @title           Clinical QA Assistant
// @version         1.0
// @description     Answers practitioner questions from the indexed knowledge base and patient files.

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8001
// @BasePath  /
// @schemes   http
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/akolanti/ClinicalRAG/cmd/qa/docs"
	"github.com/akolanti/ClinicalRAG/internal/adapter/utils"
	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/handlers"
	"github.com/akolanti/ClinicalRAG/internal/middleware"
	"github.com/akolanti/ClinicalRAG/internal/rag"
	"github.com/akolanti/ClinicalRAG/internal/server"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

const serviceName = "llm-qa"

func main() {
	settings := config.Get()
	logger_i.Init(serviceName)
	var logger = logger_i.NewLogger("main")

	listenAddr := flag.String("listen-addr", settings.QAListenAddr, "server listen address")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	runtime, err := rag.NewRuntime(serviceContext, settings)
	if err != nil {
		logger.Error("QA service failed to initialize", "error", err)
		return
	}
	if runtime.Live != nil && settings.WatchIndex {
		go func() {
			if err := runtime.Live.Watch(serviceContext); err != nil {
				logger.Error("Index watcher stopped", "error", err)
			}
		}()
	}
	handlers.InitAskHandler(runtime.Service)

	r := utils.GetRouter().Router
	r.Post("/ask/", middleware.Wrap(handlers.AskHandler))
	r.Get("/health", middleware.WrapPublic(handlers.HealthHandler(serviceName)))
	r.Get("/ready", middleware.WrapPublic(handlers.ReadyHandler(runtime.Probe)))

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices:    closeExternalServices,
	})
	go server.CreateServer(*listenAddr, serviceName, r)

	<-stopExecution
	logger.Info("Server stopped")
}
