package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/adapter/utils"
	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/domain/pipelineError"
	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/internal/queue"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

// Handler processes one message body. A nil error acks the message, anything else drops it.
type Handler func(ctx context.Context, body []byte) error

// Worker pulls one message at a time from a queue and settles it after the handler returns.
type Worker struct {
	stage   string
	source  queue.Source
	handle  Handler
	backoff time.Duration
	logger  *logger_i.Logger
}

func New(stage string, source queue.Source, handle Handler) *Worker {
	return &Worker{
		stage:   stage,
		source:  source,
		handle:  handle,
		backoff: config.BrokerReconnectWait,
		logger:  logger_i.NewLogger("Worker").With("stage", stage),
	}
}

// Start runs the consume loop in its own goroutine until stop is closed.
func (w *Worker) Start(stop chan bool, group *sync.WaitGroup) {
	group.Add(1)
	go func() {
		defer group.Done()
		w.Run(stop)
	}()
}

func (w *Worker) Run(stop chan bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	w.logger.Info("Worker started", "queue", w.source.Queue())
	for {
		delivery, err := w.source.Next(ctx)
		switch {
		case ctx.Err() != nil:
			w.logger.Info("Stop worker signal received")
			return
		case errors.Is(err, queue.ErrNoDelivery):
			continue
		case err != nil:
			metrics.CountReconnect(w.stage)
			w.logger.Warn("Broker fetch failed, backing off", "error", err, "wait", w.backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
			continue
		}
		w.settle(delivery)
	}
}

func (w *Worker) settle(d queue.Delivery) {
	start := time.Now()
	defer func() {
		metrics.CaptureMessageMetrics(w.stage, time.Since(start))
	}()

	ctx := context.WithValue(d.Context(), config.TRACE_ID_KEY, utils.GetNewUUID())
	err := w.safeHandle(ctx, d.Body())
	if err == nil {
		if ackErr := d.Ack(); ackErr != nil {
			// the broker redelivers after the ack wait
			w.logger.Error("Ack failed", "error", ackErr)
			return
		}
		metrics.CountMessage(w.stage, "ack")
		return
	}

	kind := pipelineError.KindOf(err)
	metrics.CountMessage(w.stage, string(kind))
	w.logger.WithTrace(ctx).Error("Message rejected", "kind", kind, "error", err)
	if rejErr := d.Reject(); rejErr != nil {
		w.logger.Error("Reject failed", "error", rejErr)
	}
}

// safeHandle turns a handler panic into a processing error so the message is dropped, not the worker.
func (w *Worker) safeHandle(ctx context.Context, body []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &pipelineError.ProcessingError{Stage: w.stage, Err: fmt.Errorf("handler panic: %v", r)}
		}
	}()
	return w.handle(ctx, body)
}
