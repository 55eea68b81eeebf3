// Package queue carries pipeline messages over NATS JetStream work queues.
//
// Every queue is a file backed stream whose name and subject are the queue name,
// with WorkQueue retention so a message is removed once it is acked or terminated.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/metrics"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
)

// Publisher is what the ingestor and the de-identification worker need to hand a message on.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

// ErrBrokerUnavailable is returned by Publish while the connection is down.
var ErrBrokerUnavailable = errors.New("broker not connected")

type Broker struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stage  string
	logger *logger_i.Logger

	// queues declared on this connection
	declared sync.Map
}

var _ Publisher = (*Broker)(nil)

func connectOptions(stage string, logger *logger_i.Logger) []nats.Option {
	return []nats.Option{
		nats.Name(stage),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(config.BrokerReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Broker disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			metrics.CountReconnect(stage)
			logger.Info("Broker reconnected", "url", c.ConnectedUrl())
		}),
	}
}

func newBroker(nc *nats.Conn, stage string, logger *logger_i.Logger) (*Broker, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	return &Broker{nc: nc, js: js, stage: stage, logger: logger}, nil
}

// Dial returns at once, even when the broker is down; the client keeps connecting in the background.
// Publish fails with ErrBrokerUnavailable until the connection is up.
func Dial(url string, stage string) (*Broker, error) {
	logger := logger_i.NewLogger("Broker").With("stage", stage)
	opts := append(connectOptions(stage, logger),
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(c *nats.Conn) {
			logger.Info("Connected to broker", "url", c.ConnectedUrl())
		}),
	)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	if !nc.IsConnected() {
		logger.Warn("Broker unreachable, connecting in the background", "url", url, "wait", config.BrokerReconnectWait)
	}
	return newBroker(nc, stage, logger)
}

// Connect dials url, retrying every config.BrokerReconnectWait until it succeeds or ctx ends.
// Once connected the client reconnects on its own without limit.
func Connect(ctx context.Context, url string, stage string) (*Broker, error) {
	logger := logger_i.NewLogger("Broker").With("stage", stage)
	opts := connectOptions(stage, logger)

	for {
		nc, err := nats.Connect(url, opts...)
		if err == nil {
			logger.Info("Connected to broker", "url", url)
			return newBroker(nc, stage, logger)
		}

		metrics.CountReconnect(stage)
		logger.Warn("Broker unreachable, retrying", "url", url, "error", err, "wait", config.BrokerReconnectWait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(config.BrokerReconnectWait):
		}
	}
}

// DeclareQueue creates the durable stream backing queue, or leaves an existing one as is.
func (b *Broker) DeclareQueue(ctx context.Context, queue string) error {
	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      queue,
		Subjects:  []string{queue},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	b.declared.Store(queue, struct{}{})
	return nil
}

func (b *Broker) ensureQueue(ctx context.Context, queue string) error {
	if _, ok := b.declared.Load(queue); ok {
		return nil
	}
	return b.DeclareQueue(ctx, queue)
}

// Publish sends payload as JSON and waits for the stream to store it.
// The queue is declared on first use, and declared again once if its stream has gone away.
func (b *Broker) Publish(ctx context.Context, queue string, payload any) error {
	if !b.Connected() {
		return fmt.Errorf("publish to %s: %w", queue, ErrBrokerUnavailable)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", queue, err)
	}
	msg := &nats.Msg{
		Subject: queue,
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(msg.Header))

	if err := b.ensureQueue(ctx, queue); err != nil {
		return err
	}
	err = b.publishMsg(ctx, msg)
	if errors.Is(err, jetstream.ErrNoStreamResponse) {
		b.logger.Warn("Stream missing, declaring it again", "queue", queue)
		b.declared.Delete(queue)
		if err := b.DeclareQueue(ctx, queue); err != nil {
			return err
		}
		err = b.publishMsg(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

func (b *Broker) publishMsg(ctx context.Context, msg *nats.Msg) error {
	ctx, cancel := context.WithTimeout(ctx, config.BrokerPublishWait)
	defer cancel()
	_, err := b.js.PublishMsg(ctx, msg)
	return err
}

// Consumer attaches a durable pull consumer to queue that holds at most one unacked message.
func (b *Broker) Consumer(ctx context.Context, queue string, durable string) (*Consumer, error) {
	if err := b.DeclareQueue(ctx, queue); err != nil {
		return nil, err
	}
	cons, err := b.js.CreateOrUpdateConsumer(ctx, queue, jetstream.ConsumerConfig{
		Durable:       durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxAckPending: 1,
		AckWait:       config.BrokerAckWait,
	})
	if err != nil {
		return nil, fmt.Errorf("consumer %s on %s: %w", durable, queue, err)
	}
	b.logger.Info("Consuming", "queue", queue, "durable", durable)
	return &Consumer{cons: cons, queue: queue, fetchWait: config.BrokerFetchWait}, nil
}

func (b *Broker) Connected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

func (b *Broker) Close() {
	if b.nc == nil {
		return
	}
	if !b.nc.IsConnected() {
		b.nc.Close()
		b.logger.Info("Broker connection closed")
		return
	}
	if err := b.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		b.logger.Warn("Broker drain failed", "error", err)
		b.nc.Close()
	}
	b.logger.Info("Broker connection closed")
}
