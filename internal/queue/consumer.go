package queue

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
)

// ErrNoDelivery is returned by Next when nothing arrived within the fetch window.
var ErrNoDelivery = errors.New("no message available")

// Delivery is one received message. Exactly one of Ack or Reject must be called.
type Delivery interface {
	Body() []byte
	Context() context.Context
	Ack() error
	// Reject drops the message without redelivery.
	Reject() error
}

// Source yields deliveries one at a time.
type Source interface {
	Next(ctx context.Context) (Delivery, error)
	Queue() string
}

type Consumer struct {
	cons      jetstream.Consumer
	queue     string
	fetchWait time.Duration
}

var _ Source = (*Consumer)(nil)

func (c *Consumer) Queue() string { return c.queue }

func (c *Consumer) Next(ctx context.Context) (Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	batch, err := c.cons.Fetch(1, jetstream.FetchMaxWait(c.fetchWait))
	if err != nil {
		return nil, err
	}
	for msg := range batch.Messages() {
		carrier := headerCarrier(msg.Headers())
		mctx := context.Background()
		if carrier != nil {
			mctx = otel.GetTextMapPropagator().Extract(mctx, carrier)
		}
		return &jsDelivery{msg: msg, ctx: mctx}, nil
	}
	if err := batch.Error(); err != nil && !isFetchTimeout(err) {
		return nil, err
	}
	return nil, ErrNoDelivery
}

func isFetchTimeout(err error) bool {
	return errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

type jsDelivery struct {
	msg jetstream.Msg
	ctx context.Context
}

func (d *jsDelivery) Body() []byte             { return d.msg.Data() }
func (d *jsDelivery) Context() context.Context { return d.ctx }
func (d *jsDelivery) Ack() error               { return d.msg.Ack() }
func (d *jsDelivery) Reject() error            { return d.msg.Term() }
