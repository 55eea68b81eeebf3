package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runServer(t *testing.T) *natsserver.Server {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	require.NoError(t, err)
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not start")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func connect(t *testing.T) *Broker {
	t.Helper()
	srv := runServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b, err := Connect(ctx, srv.ClientURL(), "test")
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

type payload struct {
	DocId string `json:"doc_id"`
}

func TestBroker_PublishThenConsume(t *testing.T) {
	b := connect(t)
	ctx := context.Background()
	require.NoError(t, b.DeclareQueue(ctx, "raw_test"))

	require.NoError(t, b.Publish(ctx, "raw_test", payload{DocId: "d1"}))
	require.NoError(t, b.Publish(ctx, "raw_test", payload{DocId: "d2"}))

	cons, err := b.Consumer(ctx, "raw_test", "worker")
	require.NoError(t, err)
	assert.Equal(t, "raw_test", cons.Queue())

	for _, want := range []string{"d1", "d2"} {
		d, err := cons.Next(ctx)
		require.NoError(t, err)
		var got payload
		require.NoError(t, json.Unmarshal(d.Body(), &got))
		assert.Equal(t, want, got.DocId)
		require.NoError(t, d.Ack())
	}

	cons.fetchWait = 200 * time.Millisecond
	_, err = cons.Next(ctx)
	assert.True(t, errors.Is(err, ErrNoDelivery), "got %v", err)
}

func TestBroker_RejectIsNotRedelivered(t *testing.T) {
	b := connect(t)
	ctx := context.Background()
	cons, err := b.Consumer(ctx, "reject_test", "worker")
	require.NoError(t, err)
	cons.fetchWait = 300 * time.Millisecond

	require.NoError(t, b.Publish(ctx, "reject_test", payload{DocId: "bad"}))
	d, err := cons.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Reject())

	_, err = cons.Next(ctx)
	assert.True(t, errors.Is(err, ErrNoDelivery), "rejected message came back: %v", err)
}

func TestBroker_OneUnackedAtATime(t *testing.T) {
	b := connect(t)
	ctx := context.Background()
	cons, err := b.Consumer(ctx, "prefetch_test", "worker")
	require.NoError(t, err)
	cons.fetchWait = 300 * time.Millisecond

	require.NoError(t, b.Publish(ctx, "prefetch_test", payload{DocId: "a"}))
	require.NoError(t, b.Publish(ctx, "prefetch_test", payload{DocId: "b"}))

	first, err := cons.Next(ctx)
	require.NoError(t, err)

	_, err = cons.Next(ctx)
	assert.True(t, errors.Is(err, ErrNoDelivery), "second message delivered before the first was acked")

	require.NoError(t, first.Ack())
	second, err := cons.Next(ctx)
	require.NoError(t, err)
	var got payload
	require.NoError(t, json.Unmarshal(second.Body(), &got))
	assert.Equal(t, "b", got.DocId)
	require.NoError(t, second.Ack())
}

func TestConnect_GivesUpWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := Connect(ctx, "nats://127.0.0.1:1", "test")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBroker_PublishRedeclaresMissingStream(t *testing.T) {
	b := connect(t)
	ctx := context.Background()
	require.NoError(t, b.DeclareQueue(ctx, "clean_test"))
	require.NoError(t, b.js.DeleteStream(ctx, "clean_test"))

	require.NoError(t, b.Publish(ctx, "clean_test", payload{DocId: "after-delete"}))

	cons, err := b.Consumer(ctx, "clean_test", "indexer")
	require.NoError(t, err)
	d, err := cons.Next(ctx)
	require.NoError(t, err)
	var got payload
	require.NoError(t, json.Unmarshal(d.Body(), &got))
	assert.Equal(t, "after-delete", got.DocId)
	require.NoError(t, d.Ack())
}

func TestBroker_PublishDeclaresOnFirstUse(t *testing.T) {
	b := connect(t)
	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, "lazy_test", payload{DocId: "d1"}))

	info, err := b.js.Stream(ctx, "lazy_test")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.CachedInfo().State.Msgs)
}

func TestDial_ReturnsWhileBrokerDown(t *testing.T) {
	start := time.Now()
	b, err := Dial("nats://127.0.0.1:1", "test")
	require.NoError(t, err)
	t.Cleanup(b.Close)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, b.Connected())

	err = b.Publish(context.Background(), "raw_test", payload{DocId: "d1"})
	assert.ErrorIs(t, err, ErrBrokerUnavailable)
}

func TestDial_ConnectsWhenBrokerUp(t *testing.T) {
	srv := runServer(t)
	b, err := Dial(srv.ClientURL(), "test")
	require.NoError(t, err)
	t.Cleanup(b.Close)
	require.Eventually(t, b.Connected, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, b.Publish(context.Background(), "dial_test", payload{DocId: "d1"}))
}

func TestHeaderCarrier(t *testing.T) {
	h := nats.Header{}
	c := headerCarrier(h)
	c.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Len(t, c.Keys(), 1)
	assert.Equal(t, "", headerCarrier(nil).Get("missing"))
}
