package queue

import "github.com/nats-io/nats.go"

// headerCarrier adapts nats headers for the OTel TextMapCarrier.
type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c headerCarrier) Set(key, val string) {
	nats.Header(c).Set(key, val)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
