package pubsub

import "context"

// Handler receives one inbound message. Implementations must be
// non-blocking (spec §4.3): enqueue and return, never do I/O inline.
type Handler func(topic string, payload []byte)

// Adapter is the sole place that knows the wire-format and the
// wildcard scheme of the underlying bus (spec §4.3). Publish failures
// are logged by the implementation, never fatal; Subscribe delivers
// each inbound message to exactly one handler.
type Adapter interface {
	Start(ctx context.Context) error
	Stop() error
	Publish(topic string, payload []byte, qos byte, retain bool) error
	Subscribe(pattern string, qos byte, handler Handler) error
}
