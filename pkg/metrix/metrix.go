// Package metrix emits application counters and timers to a statsd
// collector. Every metric is prefixed with the application name so
// multiple services can share one collector.
package metrix

import (
	"fmt"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"
)

// Emitter records counters and timers. The zero value of implementations
// must be unusable; use New or NewNoop.
type Emitter interface {
	// Incr increments a counter by one.
	Incr(name string)

	// Timing records an elapsed duration in milliseconds.
	Timing(name string, elapsed time.Duration)

	// Close flushes and releases the underlying connection.
	Close() error
}

// New dials a statsd collector over UDP. Metrics are fire and forget;
// a collector that is down only costs dropped packets, never an error
// on the hot path.
func New(host string, port int, prefix string) (Emitter, error) {
	client, err := statsd.NewClientWithConfig(&statsd.ClientConfig{
		Address: fmt.Sprintf("%s:%d", host, port),
		Prefix:  prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("metrix: dial statsd: %w", err)
	}
	return &emitter{client: client}, nil
}

type emitter struct {
	client statsd.Statter
}

func (e *emitter) Incr(name string) {
	_ = e.client.Inc(name, 1, 1.0)
}

func (e *emitter) Timing(name string, elapsed time.Duration) {
	_ = e.client.TimingDuration(name, elapsed, 1.0)
}

func (e *emitter) Close() error {
	return e.client.Close()
}

// NewNoop returns an Emitter that discards everything. Used in tests and
// when the collector address fails to resolve at startup.
func NewNoop() Emitter {
	return noopEmitter{}
}

type noopEmitter struct{}

func (noopEmitter) Incr(string)                  {}
func (noopEmitter) Timing(string, time.Duration) {}
func (noopEmitter) Close() error                 { return nil }
