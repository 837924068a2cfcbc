// Package queue fans audit events out to an external sink on background workers.
package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes audit events to a fixed set of workers, sharded by
// client IP so events from one client keep their order.
type Dispatcher struct {
	workers []chan domain.AuditEvent
	sink    ports.AuditSink
	log     zerolog.Logger
	onDrop  func()
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. onDrop, when set, is called for
// every event discarded because its worker is saturated.
func NewDispatcher(numWorkers int, sink ports.AuditSink, log zerolog.Logger, onDrop func()) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuditEvent, numWorkers),
		sink:    sink,
		log:     log.With().Str("component", "audit_dispatcher").Logger(),
		onDrop:  onDrop,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain and stop when ctx is
// cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Publish hands event to its worker without blocking. The event is dropped
// when that worker's buffer is full.
func (d *Dispatcher) Publish(event domain.AuditEvent) {
	select {
	case d.workers[d.shardIndex(event.IP)] <- event:
	default:
		if d.onDrop != nil {
			d.onDrop()
		}
		d.log.Warn().Str("type", string(event.Type)).Str("ip", event.IP).Msg("audit buffer full, event dropped")
	}
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case event := <-ch:
			d.deliver(ctx, id, event)
		}
	}
}

// drain delivers whatever is still buffered after shutdown was requested.
func (d *Dispatcher) drain(id int, ch <-chan domain.AuditEvent) {
	ctx := context.Background()
	for {
		select {
		case event := <-ch:
			d.deliver(ctx, id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, event domain.AuditEvent) {
	if err := d.sink.Deliver(ctx, event); err != nil {
		d.log.Error().Err(err).
			Str("type", string(event.Type)).
			Int("worker_id", id).
			Msg("audit delivery failed")
	}
}
