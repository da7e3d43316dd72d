package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bookshelf/catalog-api/internal/core/domain"
	"github.com/bookshelf/catalog-api/internal/core/ports"
	"github.com/bookshelf/catalog-api/internal/infrastructure/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes catalog audit events to a fixed set of workers using
// consistent hashing on the book id, so events for one book are recorded in
// the order they were published.
type Dispatcher struct {
	workers []chan domain.BookEvent
	service ports.AuditService
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.BookEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.BookEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. ctx is passed to every Record call;
// workers exit once Close has been called and their channel is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands event to the worker responsible for its book. It never blocks:
// when the worker's buffer is full, or the dispatcher is closed, the event is
// dropped and logged.
func (d *Dispatcher) Enqueue(event domain.BookEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	idx := d.shardIndex(event.BookID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(event, "queue full")
	}
}

// Close stops accepting events and waits for workers to drain what is queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// shardIndex maps a book id deterministically to a worker index.
func (d *Dispatcher) shardIndex(bookID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(bookID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) drop(event domain.BookEvent, reason string) {
	metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
	d.log.Warn().
		Str("book_id", event.BookID).
		Str("action", string(event.Action)).
		Str("reason", reason).
		Msg("audit event dropped")
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.BookEvent) {
	defer d.wg.Done()
	depth := metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id))

	for event := range ch {
		depth.Set(float64(len(ch)))
		if err := d.service.Record(ctx, event); err != nil {
			d.log.Error().Err(err).
				Str("book_id", event.BookID).
				Int("worker_id", id).
				Msg("audit event processing failed")
		}
	}
}
