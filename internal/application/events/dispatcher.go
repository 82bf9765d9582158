package events

import (
	"context"
	"sync"
	"time"

	"classifieds-backend/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Config controls the dispatcher's queue and retry policy.
type Config struct {
	Workers         int
	QueueSize       int
	MaxAttempts     int
	Backoff         time.Duration
	HandlerTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 15 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Dispatcher fans published events out to handlers from a bounded in-memory queue.
// A full queue drops the event; the publisher is never blocked.
type Dispatcher struct {
	queue    chan Event
	handlers []Handler
	config   Config

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

var _ Publisher = (*Dispatcher)(nil)

func NewDispatcher(config Config, handlers ...Handler) *Dispatcher {
	config = config.withDefaults()
	return &Dispatcher{
		queue:    make(chan Event, config.QueueSize),
		handlers: handlers,
		config:   config,
		stopCh:   make(chan struct{}),
	}
}

func (d *Dispatcher) Publish(_ context.Context, e Event) {
	select {
	case d.queue <- e:
		metrics.EventsPublished.WithLabelValues(string(e.Kind)).Inc()
	default:
		metrics.EventsDropped.WithLabelValues(string(e.Kind)).Inc()
		log.Error().Str("event_id", e.ID.String()).Str("kind", string(e.Kind)).
			Str("listing_id", e.ListingID.String()).Msg("event queue full, dropping event")
	}
}

// Pending is the number of queued, undelivered events.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Capacity is the queue size.
func (d *Dispatcher) Capacity() int { return cap(d.queue) }

// Start launches the worker goroutines. Call Stop to drain and shut down.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.run(ctx, i+1)
	}
	log.Info().Int("workers", d.config.Workers).Int("queue_size", d.config.QueueSize).Msg("event dispatcher started")
}

// Stop delivers what is already queued, then waits for workers up to ShutdownTimeout.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("event dispatcher stopped")
	case <-time.After(d.config.ShutdownTimeout):
		log.Warn().Int("pending", len(d.queue)).Msg("event dispatcher shutdown timeout exceeded")
	}
}

func (d *Dispatcher) run(ctx context.Context, workerID int) {
	defer d.wg.Done()
	for {
		select {
		case e := <-d.queue:
			d.deliver(ctx, e)
		case <-d.stopCh:
			for {
				select {
				case e := <-d.queue:
					d.deliver(ctx, e)
				default:
					log.Debug().Int("worker_id", workerID).Msg("event worker stopping")
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	for _, h := range d.handlers {
		d.deliverTo(ctx, h, e)
	}
}

func (d *Dispatcher) deliverTo(ctx context.Context, h Handler, e Event) {
	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.HandlerTimeout)
		err := h.Handle(hctx, e)
		cancel()
		if err == nil {
			metrics.EventDelivered(h.Name())
			return
		}
		logger := log.With().Str("handler", h.Name()).Str("kind", string(e.Kind)).
			Str("listing_id", e.ListingID.String()).Int("attempt", attempt).Logger()
		if attempt == d.config.MaxAttempts {
			metrics.EventFailed(h.Name())
			logger.Error().Err(err).Msg("event delivery failed, giving up")
			return
		}
		metrics.EventRetried(h.Name())
		logger.Warn().Err(err).Msg("event delivery failed, retrying")
		time.Sleep(time.Duration(attempt) * d.config.Backoff)
	}
}
