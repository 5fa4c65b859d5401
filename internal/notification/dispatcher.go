package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)

// DispatcherOptions sizes the outbound queue and its workers
type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// Dispatcher is an in-process outbox: producers publish intents without blocking and
// background workers render and deliver them. Delivery failures are logged, never retried.
type Dispatcher struct {
	sender   Sender
	renderer *Renderer
	log      *logrus.Logger
	opts     DispatcherOptions

	queue chan Intent
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher; call Start to begin delivering
func NewDispatcher(sender Sender, renderer *Renderer, log *logrus.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	return &Dispatcher{
		sender:   sender,
		renderer: renderer,
		log:      log,
		opts:     opts,
		queue:    make(chan Intent, opts.QueueSize),
	}
}

// Publish enqueues an intent. It never blocks: a full queue is reported as ErrQueueFull.
func (d *Dispatcher) Publish(intent Intent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- intent:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the workers. The returned function stops accepting intents, drains
// what is already queued and waits for the workers to exit.
func (d *Dispatcher) Start(ctx context.Context) func() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
	d.log.WithField("workers", d.opts.Workers).Info("Notification dispatcher started")

	return func() {
		d.mu.Lock()
		if !d.closed {
			d.closed = true
			close(d.queue)
		}
		d.mu.Unlock()

		d.wg.Wait()
		d.log.Info("Notification dispatcher stopped")
	}
}

func (d *Dispatcher) work(ctx context.Context, worker int) {
	defer d.wg.Done()
	for intent := range d.queue {
		d.deliver(context.WithoutCancel(ctx), worker, intent)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, intent Intent) {
	entry := d.log.WithFields(logrus.Fields{
		"intent_id":   intent.ID.String(),
		"template":    intent.Template,
		"destination": intent.Destination,
		"worker":      worker,
	})

	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("Notification delivery panicked")
		}
	}()

	msg, err := d.renderer.Render(intent)
	if err != nil {
		entry.Errorf("Failed to render notification: %v", err)
		return
	}

	if err := Deliver(ctx, d.sender, d.opts.SendTimeout, intent.Destination, msg); err != nil {
		entry.Warnf("Notification delivery failed: %v", err)
		return
	}
	entry.Debug("Notification delivered")
}
