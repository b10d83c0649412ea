package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrQueueFull is returned when the dispatcher cannot accept more messages.
	ErrQueueFull = errors.New("notification queue full")
	// ErrClosed is returned for messages dispatched after Close.
	ErrClosed = errors.New("notification dispatcher closed")
	// ErrTimeout is returned when delivery does not finish within the configured timeout.
	ErrTimeout = errors.New("notification timed out")
)

// Options tunes a Dispatcher.
type Options struct {
	Workers       int
	QueueSize     int
	Timeout       time.Duration
	RatePerSecond float64 // 0 disables throttling
	Burst         int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Workers:   4,
		QueueSize: 1024,
		Timeout:   5 * time.Second,
	}
}

type job struct {
	msg  Message
	done chan error
}

// Dispatcher delivers messages on a pool of workers. Each delivery attempt is bounded by
// Options.Timeout and optionally throttled.
type Dispatcher struct {
	notifier Notifier
	opts     Options
	limiter  *rate.Limiter
	logger   *zap.Logger

	queue  chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a Dispatcher. Call Close to stop its workers.
func NewDispatcher(notifier Notifier, opts Options, logger *zap.Logger) *Dispatcher {
	defaults := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		queue:    make(chan job, opts.QueueSize),
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch queues msg and returns a channel that receives exactly one delivery error (nil on
// success). It never blocks: a full queue resolves the channel with ErrQueueFull immediately.
func (d *Dispatcher) Dispatch(msg Message) <-chan error {
	done := make(chan error, 1)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		done <- ErrClosed
		return done
	}

	select {
	case d.queue <- job{msg: msg, done: done}:
	default:
		done <- ErrQueueFull
	}
	return done
}

// Close stops accepting messages and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		err := d.deliver(j.msg)
		if err != nil {
			d.logger.Warn("notification failed",
				zap.String("template", string(j.msg.Template)),
				zap.String("candidate_id", j.msg.Contact.CandidateID.String()),
				zap.Error(err))
		}
		j.done <- err
	}
}

func (d *Dispatcher) deliver(msg Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
	defer cancel()

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: waiting for rate limiter: %v", ErrTimeout, err)
		}
	}

	// The notifier may ignore ctx, so the timeout is enforced here as well.
	errc := make(chan error, 1)
	go func() {
		errc <- d.notifier.Notify(ctx, msg.Contact, msg.Template, msg.Payload)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w after %s", ErrTimeout, d.opts.Timeout)
	}
}
