package event

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var l = log.WithField("context", "event_worker")

// Worker drains a Bus and hands each event to the subscribers of its type.
// An event nobody has processed yet goes back on the queue until it expires.
type Worker struct {
	bus          *Bus
	pollInterval time.Duration

	mu            sync.RWMutex
	subscriptions map[string][]func(event Queueable)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(bus *Bus) *Worker {
	return &Worker{
		bus:           bus,
		pollInterval:  10 * time.Millisecond,
		subscriptions: map[string][]func(event Queueable){},
	}
}

func (w *Worker) Subscribe(eventType string, fn func(event Queueable)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscriptions[eventType] = append(w.subscriptions[eventType], fn)
}

func (w *Worker) Start(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	l.Trace("events runner go")

	profileTicker := time.NewTicker(5 * time.Minute)
	defer profileTicker.Stop()
	idle := time.NewTimer(w.pollInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info("shutting down event worker by cancelled context")
			return
		case <-profileTicker.C:
			if qlen := w.bus.Len(); qlen > 0 {
				l.Debugf("unprocessed queue length: %d", qlen)
			}
		case event := <-w.bus.q:
			if w.dispatch(event) {
				// nobody took it yet, back off before the next pass
				idle.Reset(w.pollInterval)
				select {
				case <-ctx.Done():
					l.Info("shutting down event worker by cancelled context")
					return
				case <-idle.C:
				}
			}
		}
	}
}

// dispatch returns true when the event was requeued.
func (w *Worker) dispatch(event Queueable) bool {
	if event.Expired() {
		l.WithField("type", event.Type()).Debug("skip expired event")
		return false
	}

	w.mu.RLock()
	subscribers := w.subscriptions[event.Type()]
	w.mu.RUnlock()

	for _, sub := range subscribers {
		w.call(sub, event)
		if event.IsDropped() {
			return false
		}
	}
	if event.IsProcessed() {
		return false
	}
	return w.bus.Enqueue(event)
}

func (w *Worker) call(sub func(Queueable), event Queueable) {
	defer func() {
		if r := recover(); r != nil {
			l.WithField("type", event.Type()).Errorf("subscriber panic: %v", r)
			event.Drop()
		}
	}()
	sub(event)
}
