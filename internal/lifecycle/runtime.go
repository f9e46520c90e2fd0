package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type named struct {
	name      string
	component Component
}

// Runtime starts components in registration order and stops the started
// ones in reverse.
type Runtime struct {
	mu         sync.Mutex
	components []named
	started    []named
	logger     *log.Entry
}

func NewRuntime() *Runtime {
	return &Runtime{logger: log.WithField("context", "lifecycle")}
}

func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = append(r.components, named{name: name, component: component})
}

func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.components {
		if err := c.component.Start(ctx); err != nil {
			stopErr := r.stopStarted(ctx)
			return errors.Join(fmt.Errorf("start %s: %w", c.name, err), stopErr)
		}
		r.logger.WithField("component", c.name).Debug("started")
		r.started = append(r.started, c)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopStarted(ctx)
}

func (r *Runtime) stopStarted(ctx context.Context) error {
	var stopErr error
	for i := len(r.started) - 1; i >= 0; i-- {
		c := r.started[i]
		if err := c.component.Stop(ctx); err != nil {
			r.logger.WithField("component", c.name).WithError(err).Warn("stop failed")
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", c.name, err))
			continue
		}
		r.logger.WithField("component", c.name).Debug("stopped")
	}
	r.started = nil
	return stopErr
}

// Run starts every component, blocks until ctx is done and then stops them,
// giving the shutdown at most stopTimeout.
func (r *Runtime) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return r.Stop(stopCtx)
}
