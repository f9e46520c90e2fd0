package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/cheatlog/internal/infra"
)

// Poller long-polls updates and feeds them to an UpdateProcessor. A polling
// error restarts the loop after a pause.
type Poller struct {
	source    UpdatesSource
	processor *UpdateProcessor
	timeout   int
	buffer    int
	backoff   time.Duration
	logger    *log.Entry

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(source UpdatesSource, processor *UpdateProcessor) *Poller {
	return &Poller{
		source:    source,
		processor: processor,
		timeout:   60,
		buffer:    100,
		backoff:   time.Second,
		logger:    log.WithField("context", "poller"),
	}
}

func (p *Poller) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	return nil
}

func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
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

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	offset := 0
	for {
		offset = p.poll(ctx, offset)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.backoff):
		}
	}
}

// poll runs one polling session and returns the offset to resume from.
func (p *Poller) poll(ctx context.Context, offset int) int {
	updateConfig := api.NewUpdate(offset)
	updateConfig.Timeout = p.timeout

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	updateChan, errorChan := GetUpdatesChans(sessionCtx, p.source, p.buffer, updateConfig)

	for {
		select {
		case update, ok := <-updateChan:
			if !ok {
				if err := <-errorChan; err != nil && !errors.Is(err, context.Canceled) {
					p.logger.WithError(err).Error("bot api get updates error")
				}
				return offset
			}
			offset = update.UpdateID + 1
			p.process(ctx, &update)
		case <-ctx.Done():
			return offset
		}
	}
}

// process handles one update; a panic is logged and the update dropped.
func (p *Poller) process(ctx context.Context, update *api.Update) {
	infra.GoRecoverable(0, "process_update", func() {
		if err := p.processor.Process(ctx, update); err != nil {
			p.logger.WithError(err).Errorln("cant process update")
		}
	}, func() {
		p.logger.WithField("update_id", update.UpdateID).Warn("update dropped after panic")
	})
}
