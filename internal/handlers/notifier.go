package handlers

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/cheatlog/internal/bot"
	"github.com/iamwavecut/cheatlog/internal/db"
	"github.com/iamwavecut/cheatlog/internal/event"
	"github.com/iamwavecut/cheatlog/internal/observability"
)

// Notifier posts accepted reports and verifications to the channel of every
// registered server. Delivery failures are logged per channel.
type Notifier struct {
	bot         bot.BotAPI
	settings    db.SettingsStore
	lang        string
	concurrency int
	timeout     time.Duration
	metrics     *observability.Metrics
}

func NewNotifier(b bot.BotAPI, settings db.SettingsStore, lang string, concurrency int, metrics *observability.Metrics) *Notifier {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Notifier{
		bot:         b,
		settings:    settings,
		lang:        lang,
		concurrency: concurrency,
		timeout:     30 * time.Second,
		metrics:     metrics,
	}
}

// Subscribe attaches the notifier to the event types it renders.
func (n *Notifier) Subscribe(w *event.Worker) {
	w.Subscribe(event.TypeReportFiled, n.Handle)
	w.Subscribe(event.TypeTargetVerified, n.Handle)
}

func (n *Notifier) Handle(e event.Queueable) {
	var (
		text          string
		correlationID string
	)
	switch ev := e.(type) {
	case *event.ReportFiled:
		text, correlationID = renderReportFiled(ev, n.lang), ev.CorrelationID
	case *event.TargetVerified:
		if !ev.First {
			// repeat verifications stay in the issuing chat
			e.Process()
			return
		}
		text, correlationID = renderTargetVerified(ev, n.lang), ev.CorrelationID
	default:
		return
	}
	entry := n.getLogEntry().WithFields(log.Fields{"type": e.Type(), "correlation_id": correlationID})

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	sent, failed, err := n.broadcast(ctx, text, entry)
	if err != nil {
		// settings unreadable; leave the event for the next pass
		entry.WithError(err).Warn("cant list server settings")
		return
	}
	entry.WithFields(log.Fields{"sent": sent, "failed": failed}).Debug("notification fan-out done")
	e.Process()
}

func (n *Notifier) broadcast(ctx context.Context, text string, entry *log.Entry) (int, int, error) {
	all, err := n.settings.ListServerSettings(ctx)
	if err != nil {
		return 0, 0, err
	}

	results := make([]error, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for i, s := range all {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = err
				return nil
			}
			if _, err := n.bot.Send(api.NewMessage(s.ChannelID, text)); err != nil {
				results[i] = err
				entry.WithError(err).WithFields(log.Fields{
					"server_id":  s.ServerID,
					"channel_id": s.ChannelID,
				}).Warn("cant deliver notification")
			}
			return nil
		})
	}
	_ = g.Wait()

	sent, failed := 0, 0
	for _, err := range results {
		if err != nil {
			failed++
			n.metrics.RecordNotification("failed")
			continue
		}
		sent++
		n.metrics.RecordNotification("sent")
	}
	return sent, failed, nil
}

func (n *Notifier) getLogEntry() *log.Entry {
	return log.WithField("context", "notifier")
}
