package bot

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	UpdateTimeout = 5 * time.Minute
)

type (
	UpdateProcessor struct {
		updateHandlers []Handler
		now            func() time.Time
	}

	// Registry maps handler names, as used in the HANDLERS setting, to handlers.
	Registry struct {
		handlers map[string]Handler
	}
)

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(title string, handler Handler) {
	r.handlers[title] = handler
}

// Enabled returns the registered handlers named in enabled, in that order.
func (r *Registry) Enabled(enabled []string) []Handler {
	out := make([]Handler, 0, len(enabled))
	for _, handlerName := range enabled {
		handler, ok := r.handlers[handlerName]
		if !ok || handler == nil {
			log.Warnf("no registered handler: %s", handlerName)
			continue
		}
		out = append(out, handler)
	}
	return out
}

func NewUpdateProcessor(handlers ...Handler) *UpdateProcessor {
	return &UpdateProcessor{
		updateHandlers: handlers,
		now:            time.Now,
	}
}

func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	updateTime := up.now()
	switch {
	case u.Message != nil:
		updateTime = time.Unix(int64(u.Message.Date), 0)
	case u.EditedMessage != nil:
		updateTime = time.Unix(int64(u.EditedMessage.Date), 0)
	}

	if age := up.now().Sub(updateTime); age > UpdateTimeout {
		log.WithFields(log.Fields{
			"update_time": updateTime,
			"age":         age,
		}).Debug("Skipping outdated update")
		return nil
	}

	chat := u.FromChat()
	user := u.SentFrom()

	for _, handler := range up.updateHandlers {
		if handler == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

func GetUpdatesChans(ctx context.Context, source UpdatesSource, buffer int, config api.UpdateConfig) (api.UpdatesChannel, chan error) {
	ch := make(chan api.Update, buffer)
	chErr := make(chan error, 1)

	go func() {
		defer close(ch)
		defer close(chErr)
		for {
			select {
			case <-ctx.Done():
				chErr <- ctx.Err()
				return
			default:
			}

			updates, err := source.GetUpdates(config)
			if err != nil {
				chErr <- err
				return
			}

			for _, update := range updates {
				if update.UpdateID < config.Offset {
					continue
				}
				config.Offset = update.UpdateID + 1
				select {
				case ch <- update:
				case <-ctx.Done():
					chErr <- ctx.Err()
					return
				}
			}
		}
	}()

	return ch, chErr
}

func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	userName := user.UserName
	if len(userName) == 0 {
		userName = user.FirstName + " " + user.LastName
		userName = strings.TrimSpace(userName)
	}
	return userName
}
