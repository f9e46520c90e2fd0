package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/cheatlog/internal/db"
)

// BotAPI is the part of *api.BotAPI the handlers talk to.
type BotAPI interface {
	Send(c api.Chattable) (api.Message, error)
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
}

// UpdatesSource is the long-polling part of *api.BotAPI.
type UpdatesSource interface {
	GetUpdates(config api.UpdateConfig) ([]api.Update, error)
}

// ServiceBot defines bot-specific operations
type ServiceBot interface {
	GetBot() BotAPI
}

// ServiceDB defines database-specific operations
type ServiceDB interface {
	GetDB() db.Client
}

// Service defines the core bot service interface
type Service interface {
	ServiceBot
	ServiceDB
	GetLanguage(ctx context.Context, chatID int64, user *api.User) string
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
