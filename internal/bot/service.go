package bot

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/cheatlog/internal/db"
	"github.com/iamwavecut/cheatlog/internal/policy/permissions"
)

type service struct {
	bot      BotAPI
	db       db.Client
	language string
	logger   *log.Entry
}

func NewService(bot BotAPI, db db.Client, language string, logger *log.Entry) *service {
	if language == "" {
		language = "en"
	}
	if logger == nil {
		logger = log.WithField("context", "bot_service")
	}
	return &service{
		bot:      bot,
		db:       db,
		language: language,
		logger:   logger,
	}
}

func (s *service) GetBot() BotAPI {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

// GetLanguage returns the configured language. Chats carry no language of
// their own.
func (s *service) GetLanguage(_ context.Context, _ int64, _ *api.User) string {
	return s.language
}

func (s *service) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	member, err := s.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			UserID: userID,
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	return permissions.CanManageLedger(&member), nil
}
