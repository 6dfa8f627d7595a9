// Пакет notifications предоставляет функциональность для отправки уведомлений членам семьи в Telegram.  Он включает в себя рассылку событий по семье с учетом персональных настроек получателей, прямые уведомления пользователям и ежедневный дайджест открытых задач и покупок.  Все отправки выполняются по принципу "отправил и забыл": сбой доставки одному получателю логируется и не влияет на остальных.
package notifications

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender - минимальная отправка текста пользователю. Абстракция над Telegram транспортом, чтобы рассылку и дайджест можно было тестировать без бота.
type Sender interface {
	Send(chatID int64, text string) error
}

// BotSender отправляет сообщения через Telegram Bot API.
type BotSender struct {
	bot *tgbotapi.BotAPI
}

func NewBotSender(bot *tgbotapi.BotAPI) *BotSender {
	return &BotSender{bot: bot}
}

func (s *BotSender) Send(chatID int64, text string) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// BotNameResolver возвращает имя пользователя через bot.GetChat. При ошибке возвращает пустую строку, вызывающий подставляет заглушку.
func BotNameResolver(bot *tgbotapi.BotAPI) NameResolver {
	return func(userID int64) string {
		chat, err := bot.GetChat(tgbotapi.ChatInfoConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: userID},
		})
		if err != nil {
			slog.Debug("Resolve user name", "user_id", userID, "err", err)
			return ""
		}
		if chat.FirstName != "" {
			return chat.FirstName
		}
		return chat.UserName
	}
}
