// Package alerts pushes moderation notifications to the admin Telegram
// chat.
package alerts

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

// TelegramNotifier sends report alerts to a fixed admin chat. A nil
// notifier is valid and drops everything.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram alerts enabled")
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// ReportFiled notifies the admins about a new report. Best-effort.
func (n *TelegramNotifier) ReportFiled(report *models.Report) {
	if n == nil {
		return
	}
	text := fmt.Sprintf(
		"New report\nCategory: %s\nReported: %s\nReporter: %s\nSession: %s\n%s",
		report.Category, report.ReportedUserID, reporterLabel(report.ReporterID),
		report.SessionID, report.Comment,
	)
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		log.Warn().Err(err).Msg("failed to send report alert")
	}
}

func reporterLabel(id string) string {
	if id == "" {
		return "guest"
	}
	return id
}
