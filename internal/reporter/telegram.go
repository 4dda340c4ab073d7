package reporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

// sender is the slice of tgbotapi.BotAPI the reporter uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram pushes a one-message run summary to a chat.
type Telegram struct {
	bot    sender
	chatID int64
	logger *zap.Logger
}

// NewTelegram authenticates the bot token.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return NewTelegramWithBot(bot, chatID, logger), nil
}

// NewTelegramWithBot wraps an existing bot; used by tests.
func NewTelegramWithBot(bot sender, chatID int64, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}
}

// Report sends the summary message. The context is not honored by the bot
// client; the scheduler's report timeout still bounds the overall call via
// the HTTP client inside tgbotapi.
func (t *Telegram) Report(_ context.Context, report extractor.Report) error {
	msg := tgbotapi.NewMessage(t.chatID, formatSummary(report))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.logger.Debug("telegram summary delivered", zap.String("run_id", report.RunID))
	return nil
}

func formatSummary(report extractor.Report) string {
	snap := report.Snapshot
	var b strings.Builder
	if report.Failed {
		b.WriteString("❌ Extraction run failed\n")
	} else {
		b.WriteString("✅ Extraction run complete\n")
	}
	fmt.Fprintf(&b, "Run: %s\n", report.RunID)
	fmt.Fprintf(&b, "Duration: %s\n", snap.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Posts seen: %d\n", snap.Seen)
	fmt.Fprintf(&b, "Contacts extracted: %d\n", snap.Extracted)
	fmt.Fprintf(&b, "Skipped: %d, failures: %d\n", snap.SkippedTotal(), snap.FailedTotal())
	if report.Err != "" {
		fmt.Fprintf(&b, "Error: %s\n", report.Err)
	}
	return b.String()
}
