package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"tokenwatch/internal/config"
	"tokenwatch/internal/labeler"
	"tokenwatch/internal/token"
)

// Alert is the payload handed to the notification transport: everything the
// message needs, already decided upstream.
type Alert struct {
	Snapshot      token.Snapshot
	Tier          token.Tier
	RiskScore     float64
	TaxPercentage float64
	Labels        []labeler.Label
}

// Telegram delivers alerts to a single chat and answers the bot commands.
// Delivery failures are returned to the caller but never retried here; the
// pacer has already spent the send slot and a retry would risk a duplicate.
type Telegram struct {
	Config config.TelegramConfig
	Logger *zap.Logger

	// StatusText renders the /status reply. Wired by main to live pipeline
	// state; nil falls back to a static message.
	StatusText func() string

	bot *bot.Bot
}

func NewTelegram(cfg config.TelegramConfig, logger *zap.Logger) (*Telegram, error) {
	n := &Telegram{Config: cfg, Logger: logger}
	opts := []bot.Option{
		bot.WithDefaultHandler(n.defaultHandler),
		bot.WithMessageTextHandler("/start", bot.MatchTypeExact, n.startHandler),
		bot.WithMessageTextHandler("/help", bot.MatchTypeExact, n.helpHandler),
		bot.WithMessageTextHandler("/status", bot.MatchTypeExact, n.statusHandler),
		bot.WithCallbackQueryDataHandler("copy_", bot.MatchTypePrefix, n.copyHandler),
		bot.WithCallbackQueryDataHandler("dismiss", bot.MatchTypeExact, n.dismissHandler),
	}
	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	n.bot = b
	return n, nil
}

// Start begins long polling and announces the bot in the configured chat.
func (n *Telegram) Start(ctx context.Context) {
	go n.bot.Start(ctx)
	n.sendStartupMessage(ctx)
}

// SendAlert formats and delivers one alert.
func (n *Telegram) SendAlert(ctx context.Context, a Alert) error {
	if n == nil || n.bot == nil {
		return nil
	}
	if n.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Config.Timeout)
		defer cancel()
	}
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             n.Config.ChatID,
		Text:               formatAlertMessage(a),
		ParseMode:          tgmodels.ParseModeHTML,
		ReplyMarkup:        alertKeyboard(a.Snapshot),
		LinkPreviewOptions: &tgmodels.LinkPreviewOptions{IsDisabled: bot.True()},
	})
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	n.logInfo("telegram: alert sent",
		zap.String("token", a.Snapshot.Key()),
		zap.String("tier", string(a.Tier)))
	return nil
}

// SendError notifies the chat about a pipeline failure.
func (n *Telegram) SendError(ctx context.Context, errMsg string) {
	if n == nil || n.bot == nil {
		return
	}
	text := "🚨 <b>Scanner Error</b>\n\n❌ " + html.EscapeString(errMsg) + "\n\nCheck the logs for details."
	if _, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.Config.ChatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	}); err != nil {
		n.logWarn("telegram: error message failed", zap.Error(err))
	}
}

func (n *Telegram) sendStartupMessage(ctx context.Context) {
	text := strings.TrimSpace(`
🚀 <b>Token Scanner Started</b>

✅ Online and monitoring
🔍 Scanning Solana, BSC and Ethereum
📊 Watching for early-stage tokens

Alerts will arrive in this chat as they are found.
`)
	if _, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.Config.ChatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	}); err != nil {
		n.logWarn("telegram: startup message failed", zap.Error(err))
	}
}

func (n *Telegram) defaultHandler(_ context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update == nil || update.Message == nil {
		return
	}
	n.logDebug("telegram: unhandled message", zap.String("text", update.Message.Text))
}

func (n *Telegram) startHandler(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	text := strings.TrimSpace(`
🤖 <b>Token Scanner</b>

This bot watches Solana, BSC and Ethereum for newly listed tokens, filters out rugs and fake volume, and alerts on the rest.

<b>Commands:</b>
/help - what the alerts mean
/status - scanner health
`)
	n.reply(ctx, b, update, text)
}

func (n *Telegram) helpHandler(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	text := strings.TrimSpace(`
🆘 <b>Help</b>

<b>Risk score:</b>
• 🟢 0-40 low
• 🟡 40-70 caution
• 🔴 70+ likely rug

<b>Tiers:</b> ultra_risk, medium_risk, mini_gem, real_gem, premium_gem, ordered by how sustained the price action is.

<b>Buttons:</b> buy links open the chain's DEX, DexTools opens charts, Copy Address shows the contract.

⚠️ Not financial advice. Do your own research.
`)
	n.reply(ctx, b, update, text)
}

func (n *Telegram) statusHandler(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	text := "📊 <b>Scanner Status</b>\n\n🟢 Online and monitoring"
	if n.StatusText != nil {
		text = n.StatusText()
	}
	n.reply(ctx, b, update, text)
}

func (n *Telegram) copyHandler(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.CallbackQuery == nil {
		return
	}
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})
	addr := strings.TrimPrefix(update.CallbackQuery.Data, "copy_")
	msg := update.CallbackQuery.Message.Message
	if msg == nil {
		return
	}
	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      "📋 Token Address:\n<code>" + html.EscapeString(addr) + "</code>\n\n(Tap to copy)",
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		n.logWarn("telegram: edit for copy failed", zap.Error(err))
	}
}

func (n *Telegram) dismissHandler(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.CallbackQuery == nil {
		return
	}
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})
	msg := update.CallbackQuery.Message.Message
	if msg == nil {
		return
	}
	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      "❌ Alert dismissed",
	})
	if err != nil {
		n.logWarn("telegram: edit for dismiss failed", zap.Error(err))
	}
}

func (n *Telegram) reply(ctx context.Context, b *bot.Bot, update *tgmodels.Update, text string) {
	if update == nil || update.Message == nil {
		return
	}
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		n.logWarn("telegram: reply failed", zap.Error(err))
	}
}

func (n *Telegram) logDebug(msg string, fields ...zap.Field) {
	if n.Logger != nil {
		n.Logger.Debug(msg, fields...)
	}
}

func (n *Telegram) logInfo(msg string, fields ...zap.Field) {
	if n.Logger != nil {
		n.Logger.Info(msg, fields...)
	}
}

func (n *Telegram) logWarn(msg string, fields ...zap.Field) {
	if n.Logger != nil {
		n.Logger.Warn(msg, fields...)
	}
}
