// Package telegram is the bot's only chat surface. It long-polls the
// Telegram API, downloads media, answers bot commands locally and hands
// everything else to the assistant over the message bus.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"github.com/daniltm/prodbot/internal/bus"
	"github.com/daniltm/prodbot/internal/notion"
	"github.com/daniltm/prodbot/internal/store/file"
)

const (
	// maxMessageChars keeps replies under Telegram's 4096 limit with some
	// slack for the continuation marker.
	maxMessageChars = 4000

	dedupeTTL     = 20 * time.Minute
	dedupeMaxSize = 5000
)

// NotionVerifier validates credentials and database shapes before a
// connection row is saved.
type NotionVerifier interface {
	ValidateToken(ctx context.Context) error
	ValidateTaskDatabase(ctx context.Context, databaseID string) error
	ValidateThoughtsDatabase(ctx context.Context, databaseID string) error
	ValidateSphereDatabase(ctx context.Context, databaseID string) error
}

// Channel connects one Telegram bot to the message bus.
type Channel struct {
	bot     *telego.Bot
	bus     *bus.MessageBus
	store   *file.Store
	limiter *rate.Limiter
	dedupe  *bus.DedupeCache

	// newVerifier builds a Notion client for a user-supplied token.
	// Swappable in tests.
	newVerifier func(token string) NotionVerifier
}

// New creates the channel. The limiter paces all outbound sends; Telegram
// allows roughly 30 messages per second bot-wide.
func New(token string, mb *bus.MessageBus, store *file.Store) (*Channel, error) {
	bot, err := telego.NewBot(token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Channel{
		bot:     bot,
		bus:     mb,
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		dedupe:  bus.NewDedupeCache(dedupeTTL, dedupeMaxSize),
		newVerifier: func(token string) NotionVerifier {
			return notion.NewClient(token)
		},
	}, nil
}

// Run starts long polling and the outbound send loop, and blocks until ctx
// is cancelled or the update stream closes.
func (c *Channel) Run(ctx context.Context) error {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}
	slog.Info("telegram channel started")

	go c.sendLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.handleUpdate(ctx, update)
		}
	}
}

func (c *Channel) handleUpdate(ctx context.Context, update telego.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if c.dedupe.IsDuplicate(fmt.Sprintf("%d:%d", msg.Chat.ID, msg.MessageID)) {
		slog.Debug("duplicate update dropped", "chat_id", msg.Chat.ID, "message_id", msg.MessageID)
		return
	}

	username := msg.From.Username
	if username == "" {
		username = msg.From.FirstName
	}

	inbound := bus.InboundMessage{
		ChatID:     msg.Chat.ID,
		UserID:     msg.From.ID,
		Username:   username,
		ReceivedAt: time.Now(),
	}

	switch {
	case msg.Voice != nil:
		data, err := c.downloadFile(ctx, msg.Voice.FileID)
		if err != nil {
			slog.Warn("voice download failed", "chat_id", msg.Chat.ID, "error", err)
			c.reply(msg.Chat.ID, "Sorry, I couldn't download your voice message. Please try again.")
			return
		}
		inbound.Kind = bus.KindVoice
		inbound.Voice = data
		inbound.VoiceName = msg.Voice.FileID + ".ogg"

	case len(msg.Photo) > 0:
		// Telegram orders photo sizes ascending; the last one is the largest.
		data, err := c.downloadFile(ctx, msg.Photo[len(msg.Photo)-1].FileID)
		if err != nil {
			slog.Warn("photo download failed", "chat_id", msg.Chat.ID, "error", err)
			c.reply(msg.Chat.ID, "Sorry, I couldn't download your photo. Please try again.")
			return
		}
		inbound.Kind = bus.KindPhoto
		inbound.Photo = data
		inbound.Text = msg.Caption

	case msg.Text != "":
		if c.handleBotCommand(ctx, msg) {
			return
		}
		inbound.Kind = bus.KindText
		inbound.Text = msg.Text

	default:
		return
	}

	c.bus.PublishInbound(inbound)
}

func (c *Channel) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	f, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}
	data, err := tu.DownloadFile(c.bot.FileDownloadURL(f.FilePath))
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	return data, nil
}

// sendLoop drains outbound replies, pacing and chunking each one.
func (c *Channel) sendLoop(ctx context.Context) {
	for {
		out, ok := c.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}
		for i, chunk := range ChunkMessage(out.Text, maxMessageChars) {
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			if i > 0 {
				chunk = "(continued...)\n" + chunk
			}
			if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(out.ChatID), chunk)); err != nil {
				slog.Warn("send failed", "chat_id", out.ChatID, "error", err)
			}
		}
	}
}

// reply queues a reply through the bus so it shares the send limiter.
func (c *Channel) reply(chatID int64, text string) {
	c.bus.PublishOutbound(bus.OutboundMessage{ChatID: chatID, Text: text})
}
