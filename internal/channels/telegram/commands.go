package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/daniltm/prodbot/internal/store/file"
)

// handleBotCommand answers known bot commands. Returns true when the message
// was consumed as a command; unknown /-commands are consumed too, with a
// hint, so they never reach the task pipeline.
func (c *Channel) handleBotCommand(ctx context.Context, msg *telego.Message) bool {
	text := msg.Text
	if len(text) == 0 || text[0] != '/' {
		return false
	}

	args := strings.Fields(text)
	cmd := strings.ToLower(strings.SplitN(args[0], "@", 2)[0])
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch cmd {
	case "/start":
		username := msg.From.Username
		if username == "" {
			username = msg.From.FirstName
		}
		if err := c.store.UpsertUser(userID, username); err != nil {
			slog.Warn("upsert user failed", "user_id", userID, "error", err)
		}
		c.reply(chatID, c.buildDashboard(userID, username))

	case "/help":
		c.reply(chatID, helpText)

	case "/connect_notion":
		c.connectToken(ctx, chatID, userID, args)

	case "/connect_notion_table":
		c.connectDatabase(ctx, chatID, userID, args, file.ConnTaskDB)

	case "/connect_notion_thoughts_db":
		c.connectDatabase(ctx, chatID, userID, args, file.ConnThoughtsDB)

	case "/connect_notion_category_table":
		c.connectCategoryTable(ctx, chatID, userID, args)

	default:
		c.reply(chatID, "Unknown command. Use /help to see what I understand.")
	}
	return true
}

const helpText = "Available commands:\n" +
	"• /start - Show your dashboard\n" +
	"• /help - Show this help message\n" +
	"• /connect_notion [token] - Connect Notion account\n" +
	"• /connect_notion_table [database_id] - Connect main task table\n" +
	"• /connect_notion_thoughts_db [database_id] - Connect thoughts table\n" +
	"• /connect_notion_category_table [1] [database_id] - Connect category table\n" +
	"\nSend a timed journal to create tasks, a voice note to transcribe one,\n" +
	"a message starting with \"мысли\" to save thoughts, or a photo with a\n" +
	"highlighted phrase to build your vocabulary."

func (c *Channel) buildDashboard(userID int64, username string) string {
	connected := func(connType string) string {
		v, err := c.store.Connection(userID, connType)
		if err != nil || v == "" {
			return "❌ Not connected"
		}
		return "✅ Connected"
	}
	countTracks := func(trackType string) int {
		tracks, err := c.store.TracksFor(userID, trackType)
		if err != nil {
			return 0
		}
		return len(tracks)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👋 Hello, %s!\n\n", username)
	b.WriteString("🔗 Notion Integration:\n")
	fmt.Fprintf(&b, "• Token: %s\n", connected(file.ConnToken))
	fmt.Fprintf(&b, "• Main Table: %s\n", connected(file.ConnTaskDB))
	fmt.Fprintf(&b, "• Thoughts Table: %s\n", connected(file.ConnThoughtsDB))
	fmt.Fprintf(&b, "• Category Table: %s\n\n", connected(file.ConnSphereDB))
	b.WriteString("🎵 Your Tracks:\n")
	fmt.Fprintf(&b, "• Pomodoro: %d tracks\n", countTracks("pomodoro"))
	fmt.Fprintf(&b, "• Sleep: %d tracks\n\n", countTracks("sleep"))
	b.WriteString("📋 ")
	b.WriteString(helpText)
	return b.String()
}

func (c *Channel) connectToken(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) != 2 {
		c.reply(chatID, "❌ Invalid format. Please use:\n/connect_notion [your_notion_token]")
		return
	}
	token := args[1]

	if err := c.newVerifier(token).ValidateToken(ctx); err != nil {
		slog.Warn("notion token validation failed", "user_id", userID, "error", err)
		c.reply(chatID, "❌ Invalid Notion token. Please check and try again.")
		return
	}
	if err := c.store.SaveConnection(userID, file.ConnToken, token); err != nil {
		slog.Error("save notion token failed", "user_id", userID, "error", err)
		c.reply(chatID, "❌ Failed to save Notion token. Please try again.")
		return
	}
	c.reply(chatID, "✅ Notion token successfully connected!")
}

func (c *Channel) connectDatabase(ctx context.Context, chatID, userID int64, args []string, connType string) {
	if len(args) != 2 {
		c.reply(chatID, fmt.Sprintf("❌ Invalid format. Please use:\n%s [database_id]", args[0]))
		return
	}
	databaseID := args[1]

	token, err := c.store.Connection(userID, file.ConnToken)
	if err != nil || token == "" {
		c.reply(chatID, "❌ Please connect your Notion token first using /connect_notion")
		return
	}

	verifier := c.newVerifier(token)
	switch connType {
	case file.ConnTaskDB:
		if err := verifier.ValidateTaskDatabase(ctx, databaseID); err != nil {
			slog.Warn("task database validation failed", "user_id", userID, "error", err)
			c.reply(chatID, "❌ Invalid database or missing required properties.\n"+
				"Required properties: Name, Sphere, Start Date, End Date, type, Project, ChatGPT_comment")
			return
		}
	case file.ConnThoughtsDB:
		if err := verifier.ValidateThoughtsDatabase(ctx, databaseID); err != nil {
			slog.Warn("thoughts database validation failed", "user_id", userID, "error", err)
			c.reply(chatID, "❌ Invalid database or missing required properties.\n"+
				"Required properties: Name, Date, Status")
			return
		}
	}

	if err := c.store.SaveConnection(userID, connType, databaseID); err != nil {
		slog.Error("save database connection failed", "user_id", userID, "error", err)
		c.reply(chatID, "❌ Failed to save database ID. Please try again.")
		return
	}
	c.reply(chatID, "✅ Notion database successfully connected!")
}

func (c *Channel) connectCategoryTable(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) != 3 {
		c.reply(chatID, "❌ Invalid format. Please use:\n/connect_notion_category_table [1] [database_id]")
		return
	}
	if args[1] != "1" {
		c.reply(chatID, "❌ Only category 1 is supported at the moment.")
		return
	}
	databaseID := args[2]

	token, err := c.store.Connection(userID, file.ConnToken)
	if err != nil || token == "" {
		c.reply(chatID, "❌ Please connect your Notion token first using /connect_notion")
		return
	}
	if err := c.newVerifier(token).ValidateSphereDatabase(ctx, databaseID); err != nil {
		slog.Warn("category database validation failed", "user_id", userID, "error", err)
		c.reply(chatID, "❌ Invalid database or missing Description field.")
		return
	}
	if err := c.store.SaveConnection(userID, file.ConnSphereDB, databaseID); err != nil {
		slog.Error("save category connection failed", "user_id", userID, "error", err)
		c.reply(chatID, "❌ Failed to save database ID. Please try again.")
		return
	}
	c.reply(chatID, "✅ Category database successfully connected!")
}
