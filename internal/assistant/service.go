// Package assistant owns the per-message flow: it consumes the bus, runs
// the extraction pipeline and fans results out to the CSV store and, when
// connected, the user's Notion workspace.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/daniltm/prodbot/internal/bus"
	"github.com/daniltm/prodbot/internal/notion"
	"github.com/daniltm/prodbot/internal/pipeline"
	"github.com/daniltm/prodbot/internal/store/file"
	"github.com/daniltm/prodbot/internal/vocab"
)

// thoughtModeSentinel switches a text message into the thought flow when it
// is the first non-empty line, case-insensitively.
const thoughtModeSentinel = "мысли"

// explainSentinel asks for a Russian explanation of the last vocab entry.
const explainSentinel = "не понял"

// Notion is the slice of the workspace client the assistant needs.
type Notion interface {
	ListSphereOptions(ctx context.Context, databaseID string) ([]pipeline.SphereOption, error)
	CreateTask(ctx context.Context, databaseID string, task pipeline.MergedTask) error
	CreateThought(ctx context.Context, databaseID string, thought pipeline.Thought, rawText string, now time.Time) error
}

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Vocabulary is the language-learning collaborator.
type Vocabulary interface {
	AddFromPhoto(ctx context.Context, userID int64, jpeg []byte) (file.VocabEntry, error)
	AddFromText(ctx context.Context, userID int64, text string) (file.VocabEntry, error)
	ExplainRussian(ctx context.Context, userID int64) (string, error)
}

// Service routes inbound messages to the task, thought and vocabulary flows.
type Service struct {
	bus         *bus.MessageBus
	store       *file.Store
	pipeline    *pipeline.Pipeline
	transcriber Transcriber
	vocab       Vocabulary

	// newNotion builds a workspace client for a user's token. Swappable
	// in tests.
	newNotion func(token string) Notion

	wg sync.WaitGroup
}

func New(mb *bus.MessageBus, store *file.Store, p *pipeline.Pipeline, tr Transcriber, voc Vocabulary) *Service {
	return &Service{
		bus:         mb,
		store:       store,
		pipeline:    p,
		transcriber: tr,
		vocab:       voc,
		newNotion: func(token string) Notion {
			return notion.NewClient(token)
		},
	}
}

// Run consumes the bus until ctx is cancelled. Each message is handled in
// its own goroutine so a slow remote call never blocks the next user.
func (s *Service) Run(ctx context.Context) error {
	slog.Info("assistant service started")
	for {
		msg, ok := s.bus.ConsumeInbound(ctx)
		if !ok {
			s.wg.Wait()
			return ctx.Err()
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, msg)
		}()
	}
}

func (s *Service) handle(ctx context.Context, msg bus.InboundMessage) {
	if err := s.store.UpsertUser(msg.UserID, msg.Username); err != nil {
		slog.Warn("upsert user failed", "user_id", msg.UserID, "error", err)
	}

	switch msg.Kind {
	case bus.KindText:
		s.handleText(ctx, msg)
	case bus.KindVoice:
		s.handleVoice(ctx, msg)
	case bus.KindPhoto:
		s.handlePhoto(ctx, msg)
	}
}

func (s *Service) handleText(ctx context.Context, msg bus.InboundMessage) {
	first, rest, _ := strings.Cut(msg.Text, "\n")
	switch {
	case strings.EqualFold(strings.TrimSpace(first), thoughtModeSentinel):
		s.processThoughts(ctx, msg.ChatID, msg.UserID, strings.TrimSpace(rest))
	case strings.EqualFold(strings.TrimSpace(msg.Text), explainSentinel):
		s.explainLastEntry(ctx, msg.ChatID, msg.UserID)
	case strings.Contains(msg.Text, "|"):
		s.addVocabFromText(ctx, msg.ChatID, msg.UserID, msg.Text)
	default:
		s.processTasks(ctx, msg.ChatID, msg.UserID, msg.Text)
	}
}

func (s *Service) handleVoice(ctx context.Context, msg bus.InboundMessage) {
	text, err := s.transcriber.Transcribe(ctx, msg.Voice, msg.VoiceName)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("transcription failed", "user_id", msg.UserID, "error", err)
		s.reply(msg.ChatID, "Sorry, I couldn't transcribe your voice message. Please try again or send a text message.")
		return
	}
	s.reply(msg.ChatID, "🎤 Transcribed: "+text)
	s.processTasks(ctx, msg.ChatID, msg.UserID, text)
}

func (s *Service) handlePhoto(ctx context.Context, msg bus.InboundMessage) {
	entry, err := s.vocab.AddFromPhoto(ctx, msg.UserID, msg.Photo)
	if err != nil {
		if errors.Is(err, vocab.ErrExtractionFailed) {
			s.reply(msg.ChatID, "Не смог извлечь фразу/контекст. Попробуй ближе кадрировать или добавить текстом.")
			return
		}
		slog.Error("vocab photo flow failed", "user_id", msg.UserID, "error", err)
		s.reply(msg.ChatID, "Ошибка обработки фото. Попробуйте ещё раз.")
		return
	}
	s.reply(msg.ChatID, formatVocabEntry(entry))
}

func (s *Service) addVocabFromText(ctx context.Context, chatID, userID int64, text string) {
	entry, err := s.vocab.AddFromText(ctx, userID, text)
	if err != nil {
		slog.Error("vocab text flow failed", "user_id", userID, "error", err)
		s.reply(chatID, "Пришли фото с выделением или текст формата: phrase | full sentence.")
		return
	}
	s.reply(chatID, formatVocabEntry(entry))
}

func (s *Service) explainLastEntry(ctx context.Context, chatID, userID int64) {
	ru, err := s.vocab.ExplainRussian(ctx, userID)
	if err != nil {
		if errors.Is(err, vocab.ErrNoLastEntry) {
			s.reply(chatID, "Пока нет последнего элемента. Отправь фото/текст с фразой.")
			return
		}
		slog.Error("russian explanation failed", "user_id", userID, "error", err)
		s.reply(chatID, "Не получилось объяснить. Попробуйте ещё раз.")
		return
	}
	s.reply(chatID, ru)
}

func (s *Service) processTasks(ctx context.Context, chatID, userID int64, text string) {
	token, taskDB, sphereDB := s.connections(userID, file.ConnTaskDB)
	now := time.Now().In(s.pipeline.Location())

	var client Notion
	var opts []pipeline.SphereOption
	if token != "" {
		client = s.newNotion(token)
		opts = s.sphereOptions(ctx, client, sphereDB, userID)
	}

	tasks, err := s.pipeline.AnalyzeTasks(ctx, text, now, opts)
	if err != nil {
		slog.Warn("task analysis failed", "user_id", userID, "error", err)
		s.reply(chatID, "Sorry, I couldn't analyze your tasks. Please try again.")
		return
	}

	if err := s.store.AppendTasks(tasks, userID); err != nil {
		slog.Error("append tasks failed", "user_id", userID, "error", err)
		s.reply(chatID, "Sorry, I couldn't save your tasks locally.")
		return
	}
	slog.Info("tasks saved", "user_id", userID, "count", len(tasks))

	if token == "" || taskDB == "" {
		var b strings.Builder
		fmt.Fprintf(&b, "✅ Created %d task(s) successfully! ❌ But not in Notion!\nPlease use:\n", len(tasks))
		b.WriteString("• /connect_notion [token] to connect your Notion account\n")
		b.WriteString("• /connect_notion_table [database_id] to connect your main task database\n")
		b.WriteString("• And then send this message again\n")
		s.appendTaskBlocks(&b, tasks)
		s.reply(chatID, b.String())
		return
	}

	for _, task := range tasks {
		if err := client.CreateTask(ctx, taskDB, task); err != nil {
			slog.Error("notion task create failed", "user_id", userID, "error", err)
			s.reply(chatID, "Tasks saved locally but couldn't be added to Notion.")
			return
		}
	}
	slog.Info("tasks created in notion", "user_id", userID, "count", len(tasks))

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Created %d task(s) successfully!\n", len(tasks))
	s.appendTaskBlocks(&b, tasks)
	s.reply(chatID, b.String())
}

func (s *Service) processThoughts(ctx context.Context, chatID, userID int64, text string) {
	token, thoughtsDB, sphereDB := s.connections(userID, file.ConnThoughtsDB)
	now := time.Now().In(s.pipeline.Location())

	var client Notion
	var opts []pipeline.SphereOption
	if token != "" {
		client = s.newNotion(token)
		opts = s.sphereOptions(ctx, client, sphereDB, userID)
	}

	thoughts, err := s.pipeline.AnalyzeThoughts(ctx, text, now, opts)
	if err != nil {
		slog.Warn("thought analysis failed", "user_id", userID, "error", err)
		s.reply(chatID, "Не удалось разобрать мысли 🤔 Попробуйте ещё раз.")
		return
	}

	status := "💡 Мысли сохранены локально. Подключите Notion командами:\n" +
		"• /connect_notion …\n" +
		"• /connect_notion_thoughts_db …"
	if token != "" && thoughtsDB != "" {
		for _, th := range thoughts {
			if err := client.CreateThought(ctx, thoughtsDB, th, text, now); err != nil {
				slog.Error("notion thought create failed", "user_id", userID, "error", err)
				s.reply(chatID, "Мысли сохранены локально, но не попали в Notion.")
				return
			}
		}
		status = "💡 Мысли сохранены в Notion!"
	}
	slog.Info("thoughts processed", "user_id", userID, "count", len(thoughts))

	var b strings.Builder
	b.WriteString(status)
	for i, th := range thoughts {
		sphere := th.SphereText
		if sphere == "" {
			sphere = "Без сферы"
		}
		fmt.Fprintf(&b, "\n\nМысль %d: %s (%s)", i+1, th.Name, sphere)
	}
	s.reply(chatID, b.String())
}

// connections loads the user's token, the database for dbConn and the
// category database in one go.
func (s *Service) connections(userID int64, dbConn string) (token, db, sphereDB string) {
	var err error
	if token, err = s.store.Connection(userID, file.ConnToken); err != nil {
		slog.Warn("load token failed", "user_id", userID, "error", err)
	}
	if db, err = s.store.Connection(userID, dbConn); err != nil {
		slog.Warn("load connection failed", "user_id", userID, "type", dbConn, "error", err)
	}
	if sphereDB, err = s.store.Connection(userID, file.ConnSphereDB); err != nil {
		slog.Warn("load category connection failed", "user_id", userID, "error", err)
	}
	return token, db, sphereDB
}

// sphereOptions fetches the category targets. A fetch failure degrades to
// classification without spheres instead of failing the message.
func (s *Service) sphereOptions(ctx context.Context, client Notion, sphereDB string, userID int64) []pipeline.SphereOption {
	if sphereDB == "" {
		return nil
	}
	opts, err := client.ListSphereOptions(ctx, sphereDB)
	if err != nil {
		slog.Warn("sphere options fetch failed", "user_id", userID, "error", err)
		return nil
	}
	return opts
}

func (s *Service) appendTaskBlocks(b *strings.Builder, tasks []pipeline.MergedTask) {
	loc := s.pipeline.Location()
	for i, task := range tasks {
		fmt.Fprintf(b, "\nTask %d:\n%s", i+1, formatTask(task, loc))
	}
}

func formatTask(task pipeline.MergedTask, loc *time.Location) string {
	project := task.Project
	if project == "" {
		project = "Not specified"
	}
	return fmt.Sprintf(
		"📝 %s\n📅 Start: %s\n⏰ End: %s\n📊 Type: %s\n🎯 Project: %s\n🌐 Sphere: %s\n💡 %s\n",
		task.Name,
		pipeline.FormatLocal(task.StartDatetime, loc),
		pipeline.FormatLocal(task.EndDatetime, loc),
		task.Type,
		project,
		task.SphereText,
		task.ChatGPTComment,
	)
}

func formatVocabEntry(e file.VocabEntry) string {
	return fmt.Sprintf(
		"Phrase: %s\nContext: %s\n\nEN (phrase): %s\nEN (context): %s\n\nНапиши «не понял» — объясню по-русски и сохраню.",
		e.Phrase, e.Context, e.ExplainENPhrase, e.ExplainENContext,
	)
}

func (s *Service) reply(chatID int64, text string) {
	s.bus.PublishOutbound(bus.OutboundMessage{ChatID: chatID, Text: text})
}
