// Package vocab implements the vocabulary flow: a photographed page with a
// hand-highlighted word or phrase becomes a stored entry with English
// explanations, and a follow-up "не понял" message adds a Russian one.
package vocab

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/daniltm/prodbot/internal/cache"
	"github.com/daniltm/prodbot/internal/store/file"
)

const defaultModel = "gpt-4.1-mini"

// maxRememberedUsers bounds the last-entry cache, not the stored history.
const maxRememberedUsers = 1024

// ErrNoLastEntry means the user asked for a Russian explanation before
// adding anything this process lifetime.
var ErrNoLastEntry = errors.New("no recent vocabulary entry")

// ErrExtractionFailed means the model could not find a highlighted phrase
// and its sentence in the photo.
var ErrExtractionFailed = errors.New("could not extract phrase and context")

// Service runs the vocabulary flow against the vision/chat model and the
// file store. The last entry per user lives in an explicit in-process
// cache with a lifetime of "until restart"; full history is in vocab.csv.
type Service struct {
	api   openai.Client
	model string
	store *file.Store
	last  *cache.LastItem[int64, file.VocabEntry]
}

// New creates the vocabulary service.
func New(apiKey, model string, store *file.Store) (*Service, error) {
	if model == "" {
		model = defaultModel
	}
	last, err := cache.NewLastItem[int64, file.VocabEntry](maxRememberedUsers)
	if err != nil {
		return nil, fmt.Errorf("create last-entry cache: %w", err)
	}
	return &Service{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: model,
		store: store,
		last:  last,
	}, nil
}

type extraction struct {
	Phrase  string `json:"phrase"`
	Context string `json:"context"`
}

const extractPrompt = "You are an OCR+linguistics assistant. " +
	"Given the photo of English text with a hand-highlighted word/phrase, " +
	"1) extract the EXACT highlighted word/phrase as `phrase` " +
	"2) extract the full sentence that contains it as `context`.\n" +
	"Return STRICT JSON with keys: phrase, context. No extra text."

// AddFromPhoto extracts the highlighted phrase from a photo, explains it in
// English, persists the entry and remembers it as the user's last one.
func (s *Service) AddFromPhoto(ctx context.Context, userID int64, jpeg []byte) (file.VocabEntry, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(extractPrompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}
	resp, err := s.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Be concise. Answer in JSON."),
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return file.VocabEntry{}, fmt.Errorf("image extraction: %w", err)
	}

	var ex extraction
	raw := stripFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		return file.VocabEntry{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	ex.Phrase = strings.TrimSpace(ex.Phrase)
	ex.Context = strings.TrimSpace(ex.Context)
	if ex.Phrase == "" || ex.Context == "" {
		return file.VocabEntry{}, ErrExtractionFailed
	}

	return s.addEntry(ctx, userID, ex.Phrase, ex.Context)
}

// AddFromText handles "phrase | full sentence" input and, as a fallback, a
// sentence with the phrase in quotes.
func (s *Service) AddFromText(ctx context.Context, userID int64, text string) (file.VocabEntry, error) {
	phrase, context := ParseTextEntry(text)
	if context == "" {
		return file.VocabEntry{}, ErrExtractionFailed
	}
	if phrase == "" {
		phrase = "—"
	}
	return s.addEntry(ctx, userID, phrase, context)
}

func (s *Service) addEntry(ctx context.Context, userID int64, phrase, sentence string) (file.VocabEntry, error) {
	expPhrase, expContext, err := s.explainEnglish(ctx, phrase, sentence)
	if err != nil {
		return file.VocabEntry{}, err
	}

	entry, err := s.store.AppendVocab(file.VocabEntry{
		UserID:           userID,
		Phrase:           phrase,
		Context:          sentence,
		ExplainENPhrase:  expPhrase,
		ExplainENContext: expContext,
	})
	if err != nil {
		return file.VocabEntry{}, err
	}
	s.last.Put(userID, entry)
	slog.Info("vocabulary entry added", "user_id", userID, "phrase", phrase)
	return entry, nil
}

// ExplainRussian explains the user's most recent entry in Russian and
// appends the explained version as a new row.
func (s *Service) ExplainRussian(ctx context.Context, userID int64) (string, error) {
	last, ok := s.last.Get(userID)
	if !ok {
		return "", ErrNoLastEntry
	}

	prompt := fmt.Sprintf(
		"Фраза: %s\nПредложение (контекст): %s\n\n"+
			"Дай понятное объяснение значения фразы И смысла предложения, "+
			"с примерами (по возможности), коротко (4–6 предложений).",
		last.Phrase, last.Context)

	resp, err := s.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Ты преподаватель английского. Объясняй по-русски, чётко и по делу."),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("russian explanation: %w", err)
	}
	ru := strings.TrimSpace(resp.Choices[0].Message.Content)

	updated := last
	updated.ID = ""
	updated.CreatedAt = time.Time{}
	updated.ExplainRU = ru
	if updated, err = s.store.AppendVocab(updated); err != nil {
		return "", err
	}
	s.last.Put(userID, updated)
	return ru, nil
}

func (s *Service) explainEnglish(ctx context.Context, phrase, sentence string) (string, string, error) {
	prompt := fmt.Sprintf(
		"PHRASE: %s\nCONTEXT SENTENCE: %s\n\n"+
			"Tasks:\n"+
			"1) Explain the phrase meaning IN THIS CONTEXT (2–4 clear sentences).\n"+
			"2) Briefly explain the whole sentence/context (1–2 sentences).\n"+
			"Format:\n"+
			"PHRASE_EXPLANATION:\n"+
			"CONTEXT_EXPLANATION:\n",
		phrase, sentence)

	resp, err := s.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are an English tutor. Explain in simple, precise English."),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("english explanation: %w", err)
	}

	expPhrase, expContext := ParseExplanations(resp.Choices[0].Message.Content)
	return expPhrase, expContext, nil
}

var (
	phraseExpRe  = regexp.MustCompile(`(?s)PHRASE_EXPLANATION:\s*(.+?)(?:\nCONTEXT_EXPLANATION:|$)`)
	contextExpRe = regexp.MustCompile(`(?s)CONTEXT_EXPLANATION:\s*(.+)$`)
	quotedRe     = regexp.MustCompile(`["“”‘’'](.+?)["“”‘’']`)
)

const explanationLimit = 2000

// ParseExplanations splits the tutor response on its two section markers.
// A response without markers becomes the phrase explanation wholesale.
func ParseExplanations(text string) (string, string) {
	text = strings.TrimSpace(text)
	expPhrase := text
	if m := phraseExpRe.FindStringSubmatch(text); m != nil {
		expPhrase = strings.TrimSpace(m[1])
	}
	expContext := ""
	if m := contextExpRe.FindStringSubmatch(text); m != nil {
		expContext = strings.TrimSpace(m[1])
	}
	return truncate(expPhrase, explanationLimit), truncate(expContext, explanationLimit)
}

// ParseTextEntry reads "phrase | full sentence" input; without the pipe,
// a quoted fragment inside the sentence is taken as the phrase.
func ParseTextEntry(text string) (phrase, context string) {
	text = strings.TrimSpace(text)
	if before, after, ok := strings.Cut(text, "|"); ok {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	if m := quotedRe.FindStringSubmatch(text); m != nil {
		phrase = strings.TrimSpace(m[1])
	}
	return phrase, text
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
