package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/daniltm/prodbot/internal/bus"
	"github.com/daniltm/prodbot/internal/pipeline"
	"github.com/daniltm/prodbot/internal/store/file"
	"github.com/daniltm/prodbot/internal/vocab"
)

type stubClassifier struct {
	gotNames []string
	gotText  string
	fail     bool
}

func (c *stubClassifier) ClassifyActivities(_ context.Context, names []string, _ time.Time, _ []pipeline.SphereOption) ([]pipeline.ClassifiedActivity, error) {
	if c.fail {
		return nil, errors.New("model down")
	}
	c.gotNames = names
	out := make([]pipeline.ClassifiedActivity, len(names))
	for i, name := range names {
		out[i] = pipeline.ClassifiedActivity{
			Name:       name,
			SphereText: "Работа",
			Type:       pipeline.TypeActivity,
		}
	}
	return out, nil
}

func (c *stubClassifier) ClassifyThoughts(_ context.Context, text string, _ time.Time, _ []pipeline.SphereOption) ([]pipeline.Thought, error) {
	if c.fail {
		return nil, errors.New("model down")
	}
	c.gotText = text
	return []pipeline.Thought{{Name: "идея", SphereText: "Работа"}}, nil
}

type stubNotion struct {
	opts          []pipeline.SphereOption
	tasks         []pipeline.MergedTask
	thoughts      []pipeline.Thought
	createTaskErr error
}

func (n *stubNotion) ListSphereOptions(context.Context, string) ([]pipeline.SphereOption, error) {
	return n.opts, nil
}

func (n *stubNotion) CreateTask(_ context.Context, _ string, task pipeline.MergedTask) error {
	if n.createTaskErr != nil {
		return n.createTaskErr
	}
	n.tasks = append(n.tasks, task)
	return nil
}

func (n *stubNotion) CreateThought(_ context.Context, _ string, th pipeline.Thought, _ string, _ time.Time) error {
	n.thoughts = append(n.thoughts, th)
	return nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (t *stubTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return t.text, t.err
}

type stubVocab struct {
	fromPhoto error
	fromText  error
	explain   string
	explained bool
	added     string
}

func (v *stubVocab) AddFromPhoto(_ context.Context, _ int64, _ []byte) (file.VocabEntry, error) {
	if v.fromPhoto != nil {
		return file.VocabEntry{}, v.fromPhoto
	}
	return file.VocabEntry{Phrase: "to pore over", Context: "She pored over the map."}, nil
}

func (v *stubVocab) AddFromText(_ context.Context, _ int64, text string) (file.VocabEntry, error) {
	if v.fromText != nil {
		return file.VocabEntry{}, v.fromText
	}
	v.added = text
	return file.VocabEntry{Phrase: "to pore over", Context: text}, nil
}

func (v *stubVocab) ExplainRussian(context.Context, int64) (string, error) {
	if v.explain == "" {
		return "", vocab.ErrNoLastEntry
	}
	v.explained = true
	return v.explain, nil
}

type fixture struct {
	svc        *Service
	bus        *bus.MessageBus
	store      *file.Store
	classifier *stubClassifier
	notion     *stubNotion
	vocab      *stubVocab
	transcribe *stubTranscriber
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := file.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	loc := time.FixedZone("MSK", 3*60*60)
	f := &fixture{
		bus:        bus.New(),
		store:      store,
		classifier: &stubClassifier{},
		notion:     &stubNotion{},
		vocab:      &stubVocab{},
		transcribe: &stubTranscriber{},
	}
	f.svc = New(f.bus, store, pipeline.New(f.classifier, loc), f.transcribe, f.vocab)
	f.svc.newNotion = func(string) Notion { return f.notion }
	return f
}

func (f *fixture) lastReply(t *testing.T) string {
	t.Helper()
	out, ok := f.bus.SubscribeOutbound(context.Background())
	if !ok {
		t.Fatal("no outbound reply")
	}
	return out.Text
}

func textMsg(text string) bus.InboundMessage {
	return bus.InboundMessage{ChatID: 1, UserID: 1, Username: "dan", Kind: bus.KindText, Text: text}
}

func TestTasksWithoutNotion_SavesLocallyAndHints(t *testing.T) {
	f := newFixture(t)

	f.svc.handle(context.Background(), textMsg("10:00 - 11:00 сходить в зал\n11:00 код ревью"))

	reply := f.lastReply(t)
	if !strings.Contains(reply, "But not in Notion") {
		t.Errorf("reply = %q, want not-connected hint", reply)
	}
	if !strings.Contains(reply, "сходить в зал") {
		t.Errorf("reply = %q, want task block", reply)
	}

	tasks, err := f.store.TasksFor(1)
	if err != nil || len(tasks) != 2 {
		t.Fatalf("TasksFor = %d tasks, %v; want 2", len(tasks), err)
	}
	if f.classifier.gotNames[1] != "код ревью" {
		t.Errorf("classifier names = %v", f.classifier.gotNames)
	}
}

func TestTasksWithNotion_CreatesPages(t *testing.T) {
	f := newFixture(t)
	f.store.SaveConnection(1, file.ConnToken, "tok")
	f.store.SaveConnection(1, file.ConnTaskDB, "db")

	f.svc.handle(context.Background(), textMsg("10:00 - 11:00 сходить в зал"))

	reply := f.lastReply(t)
	if strings.Contains(reply, "But not in Notion") {
		t.Errorf("reply = %q, connected user got the hint", reply)
	}
	if len(f.notion.tasks) != 1 {
		t.Fatalf("notion.tasks = %d, want 1", len(f.notion.tasks))
	}
	if f.notion.tasks[0].Name != "сходить в зал" {
		t.Errorf("notion task name = %q", f.notion.tasks[0].Name)
	}
}

func TestTasks_NotionFailureKeepsLocalCopy(t *testing.T) {
	f := newFixture(t)
	f.store.SaveConnection(1, file.ConnToken, "tok")
	f.store.SaveConnection(1, file.ConnTaskDB, "db")
	f.notion.createTaskErr = errors.New("503")

	f.svc.handle(context.Background(), textMsg("10:00 - 11:00 сходить в зал"))

	if reply := f.lastReply(t); !strings.Contains(reply, "saved locally") {
		t.Errorf("reply = %q, want per-sink outcome", reply)
	}
	tasks, _ := f.store.TasksFor(1)
	if len(tasks) != 1 {
		t.Errorf("local copy lost on notion failure: %d tasks", len(tasks))
	}
}

func TestTasks_ClassifierFailure(t *testing.T) {
	f := newFixture(t)
	f.classifier.fail = true

	f.svc.handle(context.Background(), textMsg("10:00 - 11:00 сходить в зал"))

	if reply := f.lastReply(t); !strings.Contains(reply, "couldn't analyze") {
		t.Errorf("reply = %q, want analysis failure", reply)
	}
	if tasks, _ := f.store.TasksFor(1); len(tasks) != 0 {
		t.Errorf("failed batch was persisted: %d tasks", len(tasks))
	}
}

func TestThoughtSentinel_RoutesToThoughtFlow(t *testing.T) {
	f := newFixture(t)

	f.svc.handle(context.Background(), textMsg("Мысли\nнадо переписать планировщик"))

	reply := f.lastReply(t)
	if !strings.Contains(reply, "Мысль 1: идея") {
		t.Errorf("reply = %q, want thought listing", reply)
	}
	if f.classifier.gotText != "надо переписать планировщик" {
		t.Errorf("thought text = %q, sentinel line leaked", f.classifier.gotText)
	}
	if f.classifier.gotNames != nil {
		t.Error("thought message reached the task flow")
	}
}

func TestThoughts_CreatedInNotionWhenConnected(t *testing.T) {
	f := newFixture(t)
	f.store.SaveConnection(1, file.ConnToken, "tok")
	f.store.SaveConnection(1, file.ConnThoughtsDB, "th")

	f.svc.handle(context.Background(), textMsg("мысли\nнадо переписать планировщик"))

	if reply := f.lastReply(t); !strings.Contains(reply, "сохранены в Notion") {
		t.Errorf("reply = %q, want notion status", reply)
	}
	if len(f.notion.thoughts) != 1 {
		t.Errorf("notion.thoughts = %d, want 1", len(f.notion.thoughts))
	}
}

func TestVoice_TranscribesThenRunsTasks(t *testing.T) {
	f := newFixture(t)
	f.transcribe.text = "10:00 - 11:00 сходить в зал"

	f.svc.handle(context.Background(), bus.InboundMessage{
		ChatID: 1, UserID: 1, Username: "dan",
		Kind: bus.KindVoice, Voice: []byte("ogg"), VoiceName: "note.ogg",
	})

	if echo := f.lastReply(t); !strings.Contains(echo, "Transcribed: 10:00") {
		t.Errorf("echo = %q, want transcription", echo)
	}
	f.lastReply(t) // task confirmation
	if tasks, _ := f.store.TasksFor(1); len(tasks) != 1 {
		t.Errorf("voice tasks = %d, want 1", len(tasks))
	}
}

func TestVoice_TranscriptionFailure(t *testing.T) {
	f := newFixture(t)
	f.transcribe.err = errors.New("whisper down")

	f.svc.handle(context.Background(), bus.InboundMessage{
		ChatID: 1, UserID: 1, Kind: bus.KindVoice, Voice: []byte("ogg"),
	})

	if reply := f.lastReply(t); !strings.Contains(reply, "couldn't transcribe") {
		t.Errorf("reply = %q, want transcription failure", reply)
	}
}

func TestExplainSentinel_NoLastEntry(t *testing.T) {
	f := newFixture(t)

	f.svc.handle(context.Background(), textMsg("Не понял"))

	if reply := f.lastReply(t); !strings.Contains(reply, "нет последнего элемента") {
		t.Errorf("reply = %q, want no-entry hint", reply)
	}
}

func TestExplainSentinel_RepliesInRussian(t *testing.T) {
	f := newFixture(t)
	f.vocab.explain = "это значит вникать"

	f.svc.handle(context.Background(), textMsg("не понял"))

	if reply := f.lastReply(t); reply != "это значит вникать" {
		t.Errorf("reply = %q", reply)
	}
	if !f.vocab.explained {
		t.Error("ExplainRussian was not called")
	}
}

func TestPipeSeparatedText_RoutesToVocab(t *testing.T) {
	f := newFixture(t)

	f.svc.handle(context.Background(), textMsg("to pore over | She pored over the map."))

	if reply := f.lastReply(t); !strings.Contains(reply, "Phrase: to pore over") {
		t.Errorf("reply = %q, want vocab card", reply)
	}
	if f.vocab.added == "" {
		t.Error("AddFromText was not called")
	}
	if f.classifier.gotNames != nil {
		t.Error("vocab message reached the task flow")
	}
}

func TestPhoto_ExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.vocab.fromPhoto = vocab.ErrExtractionFailed

	f.svc.handle(context.Background(), bus.InboundMessage{
		ChatID: 1, UserID: 1, Kind: bus.KindPhoto, Photo: []byte("jpeg"),
	})

	if reply := f.lastReply(t); !strings.Contains(reply, "Не смог извлечь") {
		t.Errorf("reply = %q, want extraction failure", reply)
	}
}

func TestPhoto_AddsVocabEntry(t *testing.T) {
	f := newFixture(t)

	f.svc.handle(context.Background(), bus.InboundMessage{
		ChatID: 1, UserID: 1, Kind: bus.KindPhoto, Photo: []byte("jpeg"),
	})

	if reply := f.lastReply(t); !strings.Contains(reply, "не понял") {
		t.Errorf("reply = %q, want follow-up hint", reply)
	}
}
