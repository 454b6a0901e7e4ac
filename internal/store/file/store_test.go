package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/daniltm/prodbot/internal/pipeline"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestUpsertUser(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertUser(42, "ivan"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertUser(42, "ivan_new"); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	u, ok, err := s.GetUser(42)
	if err != nil || !ok {
		t.Fatalf("get user: ok=%v err=%v", ok, err)
	}
	if u.Login != "ivan_new" {
		t.Errorf("login = %q, want ivan_new", u.Login)
	}

	if _, ok, _ := s.GetUser(99); ok {
		t.Error("unknown user reported present")
	}
}

func TestConnections(t *testing.T) {
	s := newTestStore(t)

	if v, _ := s.Connection(1, ConnToken); v != "" {
		t.Errorf("missing connection = %q, want empty", v)
	}
	if err := s.SaveConnection(1, ConnToken, "secret"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveConnection(1, ConnToken, "rotated"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	v, err := s.Connection(1, ConnToken)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "rotated" {
		t.Errorf("value = %q, want rotated", v)
	}
}

func TestTasksRoundtrip(t *testing.T) {
	s := newTestStore(t)

	csat := 7
	batch := []pipeline.MergedTask{
		{Name: "читаю книгу", SphereText: "learning", StartDatetime: "2024-03-05T09:00:00+03:00",
			EndDatetime: "2024-03-05T09:30:00+03:00", Type: pipeline.TypeActivity, ChatGPTComment: "—", CSAT: &csat},
		{Name: "встреча", StartDatetime: "2024-03-05T10:00:00+03:00", Type: pipeline.TypeEvent},
	}
	if err := s.AppendTasks(batch, 42); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendTasks([]pipeline.MergedTask{{Name: "чужая"}}, 7); err != nil {
		t.Fatalf("append other user: %v", err)
	}

	tasks, err := s.TasksFor(42)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len = %d, want 2", len(tasks))
	}
	if tasks[0].Name != "читаю книгу" || tasks[1].Name != "встреча" {
		t.Errorf("order broken: %q, %q", tasks[0].Name, tasks[1].Name)
	}
	if tasks[0].CSAT == nil || *tasks[0].CSAT != 7 {
		t.Errorf("csat = %v, want 7", tasks[0].CSAT)
	}
	if tasks[1].CSAT != nil {
		t.Errorf("csat = %v, want nil", tasks[1].CSAT)
	}
	if tasks[1].EndDatetime != "" {
		t.Errorf("end = %q, want empty", tasks[1].EndDatetime)
	}
}

func TestBackfillMissingColumns(t *testing.T) {
	dir := t.TempDir()

	// A tasks file from before the csat and user_id columns existed.
	old := "name,sphere_text,start_datetime\nзавтрак,health,2024-03-05T09:00:00+03:00\n"
	if err := os.WriteFile(filepath.Join(dir, "tasks.csv"), []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store over old file: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "tasks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	header := strings.Split(strings.SplitN(string(data), "\n", 2)[0], ",")
	if len(header) != len(schemas["tasks.csv"]) {
		t.Errorf("header = %v, want full schema", header)
	}

	// The old row survived with empty values in the new columns, and new
	// appends land in the right columns.
	if err := s.AppendTasks([]pipeline.MergedTask{{Name: "новая"}}, 42); err != nil {
		t.Fatalf("append after backfill: %v", err)
	}
	tasks, err := s.TasksFor(42)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Name != "новая" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestTracks(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveTrack(Track{UserID: 1, TrackType: "sleep", YoutubeURL: "https://youtu.be/x"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveTrack(Track{UserID: 1, TrackType: "pomodoro", YoutubeURL: "https://youtu.be/y"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	all, err := s.TracksFor(1, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}
	sleep, err := s.TracksFor(1, "sleep")
	if err != nil {
		t.Fatal(err)
	}
	if len(sleep) != 1 || sleep[0].YoutubeURL != "https://youtu.be/x" {
		t.Errorf("sleep = %+v", sleep)
	}
}

func TestAppendVocab(t *testing.T) {
	s := newTestStore(t)

	e, err := s.AppendVocab(VocabEntry{UserID: 1, Phrase: "to muddle through", Context: "We muddled through somehow."})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if e.ID == "" {
		t.Error("expected generated id")
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	// Commas and quotes in free text survive the CSV encoding.
	_, err = s.AppendVocab(VocabEntry{UserID: 1, Phrase: `a "tricky, quoted" phrase`, Context: "line with, commas"})
	if err != nil {
		t.Fatalf("append tricky: %v", err)
	}
	rows, err := s.readAll(vocabFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1]["phrase"] != `a "tricky, quoted" phrase` {
		t.Errorf("phrase = %q", rows[1]["phrase"])
	}
}
