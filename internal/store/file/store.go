package file

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/daniltm/prodbot/internal/pipeline"
)

// Connection types a user can register.
const (
	ConnToken      = "NOTION_TOKEN"
	ConnTaskDB     = "NOTION_MAIN_DATABASE_ID"
	ConnThoughtsDB = "NOTION_THOUGHTS_DATABASE_ID"
	ConnSphereDB   = "NOTION_DATABASE_ID_1"
)

// User is one row of users.csv.
type User struct {
	ID    int64
	Login string
}

// Track is one row of tracks.csv.
type Track struct {
	UserID     int64
	TrackType  string
	YoutubeURL string
	LocalPath  string
}

// VocabEntry is one row of vocab.csv. Updates are modeled as appended rows
// (the latest row for a phrase wins), keeping the file append-only.
type VocabEntry struct {
	ID               string
	UserID           int64
	Phrase           string
	Context          string
	ExplainENPhrase  string
	ExplainENContext string
	ExplainRU        string
	CreatedAt        time.Time
}

func uid(id int64) string { return strconv.FormatInt(id, 10) }

// UpsertUser adds a user row or refreshes its login.
func (s *Store) UpsertUser(userID int64, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll(usersFile)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row["user_id"] == uid(userID) {
			if row["login"] == login {
				return nil
			}
			row["login"] = login
			return s.writeAllLocked(usersFile, rows)
		}
	}
	return s.appendRows(usersFile, []map[string]string{{"user_id": uid(userID), "login": login}})
}

// GetUser returns a user row when present.
func (s *Store) GetUser(userID int64) (User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll(usersFile)
	if err != nil {
		return User{}, false, err
	}
	for _, row := range rows {
		if row["user_id"] == uid(userID) {
			return User{ID: userID, Login: row["login"]}, true, nil
		}
	}
	return User{}, false, nil
}

// SaveConnection stores or replaces one connection value for a user.
func (s *Store) SaveConnection(userID int64, connType, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll(connectionsFile)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row["user_id"] == uid(userID) && row["connection_type"] == connType {
			row["value"] = value
			return s.writeAllLocked(connectionsFile, rows)
		}
	}
	return s.appendRows(connectionsFile, []map[string]string{{
		"user_id":         uid(userID),
		"connection_type": connType,
		"value":           value,
	}})
}

// Connection returns the stored value for a connection type, or "".
func (s *Store) Connection(userID int64, connType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll(connectionsFile)
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if row["user_id"] == uid(userID) && row["connection_type"] == connType {
			return row["value"], nil
		}
	}
	return "", nil
}

// AppendTasks persists one merged batch for a user.
func (s *Store) AppendTasks(tasks []pipeline.MergedTask, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]map[string]string, 0, len(tasks))
	for _, t := range tasks {
		row := map[string]string{
			"name":            t.Name,
			"sphere_text":     t.SphereText,
			"sphere_page_id":  t.SpherePageID,
			"start_datetime":  t.StartDatetime,
			"end_datetime":    t.EndDatetime,
			"type":            t.Type,
			"project":         t.Project,
			"chatGPT_comment": t.ChatGPTComment,
			"user_id":         uid(userID),
		}
		if t.CSAT != nil {
			row["csat"] = strconv.Itoa(*t.CSAT)
		}
		rows = append(rows, row)
	}
	if err := s.appendRows(tasksFile, rows); err != nil {
		return fmt.Errorf("append tasks: %w", err)
	}
	return nil
}

// TasksFor returns all persisted tasks for one user, in file order.
func (s *Store) TasksFor(userID int64) ([]pipeline.MergedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll(tasksFile)
	if err != nil {
		return nil, err
	}
	var out []pipeline.MergedTask
	for _, row := range rows {
		if row["user_id"] != uid(userID) {
			continue
		}
		t := pipeline.MergedTask{
			Name:           row["name"],
			SphereText:     row["sphere_text"],
			SpherePageID:   row["sphere_page_id"],
			StartDatetime:  row["start_datetime"],
			EndDatetime:    row["end_datetime"],
			Type:           row["type"],
			Project:        row["project"],
			ChatGPTComment: row["chatGPT_comment"],
		}
		if v := row["csat"]; v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				t.CSAT = &n
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// SaveTrack appends a track row.
func (s *Store) SaveTrack(tr Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendRows(tracksFile, []map[string]string{{
		"user_id":     uid(tr.UserID),
		"track_type":  tr.TrackType,
		"youtube_url": tr.YoutubeURL,
		"local_path":  tr.LocalPath,
	}})
}

// TracksFor returns a user's tracks, optionally filtered by type.
func (s *Store) TracksFor(userID int64, trackType string) ([]Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll(tracksFile)
	if err != nil {
		return nil, err
	}
	var out []Track
	for _, row := range rows {
		if row["user_id"] != uid(userID) {
			continue
		}
		if trackType != "" && row["track_type"] != trackType {
			continue
		}
		out = append(out, Track{
			UserID:     userID,
			TrackType:  row["track_type"],
			YoutubeURL: row["youtube_url"],
			LocalPath:  row["local_path"],
		})
	}
	return out, nil
}

// AppendVocab appends a vocabulary entry, assigning an ID when empty.
func (s *Store) AppendVocab(e VocabEntry) (VocabEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := s.appendRows(vocabFile, []map[string]string{{
		"id":                 e.ID,
		"user_id":            uid(e.UserID),
		"phrase":             e.Phrase,
		"context":            e.Context,
		"explain_en_phrase":  e.ExplainENPhrase,
		"explain_en_context": e.ExplainENContext,
		"explain_ru":         e.ExplainRU,
		"created_at":         e.CreatedAt.Format(time.RFC3339),
	}})
	if err != nil {
		return VocabEntry{}, fmt.Errorf("append vocab: %w", err)
	}
	return e, nil
}
