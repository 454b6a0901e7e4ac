package pipeline

import (
	"context"
	"errors"
	"time"
)

// Activity type tags. The values are the status names used by the workspace
// database, so they travel through the classifier and into persistence
// unchanged.
const (
	TypeActivity = "ChatGPTактивность"
	TypeTask     = "ChatGPTтаск"
	TypeEvent    = "ChatGPTмероприятие"
)

var (
	// ErrNoActivities means no input line matched the temporal grammar.
	// The pipeline aborts before any remote call is made.
	ErrNoActivities = errors.New("no activity lines recognized")

	// ErrCardinalityMismatch means the classifier returned a different
	// number of items than were parsed locally. Positional correspondence
	// is the only correspondence, so the whole batch is discarded.
	ErrCardinalityMismatch = errors.New("parsed and classified counts differ")

	// ErrNoResult means the classifier produced nothing usable (remote
	// failure, malformed JSON, or a non-array response).
	ErrNoResult = errors.New("classifier returned no usable result")
)

// RawActivityLine is one matched input line before time reconciliation.
// StartTime and ExplicitEnd are wall-clock "HH:MM" strings with no date.
type RawActivityLine struct {
	StartTime   string
	ExplicitEnd string // "" when the line carried no end time
	Body        string
	CSAT        *int
}

// ParsedActivity is a RawActivityLine with resolved timestamps.
// End is nil only for the final entry of a batch that had no explicit end
// and no successor to borrow a start time from.
type ParsedActivity struct {
	Name  string
	Start time.Time
	End   *time.Time
	CSAT  *int
}

// SphereOption is one selectable life-category target from the workspace.
type SphereOption struct {
	ID          string
	Name        string
	Description string
}

// ClassifiedActivity is the model's semantic judgment about one activity
// name, produced in isolation from any timing information.
type ClassifiedActivity struct {
	Name           string  `json:"name"`
	SphereText     string  `json:"sphere_text"`
	SpherePageID   string  `json:"sphere_page_id,omitempty"`
	Type           string  `json:"type"`
	Project        *string `json:"project"`
	ChatGPTComment string  `json:"chatGPT_comment"`
}

// MergedTask is the final artifact: temporal and CSAT fields from the local
// parse joined positionally with the classifier's semantic fields.
// Timestamps are ISO-8601 strings in the pipeline's fixed zone.
type MergedTask struct {
	Name           string
	SphereText     string
	SpherePageID   string
	StartDatetime  string
	EndDatetime    string // "" when End was absent
	Type           string
	Project        string
	ChatGPTComment string
	CSAT           *int
}

// Thought is one classified idea from a thought-mode message.
type Thought struct {
	Name         string `json:"name"`
	SphereText   string `json:"sphere_text,omitempty"`
	SpherePageID string `json:"sphere_page_id,omitempty"`
	Comment      string `json:"comment"`
}

// Classifier is the semantic classification collaborator. Implementations
// call a language model; errors surface as-is and the pipeline maps them to
// ErrNoResult for the caller.
type Classifier interface {
	// ClassifyActivities classifies bare activity names, in order.
	// The returned slice must pair positionally with names.
	ClassifyActivities(ctx context.Context, names []string, ref time.Time, opts []SphereOption) ([]ClassifiedActivity, error)

	// ClassifyThoughts classifies a whole free-form thoughts block.
	ClassifyThoughts(ctx context.Context, text string, ref time.Time, opts []SphereOption) ([]Thought, error)
}
