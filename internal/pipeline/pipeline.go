// Package pipeline implements the task and thought extraction pipeline:
// deterministic temporal parsing of free-form activity journals, delegation
// of the semantic portion to a classifier, and strict positional merging of
// the two result sets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Pipeline runs one parse-classify-merge cycle per inbound message.
// It holds no state between invocations; concurrent invocations for
// different users are independent. The classifier call is the only
// operation that may block.
type Pipeline struct {
	classifier Classifier
	loc        *time.Location
}

// New creates a pipeline bound to a classifier and a fixed local zone.
func New(classifier Classifier, loc *time.Location) *Pipeline {
	return &Pipeline{classifier: classifier, loc: loc}
}

// Location returns the pipeline's fixed zone.
func (p *Pipeline) Location() *time.Location { return p.loc }

// AnalyzeTasks converts a block of activity text into merged task records.
//
// The first line may carry an explicit calendar date; otherwise the date
// comes from ref converted to the pipeline zone. Only bare activity names
// reach the classifier — timestamps and CSAT stay local.
//
// Errors: ErrNoActivities when nothing parsed, ErrNoResult when the
// classifier failed, ErrCardinalityMismatch when the counts differ.
func (p *Pipeline) AnalyzeTasks(ctx context.Context, text string, ref time.Time, opts []SphereOption) ([]MergedTask, error) {
	lines := strings.Split(text, "\n")

	day, ok := time.Time{}, false
	if len(lines) > 0 {
		day, ok = ParseDate(lines[0])
	}
	if ok {
		lines = lines[1:]
	} else {
		local := ref.In(p.loc)
		day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.loc)
	}

	raw := ParseLines(lines)
	if len(raw) == 0 {
		return nil, ErrNoActivities
	}

	parsed, err := Reconcile(raw, day, p.loc)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	names := make([]string, len(parsed))
	for i, a := range parsed {
		names[i] = a.Name
	}

	classified, err := p.classifier.ClassifyActivities(ctx, names, ref, opts)
	if err != nil {
		slog.Error("activity classification failed", "error", err, "activities", len(names))
		return nil, errors.Join(ErrNoResult, err)
	}

	merged, err := Merge(parsed, classified)
	if err != nil {
		return nil, err
	}

	slog.Info("analyzed activity batch", "parsed", len(parsed), "merged", len(merged), "day", day.Format("2006-01-02"))
	return merged, nil
}

// AnalyzeThoughts classifies a free-form thoughts block. There is nothing
// temporal to parse and no local sequence to merge against, so the
// classifier output is the final result.
func (p *Pipeline) AnalyzeThoughts(ctx context.Context, text string, ref time.Time, opts []SphereOption) ([]Thought, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoActivities
	}

	thoughts, err := p.classifier.ClassifyThoughts(ctx, text, ref, opts)
	if err != nil {
		slog.Error("thought classification failed", "error", err)
		return nil, errors.Join(ErrNoResult, err)
	}
	if len(thoughts) == 0 {
		return nil, ErrNoResult
	}
	return thoughts, nil
}
