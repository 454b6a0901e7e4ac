package pipeline

import (
	"fmt"
	"time"
)

// isoTimestamp is the layout persistence collaborators expect:
// ISO-8601 with seconds and a numeric zone offset.
const isoTimestamp = "2006-01-02T15:04:05-07:00"

// Merge pairs parsed activities with classified activities by position and
// produces the final record set.
//
// The classifier is never given timestamps or any key it could echo back,
// so position is the only correspondence. A length mismatch therefore
// poisons the whole batch: fuzzy pairing by name would silently misattribute
// times under duplicate names (two entries both called "встреча" is a
// realistic input), so nothing is merged instead.
func Merge(parsed []ParsedActivity, classified []ClassifiedActivity) ([]MergedTask, error) {
	if len(parsed) != len(classified) {
		return nil, fmt.Errorf("%w: parsed %d, classified %d",
			ErrCardinalityMismatch, len(parsed), len(classified))
	}

	out := make([]MergedTask, 0, len(parsed))
	for i, p := range parsed {
		c := classified[i]
		task := MergedTask{
			Name:           c.Name,
			SphereText:     c.SphereText,
			SpherePageID:   c.SpherePageID,
			StartDatetime:  p.Start.Format(isoTimestamp),
			Type:           c.Type,
			ChatGPTComment: c.ChatGPTComment,
			CSAT:           p.CSAT,
		}
		if p.End != nil {
			task.EndDatetime = p.End.Format(isoTimestamp)
		}
		if c.Project != nil {
			task.Project = *c.Project
		}
		out = append(out, task)
	}
	return out, nil
}

// FormatLocal renders an ISO timestamp for user-facing replies in loc.
// Empty input means the value was never set.
func FormatLocal(iso string, loc *time.Location) string {
	if iso == "" {
		return "—"
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
