package pipeline

import (
	"fmt"
	"time"
)

// Reconcile turns raw activity lines into timestamped activities for the
// given calendar day in loc.
//
// An entry without an explicit end borrows the start time of the next entry
// in the sequence; the last entry with no explicit end and no successor
// keeps a nil End. When a computed end lands before its start the activity
// crossed midnight and the end date advances by one day.
//
// The transform is pure and order-dependent: reordering input lines changes
// the inferred end times, which is the intended reading of sequential
// journal entries.
func Reconcile(raw []RawActivityLine, day time.Time, loc *time.Location) ([]ParsedActivity, error) {
	out := make([]ParsedActivity, 0, len(raw))
	for i, r := range raw {
		start, err := combine(day, r.StartTime, loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		endClock := r.ExplicitEnd
		if endClock == "" && i+1 < len(raw) {
			endClock = raw[i+1].StartTime
		}

		var end *time.Time
		if endClock != "" {
			e, err := combine(day, endClock, loc)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			if e.Before(start) {
				e = e.AddDate(0, 0, 1)
			}
			end = &e
		}

		out = append(out, ParsedActivity{
			Name:  r.Body,
			Start: start,
			End:   end,
			CSAT:  r.CSAT,
		})
	}
	return out, nil
}

func combine(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, ok := parseClock(clock)
	if !ok {
		return time.Time{}, fmt.Errorf("bad clock value %q", clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc), nil
}
