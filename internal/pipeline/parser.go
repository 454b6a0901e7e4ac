package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateISORe = regexp.MustCompile(`^\s*(\d{4}-\d{2}-\d{2})\s*$`)
	dateDMYRe = regexp.MustCompile(`^\s*(\d{1,2})[./](\d{1,2})[./](\d{2,4})\s*$`)

	// One activity line: start time, optional dash-separated end time, then
	// the free-text body. "9:31-9:57 читаю книгу 7" and "10:00 завтрак"
	// both match; hyphen, en dash and em dash all work as the separator.
	activityRe = regexp.MustCompile(`^\s*(\d{1,2}:\d{2})\s*(?:[-–—]\s*(\d{1,2}:\d{2})?)?\s*(.+?)\s*$`)
)

// ParseDate tries to read an explicit calendar date from a line, either
// ISO "2006-01-02" or day-first "2.1.2006" (also "/" separated, two-digit
// years allowed). Returns false when the line is not a bare date.
func ParseDate(line string) (time.Time, bool) {
	if m := dateISORe.FindStringSubmatch(line); m != nil {
		d, err := time.Parse("2006-01-02", m[1])
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}
	if m := dateDMYRe.FindStringSubmatch(line); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ParseLines matches every line against the activity grammar and returns
// the matches in input order. Lines that do not match (blank lines, headers,
// stray prose) are skipped silently; that is normal input, not an error.
func ParseLines(lines []string) []RawActivityLine {
	var out []RawActivityLine
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := activityRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		body, csat := extractCSAT(m[3])
		out = append(out, RawActivityLine{
			StartTime:   m[1],
			ExplicitEnd: m[2],
			Body:        body,
			CSAT:        csat,
		})
	}
	return out
}

// extractCSAT pulls a trailing bare integer off the body text. The trailing
// number convention is a self-rated satisfaction score, so "читаю книгу 7"
// becomes ("читаю книгу", 7).
func extractCSAT(body string) (string, *int) {
	body = strings.TrimSpace(body)
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return body, nil
	}
	last := fields[len(fields)-1]
	n, err := strconv.Atoi(last)
	if err != nil || last[0] == '-' || last[0] == '+' {
		return body, nil
	}
	trimmed := strings.TrimSpace(strings.TrimSuffix(body, last))
	return trimmed, &n
}

// parseClock converts an "H:MM" token into hour and minute.
// The grammar guarantees the shape, so failures here indicate a grammar bug.
func parseClock(s string) (hour, minute int, ok bool) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(s[:i])
	m, err2 := strconv.Atoi(s[i+1:])
	if err1 != nil || err2 != nil || h > 23 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
