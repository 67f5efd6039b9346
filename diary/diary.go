// Package diary detects diary marker blocks in generated text and writes
// each one as a record file.
package diary

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// Marker block delimiters.
const (
	StartMarker = "<<<DailyNoteStart>>>"
	EndMarker   = "<<<DailyNoteEnd>>>"
)

const (
	subjectKey = "Maid:"
	dateKey    = "Date:"
	contentKey = "Content:"
)

var (
	// ErrNoBlock is returned when the text has no complete marker block.
	ErrNoBlock = errors.New("diary: no marker block")

	// ErrIncomplete is returned when a block lacks a subject, date or content.
	ErrIncomplete = errors.New("diary: incomplete record")
)

var blockPattern = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(StartMarker) + `(.*?)` + regexp.QuoteMeta(EndMarker))

// Record is one extracted diary entry.
type Record struct {
	Subject string
	Date    string
	Content string
}

// Extract returns the record held by the first marker block in text.
func Extract(text string) (Record, bool) {
	rec, err := Parse(text)
	return rec, err == nil
}

// Parse is Extract with the reason for a miss. Only the first block counts.
// Lines before "Content:" are scanned for "Maid:" and "Date:"; everything
// after "Content:" belongs to the content verbatim.
func Parse(text string) (Record, error) {
	m := blockPattern.FindStringSubmatch(text)
	if m == nil {
		return Record{}, ErrNoBlock
	}

	var (
		rec     Record
		content []string
		inBody  bool
	)
	for _, line := range strings.Split(m[1], "\n") {
		if inBody {
			content = append(content, line)
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, subjectKey):
			rec.Subject = strings.TrimSpace(strings.TrimPrefix(trimmed, subjectKey))
		case strings.HasPrefix(trimmed, dateKey):
			rec.Date = strings.TrimSpace(strings.TrimPrefix(trimmed, dateKey))
		case strings.HasPrefix(trimmed, contentKey):
			inBody = true
			content = append(content, strings.TrimLeft(strings.TrimPrefix(trimmed, contentKey), " \t"))
		}
	}
	rec.Content = strings.Join(trimBlankLines(content), "\n")

	var missing []string
	if rec.Subject == "" {
		missing = append(missing, "subject")
	}
	if rec.Date == "" {
		missing = append(missing, "date")
	}
	if rec.Content == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return rec, errors.Wrapf(ErrIncomplete, "missing %s", strings.Join(missing, ", "))
	}
	return rec, nil
}

// trimBlankLines drops whitespace-only lines at both ends and leaves the
// rest untouched.
func trimBlankLines(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
