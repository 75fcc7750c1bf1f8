package results

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedRecord = errors.New("malformed results record")

// MalformedRecordError reports a stored cell string that does not parse
// back into its numeric fields.
type MalformedRecordError struct {
	Record string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed results cell %q: %s", e.Record, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// FormatLegacyCell renders a cell in the "V: n; S = x" form used by the
// results matrix.
func FormatLegacyCell(wins int, score float64) string {
	return fmt.Sprintf("V: %d; S = %.1f", wins, score)
}

// ParseLegacyCell is the inverse of FormatLegacyCell. The empty string and
// the "0;0.0" placeholder parse as an empty cell.
func ParseLegacyCell(record string) (int, float64, error) {
	trimmed := strings.TrimSpace(record)
	if trimmed == "" || trimmed == "0;0.0" {
		return 0, 0, nil
	}
	parts := strings.Split(trimmed, "; ")
	if len(parts) != 2 {
		return 0, 0, &MalformedRecordError{Record: record, Reason: "expected two fields"}
	}
	winsPart, ok := strings.CutPrefix(parts[0], "V: ")
	if !ok {
		return 0, 0, &MalformedRecordError{Record: record, Reason: "missing win count"}
	}
	scorePart, ok := strings.CutPrefix(parts[1], "S = ")
	if !ok {
		return 0, 0, &MalformedRecordError{Record: record, Reason: "missing score"}
	}
	wins, err := strconv.Atoi(strings.TrimSpace(winsPart))
	if err != nil || wins < 0 {
		return 0, 0, &MalformedRecordError{Record: record, Reason: "win count is not a non-negative integer"}
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(scorePart), 64)
	if err != nil {
		return 0, 0, &MalformedRecordError{Record: record, Reason: "score is not a number"}
	}
	return wins, score, nil
}
