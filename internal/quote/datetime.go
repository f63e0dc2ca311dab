package quote

import (
	"fmt"
	"strings"
	"time"
)

// Canonical is the normalized form every UpdateAt value is written in.
const Canonical = "2006-01-02 15:04:05"

// timeSpec describes where a layout's timestamp lives and how to read it.
// When timeIdx >= 0 the date and time tokens are space-joined. An empty
// srcLayout means the value is already canonical and passes through as-is.
type timeSpec struct {
	dateIdx   int
	timeIdx   int
	srcLayout string
}

func (ts timeSpec) normalize(tokens []string) (string, error) {
	raw := strings.TrimSpace(tokens[ts.dateIdx])
	if ts.timeIdx >= 0 {
		raw = raw + " " + strings.TrimSpace(tokens[ts.timeIdx])
	}
	if ts.srcLayout == "" {
		return raw, nil
	}
	t, err := time.Parse(ts.srcLayout, raw)
	if err != nil {
		return "", fmt.Errorf("timestamp %q: %w", raw, err)
	}
	return t.Format(Canonical), nil
}
