package tle

import (
	"log/slog"
	"strings"

	"github.com/star/skywatch/internal/orbit"
)

// Parse reads 3-line NORAD TLE format (name, line1, line2) from raw and
// returns parsed records keyed by catalog id. Pure function, no I/O.
//
// Malformed groups are skipped by advancing the cursor one line, not three,
// so a single corrupted record never desynchronizes detection of the next
// good group. A catalog with zero valid groups yields an empty map, not an
// error; the caller decides whether emptiness is fatal.
func Parse(raw string, builder orbit.Builder, logger *slog.Logger) map[string]Record {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	records := make(map[string]Record)
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			i++
			continue
		}

		// Catalog id lives in line2 columns 3-7 (0-indexed 2..7).
		if len(line2) < 7 {
			i++
			continue
		}
		id := strings.TrimSpace(line2[2:7])
		if !isDigits(id) {
			i++
			continue
		}

		handle, err := builder.Build(line1, line2, name)
		if err != nil {
			logger.Warn("skipping TLE entry, propagator init failed",
				"catalog_id", id, "name", name, "error", err)
			i++
			continue
		}

		records[id] = Record{
			ID:     id,
			Name:   name,
			Line1:  line1,
			Line2:  line2,
			Handle: handle,
		}
		i += 3
	}

	return records
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
