package circuitid

import (
	"regexp"
	"strings"
)

// Recognition noise and identifier shapes, applied per line in a fixed order.
var (
	// reParens matches parenthetical asides, non-greedy; an unterminated
	// paren is left as-is.
	reParens = regexp.MustCompile(`\(.*?\)`)

	// reAngles matches <...> bracketed garbage (logo smudges and similar).
	reAngles = regexp.MustCompile(`<.*?>`)

	// reNC matches the standalone NC ("not connected") marker in either
	// case. Word boundaries keep it from eating NC inside longer tokens.
	reNC = regexp.MustCompile(`(?i)\bNC\b`)

	// reCommaDash extracts the comma-dash shape anywhere in a line:
	// prefix,start-end.
	reCommaDash = regexp.MustCompile(`([A-Za-z0-9]+),([0-9]+)-([0-9]+)`)

	// reWhitespace extracts the whitespace shape at the start of a trimmed
	// line: an optional alphanumeric prefix, then two digit groups.
	reWhitespace = regexp.MustCompile(`^([A-Za-z0-9]+\s+)?([0-9]+)\s+([0-9]+)`)
)

// Clean strips recognition noise from raw multi-line engine output and
// extracts one identifier per recoverable line. Lines that yield neither the
// comma-dash nor the whitespace shape are dropped: a line with no
// recoverable identifier is noise, not an identifier worth preserving.
// Surviving lines keep their input order, joined by newlines. Comma-dash
// matches come out canonical; whitespace matches come out space-joined for a
// later Normalize.
func Clean(raw string) string {
	kept, _ := CleanLines(raw)
	return strings.Join(kept, "\n")
}

// CleanLines is Clean with the dropped lines reported as well, for callers
// that surface unrecoverable lines to the operator instead of losing them
// silently.
func CleanLines(raw string) (kept, dropped []string) {
	for _, line := range splitLines(raw) {
		out, ok := cleanLine(line)
		if ok {
			kept = append(kept, out)
		} else {
			dropped = append(dropped, line)
		}
	}
	return kept, dropped
}

// cleanLine runs the per-line noise removal and shape extraction.
// The order is fixed: parenthetical noise, bracketed noise, the NC token,
// then @ misreads, and only then shape extraction, so noise inside parens or
// brackets can never win the shape match.
func cleanLine(line string) (string, bool) {
	line = reParens.ReplaceAllString(line, "")
	line = reAngles.ReplaceAllString(line, "")
	line = reNC.ReplaceAllString(line, "")
	// @ is the engine's usual misread of 0.
	line = strings.ReplaceAll(line, "@", "0")

	if m := reCommaDash.FindStringSubmatch(line); m != nil {
		return m[1] + "," + m[2] + "-" + m[3], true
	}

	if m := reWhitespace.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
		if prefix := strings.TrimSpace(m[1]); prefix != "" {
			return prefix + " " + m[2] + " " + m[3], true
		}
		return m[2] + " " + m[3], true
	}

	return "", false
}

// Normalize canonicalizes a whitespace-form identifier to prefix,start-end.
// The last two tokens are the range start and end; everything before them is
// concatenated, as given, into the prefix ("BR 21 365 372" becomes
// "BR21,365-372"). Input with fewer than three tokens is ambiguous and is
// returned unchanged; callers must treat that pass-through as "could not
// canonicalize".
func Normalize(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return line
	}

	last := len(fields) - 1
	prefix := strings.Join(fields[:last-1], "")
	return prefix + "," + fields[last-1] + "-" + fields[last]
}

// splitLines splits text into non-empty lines, handling both line endings.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")

	result := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			result = append(result, l)
		}
	}
	return result
}
