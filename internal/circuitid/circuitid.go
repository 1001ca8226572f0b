// Package circuitid cleans raw text-recognition output and canonicalizes
// circuit identifiers to the prefix,start-end form used on splice records.
package circuitid

import (
	"fmt"
	"regexp"
	"strconv"
)

// CircuitID is a parsed canonical circuit identifier: an alphanumeric prefix
// (possibly empty) and a numeric range. Start and End are carried as read;
// nothing enforces Start <= End, that is a consumer decision.
type CircuitID struct {
	Prefix string `json:"prefix"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// canonicalPattern matches a whole canonical identifier string.
var canonicalPattern = regexp.MustCompile(`^([A-Za-z0-9]*),([0-9]+)-([0-9]+)$`)

// Parse parses a canonical identifier string.
// Returns nil if s is not in canonical shape.
func Parse(s string) *CircuitID {
	m := canonicalPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	start, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	end, err := strconv.Atoi(m[3])
	if err != nil {
		return nil
	}

	return &CircuitID{
		Prefix: m[1],
		Start:  start,
		End:    end,
	}
}

// String returns the canonical prefix,start-end form.
func (id CircuitID) String() string {
	return fmt.Sprintf("%s,%d-%d", id.Prefix, id.Start, id.End)
}

// Count returns the number of fibers or pairs the range covers.
func (id CircuitID) Count() int {
	return id.End - id.Start + 1
}
