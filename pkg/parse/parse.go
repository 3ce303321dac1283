package parse

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrDate is wrapped by every Date failure.
var ErrDate = errors.New("unparseable ranking date")

// Date reads headings like "Lunes 09/09/2024" and returns "2024-09-09".
// Only the second whitespace-delimited token is looked at.
func Date(raw string) (string, error) {
	parts := strings.Fields(raw)
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q has no date token", ErrDate, raw)
	}

	t, err := time.Parse("2/1/2006", parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrDate, parts[1], err)
	}
	return t.Format("2006-01-02"), nil
}

// Count parses thousands-grouped numbers such as "1.234.567".
// It never fails: anything unparseable (or negative) counts as 0.
func Count(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(strings.ReplaceAll(raw, ".", "")), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Share parses percentages such as "12.3%". Like Count it degrades to 0
// instead of failing; decimal commas are not accepted.
func Share(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(raw, "%", "")), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
