package callbacks

import (
	"strconv"
	"strings"
)

// SplitPayload splits p by sep and rejects an empty payload.
func SplitPayload(p, sep string) ([]string, error) {
	if p == "" {
		return nil, strconv.ErrSyntax
	}
	return strings.Split(p, sep), nil
}

// TwoInts parses a payload like "2025|9" into two ints.
func TwoInts(p, sep string) (int, int, error) {
	parts, err := SplitPayload(p, sep)
	if err != nil {
		return 0, 0, err
	}
	if len(parts) != 2 {
		return 0, 0, strconv.ErrSyntax
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
