// Package formatting converts byte sizes between counts and human-readable text.
package formatting

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidSize indicates a byte size string that cannot be parsed.
var ErrInvalidSize = errors.New("invalid byte size")

type unit struct {
	name  string
	scale int64
}

// Units are base-1024 and ordered largest first.
var units = []unit{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// suffixes maps accepted spellings to a scale.
var suffixes = map[string]int64{
	"": 1, "B": 1,
	"K": 1 << 10, "KB": 1 << 10, "KIB": 1 << 10,
	"M": 1 << 20, "MB": 1 << 20, "MIB": 1 << 20,
	"G": 1 << 30, "GB": 1 << 30, "GIB": 1 << 30,
	"T": 1 << 40, "TB": 1 << 40, "TIB": 1 << 40,
}

// FormatBytes renders n in the largest unit that keeps the value at or above one,
// with precision decimal places. Trailing zero decimals are dropped.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)
	for _, u := range units {
		if n >= u.scale || u.scale == 1 {
			v := strconv.FormatFloat(float64(n)/float64(u.scale), 'f', precision, 64)
			if strings.Contains(v, ".") {
				v = strings.TrimRight(strings.TrimRight(v, "0"), ".")
			}
			return v + " " + u.name
		}
	}
	return "0 B"
}

// ParseBytes parses sizes such as "10MB", "512 KiB" or "1.5g". A bare number
// is a byte count. Units are case-insensitive.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	if split == -1 {
		split = len(s)
	}

	number, suffix := s[:split], strings.ToUpper(strings.TrimSpace(s[split:]))
	if number == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	scale, ok := suffixes[suffix]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSize, suffix)
	}

	bytes := value * float64(scale)
	if bytes > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
	}
	return int64(bytes), nil
}
