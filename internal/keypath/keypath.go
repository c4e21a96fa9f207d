// Package keypath converts between dotted child paths and key sequences.
package keypath

import (
	"errors"
	"fmt"
	"strings"
)

// Separator splits path segments. A literal separator inside a key is escaped
// with a backslash.
const Separator = '.'

var (
	// ErrEmptySegment is returned for paths such as "a..b" or ".a".
	ErrEmptySegment = errors.New("keypath: empty segment")

	// ErrDanglingEscape is returned when a path ends in a lone backslash.
	ErrDanglingEscape = errors.New("keypath: dangling escape")
)

// Parse splits path into segments. The empty path has no segments.
// `\.` and `\\` unescape to a literal dot and backslash.
func Parse(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	var (
		segments []string
		b        strings.Builder
		escaped  bool
	)
	for _, r := range path {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == Separator:
			if b.Len() == 0 {
				return nil, fmt.Errorf("%w in %q", ErrEmptySegment, path)
			}
			segments = append(segments, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("%w in %q", ErrDanglingEscape, path)
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("%w in %q", ErrEmptySegment, path)
	}
	return append(segments, b.String()), nil
}

// Format joins keys into a dotted path. Keys are rendered with fmt and any
// dot or backslash inside them is escaped, so Parse(Format(k...)) returns the
// rendered keys.
func Format(keys ...any) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteRune(Separator)
		}
		b.WriteString(Escape(fmt.Sprint(k)))
	}
	return b.String()
}

// Escape escapes separators and backslashes in a single segment.
func Escape(segment string) string {
	if !strings.ContainsAny(segment, `.\`) {
		return segment
	}
	var b strings.Builder
	for _, r := range segment {
		if r == Separator || r == '\\' {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
