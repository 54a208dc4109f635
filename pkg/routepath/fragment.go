// Package routepath normalizes navigation fragments and decodes captured
// route parameters.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Fragment normalization errors.
var (
	ErrBackslashInFragment = errors.New("fragment contains backslash")
	ErrNullByteInFragment  = errors.New("fragment contains null byte")
)

// NormalizeFragment returns the routable form of a navigation target.
//
// One leading "#" or "/" is removed, and so is trailing whitespace:
//
//	"#page/2"   → "page/2"
//	"/page/2 "  → "page/2"
//	""          → ""
//
// Fragments containing a backslash or a NUL byte (literal or %00) are rejected.
func NormalizeFragment(fragment string) (string, error) {
	if strings.Contains(fragment, "\\") {
		return "", ErrBackslashInFragment
	}
	if strings.Contains(fragment, "\x00") || strings.Contains(strings.ToUpper(fragment), "%00") {
		return "", ErrNullByteInFragment
	}

	if strings.HasPrefix(fragment, "#") || strings.HasPrefix(fragment, "/") {
		fragment = fragment[1:]
	}
	return strings.TrimRight(fragment, " \t\r\n"), nil
}

// SplitPathAndQuery splits a fragment into path and query components.
// The query is returned without the leading "?".
func SplitPathAndQuery(input string) (path, query string) {
	path, query, _ = strings.Cut(input, "?")
	return path, query
}

// DecodeSegment percent-decodes a captured parameter. Values with invalid
// escapes are returned unchanged.
func DecodeSegment(segment string) string {
	if !strings.Contains(segment, "%") {
		return segment
	}
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return segment
	}
	return decoded
}
