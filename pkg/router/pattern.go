package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vango-dev/routefilter/pkg/filter"
	"github.com/vango-dev/routefilter/pkg/routepath"
)

// Pattern is a compiled route pattern.
type Pattern struct {
	raw   string
	re    *regexp.Regexp
	names []string
}

// CompilePattern compiles a route pattern.
//
// Syntax:
//   - ":name" matches one segment (no "/" or "?")
//   - "*name" matches the rest of the fragment up to an optional query string
//   - "( … )" makes the enclosed part optional; groups may nest
//
// Everything else matches literally.
func CompilePattern(pattern string) (*Pattern, error) {
	var (
		b     strings.Builder
		names []string
		depth int
	)
	b.WriteString("^")

	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch c {
		case '(':
			depth++
			b.WriteString("(?:")
			i++
		case ')':
			if depth == 0 {
				return nil, fmt.Errorf("%w: %q: unbalanced ')' at %d", ErrInvalidPattern, pattern, i)
			}
			depth--
			b.WriteString(")?")
			i++
		case ':', '*':
			name, n := readName(pattern[i+1:])
			if c == ':' && name == "" {
				return nil, fmt.Errorf("%w: %q: parameter without name at %d", ErrInvalidPattern, pattern, i)
			}
			names = append(names, name)
			if c == ':' {
				b.WriteString("([^/?]+)")
			} else {
				b.WriteString("([^?]*?)")
			}
			i += 1 + n
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: %q: unbalanced '('", ErrInvalidPattern, pattern)
	}

	// Trailing query strings are accepted and ignored.
	b.WriteString(`(?:\?[\s\S]*)?$`)

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}
	return &Pattern{raw: pattern, re: re, names: names}, nil
}

// readName returns the identifier at the start of s and its length.
func readName(s string) (string, int) {
	n := 0
	for n < len(s) && isNameByte(s[n]) {
		n++
	}
	return s[:n], n
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// String returns the pattern source.
func (p *Pattern) String() string { return p.raw }

// Names returns the parameter names in positional order. Unnamed splats are "".
func (p *Pattern) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Match reports whether fragment matches and returns the positional params.
// Optional groups that did not take part in the match yield missing params.
func (p *Pattern) Match(fragment string) (filter.Params, bool) {
	idx := p.re.FindStringSubmatchIndex(fragment)
	if idx == nil {
		return nil, false
	}

	params := make(filter.Params, len(p.names))
	for i := range p.names {
		start, end := idx[2*(i+1)], idx[2*(i+1)+1]
		if start < 0 {
			params[i] = filter.Missing()
			continue
		}
		params[i] = filter.Value(routepath.DecodeSegment(fragment[start:end]))
	}
	return params, true
}
