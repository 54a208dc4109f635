package filter

import "strings"

// Param is a single positional route parameter.
// Present is false when an optional segment did not match.
type Param struct {
	Value   string
	Present bool
}

// Value returns a present parameter.
func Value(s string) Param {
	return Param{Value: s, Present: true}
}

// Missing returns a parameter for an unmatched optional segment.
func Missing() Param {
	return Param{}
}

// Params is the ordered parameter list extracted from a matched route.
type Params []Param

// StringParams builds Params where every value is present.
func StringParams(values ...string) Params {
	params := make(Params, len(values))
	for i, v := range values {
		params[i] = Value(v)
	}
	return params
}

// Get returns the i-th parameter and whether it is present.
// Out of range indexes report false.
func (p Params) Get(i int) (string, bool) {
	if i < 0 || i >= len(p) {
		return "", false
	}
	return p[i].Value, p[i].Present
}

// Strings returns the parameter values, with missing ones as "".
func (p Params) Strings() []string {
	out := make([]string, len(p))
	for i, param := range p {
		out[i] = param.Value
	}
	return out
}

// String joins the values with commas, e.g. "2," for a present id and a
// missing optional segment.
func (p Params) String() string {
	return strings.Join(p.Strings(), ",")
}

// Equal reports whether p and o hold the same parameters.
func (p Params) Equal(o Params) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}
