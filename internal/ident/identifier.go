// Package ident implements hierarchical task identifiers (PRJ-5, PRJ-5-2-1):
// parsing them out of task names, allocating the next free number in a
// bucket, and checking a set of observed identifiers against cached counters.
//
// Everything here is pure; callers own the Counters they pass in.
package ident

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// identifierPattern matches a project code followed by one or more
// dash-separated positive integers at the start of a task name. The match
// ends at whitespace (Unicode separators included) or end of string.
// Components with leading zeros are rejected so that the rendered identifier
// is always a prefix of the name.
var identifierPattern = regexp.MustCompile(`^([A-Z]{2,5})-([1-9][0-9]*(?:-[1-9][0-9]*)*)(?:[\s\p{Z}\x{85}]|$)`)

var codePattern = regexp.MustCompile(`^[A-Z]{2,5}$`)

// ValidCode reports whether code is 2-5 uppercase ASCII letters.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Identifier is a project code plus a path of positive integers.
// The zero value is not a valid identifier.
type Identifier struct {
	Code  string
	Parts []int
}

// New builds an identifier from a code and its numeric path.
func New(code string, parts ...int) Identifier {
	return Identifier{Code: code, Parts: append([]int(nil), parts...)}
}

// Parse parses a rendered identifier such as "PRJ-5-2".
func Parse(s string) (Identifier, error) {
	m := identifierPattern.FindStringSubmatch(s)
	if m == nil || len(m[0]) != len(s) {
		return Identifier{}, fmt.Errorf("invalid identifier %q", s)
	}
	parts, err := ParseKey(m[2])
	if err != nil {
		return Identifier{}, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	return Identifier{Code: m[1], Parts: parts}, nil
}

// ParseKey parses a bucket key such as "12-2" into its numeric parts.
func ParseKey(key string) ([]int, error) {
	if key == "" {
		return nil, fmt.Errorf("empty key")
	}
	fields := strings.Split(key, "-")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		if f == "" || f[0] == '0' {
			return nil, fmt.Errorf("invalid component %q in key %q", f, key)
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid component %q in key %q", f, key)
		}
		parts = append(parts, n)
	}
	return parts, nil
}

// IsZero reports whether the identifier is unset.
func (id Identifier) IsZero() bool {
	return len(id.Parts) == 0
}

// Depth is the number of numeric components; root tasks have depth 1.
func (id Identifier) Depth() int {
	return len(id.Parts)
}

// Root returns the first component, which selects the root bucket.
func (id Identifier) Root() int {
	if id.IsZero() {
		return 0
	}
	return id.Parts[0]
}

// Last returns the final component.
func (id Identifier) Last() int {
	if id.IsZero() {
		return 0
	}
	return id.Parts[len(id.Parts)-1]
}

// Key renders the numeric path without the code ("5-2" for PRJ-5-2).
// It is the bucket key for this identifier's children.
func (id Identifier) Key() string {
	return joinParts(id.Parts)
}

// ParentKey is the bucket key this identifier was allocated from.
// It is empty for root identifiers.
func (id Identifier) ParentKey() string {
	if id.Depth() < 2 {
		return ""
	}
	return joinParts(id.Parts[:len(id.Parts)-1])
}

// Parent returns the parent identifier, or false for a root identifier.
func (id Identifier) Parent() (Identifier, bool) {
	if id.Depth() < 2 {
		return Identifier{}, false
	}
	return New(id.Code, id.Parts[:len(id.Parts)-1]...), true
}

// Child returns the identifier of the n-th child of id.
func (id Identifier) Child(n int) Identifier {
	parts := make([]int, len(id.Parts), len(id.Parts)+1)
	copy(parts, id.Parts)
	return Identifier{Code: id.Code, Parts: append(parts, n)}
}

// String renders the identifier as CODE-1-2-3.
func (id Identifier) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Code + "-" + id.Key()
}

// Equal reports whether two identifiers render identically.
func (id Identifier) Equal(other Identifier) bool {
	if id.Code != other.Code || len(id.Parts) != len(other.Parts) {
		return false
	}
	for i := range id.Parts {
		if id.Parts[i] != other.Parts[i] {
			return false
		}
	}
	return true
}

func joinParts(parts []int) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

// Less orders identifiers numerically, parents before their children.
func Less(a, b Identifier) bool {
	return compareParts(a.Parts, b.Parts) < 0
}
