package ident

import "strings"

// Extract returns the identifier at the start of name when its code equals
// code. A name that starts with another project's identifier yields false:
// cross-project prefixes are never treated as a match.
func Extract(name, code string) (Identifier, bool) {
	m := identifierPattern.FindStringSubmatch(name)
	if m == nil || m[1] != code {
		return Identifier{}, false
	}
	parts, err := ParseKey(m[2])
	if err != nil {
		// Components that overflow int are not identifiers we issued.
		return Identifier{}, false
	}
	return Identifier{Code: code, Parts: parts}, true
}

// Has reports whether name starts with an identifier for code.
func Has(name, code string) bool {
	_, ok := Extract(name, code)
	return ok
}

// Strip removes a leading identifier of any project code from name.
// It returns the remaining name with surrounding whitespace trimmed, the
// removed identifier text, and whether anything was removed.
func Strip(name string) (rest, removed string, ok bool) {
	m := identifierPattern.FindStringSubmatch(name)
	if m == nil {
		return name, "", false
	}
	return strings.TrimSpace(name[len(m[0]):]), m[1] + "-" + m[2], true
}

// Prefix returns name with id prepended, or id alone when name is blank.
func Prefix(name string, id Identifier) string {
	if strings.TrimSpace(name) == "" {
		return id.String()
	}
	return id.String() + " " + name
}

// FindMaxRoot returns the highest root number among ids, or 0 when empty.
func FindMaxRoot(ids []Identifier) int {
	maxRoot := 0
	for _, id := range ids {
		if r := id.Root(); r > maxRoot {
			maxRoot = r
		}
	}
	return maxRoot
}
