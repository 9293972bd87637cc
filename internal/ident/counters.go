package ident

import (
	"fmt"
	"sort"
)

// Counters holds the highest number allocated in each bucket of one project.
// LastRoot is the root bucket; Subtasks maps a parent key ("5", "12-2") to the
// highest child number allocated under that parent.
type Counters struct {
	LastRoot int            `yaml:"last_root" json:"last_root"`
	Subtasks map[string]int `yaml:"subtasks" json:"subtasks"`
}

// NewCounters returns empty counters.
func NewCounters() *Counters {
	return &Counters{Subtasks: make(map[string]int)}
}

// Clone returns a deep copy, used for dry runs.
func (c *Counters) Clone() *Counters {
	out := &Counters{LastRoot: c.LastRoot, Subtasks: make(map[string]int, len(c.Subtasks))}
	for k, v := range c.Subtasks {
		out.Subtasks[k] = v
	}
	return out
}

// NextRoot returns the next root identifier for code. It does not mutate c.
func (c *Counters) NextRoot(code string) Identifier {
	return New(code, c.LastRoot+1)
}

// NextChild returns the next child identifier under parent. It does not mutate c.
func (c *Counters) NextChild(parent Identifier) Identifier {
	return parent.Child(c.Subtasks[parent.Key()] + 1)
}

// Commit records id as allocated. Counters only move up, so committing the
// same identifier twice is a no-op.
func (c *Counters) Commit(id Identifier) {
	switch {
	case id.IsZero():
		return
	case id.Depth() == 1:
		if id.Last() > c.LastRoot {
			c.LastRoot = id.Last()
		}
	default:
		if c.Subtasks == nil {
			c.Subtasks = make(map[string]int)
		}
		key := id.ParentKey()
		if id.Last() > c.Subtasks[key] {
			c.Subtasks[key] = id.Last()
		}
	}
}

// Bucket returns the cached counter for a bucket key ("" is the root bucket).
func (c *Counters) Bucket(key string) int {
	if key == "" {
		return c.LastRoot
	}
	return c.Subtasks[key]
}

// raise sets a bucket to n if n is higher than its current value.
func (c *Counters) raise(key string, n int) bool {
	if n <= c.Bucket(key) {
		return false
	}
	if key == "" {
		c.LastRoot = n
		return true
	}
	if c.Subtasks == nil {
		c.Subtasks = make(map[string]int)
	}
	c.Subtasks[key] = n
	return true
}

// Validate checks that counters are non-negative and every subtask key is a
// well-formed parent path. A key whose root is above LastRoot is accepted:
// files written by older versions can contain one.
func (c *Counters) Validate() error {
	if c.LastRoot < 0 {
		return fmt.Errorf("last_root must be >= 0, got %d", c.LastRoot)
	}
	keys := make([]string, 0, len(c.Subtasks))
	for k := range c.Subtasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := c.Subtasks[k]
		if v < 0 {
			return fmt.Errorf("subtasks[%q] must be >= 0, got %d", k, v)
		}
		if _, err := ParseKey(k); err != nil {
			return fmt.Errorf("subtasks: %w", err)
		}
	}
	return nil
}
