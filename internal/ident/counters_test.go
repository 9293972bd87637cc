package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters_NextIsPure(t *testing.T) {
	c := NewCounters()
	assert.Equal(t, "PRJ-1", c.NextRoot("PRJ").String())
	assert.Equal(t, "PRJ-1", c.NextRoot("PRJ").String())

	parent := New("PRJ", 1)
	assert.Equal(t, "PRJ-1-1", c.NextChild(parent).String())
	assert.Equal(t, "PRJ-1-1", c.NextChild(parent).String())
	assert.Equal(t, 0, c.LastRoot)
	assert.Empty(t, c.Subtasks)
}

func TestCounters_NextThenCommit(t *testing.T) {
	c := NewCounters()
	for want := 1; want <= 3; want++ {
		id := c.NextRoot("PRJ")
		assert.Equal(t, want, id.Root())
		c.Commit(id)
	}
	assert.Equal(t, 3, c.LastRoot)

	parent := New("PRJ", 2)
	first := c.NextChild(parent)
	c.Commit(first)
	second := c.NextChild(parent)
	c.Commit(second)
	assert.Equal(t, "PRJ-2-1", first.String())
	assert.Equal(t, "PRJ-2-2", second.String())
	assert.Equal(t, 2, c.Subtasks["2"])

	grand := c.NextChild(second)
	c.Commit(grand)
	assert.Equal(t, "PRJ-2-2-1", grand.String())
	assert.Equal(t, 1, c.Subtasks["2-2"])
}

func TestCounters_CommitIsIdempotentAndMonotone(t *testing.T) {
	c := NewCounters()
	c.Commit(New("PRJ", 5))
	c.Commit(New("PRJ", 5))
	assert.Equal(t, 5, c.LastRoot)

	c.Commit(New("PRJ", 3))
	assert.Equal(t, 5, c.LastRoot, "commit must never lower a counter")

	c.Commit(New("PRJ", 5, 4))
	c.Commit(New("PRJ", 5, 2))
	assert.Equal(t, 4, c.Subtasks["5"])

	c.Commit(Identifier{})
	assert.Equal(t, 5, c.LastRoot)
}

func TestCounters_CommitNilMap(t *testing.T) {
	c := &Counters{LastRoot: 1}
	c.Commit(New("PRJ", 1, 1))
	assert.Equal(t, 1, c.Subtasks["1"])
}

func TestCounters_Clone(t *testing.T) {
	c := NewCounters()
	c.Commit(New("PRJ", 2))
	c.Commit(New("PRJ", 2, 1))

	clone := c.Clone()
	clone.Commit(New("PRJ", 3))
	clone.Commit(New("PRJ", 2, 2))

	assert.Equal(t, 2, c.LastRoot)
	assert.Equal(t, 1, c.Subtasks["2"])
	assert.Equal(t, 3, clone.LastRoot)
	assert.Equal(t, 2, clone.Subtasks["2"])
}

func TestCounters_Bucket(t *testing.T) {
	c := &Counters{LastRoot: 7, Subtasks: map[string]int{"3": 2}}
	assert.Equal(t, 7, c.Bucket(""))
	assert.Equal(t, 2, c.Bucket("3"))
	assert.Equal(t, 0, c.Bucket("4"))
}

func TestCounters_Validate(t *testing.T) {
	valid := &Counters{LastRoot: 5, Subtasks: map[string]int{"5": 2, "1-3": 1}}
	require.NoError(t, valid.Validate())
	require.NoError(t, NewCounters().Validate())
	require.NoError(t, (&Counters{LastRoot: 2, Subtasks: map[string]int{"3": 1}}).Validate())

	tests := []struct {
		name string
		c    *Counters
	}{
		{"negative root", &Counters{LastRoot: -1}},
		{"negative subtask", &Counters{LastRoot: 1, Subtasks: map[string]int{"1": -2}}},
		{"bad key", &Counters{LastRoot: 1, Subtasks: map[string]int{"x": 1}}},
		{"zero component", &Counters{LastRoot: 1, Subtasks: map[string]int{"1-0": 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.c.Validate())
		})
	}
}
