package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aaerrors "github.com/randalmurphal/aa/internal/errors"
)

func obs(taskID, id string) Observation {
	parsed, err := Parse(id)
	if err != nil {
		panic(err)
	}
	return Observation{TaskID: taskID, Identifier: parsed}
}

func TestDetectConflicts_None(t *testing.T) {
	c := &Counters{LastRoot: 5, Subtasks: map[string]int{"2": 3}}
	observed := []Observation{obs("t1", "PRJ-5"), obs("t2", "PRJ-2-3"), obs("t3", "PRJ-1")}
	assert.Empty(t, DetectConflicts(observed, c))
	assert.Empty(t, DetectConflicts(nil, c))
}

func TestDetectConflicts_StaleRoot(t *testing.T) {
	c := &Counters{LastRoot: 5}
	conflicts := DetectConflicts([]Observation{obs("t1", "PRJ-9"), obs("t2", "PRJ-3")}, c)

	require.Len(t, conflicts, 1)
	got := conflicts[0]
	assert.Equal(t, KindStaleCache, got.Kind)
	assert.Equal(t, "", got.Bucket)
	assert.Equal(t, 9, got.Observed)
	assert.Equal(t, 5, got.Cached)
	assert.Equal(t, []string{"t1"}, got.TaskIDs)
	assert.Contains(t, got.String(), "PRJ-9")
}

func TestDetectConflicts_ImpliedBuckets(t *testing.T) {
	// PRJ-7-2-1 implies root >= 7, bucket "7" >= 2 and bucket "7-2" >= 1.
	c := &Counters{LastRoot: 3}
	conflicts := DetectConflicts([]Observation{obs("t1", "PRJ-7-2-1")}, c)

	require.Len(t, conflicts, 3)
	assert.Equal(t, "", conflicts[0].Bucket)
	assert.Equal(t, 7, conflicts[0].Observed)
	assert.Equal(t, "PRJ-7", conflicts[0].Identifiers[0].String())
	assert.Equal(t, "7", conflicts[1].Bucket)
	assert.Equal(t, "PRJ-7-2", conflicts[1].Identifiers[0].String())
	assert.Equal(t, "7-2", conflicts[2].Bucket)
	assert.Equal(t, "PRJ-7-2-1", conflicts[2].Identifiers[0].String())
}

func TestDetectConflicts_StaleSubtaskOnly(t *testing.T) {
	c := &Counters{LastRoot: 4, Subtasks: map[string]int{"4": 1}}
	conflicts := DetectConflicts([]Observation{obs("t1", "PRJ-4-3")}, c)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "4", conflicts[0].Bucket)
	assert.Equal(t, 3, conflicts[0].Observed)
	assert.Equal(t, 1, conflicts[0].Cached)
	assert.Contains(t, conflicts[0].String(), "PRJ-4 counter is 1")
}

func TestDetectConflicts_Duplicate(t *testing.T) {
	c := &Counters{LastRoot: 5, Subtasks: map[string]int{"1": 2}}
	observed := []Observation{
		obs("t2", "PRJ-1-2"),
		obs("t1", "PRJ-1-2"),
		obs("t3", "PRJ-4"),
		obs("t4", "PRJ-4"),
		// The same task seen twice is not a duplicate.
		obs("t5", "PRJ-5"),
		obs("t5", "PRJ-5"),
	}
	conflicts := DetectConflicts(observed, c)

	require.Len(t, conflicts, 2)
	assert.Equal(t, KindDuplicate, conflicts[0].Kind)
	assert.Equal(t, "PRJ-1-2", conflicts[0].Identifiers[0].String())
	assert.Equal(t, []string{"t1", "t2"}, conflicts[0].TaskIDs)
	assert.Equal(t, "PRJ-4", conflicts[1].Identifiers[0].String())
	assert.True(t, HasKind(conflicts, KindDuplicate))
	assert.False(t, HasKind(conflicts, KindStaleCache))
}

func TestDetectConflicts_StaleBeforeDuplicate(t *testing.T) {
	c := NewCounters()
	conflicts := DetectConflicts([]Observation{obs("a", "PRJ-2"), obs("b", "PRJ-2")}, c)

	require.Len(t, conflicts, 2)
	assert.Equal(t, KindStaleCache, conflicts[0].Kind)
	assert.Equal(t, []string{"a", "b"}, conflicts[0].TaskIDs)
	assert.Equal(t, KindDuplicate, conflicts[1].Kind)
}

func TestReconcile(t *testing.T) {
	c := &Counters{LastRoot: 10, Subtasks: map[string]int{"3": 5}}
	observed := []Observation{obs("a", "PRJ-4"), obs("b", "PRJ-3-2"), obs("c", "PRJ-12-3-1")}

	raised := Reconcile(c, observed)

	assert.Equal(t, 3, raised)
	assert.Equal(t, 12, c.LastRoot)
	assert.Equal(t, 5, c.Subtasks["3"], "reconcile must never lower a counter")
	assert.Equal(t, 3, c.Subtasks["12"])
	assert.Equal(t, 1, c.Subtasks["12-3"])
	require.NoError(t, c.Validate())

	assert.Empty(t, DetectConflicts(observed, c), "reconciled counters cover every observation")
	assert.Equal(t, 0, Reconcile(c, observed))
}

func TestReconcileThenAllocateAvoidsObserved(t *testing.T) {
	c := NewCounters()
	observed := []Observation{obs("a", "PRJ-1"), obs("b", "PRJ-2"), obs("c", "PRJ-2-1")}
	Reconcile(c, observed)

	taken := map[string]bool{}
	for _, o := range observed {
		taken[o.Identifier.String()] = true
	}

	root := c.NextRoot("PRJ")
	assert.False(t, taken[root.String()])
	c.Commit(root)
	child := c.NextChild(New("PRJ", 2))
	assert.False(t, taken[child.String()])
	assert.Equal(t, "PRJ-2-2", child.String())
}

func TestCheckPolicy(t *testing.T) {
	stale := Conflict{Kind: KindStaleCache, Observed: 9, Cached: 5, Identifiers: []Identifier{New("PRJ", 9)}, TaskIDs: []string{"t"}}
	dup := Conflict{Kind: KindDuplicate, Identifiers: []Identifier{New("PRJ", 2)}, TaskIDs: []string{"a", "b"}}

	assert.NoError(t, CheckPolicy("PRJ", nil, false))
	assert.NoError(t, CheckPolicy("PRJ", []Conflict{stale}, true))

	err := CheckPolicy("PRJ", []Conflict{stale}, false)
	require.Error(t, err)
	assert.Equal(t, aaerrors.CodeConflictStale, aaerrors.AsAaError(err).Code)

	err = CheckPolicy("PRJ", []Conflict{stale, dup}, true)
	require.Error(t, err, "duplicates fail even when stale conflicts are ignored")
	assert.Equal(t, aaerrors.CodeConflictDuplicate, aaerrors.AsAaError(err).Code)
}
