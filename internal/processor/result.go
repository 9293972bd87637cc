package processor

import (
	"fmt"
	"sort"

	"github.com/randalmurphal/aa/internal/ident"
)

// Project is one configured project: its identifier code and remote ID.
type Project struct {
	Code string
	ID   string
}

// Assignment is an identifier given to a task during a pass.
type Assignment struct {
	TaskID     string
	OldName    string
	NewName    string
	Identifier ident.Identifier
}

// BranchError records a task whose rename failed. Its subtasks were not
// visited.
type BranchError struct {
	TaskID     string
	TaskName   string
	Identifier ident.Identifier
	Err        error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("task %s (%s): %v", e.TaskID, e.Identifier, e.Err)
}

func (e *BranchError) Unwrap() error {
	return e.Err
}

// ScanResult is the outcome of the scan phase for one project.
type ScanResult struct {
	Project      Project
	Tree         *Tree
	Observations []ident.Observation
	Conflicts    []ident.Conflict
	// Raised is the number of counter buckets raised to match remote state.
	Raised int
	// Counters are the project's counters after reconciliation.
	Counters *ident.Counters
}

// Result is the outcome of one allocation pass over a project.
type Result struct {
	Project  Project
	DryRun   bool
	Assigned []Assignment
	Skipped  int
	// Conflicts holds stale-cache conflicts that were resolved by override.
	Conflicts []ident.Conflict
	Failures  []*BranchError
	Counters  *ident.Counters
}

// Conflicted returns the number of conflicts the pass went past.
func (r *Result) Conflicted() int {
	return len(r.Conflicts)
}

// sort orders assignments and failures by identifier so reports are stable
// regardless of the order concurrent branches finished in.
func (r *Result) sort() {
	sort.Slice(r.Assigned, func(i, j int) bool {
		return ident.Less(r.Assigned[i].Identifier, r.Assigned[j].Identifier)
	})
	sort.Slice(r.Failures, func(i, j int) bool {
		return ident.Less(r.Failures[i].Identifier, r.Failures[j].Identifier)
	})
}
