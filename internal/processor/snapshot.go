// Package processor walks a project's task tree and assigns hierarchical
// identifiers to tasks that do not have one yet.
//
// A pass has two phases. Scan fetches the whole tree, compares the
// identifiers already present against the cached counters and applies the
// conflict policy. Allocate then numbers every unidentified task in creation
// order and renames it. Nothing is renamed before the scan of the project
// succeeded.
package processor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/aa/internal/remote"
)

// DefaultMaxDepth is the deepest task nesting a snapshot accepts.
const DefaultMaxDepth = 64

// DefaultFanout caps concurrent goroutines per sibling group. Requests are
// bounded separately by the remote limiter.
const DefaultFanout = 16

// Node is a task together with its subtasks.
type Node struct {
	Task     remote.Task
	Children []*Node
	// Depth is 1 for root tasks.
	Depth int
}

// Tree is a complete snapshot of one project's tasks.
type Tree struct {
	ProjectID string
	Roots     []*Node
}

// Walk visits every node depth-first, parents before children, siblings in
// creation order.
func (t *Tree) Walk(fn func(n *Node)) {
	var visit func(nodes []*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			fn(n)
			visit(n.Children)
		}
	}
	visit(t.Roots)
}

// Size returns the number of tasks in the tree.
func (t *Tree) Size() int {
	count := 0
	t.Walk(func(*Node) { count++ })
	return count
}

// Snapshot fetches every task of a project, one subtask listing per node.
// Levels are fetched breadth first with listings of one level running
// concurrently. Any listing that still fails after retries fails the whole
// snapshot: allocating against a partial view could hand out numbers that
// are already taken.
func Snapshot(ctx context.Context, src remote.TaskSource, projectID string, maxDepth, fanout int) (*Tree, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if fanout <= 0 {
		fanout = DefaultFanout
	}

	roots, err := src.ListRootTasks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list root tasks of %s: %w", projectID, err)
	}
	tree := &Tree{ProjectID: projectID, Roots: newNodes(roots, 1)}

	level := tree.Roots
	for depth := 1; len(level) > 0; depth++ {
		if depth > maxDepth {
			return nil, fmt.Errorf("project %s: task tree is deeper than %d levels (task %s)",
				projectID, maxDepth, level[0].Task.ID)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(fanout)
		for _, n := range level {
			if !n.Task.MayHaveSubtasks() {
				continue
			}
			g.Go(func() error {
				children, err := src.ListSubtasks(gctx, n.Task.ID)
				if err != nil {
					return fmt.Errorf("list subtasks of %s: %w", n.Task.ID, err)
				}
				n.Children = newNodes(children, depth+1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []*Node
		for _, n := range level {
			next = append(next, n.Children...)
		}
		level = next
	}
	return tree, nil
}

// newNodes sorts tasks by creation time and wraps them as nodes.
func newNodes(tasks []remote.Task, depth int) []*Node {
	sorted := append([]remote.Task(nil), tasks...)
	remote.SortByCreation(sorted)
	nodes := make([]*Node, len(sorted))
	for i, t := range sorted {
		nodes[i] = &Node{Task: t, Depth: depth}
	}
	return nodes
}
