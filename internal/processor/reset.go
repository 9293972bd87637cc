package processor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/aa/internal/ident"
	"github.com/randalmurphal/aa/internal/remote"
)

// Strip is a task whose leading identifier a reset removes.
type Strip struct {
	TaskID  string
	OldName string
	NewName string
	// Removed is the identifier text taken off the name, of any project code.
	Removed string
}

// planStrips lists every task in tree whose name starts with an identifier,
// in walk order.
func planStrips(tree *Tree) []Strip {
	var plan []Strip
	tree.Walk(func(n *Node) {
		rest, removed, ok := ident.Strip(n.Task.Name)
		if !ok {
			return
		}
		plan = append(plan, Strip{TaskID: n.Task.ID, OldName: n.Task.Name, NewName: rest, Removed: removed})
	})
	return plan
}

// PlanReset fetches the whole tree of projectID and lists the tasks whose
// leading identifier a reset would remove.
func (p *Processor) PlanReset(ctx context.Context, projectID string) ([]Strip, error) {
	tree, err := Snapshot(ctx, p.src, projectID, p.config.MaxDepth, p.config.Fanout)
	if err != nil {
		return nil, err
	}
	return planStrips(tree), nil
}

// ApplyReset renames every planned task. Failures of single tasks are
// collected; unauthorized errors and cancellation stop the reset.
func (p *Processor) ApplyReset(ctx context.Context, plan []Strip) (int, []*BranchError, error) {
	var (
		mu       sync.Mutex
		done     int
		failures []*BranchError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Fanout)
	for _, s := range plan {
		g.Go(func() error {
			err := p.src.RenameTask(gctx, s.TaskID, s.NewName)
			if err != nil && remote.IsFatal(err) {
				return fmt.Errorf("rename task %s: %w", s.TaskID, err)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				id, _ := ident.Parse(s.Removed)
				failures = append(failures, &BranchError{TaskID: s.TaskID, TaskName: s.OldName, Identifier: id, Err: err})
				p.logger.Warn("reset failed", "task_id", s.TaskID, "error", err)
				return nil
			}
			done++
			return nil
		})
	}
	err := g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].TaskID < failures[j].TaskID })
	return done, failures, err
}
