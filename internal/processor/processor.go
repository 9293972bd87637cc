package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	aaerrors "github.com/randalmurphal/aa/internal/errors"
	"github.com/randalmurphal/aa/internal/ident"
	"github.com/randalmurphal/aa/internal/remote"
)

// Config holds processor configuration.
type Config struct {
	MaxDepth int // Deepest accepted nesting (default: 64)
	Fanout   int // Goroutines per sibling group (default: 16)
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth: DefaultMaxDepth,
		Fanout:   DefaultFanout,
	}
}

// Options select how a pass treats conflicts and remote state.
type Options struct {
	// DryRun reports assignments without renaming tasks or touching the
	// caller's counters.
	DryRun bool
	// IgnoreConflicts resolves stale-cache conflicts by raising counters.
	// Duplicates always abort.
	IgnoreConflicts bool
}

// Processor assigns identifiers to the tasks of one project at a time.
type Processor struct {
	config *Config
	src    remote.TaskSource
	logger *slog.Logger
}

// New creates a processor reading and renaming through src. src should be
// wrapped with remote.Guarded so calls are rate limited and retried.
func New(cfg *Config, src remote.TaskSource, logger *slog.Logger) *Processor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	cfg = &c
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = DefaultFanout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{config: cfg, src: src, logger: logger}
}

// Scan snapshots the project, detects conflicts against counters and applies
// the conflict policy. On success counters are raised to cover every
// identifier seen remotely. On a policy failure the returned ScanResult still
// lists the conflicts and counters are left untouched.
func (p *Processor) Scan(ctx context.Context, project Project, counters *ident.Counters, ignoreConflicts bool) (*ScanResult, error) {
	logger := p.logger.With("project", project.Code)

	tree, err := Snapshot(ctx, p.src, project.ID, p.config.MaxDepth, p.config.Fanout)
	if err != nil {
		return nil, p.projectError(project, err)
	}

	observed := Observe(tree, project.Code)
	conflicts := ident.DetectConflicts(observed, counters)
	sr := &ScanResult{
		Project:      project,
		Tree:         tree,
		Observations: observed,
		Conflicts:    conflicts,
		Counters:     counters,
	}
	logger.Info("project scanned",
		"tasks", tree.Size(),
		"identified", len(observed),
		"conflicts", len(conflicts))

	if err := ident.CheckPolicy(project.Code, conflicts, ignoreConflicts); err != nil {
		return sr, err
	}
	for _, c := range conflicts {
		logger.Warn("stale counter raised", "conflict", c.String())
	}
	sr.Raised = ident.Reconcile(counters, observed)
	return sr, nil
}

// Allocate numbers every unidentified task in the scanned tree. Siblings are
// numbered in creation order, each allocation committed to the counters
// before the next sibling is considered. A failed rename is recorded as a
// BranchError and that task's subtasks are skipped; other branches go on.
// Unauthorized errors and cancellation abort the pass.
func (p *Processor) Allocate(ctx context.Context, sr *ScanResult, dryRun bool) (*Result, error) {
	r := &allocation{
		p:      p,
		code:   sr.Project.Code,
		dryRun: dryRun,
		logger: p.logger.With("project", sr.Project.Code),
		result: &Result{
			Project:   sr.Project,
			DryRun:    dryRun,
			Conflicts: sr.Conflicts,
			Counters:  sr.Counters,
		},
	}

	err := r.group(ctx, ident.Identifier{}, sr.Tree.Roots)
	r.result.sort()
	if err != nil {
		return r.result, p.projectError(sr.Project, err)
	}

	r.logger.Info("project processed",
		"assigned", len(r.result.Assigned),
		"skipped", r.result.Skipped,
		"failed", len(r.result.Failures),
		"dry_run", dryRun)
	return r.result, nil
}

// ProcessProject runs Scan and then Allocate for one project. In dry-run
// mode it works on a copy of counters.
func (p *Processor) ProcessProject(ctx context.Context, project Project, counters *ident.Counters, opts Options) (*Result, error) {
	if opts.DryRun {
		counters = counters.Clone()
	}
	sr, err := p.Scan(ctx, project, counters, opts.IgnoreConflicts)
	if err != nil {
		return nil, err
	}
	return p.Allocate(ctx, sr, opts.DryRun)
}

// Observe collects the identifiers carrying code from every task in tree.
func Observe(tree *Tree, code string) []ident.Observation {
	var observed []ident.Observation
	tree.Walk(func(n *Node) {
		if id, ok := ident.Extract(n.Task.Name, code); ok {
			observed = append(observed, ident.Observation{TaskID: n.Task.ID, Identifier: id})
		}
	})
	return observed
}

// projectError converts a failure that aborted a project into an AaError.
func (p *Processor) projectError(project Project, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if aaErr := aaerrors.AsAaError(err); aaErr != nil {
		return err
	}
	if remote.KindOf(err) == remote.KindUnauthorized {
		return aaerrors.ErrRemoteUnauthorized(string(p.src.Name())).WithCause(err)
	}
	return aaerrors.ErrRemoteFailed(project.Code).WithCause(err)
}

// allocation is the state of one Allocate call. The counters are shared by
// every branch; each branch only writes the bucket of its own parent, but
// the map itself still needs the mutex.
type allocation struct {
	p      *Processor
	code   string
	dryRun bool
	logger *slog.Logger

	mu     sync.Mutex
	result *Result
}

// pending is a sibling together with the identifier it ends up with.
type pending struct {
	node  *Node
	id    ident.Identifier
	fresh bool
}

// group handles one sibling group under parent (zero for root tasks).
func (r *allocation) group(ctx context.Context, parent ident.Identifier, nodes []*Node) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	siblings := r.number(parent, nodes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.p.config.Fanout)
	for _, s := range siblings {
		g.Go(func() error {
			if s.fresh {
				ok, err := r.rename(gctx, s)
				if err != nil || !ok {
					return err
				}
			}
			return r.group(gctx, s.id, s.node.Children)
		})
	}
	return g.Wait()
}

// number decides every sibling's identifier in creation order. Existing
// identifiers are kept; the rest get the next free number, committed
// immediately so the following sibling sees it.
func (r *allocation) number(parent ident.Identifier, nodes []*Node) []pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	counters := r.result.Counters
	siblings := make([]pending, 0, len(nodes))
	for _, n := range nodes {
		if id, ok := ident.Extract(n.Task.Name, r.code); ok {
			r.result.Skipped++
			siblings = append(siblings, pending{node: n, id: id})
			continue
		}
		var id ident.Identifier
		if parent.IsZero() {
			id = counters.NextRoot(r.code)
		} else {
			id = counters.NextChild(parent)
		}
		counters.Commit(id)
		siblings = append(siblings, pending{node: n, id: id, fresh: true})
	}
	return siblings
}

// rename prefixes the task name with its new identifier. It reports false
// when the branch failed and must not be descended into.
func (r *allocation) rename(ctx context.Context, s pending) (bool, error) {
	name := ident.Prefix(s.node.Task.Name, s.id)
	a := Assignment{
		TaskID:     s.node.Task.ID,
		OldName:    s.node.Task.Name,
		NewName:    name,
		Identifier: s.id,
	}

	if !r.dryRun {
		if err := r.p.src.RenameTask(ctx, s.node.Task.ID, name); err != nil {
			if remote.IsFatal(err) {
				return false, fmt.Errorf("rename task %s: %w", s.node.Task.ID, err)
			}
			r.logger.Warn("rename failed, skipping subtasks",
				"task_id", s.node.Task.ID,
				"identifier", s.id.String(),
				"error", err)
			r.mu.Lock()
			r.result.Failures = append(r.result.Failures, &BranchError{
				TaskID:     s.node.Task.ID,
				TaskName:   s.node.Task.Name,
				Identifier: s.id,
				Err:        err,
			})
			r.mu.Unlock()
			return false, nil
		}
		r.logger.Debug("task renamed", "task_id", s.node.Task.ID, "identifier", s.id.String())
	}

	r.mu.Lock()
	r.result.Assigned = append(r.result.Assigned, a)
	r.mu.Unlock()
	return true, nil
}
