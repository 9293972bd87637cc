package processor

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/aa/internal/cache"
	aaerrors "github.com/randalmurphal/aa/internal/errors"
	"github.com/randalmurphal/aa/internal/ident"
)

// Report is the outcome of a run over several projects.
type Report struct {
	// Scans holds one entry per project that finished the scan phase, in
	// configuration order.
	Scans []*ScanResult
	// Results holds one entry per project that reached allocation, in
	// configuration order. Empty for scan-only runs.
	Results []*Result
	// Failed maps project codes to the error that aborted them.
	Failed map[string]error
	// Saved reports whether the counter cache was written.
	Saved bool
}

// BranchFailures returns the number of failed branches across all projects.
func (r *Report) BranchFailures() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Failures)
	}
	return n
}

// Coordinator runs the processor over several projects concurrently and
// persists the counter cache once at the end of the run.
type Coordinator struct {
	processor *Processor
	store     cache.Store
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(p *Processor, store cache.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{processor: p, store: store, logger: logger}
}

// Scan reconciles the cached counters of every project with the identifiers
// found remotely. Counters of projects whose scan succeeded are saved; a
// project with conflicts (unless ignored) or a remote failure keeps its
// cached counters and is reported in Failed.
func (c *Coordinator) Scan(ctx context.Context, projects []Project, ignoreConflicts bool) (*Report, error) {
	data, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Failed: make(map[string]error)}
	scans, errs := c.scanAll(ctx, projects, data, ignoreConflicts)
	for i, p := range projects {
		if errs[i] != nil {
			report.Failed[p.Code] = errs[i]
			continue
		}
		report.Scans = append(report.Scans, scans[i])
		data.Projects[p.Code] = scans[i].Counters
	}

	if len(report.Scans) > 0 {
		if err := c.store.Save(ctx, data); err != nil {
			return report, err
		}
		report.Saved = true
	}
	return report, joinFailures(projects, report.Failed)
}

// Update runs a full pass. Every project is scanned before any task is
// renamed; a conflict or remote failure in any scan aborts the run without
// changes. Allocation then runs per project. Counters are saved once for all
// projects that finished without a fatal error; a dry run saves nothing.
// Branch failures still save counters but make the run fail.
func (c *Coordinator) Update(ctx context.Context, projects []Project, opts Options) (*Report, error) {
	data, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Failed: make(map[string]error)}
	scans, errs := c.scanAll(ctx, projects, data, opts.IgnoreConflicts)
	for i, p := range projects {
		if errs[i] != nil {
			report.Failed[p.Code] = errs[i]
		} else {
			report.Scans = append(report.Scans, scans[i])
		}
	}
	if len(report.Failed) > 0 {
		c.logger.Warn("scan failed, no tasks renamed", "failed_projects", len(report.Failed))
		return report, joinFailures(projects, report.Failed)
	}

	results := make([]*Result, len(projects))
	allocErrs := make([]error, len(projects))
	var g errgroup.Group
	for i := range projects {
		g.Go(func() error {
			results[i], allocErrs[i] = c.processor.Allocate(ctx, scans[i], opts.DryRun)
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range projects {
		if results[i] != nil {
			report.Results = append(report.Results, results[i])
		}
		if allocErrs[i] != nil {
			report.Failed[p.Code] = allocErrs[i]
			continue
		}
		data.Projects[p.Code] = results[i].Counters
	}

	if !opts.DryRun && len(report.Failed) < len(projects) {
		if err := c.store.Save(ctx, data); err != nil {
			return report, err
		}
		report.Saved = true
	}

	if err := joinFailures(projects, report.Failed); err != nil {
		return report, err
	}
	if n := report.BranchFailures(); n > 0 {
		return report, aaerrors.ErrBranchFailures(n)
	}
	return report, nil
}

// scanAll scans every project concurrently, each against a copy of its
// cached counters. A failing project does not cancel the others. A project
// with no cache entry is checked against empty counters under the same
// conflict policy.
func (c *Coordinator) scanAll(ctx context.Context, projects []Project, data *cache.Data, ignoreConflicts bool) ([]*ScanResult, []error) {
	counters := make([]*ident.Counters, len(projects))
	for i, p := range projects {
		if cached := data.Projects[p.Code]; cached != nil {
			counters[i] = cached.Clone()
		} else {
			counters[i] = ident.NewCounters()
		}
	}

	scans := make([]*ScanResult, len(projects))
	errs := make([]error, len(projects))
	var g errgroup.Group
	for i, p := range projects {
		g.Go(func() error {
			scans[i], errs[i] = c.processor.Scan(ctx, p, counters[i], ignoreConflicts)
			return nil
		})
	}
	_ = g.Wait()
	return scans, errs
}

// joinFailures combines project errors in configuration order.
func joinFailures(projects []Project, failed map[string]error) error {
	var errs []error
	for _, p := range projects {
		if err, ok := failed[p.Code]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
