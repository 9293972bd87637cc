package remote

import (
	"context"
	"log/slog"
)

// guarded wraps a TaskSource so every call goes through the shared limiter
// and the retry policy. A retry never holds a limiter slot while it waits.
type guarded struct {
	src     TaskSource
	limiter *Limiter
	policy  Policy
	logger  *slog.Logger
}

// Guarded decorates src with limiter and retry handling.
func Guarded(src TaskSource, limiter *Limiter, policy Policy, logger *slog.Logger) TaskSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &guarded{src: src, limiter: limiter, policy: policy, logger: logger}
}

func (g *guarded) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return Retry(ctx, g.policy, g.logger, op, func(ctx context.Context) error {
		return g.limiter.Do(ctx, fn)
	})
}

func (g *guarded) ListRootTasks(ctx context.Context, projectID string) ([]Task, error) {
	var tasks []Task
	err := g.call(ctx, "list root tasks", func(ctx context.Context) error {
		var err error
		tasks, err = g.src.ListRootTasks(ctx, projectID)
		return err
	})
	return tasks, err
}

func (g *guarded) ListSubtasks(ctx context.Context, taskID string) ([]Task, error) {
	var tasks []Task
	err := g.call(ctx, "list subtasks", func(ctx context.Context) error {
		var err error
		tasks, err = g.src.ListSubtasks(ctx, taskID)
		return err
	})
	return tasks, err
}

func (g *guarded) RenameTask(ctx context.Context, taskID, name string) error {
	return g.call(ctx, "rename task", func(ctx context.Context) error {
		return g.src.RenameTask(ctx, taskID, name)
	})
}

func (g *guarded) CheckAuth(ctx context.Context) error {
	return g.call(ctx, "check auth", g.src.CheckAuth)
}

func (g *guarded) Name() ProviderType {
	return g.src.Name()
}
