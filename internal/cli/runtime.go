package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/aa/internal/cache"
	"github.com/randalmurphal/aa/internal/config"
	aaerrors "github.com/randalmurphal/aa/internal/errors"
	"github.com/randalmurphal/aa/internal/lock"
	"github.com/randalmurphal/aa/internal/processor"
	"github.com/randalmurphal/aa/internal/remote"
)

// runtime is what a command that talks to the remote service needs.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	source  remote.TaskSource
	limiter *remote.Limiter
}

// loadRuntime loads and validates the config, then builds the rate limited
// task source for the configured provider.
func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	return newRuntime(cmd, cfg)
}

func newRuntime(cmd *cobra.Command, cfg *config.Config) (*runtime, error) {
	logger := newLogger(cmd.ErrOrStderr())
	if len(cfg.Overridden) > 0 {
		logger.Debug("config overridden from environment", "fields", cfg.Overridden)
	}

	src, err := remote.NewSource(cfg.Remote())
	if err != nil {
		return nil, fmt.Errorf("create task source: %w", err)
	}

	concurrency := viper.GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Concurrency
	}
	limiter := remote.NewLimiter(concurrency, cfg.RequestsPerMinute)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		source:  remote.Guarded(src, limiter, remote.DefaultPolicy(), logger),
		limiter: limiter,
	}, nil
}

// checkAuth fails fast on a bad credential before any project is touched.
func (rt *runtime) checkAuth(ctx context.Context) error {
	err := rt.source.CheckAuth(ctx)
	switch {
	case err == nil:
		return nil
	case remote.KindOf(err) == remote.KindUnauthorized:
		return aaerrors.ErrRemoteUnauthorized(string(rt.source.Name())).WithCause(err)
	default:
		return fmt.Errorf("check %s credentials: %w", rt.source.Name(), err)
	}
}

func (rt *runtime) processor() *processor.Processor {
	return processor.New(nil, rt.source, rt.logger)
}

// openCache takes the run guard for the counter cache and opens it. The
// returned release function closes the store and drops the guard.
func openCache() (cache.Store, func(), error) {
	path := cacheFile()
	if path == "" {
		path = cache.DefaultPath
	}

	guard := lock.NewRunGuard(path)
	if err := guard.Acquire(); err != nil {
		var running *lock.AlreadyRunningError
		if errors.As(err, &running) {
			return nil, nil, aaerrors.ErrAlreadyRunning(running.PID).WithCause(err)
		}
		return nil, nil, err
	}

	store := cache.Open(path)
	release := func() {
		_ = store.Close()
		guard.Release()
	}
	return store, release, nil
}

// selectProjects resolves --project against the config.
func selectProjects(cfg *config.Config, code string) ([]processor.Project, error) {
	selected, err := cfg.Select(code)
	if err != nil {
		return nil, err
	}
	projects := make([]processor.Project, len(selected))
	for i, p := range selected {
		projects[i] = processor.Project{Code: p.Code, ID: p.ID}
	}
	return projects, nil
}
