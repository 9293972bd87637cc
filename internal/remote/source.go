// Package remote defines the task source port that the processor reads and
// renames tasks through, together with the error taxonomy, retry loop and
// request limiter shared by every backend (Asana, Jira).
package remote

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// ProviderType identifies which remote service backs a task source.
type ProviderType string

const (
	ProviderAsana ProviderType = "asana"
	ProviderJira  ProviderType = "jira"
)

// UnknownSubtasks marks a task whose subtask count was not reported.
const UnknownSubtasks = -1

// Task is one node of a project's task tree as seen remotely.
type Task struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	ParentID  string    `json:"parent_id,omitempty"`
	// NumSubtasks is the reported child count, or UnknownSubtasks.
	// A zero count lets traversal skip the subtask listing call.
	NumSubtasks int `json:"num_subtasks"`
}

// MayHaveSubtasks reports whether a subtask listing could return anything.
func (t Task) MayHaveSubtasks() bool {
	return t.NumSubtasks != 0
}

// TaskSource is the interface every remote backend implements.
// Listings are returned in creation order, oldest first.
type TaskSource interface {
	ListRootTasks(ctx context.Context, projectID string) ([]Task, error)
	ListSubtasks(ctx context.Context, taskID string) ([]Task, error)
	RenameTask(ctx context.Context, taskID, name string) error

	// CheckAuth verifies the credential with a cheap authenticated call.
	CheckAuth(ctx context.Context) error
	Name() ProviderType
}

// SortByCreation orders tasks by creation time, oldest first, breaking ties
// by ID so the order is reproducible.
func SortByCreation(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// Config holds what a backend needs to connect.
type Config struct {
	Provider ProviderType
	Token    string
	// BaseURL overrides the service endpoint (Jira site URL, Asana API root).
	BaseURL string
	// Email is the Jira account the API token belongs to.
	Email      string
	HTTPClient *http.Client
}

// NewSourceFunc constructs a task source. Backends register one at init time
// so this package does not import them.
type NewSourceFunc func(cfg Config) (TaskSource, error)

var sourceConstructors = map[ProviderType]NewSourceFunc{}

// RegisterProvider registers a backend constructor.
func RegisterProvider(provider ProviderType, constructor NewSourceFunc) {
	sourceConstructors[provider] = constructor
}

// NewSource builds the task source for cfg.Provider. An empty provider means Asana.
func NewSource(cfg Config) (TaskSource, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderAsana
	}
	constructor, ok := sourceConstructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("no task source registered for %q (registered: %v)", cfg.Provider, registeredProviders())
	}
	return constructor(cfg)
}

func registeredProviders() []string {
	names := make([]string, 0, len(sourceConstructors))
	for k := range sourceConstructors {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}
