package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/aa/internal/remote"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeSource is an in-memory task source. Listings return tasks in insertion
// order, not creation order, so tests see the processor do its own sorting.
type fakeSource struct {
	mu       sync.Mutex
	tasks    map[string]*remote.Task
	roots    map[string][]string
	children map[string][]string
	clock    int

	renameErr   map[string]error
	listErr     map[string]error
	renames     map[string]string
	renameOrder []string
	listCalls   map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		tasks:     make(map[string]*remote.Task),
		roots:     make(map[string][]string),
		children:  make(map[string][]string),
		renameErr: make(map[string]error),
		listErr:   make(map[string]error),
		renames:   make(map[string]string),
		listCalls: make(map[string]int),
	}
}

// add creates a task. Every call gets a later creation time than the last
// unless at is non-zero.
func (f *fakeSource) add(projectID, parentID, id, name string, at time.Time) {
	f.clock++
	if at.IsZero() {
		at = baseTime.Add(time.Duration(f.clock) * time.Minute)
	}
	f.tasks[id] = &remote.Task{ID: id, Name: name, CreatedAt: at, ParentID: parentID, NumSubtasks: remote.UnknownSubtasks}
	if parentID == "" {
		f.roots[projectID] = append(f.roots[projectID], id)
	} else {
		f.children[parentID] = append(f.children[parentID], id)
	}
}

func (f *fakeSource) root(projectID, id, name string) {
	f.add(projectID, "", id, name, time.Time{})
}

func (f *fakeSource) sub(parentID, id, name string) {
	f.add("", parentID, id, name, time.Time{})
}

func (f *fakeSource) list(ids []string) []remote.Task {
	out := make([]remote.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.tasks[id])
	}
	return out
}

func (f *fakeSource) ListRootTasks(_ context.Context, projectID string) ([]remote.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls[projectID]++
	if err := f.listErr[projectID]; err != nil {
		return nil, err
	}
	if _, ok := f.roots[projectID]; !ok {
		return nil, &remote.Error{Kind: remote.KindNotFound, Op: "list root tasks", Status: 404}
	}
	return f.list(f.roots[projectID]), nil
}

func (f *fakeSource) ListSubtasks(_ context.Context, taskID string) ([]remote.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls[taskID]++
	if err := f.listErr[taskID]; err != nil {
		return nil, err
	}
	return f.list(f.children[taskID]), nil
}

func (f *fakeSource) RenameTask(_ context.Context, taskID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.renameErr[taskID]; err != nil {
		return err
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return &remote.Error{Kind: remote.KindNotFound, Op: "rename task", Status: 404}
	}
	t.Name = name
	f.renames[taskID] = name
	f.renameOrder = append(f.renameOrder, taskID)
	return nil
}

func (f *fakeSource) CheckAuth(context.Context) error { return nil }

func (f *fakeSource) Name() remote.ProviderType { return remote.ProviderAsana }

func (f *fakeSource) name(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id].Name
}

func (f *fakeSource) renamed() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.renames))
	for k, v := range f.renames {
		out[k] = v
	}
	return out
}

func transient(op string) error {
	return &remote.Error{Kind: remote.KindTransient, Op: op, Status: 503, Err: fmt.Errorf("service unavailable")}
}

func unauthorized(op string) error {
	return &remote.Error{Kind: remote.KindUnauthorized, Op: op, Status: 401}
}
