package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortByCreation(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []Task{
		{ID: "c", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "b2", CreatedAt: base},
		{ID: "a", CreatedAt: base.Add(time.Minute)},
		{ID: "b1", CreatedAt: base},
	}
	SortByCreation(tasks)

	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	assert.Equal(t, []string{"b1", "b2", "a", "c"}, ids)
}

func TestMayHaveSubtasks(t *testing.T) {
	assert.False(t, Task{NumSubtasks: 0}.MayHaveSubtasks())
	assert.True(t, Task{NumSubtasks: 3}.MayHaveSubtasks())
	assert.True(t, Task{NumSubtasks: UnknownSubtasks}.MayHaveSubtasks())
}

func TestNewSource_Registry(t *testing.T) {
	const fake ProviderType = "fake"
	RegisterProvider(fake, func(cfg Config) (TaskSource, error) {
		return &flakySource{}, nil
	})
	defer delete(sourceConstructors, fake)

	src, err := NewSource(Config{Provider: fake})
	require.NoError(t, err)
	assert.NotNil(t, src)

	_, err = NewSource(Config{Provider: "nope"})
	assert.ErrorContains(t, err, `no task source registered for "nope"`)
}
