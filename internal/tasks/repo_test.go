package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repoContract runs the Repository behaviour every backend must share.
func repoContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	newList := func(title string, created time.Time) TaskList {
		return TaskList{ID: uuid.New(), Title: title, Created: created, Updated: created}
	}
	newTask := func(listID uuid.UUID, title string, created time.Time) Task {
		return Task{
			ID: uuid.New(), TaskListID: listID, Title: title,
			Priority: PriorityMedium, Status: StatusOpen,
			Created: created, Updated: created,
		}
	}

	t.Run("get unknown list", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetTaskList(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save and get list with tasks", func(t *testing.T) {
		repo := newRepo(t)
		list := newList("groceries", base)
		require.NoError(t, repo.SaveTaskList(ctx, list))

		due := base.Add(72 * time.Hour)
		milk := newTask(list.ID, "milk", base.Add(time.Minute))
		milk.DueDate = &due
		milk.Description = "2 litres"
		bread := newTask(list.ID, "bread", base.Add(2*time.Minute))
		require.NoError(t, repo.SaveTask(ctx, bread))
		require.NoError(t, repo.SaveTask(ctx, milk))

		got, err := repo.GetTaskList(ctx, list.ID)
		require.NoError(t, err)
		assert.Equal(t, "groceries", got.Title)
		assert.True(t, got.Created.Equal(base))
		require.Len(t, got.Tasks, 2)
		assert.Equal(t, "milk", got.Tasks[0].Title)
		assert.Equal(t, "bread", got.Tasks[1].Title)
		require.NotNil(t, got.Tasks[0].DueDate)
		assert.True(t, got.Tasks[0].DueDate.Equal(due))
		assert.Equal(t, "2 litres", got.Tasks[0].Description)
		assert.Nil(t, got.Tasks[1].DueDate)
	})

	t.Run("list lists ordered by creation", func(t *testing.T) {
		repo := newRepo(t)
		second := newList("second", base.Add(time.Second))
		first := newList("first", base.Add(500*time.Millisecond))
		require.NoError(t, repo.SaveTaskList(ctx, second))
		require.NoError(t, repo.SaveTaskList(ctx, first))
		require.NoError(t, repo.SaveTask(ctx, newTask(second.ID, "t", base)))

		lists, err := repo.ListTaskLists(ctx)
		require.NoError(t, err)
		require.Len(t, lists, 2)
		assert.Equal(t, "first", lists[0].Title)
		assert.Equal(t, "second", lists[1].Title)
		assert.Empty(t, lists[0].Tasks)
		assert.NotNil(t, lists[0].Tasks)
		assert.Len(t, lists[1].Tasks, 1)
	})

	t.Run("save list replaces fields", func(t *testing.T) {
		repo := newRepo(t)
		list := newList("draft", base)
		require.NoError(t, repo.SaveTaskList(ctx, list))

		list.Title = "final"
		list.Description = "done"
		list.Updated = base.Add(time.Hour)
		require.NoError(t, repo.SaveTaskList(ctx, list))

		got, err := repo.GetTaskList(ctx, list.ID)
		require.NoError(t, err)
		assert.Equal(t, "final", got.Title)
		assert.Equal(t, "done", got.Description)
		assert.True(t, got.Updated.Equal(base.Add(time.Hour)))
	})

	t.Run("task in unknown list", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.SaveTask(ctx, newTask(uuid.New(), "orphan", base))
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.ListTasks(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get task scoped to list", func(t *testing.T) {
		repo := newRepo(t)
		a, b := newList("a", base), newList("b", base)
		require.NoError(t, repo.SaveTaskList(ctx, a))
		require.NoError(t, repo.SaveTaskList(ctx, b))
		task := newTask(a.ID, "in a", base)
		require.NoError(t, repo.SaveTask(ctx, task))

		got, err := repo.GetTask(ctx, a.ID, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)

		_, err = repo.GetTask(ctx, b.ID, task.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, repo.DeleteTask(ctx, b.ID, task.ID))
		_, err = repo.GetTask(ctx, a.ID, task.ID)
		assert.NoError(t, err, "delete through another list must not remove the task")
	})

	t.Run("delete task is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		list := newList("l", base)
		require.NoError(t, repo.SaveTaskList(ctx, list))
		task := newTask(list.ID, "x", base)
		require.NoError(t, repo.SaveTask(ctx, task))

		require.NoError(t, repo.DeleteTask(ctx, list.ID, task.ID))
		require.NoError(t, repo.DeleteTask(ctx, list.ID, task.ID))
		items, err := repo.ListTasks(ctx, list.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("delete list removes its tasks", func(t *testing.T) {
		repo := newRepo(t)
		list := newList("gone", base)
		require.NoError(t, repo.SaveTaskList(ctx, list))
		task := newTask(list.ID, "x", base)
		require.NoError(t, repo.SaveTask(ctx, task))

		require.NoError(t, repo.DeleteTaskList(ctx, list.ID))
		require.NoError(t, repo.DeleteTaskList(ctx, list.ID))

		_, err := repo.GetTaskList(ctx, list.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetTask(ctx, list.ID, task.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent writes", func(t *testing.T) {
		repo := newRepo(t)
		list := newList("busy", base)
		require.NoError(t, repo.SaveTaskList(ctx, list))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, repo.SaveTask(ctx, newTask(list.ID, "t", base.Add(time.Duration(i)*time.Second))))
			}(i)
		}
		wg.Wait()

		items, err := repo.ListTasks(ctx, list.ID)
		require.NoError(t, err)
		assert.Len(t, items, 20)
	})
}

func TestInMemoryRepo(t *testing.T) {
	repoContract(t, func(t *testing.T) Repository { return NewInMemoryRepo() })
}

func TestInMemoryRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepo()
	list := TaskList{ID: uuid.New(), Title: "l"}
	require.NoError(t, repo.SaveTaskList(ctx, list))

	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	task := Task{ID: uuid.New(), TaskListID: list.ID, Title: "t", DueDate: &due}
	require.NoError(t, repo.SaveTask(ctx, task))
	due = due.Add(time.Hour)

	got, err := repo.GetTask(ctx, list.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.DueDate.Hour())
}
