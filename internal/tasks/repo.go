package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository stores task lists and their tasks. Save methods insert or
// replace. Deletes are idempotent. Lookups of unknown ids return ErrNotFound.
type Repository interface {
	ListTaskLists(ctx context.Context) ([]TaskList, error)
	GetTaskList(ctx context.Context, id uuid.UUID) (TaskList, error)
	SaveTaskList(ctx context.Context, list TaskList) error
	DeleteTaskList(ctx context.Context, id uuid.UUID) error

	ListTasks(ctx context.Context, listID uuid.UUID) ([]Task, error)
	GetTask(ctx context.Context, listID, taskID uuid.UUID) (Task, error)
	SaveTask(ctx context.Context, task Task) error
	DeleteTask(ctx context.Context, listID, taskID uuid.UUID) error
}

type InMemoryRepo struct {
	mu    sync.Mutex
	lists map[uuid.UUID]TaskList
	tasks map[uuid.UUID]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		lists: make(map[uuid.UUID]TaskList),
		tasks: make(map[uuid.UUID]Task),
	}
}

func (r *InMemoryRepo) ListTaskLists(_ context.Context) ([]TaskList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TaskList, 0, len(r.lists))
	for _, l := range r.lists {
		l.Tasks = r.tasksOf(l.ID)
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return createdBefore(out[i].Created, out[j].Created, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *InMemoryRepo) GetTaskList(_ context.Context, id uuid.UUID) (TaskList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lists[id]
	if !ok {
		return TaskList{}, ErrNotFound
	}
	l.Tasks = r.tasksOf(id)
	return l, nil
}

func (r *InMemoryRepo) SaveTaskList(_ context.Context, list TaskList) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list.Tasks = nil
	r.lists[list.ID] = list
	return nil
}

func (r *InMemoryRepo) DeleteTaskList(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lists, id)
	for tid, t := range r.tasks {
		if t.TaskListID == id {
			delete(r.tasks, tid)
		}
	}
	return nil
}

func (r *InMemoryRepo) ListTasks(_ context.Context, listID uuid.UUID) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lists[listID]; !ok {
		return nil, ErrNotFound
	}
	return r.tasksOf(listID), nil
}

func (r *InMemoryRepo) GetTask(_ context.Context, listID, taskID uuid.UUID) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok || t.TaskListID != listID {
		return Task{}, ErrNotFound
	}
	return cloneTask(t), nil
}

func (r *InMemoryRepo) SaveTask(_ context.Context, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lists[task.TaskListID]; !ok {
		return ErrNotFound
	}
	r.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *InMemoryRepo) DeleteTask(_ context.Context, listID, taskID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tasks[taskID]; ok && t.TaskListID == listID {
		delete(r.tasks, taskID)
	}
	return nil
}

// tasksOf must be called with r.mu held.
func (r *InMemoryRepo) tasksOf(listID uuid.UUID) []Task {
	out := make([]Task, 0)
	for _, t := range r.tasks {
		if t.TaskListID == listID {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return createdBefore(out[i].Created, out[j].Created, out[i].ID, out[j].ID)
	})
	return out
}

func cloneTask(t Task) Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

func createdBefore(a, b time.Time, aID, bID uuid.UUID) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID.String() < bID.String()
}
