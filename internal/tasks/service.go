package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxTitleLen is counted in characters, not bytes.
const maxTitleLen = 200

// Service applies the task list and task rules on top of a Repository.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() uuid.UUID
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.New,
	}
}

func (s *Service) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	lists, err := s.repo.ListTaskLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list task lists: %w", err)
	}
	return lists, nil
}

func (s *Service) CreateTaskList(ctx context.Context, in TaskList) (TaskList, error) {
	if in.ID != uuid.Nil {
		return TaskList{}, ErrIDPresent
	}
	if err := validateTitle(in.Title); err != nil {
		return TaskList{}, err
	}

	now := s.now()
	list := TaskList{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		Tasks:       []Task{},
		Created:     now,
		Updated:     now,
	}
	if err := s.repo.SaveTaskList(ctx, list); err != nil {
		return TaskList{}, fmt.Errorf("create task list: %w", err)
	}
	return list, nil
}

func (s *Service) GetTaskList(ctx context.Context, id uuid.UUID) (TaskList, error) {
	list, err := s.repo.GetTaskList(ctx, id)
	if err != nil {
		return TaskList{}, fmt.Errorf("get task list %s: %w", id, err)
	}
	return list, nil
}

func (s *Service) UpdateTaskList(ctx context.Context, id uuid.UUID, in TaskList) (TaskList, error) {
	if in.ID == uuid.Nil {
		return TaskList{}, ErrIDRequired
	}
	if in.ID != id {
		return TaskList{}, ErrIDMismatch
	}
	if err := validateTitle(in.Title); err != nil {
		return TaskList{}, err
	}

	list, err := s.repo.GetTaskList(ctx, id)
	if err != nil {
		return TaskList{}, fmt.Errorf("update task list %s: %w", id, err)
	}
	list.Title = in.Title
	list.Description = in.Description
	list.Updated = s.now()
	if err := s.repo.SaveTaskList(ctx, list); err != nil {
		return TaskList{}, fmt.Errorf("update task list %s: %w", id, err)
	}
	return list, nil
}

func (s *Service) DeleteTaskList(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteTaskList(ctx, id); err != nil {
		return fmt.Errorf("delete task list %s: %w", id, err)
	}
	return nil
}

func (s *Service) ListTasks(ctx context.Context, listID uuid.UUID) ([]Task, error) {
	items, err := s.repo.ListTasks(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("list tasks of %s: %w", listID, err)
	}
	return items, nil
}

// CreateTask adds a task to a list. Priority defaults to MEDIUM and the
// status always starts OPEN.
func (s *Service) CreateTask(ctx context.Context, listID uuid.UUID, in Task) (Task, error) {
	if in.ID != uuid.Nil {
		return Task{}, ErrIDPresent
	}
	if err := validateTitle(in.Title); err != nil {
		return Task{}, err
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return Task{}, ErrInvalidPriority
	}

	now := s.now()
	task := Task{
		ID:          s.newID(),
		TaskListID:  listID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     normalizeDue(in.DueDate),
		Priority:    priority,
		Status:      StatusOpen,
		Created:     now,
		Updated:     now,
	}
	if err := s.repo.SaveTask(ctx, task); err != nil {
		return Task{}, fmt.Errorf("create task in %s: %w", listID, err)
	}
	return task, nil
}

func (s *Service) GetTask(ctx context.Context, listID, taskID uuid.UUID) (Task, error) {
	task, err := s.repo.GetTask(ctx, listID, taskID)
	if err != nil {
		return Task{}, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return task, nil
}

func (s *Service) UpdateTask(ctx context.Context, listID, taskID uuid.UUID, in Task) (Task, error) {
	if in.ID == uuid.Nil {
		return Task{}, ErrIDRequired
	}
	if in.ID != taskID {
		return Task{}, ErrIDMismatch
	}
	if err := validateTitle(in.Title); err != nil {
		return Task{}, err
	}
	if !in.Priority.Valid() {
		return Task{}, ErrInvalidPriority
	}
	if !in.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}

	task, err := s.repo.GetTask(ctx, listID, taskID)
	if err != nil {
		return Task{}, fmt.Errorf("update task %s: %w", taskID, err)
	}
	task.Title = in.Title
	task.Description = in.Description
	task.DueDate = normalizeDue(in.DueDate)
	task.Priority = in.Priority
	task.Status = in.Status
	task.Updated = s.now()
	if err := s.repo.SaveTask(ctx, task); err != nil {
		return Task{}, fmt.Errorf("update task %s: %w", taskID, err)
	}
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, listID, taskID uuid.UUID) error {
	if err := s.repo.DeleteTask(ctx, listID, taskID); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return ErrTitleTooLong
	}
	return nil
}

// normalizeDue keeps due dates at the precision the wire format carries.
func normalizeDue(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	u := d.UTC().Truncate(time.Second)
	return &u
}
