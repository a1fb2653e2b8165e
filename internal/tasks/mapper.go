package tasks

import "time"

// TaskMapper converts between Task and TaskDto. Implementations are pure and
// safe for concurrent use.
type TaskMapper interface {
	FromDto(dto TaskDto) Task
	ToDto(task Task) TaskDto
}

// TaskListMapper converts between TaskList and TaskListDto.
type TaskListMapper interface {
	FromDto(dto TaskListDto) TaskList
	ToDto(list TaskList) TaskListDto
}

type taskMapper struct{}

func NewTaskMapper() TaskMapper { return taskMapper{} }

func (taskMapper) FromDto(dto TaskDto) Task {
	var due *time.Time
	if dto.DueDate != nil {
		t := dto.DueDate.Time
		due = &t
	}
	return Task{
		ID:          dto.ID,
		TaskListID:  dto.TaskListID,
		Title:       dto.Title,
		Description: dto.Description,
		DueDate:     due,
		Priority:    dto.Priority,
		Status:      dto.Status,
		Created:     dto.Created,
		Updated:     dto.Updated,
	}
}

func (taskMapper) ToDto(task Task) TaskDto {
	var due *LocalDateTime
	if task.DueDate != nil {
		due = &LocalDateTime{Time: *task.DueDate}
	}
	return TaskDto{
		ID:          task.ID,
		TaskListID:  task.TaskListID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     due,
		Priority:    task.Priority,
		Status:      task.Status,
		Created:     task.Created,
		Updated:     task.Updated,
	}
}

type taskListMapper struct {
	tasks TaskMapper
}

// NewTaskListMapper returns a TaskListMapper that maps nested tasks with tm.
func NewTaskListMapper(tm TaskMapper) TaskListMapper {
	return taskListMapper{tasks: tm}
}

// FromDto ignores Count and Progress; they are recomputed by ToDto.
func (m taskListMapper) FromDto(dto TaskListDto) TaskList {
	var items []Task
	if dto.Tasks != nil {
		items = make([]Task, len(dto.Tasks))
		for i, t := range dto.Tasks {
			items[i] = m.tasks.FromDto(t)
		}
	}
	return TaskList{
		ID:          dto.ID,
		Title:       dto.Title,
		Description: dto.Description,
		Tasks:       items,
		Created:     dto.Created,
		Updated:     dto.Updated,
	}
}

func (m taskListMapper) ToDto(list TaskList) TaskListDto {
	var items []TaskDto
	if list.Tasks != nil {
		items = make([]TaskDto, len(list.Tasks))
		for i, t := range list.Tasks {
			items[i] = m.tasks.ToDto(t)
		}
	}
	return TaskListDto{
		ID:          list.ID,
		Title:       list.Title,
		Description: list.Description,
		Count:       len(list.Tasks),
		Progress:    progress(list.Tasks),
		Tasks:       items,
		Created:     list.Created,
		Updated:     list.Updated,
	}
}

// progress is the closed fraction of tasks, nil for an empty list.
func progress(items []Task) *float64 {
	if len(items) == 0 {
		return nil
	}
	closed := 0
	for _, t := range items {
		if t.Status == StatusClosed {
			closed++
		}
	}
	p := float64(closed) / float64(len(items))
	return &p
}
