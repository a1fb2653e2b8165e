package tasks

import (
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// Task is the stored form of a single task.
type Task struct {
	ID          uuid.UUID
	TaskListID  uuid.UUID
	Title       string
	Description string
	DueDate     *time.Time
	Priority    Priority
	Status      Status
	Created     time.Time
	Updated     time.Time
}

// TaskList is the stored form of a list together with its tasks.
type TaskList struct {
	ID          uuid.UUID
	Title       string
	Description string
	Tasks       []Task
	Created     time.Time
	Updated     time.Time
}
