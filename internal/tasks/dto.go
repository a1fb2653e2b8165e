package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// localDateTimeLayout is what a datetime-local input produces.
const localDateTimeLayout = "2006-01-02T15:04:05"

// LocalDateTime is a timestamp that travels without a zone. Incoming values
// may carry one; outgoing values are rendered in UTC.
type LocalDateTime struct {
	time.Time
}

func (d LocalDateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(localDateTimeLayout))
}

func (d *LocalDateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, localDateTimeLayout, "2006-01-02T15:04", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date time %q", s)
}

// TaskDto is the JSON shape of a task.
type TaskDto struct {
	ID          uuid.UUID      `json:"id"`
	TaskListID  uuid.UUID      `json:"taskListId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	DueDate     *LocalDateTime `json:"dueDate"`
	Priority    Priority       `json:"priority"`
	Status      Status         `json:"status"`
	Created     time.Time      `json:"created"`
	Updated     time.Time      `json:"updated"`
}

// TaskListDto is the JSON shape of a task list. Count and Progress are
// derived from Tasks.
type TaskListDto struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Count       int       `json:"count"`
	Progress    *float64  `json:"progress"`
	Tasks       []TaskDto `json:"tasks"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}
