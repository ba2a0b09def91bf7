package domain

import "time"

// TaskStatus is the closed set of task lifecycle states.
type TaskStatus string

const (
	TaskStatusAvailable TaskStatus = "AVAILABLE"
	TaskStatusFull      TaskStatus = "FULL"
	TaskStatusCancelled TaskStatus = "CANCELLED"
)

// Task is a unit of paid work posted by an employer, with a fixed
// reward and a slot capacity.
type Task struct {
	TaskID         string     `db:"task_id"`
	EmployerID     string     `db:"employer_id"`
	Title          string     `db:"title"`
	Description    string     `db:"description"`
	Reward         Amount     `db:"reward"`
	SlotsAvailable int        `db:"slots_available"`
	SlotsRemaining int        `db:"slots_remaining"`
	Status         TaskStatus `db:"status"`
	Deadline       time.Time  `db:"deadline"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}
