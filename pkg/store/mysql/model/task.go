package model

import (
	"time"
)

// Task status values written by the queue server
const (
	TaskStatusPending    = "PENDING"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusCompleted  = "COMPLETED"
	TaskStatusFailed     = "FAILED"
	TaskStatusTimeout    = "TIMEOUT"
	TaskStatusCancelled  = "CANCELLED"
)

// TerminalStatuses statuses of tasks that belong to history
var TerminalStatuses = []string{TaskStatusCompleted, TaskStatusFailed, TaskStatusTimeout, TaskStatusCancelled}

// Task a row of the queue server's tasks table, read-only from the panel's side
type Task struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskID      string     `gorm:"column:task_id;type:varchar(255);not null" json:"task_id"`
	Endpoint    string     `gorm:"column:endpoint;type:varchar(255);not null" json:"endpoint"`
	Status      string     `gorm:"column:status;type:varchar(50);not null" json:"status"`
	Output      JSONMap    `gorm:"column:output;type:json" json:"output"`
	Error       string     `gorm:"column:error;type:text" json:"error"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:datetime(3)" json:"created_at"`
	StartedAt   *time.Time `gorm:"column:started_at;type:datetime(3)" json:"started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:datetime(3)" json:"completed_at"`
}

// TableName specifies the table name for Task
func (Task) TableName() string {
	return "tasks"
}
