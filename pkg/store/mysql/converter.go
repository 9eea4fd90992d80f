package mysql

import (
	"queuepanel/internal/model"
)

// ToRecord converts a finished MySQL Task to a history record. The record's ordering
// timestamp is completed_at in epoch milliseconds, so keyset cursors built from it
// match the column exactly.
func ToRecord(task *Task) model.Record {
	rec := model.Record{
		ID:          task.ID,
		Status:      model.NormalizeStatus(task.Status),
		CategoryKey: task.Endpoint,
		Name:        task.TaskID,
		Error:       task.Error,
	}
	if task.CompletedAt != nil {
		rec.Timestamp = model.NumericTimestamp(float64(task.CompletedAt.UnixMilli()))
	}
	if task.StartedAt != nil && task.CompletedAt != nil {
		if d := task.CompletedAt.Sub(*task.StartedAt).Seconds(); d > 0 {
			rec.DurationSeconds = &d
		}
	}
	if len(task.Output) > 0 {
		rec.Outputs = map[string]interface{}(task.Output)
	}
	return rec
}

// ToItem converts a queued or running MySQL Task to a live queue item
func ToItem(task *Task, number int) model.Item {
	return model.Item{
		ID:          task.TaskID,
		Number:      number,
		Name:        task.TaskID,
		CategoryKey: task.Endpoint,
		CreatedAt:   task.CreatedAt,
	}
}
