package mysql

import (
	"context"
	"fmt"
	"time"

	"queuepanel/internal/model"
	"queuepanel/internal/ordering"
	"queuepanel/internal/pagination"
	"queuepanel/pkg/interfaces"
	storemodel "queuepanel/pkg/store/mysql/model"

	"gorm.io/gorm"
)

const (
	sortColumn    = "completed_at"
	snapshotLimit = 1000 // Upper bound of live items read per snapshot
)

// HistoryRepository reads history pages and the live queue straight from the queue
// server's tasks table. Pagination is keyset based on (completed_at, id), the same
// pair the panel orders by.
type HistoryRepository struct {
	ds *Datastore
}

var _ interfaces.QueueProvider = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(ds *Datastore) *HistoryRepository {
	return &HistoryRepository{ds: ds}
}

// FetchPage retrieves one page of finished tasks. The total is only counted for the
// first page of a walk.
func (r *HistoryRepository) FetchPage(ctx context.Context, cursor pagination.Cursor) (*model.Page, error) {
	if cursor.SortField != "" && cursor.SortField != sortColumn {
		return nil, fmt.Errorf("unsupported sort field: %s", cursor.SortField)
	}
	limit := cursor.Limit
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}

	var tasks []*Task
	var total *int64
	err := r.ds.ExecTx(ctx, func(txCtx context.Context) error {
		if err := pageQuery(r.ds.DB(txCtx), cursor, limit).Find(&tasks).Error; err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}
		if !cursor.IsFirst() {
			return nil
		}
		var count int64
		if err := historyScope(r.ds.DB(txCtx), cursor.Params).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count history: %w", err)
		}
		total = &count
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toPage(tasks, limit, total), nil
}

// FetchSnapshot retrieves running and pending tasks in queue order
func (r *HistoryRepository) FetchSnapshot(ctx context.Context) (*model.LiveSnapshot, error) {
	var tasks []*Task
	if err := snapshotQuery(r.ds.DB(ctx)).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list live tasks: %w", err)
	}
	return toSnapshot(tasks), nil
}

// historyScope selects finished tasks inside the params' time range
func historyScope(db *gorm.DB, p pagination.Params) *gorm.DB {
	q := db.Model(&Task{}).
		Where("status IN ?", storemodel.TerminalStatuses).
		Where("completed_at IS NOT NULL")
	if p.Since != nil {
		q = q.Where("completed_at >= ?", p.Since.UTC())
	}
	if p.Until != nil {
		q = q.Where("completed_at <= ?", p.Until.UTC())
	}
	return q
}

// pageQuery one page after the cursor key, fetching one extra row to detect more
func pageQuery(db *gorm.DB, cursor pagination.Cursor, limit int) *gorm.DB {
	q := historyScope(db, cursor.Params)

	op, order := "<", "completed_at DESC, id DESC"
	if cursor.Direction == ordering.Asc {
		op, order = ">", "completed_at ASC, id ASC"
	}
	if cursor.AfterID != nil && cursor.AfterValue != nil {
		after := time.UnixMilli(*cursor.AfterValue).UTC()
		q = q.Where(fmt.Sprintf("(completed_at %s ? OR (completed_at = ? AND id %s ?))", op, op),
			after, after, *cursor.AfterID)
	}
	return q.Order(order).Limit(limit + 1)
}

func snapshotQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&Task{}).
		Where("status IN ?", []string{storemodel.TaskStatusPending, storemodel.TaskStatusInProgress}).
		Order("created_at ASC, id ASC").
		Limit(snapshotLimit)
}

func toPage(tasks []*Task, limit int, total *int64) *model.Page {
	page := &model.Page{Total: total, HasMore: len(tasks) > limit}
	if page.HasMore {
		tasks = tasks[:limit]
	}
	page.Records = make([]model.Record, 0, len(tasks))
	for _, t := range tasks {
		page.Records = append(page.Records, ToRecord(t))
	}
	return page
}

func toSnapshot(tasks []*Task) *model.LiveSnapshot {
	snap := &model.LiveSnapshot{
		Running:  []model.Item{},
		Pending:  []model.Item{},
		Progress: make(map[string]float64),
	}
	for _, t := range tasks {
		switch t.Status {
		case storemodel.TaskStatusInProgress:
			snap.Running = append(snap.Running, ToItem(t, 0))
		case storemodel.TaskStatusPending:
			snap.Pending = append(snap.Pending, ToItem(t, len(snap.Pending)+1))
		}
	}
	return snap
}
