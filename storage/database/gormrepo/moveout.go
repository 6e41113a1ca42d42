package gormrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/moveout"
)

var moveOutOrderings = map[string]string{
	"move_out_date": "move_out_date",
	"status":        "status",
	"tenant_name":   "tenant_name",
	"created_at":    "created_at",
}

type moveOutRepository struct {
	repo
}

var _ moveout.Repository = (*moveOutRepository)(nil) // interface compliance check

func NewMoveOutRepository(db *gorm.DB) *moveOutRepository {
	return &moveOutRepository{repo{db: db}}
}

func (r *moveOutRepository) boil(n moveout.Notice) *moveOutRow {
	return &moveOutRow{
		ID:          n.ID,
		TenantID:    n.TenantID,
		TenantName:  n.TenantName,
		RoomID:      n.RoomID,
		RoomNumber:  n.RoomNumber,
		MoveOutDate: n.MoveOutDate,
		Reason:      n.Reason,
		Status:      string(n.Status),
		ReviewedBy:  n.ReviewedBy,
		ReviewedAt:  utcPtr(n.ReviewedAt),
		CreatedAt:   n.CreatedAt.UTC(),
	}
}

func (r *moveOutRepository) unboil(row *moveOutRow) moveout.Notice {
	return moveout.Notice{
		ID:          row.ID,
		TenantID:    row.TenantID,
		TenantName:  row.TenantName,
		RoomID:      row.RoomID,
		RoomNumber:  row.RoomNumber,
		MoveOutDate: row.MoveOutDate,
		Reason:      row.Reason,
		Status:      moveout.Status(row.Status),
		ReviewedBy:  row.ReviewedBy,
		ReviewedAt:  utcPtr(row.ReviewedAt),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

func (r *moveOutRepository) CreateNotice(ctx context.Context, n moveout.Notice) (moveout.Notice, error) {
	n.ID = newID()
	row := r.boil(n)
	if err := r.conn(ctx).Create(row).Error; err != nil {
		return moveout.Notice{}, errors.Wrap(err, "inserting move-out notice")
	}
	return r.unboil(row), nil
}

func (r *moveOutRepository) GetNotice(ctx context.Context, id string) (moveout.Notice, error) {
	var row moveOutRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return moveout.Notice{}, trapNotFound(err, moveout.ErrNotFound, "selecting move-out notice")
	}
	return r.unboil(&row), nil
}

func (r *moveOutRepository) HasPendingNotice(ctx context.Context, tenantID string) (bool, error) {
	var count int64
	err := r.conn(ctx).
		Model(&moveOutRow{}).
		Where("tenant_id = ? AND status = ?", tenantID, string(moveout.StatusPending)).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "counting move-out notices")
}

func (r *moveOutRepository) QueryNotices(ctx context.Context, filter moveout.QueryFilter, ordering []core.DBOrdering) ([]moveout.Notice, error) {
	q := r.conn(ctx).Model(&moveOutRow{})
	if filter.TenantID != "" {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = applyOrdering(q, ordering, moveOutOrderings, "move_out_date ASC", "created_at ASC")

	var rows []moveOutRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting move-out notices")
	}
	notices := make([]moveout.Notice, 0, len(rows))
	for i := range rows {
		notices = append(notices, r.unboil(&rows[i]))
	}
	return notices, nil
}

func (r *moveOutRepository) SetStatus(ctx context.Context, id string, status moveout.Status, reviewerID *string, at *time.Time) error {
	res := r.conn(ctx).
		Model(&moveOutRow{}).
		Where("id = ? AND status = ?", id, string(moveout.StatusPending)).
		Updates(map[string]interface{}{"status": string(status), "reviewed_by": reviewerID, "reviewed_at": utcPtr(at)})
	if res.Error != nil {
		return errors.Wrap(res.Error, "updating move-out notice")
	}
	if res.RowsAffected == 0 {
		return moveout.ErrNotPending
	}
	return nil
}
