package gormrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/roomrequest"
)

var roomRequestOrderings = map[string]string{
	"room_number":  "room_number",
	"tenant_name":  "tenant_name",
	"status":       "status",
	"requested_at": "requested_at",
	"reviewed_at":  "reviewed_at",
}

type roomRequestRepository struct {
	repo
}

var _ roomrequest.Repository = (*roomRequestRepository)(nil) // interface compliance check

func NewRoomRequestRepository(db *gorm.DB) *roomRequestRepository {
	return &roomRequestRepository{repo{db: db}}
}

func (r *roomRequestRepository) boil(req roomrequest.Request) *roomRequestRow {
	return &roomRequestRow{
		ID:          req.ID,
		RoomID:      req.RoomID,
		RoomNumber:  req.RoomNumber,
		TenantID:    req.TenantID,
		TenantName:  req.TenantName,
		TenantEmail: req.TenantEmail,
		Status:      string(req.Status),
		RequestedAt: req.RequestedAt.UTC(),
		ReviewedAt:  utcPtr(req.ReviewedAt),
		ReviewedBy:  req.ReviewedBy,
	}
}

func (r *roomRequestRepository) unboil(row *roomRequestRow) roomrequest.Request {
	return roomrequest.Request{
		ID:          row.ID,
		RoomID:      row.RoomID,
		RoomNumber:  row.RoomNumber,
		TenantID:    row.TenantID,
		TenantName:  row.TenantName,
		TenantEmail: row.TenantEmail,
		Status:      roomrequest.Status(row.Status),
		RequestedAt: row.RequestedAt.UTC(),
		ReviewedAt:  utcPtr(row.ReviewedAt),
		ReviewedBy:  row.ReviewedBy,
	}
}

func (r *roomRequestRepository) CreateRequest(ctx context.Context, req roomrequest.Request) (roomrequest.Request, error) {
	req.ID = newID()
	row := r.boil(req)
	if err := r.conn(ctx).Create(row).Error; err != nil {
		return roomrequest.Request{}, trapUnique(err, roomrequest.ErrDuplicateRequest, "inserting room request")
	}
	return r.unboil(row), nil
}

func (r *roomRequestRepository) RequestExists(ctx context.Context, roomID, tenantID string) (bool, error) {
	var count int64
	err := r.conn(ctx).
		Model(&roomRequestRow{}).
		Where("room_id = ? AND tenant_id = ?", roomID, tenantID).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "counting room requests")
}

func (r *roomRequestRepository) GetRequest(ctx context.Context, id string) (roomrequest.Request, error) {
	var row roomRequestRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return roomrequest.Request{}, trapNotFound(err, roomrequest.ErrNotFound, "selecting room request")
	}
	return r.unboil(&row), nil
}

func (r *roomRequestRepository) LockRequest(ctx context.Context, id string) (roomrequest.Request, error) {
	var row roomRequestRow
	if err := r.forUpdate(ctx).First(&row, "id = ?", id).Error; err != nil {
		return roomrequest.Request{}, trapNotFound(err, roomrequest.ErrNotFound, "locking room request")
	}
	return r.unboil(&row), nil
}

func (r *roomRequestRepository) QueryRequests(ctx context.Context, filter roomrequest.QueryFilter, ordering []core.DBOrdering) ([]roomrequest.Request, error) {
	q := r.conn(ctx).Model(&roomRequestRow{})
	if filter.RoomID != "" {
		q = q.Where("room_id = ?", filter.RoomID)
	}
	if filter.TenantID != "" {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = applyOrdering(q, ordering, roomRequestOrderings, "requested_at DESC")

	var rows []roomRequestRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting room requests")
	}
	reqs := make([]roomrequest.Request, 0, len(rows))
	for i := range rows {
		reqs = append(reqs, r.unboil(&rows[i]))
	}
	return reqs, nil
}

func (r *roomRequestRepository) SetDecision(ctx context.Context, id string, status roomrequest.Status, reviewerID string, at time.Time) error {
	res := r.conn(ctx).
		Model(&roomRequestRow{}).
		Where("id = ? AND status = ?", id, string(roomrequest.StatusPending)).
		Updates(map[string]interface{}{"status": string(status), "reviewed_at": at.UTC(), "reviewed_by": reviewerID})
	if res.Error != nil {
		return errors.Wrap(res.Error, "updating room request")
	}
	if res.RowsAffected == 0 {
		return roomrequest.ErrNotPending
	}
	return nil
}

func (r *roomRequestRepository) DeleteRequest(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&roomRequestRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting room request")
	}
	if res.RowsAffected == 0 {
		return roomrequest.ErrNotFound
	}
	return nil
}

func (r *roomRequestRepository) DeletePendingRequest(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&roomRequestRow{}, "id = ? AND status = ?", id, string(roomrequest.StatusPending))
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting room request")
	}
	if res.RowsAffected == 0 {
		return roomrequest.ErrNotPending
	}
	return nil
}
