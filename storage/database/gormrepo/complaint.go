package gormrepo

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/complaint"
)

var complaintOrderings = map[string]string{
	"status":     "status",
	"category":   "category",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type complaintRepository struct {
	repo
}

var _ complaint.Repository = (*complaintRepository)(nil) // interface compliance check

func NewComplaintRepository(db *gorm.DB) *complaintRepository {
	return &complaintRepository{repo{db: db}}
}

func (r *complaintRepository) boil(c complaint.Complaint) *complaintRow {
	return &complaintRow{
		ID:          c.ID,
		TenantID:    c.TenantID,
		TenantName:  c.TenantName,
		RoomNumber:  c.RoomNumber,
		Title:       c.Title,
		Description: c.Description,
		Category:    string(c.Category),
		Status:      string(c.Status),
		Response:    c.Response,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
		ResolvedAt:  utcPtr(c.ResolvedAt),
	}
}

func (r *complaintRepository) unboil(row *complaintRow) complaint.Complaint {
	return complaint.Complaint{
		ID:          row.ID,
		TenantID:    row.TenantID,
		TenantName:  row.TenantName,
		RoomNumber:  row.RoomNumber,
		Title:       row.Title,
		Description: row.Description,
		Category:    complaint.Category(row.Category),
		Status:      complaint.Status(row.Status),
		Response:    row.Response,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
		ResolvedAt:  utcPtr(row.ResolvedAt),
	}
}

func (r *complaintRepository) CreateComplaint(ctx context.Context, c complaint.Complaint) (complaint.Complaint, error) {
	c.ID = newID()
	row := r.boil(c)
	if err := r.conn(ctx).Create(row).Error; err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "inserting complaint")
	}
	return r.unboil(row), nil
}

func (r *complaintRepository) GetComplaint(ctx context.Context, id string) (complaint.Complaint, error) {
	var row complaintRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return complaint.Complaint{}, trapNotFound(err, complaint.ErrNotFound, "selecting complaint")
	}
	return r.unboil(&row), nil
}

func (r *complaintRepository) QueryComplaints(ctx context.Context, filter complaint.QueryFilter, ordering []core.DBOrdering) ([]complaint.Complaint, error) {
	q := r.conn(ctx).Model(&complaintRow{})
	if filter.TenantID != "" {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	q = applyOrdering(q, ordering, complaintOrderings, "created_at DESC")

	var rows []complaintRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting complaints")
	}
	complaints := make([]complaint.Complaint, 0, len(rows))
	for i := range rows {
		complaints = append(complaints, r.unboil(&rows[i]))
	}
	return complaints, nil
}

func (r *complaintRepository) UpdateComplaint(ctx context.Context, c complaint.Complaint) (complaint.Complaint, error) {
	row := r.boil(c)
	res := r.conn(ctx).Model(row).Select("*").Omit("id", "created_at").UpdateColumns(row)
	if res.Error != nil {
		return complaint.Complaint{}, errors.Wrap(res.Error, "updating complaint")
	}
	if res.RowsAffected == 0 {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	return r.unboil(row), nil
}

func (r *complaintRepository) DeleteComplaint(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&complaintRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting complaint")
	}
	if res.RowsAffected == 0 {
		return complaint.ErrNotFound
	}
	return nil
}
