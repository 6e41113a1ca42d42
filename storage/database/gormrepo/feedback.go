package gormrepo

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/core/feedback"
)

type feedbackRepository struct {
	repo
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *gorm.DB) *feedbackRepository {
	return &feedbackRepository{repo{db: db}}
}

func (r *feedbackRepository) unboil(row *feedbackRow) feedback.Feedback {
	return feedback.Feedback{
		ID:         row.ID,
		TenantID:   row.TenantID,
		TenantName: row.TenantName,
		Rating:     row.Rating,
		Message:    row.Message,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

func (r *feedbackRepository) CreateFeedback(ctx context.Context, f feedback.Feedback) (feedback.Feedback, error) {
	row := &feedbackRow{
		ID:         newID(),
		TenantID:   f.TenantID,
		TenantName: f.TenantName,
		Rating:     f.Rating,
		Message:    f.Message,
		CreatedAt:  f.CreatedAt.UTC(),
	}
	if err := r.conn(ctx).Create(row).Error; err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return r.unboil(row), nil
}

func (r *feedbackRepository) QueryFeedback(ctx context.Context, tenantID string) ([]feedback.Feedback, error) {
	q := r.conn(ctx).Model(&feedbackRow{})
	if tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}

	var rows []feedbackRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting feedback")
	}
	items := make([]feedback.Feedback, 0, len(rows))
	for i := range rows {
		items = append(items, r.unboil(&rows[i]))
	}
	return items, nil
}

func (r *feedbackRepository) DeleteFeedback(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&feedbackRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting feedback")
	}
	if res.RowsAffected == 0 {
		return feedback.ErrNotFound
	}
	return nil
}
