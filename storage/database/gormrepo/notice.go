package gormrepo

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/core/notice"
)

type noticeRepository struct {
	repo
}

var _ notice.Repository = (*noticeRepository)(nil) // interface compliance check

func NewNoticeRepository(db *gorm.DB) *noticeRepository {
	return &noticeRepository{repo{db: db}}
}

func (r *noticeRepository) boil(n notice.Notice) *noticeRow {
	return &noticeRow{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Priority:  string(n.Priority),
		CreatedBy: n.CreatedBy,
		CreatedAt: n.CreatedAt.UTC(),
		UpdatedAt: n.UpdatedAt.UTC(),
	}
}

func (r *noticeRepository) unboil(row *noticeRow) notice.Notice {
	return notice.Notice{
		ID:        row.ID,
		Title:     row.Title,
		Body:      row.Body,
		Priority:  notice.Priority(row.Priority),
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (r *noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	n.ID = newID()
	row := r.boil(n)
	if err := r.conn(ctx).Create(row).Error; err != nil {
		return notice.Notice{}, errors.Wrap(err, "inserting notice")
	}
	return r.unboil(row), nil
}

func (r *noticeRepository) GetNotice(ctx context.Context, id string) (notice.Notice, error) {
	var row noticeRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return notice.Notice{}, trapNotFound(err, notice.ErrNotFound, "selecting notice")
	}
	return r.unboil(&row), nil
}

func (r *noticeRepository) QueryNotices(ctx context.Context) ([]notice.Notice, error) {
	var rows []noticeRow
	err := r.conn(ctx).
		Order("CASE priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "selecting notices")
	}
	notices := make([]notice.Notice, 0, len(rows))
	for i := range rows {
		notices = append(notices, r.unboil(&rows[i]))
	}
	return notices, nil
}

func (r *noticeRepository) UpdateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	row := r.boil(n)
	res := r.conn(ctx).Model(row).Select("*").Omit("id", "created_at", "created_by").UpdateColumns(row)
	if res.Error != nil {
		return notice.Notice{}, errors.Wrap(res.Error, "updating notice")
	}
	if res.RowsAffected == 0 {
		return notice.Notice{}, notice.ErrNotFound
	}
	return r.unboil(row), nil
}

func (r *noticeRepository) DeleteNotice(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&noticeRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting notice")
	}
	if res.RowsAffected == 0 {
		return notice.ErrNotFound
	}
	return nil
}
