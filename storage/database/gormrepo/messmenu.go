package gormrepo

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/pgmanager/core/messmenu"
)

type messMenuRepository struct {
	repo
}

var _ messmenu.Repository = (*messMenuRepository)(nil) // interface compliance check

func NewMessMenuRepository(db *gorm.DB) *messMenuRepository {
	return &messMenuRepository{repo{db: db}}
}

func (r *messMenuRepository) unboil(row *messMenuRow) messmenu.Entry {
	items := []string(row.Items)
	if items == nil {
		items = []string{}
	}
	return messmenu.Entry{
		ID:        row.ID,
		Day:       messmenu.Day(row.Day),
		Meal:      messmenu.Meal(row.Meal),
		Items:     items,
		UpdatedBy: row.UpdatedBy,
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (r *messMenuRepository) UpsertEntry(ctx context.Context, e messmenu.Entry) (messmenu.Entry, error) {
	row := &messMenuRow{
		ID:        newID(),
		Day:       string(e.Day),
		Meal:      string(e.Meal),
		Items:     datatypes.NewJSONSlice(e.Items),
		UpdatedBy: e.UpdatedBy,
		UpdatedAt: e.UpdatedAt.UTC(),
	}
	conn := r.conn(ctx)
	err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}, {Name: "meal"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_by", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return messmenu.Entry{}, errors.Wrap(err, "upserting menu entry")
	}

	// the id of an existing entry is kept on conflict
	var saved messMenuRow
	if err = conn.First(&saved, "day = ? AND meal = ?", row.Day, row.Meal).Error; err != nil {
		return messmenu.Entry{}, errors.Wrap(err, "selecting menu entry")
	}
	return r.unboil(&saved), nil
}

func (r *messMenuRepository) QueryEntries(ctx context.Context, day messmenu.Day) ([]messmenu.Entry, error) {
	q := r.conn(ctx).Model(&messMenuRow{})
	if day != "" {
		q = q.Where("day = ?", string(day))
	}

	var rows []messMenuRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting menu entries")
	}
	entries := make([]messmenu.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, r.unboil(&rows[i]))
	}
	return entries, nil
}

func (r *messMenuRepository) DeleteEntry(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&messMenuRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting menu entry")
	}
	if res.RowsAffected == 0 {
		return messmenu.ErrNotFound
	}
	return nil
}
