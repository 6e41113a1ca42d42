package gormrepo

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/payment"
)

var paymentOrderings = map[string]string{
	"month":       "month",
	"amount":      "amount",
	"status":      "status",
	"tenant_name": "tenant_name",
	"paid_at":     "paid_at",
	"created_at":  "created_at",
}

type paymentRepository struct {
	repo
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *gorm.DB) *paymentRepository {
	return &paymentRepository{repo{db: db}}
}

func (r *paymentRepository) boil(p payment.Payment) *paymentRow {
	return &paymentRow{
		ID:         p.ID,
		TenantID:   p.TenantID,
		TenantName: p.TenantName,
		RoomID:     p.RoomID,
		Amount:     p.Amount,
		Month:      p.Month,
		Status:     string(p.Status),
		Method:     string(p.Method),
		PaidAt:     utcPtr(p.PaidAt),
		Note:       p.Note,
		CreatedAt:  p.CreatedAt.UTC(),
		UpdatedAt:  p.UpdatedAt.UTC(),
	}
}

func (r *paymentRepository) unboil(row *paymentRow) payment.Payment {
	return payment.Payment{
		ID:         row.ID,
		TenantID:   row.TenantID,
		TenantName: row.TenantName,
		RoomID:     row.RoomID,
		Amount:     row.Amount,
		Month:      row.Month,
		Status:     payment.Status(row.Status),
		Method:     payment.Method(row.Method),
		PaidAt:     utcPtr(row.PaidAt),
		Note:       row.Note,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

func (r *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	p.ID = newID()
	row := r.boil(p)
	if err := r.conn(ctx).Create(row).Error; err != nil {
		return payment.Payment{}, trapUnique(err, payment.ErrDuplicateMonth, "inserting payment")
	}
	return r.unboil(row), nil
}

func (r *paymentRepository) GetPayment(ctx context.Context, id string) (payment.Payment, error) {
	var row paymentRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return payment.Payment{}, trapNotFound(err, payment.ErrNotFound, "selecting payment")
	}
	return r.unboil(&row), nil
}

func (r *paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	q := r.conn(ctx).Model(&paymentRow{})
	if filter.TenantID != "" {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Month != "" {
		q = q.Where("month = ?", filter.Month)
	}
	q = applyOrdering(q, ordering, paymentOrderings, "month DESC", "tenant_name ASC")

	var rows []paymentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for i := range rows {
		payments = append(payments, r.unboil(&rows[i]))
	}
	return payments, nil
}

func (r *paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	row := r.boil(p)
	res := r.conn(ctx).Model(row).Select("*").Omit("id", "created_at").UpdateColumns(row)
	if res.Error != nil {
		return payment.Payment{}, trapUnique(res.Error, payment.ErrDuplicateMonth, "updating payment")
	}
	if res.RowsAffected == 0 {
		return payment.Payment{}, payment.ErrNotFound
	}
	return r.unboil(row), nil
}

func (r *paymentRepository) DeletePayment(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&paymentRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting payment")
	}
	if res.RowsAffected == 0 {
		return payment.ErrNotFound
	}
	return nil
}
