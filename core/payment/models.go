package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/pgmanager/core"
)

type (
	Status string
	Method string
)

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"

	MethodCash         Method = "cash"
	MethodUPI          Method = "upi"
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
)

// Payment is the rent owed by a tenant for a month.
type Payment struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenant_id"`
	TenantName string          `json:"tenant_name"`
	RoomID     *string         `json:"room_id"`
	Amount     decimal.Decimal `json:"amount"`
	Month      string          `json:"month"` // YYYY-MM
	Status     Status          `json:"status"`
	Method     Method          `json:"method,omitempty"`
	PaidAt     *time.Time      `json:"paid_at"` // UTC
	Note       string          `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"` // UTC
	UpdatedAt  time.Time       `json:"updated_at"` // UTC
}

// NewPayment contains information needed to record a new Payment.
type NewPayment struct {
	TenantID string          `json:"tenant_id" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Month    string          `json:"month" validate:"required,yearmonth"`
	Status   Status          `json:"status" validate:"omitempty,oneof=pending paid overdue"`
	Method   Method          `json:"method" validate:"omitempty,oneof=cash upi card bank_transfer"`
	Note     string          `json:"note" validate:"omitempty,max=500"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.TenantID = core.CleanString(np.TenantID)
	np.Month = core.CleanString(np.Month)
	np.Note = core.CleanString(np.Note)
	if err := validate.Struct(np); err != nil {
		return err
	}
	if !np.Amount.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: errAmountText})
	}
	if np.Status == "" {
		np.Status = StatusPending
	}
	return nil
}

// UpdatePayment lists the fields an admin may change on a Payment. Nil fields are left untouched.
type UpdatePayment struct {
	Amount *decimal.Decimal `json:"amount"`
	Status Status           `json:"status" validate:"omitempty,oneof=pending paid overdue"`
	Method Method           `json:"method" validate:"omitempty,oneof=cash upi card bank_transfer"`
	Note   *string          `json:"note" validate:"omitempty,max=500"`
}

func (up *UpdatePayment) Validate(validate *validator.Validate) error {
	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.Amount != nil && !up.Amount.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: errAmountText})
	}
	return nil
}

type QueryFilter struct {
	TenantID string `query:"tenant_id"`
	Status   string `query:"status"`
	Month    string `query:"month"`
}

func (qf *QueryFilter) Clean() {
	qf.TenantID = core.CleanString(qf.TenantID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Month = core.CleanString(qf.Month)
}
