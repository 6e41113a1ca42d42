package moveout

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/pgmanager/core"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"

	DateLayout = "2006-01-02"
)

// Notice is a tenant announcing they will leave their room.
type Notice struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	TenantName  string     `json:"tenant_name"`
	RoomID      *string    `json:"room_id"`
	RoomNumber  string     `json:"room_number"`
	MoveOutDate string     `json:"move_out_date"` // YYYY-MM-DD
	Reason      string     `json:"reason,omitempty"`
	Status      Status     `json:"status"`
	ReviewedBy  *string    `json:"reviewed_by"`
	ReviewedAt  *time.Time `json:"reviewed_at"` // UTC
	CreatedAt   time.Time  `json:"created_at"`  // UTC
}

// NewNotice contains information needed to file a new Notice.
type NewNotice struct {
	MoveOutDate string `json:"move_out_date" validate:"required,datetime=2006-01-02"`
	Reason      string `json:"reason" validate:"omitempty,max=1000"`
}

// Validate checks nn. today is the current date, formatted with DateLayout.
func (nn *NewNotice) Validate(validate *validator.Validate, today string) error {
	nn.MoveOutDate = core.CleanString(nn.MoveOutDate)
	nn.Reason = core.CleanString(nn.Reason)
	if err := validate.Struct(nn); err != nil {
		return err
	}
	if nn.MoveOutDate < today {
		return core.NewValidationError(nil, core.FieldError{Field: "move_out_date", Error: "move out date cannot be in the past"})
	}
	return nil
}

// Decision is an admin's verdict on a pending Notice.
type Decision struct {
	Status Status `json:"status" validate:"required,oneof=approved rejected"`
}

func (d *Decision) Validate(validate *validator.Validate) error {
	d.Status = Status(core.CleanString(string(d.Status), true /* lower */))
	return validate.Struct(d)
}

type QueryFilter struct {
	TenantID string `query:"tenant_id"`
	Status   string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.TenantID = core.CleanString(qf.TenantID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
