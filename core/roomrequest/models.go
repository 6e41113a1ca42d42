package roomrequest

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/pgmanager/core"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Request is a tenant asking to be allocated to a room.
// TenantName, TenantEmail and RoomNumber are snapshots taken at creation and are never refreshed.
type Request struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id"`
	RoomNumber  string     `json:"room_number"`
	TenantID    string     `json:"tenant_id"`
	TenantName  string     `json:"tenant_name"`
	TenantEmail string     `json:"tenant_email"`
	Status      Status     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"` // UTC
	ReviewedAt  *time.Time `json:"reviewed_at"`  // UTC
	ReviewedBy  *string    `json:"reviewed_by"`
}

func (r *Request) IsPending() bool { return r.Status == StatusPending }

// NewRequest contains information needed to create a new Request.
type NewRequest struct {
	RoomID string `json:"room_id" validate:"required"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.RoomID = core.CleanString(nr.RoomID)
	return validate.Struct(nr)
}

// Decision is an admin's verdict on a pending Request.
type Decision struct {
	Status Status `json:"status" validate:"required"`
}

func (d *Decision) Validate(validate *validator.Validate) error {
	if err := validate.Struct(d); err != nil {
		return err
	}
	if !(d.Status == StatusApproved || d.Status == StatusRejected) {
		return ErrInvalidStatus
	}
	return nil
}

// DecideResult is returned once a Request has been decided.
type DecideResult struct {
	Message string  `json:"message"`
	Request Request `json:"request"`
}

type QueryFilter struct {
	RoomID   string `query:"room_id"`
	TenantID string `query:"tenant_id"`
	Status   string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.RoomID = core.CleanString(qf.RoomID)
	qf.TenantID = core.CleanString(qf.TenantID)
	qf.Status = core.CleanString(qf.Status)
}
