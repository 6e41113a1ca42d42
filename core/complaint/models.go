package complaint

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/pgmanager/core"
)

type (
	Category string
	Status   string
)

const (
	CategoryMaintenance Category = "maintenance"
	CategoryCleaning    Category = "cleaning"
	CategoryFood        Category = "food"
	CategoryElectrical  Category = "electrical"
	CategoryPlumbing    Category = "plumbing"
	CategoryOther       Category = "other"

	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var statusRanks = map[Status]int{
	StatusPending:    0,
	StatusInProgress: 1,
	StatusResolved:   2,
	StatusClosed:     3,
}

// CanMoveTo reports whether a complaint may go from one status to another.
// Statuses only move forward; closing is allowed from any status.
func CanMoveTo(from, to Status) bool {
	fr, ok := statusRanks[from]
	if !ok {
		return false
	}
	tr, ok := statusRanks[to]
	if !ok {
		return false
	}
	return tr >= fr
}

type Complaint struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	TenantName  string     `json:"tenant_name"`
	RoomNumber  string     `json:"room_number"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Status      Status     `json:"status"`
	Response    string     `json:"response,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`  // UTC
	UpdatedAt   time.Time  `json:"updated_at"`  // UTC
	ResolvedAt  *time.Time `json:"resolved_at"` // UTC
}

func (c *Complaint) IsPending() bool { return c.Status == StatusPending }

// NewComplaint contains information needed to file a new Complaint.
type NewComplaint struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=2000"`
	Category    Category `json:"category" validate:"omitempty,oneof=maintenance cleaning food electrical plumbing other"`
}

func (nc *NewComplaint) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = Category(core.CleanString(string(nc.Category), true /* lower */))
	if err := validate.Struct(nc); err != nil {
		return err
	}
	if nc.Category == "" {
		nc.Category = CategoryOther
	}
	return nil
}

// UpdateComplaint is an admin's follow-up on a Complaint.
type UpdateComplaint struct {
	Status   Status  `json:"status" validate:"omitempty,oneof=pending in-progress resolved closed"`
	Response *string `json:"response" validate:"omitempty,max=2000"`
}

func (uc *UpdateComplaint) Validate(validate *validator.Validate) error {
	return validate.Struct(uc)
}

type QueryFilter struct {
	TenantID string `query:"tenant_id"`
	Status   string `query:"status"`
	Category string `query:"category"`
}

func (qf *QueryFilter) Clean() {
	qf.TenantID = core.CleanString(qf.TenantID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
}
