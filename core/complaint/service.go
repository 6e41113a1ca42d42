package complaint

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/user"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("complaint not found")
	ErrNotPending        = core.NewConflictError("complaint is already being handled")
	ErrInvalidTransition = core.NewConflictError("complaint status cannot move backwards")
)

type (
	Repository interface {
		CreateComplaint(ctx context.Context, c Complaint) (Complaint, error)
		GetComplaint(ctx context.Context, id string) (Complaint, error)
		QueryComplaints(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Complaint, error)
		UpdateComplaint(ctx context.Context, c Complaint) (Complaint, error)
		DeleteComplaint(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		roomSvc *room.Service
	}
)

func NewService(repo Repository, roomSvc *room.Service) *Service {
	return &Service{repo: repo, roomSvc: roomSvc}
}

func (svc *Service) Create(ctx context.Context, tenant user.User, nc NewComplaint) (Complaint, error) {
	var roomNumber string
	if tenant.CurrentRoomID != nil {
		rm, err := svc.roomSvc.Get(ctx, *tenant.CurrentRoomID)
		if err != nil && errors.Cause(err) != room.ErrNotFound {
			return Complaint{}, errors.Wrap(err, "finding tenant room")
		}
		roomNumber = rm.Number
	}

	now := time.Now().UTC()
	return svc.repo.CreateComplaint(ctx, Complaint{
		TenantID:    tenant.ID,
		TenantName:  tenant.Name,
		RoomNumber:  roomNumber,
		Title:       nc.Title,
		Description: nc.Description,
		Category:    nc.Category,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Complaint, error) {
	return svc.repo.QueryComplaints(ctx, filter, ordering)
}

func (svc *Service) QueryMine(ctx context.Context, tenantID string) ([]Complaint, error) {
	return svc.repo.QueryComplaints(ctx, QueryFilter{TenantID: tenantID}, []core.DBOrdering{{Field: "created_at"}})
}

// Update moves a Complaint forward and records the admin's response.
func (svc *Service) Update(ctx context.Context, id string, uc UpdateComplaint) (Complaint, error) {
	c, err := svc.repo.GetComplaint(ctx, id)
	if err != nil {
		return Complaint{}, err
	}

	now := time.Now().UTC()
	if uc.Status != "" && uc.Status != c.Status {
		if !CanMoveTo(c.Status, uc.Status) {
			return Complaint{}, ErrInvalidTransition
		}
		c.Status = uc.Status
		if c.Status == StatusResolved || (c.Status == StatusClosed && c.ResolvedAt == nil) {
			c.ResolvedAt = &now
		}
	}
	if uc.Response != nil {
		c.Response = core.CleanString(*uc.Response)
	}
	c.UpdatedAt = now
	return svc.repo.UpdateComplaint(ctx, c)
}

// Delete deletes a Complaint. Tenants may only withdraw their own complaints while pending.
func (svc *Service) Delete(ctx context.Context, id string, requester user.User) error {
	c, err := svc.repo.GetComplaint(ctx, id)
	if err != nil {
		return err
	}
	if !requester.IsAdmin() {
		if c.TenantID != requester.ID {
			return core.ErrForbidden
		}
		if !c.IsPending() {
			return ErrNotPending
		}
	}
	return svc.repo.DeleteComplaint(ctx, id)
}
