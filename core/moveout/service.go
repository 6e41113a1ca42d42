package moveout

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
	ErrNotFound      = core.NewNotFoundError("move-out notice not found")
	ErrPendingExists = core.NewConflictError("you already have a pending move-out notice")
	ErrNotPending    = core.NewConflictError("move-out notice is no longer pending")
)

type (
	Repository interface {
		CreateNotice(ctx context.Context, n Notice) (Notice, error)
		GetNotice(ctx context.Context, id string) (Notice, error)
		HasPendingNotice(ctx context.Context, tenantID string) (bool, error)
		QueryNotices(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Notice, error)
		// SetStatus moves a pending Notice to status. Returns ErrNotPending if it was not pending anymore.
		SetStatus(ctx context.Context, id string, status Status, reviewerID *string, at *time.Time) error
	}

	Service struct {
		txr     core.Transactor
		repo    Repository
		usrRepo user.Repository
		roomSvc *room.Service
	}
)

func NewService(txr core.Transactor, repo Repository, usrRepo user.Repository, roomSvc *room.Service) *Service {
	return &Service{
		txr:     txr,
		repo:    repo,
		usrRepo: usrRepo,
		roomSvc: roomSvc,
	}
}

// Create files a move-out Notice. A tenant has at most one pending Notice.
func (svc *Service) Create(ctx context.Context, tenantID string, nn NewNotice) (Notice, error) {
	var n Notice
	err := svc.txr.RunInTx(ctx, func(ctx context.Context) error {
		// serializes concurrent notices of the same tenant
		tenant, err := svc.usrRepo.LockUser(ctx, tenantID)
		if err != nil {
			return errors.Wrap(err, "locking tenant")
		}
		pending, err := svc.repo.HasPendingNotice(ctx, tenant.ID)
		if err != nil {
			return errors.Wrap(err, "checking pending notices")
		}
		if pending {
			return ErrPendingExists
		}

		n = Notice{
			TenantID:    tenant.ID,
			TenantName:  tenant.Name,
			RoomID:      tenant.CurrentRoomID,
			MoveOutDate: nn.MoveOutDate,
			Reason:      nn.Reason,
			Status:      StatusPending,
			CreatedAt:   time.Now().UTC(),
		}
		if tenant.CurrentRoomID != nil {
			rm, err := svc.roomSvc.Get(ctx, *tenant.CurrentRoomID)
			if err != nil && errors.Cause(err) != room.ErrNotFound {
				return errors.Wrap(err, "finding tenant room")
			}
			n.RoomNumber = rm.Number
		}
		n, err = svc.repo.CreateNotice(ctx, n)
		return err
	})
	return n, err
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Notice, error) {
	return svc.repo.QueryNotices(ctx, filter, ordering)
}

func (svc *Service) QueryMine(ctx context.Context, tenantID string) ([]Notice, error) {
	return svc.repo.QueryNotices(ctx, QueryFilter{TenantID: tenantID}, []core.DBOrdering{{Field: "created_at"}})
}

// Cancel withdraws a tenant's own pending Notice.
func (svc *Service) Cancel(ctx context.Context, id, tenantID string) (Notice, error) {
	n, err := svc.repo.GetNotice(ctx, id)
	if err != nil {
		return Notice{}, err
	}
	if n.TenantID != tenantID {
		return Notice{}, core.ErrForbidden
	}
	if err = svc.repo.SetStatus(ctx, id, StatusCancelled, nil, nil); err != nil {
		return Notice{}, err
	}
	return svc.repo.GetNotice(ctx, id)
}

// Decide approves or rejects a pending Notice. Rooms are left untouched: releasing the tenant is a separate step.
func (svc *Service) Decide(ctx context.Context, id string, d Decision, reviewerID string) (Notice, error) {
	if _, err := svc.repo.GetNotice(ctx, id); err != nil {
		return Notice{}, err
	}
	now := time.Now().UTC()
	if err := svc.repo.SetStatus(ctx, id, d.Status, &reviewerID, &now); err != nil {
		return Notice{}, err
	}
	return svc.repo.GetNotice(ctx, id)
}
