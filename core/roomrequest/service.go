package roomrequest

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("room request not found")
	ErrInvalidStatus    = core.NewInvalidError("status must be one of Approved or Rejected")
	ErrNotPending       = core.NewConflictError("room request is no longer pending")
	ErrDuplicateRequest = core.NewConflictError("a request for this room already exists")
)

type (
	Repository interface {
		// CreateRequest returns ErrDuplicateRequest if the (room, tenant) pair was already requested.
		CreateRequest(ctx context.Context, req Request) (Request, error)
		RequestExists(ctx context.Context, roomID, tenantID string) (bool, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		// LockRequest returns the Request and locks its row until the end of the current transaction.
		LockRequest(ctx context.Context, id string) (Request, error)
		QueryRequests(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Request, error)
		// SetDecision moves a pending Request to status. Returns ErrNotPending if it was not pending anymore.
		SetDecision(ctx context.Context, id string, status Status, reviewerID string, at time.Time) error
		DeleteRequest(ctx context.Context, id string) error
		// DeletePendingRequest deletes a Request only while pending. Returns ErrNotPending otherwise.
		DeletePendingRequest(ctx context.Context, id string) error
	}

	Service struct {
		txr     core.Transactor
		repo    Repository
		roomSvc *room.Service
		mailSvc core.EmailService
	}
)

func NewService(txr core.Transactor, repo Repository, roomSvc *room.Service, mailSvc core.EmailService) *Service {
	return &Service{
		txr:     txr,
		repo:    repo,
		roomSvc: roomSvc,
		mailSvc: mailSvc,
	}
}

// Create files a pending Request from tenant for a room.
func (svc *Service) Create(ctx context.Context, tenant user.User, nr NewRequest) (Request, error) {
	rm, err := svc.roomSvc.Get(ctx, nr.RoomID)
	if err != nil {
		return Request{}, err
	}
	if rm.IsFull() {
		return Request{}, room.ErrRoomFull
	}
	if rm.Status == room.StatusMaintenance {
		return Request{}, room.ErrUnderMaintenance
	}
	if rm.HasTenant(tenant.ID) {
		return Request{}, room.ErrAlreadyAllocated
	}

	exists, err := svc.repo.RequestExists(ctx, rm.ID, tenant.ID)
	if err != nil {
		return Request{}, errors.Wrap(err, "checking existing request")
	}
	if exists {
		return Request{}, ErrDuplicateRequest
	}

	return svc.repo.CreateRequest(ctx, Request{
		RoomID:      rm.ID,
		RoomNumber:  rm.Number,
		TenantID:    tenant.ID,
		TenantName:  tenant.Name,
		TenantEmail: tenant.Email,
		Status:      StatusPending,
		RequestedAt: time.Now().UTC(),
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Request, error) {
	return svc.repo.QueryRequests(ctx, filter, ordering)
}

// QueryMine lists the requests filed by a tenant, optionally filtered on status.
func (svc *Service) QueryMine(ctx context.Context, tenantID, status string) ([]Request, error) {
	return svc.repo.QueryRequests(
		ctx,
		QueryFilter{TenantID: tenantID, Status: core.CleanString(status)},
		[]core.DBOrdering{{Field: "requested_at", Ascending: false}},
	)
}

// Decide approves or rejects a pending Request.
// Approving a request allocates the tenant to the room in the same transaction as the status change.
func (svc *Service) Decide(ctx context.Context, id string, d Decision, reviewerID string) (DecideResult, error) {
	if !(d.Status == StatusApproved || d.Status == StatusRejected) {
		return DecideResult{}, ErrInvalidStatus
	}

	var req Request
	err := svc.txr.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if req, err = svc.repo.GetRequest(ctx, id); err != nil {
			return err
		}
		if !req.IsPending() {
			return ErrNotPending
		}
		// tenant and rooms are locked ahead of the request row
		if d.Status == StatusApproved {
			if err = svc.roomSvc.LockAllocation(ctx, req.RoomID, req.TenantID); err != nil {
				return err
			}
		}
		if req, err = svc.repo.LockRequest(ctx, id); err != nil {
			return err
		}
		if !req.IsPending() {
			return ErrNotPending
		}

		if d.Status == StatusApproved {
			if _, err = svc.roomSvc.Allocate(ctx, req.RoomID, req.TenantID); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		if err = svc.repo.SetDecision(ctx, id, d.Status, reviewerID, now); err != nil {
			return err
		}
		req.Status = d.Status
		req.ReviewedAt = &now
		req.ReviewedBy = &reviewerID
		return nil
	})
	if err != nil {
		return DecideResult{}, err
	}

	svc.sendDecisionMail(req)
	return DecideResult{Message: decisionMessage(req), Request: req}, nil
}

// Delete deletes a Request. Admins delete any Request; tenants only their own, while pending.
func (svc *Service) Delete(ctx context.Context, id string, requester user.User) error {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if requester.IsAdmin() {
		return svc.repo.DeleteRequest(ctx, id)
	}
	if req.TenantID != requester.ID {
		return core.ErrForbidden
	}
	if !req.IsPending() {
		return ErrNotPending
	}
	return svc.repo.DeletePendingRequest(ctx, id)
}

func decisionMessage(req Request) string {
	if req.Status == StatusApproved {
		return fmt.Sprintf("Request approved: %s has been allocated to room %s", req.TenantName, req.RoomNumber)
	}
	return fmt.Sprintf("Request for room %s rejected", req.RoomNumber)
}

func (svc *Service) sendDecisionMail(req Request) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: req.TenantName, Address: req.TenantEmail}},
		Subject:      fmt.Sprintf("Your request for room %s was %s", req.RoomNumber, req.Status),
		TemplateName: "room_request_decided",
		TemplateData: struct {
			TenantName string
			RoomNumber string
			Status     Status
		}{req.TenantName, req.RoomNumber, req.Status},
	})
}
