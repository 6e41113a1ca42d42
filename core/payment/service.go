package payment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("payment not found")
	ErrDuplicateMonth = core.NewConflictError("a payment for this tenant and month already exists")
	ErrTenantNotFound = core.NewNotFoundError("tenant not found")
	ErrNotATenant     = core.NewInvalidError("user is not a tenant")

	errAmountText = "amount must be greater than 0"
)

type (
	Repository interface {
		// CreatePayment returns ErrDuplicateMonth if the tenant already has a Payment for the month.
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPayment(ctx context.Context, id string) (Payment, error)
		QueryPayments(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		UpdatePayment(ctx context.Context, p Payment) (Payment, error)
		DeletePayment(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
	}
)

func NewService(repo Repository, usrRepo user.Repository) *Service {
	return &Service{repo: repo, usrRepo: usrRepo}
}

func (svc *Service) Create(ctx context.Context, np NewPayment) (Payment, error) {
	tenant, err := svc.usrRepo.GetUserByID(ctx, np.TenantID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Payment{}, ErrTenantNotFound
		}
		return Payment{}, errors.Wrap(err, "finding tenant")
	}
	if !tenant.IsTenant() {
		return Payment{}, ErrNotATenant
	}

	now := time.Now().UTC()
	p := Payment{
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
		RoomID:     tenant.CurrentRoomID,
		Amount:     np.Amount,
		Month:      np.Month,
		Status:     np.Status,
		Method:     np.Method,
		Note:       np.Note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p.Status == StatusPaid {
		p.PaidAt = &now
	}
	return svc.repo.CreatePayment(ctx, p)
}

func (svc *Service) Get(ctx context.Context, id string) (Payment, error) {
	return svc.repo.GetPayment(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter, ordering)
}

// QueryMine lists a tenant's payments, latest month first.
func (svc *Service) QueryMine(ctx context.Context, tenantID string) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, QueryFilter{TenantID: tenantID}, []core.DBOrdering{{Field: "month"}})
}

// Update applies up to a Payment. Marking a Payment paid stamps PaidAt; moving it out of paid clears it.
func (svc *Service) Update(ctx context.Context, id string, up UpdatePayment) (Payment, error) {
	p, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}

	now := time.Now().UTC()
	if up.Amount != nil {
		p.Amount = *up.Amount
	}
	if up.Method != "" {
		p.Method = up.Method
	}
	if up.Note != nil {
		p.Note = core.CleanString(*up.Note)
	}
	if up.Status != "" && up.Status != p.Status {
		p.Status = up.Status
		if p.Status == StatusPaid {
			p.PaidAt = &now
		} else {
			p.PaidAt = nil
		}
	}
	p.UpdatedAt = now
	return svc.repo.UpdatePayment(ctx, p)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeletePayment(ctx, id)
}
