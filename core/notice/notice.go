package notice

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/pgmanager/core"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

var ErrNotFound = core.NewNotFoundError("notice not found")

type Notice struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Priority  Priority  `json:"priority"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewNotice is used both to publish a Notice and to replace its content.
type NewNotice struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Body     string   `json:"body" validate:"required,max=5000"`
	Priority Priority `json:"priority" validate:"omitempty,oneof=low normal high"`
}

func (nn *NewNotice) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Body = core.CleanString(nn.Body)
	nn.Priority = Priority(core.CleanString(string(nn.Priority), true /* lower */))
	if err := validate.Struct(nn); err != nil {
		return err
	}
	if nn.Priority == "" {
		nn.Priority = PriorityNormal
	}
	return nil
}

type (
	Repository interface {
		CreateNotice(ctx context.Context, n Notice) (Notice, error)
		GetNotice(ctx context.Context, id string) (Notice, error)
		// QueryNotices lists notices by priority, high first, then newest first.
		QueryNotices(ctx context.Context) ([]Notice, error)
		UpdateNotice(ctx context.Context, n Notice) (Notice, error)
		DeleteNotice(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nn NewNotice, creatorID string) (Notice, error) {
	now := time.Now().UTC()
	return svc.repo.CreateNotice(ctx, Notice{
		Title:     nn.Title,
		Body:      nn.Body,
		Priority:  nn.Priority,
		CreatedBy: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context) ([]Notice, error) {
	return svc.repo.QueryNotices(ctx)
}

func (svc *Service) Update(ctx context.Context, id string, nn NewNotice) (Notice, error) {
	n, err := svc.repo.GetNotice(ctx, id)
	if err != nil {
		return Notice{}, err
	}
	n.Title = nn.Title
	n.Body = nn.Body
	n.Priority = nn.Priority
	n.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateNotice(ctx, n)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteNotice(ctx, id)
}
