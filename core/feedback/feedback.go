package feedback

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/user"
)

var ErrNotFound = core.NewNotFoundError("feedback not found")

type Feedback struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	Rating     int       `json:"rating"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type NewFeedback struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Message string `json:"message" validate:"omitempty,max=2000"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.Message = core.CleanString(nf.Message)
	return validate.Struct(nf)
}

// Summary is the admin view of every Feedback.
type Summary struct {
	Count         int        `json:"count"`
	AverageRating float64    `json:"average_rating"`
	Items         []Feedback `json:"items"`
}

type (
	Repository interface {
		CreateFeedback(ctx context.Context, f Feedback) (Feedback, error)
		// QueryFeedback lists feedback newest first. An empty tenantID lists everyone's.
		QueryFeedback(ctx context.Context, tenantID string) ([]Feedback, error)
		DeleteFeedback(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, tenant user.User, nf NewFeedback) (Feedback, error) {
	return svc.repo.CreateFeedback(ctx, Feedback{
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
		Rating:     nf.Rating,
		Message:    nf.Message,
		CreatedAt:  time.Now().UTC(),
	})
}

func (svc *Service) QueryMine(ctx context.Context, tenantID string) ([]Feedback, error) {
	return svc.repo.QueryFeedback(ctx, tenantID)
}

// Summarize lists every Feedback along with the average rating, rounded to 2 decimals.
func (svc *Service) Summarize(ctx context.Context) (Summary, error) {
	items, err := svc.repo.QueryFeedback(ctx, "")
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Count: len(items), Items: items}
	if s.Count > 0 {
		var total int
		for _, f := range items {
			total += f.Rating
		}
		s.AverageRating = float64(int(float64(total)/float64(s.Count)*100+0.5)) / 100
	}
	return s, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteFeedback(ctx, id)
}
