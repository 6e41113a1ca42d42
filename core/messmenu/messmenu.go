package messmenu

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/pgmanager/core"
)

type (
	Day  string
	Meal string
)

var (
	ErrNotFound = core.NewNotFoundError("menu entry not found")

	Days  = []Day{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	Meals = []Meal{"breakfast", "lunch", "snacks", "dinner"}
)

func dayIndex(d Day) int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return len(Days)
}

func mealIndex(m Meal) int {
	for i, meal := range Meals {
		if meal == m {
			return i
		}
	}
	return len(Meals)
}

// Entry is what is served for one meal of one day of the week.
type Entry struct {
	ID        string    `json:"id"`
	Day       Day       `json:"day"`
	Meal      Meal      `json:"meal"`
	Items     []string  `json:"items"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// SetEntry sets the items of the (Day, Meal) slot.
type SetEntry struct {
	Day   Day      `json:"day" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Meal  Meal     `json:"meal" validate:"required,oneof=breakfast lunch snacks dinner"`
	Items []string `json:"items" validate:"required,min=1,max=30,dive,required,max=100"`
}

func (se *SetEntry) Validate(validate *validator.Validate) error {
	se.Day = Day(core.CleanString(string(se.Day), true /* lower */))
	se.Meal = Meal(core.CleanString(string(se.Meal), true /* lower */))
	items := make([]string, 0, len(se.Items))
	for _, item := range se.Items {
		if item = core.CleanString(item); item != "" {
			items = append(items, item)
		}
	}
	se.Items = items
	return validate.Struct(se)
}

type (
	Repository interface {
		// UpsertEntry creates the (Day, Meal) Entry or replaces its items.
		UpsertEntry(ctx context.Context, e Entry) (Entry, error)
		QueryEntries(ctx context.Context, day Day) ([]Entry, error)
		DeleteEntry(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Set(ctx context.Context, se SetEntry, updaterID string) (Entry, error) {
	return svc.repo.UpsertEntry(ctx, Entry{
		Day:       se.Day,
		Meal:      se.Meal,
		Items:     se.Items,
		UpdatedBy: updaterID,
		UpdatedAt: time.Now().UTC(),
	})
}

// Query lists the menu in weekday then meal order. An empty day lists the whole week.
func (svc *Service) Query(ctx context.Context, day string) ([]Entry, error) {
	entries, err := svc.repo.QueryEntries(ctx, Day(core.CleanString(day, true /* lower */)))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := dayIndex(entries[i].Day), dayIndex(entries[j].Day)
		if di != dj {
			return di < dj
		}
		return mealIndex(entries[i].Meal) < mealIndex(entries[j].Meal)
	})
	return entries, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEntry(ctx, id)
}
