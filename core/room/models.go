package room

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/user"
)

type (
	Type   string
	Status string
)

const (
	TypeSingle    Type = "single"
	TypeDouble    Type = "double"
	TypeTriple    Type = "triple"
	TypeDormitory Type = "dormitory"

	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
)

var (
	typeSynonyms = map[string]Type{
		"1":              TypeSingle,
		"single":         TypeSingle,
		"single share":   TypeSingle,
		"single sharing": TypeSingle,
		"single room":    TypeSingle,
		"2":              TypeDouble,
		"double":         TypeDouble,
		"double share":   TypeDouble,
		"double sharing": TypeDouble,
		"double room":    TypeDouble,
		"twin":           TypeDouble,
		"3":              TypeTriple,
		"triple":         TypeTriple,
		"triple share":   TypeTriple,
		"triple sharing": TypeTriple,
		"triple room":    TypeTriple,
		"4":              TypeDormitory,
		"4+":             TypeDormitory,
		"dorm":           TypeDormitory,
		"dormitory":      TypeDormitory,
		"shared":         TypeDormitory,
	}

	defaultCapacities = map[Type]int{
		TypeSingle: 1,
		TypeDouble: 2,
		TypeTriple: 3,
	}

	typeSeparators = strings.NewReplacer("-", " ", "_", " ")
)

// NormalizeType maps the accepted spellings of a room type to its Type.
func NormalizeType(s string) (Type, bool) {
	s = typeSeparators.Replace(core.CleanString(s, true /* lower */))
	s = strings.Join(strings.Fields(s), " ")
	t, ok := typeSynonyms[s]
	return t, ok
}

// DefaultCapacity returns the capacity implied by a room type. Dormitories have none.
func DefaultCapacity(t Type) (int, bool) {
	c, ok := defaultCapacities[t]
	return c, ok
}

// DeriveStatus computes a room status from its occupancy. Maintenance is only ever set by hand and sticks.
func DeriveStatus(occupied, capacity int, current Status) Status {
	if current == StatusMaintenance {
		return StatusMaintenance
	}
	if occupied >= capacity {
		return StatusOccupied
	}
	return StatusAvailable
}

type Room struct {
	ID        string          `json:"id"`
	Number    string          `json:"room_number"`
	Type      Type            `json:"type"`
	Floor     int             `json:"floor"`
	Capacity  int             `json:"capacity"`
	Price     decimal.Decimal `json:"price"`
	Occupied  int             `json:"occupied"`
	Status    Status          `json:"status"`
	Tenants   []user.Ref      `json:"tenants"` // ordered by allocation time
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"` // UTC
	UpdatedAt time.Time       `json:"updated_at"` // UTC
}

func (r *Room) IsFull() bool {
	return len(r.Tenants) >= r.Capacity
}

func (r *Room) HasTenant(id string) bool {
	for _, t := range r.Tenants {
		if t.ID == id {
			return true
		}
	}
	return false
}

// NewRoom contains information needed to create a new Room.
type NewRoom struct {
	Number   string          `json:"room_number" validate:"required,max=20"`
	Type     string          `json:"type" validate:"required"`
	Capacity int             `json:"capacity" validate:"omitempty,min=1,max=100"`
	Price    decimal.Decimal `json:"price"`
	Floor    int             `json:"floor" validate:"min=0,max=200"`

	normalizedType Type
}

func (nr *NewRoom) Validate(validate *validator.Validate) error {
	nr.Number = core.CleanString(nr.Number)
	if err := validate.Struct(nr); err != nil {
		return err
	}

	var flds []core.FieldError
	t, ok := NormalizeType(nr.Type)
	if !ok {
		flds = append(flds, core.FieldError{Field: "type", Error: ErrInvalidType.Error()})
	} else if nr.Capacity == 0 {
		if c, ok := DefaultCapacity(t); ok {
			nr.Capacity = c
		} else {
			flds = append(flds, core.FieldError{Field: "capacity", Error: "capacity is required for dormitory rooms"})
		}
	}
	if nr.Price.IsNegative() {
		flds = append(flds, core.FieldError{Field: "price", Error: "price cannot be negative"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	nr.normalizedType = t
	return nil
}

// UpdateStatus toggles the manual maintenance status of a Room.
type UpdateStatus struct {
	Status Status `json:"status" validate:"required,oneof=maintenance available"`
}

func (us UpdateStatus) Validate(validate *validator.Validate) error { return validate.Struct(us) }

// AssignTenant references the tenant to allocate, by id or email.
type AssignTenant struct {
	UserID string `json:"user_id" validate:"required_without=Email"`
	Email  string `json:"email" validate:"omitempty,email"`
}

func (at *AssignTenant) Validate(validate *validator.Validate) error {
	at.UserID = core.CleanString(at.UserID)
	at.Email = core.CleanString(at.Email, true /* lower */)
	return validate.Struct(at)
}

type QueryFilter struct {
	Search string `query:"search"` // room number prefix
	Status string `query:"status"`
	Type   string `query:"type"`
	Floor  *int   `query:"floor"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	if t, ok := NormalizeType(qf.Type); ok {
		qf.Type = string(t)
	} else {
		qf.Type = core.CleanString(qf.Type, true /* lower */)
	}
}
