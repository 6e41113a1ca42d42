package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/pgmanager/core"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
	RoleTenant = "tenant"
)

var (
	AllRoles = []string{RoleOwner, RoleAdmin, RoleTenant}

	rolePriorities = map[string]int{
		RoleOwner:  30,
		RoleAdmin:  20,
		RoleTenant: 1,
	}

	// PasswordCost is the bcrypt cost. Tests lower it.
	PasswordCost = bcrypt.DefaultCost
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	IsApproved    bool       `json:"is_approved"`
	Phone         string     `json:"phone,omitempty"`
	Address       string     `json:"address,omitempty"`
	GovernmentID  string     `json:"government_id,omitempty"`
	CurrentRoomID *string    `json:"current_room_id"`
	PasswordHash  []byte     `json:"-"`
	CreatedAt     time.Time  `json:"created_at"` // UTC
	UpdatedAt     time.Time  `json:"updated_at"` // UTC
	LastLogin     *time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), PasswordCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin || u.Role == RoleOwner }
func (u *User) IsOwner() bool  { return u.Role == RoleOwner }
func (u *User) IsTenant() bool { return u.Role == RoleTenant }

// Ref is the public identity of a User, as shown on rooms and other records.
type Ref struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Ref() Ref {
	return Ref{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NewUser contains information needed to create a new User.
// Role is ignored on signup: everyone signing up is a tenant.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,userrole"`
	Phone           string `json:"phone" validate:"omitempty,max=20"`
	Address         string `json:"address" validate:"omitempty,max=255"`
	GovernmentID    string `json:"government_id" validate:"omitempty,max=50"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Address = core.CleanString(nu.Address)
	nu.GovernmentID = core.CleanString(nu.GovernmentID)
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Clean()
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nu.Email)
}

// UpdateProfile defines what information a User may change about themselves.
type UpdateProfile struct {
	Name            string `json:"name"`
	Phone           string `json:"phone" validate:"omitempty,max=20"`
	Address         string `json:"address" validate:"omitempty,max=255"`
	GovernmentID    string `json:"government_id" validate:"omitempty,max=50"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	email string // set from the original User, for the password policy
}

func (up *UpdateProfile) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = origUsr.Name
	}
	up.Phone = core.CleanString(up.Phone)
	up.Address = core.CleanString(up.Address)
	up.GovernmentID = core.CleanString(up.GovernmentID)
	up.email = origUsr.Email
	return validate.Struct(up)
}

type QueryFilter struct {
	Search     string   `query:"search"`
	Roles      []string `query:"role"`
	IsApproved *bool    `query:"is_approved"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
