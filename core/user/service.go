package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = core.NewInvalidError("invalid credentials")
	ErrNotApproved        = core.NewForbiddenError("account pending approval")
	ErrNotATenant         = core.NewInvalidError("user is not a tenant")
	ErrAlreadyApproved    = core.NewConflictError("tenant is already approved")
	ErrTooManyAttempts    = core.NewTooManyRequestsError("too many failed login attempts, try again later")
	ErrTenantAllocated    = core.NewConflictError("tenant is allocated to a room, remove them from it before changing their role")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, user User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// LockUser returns the User and locks its row until the end of the current transaction.
		LockUser(ctx context.Context, id string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		// UpdateProfile writes the profile fields & password hash of a User.
		UpdateProfile(ctx context.Context, user User) (User, error)
		// UpdateAccount writes the name, role, approval & password hash of a User.
		// Returns ErrTenantAllocated when moving a tenant still listed in a room to another role.
		UpdateAccount(ctx context.Context, user User) (User, error)
		SetPasswordHash(ctx context.Context, id string, hash []byte, at time.Time) error
		SetApproved(ctx context.Context, id string, at time.Time) error
		SetLastLogin(ctx context.Context, id string, at time.Time) error
		SetCurrentRoom(ctx context.Context, id string, roomID *string) error
		DeleteUser(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		limiter core.AttemptLimiter
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, limiter core.AttemptLimiter, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		limiter: limiter,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) create(ctx context.Context, nu NewUser, role string, approved bool) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:         nu.Name,
		Email:        nu.Email,
		Role:         role,
		IsApproved:   approved,
		Phone:        nu.Phone,
		Address:      nu.Address,
		GovernmentID: nu.GovernmentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if errors.Cause(err) == ErrEmailExists {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	}
	return usr, err
}

// Signup creates a tenant. Tenants wait for an admin approval unless AutoApproveTenants is set.
func (svc *Service) Signup(ctx context.Context, nu NewUser) (User, error) {
	return svc.create(ctx, nu, RoleTenant, svc.conf.AutoApproveTenants)
}

// Create creates a User on behalf of an admin. Users created this way are approved.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	role := nu.Role
	if role == "" {
		role = RoleTenant
	}
	return svc.create(ctx, nu, role, true)
}

func loginAttemptsKey(email string) string {
	return "login:attempts:" + email
}

// Authenticate checks the credentials of a User and stamps their last login.
// Failed attempts are counted per email; past the configured maximum, logins are refused for the lockout window.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	key := loginAttemptsKey(email)

	attempts, err := svc.limiter.Attempts(ctx, key)
	if err != nil {
		return User{}, errors.Wrap(err, "reading login attempts")
	}
	if max := svc.conf.Auth.LoginMaxAttempts; max > 0 && attempts >= int64(max) {
		return User{}, ErrTooManyAttempts
	}

	fail := func() (User, error) {
		if _, err := svc.limiter.Hit(ctx, key, svc.conf.Auth.LoginLockoutWindow); err != nil {
			return User{}, errors.Wrap(err, "recording login attempt")
		}
		return User{}, ErrInvalidCredentials
	}

	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return fail()
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return fail()
	}
	if !usr.IsApproved {
		return User{}, ErrNotApproved
	}
	if err = svc.limiter.Reset(ctx, key); err != nil {
		return User{}, errors.Wrap(err, "resetting login attempts")
	}

	now := time.Now().UTC()
	if err = svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	usr.LastLogin = &now
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// QueryTenants lists tenants, optionally filtered on their approval.
func (svc *Service) QueryTenants(ctx context.Context, search string, approved *bool) ([]User, error) {
	return svc.repo.QueryUsers(
		ctx,
		QueryFilter{Search: core.CleanString(search), Roles: []string{RoleTenant}, IsApproved: approved},
		[]core.DBOrdering{{Field: "created_at", Ascending: true}},
	)
}

func (svc *Service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	usr.Name = up.Name
	usr.Phone = up.Phone
	usr.Address = up.Address
	usr.GovernmentID = up.GovernmentID
	usr.UpdatedAt = time.Now().UTC()
	if up.Password != "" {
		if err := usr.SetPassword(up.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateProfile(ctx, usr)
}

// UpdateOrCreate saves an approved User with the given role & password, matched by email.
func (svc *Service) UpdateOrCreate(ctx context.Context, name, email, pwd, role string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	usr, err := svc.repo.GetUserByEmail(ctx, email)
	isNew := errors.Cause(err) == ErrNotFound
	if err != nil && !isNew {
		return User{}, errors.Wrap(err, "finding user by email")
	}

	now := time.Now().UTC()
	if isNew {
		usr = User{Email: email, CreatedAt: now}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = email
	}
	usr.Role = role
	usr.IsApproved = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	if isNew {
		return svc.repo.CreateUser(ctx, usr)
	}
	return svc.repo.UpdateAccount(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.repo.SetPasswordHash(ctx, usr.ID, usr.PasswordHash, time.Now().UTC())
}

// ApproveTenant approves a tenant and lets them know. Approving an approved tenant is a no-op.
func (svc *Service) ApproveTenant(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsTenant() {
		return User{}, ErrNotATenant
	}
	if usr.IsApproved {
		return usr, nil
	}

	if err = svc.repo.SetApproved(ctx, usr.ID, time.Now().UTC()); err != nil {
		return User{}, errors.Wrap(err, "approving tenant")
	}
	if usr, err = svc.repo.GetUserByID(ctx, id); err != nil {
		return User{}, err
	}
	svc.sendApprovalMail(usr)
	return usr, nil
}

// RejectTenant deletes a tenant still waiting for approval.
func (svc *Service) RejectTenant(ctx context.Context, id string) error {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if !usr.IsTenant() {
		return ErrNotATenant
	}
	if usr.IsApproved {
		return ErrAlreadyApproved
	}
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *Service) sendApprovalMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your account has been approved",
		TemplateName: "tenant_approved",
		TemplateData: usr.Ref(),
	})
}
