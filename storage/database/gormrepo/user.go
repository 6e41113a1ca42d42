package gormrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/user"
)

var userOrderings = map[string]string{
	"name":        "name",
	"email":       "email",
	"role":        "role",
	"is_approved": "is_approved",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"last_login":  "last_login",
}

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{repo{db: db}}
}

func (r *userRepository) boil(usr user.User) *userRow {
	return &userRow{
		ID:            usr.ID,
		Name:          usr.Name,
		Email:         usr.Email,
		Role:          usr.Role,
		IsApproved:    usr.IsApproved,
		Phone:         usr.Phone,
		Address:       usr.Address,
		GovernmentID:  usr.GovernmentID,
		CurrentRoomID: usr.CurrentRoomID,
		PasswordHash:  usr.PasswordHash,
		CreatedAt:     usr.CreatedAt.UTC(),
		UpdatedAt:     usr.UpdatedAt.UTC(),
		LastLogin:     usr.LastLogin,
	}
}

func (r *userRepository) unboil(row *userRow) user.User {
	return user.User{
		ID:            row.ID,
		Name:          row.Name,
		Email:         row.Email,
		Role:          row.Role,
		IsApproved:    row.IsApproved,
		Phone:         row.Phone,
		Address:       row.Address,
		GovernmentID:  row.GovernmentID,
		CurrentRoomID: row.CurrentRoomID,
		PasswordHash:  row.PasswordHash,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
		LastLogin:     utcPtr(row.LastLogin),
	}
}

func (r *userRepository) unboilSlice(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for i := range rows {
		users = append(users, r.unboil(&rows[i]))
	}
	return users
}

func (r *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := r.conn(ctx).Model(&userRow{}).Where("email = ?", email)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (r *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	row := r.boil(usr)
	if err := r.conn(ctx).Create(row).Error; err != nil {
		return user.User{}, trapUnique(err, user.ErrEmailExists, "inserting user")
	}
	return r.unboil(row), nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var row userRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return user.User{}, trapNotFound(err, user.ErrNotFound, "selecting user")
	}
	return r.unboil(&row), nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := r.conn(ctx).First(&row, "email = ?", email).Error; err != nil {
		return user.User{}, trapNotFound(err, user.ErrNotFound, "selecting user")
	}
	return r.unboil(&row), nil
}

func (r *userRepository) LockUser(ctx context.Context, id string) (user.User, error) {
	var row userRow
	if err := r.forUpdate(ctx).First(&row, "id = ?", id).Error; err != nil {
		return user.User{}, trapNotFound(err, user.ErrNotFound, "locking user")
	}
	return r.unboil(&row), nil
}

func (r *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := r.conn(ctx).Model(&userRow{})

	// users with Name or Email matching the search keyword
	if filter.Search != "" {
		val := containsPattern(filter.Search)
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, val, val)
	}
	if len(filter.Roles) > 0 {
		q = q.Where("role IN ?", filter.Roles)
	}
	if filter.IsApproved != nil {
		q = q.Where("is_approved = ?", *filter.IsApproved)
	}
	q = applyOrdering(q, ordering, userOrderings, "created_at DESC")

	var rows []userRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return r.unboilSlice(rows), nil
}

// updateColumns writes only the given columns of usr and returns the stored row.
func (r *userRepository) updateColumns(ctx context.Context, usr user.User, q *gorm.DB, cols ...string) (user.User, error) {
	row := r.boil(usr)
	res := q.Model(&userRow{}).Where("id = ?", usr.ID).Select(cols).Updates(row)
	if res.Error != nil {
		return user.User{}, trapUnique(res.Error, user.ErrEmailExists, "updating user")
	}
	if res.RowsAffected == 0 {
		return user.User{}, user.ErrNotFound
	}
	return r.GetUserByID(ctx, usr.ID)
}

func (r *userRepository) UpdateProfile(ctx context.Context, usr user.User) (user.User, error) {
	return r.updateColumns(ctx, usr, r.conn(ctx), "name", "phone", "address", "government_id", "password_hash", "updated_at")
}

func (r *userRepository) UpdateAccount(ctx context.Context, usr user.User) (user.User, error) {
	q := r.conn(ctx)
	if usr.Role != user.RoleTenant {
		q = q.Where("current_room_id IS NULL")
	}
	updated, err := r.updateColumns(ctx, usr, q, "name", "role", "is_approved", "password_hash", "updated_at")
	if errors.Cause(err) == user.ErrNotFound {
		if _, getErr := r.GetUserByID(ctx, usr.ID); getErr == nil {
			return user.User{}, user.ErrTenantAllocated
		}
	}
	return updated, err
}

func (r *userRepository) SetPasswordHash(ctx context.Context, id string, hash []byte, at time.Time) error {
	res := r.conn(ctx).
		Model(&userRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": hash, "updated_at": at.UTC()})
	if res.Error != nil {
		return errors.Wrap(res.Error, "updating password")
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetApproved(ctx context.Context, id string, at time.Time) error {
	res := r.conn(ctx).
		Model(&userRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_approved": true, "updated_at": at.UTC()})
	if res.Error != nil {
		return errors.Wrap(res.Error, "approving user")
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	err := r.conn(ctx).Model(&userRow{}).Where("id = ?", id).UpdateColumn("last_login", at.UTC()).Error
	return errors.Wrap(err, "updating last login")
}

func (r *userRepository) SetCurrentRoom(ctx context.Context, id string, roomID *string) error {
	res := r.conn(ctx).Model(&userRow{}).Where("id = ?", id).Update("current_room_id", roomID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "updating current room")
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *userRepository) DeleteUser(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&userRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting user")
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
