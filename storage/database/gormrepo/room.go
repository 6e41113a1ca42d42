package gormrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/roomrequest"
	"github.com/trezcool/pgmanager/core/user"
)

var roomOrderings = map[string]string{
	"room_number": "number",
	"type":        "type",
	"floor":       "floor",
	"capacity":    "capacity",
	"price":       "price",
	"occupied":    "occupied",
	"status":      "status",
	"created_at":  "created_at",
}

type roomRepository struct {
	repo
}

var _ room.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *gorm.DB) *roomRepository {
	return &roomRepository{repo{db: db}}
}

func (r *roomRepository) boil(rm room.Room) *roomRow {
	return &roomRow{
		ID:        rm.ID,
		Number:    rm.Number,
		Type:      string(rm.Type),
		Floor:     rm.Floor,
		Capacity:  rm.Capacity,
		Price:     rm.Price,
		Occupied:  rm.Occupied,
		Status:    string(rm.Status),
		CreatedBy: rm.CreatedBy,
		CreatedAt: rm.CreatedAt.UTC(),
		UpdatedAt: rm.UpdatedAt.UTC(),
	}
}

func (r *roomRepository) unboil(row *roomRow, tenants []user.Ref) room.Room {
	if tenants == nil {
		tenants = []user.Ref{}
	}
	return room.Room{
		ID:        row.ID,
		Number:    row.Number,
		Type:      room.Type(row.Type),
		Floor:     row.Floor,
		Capacity:  row.Capacity,
		Price:     row.Price,
		Occupied:  row.Occupied,
		Status:    room.Status(row.Status),
		Tenants:   tenants,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

// tenantRefs resolves the tenants of every given room, in allocation order.
func (r *roomRepository) tenantRefs(ctx context.Context, roomIDs ...string) (map[string][]user.Ref, error) {
	refs := make(map[string][]user.Ref, len(roomIDs))
	if len(roomIDs) == 0 {
		return refs, nil
	}

	var rows []struct {
		RoomID string
		ID     string
		Name   string
		Email  string
	}
	err := r.conn(ctx).
		Table("room_tenants AS rt").
		Select("rt.room_id, u.id, u.name, u.email").
		Joins("JOIN users AS u ON u.id = rt.tenant_id").
		Where("rt.room_id IN ?", roomIDs).
		Order("rt.assigned_at, u.id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "selecting room tenants")
	}
	for _, row := range rows {
		refs[row.RoomID] = append(refs[row.RoomID], user.Ref{ID: row.ID, Name: row.Name, Email: row.Email})
	}
	return refs, nil
}

func (r *roomRepository) withTenants(ctx context.Context, row *roomRow) (room.Room, error) {
	refs, err := r.tenantRefs(ctx, row.ID)
	if err != nil {
		return room.Room{}, err
	}
	return r.unboil(row, refs[row.ID]), nil
}

func (r *roomRepository) CreateRoom(ctx context.Context, rm room.Room) (room.Room, error) {
	rm.ID = newID()
	row := r.boil(rm)
	if err := r.conn(ctx).Create(row).Error; err != nil {
		return room.Room{}, trapUnique(err, room.ErrDuplicateNumber, "inserting room")
	}
	return r.unboil(row, nil), nil
}

func (r *roomRepository) QueryRooms(ctx context.Context, filter room.QueryFilter, ordering []core.DBOrdering) ([]room.Room, error) {
	q := r.conn(ctx).Model(&roomRow{})
	if filter.Search != "" {
		q = q.Where(`number LIKE ? ESCAPE '\'`, prefixPattern(filter.Search))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Floor != nil {
		q = q.Where("floor = ?", *filter.Floor)
	}
	q = applyOrdering(q, ordering, roomOrderings, "floor ASC", "number ASC")

	var rows []roomRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting rooms")
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	refs, err := r.tenantRefs(ctx, ids...)
	if err != nil {
		return nil, err
	}

	rooms := make([]room.Room, 0, len(rows))
	for i := range rows {
		rooms = append(rooms, r.unboil(&rows[i], refs[rows[i].ID]))
	}
	return rooms, nil
}

func (r *roomRepository) GetRoom(ctx context.Context, id string) (room.Room, error) {
	var row roomRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return room.Room{}, trapNotFound(err, room.ErrNotFound, "selecting room")
	}
	return r.withTenants(ctx, &row)
}

func (r *roomRepository) GetRoomByNumber(ctx context.Context, number string) (room.Room, error) {
	var row roomRow
	if err := r.conn(ctx).First(&row, "number = ?", number).Error; err != nil {
		return room.Room{}, trapNotFound(err, room.ErrNotFound, "selecting room")
	}
	return r.withTenants(ctx, &row)
}

func (r *roomRepository) LockRoom(ctx context.Context, id string) (room.Room, error) {
	var row roomRow
	if err := r.forUpdate(ctx).First(&row, "id = ?", id).Error; err != nil {
		return room.Room{}, trapNotFound(err, room.ErrNotFound, "locking room")
	}
	return r.withTenants(ctx, &row)
}

func (r *roomRepository) RoomIDsWithTenant(ctx context.Context, tenantID string) ([]string, error) {
	var ids []string
	err := r.conn(ctx).
		Model(&roomTenantRow{}).
		Where("tenant_id = ?", tenantID).
		Order("assigned_at").
		Pluck("room_id", &ids).Error
	return ids, errors.Wrap(err, "selecting tenant rooms")
}

func (r *roomRepository) ReserveSlot(ctx context.Context, roomID string) error {
	res := r.conn(ctx).
		Model(&roomRow{}).
		Where("id = ? AND occupied < capacity", roomID).
		UpdateColumn("occupied", gorm.Expr("occupied + 1"))
	if res.Error != nil {
		return errors.Wrap(res.Error, "reserving room slot")
	}
	if res.RowsAffected == 0 {
		return room.ErrRoomFull
	}
	return nil
}

func (r *roomRepository) AddTenant(ctx context.Context, roomID, tenantID string, at time.Time) error {
	err := r.conn(ctx).Create(&roomTenantRow{RoomID: roomID, TenantID: tenantID, AssignedAt: at.UTC()}).Error
	if err != nil {
		return trapUnique(err, room.ErrAlreadyAllocated, "inserting room tenant")
	}
	return nil
}

func (r *roomRepository) RemoveTenant(ctx context.Context, roomID, tenantID string) error {
	res := r.conn(ctx).Delete(&roomTenantRow{}, "room_id = ? AND tenant_id = ?", roomID, tenantID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting room tenant")
	}
	if res.RowsAffected == 0 {
		return room.ErrTenantNotInRoom
	}
	return nil
}

func (r *roomRepository) CountTenants(ctx context.Context, roomID string) (int, error) {
	var count int64
	err := r.conn(ctx).Model(&roomTenantRow{}).Where("room_id = ?", roomID).Count(&count).Error
	return int(count), errors.Wrap(err, "counting room tenants")
}

func (r *roomRepository) SetOccupancy(ctx context.Context, roomID string, occupied int, status room.Status) error {
	res := r.conn(ctx).
		Model(&roomRow{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{"occupied": occupied, "status": string(status)})
	if res.Error != nil {
		return errors.Wrap(res.Error, "updating room occupancy")
	}
	if res.RowsAffected == 0 {
		return room.ErrNotFound
	}
	return nil
}

func (r *roomRepository) DeleteRoom(ctx context.Context, id string) error {
	conn := r.conn(ctx)
	err := conn.Delete(&roomRequestRow{}, "room_id = ? AND status = ?", id, string(roomrequest.StatusPending)).Error
	if err != nil {
		return errors.Wrap(err, "deleting pending room requests")
	}
	res := conn.Delete(&roomRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting room")
	}
	if res.RowsAffected == 0 {
		return room.ErrNotFound
	}
	return nil
}
