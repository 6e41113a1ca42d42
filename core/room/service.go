package room

import (
	"context"
	"net/mail"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/user"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("room not found")
	ErrDuplicateNumber   = core.NewConflictError("a room with this number already exists")
	ErrInvalidType       = core.NewInvalidError("invalid room type: must be one of single, double, triple or dormitory")
	ErrTenantNotFound    = core.NewNotFoundError("tenant not found")
	ErrNotATenant        = core.NewInvalidError("user is not a tenant")
	ErrTenantNotApproved = core.NewInvalidError("tenant is not approved")
	ErrAlreadyAllocated  = core.NewConflictError("tenant is already allocated to this room")
	ErrRoomFull          = core.NewConflictError("room is full")
	ErrUnderMaintenance  = core.NewConflictError("room is under maintenance")
	ErrTenantNotInRoom   = core.NewNotFoundError("tenant is not in this room")
	ErrRoomOccupied      = core.NewConflictError("room still has tenants")
)

type (
	Repository interface {
		CreateRoom(ctx context.Context, room Room) (Room, error)
		// QueryRooms returns rooms with their tenants resolved.
		QueryRooms(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Room, error)
		GetRoom(ctx context.Context, id string) (Room, error)
		GetRoomByNumber(ctx context.Context, number string) (Room, error)
		// LockRoom returns the Room and locks its row until the end of the current transaction.
		LockRoom(ctx context.Context, id string) (Room, error)
		// RoomIDsWithTenant returns the ids of every room listing the tenant.
		RoomIDsWithTenant(ctx context.Context, tenantID string) ([]string, error)
		// ReserveSlot increments the occupancy of a room only while it is below capacity.
		// Returns ErrRoomFull when no slot was left.
		ReserveSlot(ctx context.Context, roomID string) error
		// AddTenant appends a tenant to a room. Returns ErrAlreadyAllocated if already listed.
		AddTenant(ctx context.Context, roomID, tenantID string, at time.Time) error
		// RemoveTenant removes a tenant from a room. Returns ErrTenantNotInRoom if not listed.
		RemoveTenant(ctx context.Context, roomID, tenantID string) error
		CountTenants(ctx context.Context, roomID string) (int, error)
		SetOccupancy(ctx context.Context, roomID string, occupied int, status Status) error
		// DeleteRoom deletes a room with its pending requests.
		DeleteRoom(ctx context.Context, id string) error
	}

	Service struct {
		txr     core.Transactor
		repo    Repository
		usrRepo user.Repository
		mailSvc core.EmailService
	}
)

func NewService(txr core.Transactor, repo Repository, usrRepo user.Repository, mailSvc core.EmailService) *Service {
	return &Service{
		txr:     txr,
		repo:    repo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
	}
}

func (svc *Service) Create(ctx context.Context, nr NewRoom, creatorID string) (Room, error) {
	if nr.normalizedType == "" {
		t, ok := NormalizeType(nr.Type)
		if !ok {
			return Room{}, ErrInvalidType
		}
		nr.normalizedType = t
	}
	if _, err := svc.repo.GetRoomByNumber(ctx, nr.Number); err == nil {
		return Room{}, ErrDuplicateNumber
	} else if errors.Cause(err) != ErrNotFound {
		return Room{}, errors.Wrap(err, "checking room number")
	}

	now := time.Now().UTC()
	return svc.repo.CreateRoom(ctx, Room{
		Number:    nr.Number,
		Type:      nr.normalizedType,
		Floor:     nr.Floor,
		Capacity:  nr.Capacity,
		Price:     nr.Price,
		Occupied:  0,
		Status:    StatusAvailable,
		Tenants:   []user.Ref{},
		CreatedBy: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Room, error) {
	return svc.repo.QueryRooms(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Room, error) {
	return svc.repo.GetRoom(ctx, id)
}

// Delete deletes an empty room. Rooms with tenants must be emptied first.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.txr.RunInTx(ctx, func(ctx context.Context) error {
		rm, err := svc.repo.LockRoom(ctx, id)
		if err != nil {
			return err
		}
		if rm.Occupied > 0 || len(rm.Tenants) > 0 {
			return ErrRoomOccupied
		}
		return svc.repo.DeleteRoom(ctx, id)
	})
}

// SetStatus puts a room under maintenance or takes it out of it.
func (svc *Service) SetStatus(ctx context.Context, id string, us UpdateStatus) (Room, error) {
	err := svc.txr.RunInTx(ctx, func(ctx context.Context) error {
		rm, err := svc.repo.LockRoom(ctx, id)
		if err != nil {
			return err
		}
		status := us.Status
		if status != StatusMaintenance {
			status = DeriveStatus(len(rm.Tenants), rm.Capacity, "")
		}
		return svc.repo.SetOccupancy(ctx, id, len(rm.Tenants), status)
	})
	if err != nil {
		return Room{}, err
	}
	return svc.repo.GetRoom(ctx, id)
}

// Assign allocates a tenant, given by id or email, to a room without going through a request.
func (svc *Service) Assign(ctx context.Context, roomID string, at AssignTenant) (Room, error) {
	tenantID := at.UserID
	if tenantID == "" {
		usr, err := svc.usrRepo.GetUserByEmail(ctx, at.Email)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return Room{}, ErrTenantNotFound
			}
			return Room{}, errors.Wrap(err, "finding tenant by email")
		}
		tenantID = usr.ID
	}

	rm, err := svc.Allocate(ctx, roomID, tenantID)
	if err != nil {
		return Room{}, err
	}
	svc.sendAssignedMail(rm, tenantID)
	return rm, nil
}

// Allocate moves a tenant into a room, out of whichever rooms they were in.
// Every step runs in one transaction: the tenant row and the rooms involved are locked,
// the target slot is reserved with a conditional update, and any failure rolls it all back.
func (svc *Service) Allocate(ctx context.Context, roomID, tenantID string) (Room, error) {
	err := svc.txr.RunInTx(ctx, func(ctx context.Context) error {
		tenant, rooms, priorIDs, err := svc.lockAllocation(ctx, roomID, tenantID)
		if err != nil {
			return err
		}
		if !tenant.IsTenant() {
			return ErrNotATenant
		}
		if !tenant.IsApproved {
			return ErrTenantNotApproved
		}

		target := rooms[roomID]
		if target.HasTenant(tenantID) {
			return ErrAlreadyAllocated
		}
		if target.Status == StatusMaintenance {
			return ErrUnderMaintenance
		}
		if target.IsFull() {
			return ErrRoomFull
		}

		for _, id := range priorIDs {
			if err = svc.repo.RemoveTenant(ctx, id, tenantID); err != nil {
				return errors.Wrap(err, "removing tenant from prior room")
			}
			if err = svc.syncOccupancy(ctx, rooms[id]); err != nil {
				return err
			}
		}
		if len(priorIDs) > 0 {
			if err = svc.usrRepo.SetCurrentRoom(ctx, tenantID, nil); err != nil {
				return errors.Wrap(err, "clearing current room")
			}
		}

		if err = svc.repo.ReserveSlot(ctx, roomID); err != nil {
			return err
		}
		if err = svc.repo.AddTenant(ctx, roomID, tenantID, time.Now().UTC()); err != nil {
			return err
		}
		if err = svc.syncOccupancy(ctx, target); err != nil {
			return err
		}
		return errors.Wrap(svc.usrRepo.SetCurrentRoom(ctx, tenantID, &roomID), "setting current room")
	})
	if err != nil {
		return Room{}, err
	}
	return svc.repo.GetRoom(ctx, roomID)
}

// RemoveTenant takes a tenant out of a room. The tenant's current room is cleared once they are in no room.
func (svc *Service) RemoveTenant(ctx context.Context, roomID, tenantID string) (Room, error) {
	err := svc.txr.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := svc.usrRepo.LockUser(ctx, tenantID); err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return ErrTenantNotInRoom
			}
			return errors.Wrap(err, "locking tenant")
		}
		rm, err := svc.repo.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !rm.HasTenant(tenantID) {
			return ErrTenantNotInRoom
		}
		if err = svc.repo.RemoveTenant(ctx, roomID, tenantID); err != nil {
			return err
		}
		if err = svc.syncOccupancy(ctx, rm); err != nil {
			return err
		}

		left, err := svc.repo.RoomIDsWithTenant(ctx, tenantID)
		if err != nil {
			return errors.Wrap(err, "finding tenant rooms")
		}
		var current *string
		if len(left) > 0 {
			current = &left[0]
		}
		return errors.Wrap(svc.usrRepo.SetCurrentRoom(ctx, tenantID, current), "setting current room")
	})
	if err != nil {
		return Room{}, err
	}
	return svc.repo.GetRoom(ctx, roomID)
}

// LockAllocation takes the locks Allocate needs, for callers that must hold them before locking rows of their own.
func (svc *Service) LockAllocation(ctx context.Context, roomID, tenantID string) error {
	_, _, _, err := svc.lockAllocation(ctx, roomID, tenantID)
	return err
}

// Row locks are always taken in the same order: the tenant, then rooms by ascending id,
// then the rows hanging off a room (requests). Operations locking fewer rows keep that order.
func (svc *Service) lockAllocation(ctx context.Context, roomID, tenantID string) (user.User, map[string]Room, []string, error) {
	tenant, err := svc.usrRepo.LockUser(ctx, tenantID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, nil, nil, ErrTenantNotFound
		}
		return user.User{}, nil, nil, errors.Wrap(err, "locking tenant")
	}
	priorIDs, err := svc.repo.RoomIDsWithTenant(ctx, tenantID)
	if err != nil {
		return user.User{}, nil, nil, errors.Wrap(err, "finding tenant rooms")
	}
	rooms, err := svc.lockRooms(ctx, append([]string{roomID}, priorIDs...))
	if err != nil {
		return user.User{}, nil, nil, err
	}
	return tenant, rooms, priorIDs, nil
}

// lockRooms locks rooms in ascending id order.
func (svc *Service) lockRooms(ctx context.Context, ids []string) (map[string]Room, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	rooms := make(map[string]Room, len(sorted))
	for _, id := range sorted {
		if _, ok := rooms[id]; ok {
			continue
		}
		rm, err := svc.repo.LockRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		rooms[id] = rm
	}
	return rooms, nil
}

// syncOccupancy recomputes the occupancy of a room from its tenant list.
func (svc *Service) syncOccupancy(ctx context.Context, rm Room) error {
	count, err := svc.repo.CountTenants(ctx, rm.ID)
	if err != nil {
		return errors.Wrap(err, "counting tenants")
	}
	status := DeriveStatus(count, rm.Capacity, rm.Status)
	return errors.Wrap(svc.repo.SetOccupancy(ctx, rm.ID, count, status), "setting occupancy")
}

func (svc *Service) sendAssignedMail(rm Room, tenantID string) {
	for _, t := range rm.Tenants {
		if t.ID != tenantID {
			continue
		}
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: t.Name, Address: t.Email}},
			Subject:      "Room " + rm.Number + " assigned",
			TemplateName: "room_assigned",
			TemplateData: struct {
				Name       string
				RoomNumber string
				Floor      int
			}{t.Name, rm.Number, rm.Floor},
		})
		return
	}
}
