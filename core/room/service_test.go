package room_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/user"
	cachesvc "github.com/trezcool/pgmanager/services/cache"
	emailsvc "github.com/trezcool/pgmanager/services/email"
	logsvc "github.com/trezcool/pgmanager/services/logger"
	"github.com/trezcool/pgmanager/storage/database"
	"github.com/trezcool/pgmanager/storage/database/gormrepo"
	testutil "github.com/trezcool/pgmanager/tests"
)

type fixture struct {
	svc      *room.Service
	roomRepo room.Repository
	usrRepo  user.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.PrepareDB(t)
	logger := logsvc.NewZeroLogger(zerolog.Nop())
	f := fixture{
		roomRepo: gormrepo.NewRoomRepository(db),
		usrRepo:  gormrepo.NewUserRepository(db),
	}
	f.svc = room.NewService(database.NewTransactor(db), f.roomRepo, f.usrRepo, emailsvc.NewConsoleServiceMock(core.NewTestConfig(), logger))
	return f
}

func (f fixture) tenant(t *testing.T, name, email string) user.User {
	return testutil.CreateUser(t, f.usrRepo, name, email, "", user.RoleTenant, true)
}

func (f fixture) room(t *testing.T, number string, capacity int) room.Room {
	return testutil.CreateRoom(t, f.roomRepo, number, room.TypeDormitory, capacity, 1)
}

// checkConsistent verifies that occupancy, status and the tenants' current rooms agree with the tenant lists.
func (f fixture) checkConsistent(t *testing.T, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		rm, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, len(rm.Tenants), rm.Occupied, "room %s occupancy", rm.Number)
		assert.LessOrEqual(t, rm.Occupied, rm.Capacity, "room %s capacity", rm.Number)
		assert.Equal(t, room.DeriveStatus(rm.Occupied, rm.Capacity, rm.Status), rm.Status, "room %s status", rm.Number)
		for _, ref := range rm.Tenants {
			usr, err := f.usrRepo.GetUserByID(ctx, ref.ID)
			require.NoError(t, err)
			require.NotNil(t, usr.CurrentRoomID, "tenant %s current room", usr.Email)
			assert.Equal(t, rm.ID, *usr.CurrentRoomID, "tenant %s current room", usr.Email)
		}
	}
}

func TestService_Allocate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	asha := f.tenant(t, "Asha", "asha@test.in")
	ravi := f.tenant(t, "Ravi", "ravi@test.in")
	r1 := f.room(t, "101", 1)
	r2 := f.room(t, "102", 2)

	t.Run("into an empty room", func(t *testing.T) {
		rm, err := f.svc.Allocate(ctx, r1.ID, asha.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, rm.Occupied)
		assert.Equal(t, room.StatusOccupied, rm.Status)
		f.checkConsistent(t, r1.ID)
	})

	t.Run("room full rolls back", func(t *testing.T) {
		_, err := f.svc.Allocate(ctx, r1.ID, ravi.ID)
		assert.Equal(t, room.ErrRoomFull, errors.Cause(err))

		usr, err := f.usrRepo.GetUserByID(ctx, ravi.ID)
		require.NoError(t, err)
		assert.Nil(t, usr.CurrentRoomID)
		f.checkConsistent(t, r1.ID)
	})

	t.Run("twice", func(t *testing.T) {
		_, err := f.svc.Allocate(ctx, r1.ID, asha.ID)
		assert.Equal(t, room.ErrAlreadyAllocated, errors.Cause(err))
	})

	t.Run("move", func(t *testing.T) {
		rm, err := f.svc.Allocate(ctx, r2.ID, asha.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, rm.Occupied)

		from, err := f.svc.Get(ctx, r1.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, from.Occupied)
		assert.Equal(t, room.StatusAvailable, from.Status)
		f.checkConsistent(t, r1.ID, r2.ID)
	})

	t.Run("a failed move keeps the tenant where they were", func(t *testing.T) {
		_, err := f.svc.SetStatus(ctx, r1.ID, room.UpdateStatus{Status: room.StatusMaintenance})
		require.NoError(t, err)

		_, err = f.svc.Allocate(ctx, r1.ID, asha.ID)
		assert.Equal(t, room.ErrUnderMaintenance, errors.Cause(err))

		rm, err := f.svc.Get(ctx, r2.ID)
		require.NoError(t, err)
		assert.True(t, rm.HasTenant(asha.ID))
		f.checkConsistent(t, r1.ID, r2.ID)
	})

	t.Run("tenant checks", func(t *testing.T) {
		admin := testutil.CreateUser(t, f.usrRepo, "Admin", "admin@test.in", "", user.RoleAdmin, true)
		pending := testutil.CreateUser(t, f.usrRepo, "Kiran", "kiran@test.in", "", user.RoleTenant, false)

		_, err := f.svc.Allocate(ctx, r2.ID, admin.ID)
		assert.Equal(t, room.ErrNotATenant, errors.Cause(err))
		_, err = f.svc.Allocate(ctx, r2.ID, pending.ID)
		assert.Equal(t, room.ErrTenantNotApproved, errors.Cause(err))
		_, err = f.svc.Allocate(ctx, r2.ID, "lol")
		assert.Equal(t, room.ErrTenantNotFound, errors.Cause(err))
		_, err = f.svc.Allocate(ctx, "lol", ravi.ID)
		assert.Equal(t, room.ErrNotFound, errors.Cause(err))
	})
}

func TestService_Allocate_concurrent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	rm := f.room(t, "101", 2)

	tenants := make([]user.User, 6)
	for i := range tenants {
		tenants[i] = f.tenant(t, "Tenant", "tenant"+string(rune('a'+i))+"@test.in")
	}

	var wg sync.WaitGroup
	errs := make([]error, len(tenants))
	for i := range tenants {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Allocate(ctx, rm.ID, tenants[i].ID)
		}(i)
	}
	wg.Wait()

	var allocated int
	for _, err := range errs {
		if err == nil {
			allocated++
			continue
		}
		assert.Equal(t, room.ErrRoomFull, errors.Cause(err))
	}
	assert.Equal(t, 2, allocated)
	f.checkConsistent(t, rm.ID)
}

func TestService_Allocate_concurrentMoves(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r1 := f.room(t, "101", 3)
	r2 := f.room(t, "102", 3)

	tenants := make([]user.User, 3)
	for i := range tenants {
		tenants[i] = f.tenant(t, "Tenant", "tenant"+string(rune('a'+i))+"@test.in")
		_, err := f.svc.Allocate(ctx, r1.ID, tenants[i].ID)
		require.NoError(t, err)
	}

	// every tenant bounces between both rooms
	var wg sync.WaitGroup
	for i := range tenants {
		for _, target := range []string{r2.ID, r1.ID, r2.ID} {
			wg.Add(1)
			go func(tenantID, roomID string) {
				defer wg.Done()
				_, err := f.svc.Allocate(ctx, roomID, tenantID)
				if err != nil {
					assert.Equal(t, room.ErrAlreadyAllocated, errors.Cause(err))
				}
			}(tenants[i].ID, target)
		}
	}
	wg.Wait()

	f.checkConsistent(t, r1.ID, r2.ID)
	a, err := f.svc.Get(ctx, r1.ID)
	require.NoError(t, err)
	b, err := f.svc.Get(ctx, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, len(tenants), a.Occupied+b.Occupied)
}

func TestService_Allocate_profileUpdatedFromStaleUser(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	conf := core.NewTestConfig()
	usrSvc := user.NewService(f.usrRepo, cachesvc.NewMemoryStore(), emailsvc.NewConsoleServiceMock(conf, logsvc.NewZeroLogger(zerolog.Nop())), conf)
	asha := f.tenant(t, "Asha", "asha@test.in")
	rm := f.room(t, "101", 2)

	stale, err := usrSvc.GetByID(ctx, asha.ID)
	require.NoError(t, err)
	_, err = f.svc.Allocate(ctx, rm.ID, asha.ID)
	require.NoError(t, err)

	usr, err := usrSvc.UpdateProfile(ctx, stale, user.UpdateProfile{Name: "Asha K", Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", usr.Name)
	require.NotNil(t, usr.CurrentRoomID)
	assert.Equal(t, rm.ID, *usr.CurrentRoomID)

	require.NoError(t, usrSvc.SetPassword(ctx, stale.Email, "Xk9!vR2#nQw7"))
	f.checkConsistent(t, rm.ID)
}

func TestService_RemoveTenant(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	asha := f.tenant(t, "Asha", "asha@test.in")
	rm := f.room(t, "101", 1)

	_, err := f.svc.RemoveTenant(ctx, rm.ID, asha.ID)
	assert.Equal(t, room.ErrTenantNotInRoom, errors.Cause(err))

	_, err = f.svc.Allocate(ctx, rm.ID, asha.ID)
	require.NoError(t, err)

	got, err := f.svc.RemoveTenant(ctx, rm.ID, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Occupied)
	assert.Equal(t, room.StatusAvailable, got.Status)
	assert.Empty(t, got.Tenants)

	usr, err := f.usrRepo.GetUserByID(ctx, asha.ID)
	require.NoError(t, err)
	assert.Nil(t, usr.CurrentRoomID)
}

func TestService_RemoveTenant_concurrentMove(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	asha := f.tenant(t, "Asha", "asha@test.in")
	r1, r2 := f.room(t, "101", 2), f.room(t, "102", 2)
	_, err := f.svc.Allocate(ctx, r1.ID, asha.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var moveErr, removeErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, moveErr = f.svc.Allocate(ctx, r2.ID, asha.ID)
	}()
	go func() {
		defer wg.Done()
		_, removeErr = f.svc.RemoveTenant(ctx, r1.ID, asha.ID)
	}()
	wg.Wait()

	require.NoError(t, moveErr)
	if removeErr != nil {
		assert.Equal(t, room.ErrTenantNotInRoom, errors.Cause(removeErr))
	}
	from, err := f.svc.Get(ctx, r1.ID)
	require.NoError(t, err)
	assert.Empty(t, from.Tenants)
	to, err := f.svc.Get(ctx, r2.ID)
	require.NoError(t, err)
	assert.True(t, to.HasTenant(asha.ID))
	f.checkConsistent(t, r1.ID, r2.ID)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	asha := f.tenant(t, "Asha", "asha@test.in")
	rm := f.room(t, "101", 1)

	_, err := f.svc.Allocate(ctx, rm.ID, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ErrRoomOccupied, errors.Cause(f.svc.Delete(ctx, rm.ID)))

	_, err = f.svc.RemoveTenant(ctx, rm.ID, asha.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, rm.ID))

	_, err = f.svc.Get(ctx, rm.ID)
	assert.Equal(t, room.ErrNotFound, errors.Cause(err))
}
