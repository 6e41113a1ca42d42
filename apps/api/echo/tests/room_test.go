package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/pgmanager/apps/api/echo"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/roomrequest"
	"github.com/trezcool/pgmanager/core/user"
	emailsvc "github.com/trezcool/pgmanager/services/email"
	testutil "github.com/trezcool/pgmanager/tests"
)

func Test_roomApi_create(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	_ = createRoom(t, "100", 1)
	adminToken := getToken(t, app, admin)

	newRoom := func(number, typ string, capacity int) []byte {
		return marchallObj(t, room.NewRoom{Number: number, Type: typ, Capacity: capacity, Price: decimal.NewFromInt(10000), Floor: 1})
	}

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/rooms", body: newRoom("101", "single", 0), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", method: http.MethodPost, path: "/api/rooms", token: getToken(t, app, tenant),
			body: newRoom("101", "single", 0), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "duplicate number", method: http.MethodPost, path: "/api/rooms", token: adminToken,
			body: newRoom("100", "single", 0), wantCode: http.StatusConflict, wantData: marchallObj(t, ErrorResponse{Message: room.ErrDuplicateNumber.Error()}),
		},
		{
			name: "invalid type", method: http.MethodPost, path: "/api/rooms", token: adminToken,
			body: newRoom("101", "penthouse", 0), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{Message: "invalid input", Errors: map[string]string{"type": room.ErrInvalidType.Error()}}),
		},
		{
			name: "dormitory without capacity", method: http.MethodPost, path: "/api/rooms", token: adminToken,
			body: newRoom("101", "dorm", 0), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{Message: "invalid input", Errors: map[string]string{"capacity": "capacity is required for dormitory rooms"}}),
		},
		{
			name: "negative price", method: http.MethodPost, path: "/api/rooms", token: adminToken,
			body:     marchallObj(t, room.NewRoom{Number: "101", Type: "single", Price: decimal.NewFromInt(-1)}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{Message: "invalid input", Errors: map[string]string{"price": "price cannot be negative"}}),
		},
	})

	tests := []struct {
		name         string
		number, typ  string
		capacity     int
		wantType     room.Type
		wantCapacity int
	}{
		{name: "single defaults to 1", number: "101", typ: "Single Sharing", wantType: room.TypeSingle, wantCapacity: 1},
		{name: "twin defaults to 2", number: "102", typ: "twin", wantType: room.TypeDouble, wantCapacity: 2},
		{name: "3 defaults to 3", number: "103", typ: "3", wantType: room.TypeTriple, wantCapacity: 3},
		{name: "dormitory", number: "104", typ: "4+", capacity: 6, wantType: room.TypeDormitory, wantCapacity: 6},
		{name: "explicit capacity wins", number: "105", typ: "double-share", capacity: 3, wantType: room.TypeDouble, wantCapacity: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, httpTest{method: http.MethodPost, path: "/api/rooms", token: adminToken, body: newRoom(tt.number, tt.typ, tt.capacity)})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			var rm room.Room
			unmarshal(t, rec, &rm)
			assert.NotEmpty(t, rm.ID)
			assert.Equal(t, tt.number, rm.Number)
			assert.Equal(t, tt.wantType, rm.Type)
			assert.Equal(t, tt.wantCapacity, rm.Capacity)
			assert.Equal(t, 0, rm.Occupied)
			assert.Equal(t, room.StatusAvailable, rm.Status)
			assert.Empty(t, rm.Tenants)
			assert.Equal(t, admin.ID, rm.CreatedBy)
			assert.True(t, rm.Price.Equal(decimal.NewFromInt(10000)))
		})
	}
}

func Test_roomApi_query(t *testing.T) {
	app := setup(t)
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	r201 := testutil.CreateRoom(t, roomRepo, "201", room.TypeDouble, 2, 2)
	r101 := testutil.CreateRoom(t, roomRepo, "101", room.TypeSingle, 1, 1)
	r102 := testutil.CreateRoom(t, roomRepo, "102", room.TypeDouble, 2, 1)
	token := getToken(t, app, tenant)

	// put a tenant in 102 so tenants are resolved
	r102 = assignTenant(t, r102.ID, tenant.ID)

	runHTTPTests(t, app, []httpTest{
		{name: "all, by floor then number", path: "/api/rooms", token: token, wantData: marchallList(t, r101, r102, r201)},
		{name: "ordering", path: "/api/rooms?ordering=-room_number", token: token, wantData: marchallList(t, r201, r102, r101)},
		{name: "search by number prefix", path: "/api/rooms?search=10", token: token, wantData: marchallList(t, r101, r102)},
		{name: "type synonym", path: "/api/rooms?type=twin", token: token, wantData: marchallList(t, r102, r201)},
		{name: "status", path: "/api/rooms?status=Available", token: token, wantData: marchallList(t, r101, r102, r201)},
		{name: "retrieve", path: "/api/rooms/" + r102.ID, token: token, wantData: marchallObj(t, r102)},
		{
			name: "retrieve unknown", path: "/api/rooms/lol", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, ErrorResponse{Message: room.ErrNotFound.Error()}),
		},
	})

	assert.Equal(t, []user.Ref{tenant.Ref()}, r102.Tenants)
}

func Test_roomApi_assign(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	pending := createTenant(t, "Ravi", "ravi@test.in", false)
	single := createRoom(t, "101", 1)
	double := createRoom(t, "102", 2)
	adminToken := getToken(t, app, admin)

	assign := func(rm room.Room, at room.AssignTenant) httpTest {
		return httpTest{method: http.MethodPost, path: "/api/rooms/" + rm.ID + "/assign", token: adminToken, body: marchallObj(t, at)}
	}

	t.Run("by email", func(t *testing.T) {
		rec := do(app, assign(single, room.AssignTenant{Email: "ASHA@test.in"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var rm room.Room
		unmarshal(t, rec, &rm)
		assert.Equal(t, 1, rm.Occupied)
		assert.Equal(t, room.StatusOccupied, rm.Status)
		assert.Equal(t, []user.Ref{tenant.Ref()}, rm.Tenants)
		assert.Len(t, emailsvc.SentMessagesTo(tenant.Email), 1)

		usr := refreshUser(t, tenant.ID)
		require.NotNil(t, usr.CurrentRoomID)
		assert.Equal(t, single.ID, *usr.CurrentRoomID)
	})

	tests := []httpTest{
		func() httpTest {
			tt := assign(single, room.AssignTenant{UserID: tenant.ID})
			tt.name, tt.wantCode, tt.wantData = "already allocated", http.StatusConflict, marchallObj(t, ErrorResponse{Message: room.ErrAlreadyAllocated.Error()})
			return tt
		}(),
		func() httpTest {
			other := createTenant(t, "Kiran", "kiran@test.in", true)
			tt := assign(single, room.AssignTenant{UserID: other.ID})
			tt.name, tt.wantCode, tt.wantData = "room full", http.StatusConflict, marchallObj(t, ErrorResponse{Message: room.ErrRoomFull.Error()})
			return tt
		}(),
		func() httpTest {
			tt := assign(double, room.AssignTenant{UserID: pending.ID})
			tt.name, tt.wantCode, tt.wantData = "not approved", http.StatusBadRequest, marchallObj(t, ErrorResponse{Message: room.ErrTenantNotApproved.Error()})
			return tt
		}(),
		func() httpTest {
			tt := assign(double, room.AssignTenant{UserID: admin.ID})
			tt.name, tt.wantCode, tt.wantData = "not a tenant", http.StatusBadRequest, marchallObj(t, ErrorResponse{Message: room.ErrNotATenant.Error()})
			return tt
		}(),
		func() httpTest {
			tt := assign(double, room.AssignTenant{Email: "nobody@test.in"})
			tt.name, tt.wantCode, tt.wantData = "unknown tenant", http.StatusNotFound, marchallObj(t, ErrorResponse{Message: room.ErrTenantNotFound.Error()})
			return tt
		}(),
		func() httpTest {
			tt := assign(room.Room{ID: "lol"}, room.AssignTenant{UserID: tenant.ID})
			tt.name, tt.wantCode, tt.wantData = "unknown room", http.StatusNotFound, marchallObj(t, ErrorResponse{Message: room.ErrNotFound.Error()})
			return tt
		}(),
		func() httpTest {
			tt := assign(double, room.AssignTenant{})
			tt.name, tt.wantCode = "no tenant given", http.StatusBadRequest
			return tt
		}(),
	}
	runHTTPTests(t, app, tests)

	t.Run("move to another room", func(t *testing.T) {
		rec := do(app, assign(double, room.AssignTenant{UserID: tenant.ID}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		from := refreshRoom(t, single.ID)
		assert.Equal(t, 0, from.Occupied)
		assert.Equal(t, room.StatusAvailable, from.Status)
		assert.Empty(t, from.Tenants)

		to := refreshRoom(t, double.ID)
		assert.Equal(t, 1, to.Occupied)
		assert.Equal(t, room.StatusAvailable, to.Status)

		usr := refreshUser(t, tenant.ID)
		require.NotNil(t, usr.CurrentRoomID)
		assert.Equal(t, double.ID, *usr.CurrentRoomID)
	})

	t.Run("under maintenance", func(t *testing.T) {
		rm := createRoom(t, "103", 3)
		rec := do(app, httpTest{method: http.MethodPatch, path: "/api/rooms/" + rm.ID + "/status", token: adminToken, body: []byte(`{"status":"maintenance"}`)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		other := createTenant(t, "Meera", "meera@test.in", true)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, ErrorResponse{Message: room.ErrUnderMaintenance.Error()}),
		}, do(app, assign(rm, room.AssignTenant{UserID: other.ID})))
	})
}

func Test_roomApi_setStatus(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	rm := createRoom(t, "101", 1)
	adminToken := getToken(t, app, admin)
	assignTenant(t, rm.ID, tenant.ID)

	setStatus := func(status string) httpTest {
		return httpTest{method: http.MethodPatch, path: "/api/rooms/" + rm.ID + "/status", token: adminToken, body: []byte(`{"status":"` + status + `"}`)}
	}

	rec := do(app, setStatus("maintenance"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, room.StatusMaintenance, refreshRoom(t, rm.ID).Status)

	// leaving maintenance re-derives the status from occupancy
	rec = do(app, setStatus("available"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, room.StatusOccupied, refreshRoom(t, rm.ID).Status)

	rec = do(app, setStatus("occupied"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_roomApi_removeTenant(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	rm := createRoom(t, "101", 1)
	adminToken := getToken(t, app, admin)
	assignTenant(t, rm.ID, tenant.ID)

	path := "/api/rooms/" + rm.ID + "/tenants/" + tenant.ID
	rec := do(app, httpTest{method: http.MethodDelete, path: path, token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got room.Room
	unmarshal(t, rec, &got)
	assert.Equal(t, 0, got.Occupied)
	assert.Equal(t, room.StatusAvailable, got.Status)
	assert.Empty(t, got.Tenants)
	assert.Nil(t, refreshUser(t, tenant.ID).CurrentRoomID)

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, ErrorResponse{Message: room.ErrTenantNotInRoom.Error()}),
	}, do(app, httpTest{method: http.MethodDelete, path: path, token: adminToken}))
}

func Test_roomApi_delete(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	other := createTenant(t, "Ravi", "ravi@test.in", true)
	occupied := createRoom(t, "101", 2)
	empty := createRoom(t, "102", 2)
	adminToken := getToken(t, app, admin)

	assignTenant(t, occupied.ID, tenant.ID)
	do(app, httpTest{method: http.MethodPost, path: "/api/room-requests", token: getToken(t, app, other), body: marchallObj(t, map[string]string{"room_id": empty.ID})})

	runHTTPTests(t, app, []httpTest{
		{
			name: "occupied", method: http.MethodDelete, path: "/api/rooms/" + occupied.ID, token: adminToken,
			wantCode: http.StatusConflict, wantData: marchallObj(t, ErrorResponse{Message: room.ErrRoomOccupied.Error()}),
		},
		{name: "empty", method: http.MethodDelete, path: "/api/rooms/" + empty.ID, token: adminToken, wantCode: http.StatusNoContent},
		{
			name: "already deleted", method: http.MethodDelete, path: "/api/rooms/" + empty.ID, token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, ErrorResponse{Message: room.ErrNotFound.Error()}),
		},
	})

	// pending requests go with the room
	reqs, err := reqRepo.QueryRequests(context.Background(), roomrequest.QueryFilter{RoomID: empty.ID}, nil)
	require.NoError(t, err)
	assert.Empty(t, reqs)
}
