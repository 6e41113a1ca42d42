package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/pgmanager/apps/api/echo"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/roomrequest"
	"github.com/trezcool/pgmanager/core/user"
	emailsvc "github.com/trezcool/pgmanager/services/email"
)

func requestRoom(t *testing.T, app *Server, token, roomID string) roomrequest.Request {
	t.Helper()
	rec := do(app, httpTest{method: http.MethodPost, path: "/api/room-requests", token: token, body: marchallObj(t, roomrequest.NewRequest{RoomID: roomID})})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var req roomrequest.Request
	unmarshal(t, rec, &req)
	return req
}

func decideRequest(t *testing.T, app *Server, token, id string, status roomrequest.Status) (int, roomrequest.DecideResult) {
	t.Helper()
	rec := do(app, httpTest{method: http.MethodPatch, path: "/api/room-requests/" + id + "/status", token: token, body: marchallObj(t, roomrequest.Decision{Status: status})})

	var res roomrequest.DecideResult
	if rec.Code == http.StatusOK {
		unmarshal(t, rec, &res)
	}
	return rec.Code, res
}

func Test_roomRequestApi_scenarios(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	adminToken := getToken(t, app, admin)

	tenantA := createTenant(t, "Tenant A", "a@test.in", true)
	tenantB := createTenant(t, "Tenant B", "b@test.in", true)
	tenantC := createTenant(t, "Tenant C", "c@test.in", true)
	tenantD := createTenant(t, "Tenant D", "d@test.in", true)
	tokenA := getToken(t, app, tenantA)

	var r101, r102 room.Room
	t.Run("1. request and approve a single room", func(t *testing.T) {
		rec := do(app, httpTest{
			method: http.MethodPost, path: "/api/rooms", token: adminToken,
			body: []byte(`{"room_number":"101","type":"single","price":10000}`),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshal(t, rec, &r101)
		require.Equal(t, 1, r101.Capacity)

		req := requestRoom(t, app, tokenA, r101.ID)
		assert.Equal(t, roomrequest.StatusPending, req.Status)
		assert.Equal(t, "101", req.RoomNumber)
		assert.Equal(t, tenantA.Name, req.TenantName)
		assert.Equal(t, tenantA.Email, req.TenantEmail)
		assert.Nil(t, req.ReviewedAt)

		code, res := decideRequest(t, app, adminToken, req.ID, roomrequest.StatusApproved)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Request approved: Tenant A has been allocated to room 101", res.Message)
		assert.Equal(t, roomrequest.StatusApproved, res.Request.Status)
		require.NotNil(t, res.Request.ReviewedBy)
		assert.Equal(t, admin.ID, *res.Request.ReviewedBy)
		assert.NotNil(t, res.Request.ReviewedAt)

		rm := refreshRoom(t, r101.ID)
		assert.Equal(t, 1, rm.Occupied)
		assert.Equal(t, room.StatusOccupied, rm.Status)
		assert.Equal(t, []user.Ref{tenantA.Ref()}, rm.Tenants)

		usr := refreshUser(t, tenantA.ID)
		require.NotNil(t, usr.CurrentRoomID)
		assert.Equal(t, r101.ID, *usr.CurrentRoomID)

		assert.Len(t, emailsvc.SentMessagesTo(tenantA.Email), 1)
	})

	t.Run("2. a full room cannot be requested", func(t *testing.T) {
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, ErrorResponse{Message: room.ErrRoomFull.Error()}),
		}, do(app, httpTest{
			method: http.MethodPost, path: "/api/room-requests", token: getToken(t, app, tenantB),
			body: marchallObj(t, roomrequest.NewRequest{RoomID: r101.ID}),
		}))
	})

	t.Run("3. approving a move empties the prior room", func(t *testing.T) {
		r102 = createRoom(t, "102", 2)
		req := requestRoom(t, app, tokenA, r102.ID)

		code, _ := decideRequest(t, app, adminToken, req.ID, roomrequest.StatusApproved)
		require.Equal(t, http.StatusOK, code)

		from := refreshRoom(t, r101.ID)
		assert.Equal(t, 0, from.Occupied)
		assert.Equal(t, room.StatusAvailable, from.Status)
		assert.Empty(t, from.Tenants)

		to := refreshRoom(t, r102.ID)
		assert.Equal(t, 1, to.Occupied)
		assert.Equal(t, room.StatusAvailable, to.Status)
		assert.Equal(t, []user.Ref{tenantA.Ref()}, to.Tenants)

		usr := refreshUser(t, tenantA.ID)
		require.NotNil(t, usr.CurrentRoomID)
		assert.Equal(t, r102.ID, *usr.CurrentRoomID)
	})

	t.Run("4. rejecting leaves the room untouched", func(t *testing.T) {
		r103 := createRoom(t, "103", 2)
		req := requestRoom(t, app, getToken(t, app, tenantC), r103.ID)

		code, res := decideRequest(t, app, adminToken, req.ID, roomrequest.StatusRejected)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Request for room 103 rejected", res.Message)
		assert.Equal(t, roomrequest.StatusRejected, res.Request.Status)

		rm := refreshRoom(t, r103.ID)
		assert.Equal(t, 0, rm.Occupied)
		assert.Equal(t, room.StatusAvailable, rm.Status)
		assert.Empty(t, rm.Tenants)
		assert.Nil(t, refreshUser(t, tenantC.ID).CurrentRoomID)
	})

	t.Run("5. tenants delete their own pending requests only", func(t *testing.T) {
		tokenD := getToken(t, app, tenantD)
		r104 := createRoom(t, "104", 2)
		req := requestRoom(t, app, tokenD, r104.ID)

		rec := do(app, httpTest{method: http.MethodDelete, path: "/api/room-requests/" + req.ID, token: tokenD})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Equal(t, 0, refreshRoom(t, r104.ID).Occupied)

		req = requestRoom(t, app, tokenD, r104.ID)
		code, _ := decideRequest(t, app, adminToken, req.ID, roomrequest.StatusApproved)
		require.Equal(t, http.StatusOK, code)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, ErrorResponse{Message: roomrequest.ErrNotPending.Error()}),
		}, do(app, httpTest{method: http.MethodDelete, path: "/api/room-requests/" + req.ID, token: tokenD}))
	})
}

func Test_roomRequestApi_create(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	other := createTenant(t, "Ravi", "ravi@test.in", true)
	rm := createRoom(t, "101", 2)
	token := getToken(t, app, tenant)
	assignTenant(t, rm.ID, other.ID)

	create := func(tok, roomID string) httpTest {
		return httpTest{method: http.MethodPost, path: "/api/room-requests", token: tok, body: marchallObj(t, roomrequest.NewRequest{RoomID: roomID})}
	}
	withWant := func(tt httpTest, name string, code int, err error) httpTest {
		tt.name, tt.wantCode = name, code
		if err != nil {
			tt.wantData = marchallObj(t, ErrorResponse{Message: err.Error()})
		}
		return tt
	}

	requestRoom(t, app, token, rm.ID)
	runHTTPTests(t, app, []httpTest{
		withWant(create(getToken(t, app, admin), rm.ID), "tenants only", http.StatusForbidden, nil),
		withWant(create(token, rm.ID), "duplicate", http.StatusConflict, roomrequest.ErrDuplicateRequest),
		withWant(create(getToken(t, app, other), rm.ID), "already allocated", http.StatusConflict, room.ErrAlreadyAllocated),
		withWant(create(token, "lol"), "unknown room", http.StatusNotFound, room.ErrNotFound),
		withWant(create(token, ""), "room required", http.StatusBadRequest, nil),
	})

	t.Run("under maintenance", func(t *testing.T) {
		closed := createRoom(t, "102", 2)
		_, err := roomSvc.SetStatus(t.Context(), closed.ID, room.UpdateStatus{Status: room.StatusMaintenance})
		require.NoError(t, err)
		checkCodeAndData(t, withWant(httpTest{}, "", http.StatusConflict, room.ErrUnderMaintenance), do(app, create(token, closed.ID)))
	})
}

func Test_roomRequestApi_decide(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	adminToken := getToken(t, app, admin)
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	other := createTenant(t, "Ravi", "ravi@test.in", true)
	rm := createRoom(t, "101", 1)
	req := requestRoom(t, app, getToken(t, app, tenant), rm.ID)
	otherReq := requestRoom(t, app, getToken(t, app, other), rm.ID)

	decide := func(id string, body string) httpTest {
		return httpTest{method: http.MethodPatch, path: "/api/room-requests/" + id + "/status", token: adminToken, body: []byte(body)}
	}
	errData := func(err error) []byte { return marchallObj(t, ErrorResponse{Message: err.Error()}) }

	runHTTPTests(t, app, []httpTest{
		{
			name: "admin only", method: http.MethodPatch, path: "/api/room-requests/" + req.ID + "/status",
			token: getToken(t, app, tenant), body: []byte(`{"status":"Approved"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		func() httpTest {
			tt := decide(req.ID, `{"status":"Pending"}`)
			tt.name, tt.wantCode, tt.wantData = "invalid status", http.StatusBadRequest, errData(roomrequest.ErrInvalidStatus)
			return tt
		}(),
		func() httpTest {
			tt := decide("lol", `{"status":"Approved"}`)
			tt.name, tt.wantCode, tt.wantData = "unknown request", http.StatusNotFound, errData(roomrequest.ErrNotFound)
			return tt
		}(),
	})

	code, _ := decideRequest(t, app, adminToken, req.ID, roomrequest.StatusApproved)
	require.Equal(t, http.StatusOK, code)

	t.Run("second decision", func(t *testing.T) {
		checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: errData(roomrequest.ErrNotPending)}, do(app, decide(req.ID, `{"status":"Approved"}`)))
		checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: errData(roomrequest.ErrNotPending)}, do(app, decide(req.ID, `{"status":"Rejected"}`)))

		rm := refreshRoom(t, rm.ID)
		assert.Equal(t, 1, rm.Occupied)
		assert.Len(t, rm.Tenants, 1)
	})

	t.Run("approving into a full room rolls back", func(t *testing.T) {
		checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: errData(room.ErrRoomFull)}, do(app, decide(otherReq.ID, `{"status":"Approved"}`)))

		got, err := reqRepo.GetRequest(t.Context(), otherReq.ID)
		require.NoError(t, err)
		assert.Equal(t, roomrequest.StatusPending, got.Status)
		assert.Nil(t, refreshUser(t, other.ID).CurrentRoomID)
	})
}

func Test_roomRequestApi_query(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	adminToken := getToken(t, app, admin)
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	other := createTenant(t, "Ravi", "ravi@test.in", true)
	r101 := createRoom(t, "101", 2)
	r102 := createRoom(t, "102", 2)
	token := getToken(t, app, tenant)

	mine1 := requestRoom(t, app, token, r101.ID)
	mine2 := requestRoom(t, app, token, r102.ID)
	theirs := requestRoom(t, app, getToken(t, app, other), r101.ID)
	_, err := reqSvc.Decide(t.Context(), theirs.ID, roomrequest.Decision{Status: roomrequest.StatusRejected}, admin.ID)
	require.NoError(t, err)

	refresh := func(req roomrequest.Request) roomrequest.Request {
		got, err := reqRepo.GetRequest(t.Context(), req.ID)
		require.NoError(t, err)
		return got
	}
	mine1, mine2, theirs = refresh(mine1), refresh(mine2), refresh(theirs)

	runHTTPTests(t, app, []httpTest{
		{name: "admin only", path: "/api/room-requests", token: token, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "all, newest first", path: "/api/room-requests", token: adminToken, wantData: marchallList(t, theirs, mine2, mine1)},
		{name: "by room", path: "/api/room-requests?room_id=" + r101.ID + "&ordering=requested_at", token: adminToken, wantData: marchallList(t, mine1, theirs)},
		{name: "by status", path: "/api/room-requests?status=Rejected", token: adminToken, wantData: marchallList(t, theirs)},
		{name: "by tenant", path: "/api/room-requests?tenant_id=" + other.ID, token: adminToken, wantData: marchallList(t, theirs)},
		{name: "mine", path: "/api/room-requests/my-requests", token: token, wantData: marchallList(t, mine2, mine1)},
		{name: "mine, by status", path: "/api/room-requests/my-requests?status=Rejected", token: token, wantData: marchallList(t)},
		{name: "mine, tenants only", path: "/api/room-requests/my-requests", token: adminToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	})
}

func Test_roomRequestApi_delete(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	other := createTenant(t, "Ravi", "ravi@test.in", true)
	rm := createRoom(t, "101", 2)
	req := requestRoom(t, app, getToken(t, app, tenant), rm.ID)

	runHTTPTests(t, app, []httpTest{
		{
			name: "not the owner", method: http.MethodDelete, path: "/api/room-requests/" + req.ID, token: getToken(t, app, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown", method: http.MethodDelete, path: "/api/room-requests/lol", token: getToken(t, app, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, ErrorResponse{Message: roomrequest.ErrNotFound.Error()}),
		},
		{name: "admin deletes any", method: http.MethodDelete, path: "/api/room-requests/" + req.ID, token: getToken(t, app, admin), wantCode: http.StatusNoContent},
	})
}
