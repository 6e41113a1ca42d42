package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/pgmanager/apps/api/echo"
	"github.com/trezcool/pgmanager/core/complaint"
)

func fileComplaint(t *testing.T, app *Server, token, body string) complaint.Complaint {
	t.Helper()
	rec := do(app, httpTest{method: http.MethodPost, path: "/api/complaints", token: token, body: []byte(body)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var c complaint.Complaint
	unmarshal(t, rec, &c)
	return c
}

func Test_complaintApi_create(t *testing.T) {
	app := setup(t)
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	rm := createRoom(t, "101", 2)
	assignTenant(t, rm.ID, tenant.ID)
	token := getToken(t, app, tenant)

	t.Run("defaults", func(t *testing.T) {
		c := fileComplaint(t, app, token, `{"title":" Leaking tap ","description":"The bathroom tap leaks."}`)
		assert.Equal(t, "Leaking tap", c.Title)
		assert.Equal(t, tenant.ID, c.TenantID)
		assert.Equal(t, tenant.Name, c.TenantName)
		assert.Equal(t, "101", c.RoomNumber)
		assert.Equal(t, complaint.CategoryOther, c.Category)
		assert.Equal(t, complaint.StatusPending, c.Status)
		assert.Nil(t, c.ResolvedAt)
	})

	t.Run("category", func(t *testing.T) {
		c := fileComplaint(t, app, token, `{"title":"Fan","description":"Fan is broken","category":"Electrical"}`)
		assert.Equal(t, complaint.CategoryElectrical, c.Category)
	})

	t.Run("no room", func(t *testing.T) {
		other := createTenant(t, "Ravi", "ravi@test.in", true)
		c := fileComplaint(t, app, getToken(t, app, other), `{"title":"Wifi","description":"No wifi"}`)
		assert.Empty(t, c.RoomNumber)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := do(app, httpTest{method: http.MethodPost, path: "/api/complaints", token: token, body: []byte(`{"title":"  "}`)})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		unmarshal(t, rec, &resp)
		assert.Contains(t, resp.Errors, "title")
		assert.Contains(t, resp.Errors, "description")
	})

	runHTTPTests(t, app, []httpTest{
		{
			name: "bad category", method: http.MethodPost, path: "/api/complaints", token: token,
			body: []byte(`{"title":"Fan","description":"Fan","category":"noise"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "tenants only", method: http.MethodPost, path: "/api/complaints", token: getToken(t, app, createAdmin(t, "admin@test.in")),
			body: []byte(`{"title":"Fan","description":"Fan"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "auth required", method: http.MethodPost, path: "/api/complaints",
			body: []byte(`{"title":"Fan","description":"Fan"}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
	})
}

func Test_complaintApi_query(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app, createAdmin(t, "admin@test.in"))
	asha := createTenant(t, "Asha", "asha@test.in", true)
	ravi := createTenant(t, "Ravi", "ravi@test.in", true)
	ashaToken, raviToken := getToken(t, app, asha), getToken(t, app, ravi)

	c1 := fileComplaint(t, app, ashaToken, `{"title":"Tap","description":"Leaks","category":"plumbing"}`)
	c2 := fileComplaint(t, app, raviToken, `{"title":"Food","description":"Cold","category":"food"}`)
	c3 := fileComplaint(t, app, ashaToken, `{"title":"Dust","description":"Dusty","category":"cleaning"}`)

	rec := do(app, httpTest{method: http.MethodPut, path: "/api/complaints/" + c2.ID, token: adminToken, body: []byte(`{"status":"in-progress"}`)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	list := func(t *testing.T, path, token string) []string {
		t.Helper()
		rec := do(app, httpTest{path: path, token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var cs []complaint.Complaint
		unmarshal(t, rec, &cs)
		var ids []string
		for _, c := range cs {
			ids = append(ids, c.ID)
		}
		return ids
	}

	t.Run("newest first", func(t *testing.T) {
		assert.Equal(t, []string{c3.ID, c2.ID, c1.ID}, list(t, "/api/complaints", adminToken))
	})
	t.Run("by status", func(t *testing.T) {
		assert.Equal(t, []string{c2.ID}, list(t, "/api/complaints?status=In-Progress", adminToken))
	})
	t.Run("by category", func(t *testing.T) {
		assert.Equal(t, []string{c1.ID}, list(t, "/api/complaints?category=plumbing", adminToken))
	})
	t.Run("by tenant, oldest first", func(t *testing.T) {
		assert.Equal(t, []string{c1.ID, c3.ID}, list(t, "/api/complaints?tenant_id="+asha.ID+"&ordering=created_at", adminToken))
	})
	t.Run("mine", func(t *testing.T) {
		assert.Equal(t, []string{c3.ID, c1.ID}, list(t, "/api/complaints/my-complaints", ashaToken))
		assert.Equal(t, []string{c2.ID}, list(t, "/api/complaints/my-complaints", raviToken))
	})

	runHTTPTests(t, app, []httpTest{
		{name: "admin only", path: "/api/complaints", token: ashaToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	})
}

func Test_complaintApi_update(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app, createAdmin(t, "admin@test.in"))
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	token := getToken(t, app, tenant)
	c := fileComplaint(t, app, token, `{"title":"Tap","description":"Leaks"}`)

	update := func(t *testing.T, body string) complaint.Complaint {
		t.Helper()
		rec := do(app, httpTest{method: http.MethodPut, path: "/api/complaints/" + c.ID, token: adminToken, body: []byte(body)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got complaint.Complaint
		unmarshal(t, rec, &got)
		return got
	}

	t.Run("in progress with a response", func(t *testing.T) {
		got := update(t, `{"status":"in-progress","response":" Plumber booked "}`)
		assert.Equal(t, complaint.StatusInProgress, got.Status)
		assert.Equal(t, "Plumber booked", got.Response)
		assert.Nil(t, got.ResolvedAt)
	})

	runHTTPTests(t, app, []httpTest{
		{
			name: "cannot move backwards", method: http.MethodPut, path: "/api/complaints/" + c.ID, token: adminToken,
			body:     []byte(`{"status":"pending"}`),
			wantCode: http.StatusConflict, wantData: marchallObj(t, ErrorResponse{Message: complaint.ErrInvalidTransition.Error()}),
		},
		{
			name: "bad status", method: http.MethodPut, path: "/api/complaints/" + c.ID, token: adminToken,
			body: []byte(`{"status":"done"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "admin only", method: http.MethodPut, path: "/api/complaints/" + c.ID, token: token,
			body: []byte(`{"status":"resolved"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown", method: http.MethodPut, path: "/api/complaints/lol", token: adminToken,
			body:     []byte(`{"status":"resolved"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, ErrorResponse{Message: complaint.ErrNotFound.Error()}),
		},
	})

	t.Run("resolved", func(t *testing.T) {
		got := update(t, `{"status":"resolved"}`)
		assert.Equal(t, complaint.StatusResolved, got.Status)
		assert.Equal(t, "Plumber booked", got.Response)
		require.NotNil(t, got.ResolvedAt)

		closed := update(t, `{"status":"closed"}`)
		assert.Equal(t, complaint.StatusClosed, closed.Status)
		require.NotNil(t, closed.ResolvedAt)
		assert.True(t, got.ResolvedAt.Equal(*closed.ResolvedAt))
	})
}

func Test_complaintApi_delete(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app, createAdmin(t, "admin@test.in"))
	ashaToken := getToken(t, app, createTenant(t, "Asha", "asha@test.in", true))
	raviToken := getToken(t, app, createTenant(t, "Ravi", "ravi@test.in", true))

	pending := fileComplaint(t, app, ashaToken, `{"title":"Tap","description":"Leaks"}`)
	handled := fileComplaint(t, app, ashaToken, `{"title":"Fan","description":"Broken"}`)
	rec := do(app, httpTest{method: http.MethodPut, path: "/api/complaints/" + handled.ID, token: adminToken, body: []byte(`{"status":"in-progress"}`)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	runHTTPTests(t, app, []httpTest{
		{
			name: "not the owner", method: http.MethodDelete, path: "/api/complaints/" + pending.ID, token: raviToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "no longer pending", method: http.MethodDelete, path: "/api/complaints/" + handled.ID, token: ashaToken,
			wantCode: http.StatusConflict, wantData: marchallObj(t, ErrorResponse{Message: complaint.ErrNotPending.Error()}),
		},
		{name: "own pending", method: http.MethodDelete, path: "/api/complaints/" + pending.ID, token: ashaToken, wantCode: http.StatusNoContent},
		{name: "admin deletes any", method: http.MethodDelete, path: "/api/complaints/" + handled.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "unknown", method: http.MethodDelete, path: "/api/complaints/" + handled.ID, token: adminToken, wantCode: http.StatusNotFound},
	})
}
