package tests

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/pgmanager/apps/api/echo"
	"github.com/trezcool/pgmanager/core/payment"
)

func Test_paymentApi_create(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	adminToken := getToken(t, app, admin)
	tenant := createTenant(t, "Asha", "asha@test.in", true)
	rm := createRoom(t, "101", 2)
	assignTenant(t, rm.ID, tenant.ID)

	var paid payment.Payment
	t.Run("paid", func(t *testing.T) {
		rec := do(app, httpTest{
			method: http.MethodPost, path: "/api/payments", token: adminToken,
			body: []byte(`{"tenant_id":"` + tenant.ID + `","amount":5000,"month":"2024-05","status":"paid","method":"upi"}`),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshal(t, rec, &paid)

		assert.Equal(t, tenant.Name, paid.TenantName)
		require.NotNil(t, paid.RoomID)
		assert.Equal(t, rm.ID, *paid.RoomID)
		assert.True(t, decimal.NewFromInt(5000).Equal(paid.Amount))
		assert.Equal(t, payment.StatusPaid, paid.Status)
		assert.Equal(t, payment.MethodUPI, paid.Method)
		assert.NotNil(t, paid.PaidAt)
	})

	t.Run("pending by default", func(t *testing.T) {
		rec := do(app, httpTest{
			method: http.MethodPost, path: "/api/payments", token: adminToken,
			body: []byte(`{"tenant_id":"` + tenant.ID + `","amount":"4999.50","month":"2024-06"}`),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var p payment.Payment
		unmarshal(t, rec, &p)
		assert.Equal(t, payment.StatusPending, p.Status)
		assert.Nil(t, p.PaidAt)
		assert.True(t, decimal.RequireFromString("4999.5").Equal(p.Amount))
	})

	create := func(body string) []byte {
		return []byte(body)
	}
	runHTTPTests(t, app, []httpTest{
		{
			name: "admin only", method: http.MethodPost, path: "/api/payments", token: getToken(t, app, tenant),
			body:     create(`{"tenant_id":"` + tenant.ID + `","amount":5000,"month":"2024-07"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "duplicate month", method: http.MethodPost, path: "/api/payments", token: adminToken,
			body:     create(`{"tenant_id":"` + tenant.ID + `","amount":5000,"month":"2024-05"}`),
			wantCode: http.StatusConflict, wantData: marchallObj(t, ErrorResponse{Message: payment.ErrDuplicateMonth.Error()}),
		},
		{
			name: "amount not positive", method: http.MethodPost, path: "/api/payments", token: adminToken,
			body:     create(`{"tenant_id":"` + tenant.ID + `","amount":0,"month":"2024-07"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{Message: "invalid input", Errors: map[string]string{"amount": "amount must be greater than 0"}}),
		},
		{
			name: "bad month", method: http.MethodPost, path: "/api/payments", token: adminToken,
			body:     create(`{"tenant_id":"` + tenant.ID + `","amount":5000,"month":"2024-13"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{Message: "invalid input", Errors: map[string]string{"month": "must be a month in the YYYY-MM format"}}),
		},
		{
			name: "bad method", method: http.MethodPost, path: "/api/payments", token: adminToken,
			body:     create(`{"tenant_id":"` + tenant.ID + `","amount":5000,"month":"2024-07","method":"cheque"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown tenant", method: http.MethodPost, path: "/api/payments", token: adminToken,
			body:     create(`{"tenant_id":"lol","amount":5000,"month":"2024-07"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, ErrorResponse{Message: payment.ErrTenantNotFound.Error()}),
		},
		{
			name: "not a tenant", method: http.MethodPost, path: "/api/payments", token: adminToken,
			body:     create(`{"tenant_id":"` + admin.ID + `","amount":5000,"month":"2024-07"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, ErrorResponse{Message: payment.ErrNotATenant.Error()}),
		},
	})
}

func Test_paymentApi_query(t *testing.T) {
	app := setup(t)
	admin := createAdmin(t, "admin@test.in")
	adminToken := getToken(t, app, admin)
	asha := createTenant(t, "Asha", "asha@test.in", true)
	ravi := createTenant(t, "Ravi", "ravi@test.in", true)

	newPayment := func(tenantID, month string, status payment.Status) payment.Payment {
		t.Helper()
		rec := do(app, httpTest{
			method: http.MethodPost, path: "/api/payments", token: adminToken,
			body: marchallObj(t, payment.NewPayment{TenantID: tenantID, Amount: decimal.NewFromInt(5000), Month: month, Status: status}),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var p payment.Payment
		unmarshal(t, rec, &p)
		return p
	}
	ids := func(rec []payment.Payment) []string {
		var out []string
		for _, p := range rec {
			out = append(out, p.ID)
		}
		return out
	}
	list := func(t *testing.T, path, token string) []payment.Payment {
		t.Helper()
		rec := do(app, httpTest{path: path, token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var ps []payment.Payment
		unmarshal(t, rec, &ps)
		return ps
	}

	ashaMay := newPayment(asha.ID, "2024-05", payment.StatusPaid)
	ashaJun := newPayment(asha.ID, "2024-06", payment.StatusPending)
	raviMay := newPayment(ravi.ID, "2024-05", payment.StatusOverdue)

	t.Run("latest month first", func(t *testing.T) {
		assert.Equal(t, []string{ashaJun.ID, ashaMay.ID, raviMay.ID}, ids(list(t, "/api/payments", adminToken)))
	})
	t.Run("by status", func(t *testing.T) {
		assert.Equal(t, []string{raviMay.ID}, ids(list(t, "/api/payments?status=OVERDUE", adminToken)))
	})
	t.Run("by month and tenant", func(t *testing.T) {
		assert.Equal(t, []string{ashaMay.ID}, ids(list(t, "/api/payments?month=2024-05&tenant_id="+asha.ID, adminToken)))
	})
	t.Run("ordering", func(t *testing.T) {
		assert.Equal(t, []string{raviMay.ID, ashaMay.ID, ashaJun.ID}, ids(list(t, "/api/payments?ordering=month,-tenant_name", adminToken)))
	})
	t.Run("mine", func(t *testing.T) {
		assert.Equal(t, []string{ashaJun.ID, ashaMay.ID}, ids(list(t, "/api/payments/my-payments", getToken(t, app, asha))))
	})
	t.Run("retrieve", func(t *testing.T) {
		rec := do(app, httpTest{path: "/api/payments/" + raviMay.ID, token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code)

		var p payment.Payment
		unmarshal(t, rec, &p)
		assert.Equal(t, raviMay.ID, p.ID)
		assert.Equal(t, payment.StatusOverdue, p.Status)
	})

	runHTTPTests(t, app, []httpTest{
		{name: "list, admin only", path: "/api/payments", token: getToken(t, app, asha), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "retrieve, admin only", path: "/api/payments/" + ashaMay.ID, token: getToken(t, app, asha), wantCode: http.StatusForbidden},
		{name: "retrieve unknown", path: "/api/payments/lol", token: adminToken, wantCode: http.StatusNotFound},
		{name: "mine, tenants only", path: "/api/payments/my-payments", token: adminToken, wantCode: http.StatusForbidden},
	})
}

func Test_paymentApi_update(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app, createAdmin(t, "admin@test.in"))
	tenant := createTenant(t, "Asha", "asha@test.in", true)

	rec := do(app, httpTest{
		method: http.MethodPost, path: "/api/payments", token: adminToken,
		body: []byte(`{"tenant_id":"` + tenant.ID + `","amount":5000,"month":"2024-05"}`),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p payment.Payment
	unmarshal(t, rec, &p)

	update := func(t *testing.T, body string) payment.Payment {
		t.Helper()
		rec := do(app, httpTest{method: http.MethodPut, path: "/api/payments/" + p.ID, token: adminToken, body: []byte(body)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got payment.Payment
		unmarshal(t, rec, &got)
		return got
	}

	t.Run("mark paid", func(t *testing.T) {
		got := update(t, `{"status":"paid","method":"cash","note":"  received at desk "}`)
		assert.Equal(t, payment.StatusPaid, got.Status)
		assert.Equal(t, payment.MethodCash, got.Method)
		assert.Equal(t, "received at desk", got.Note)
		assert.NotNil(t, got.PaidAt)
		assert.True(t, decimal.NewFromInt(5000).Equal(got.Amount))
	})
	t.Run("amount only", func(t *testing.T) {
		got := update(t, `{"amount":5500}`)
		assert.Equal(t, payment.StatusPaid, got.Status)
		assert.NotNil(t, got.PaidAt)
		assert.True(t, decimal.NewFromInt(5500).Equal(got.Amount))
	})
	t.Run("back to overdue clears paid_at", func(t *testing.T) {
		got := update(t, `{"status":"overdue"}`)
		assert.Equal(t, payment.StatusOverdue, got.Status)
		assert.Nil(t, got.PaidAt)
	})

	runHTTPTests(t, app, []httpTest{
		{name: "negative amount", method: http.MethodPut, path: "/api/payments/" + p.ID, token: adminToken, body: []byte(`{"amount":-1}`), wantCode: http.StatusBadRequest},
		{name: "bad status", method: http.MethodPut, path: "/api/payments/" + p.ID, token: adminToken, body: []byte(`{"status":"lost"}`), wantCode: http.StatusBadRequest},
		{name: "unknown", method: http.MethodPut, path: "/api/payments/lol", token: adminToken, body: []byte(`{"status":"paid"}`), wantCode: http.StatusNotFound},
		{name: "delete", method: http.MethodDelete, path: "/api/payments/" + p.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: "/api/payments/" + p.ID, token: adminToken, wantCode: http.StatusNotFound},
	})
}
