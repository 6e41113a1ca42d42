package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	. "github.com/trezcool/pgmanager/apps/api/echo"
	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/complaint"
	"github.com/trezcool/pgmanager/core/feedback"
	"github.com/trezcool/pgmanager/core/messmenu"
	"github.com/trezcool/pgmanager/core/moveout"
	"github.com/trezcool/pgmanager/core/notice"
	"github.com/trezcool/pgmanager/core/payment"
	"github.com/trezcool/pgmanager/core/policy"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/roomrequest"
	"github.com/trezcool/pgmanager/core/user"
	cachesvc "github.com/trezcool/pgmanager/services/cache"
	emailsvc "github.com/trezcool/pgmanager/services/email"
	logsvc "github.com/trezcool/pgmanager/services/logger"
	"github.com/trezcool/pgmanager/storage/database"
	"github.com/trezcool/pgmanager/storage/database/gormrepo"
	testutil "github.com/trezcool/pgmanager/tests"
)

var (
	db       *gorm.DB
	usrRepo  user.Repository
	roomRepo room.Repository
	reqRepo  roomrequest.Repository
	roomSvc  *room.Service
	reqSvc   *roomrequest.Service

	errMissingToken = ErrorResponse{Message: "user not authenticated"}
	errForbidden    = ErrorResponse{Message: "permission denied"}
)

func init() {
	core.ParseEmailTemplates(logsvc.NewZeroLogger(zerolog.Nop()), true)
}

func setup(t *testing.T, confs ...func(*core.Config)) *Server {
	t.Helper()

	conf := core.NewTestConfig()
	for _, fn := range confs {
		fn(conf)
	}
	logger := logsvc.NewZeroLogger(zerolog.Nop())

	// set up DB & repos
	db = testutil.PrepareDB(t)
	usrRepo = gormrepo.NewUserRepository(db)
	roomRepo = gormrepo.NewRoomRepository(db)
	reqRepo = gormrepo.NewRoomRequestRepository(db)

	// set up services
	emailsvc.ResetSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	store := cachesvc.NewMemoryStore()
	txr := database.NewTransactor(db)

	usrSvc := user.NewService(usrRepo, store, mailSvc, conf)
	roomSvc = room.NewService(txr, roomRepo, usrRepo, mailSvc)
	reqSvc = roomrequest.NewService(txr, reqRepo, roomSvc, mailSvc)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	// set up server
	return NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         logger,
			DisableReqLogs: true,
			Validate:       validate,
			Translator:     translator,
			Enforcer:       policy.MustNew(),
			TokenStore:     store,

			UserSvc:      usrSvc,
			RoomSvc:      roomSvc,
			RequestSvc:   reqSvc,
			PaymentSvc:   payment.NewService(gormrepo.NewPaymentRepository(db), usrRepo),
			ComplaintSvc: complaint.NewService(gormrepo.NewComplaintRepository(db), roomSvc),
			NoticeSvc:    notice.NewService(gormrepo.NewNoticeRepository(db)),
			MessMenuSvc:  messmenu.NewService(gormrepo.NewMessMenuRepository(db)),
			MoveOutSvc:   moveout.NewService(txr, gormrepo.NewMoveOutRepository(db), usrRepo, roomSvc),
			FeedbackSvc:  feedback.NewService(gormrepo.NewFeedbackRepository(db)),
		},
	)
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do runs tt against the server and returns the recorded response.
func do(app *Server, tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, app *Server, usr user.User) string {
	t.Helper()
	token, err := app.GenerateUserToken(usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *Server, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, do(app, tt))
		})
	}
}

// fixtures

func createAdmin(t *testing.T, email string) user.User {
	return testutil.CreateUser(t, usrRepo, "Admin", email, testutil.Password, user.RoleAdmin, true)
}

func createOwner(t *testing.T, email string) user.User {
	return testutil.CreateUser(t, usrRepo, "Owner", email, testutil.Password, user.RoleOwner, true)
}

func createTenant(t *testing.T, name, email string, approved bool) user.User {
	return testutil.CreateUser(t, usrRepo, name, email, testutil.Password, user.RoleTenant, approved)
}

func createRoom(t *testing.T, number string, capacity int) room.Room {
	typ := room.TypeDormitory
	switch capacity {
	case 1:
		typ = room.TypeSingle
	case 2:
		typ = room.TypeDouble
	case 3:
		typ = room.TypeTriple
	}
	return testutil.CreateRoom(t, roomRepo, number, typ, capacity, 1)
}

// assignTenant allocates tenant to a room and returns the refreshed room.
func assignTenant(t *testing.T, roomID, tenantID string) room.Room {
	t.Helper()
	rm, err := roomSvc.Allocate(context.Background(), roomID, tenantID)
	if err != nil {
		t.Fatalf("assignTenant() failed: %v", err)
	}
	return rm
}

func refreshRoom(t *testing.T, id string) room.Room {
	t.Helper()
	rm, err := roomRepo.GetRoom(context.Background(), id)
	if err != nil {
		t.Fatalf("refreshRoom() failed: %v", err)
	}
	return rm
}

func refreshUser(t *testing.T, id string) user.User {
	t.Helper()
	usr, err := usrRepo.GetUserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("refreshUser() failed: %v", err)
	}
	return usr
}
