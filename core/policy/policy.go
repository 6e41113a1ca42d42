// Package policy holds the authorization table: which role may perform which operation.
// The table is a casbin RBAC model with the rules embedded from policy.csv.
package policy

import (
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/pkg/errors"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Operation names an action guarded by the policy table.
type Operation string

const (
	ProfileRead   Operation = "profile:read"
	ProfileUpdate Operation = "profile:update"

	UserList      Operation = "user:list"
	UserCreate    Operation = "user:create"
	TenantList    Operation = "tenant:list"
	TenantApprove Operation = "tenant:approve"
	TenantReject  Operation = "tenant:reject"

	RoomList         Operation = "room:list"
	RoomRead         Operation = "room:read"
	RoomCreate       Operation = "room:create"
	RoomDelete       Operation = "room:delete"
	RoomSetStatus    Operation = "room:set-status"
	RoomAssign       Operation = "room:assign"
	RoomRemoveTenant Operation = "room:remove-tenant"

	RequestCreate  Operation = "room-request:create"
	RequestList    Operation = "room-request:list"
	RequestListOwn Operation = "room-request:list-own"
	RequestDecide  Operation = "room-request:decide"
	RequestDelete  Operation = "room-request:delete"

	PaymentCreate  Operation = "payment:create"
	PaymentList    Operation = "payment:list"
	PaymentListOwn Operation = "payment:list-own"
	PaymentUpdate  Operation = "payment:update"
	PaymentDelete  Operation = "payment:delete"

	ComplaintCreate  Operation = "complaint:create"
	ComplaintList    Operation = "complaint:list"
	ComplaintListOwn Operation = "complaint:list-own"
	ComplaintUpdate  Operation = "complaint:update"
	ComplaintDelete  Operation = "complaint:delete"

	NoticeList   Operation = "notice:list"
	NoticeCreate Operation = "notice:create"
	NoticeUpdate Operation = "notice:update"
	NoticeDelete Operation = "notice:delete"

	MessMenuList   Operation = "messmenu:list"
	MessMenuUpsert Operation = "messmenu:upsert"
	MessMenuDelete Operation = "messmenu:delete"

	MoveOutCreate  Operation = "moveout:create"
	MoveOutList    Operation = "moveout:list"
	MoveOutListOwn Operation = "moveout:list-own"
	MoveOutCancel  Operation = "moveout:cancel"
	MoveOutDecide  Operation = "moveout:decide"

	FeedbackCreate  Operation = "feedback:create"
	FeedbackList    Operation = "feedback:list"
	FeedbackListOwn Operation = "feedback:list-own"
	FeedbackDelete  Operation = "feedback:delete"
)

// Enforcer answers (role, operation) questions. Safe for concurrent use.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// New builds the Enforcer from the embedded model and policy.
func New() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, errors.Wrap(err, "loading policy model")
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, errors.Wrap(err, "creating enforcer")
	}
	if err = loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Enforcer{enforcer: enforcer}, nil
}

// MustNew is like New but panics on error. The embedded policy is static so it can only fail on a bad build.
func MustNew() *Enforcer {
	e, err := New()
	if err != nil {
		panic(err)
	}
	return e
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) != 3 {
			return errors.Errorf("malformed policy line %q", line)
		}

		switch parts[0] {
		case "p":
			if _, err := enforcer.AddPolicy(parts[1], parts[2]); err != nil {
				return errors.Wrapf(err, "adding policy %v", parts[1:])
			}
		case "g":
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return errors.Wrapf(err, "adding grouping policy %v", parts[1:])
			}
		default:
			return errors.Errorf("unknown policy type %q", parts[0])
		}
	}
	return nil
}

// Can reports whether role may perform op. Unknown roles are denied.
func (e *Enforcer) Can(role string, op Operation) bool {
	if role == "" {
		return false
	}
	ok, err := e.enforcer.Enforce(role, string(op))
	return err == nil && ok
}

// Operations lists the operations role may perform.
func (e *Enforcer) Operations(role string) []Operation {
	perms, err := e.enforcer.GetImplicitPermissionsForUser(role)
	if err != nil {
		return nil
	}
	ops := make([]Operation, 0, len(perms))
	for _, perm := range perms {
		if len(perm) > 1 {
			ops = append(ops, Operation(perm[1]))
		}
	}
	return ops
}
