// Package testutil holds the fixtures shared by every test suite.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/core/room"
	"github.com/trezcool/pgmanager/core/user"
	"github.com/trezcool/pgmanager/storage/database"
	"github.com/trezcool/pgmanager/storage/database/gormrepo"
)

// Password satisfies the password policy.
const Password = "Zq8!mT4#pLw2"

var dbSeq int64

func init() {
	user.PasswordCost = bcrypt.MinCost
}

// PrepareDB opens a fresh, migrated in-memory database, closed when the test ends.
func PrepareDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := database.OpenSQLite(dsn, core.NewTestConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = gormrepo.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isApproved bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:       name,
		Email:      email,
		Role:       role,
		IsApproved: isApproved,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateRoom(t *testing.T, repo room.Repository, number string, typ room.Type, capacity int, floor int) room.Room {
	t.Helper()

	now := time.Now().UTC()
	rm, err := repo.CreateRoom(context.Background(), room.Room{
		Number:    number,
		Type:      typ,
		Floor:     floor,
		Capacity:  capacity,
		Price:     decimal.NewFromInt(5000),
		Status:    room.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRoom() failed: %v", err)
	}
	return rm
}
