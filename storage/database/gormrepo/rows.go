package gormrepo

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type (
	userRow struct {
		ID            string  `gorm:"primaryKey;size:36"`
		Name          string  `gorm:"size:150;not null"`
		Email         string  `gorm:"size:254;not null;uniqueIndex"`
		Role          string  `gorm:"size:20;not null;index"`
		IsApproved    bool    `gorm:"not null;default:false"`
		Phone         string  `gorm:"size:20"`
		Address       string  `gorm:"size:255"`
		GovernmentID  string  `gorm:"size:50"`
		CurrentRoomID *string `gorm:"size:36"`
		PasswordHash  []byte
		CreatedAt     time.Time `gorm:"not null"`
		UpdatedAt     time.Time `gorm:"not null"`
		LastLogin     *time.Time
	}

	roomRow struct {
		ID        string          `gorm:"primaryKey;size:36"`
		Number    string          `gorm:"size:20;not null;uniqueIndex"`
		Type      string          `gorm:"size:20;not null"`
		Floor     int             `gorm:"not null;default:0"`
		Capacity  int             `gorm:"not null;check:capacity >= 1"`
		Price     decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
		Occupied  int             `gorm:"not null;default:0;check:occupied >= 0"`
		Status    string          `gorm:"size:20;not null;index"`
		CreatedBy string          `gorm:"size:36"`
		CreatedAt time.Time       `gorm:"not null"`
		UpdatedAt time.Time       `gorm:"not null"`
	}

	roomTenantRow struct {
		RoomID     string    `gorm:"primaryKey;size:36"`
		TenantID   string    `gorm:"primaryKey;size:36;index"`
		AssignedAt time.Time `gorm:"not null"`
	}

	roomRequestRow struct {
		ID          string     `gorm:"primaryKey;size:36"`
		RoomID      string     `gorm:"size:36;not null;uniqueIndex:idx_room_requests_room_tenant"`
		RoomNumber  string     `gorm:"size:20;not null"`
		TenantID    string     `gorm:"size:36;not null;uniqueIndex:idx_room_requests_room_tenant;index"`
		TenantName  string     `gorm:"size:150;not null"`
		TenantEmail string     `gorm:"size:254;not null"`
		Status      string     `gorm:"size:20;not null;index"`
		RequestedAt time.Time  `gorm:"not null"`
		ReviewedAt  *time.Time
		ReviewedBy  *string `gorm:"size:36"`
	}

	paymentRow struct {
		ID         string          `gorm:"primaryKey;size:36"`
		TenantID   string          `gorm:"size:36;not null;uniqueIndex:idx_payments_tenant_month"`
		TenantName string          `gorm:"size:150;not null"`
		RoomID     *string         `gorm:"size:36"`
		Amount     decimal.Decimal `gorm:"type:numeric(10,2);not null"`
		Month      string          `gorm:"size:7;not null;uniqueIndex:idx_payments_tenant_month"`
		Status     string          `gorm:"size:20;not null;index"`
		Method     string          `gorm:"size:20"`
		PaidAt     *time.Time
		Note       string    `gorm:"size:500"`
		CreatedAt  time.Time `gorm:"not null"`
		UpdatedAt  time.Time `gorm:"not null"`
	}

	complaintRow struct {
		ID          string `gorm:"primaryKey;size:36"`
		TenantID    string `gorm:"size:36;not null;index"`
		TenantName  string `gorm:"size:150;not null"`
		RoomNumber  string `gorm:"size:20"`
		Title       string `gorm:"size:200;not null"`
		Description string `gorm:"size:2000;not null"`
		Category    string `gorm:"size:20;not null"`
		Status      string `gorm:"size:20;not null;index"`
		Response    string `gorm:"size:2000"`
		CreatedAt   time.Time
		UpdatedAt   time.Time
		ResolvedAt  *time.Time
	}

	noticeRow struct {
		ID        string `gorm:"primaryKey;size:36"`
		Title     string `gorm:"size:200;not null"`
		Body      string `gorm:"size:5000;not null"`
		Priority  string `gorm:"size:10;not null"`
		CreatedBy string `gorm:"size:36"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	messMenuRow struct {
		ID        string                      `gorm:"primaryKey;size:36"`
		Day       string                      `gorm:"size:10;not null;uniqueIndex:idx_mess_menu_day_meal"`
		Meal      string                      `gorm:"size:10;not null;uniqueIndex:idx_mess_menu_day_meal"`
		Items     datatypes.JSONSlice[string] `gorm:"not null"`
		UpdatedBy string                      `gorm:"size:36"`
		UpdatedAt time.Time
	}

	moveOutRow struct {
		ID          string  `gorm:"primaryKey;size:36"`
		TenantID    string  `gorm:"size:36;not null;index"`
		TenantName  string  `gorm:"size:150;not null"`
		RoomID      *string `gorm:"size:36"`
		RoomNumber  string  `gorm:"size:20"`
		MoveOutDate string  `gorm:"size:10;not null"`
		Reason      string  `gorm:"size:1000"`
		Status      string  `gorm:"size:20;not null;index"`
		ReviewedBy  *string `gorm:"size:36"`
		ReviewedAt  *time.Time
		CreatedAt   time.Time
	}

	feedbackRow struct {
		ID         string `gorm:"primaryKey;size:36"`
		TenantID   string `gorm:"size:36;not null;index"`
		TenantName string `gorm:"size:150;not null"`
		Rating     int    `gorm:"not null;check:rating BETWEEN 1 AND 5"`
		Message    string `gorm:"size:2000"`
		CreatedAt  time.Time
	}
)

func (userRow) TableName() string        { return "users" }
func (roomRow) TableName() string        { return "rooms" }
func (roomTenantRow) TableName() string  { return "room_tenants" }
func (roomRequestRow) TableName() string { return "room_requests" }
func (paymentRow) TableName() string     { return "payments" }
func (complaintRow) TableName() string   { return "complaints" }
func (noticeRow) TableName() string      { return "notices" }
func (messMenuRow) TableName() string    { return "mess_menu" }
func (moveOutRow) TableName() string     { return "move_out_notices" }
func (feedbackRow) TableName() string    { return "feedback" }

// Migrate creates or updates every table and index.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&userRow{},
		&roomRow{},
		&roomTenantRow{},
		&roomRequestRow{},
		&paymentRow{},
		&complaintRow{},
		&noticeRow{},
		&messMenuRow{},
		&moveOutRow{},
		&feedbackRow{},
	)
	return errors.Wrap(err, "migrating database")
}
