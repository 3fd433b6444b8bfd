package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fuelpass/fuelpass-backend/pkg/enums"
)

// Coupon is a single-use redemption code tied to a fueling event. It is only
// ever mutated through guarded status transitions and never physically deleted.
type Coupon struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	QRCode       string             `gorm:"column:qr_code;not null;unique"`
	Token        string             `gorm:"column:token;not null;unique"`
	Status       enums.CouponStatus `gorm:"column:status;type:coupon_status;not null;default:'generated'"`
	StationID    uuid.UUID          `gorm:"column:station_id;type:uuid;not null"`
	EmployeeID   *uuid.UUID         `gorm:"column:employee_id;type:uuid"`
	ScannedBy    *uuid.UUID         `gorm:"column:scanned_by;type:uuid"`
	TotalTickets int                `gorm:"column:total_tickets;not null;default:1"`
	ExpiresAt    time.Time          `gorm:"column:expires_at;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
