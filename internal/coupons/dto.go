package coupons

import (
	"time"

	"github.com/google/uuid"

	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
)

// GenerateInput captures what a station terminal needs to mint a coupon.
type GenerateInput struct {
	StationID   uuid.UUID
	DispenserID string
	EmployeeID  uuid.UUID
	BaseTickets int
	TTL         time.Duration
}

// ScanInput is submitted when a customer scans the printed QR code.
type ScanInput struct {
	QRCode string
	UserID uuid.UUID
}

// ActivateInput is submitted when the customer confirms activation in the app.
type ActivateInput struct {
	Token  string
	UserID uuid.UUID
}

// CompleteInput finalizes a coupon once the fueling transaction settles.
type CompleteInput struct {
	CouponID     uuid.UUID
	UserID       uuid.UUID
	TotalTickets int
}

// CouponDTO is the API-facing coupon projection.
type CouponDTO struct {
	ID           uuid.UUID          `json:"id"`
	QRCode       string             `json:"qrCode"`
	Token        string             `json:"token,omitempty"`
	Status       enums.CouponStatus `json:"status"`
	StationID    uuid.UUID          `json:"stationId"`
	TotalTickets int                `json:"totalTickets"`
	ExpiresAt    time.Time          `json:"expiresAt"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func toDTO(c *models.Coupon, includeToken bool) *CouponDTO {
	if c == nil {
		return nil
	}
	dto := &CouponDTO{
		ID:           c.ID,
		QRCode:       c.QRCode,
		Status:       c.Status,
		StationID:    c.StationID,
		TotalTickets: c.TotalTickets,
		ExpiresAt:    c.ExpiresAt,
		CreatedAt:    c.CreatedAt,
	}
	if includeToken {
		dto.Token = c.Token
	}
	return dto
}
