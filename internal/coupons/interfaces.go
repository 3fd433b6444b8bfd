package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
)

// Repository exposes coupon persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByQRCodeForUpdate(ctx context.Context, qrCode string) (*models.Coupon, error)
	FindByTokenForUpdate(ctx context.Context, token string) (*models.Coupon, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from, to enums.CouponStatus, updates map[string]any) (int64, error)
	ExpireBatch(ctx context.Context, now time.Time, limit int) ([]models.Coupon, error)
	ListByStation(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Coupon, error)
}
