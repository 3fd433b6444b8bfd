package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupon repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		return nil, err
	}
	return coupon, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindByQRCodeForUpdate loads the coupon under FOR UPDATE so concurrent scans
// of the same code serialize on the row.
func (r *repository) FindByQRCodeForUpdate(ctx context.Context, qrCode string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("qr_code = ?", qrCode).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByTokenForUpdate(ctx context.Context, token string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// UpdateStatusGuarded applies a compare-and-set transition. The WHERE clause
// re-checks the source status so a racing writer that slipped past the row
// lock window never double-applies a transition; callers must treat zero
// affected rows as a state conflict.
func (r *repository) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from, to enums.CouponStatus, updates map[string]any) (int64, error) {
	values := map[string]any{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	return res.RowsAffected, res.Error
}

// ExpireBatch transitions past-expiry non-terminal coupons to expired and
// returns the affected rows.
func (r *repository) ExpireBatch(ctx context.Context, now time.Time, limit int) ([]models.Coupon, error) {
	if limit <= 0 {
		limit = 200
	}
	var due []models.Coupon
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("expires_at < ? AND status NOT IN ?", now, []enums.CouponStatus{
			enums.CouponStatusUsedInRaffle,
			enums.CouponStatusExpired,
		}).
		Order("expires_at ASC").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(due))
	for _, coupon := range due {
		ids = append(ids, coupon.ID)
	}
	err = r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     enums.CouponStatusExpired,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, err
	}
	for i := range due {
		due[i].Status = enums.CouponStatusExpired
	}
	return due, nil
}

func (r *repository) ListByStation(ctx context.Context, stationID uuid.UUID, limit int) ([]models.Coupon, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Coupon
	err := r.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
