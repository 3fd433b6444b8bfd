package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/fuelpass/fuelpass-backend/pkg/logger"
)

const couponExpiryBatch = 500

type couponExpirer interface {
	ExpireSweep(ctx context.Context, now time.Time, limit int) (int, error)
}

// CouponExpiryJobParams configure the coupon expiry job.
type CouponExpiryJobParams struct {
	Logger  *logger.Logger
	Coupons couponExpirer
	Batch   int
}

// NewCouponExpiryJob builds the job that sweeps past-expiry coupons.
func NewCouponExpiryJob(params CouponExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = couponExpiryBatch
	}
	return &couponExpiryJob{
		logg:    params.Logger,
		coupons: params.Coupons,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type couponExpiryJob struct {
	logg    *logger.Logger
	coupons couponExpirer
	batch   int
	now     func() time.Time
}

func (j *couponExpiryJob) Name() string { return "coupon-expiry" }

// Run sweeps in batches until a sweep comes back short, so one cycle drains
// the backlog even after downtime.
func (j *couponExpiryJob) Run(ctx context.Context) error {
	total := 0
	for {
		swept, err := j.coupons.ExpireSweep(ctx, j.now().UTC(), j.batch)
		if err != nil {
			return fmt.Errorf("coupon expiry sweep: %w", err)
		}
		total += swept
		if swept < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired_total": total,
		"batch_size":    j.batch,
	})
	j.logg.Info(logCtx, "coupon expiry job complete")
	return nil
}
