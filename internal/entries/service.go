// Package entries converts completed coupons into raffle entries. Each coupon
// yields exactly one entry per period; the unique (raffle_id, point_id) index
// and the coupon status transition both guard against replays.
package entries

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelpass/fuelpass-backend/internal/coupons"
	"github.com/fuelpass/fuelpass-backend/internal/raffles"
	dbpkg "github.com/fuelpass/fuelpass-backend/pkg/db"
	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
	"github.com/fuelpass/fuelpass-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type raffleProvider interface {
	EnsureOpenForPeriod(ctx context.Context, tx *gorm.DB, period string) (*models.Raffle, error)
}

// Service aggregates completed coupons into raffle entries.
type Service interface {
	RecordCompletion(ctx context.Context, event payloads.CouponCompletedEvent) error
	ListForRaffle(ctx context.Context, raffleID uuid.UUID) ([]models.RaffleEntry, error)
}

type service struct {
	raffleRepo raffles.Repository
	couponRepo coupons.Repository
	raffleSvc  raffleProvider
	tx         txRunner
	logg       *logger.Logger
}

// NewService builds the entry aggregator.
func NewService(raffleRepo raffles.Repository, couponRepo coupons.Repository, raffleSvc raffleProvider, tx txRunner, logg *logger.Logger) (Service, error) {
	if raffleRepo == nil {
		return nil, fmt.Errorf("raffles repository required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if raffleSvc == nil {
		return nil, fmt.Errorf("raffle service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		raffleRepo: raffleRepo,
		couponRepo: couponRepo,
		raffleSvc:  raffleSvc,
		tx:         tx,
		logg:       logg,
	}, nil
}

// RecordCompletion turns one coupon_completed event into a raffle entry.
// The operation is idempotent: replays hit either the terminal coupon status
// or the unique entry index and return nil.
func (s *service) RecordCompletion(ctx context.Context, event payloads.CouponCompletedEvent) error {
	if event.CouponID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon id required")
	}
	if event.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if event.Period == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "period required")
	}
	if event.TotalTickets <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "total tickets must be positive")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)
		coupon, err := couponRepo.FindByIDForUpdate(ctx, event.CouponID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
			}
			if pkgerrors.IsLockNotAvailable(err) {
				return pkgerrors.New(pkgerrors.CodeLockTimeout, "coupon row is locked")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
		}

		if coupon.Status == enums.CouponStatusUsedInRaffle {
			s.logDuplicate(ctx, event, "coupon already aggregated")
			return nil
		}
		if coupon.Status != enums.CouponStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("coupon in state %s cannot enter a raffle", coupon.Status))
		}

		raffle, err := s.raffleSvc.EnsureOpenForPeriod(ctx, tx, event.Period)
		if err != nil {
			return err
		}

		entry := &models.RaffleEntry{
			RaffleID: raffle.ID,
			PointID:  coupon.ID,
			UserID:   event.UserID,
			Tickets:  event.TotalTickets,
		}
		if _, err := s.raffleRepo.WithTx(tx).InsertEntry(ctx, entry); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_raffle_entries_raffle_point") {
				s.logDuplicate(ctx, event, "entry already exists for coupon")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert raffle entry")
		}

		affected, err := couponRepo.UpdateStatusGuarded(ctx, coupon.ID, coupon.Status, enums.CouponStatusUsedInRaffle, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark coupon used in raffle")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon changed state concurrently")
		}

		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"coupon_id": coupon.ID.String(),
				"raffle_id": raffle.ID.String(),
				"period":    event.Period,
				"tickets":   event.TotalTickets,
			})
			s.logg.Info(logCtx, "raffle entry recorded")
		}
		return nil
	})
}

func (s *service) ListForRaffle(ctx context.Context, raffleID uuid.UUID) ([]models.RaffleEntry, error) {
	if raffleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "raffle id required")
	}
	return s.raffleRepo.ListEntriesOrdered(ctx, raffleID)
}

func (s *service) logDuplicate(ctx context.Context, event payloads.CouponCompletedEvent, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"coupon_id": event.CouponID.String(),
		"period":    event.Period,
	})
	s.logg.Info(logCtx, msg)
}
