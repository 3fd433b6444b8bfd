package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelpass/fuelpass-backend/internal/raffles"
	"github.com/fuelpass/fuelpass-backend/pkg/config"
	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
	"github.com/fuelpass/fuelpass-backend/pkg/outbox"
	"github.com/fuelpass/fuelpass-backend/pkg/outbox/payloads"
	"github.com/fuelpass/fuelpass-backend/pkg/qrtoken"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type tokenManager interface {
	Issue(stationID uuid.UUID, dispenserID string, now time.Time) (string, error)
	Verify(raw string) (*qrtoken.Claims, error)
}

// Service defines the coupon lifecycle operations.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*CouponDTO, error)
	Scan(ctx context.Context, input ScanInput) (*CouponDTO, error)
	Activate(ctx context.Context, input ActivateInput) (*CouponDTO, error)
	Complete(ctx context.Context, input CompleteInput) (*CouponDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error)
	ExpireSweep(ctx context.Context, now time.Time, limit int) (int, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	tokens tokenManager
	cfg    config.CouponConfig
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a coupon service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, tokens tokenManager, cfg config.CouponConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token manager required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: ob,
		tokens: tokens,
		cfg:    cfg,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// Generate mints a fresh coupon for a station dispenser. The QR code printed
// on the receipt carries the opaque qr_code value; the signed token is only
// handed to the app after a successful scan.
func (s *service) Generate(ctx context.Context, input GenerateInput) (*CouponDTO, error) {
	if input.StationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "station id required")
	}
	if input.EmployeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "employee identity missing")
	}

	now := s.now()
	tickets := input.BaseTickets
	if tickets <= 0 {
		tickets = s.cfg.DefaultTickets
	}
	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	token, err := s.tokens.Issue(input.StationID, input.DispenserID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue coupon token")
	}

	coupon := &models.Coupon{
		QRCode:       uuid.NewString(),
		Token:        token,
		Status:       enums.CouponStatusGenerated,
		StationID:    input.StationID,
		EmployeeID:   &input.EmployeeID,
		TotalTickets: tickets,
		ExpiresAt:    now.Add(ttl),
	}

	var created *models.Coupon
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err = s.repo.WithTx(tx).Create(ctx, coupon)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logCoupon(ctx, created, "coupon generated")
	return toDTO(created, true), nil
}

// Scan moves a printed coupon to scanned and binds it to the scanning user.
// The row is locked for the duration of the transaction so two phones
// scanning the same receipt serialize; the loser sees a state conflict.
func (s *service) Scan(ctx context.Context, input ScanInput) (*CouponDTO, error) {
	if input.QRCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qr code required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *models.Coupon
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		coupon, err := repo.FindByQRCodeForUpdate(ctx, input.QRCode)
		if err != nil {
			return s.mapLookupError(err, "load coupon by qr code")
		}
		if err := s.guardNotExpired(ctx, repo, coupon); err != nil {
			return err
		}
		if coupon.Status != enums.CouponStatusGenerated {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}
		if err := guardTransition(coupon, enums.CouponStatusScanned); err != nil {
			return err
		}

		affected, err := repo.UpdateStatusGuarded(ctx, coupon.ID, coupon.Status, enums.CouponStatusScanned, map[string]any{
			"scanned_by": input.UserID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark coupon scanned")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon changed state concurrently")
		}

		coupon.Status = enums.CouponStatusScanned
		coupon.ScannedBy = &input.UserID
		result = coupon
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logCoupon(ctx, result, "coupon scanned")
	return toDTO(result, true), nil
}

// Activate consumes the signed token exactly once. Concurrency is handled in
// three layers: the JWT signature gate, the FOR UPDATE row lock, and the
// guarded compare-and-set transition.
func (s *service) Activate(ctx context.Context, input ActivateInput) (*CouponDTO, error) {
	if input.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	if _, err := s.tokens.Verify(input.Token); err != nil {
		if errors.Is(err, qrtoken.ErrExpiredToken) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon token expired")
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon token")
	}

	var result *models.Coupon
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		coupon, err := repo.FindByTokenForUpdate(ctx, input.Token)
		if err != nil {
			return s.mapLookupError(err, "load coupon by token")
		}
		if err := s.guardNotExpired(ctx, repo, coupon); err != nil {
			return err
		}
		if coupon.Status == enums.CouponStatusActivated ||
			coupon.Status == enums.CouponStatusCompleted ||
			coupon.Status == enums.CouponStatusUsedInRaffle {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}
		if coupon.ScannedBy == nil || *coupon.ScannedBy != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "coupon belongs to another user")
		}
		if err := guardTransition(coupon, enums.CouponStatusActivated); err != nil {
			return err
		}

		affected, err := repo.UpdateStatusGuarded(ctx, coupon.ID, coupon.Status, enums.CouponStatusActivated, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark coupon activated")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}

		coupon.Status = enums.CouponStatusActivated
		result = coupon

		event := outbox.DomainEvent{
			EventType:     enums.EventCouponActivated,
			AggregateType: enums.AggregateCoupon,
			AggregateID:   coupon.ID,
			Version:       1,
			Actor:         buildActor(input.UserID, coupon.StationID),
			Data: payloads.CouponActivatedEvent{
				CouponID:    coupon.ID,
				UserID:      input.UserID,
				StationID:   coupon.StationID,
				BaseTickets: coupon.TotalTickets,
				ActivatedAt: s.now().UTC(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	s.logCoupon(ctx, result, "coupon activated")
	return toDTO(result, false), nil
}

// Complete finalizes the coupon with the settled ticket count and queues the
// event the raffle entry aggregator consumes.
func (s *service) Complete(ctx context.Context, input CompleteInput) (*CouponDTO, error) {
	if input.CouponID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.TotalTickets <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total tickets must be positive")
	}

	var result *models.Coupon
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		coupon, err := repo.FindByIDForUpdate(ctx, input.CouponID)
		if err != nil {
			return s.mapLookupError(err, "load coupon")
		}
		if err := s.guardNotExpired(ctx, repo, coupon); err != nil {
			return err
		}
		if coupon.ScannedBy == nil || *coupon.ScannedBy != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "coupon belongs to another user")
		}
		if coupon.Status == enums.CouponStatusCompleted || coupon.Status == enums.CouponStatusUsedInRaffle {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}
		if err := guardTransition(coupon, enums.CouponStatusCompleted); err != nil {
			return err
		}

		affected, err := repo.UpdateStatusGuarded(ctx, coupon.ID, coupon.Status, enums.CouponStatusCompleted, map[string]any{
			"total_tickets": input.TotalTickets,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark coupon completed")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}

		completedAt := s.now().UTC()
		coupon.Status = enums.CouponStatusCompleted
		coupon.TotalTickets = input.TotalTickets
		result = coupon

		event := outbox.DomainEvent{
			EventType:     enums.EventCouponCompleted,
			AggregateType: enums.AggregateCoupon,
			AggregateID:   coupon.ID,
			Version:       1,
			Actor:         buildActor(input.UserID, coupon.StationID),
			Data: payloads.CouponCompletedEvent{
				CouponID:     coupon.ID,
				UserID:       input.UserID,
				StationID:    coupon.StationID,
				TotalTickets: input.TotalTickets,
				Period:       raffles.PeriodFor(completedAt),
				CompletedAt:  completedAt,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	s.logCoupon(ctx, result, "coupon completed")
	return toDTO(result, false), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id required")
	}
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, "load coupon")
	}
	return toDTO(coupon, false), nil
}

// ExpireSweep transitions past-expiry coupons to expired. Used by the cron
// job; returns the number of swept coupons.
func (s *service) ExpireSweep(ctx context.Context, now time.Time, limit int) (int, error) {
	if now.IsZero() {
		now = s.now()
	}
	var swept int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		expired, err := s.repo.WithTx(tx).ExpireBatch(ctx, now, limit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire coupon batch")
		}
		swept = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if swept > 0 && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "expired_count", swept)
		s.logg.Info(logCtx, "coupon expiry sweep completed")
	}
	return swept, nil
}

// guardNotExpired lazily expires a coupon whose TTL elapsed between sweeps.
func (s *service) guardNotExpired(ctx context.Context, repo Repository, coupon *models.Coupon) error {
	if coupon.Status == enums.CouponStatusExpired {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon expired")
	}
	if coupon.Status.IsTerminal() || s.now().Before(coupon.ExpiresAt) {
		return nil
	}
	if _, err := repo.UpdateStatusGuarded(ctx, coupon.ID, coupon.Status, enums.CouponStatusExpired, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark coupon expired")
	}
	coupon.Status = enums.CouponStatusExpired
	return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon expired")
}

func (s *service) mapLookupError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if pkgerrors.IsLockNotAvailable(err) {
		return pkgerrors.New(pkgerrors.CodeLockTimeout, "coupon row is locked")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func guardTransition(coupon *models.Coupon, next enums.CouponStatus) error {
	if coupon.Status.CanTransitionTo(next) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("transition %s -> %s not allowed", coupon.Status, next))
}

func buildActor(userID, stationID uuid.UUID) *outbox.ActorRef {
	actor := &outbox.ActorRef{UserID: userID, Role: "customer"}
	if stationID != uuid.Nil {
		actor.StationID = &stationID
	}
	return actor
}

func (s *service) logCoupon(ctx context.Context, coupon *models.Coupon, msg string) {
	if s.logg == nil || coupon == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"coupon_id":  coupon.ID.String(),
		"station_id": coupon.StationID.String(),
		"status":     coupon.Status,
	})
	s.logg.Info(logCtx, msg)
}
