package raffles

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/fuelpass/fuelpass-backend/pkg/db"
	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
	"github.com/fuelpass/fuelpass-backend/pkg/merkle"
	"github.com/fuelpass/fuelpass-backend/pkg/outbox"
	"github.com/fuelpass/fuelpass-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the raffle lifecycle and verification operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*RaffleDTO, error)
	EnsureOpenForPeriod(ctx context.Context, tx *gorm.DB, period string) (*models.Raffle, error)
	Get(ctx context.Context, id uuid.UUID) (*RaffleDTO, error)
	GetByPeriod(ctx context.Context, period string) (*RaffleDTO, error)
	Close(ctx context.Context, input CloseInput) (*RaffleDTO, error)
	Draw(ctx context.Context, input DrawInput) (*RaffleDTO, error)
	VerificationDetails(ctx context.Context, id uuid.UUID) (*VerificationDTO, error)
	Verify(ctx context.Context, id uuid.UUID) (*VerificationReport, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	seedBytes int
	prize     decimal.Decimal
	logg      *logger.Logger
	now       func() time.Time
	newSeed   func(n int) (string, string, error)
}

// NewService builds a raffle service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, seedBytes int, defaultPrize string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("raffles repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	prize, err := decimal.NewFromString(defaultPrize)
	if err != nil {
		return nil, fmt.Errorf("parsing default prize: %w", err)
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    ob,
		seedBytes: seedBytes,
		prize:     prize,
		logg:      logg,
		now:       time.Now,
		newSeed:   NewServerSeed,
	}, nil
}

// Create opens a raffle for the given period and publishes the server seed
// commitment. The seed itself never leaves the row until the draw.
func (s *service) Create(ctx context.Context, input CreateInput) (*RaffleDTO, error) {
	if _, err := ParsePeriod(input.Period); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period must use the YYYY-MM format")
	}

	seed, hash, err := s.newSeed(s.seedBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate server seed")
	}

	raffle := &models.Raffle{
		Period:         input.Period,
		Status:         enums.RaffleStatusOpen,
		ServerSeed:     seed,
		ServerSeedHash: hash,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, raffle); err != nil {
			if dbpkg.IsUniqueViolation(err, "raffles_period_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "raffle already exists for period")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create raffle")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logRaffle(ctx, raffle, "raffle opened")
	return toDTO(raffle, 0), nil
}

// EnsureOpenForPeriod returns the open raffle for a period, creating it on
// first use. Called by the entry aggregator inside its own transaction.
func (s *service) EnsureOpenForPeriod(ctx context.Context, tx *gorm.DB, period string) (*models.Raffle, error) {
	repo := s.repo.WithTx(tx)
	raffle, err := repo.FindByPeriodForUpdate(ctx, period)
	if err == nil {
		if raffle.Status != enums.RaffleStatusOpen {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "raffle for period is no longer open")
		}
		return raffle, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load raffle for period")
	}

	seed, hash, err := s.newSeed(s.seedBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate server seed")
	}
	raffle = &models.Raffle{
		Period:         period,
		Status:         enums.RaffleStatusOpen,
		ServerSeed:     seed,
		ServerSeedHash: hash,
	}
	if _, err := repo.Create(ctx, raffle); err != nil {
		// Lost the create race; the winner holds the row.
		if dbpkg.IsUniqueViolation(err, "raffles_period_key") {
			return repo.FindByPeriodForUpdate(ctx, period)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create raffle for period")
	}
	return raffle, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*RaffleDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "raffle id required")
	}
	raffle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, "load raffle")
	}
	count, err := s.repo.CountEntries(ctx, raffle.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count raffle entries")
	}
	return toDTO(raffle, count), nil
}

func (s *service) GetByPeriod(ctx context.Context, period string) (*RaffleDTO, error) {
	if _, err := ParsePeriod(period); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period must use the YYYY-MM format")
	}
	raffle, err := s.repo.FindByPeriod(ctx, period)
	if err != nil {
		return nil, s.mapLookupError(err, "load raffle by period")
	}
	count, err := s.repo.CountEntries(ctx, raffle.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count raffle entries")
	}
	return toDTO(raffle, count), nil
}

// Close freezes the entry pool: it walks the canonical ordering, builds the
// Merkle commitment and records the optional client seed. After close no
// entry can join the period.
func (s *service) Close(ctx context.Context, input CloseInput) (*RaffleDTO, error) {
	if input.RaffleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "raffle id required")
	}

	var (
		result     *models.Raffle
		entryCount int64
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		raffle, err := repo.FindByIDForUpdate(ctx, input.RaffleID)
		if err != nil {
			return s.mapLookupError(err, "load raffle")
		}
		if raffle.Status == enums.RaffleStatusDrawn {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle already drawn")
		}
		if !raffle.Status.CanTransitionTo(enums.RaffleStatusClosed) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle is not open")
		}

		entries, err := repo.ListEntriesOrdered(ctx, raffle.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list raffle entries")
		}
		if len(entries) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle has no entries")
		}

		root, err := merkle.Root(EntryLeaves(entries))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build merkle commitment")
		}

		updates := map[string]any{"merkle_root": root}
		if input.ClientSeed != nil && *input.ClientSeed != "" {
			updates["client_seed"] = *input.ClientSeed
		}
		affected, err := repo.UpdateStatusGuarded(ctx, raffle.ID, raffle.Status, enums.RaffleStatusClosed, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close raffle")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle changed state concurrently")
		}

		raffle.Status = enums.RaffleStatusClosed
		raffle.MerkleRoot = &root
		if input.ClientSeed != nil && *input.ClientSeed != "" {
			raffle.ClientSeed = input.ClientSeed
		}
		result = raffle
		entryCount = int64(len(entries))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logRaffle(ctx, result, "raffle closed")
	return toDTO(result, entryCount), nil
}

// Draw reveals the server seed, combines it with the client and external
// seeds, and deterministically selects the winner from the committed pool.
// The winner row insert is guarded by a unique constraint so a racing second
// draw can never award twice.
func (s *service) Draw(ctx context.Context, input DrawInput) (*RaffleDTO, error) {
	if input.RaffleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "raffle id required")
	}
	if input.ExternalSeed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external seed required")
	}

	var (
		result     *models.Raffle
		entryCount int64
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		raffle, err := repo.FindByIDForUpdate(ctx, input.RaffleID)
		if err != nil {
			return s.mapLookupError(err, "load raffle")
		}
		if raffle.Status == enums.RaffleStatusDrawn {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle already drawn")
		}
		if !raffle.Status.CanTransitionTo(enums.RaffleStatusDrawn) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle must be closed before drawing")
		}
		if raffle.MerkleRoot == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle has no entry commitment")
		}

		entries, err := repo.ListEntriesOrdered(ctx, raffle.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list raffle entries")
		}
		if len(entries) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle has no entries")
		}

		// The committed root must still match the pool before any seed math.
		root, err := merkle.Root(EntryLeaves(entries))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rebuild merkle commitment")
		}
		if root != *raffle.MerkleRoot {
			return pkgerrors.New(pkgerrors.CodeInternal, "entry pool no longer matches commitment")
		}

		clientSeed := ""
		if raffle.ClientSeed != nil {
			clientSeed = *raffle.ClientSeed
		}
		drawSeed := CombineSeeds(raffle.ServerSeed, clientSeed, input.ExternalSeed)
		winnerIdx, err := SelectWinner(entries, drawSeed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "select winner")
		}
		winnerEntry := entries[winnerIdx]

		prize := s.prize
		if input.Prize != nil {
			prize = *input.Prize
		}
		winner := &models.RaffleWinner{
			RaffleID:       raffle.ID,
			UserID:         winnerEntry.UserID,
			WinningPointID: winnerEntry.PointID,
			Prize:          prize,
		}
		if _, err := repo.InsertWinner(ctx, winner); err != nil {
			if dbpkg.IsUniqueViolation(err, "raffle_winners_raffle_id_key") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle already drawn")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert raffle winner")
		}

		drawnAt := s.now().UTC()
		affected, err := repo.UpdateStatusGuarded(ctx, raffle.ID, raffle.Status, enums.RaffleStatusDrawn, map[string]any{
			"external_seed":   input.ExternalSeed,
			"winner_entry_id": winnerEntry.ID,
			"draw_at":         drawnAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark raffle drawn")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "raffle already drawn")
		}

		raffle.Status = enums.RaffleStatusDrawn
		raffle.ExternalSeed = &input.ExternalSeed
		raffle.WinnerEntryID = &winnerEntry.ID
		raffle.DrawAt = &drawnAt
		result = raffle
		entryCount = int64(len(entries))

		event := outbox.DomainEvent{
			EventType:     enums.EventRaffleDrawn,
			AggregateType: enums.AggregateRaffle,
			AggregateID:   raffle.ID,
			Version:       1,
			Data: payloads.RaffleDrawnEvent{
				RaffleID:      raffle.ID,
				Period:        raffle.Period,
				WinnerEntryID: winnerEntry.ID,
				WinnerUserID:  winnerEntry.UserID,
				MerkleRoot:    root,
				DrawnAt:       drawnAt,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	s.logRaffle(ctx, result, "raffle drawn")
	return toDTO(result, entryCount), nil
}

// VerificationDetails publishes everything needed to audit a drawn raffle.
func (s *service) VerificationDetails(ctx context.Context, id uuid.UUID) (*VerificationDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "raffle id required")
	}
	raffle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, "load raffle")
	}
	if raffle.Status != enums.RaffleStatusDrawn {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "raffle has not been drawn")
	}

	entries, err := s.repo.ListEntriesOrdered(ctx, raffle.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list raffle entries")
	}
	winner, err := s.repo.FindWinner(ctx, raffle.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load raffle winner")
	}
	if winner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "drawn raffle is missing its winner row")
	}

	winnerIdx := -1
	for i, entry := range entries {
		if raffle.WinnerEntryID != nil && entry.ID == *raffle.WinnerEntryID {
			winnerIdx = i
			break
		}
	}
	if winnerIdx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "winner entry missing from pool")
	}

	tree, err := merkle.New(EntryLeaves(entries))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build merkle tree")
	}
	proof, err := tree.Proof(winnerIdx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build winner proof")
	}

	clientSeed := ""
	if raffle.ClientSeed != nil {
		clientSeed = *raffle.ClientSeed
	}
	externalSeed := ""
	if raffle.ExternalSeed != nil {
		externalSeed = *raffle.ExternalSeed
	}
	root := ""
	if raffle.MerkleRoot != nil {
		root = *raffle.MerkleRoot
	}

	return &VerificationDTO{
		RaffleID:          raffle.ID,
		Period:            raffle.Period,
		ServerSeed:        raffle.ServerSeed,
		ServerSeedHash:    raffle.ServerSeedHash,
		ClientSeed:        clientSeed,
		ExternalSeed:      externalSeed,
		FinalCombinedSeed: hex.EncodeToString(CombineSeeds(raffle.ServerSeed, clientSeed, externalSeed)),
		MerkleRoot:        root,
		Entries:           toEntryDTOs(entries),
		WinnerIndex:       winnerIdx,
		Winner: WinnerDTO{
			EntryID:        entries[winnerIdx].ID,
			UserID:         winner.UserID,
			WinningPointID: winner.WinningPointID,
			Prize:          winner.Prize,
			AwardedAt:      winner.AwardedAt,
		},
		WinnerProof: proof,
	}, nil
}

func (s *service) mapLookupError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "raffle not found")
	}
	if pkgerrors.IsLockNotAvailable(err) {
		return pkgerrors.New(pkgerrors.CodeLockTimeout, "raffle row is locked")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func (s *service) logRaffle(ctx context.Context, raffle *models.Raffle, msg string) {
	if s.logg == nil || raffle == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"raffle_id": raffle.ID.String(),
		"period":    raffle.Period,
		"status":    raffle.Status,
	})
	s.logg.Info(logCtx, msg)
}
