package raffles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a raffle repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, raffle *models.Raffle) (*models.Raffle, error) {
	if err := r.db.WithContext(ctx).Create(raffle).Error; err != nil {
		return nil, err
	}
	return raffle, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&raffle).Error
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

func (r *repository) FindByPeriod(ctx context.Context, period string) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.WithContext(ctx).Where("period = ?", period).First(&raffle).Error
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&raffle).Error
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

func (r *repository) FindByPeriodForUpdate(ctx context.Context, period string) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("period = ?", period).
		First(&raffle).Error
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

// UpdateStatusGuarded applies a compare-and-set status transition; callers
// must treat zero affected rows as a state conflict.
func (r *repository) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from, to enums.RaffleStatus, updates map[string]any) (int64, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Raffle{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	return res.RowsAffected, res.Error
}

func (r *repository) InsertEntry(ctx context.Context, entry *models.RaffleEntry) (*models.RaffleEntry, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntriesOrdered returns the canonical draw ordering. Both the Merkle
// commitment and the weighted walk depend on this exact ordering, so it must
// never change once raffles exist.
func (r *repository) ListEntriesOrdered(ctx context.Context, raffleID uuid.UUID) ([]models.RaffleEntry, error) {
	var rows []models.RaffleEntry
	err := r.db.WithContext(ctx).
		Where("raffle_id = ?", raffleID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountEntries(ctx context.Context, raffleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RaffleEntry{}).
		Where("raffle_id = ?", raffleID).
		Count(&count).Error
	return count, err
}

func (r *repository) InsertWinner(ctx context.Context, winner *models.RaffleWinner) (*models.RaffleWinner, error) {
	if err := r.db.WithContext(ctx).Create(winner).Error; err != nil {
		return nil, err
	}
	return winner, nil
}

func (r *repository) FindWinner(ctx context.Context, raffleID uuid.UUID) (*models.RaffleWinner, error) {
	var winner models.RaffleWinner
	err := r.db.WithContext(ctx).Where("raffle_id = ?", raffleID).First(&winner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &winner, nil
}
