package raffles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
)

// Repository exposes raffle, entry and winner persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, raffle *models.Raffle) (*models.Raffle, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Raffle, error)
	FindByPeriod(ctx context.Context, period string) (*models.Raffle, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Raffle, error)
	FindByPeriodForUpdate(ctx context.Context, period string) (*models.Raffle, error)
	UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from, to enums.RaffleStatus, updates map[string]any) (int64, error)

	InsertEntry(ctx context.Context, entry *models.RaffleEntry) (*models.RaffleEntry, error)
	ListEntriesOrdered(ctx context.Context, raffleID uuid.UUID) ([]models.RaffleEntry, error)
	CountEntries(ctx context.Context, raffleID uuid.UUID) (int64, error)

	InsertWinner(ctx context.Context, winner *models.RaffleWinner) (*models.RaffleWinner, error)
	FindWinner(ctx context.Context, raffleID uuid.UUID) (*models.RaffleWinner, error)
}
