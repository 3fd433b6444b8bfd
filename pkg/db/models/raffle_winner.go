package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RaffleWinner is written exactly once per raffle by the draw executor.
type RaffleWinner struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RaffleID       uuid.UUID       `gorm:"column:raffle_id;type:uuid;not null;unique"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	WinningPointID uuid.UUID       `gorm:"column:winning_point_id;type:uuid;not null"`
	Prize          decimal.Decimal `gorm:"column:prize;type:numeric(12,2);not null"`
	AwardedAt      time.Time       `gorm:"column:awarded_at;autoCreateTime"`
}
