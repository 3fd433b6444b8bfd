package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fuelpass/fuelpass-backend/pkg/enums"
)

// Raffle is one draw period. ServerSeedHash is published at creation; the seed
// itself is withheld until the raffle is drawn. MerkleRoot and ServerSeedHash
// are immutable once the raffle leaves open.
type Raffle struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Period         string             `gorm:"column:period;not null;unique"`
	Status         enums.RaffleStatus `gorm:"column:status;type:raffle_status;not null;default:'open'"`
	MerkleRoot     *string            `gorm:"column:merkle_root"`
	ServerSeed     string             `gorm:"column:server_seed;not null"`
	ServerSeedHash string             `gorm:"column:server_seed_hash;not null"`
	ClientSeed     *string            `gorm:"column:client_seed"`
	ExternalSeed   *string            `gorm:"column:external_seed"`
	WinnerEntryID  *uuid.UUID         `gorm:"column:winner_entry_id;type:uuid"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	DrawAt         *time.Time         `gorm:"column:draw_at"`
}

// RaffleEntry is an immutable candidate row created when a ticket-bearing
// coupon completes. PointID references the completed coupon.
type RaffleEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RaffleID  uuid.UUID `gorm:"column:raffle_id;type:uuid;not null;uniqueIndex:ux_raffle_entries_raffle_point"`
	PointID   uuid.UUID `gorm:"column:point_id;type:uuid;not null;uniqueIndex:ux_raffle_entries_raffle_point"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Tickets   int       `gorm:"column:tickets;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
