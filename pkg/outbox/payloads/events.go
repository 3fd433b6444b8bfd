package payloads

import (
	"time"

	"github.com/google/uuid"
)

// CouponActivatedEvent is emitted when a customer activates a scanned coupon.
type CouponActivatedEvent struct {
	CouponID    uuid.UUID `json:"couponId"`
	UserID      uuid.UUID `json:"userId"`
	StationID   uuid.UUID `json:"stationId"`
	BaseTickets int       `json:"baseTickets"`
	ActivatedAt time.Time `json:"activatedAt"`
}

// CouponCompletedEvent carries the final ticket count once a coupon completes.
// The raffle entry aggregator consumes this event.
type CouponCompletedEvent struct {
	CouponID     uuid.UUID `json:"couponId"`
	UserID       uuid.UUID `json:"userId"`
	StationID    uuid.UUID `json:"stationId"`
	TotalTickets int       `json:"totalTickets"`
	Period       string    `json:"period"`
	CompletedAt  time.Time `json:"completedAt"`
}

// RaffleDrawnEvent announces a finished draw so downstream systems can notify
// the winner and publish verification data.
type RaffleDrawnEvent struct {
	RaffleID      uuid.UUID `json:"raffleId"`
	Period        string    `json:"period"`
	WinnerEntryID uuid.UUID `json:"winnerEntryId"`
	WinnerUserID  uuid.UUID `json:"winnerUserId"`
	MerkleRoot    string    `json:"merkleRoot"`
	DrawnAt       time.Time `json:"drawnAt"`
}
