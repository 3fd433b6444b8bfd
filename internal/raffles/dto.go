package raffles

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
	"github.com/fuelpass/fuelpass-backend/pkg/merkle"
)

// CreateInput opens a raffle for a period.
type CreateInput struct {
	Period string
}

// CloseInput freezes the entry pool and commits to it.
type CloseInput struct {
	RaffleID   uuid.UUID
	ClientSeed *string
}

// DrawInput executes the draw. The external seed comes from a public beacon
// published after the raffle closed.
type DrawInput struct {
	RaffleID     uuid.UUID
	ExternalSeed string
	Prize        *decimal.Decimal
}

// RaffleDTO is the API-facing raffle projection. ServerSeed is only populated
// once the raffle is drawn; before that only the commitment hash leaves the
// server.
type RaffleDTO struct {
	ID             uuid.UUID          `json:"id"`
	Period         string             `json:"period"`
	Status         enums.RaffleStatus `json:"status"`
	ServerSeedHash string             `json:"serverSeedHash"`
	ServerSeed     string             `json:"serverSeed,omitempty"`
	ClientSeed     *string            `json:"clientSeed,omitempty"`
	ExternalSeed   *string            `json:"externalSeed,omitempty"`
	MerkleRoot     *string            `json:"merkleRoot,omitempty"`
	WinnerEntryID  *uuid.UUID         `json:"winnerEntryId,omitempty"`
	EntryCount     int64              `json:"entryCount"`
	CreatedAt      time.Time          `json:"createdAt"`
	DrawAt         *time.Time         `json:"drawAt,omitempty"`
}

// EntryDTO is one candidate in the published entry list.
type EntryDTO struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"userId"`
	Tickets int       `json:"tickets"`
}

// WinnerDTO describes the drawn winner.
type WinnerDTO struct {
	EntryID        uuid.UUID       `json:"entryId"`
	UserID         uuid.UUID       `json:"userId"`
	WinningPointID uuid.UUID       `json:"winningPointId"`
	Prize          decimal.Decimal `json:"prize"`
	AwardedAt      time.Time       `json:"awardedAt"`
}

// VerificationDTO is everything an auditor needs to recompute the draw:
// the revealed seeds, the combined seed actually used, the committed root,
// the ordered entry list and the winner's inclusion proof.
type VerificationDTO struct {
	RaffleID          uuid.UUID          `json:"raffleId"`
	Period            string             `json:"period"`
	ServerSeed        string             `json:"serverSeed"`
	ServerSeedHash    string             `json:"serverSeedHash"`
	ClientSeed        string             `json:"clientSeed"`
	ExternalSeed      string             `json:"externalSeed"`
	FinalCombinedSeed string             `json:"finalCombinedSeed"`
	MerkleRoot        string             `json:"merkleRoot"`
	Entries           []EntryDTO         `json:"entries"`
	WinnerIndex       int                `json:"winnerIndex"`
	Winner            WinnerDTO          `json:"winner"`
	WinnerProof       []merkle.ProofStep `json:"winnerProof"`
}

func toDTO(r *models.Raffle, entryCount int64) *RaffleDTO {
	if r == nil {
		return nil
	}
	dto := &RaffleDTO{
		ID:             r.ID,
		Period:         r.Period,
		Status:         r.Status,
		ServerSeedHash: r.ServerSeedHash,
		ClientSeed:     r.ClientSeed,
		ExternalSeed:   r.ExternalSeed,
		MerkleRoot:     r.MerkleRoot,
		WinnerEntryID:  r.WinnerEntryID,
		EntryCount:     entryCount,
		CreatedAt:      r.CreatedAt,
		DrawAt:         r.DrawAt,
	}
	if r.Status == enums.RaffleStatusDrawn {
		dto.ServerSeed = r.ServerSeed
	}
	return dto
}

func toEntryDTOs(entries []models.RaffleEntry) []EntryDTO {
	out := make([]EntryDTO, len(entries))
	for i, entry := range entries {
		out[i] = EntryDTO{ID: entry.ID, UserID: entry.UserID, Tickets: entry.Tickets}
	}
	return out
}
