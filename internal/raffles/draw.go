package raffles

import (
	"errors"
	"math/big"
	"strconv"

	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
)

var (
	errNoEntries     = errors.New("raffle has no entries")
	errNoTicketMass  = errors.New("raffle entries carry no tickets")
	errShortDrawSeed = errors.New("draw seed is empty")
)

// SelectWinner deterministically picks the winning entry from the canonical
// ordering. The seed is read as a big-endian unsigned integer, reduced modulo
// the total ticket weight, and the entries are walked in order until the
// cumulative weight passes the pick. Equal seeds and equal orderings always
// produce the same winner.
func SelectWinner(entries []models.RaffleEntry, drawSeed []byte) (int, error) {
	if len(entries) == 0 {
		return -1, errNoEntries
	}
	if len(drawSeed) == 0 {
		return -1, errShortDrawSeed
	}

	total := big.NewInt(0)
	for _, entry := range entries {
		if entry.Tickets <= 0 {
			continue
		}
		total.Add(total, big.NewInt(int64(entry.Tickets)))
	}
	if total.Sign() == 0 {
		return -1, errNoTicketMass
	}

	pick := new(big.Int).SetBytes(drawSeed)
	pick.Mod(pick, total)

	cumulative := big.NewInt(0)
	for i, entry := range entries {
		if entry.Tickets <= 0 {
			continue
		}
		cumulative.Add(cumulative, big.NewInt(int64(entry.Tickets)))
		if pick.Cmp(cumulative) < 0 {
			return i, nil
		}
	}

	// Unreachable: pick < total and the cumulative sum ends at total.
	return -1, errNoTicketMass
}

// EntryLeaves maps entries in canonical order to their Merkle leaf bytes.
// Leaves commit to the entry identity and its ticket weight so a verifier can
// detect both substitution and weight tampering.
func EntryLeaves(entries []models.RaffleEntry) [][]byte {
	leaves := make([][]byte, len(entries))
	for i, entry := range entries {
		leaves[i] = EntryLeaf(entry)
	}
	return leaves
}

// EntryLeaf serializes one entry for hashing.
func EntryLeaf(entry models.RaffleEntry) []byte {
	buf := make([]byte, 0, 48)
	buf = append(buf, entry.ID.String()...)
	buf = append(buf, '|')
	buf = strconv.AppendInt(buf, int64(entry.Tickets), 10)
	return buf
}
