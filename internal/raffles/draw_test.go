package raffles

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
)

func entryWithTickets(tickets int) models.RaffleEntry {
	return models.RaffleEntry{ID: uuid.New(), Tickets: tickets}
}

func TestSelectWinnerEqualWeights(t *testing.T) {
	t.Parallel()

	entries := []models.RaffleEntry{
		entryWithTickets(1),
		entryWithTickets(1),
		entryWithTickets(1),
	}

	// seed value 4, total tickets 3: pick = 4 mod 3 = 1 -> second entry.
	idx, err := SelectWinner(entries, []byte{0x04})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	// seed value 3: pick = 0 -> first entry.
	idx, err = SelectWinner(entries, []byte{0x03})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	// seed value 5: pick = 2 -> third entry.
	idx, err = SelectWinner(entries, []byte{0x05})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestSelectWinnerWeighted(t *testing.T) {
	t.Parallel()

	entries := []models.RaffleEntry{
		entryWithTickets(5),
		entryWithTickets(2),
		entryWithTickets(3),
	}

	// total = 10; picks 0..4 land in entry 0, 5..6 in entry 1, 7..9 in entry 2.
	for pick, want := range map[byte]int{0: 0, 4: 0, 5: 1, 6: 1, 7: 2, 9: 2} {
		idx, err := SelectWinner(entries, []byte{pick})
		require.NoError(t, err)
		assert.Equal(t, want, idx, "pick %d", pick)
	}
}

func TestSelectWinnerSkipsZeroWeightEntries(t *testing.T) {
	t.Parallel()

	entries := []models.RaffleEntry{
		entryWithTickets(0),
		entryWithTickets(2),
		entryWithTickets(0),
		entryWithTickets(1),
	}

	// total = 3; picks 0 and 1 must land on index 1, pick 2 on index 3.
	idx, err := SelectWinner(entries, []byte{0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = SelectWinner(entries, []byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
}

func TestSelectWinnerIsDeterministic(t *testing.T) {
	t.Parallel()

	entries := []models.RaffleEntry{
		entryWithTickets(7),
		entryWithTickets(11),
		entryWithTickets(13),
	}
	seed := CombineSeeds("server", "client", "external")

	first, err := SelectWinner(entries, seed)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := SelectWinner(entries, seed)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSelectWinnerLargeSeed(t *testing.T) {
	t.Parallel()

	entries := []models.RaffleEntry{
		entryWithTickets(1),
		entryWithTickets(1),
	}

	// 32-byte seeds reduce fine; only the modulus matters.
	seed := CombineSeeds("s", "", "e")
	require.Len(t, seed, 32)
	idx, err := SelectWinner(entries, seed)
	require.NoError(t, err)
	assert.Contains(t, []int{0, 1}, idx)
}

func TestSelectWinnerErrors(t *testing.T) {
	t.Parallel()

	_, err := SelectWinner(nil, []byte{0x01})
	require.ErrorIs(t, err, errNoEntries)

	_, err = SelectWinner([]models.RaffleEntry{entryWithTickets(1)}, nil)
	require.ErrorIs(t, err, errShortDrawSeed)

	_, err = SelectWinner([]models.RaffleEntry{entryWithTickets(0), entryWithTickets(-3)}, []byte{0x01})
	require.ErrorIs(t, err, errNoTicketMass)
}

func TestEntryLeafCommitsToIdentityAndWeight(t *testing.T) {
	t.Parallel()

	entry := models.RaffleEntry{ID: uuid.MustParse("0a68d69e-91cc-4c19-8c2e-1a30cb1b1a2f"), Tickets: 42}
	assert.Equal(t, "0a68d69e-91cc-4c19-8c2e-1a30cb1b1a2f|42", string(EntryLeaf(entry)))

	// Changing the weight must change the leaf.
	entry.Tickets = 43
	assert.Equal(t, "0a68d69e-91cc-4c19-8c2e-1a30cb1b1a2f|43", string(EntryLeaf(entry)))
}

func TestEntryLeavesPreserveOrder(t *testing.T) {
	t.Parallel()

	entries := []models.RaffleEntry{
		entryWithTickets(1),
		entryWithTickets(2),
	}
	leaves := EntryLeaves(entries)
	require.Len(t, leaves, 2)
	assert.Equal(t, string(EntryLeaf(entries[0])), string(leaves[0]))
	assert.Equal(t, string(EntryLeaf(entries[1])), string(leaves[1]))
}
