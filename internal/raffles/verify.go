package raffles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/fuelpass/fuelpass-backend/pkg/enums"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
	"github.com/fuelpass/fuelpass-backend/pkg/merkle"
)

// VerificationReport is the result of independently recomputing a draw from
// published data. Checks accumulate instead of short-circuiting so the report
// names every discrepancy at once.
type VerificationReport struct {
	RaffleID            uuid.UUID `json:"raffleId"`
	Valid               bool      `json:"valid"`
	SeedHashMatches     bool      `json:"seedHashMatches"`
	MerkleRootMatches   bool      `json:"merkleRootMatches"`
	WinnerMatches       bool      `json:"winnerMatches"`
	WinnerProofValid    bool      `json:"winnerProofValid"`
	RecomputedRoot      string    `json:"recomputedRoot"`
	RecomputedWinnerIdx int       `json:"recomputedWinnerIndex"`
	Problems            []string  `json:"problems,omitempty"`
}

// Verify recomputes the seed commitment, Merkle root, winner selection and
// the winner's inclusion proof for a drawn raffle.
func (s *service) Verify(ctx context.Context, id uuid.UUID) (*VerificationReport, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "raffle id required")
	}
	raffle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "raffle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load raffle")
	}
	if raffle.Status != enums.RaffleStatusDrawn {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "raffle has not been drawn")
	}

	entries, err := s.repo.ListEntriesOrdered(ctx, raffle.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list raffle entries")
	}

	report := &VerificationReport{RaffleID: raffle.ID, RecomputedWinnerIdx: -1}
	var problems error

	if CommitSeed(raffle.ServerSeed) == raffle.ServerSeedHash {
		report.SeedHashMatches = true
	} else {
		problems = multierr.Append(problems, errors.New("revealed server seed does not match its commitment"))
	}

	tree, err := merkle.New(EntryLeaves(entries))
	if err != nil {
		problems = multierr.Append(problems, errors.New("entry pool is empty"))
	} else {
		report.RecomputedRoot = tree.Root()
		if raffle.MerkleRoot != nil && report.RecomputedRoot == *raffle.MerkleRoot {
			report.MerkleRootMatches = true
		} else {
			problems = multierr.Append(problems, errors.New("recomputed merkle root does not match commitment"))
		}
	}

	clientSeed := ""
	if raffle.ClientSeed != nil {
		clientSeed = *raffle.ClientSeed
	}
	externalSeed := ""
	if raffle.ExternalSeed != nil {
		externalSeed = *raffle.ExternalSeed
	}
	drawSeed := CombineSeeds(raffle.ServerSeed, clientSeed, externalSeed)
	winnerIdx, err := SelectWinner(entries, drawSeed)
	if err != nil {
		problems = multierr.Append(problems, errors.New("winner selection could not be recomputed"))
	} else {
		report.RecomputedWinnerIdx = winnerIdx
		if raffle.WinnerEntryID != nil && entries[winnerIdx].ID == *raffle.WinnerEntryID {
			report.WinnerMatches = true
		} else {
			problems = multierr.Append(problems, errors.New("recomputed winner does not match recorded winner"))
		}

		if tree != nil {
			proof, proofErr := tree.Proof(winnerIdx)
			if proofErr == nil && raffle.MerkleRoot != nil &&
				merkle.VerifyProof(EntryLeaf(entries[winnerIdx]), proof, *raffle.MerkleRoot) {
				report.WinnerProofValid = true
			} else {
				problems = multierr.Append(problems, errors.New("winner inclusion proof failed against committed root"))
			}
		}
	}

	for _, problem := range multierr.Errors(problems) {
		report.Problems = append(report.Problems, problem.Error())
	}
	report.Valid = len(report.Problems) == 0
	return report, nil
}
