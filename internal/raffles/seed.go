package raffles

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const minSeedBytes = 16

// NewServerSeed draws n random bytes and returns the hex seed alongside its
// sha256 commitment. The hash is published when the raffle opens; the seed
// stays server-side until the draw.
func NewServerSeed(n int) (seed, hash string, err error) {
	if n < minSeedBytes {
		n = minSeedBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("reading seed entropy: %w", err)
	}
	seed = hex.EncodeToString(buf)
	return seed, CommitSeed(seed), nil
}

// CommitSeed returns the hex sha256 commitment for a seed value.
func CommitSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// CombineSeeds folds the revealed server seed, the optional client seed and
// the external beacon value into the draw seed. Verifiers recompute this from
// published values alone.
func CombineSeeds(serverSeed, clientSeed, externalSeed string) []byte {
	h := sha256.New()
	h.Write([]byte(serverSeed))
	h.Write([]byte(clientSeed))
	h.Write([]byte(externalSeed))
	return h.Sum(nil)
}
