// Package merkle builds tamper-evident commitments over ordered data sets.
// The raffle draw commits to its entry pool with a root before any seed is
// revealed, so auditors can rebuild the tree and detect substitution.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrNoLeaves = errors.New("merkle: at least one leaf is required")

// Tree is an immutable binary hash tree over the ordered leaves it was built
// with. Odd nodes at any level are promoted by duplication.
type Tree struct {
	levels [][][]byte
}

// New hashes the leaves in the order given and folds them into a tree.
func New(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}

	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		h := leafHash(leaf)
		level[i] = h
	}

	levels := [][][]byte{level}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, nodeHash(level[i], level[i]))
				continue
			}
			next = append(next, nodeHash(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels: levels}, nil
}

// Root returns the hex-encoded root hash.
func (t *Tree) Root() string {
	top := t.levels[len(t.levels)-1]
	return hex.EncodeToString(top[0])
}

// ProofStep is one sibling hash on the path from a leaf to the root.
type ProofStep struct {
	Hash string `json:"hash"`
	Left bool   `json:"left"`
}

// Proof returns the inclusion proof for the leaf at index.
func (t *Tree) Proof(index int) ([]ProofStep, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, fmt.Errorf("merkle: leaf index %d out of range", index)
	}

	var steps []ProofStep
	for _, level := range t.levels[:len(t.levels)-1] {
		siblingIdx := index ^ 1
		if siblingIdx >= len(level) {
			siblingIdx = index
		}
		steps = append(steps, ProofStep{
			Hash: hex.EncodeToString(level[siblingIdx]),
			Left: siblingIdx < index,
		})
		index /= 2
	}
	return steps, nil
}

// VerifyProof recomputes the path from leaf through the proof and compares the
// result against the expected hex root.
func VerifyProof(leaf []byte, proof []ProofStep, root string) bool {
	current := leafHash(leaf)
	for _, step := range proof {
		sibling, err := hex.DecodeString(step.Hash)
		if err != nil {
			return false
		}
		if step.Left {
			current = nodeHash(sibling, current)
		} else {
			current = nodeHash(current, sibling)
		}
	}
	return hex.EncodeToString(current) == root
}

// Root is a convenience for callers that only need the commitment value.
func Root(leaves [][]byte) (string, error) {
	tree, err := New(leaves)
	if err != nil {
		return "", err
	}
	return tree.Root(), nil
}

// Leaf and interior hashes are domain separated so a forged interior node can
// never be presented as a leaf.
func leafHash(data []byte) []byte {
	h := sha256.New()
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

func nodeHash(left, right []byte) []byte {
	h := sha256.New()
	h.Write([]byte{0x01})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
