// Package commitment builds sorted-pair keccak Merkle trees over entitlement
// records and verifies membership proofs against a committed root.
//
// Leaves are sorted before construction and every pair is hashed as
// keccak256(min ‖ max), so roots do not depend on record order and proofs
// carry no left/right flags. A node without a sibling is promoted unchanged to
// the next level. The layout matches merkletreejs with {sort: true} and
// OpenZeppelin's MerkleProof.verify.
package commitment

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrEmptyTree      = errors.New("commitment: at least one entitlement is required")
	ErrDuplicateIndex = errors.New("commitment: duplicate entitlement index")
	ErrUnknownLeaf    = errors.New("commitment: leaf not in tree")
)

// Tree retains every level so proofs can be extracted offline.
type Tree struct {
	levels [][]common.Hash
}

// New builds a tree from the supplied entitlements. Indices must be unique.
func New(records []Entitlement) (*Tree, error) {
	if len(records) == 0 {
		return nil, ErrEmptyTree
	}
	seen := make(map[uint64]struct{}, len(records))
	leaves := make([]common.Hash, 0, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.Index]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateIndex, rec.Index)
		}
		seen[rec.Index] = struct{}{}
		leaf, err := LeafHash(rec)
		if err != nil {
			return nil, fmt.Errorf("commitment: entitlement %d: %w", rec.Index, err)
		}
		leaves = append(leaves, leaf)
	}
	return FromLeaves(leaves)
}

// FromLeaves builds a tree over precomputed leaf hashes.
func FromLeaves(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	level := append([]common.Hash(nil), leaves...)
	sort.Slice(level, func(i, j int) bool { return bytes.Compare(level[i][:], level[j][:]) < 0 })

	levels := [][]common.Hash{level}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}, nil
}

// BuildRoot returns the commitment root for records.
func BuildRoot(records []Entitlement) (common.Hash, error) {
	tree, err := New(records)
	if err != nil {
		return common.Hash{}, err
	}
	return tree.Root(), nil
}

// Root returns the top-level hash.
func (t *Tree) Root() common.Hash {
	if t == nil || len(t.levels) == 0 {
		return common.Hash{}
	}
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Len reports the number of leaves.
func (t *Tree) Len() int {
	if t == nil || len(t.levels) == 0 {
		return 0
	}
	return len(t.levels[0])
}

// Depth reports the number of levels above the leaves.
func (t *Tree) Depth() int {
	if t == nil || len(t.levels) == 0 {
		return 0
	}
	return len(t.levels) - 1
}

// Leaves returns the sorted leaf hashes.
func (t *Tree) Leaves() []common.Hash {
	if t == nil || len(t.levels) == 0 {
		return nil
	}
	return append([]common.Hash(nil), t.levels[0]...)
}

// Proof returns the sibling path for leaf, bottom-up.
func (t *Tree) Proof(leaf common.Hash) ([]common.Hash, error) {
	if t == nil || len(t.levels) == 0 {
		return nil, ErrUnknownLeaf
	}
	base := t.levels[0]
	pos := sort.Search(len(base), func(i int) bool { return bytes.Compare(base[i][:], leaf[:]) >= 0 })
	if pos == len(base) || base[pos] != leaf {
		return nil, ErrUnknownLeaf
	}
	proof := make([]common.Hash, 0, t.Depth())
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := pos ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		pos /= 2
	}
	return proof, nil
}

// ProofFor returns the sibling path for an entitlement.
func (t *Tree) ProofFor(record Entitlement) ([]common.Hash, error) {
	leaf, err := LeafHash(record)
	if err != nil {
		return nil, err
	}
	return t.Proof(leaf)
}

// Verify reports whether record is committed under root. It never panics
// and returns false for records that cannot be encoded.
func Verify(proof []common.Hash, record Entitlement, root common.Hash) bool {
	leaf, err := LeafHash(record)
	if err != nil {
		return false
	}
	return VerifyLeaf(proof, leaf, root)
}

// VerifyLeaf folds proof over a precomputed leaf hash.
func VerifyLeaf(proof []common.Hash, leaf, root common.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}
