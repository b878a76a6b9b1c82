// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import "errors"

// ErrEmptyTxList is returned by MerkleRoot when given no transaction
// hashes; only the genesis-special-case caller constructs a tree with one.
var ErrEmptyTxList = errors.New("chainhash: cannot build a merkle tree from an empty hash list")

// ErrDuplicateLeafHazard is returned when a level of the Merkle tree pairs
// two equal adjacent hashes.  Such a level hashes exactly like a shorter
// level whose odd final element is duplicated to pair it off, so two
// distinct transaction lists would share one root — the CVE-2012-2459
// hazard.  Blocks exhibiting this are rejected outright rather than merely
// flagged.
var ErrDuplicateLeafHazard = errors.New("chainhash: merkle tree contains an exploitable duplicate-leaf construction")

// side indicates which side of a pairing a sibling hash sits on.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// MerkleStep is one hop of an inclusion path: the sibling hash to combine
// with the running hash, and which side it sits on.
type MerkleStep struct {
	Sibling Hash
	Side    Side
}

// merkleParent double-hashes the concatenation of two children, exactly as
// specified by §4.1: siblings are hashed together with no extra
// domain-separation byte.
func merkleParent(left, right Hash) Hash {
	var buf [2 * HashSize]byte
	copy(buf[:HashSize], left[:])
	copy(buf[HashSize:], right[:])
	return HashH(buf[:])
}

// BuildMerkleTreeStore builds and returns the full Merkle tree as a flat
// array of levels concatenated bottom-up, the way a caller that also wants
// intermediate levels (e.g. to build an inclusion proof) needs it.  leaves
// must be the ordered transaction ids of the block body.
//
// An empty leaf set is only valid for the synthetic "no transactions yet"
// case and is rejected here — callers must supply at least one leaf.
func BuildMerkleTreeStore(leaves []Hash) ([]Hash, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTxList
	}

	// nextPoT-style array size for a complete binary tree isn't needed
	// since we grow level by level instead of precomputing node count.
	tree := make([]Hash, 0, 2*len(leaves))
	level := make([]Hash, len(leaves))
	copy(level, leaves)
	tree = append(tree, level...)

	for len(level) > 1 {
		// Duplicate-leaf hazard: a pair of equal adjacent hashes gives
		// the same parent as an odd final element duplicated to pair it
		// off, so a longer transaction list could reproduce the root of
		// a distinct shorter one. Detect and reject.
		for i := 0; i+1 < len(level); i += 2 {
			if level[i] == level[i+1] {
				return nil, ErrDuplicateLeafHazard
			}
		}
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		next := make([]Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = merkleParent(level[2*i], level[2*i+1])
		}
		tree = append(tree, next...)
		level = next
	}

	return tree, nil
}

// MerkleRoot computes the Merkle root committing to leaves in order.  A
// single leaf's root is that leaf itself (§4.1 edge case).
func MerkleRoot(leaves []Hash) (Hash, error) {
	tree, err := BuildMerkleTreeStore(leaves)
	if err != nil {
		return Hash{}, err
	}
	return tree[len(tree)-1], nil
}

// MerklePath returns the inclusion path for the leaf at index, as a
// sequence of (sibling, side) steps from the leaf up to the root.
func MerklePath(leaves []Hash, index int) ([]MerkleStep, error) {
	if index < 0 || index >= len(leaves) {
		return nil, errors.New("chainhash: merkle path index out of range")
	}
	if len(leaves) == 0 {
		return nil, ErrEmptyTxList
	}

	level := make([]Hash, len(leaves))
	copy(level, leaves)

	var path []MerkleStep
	idx := index
	for len(level) > 1 {
		for i := 0; i+1 < len(level); i += 2 {
			if level[i] == level[i+1] {
				return nil, ErrDuplicateLeafHazard
			}
		}
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		var sibIdx int
		var side Side
		if idx%2 == 0 {
			sibIdx = idx + 1
			side = SideRight
		} else {
			sibIdx = idx - 1
			side = SideLeft
		}
		path = append(path, MerkleStep{Sibling: level[sibIdx], Side: side})

		next := make([]Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = merkleParent(level[2*i], level[2*i+1])
		}
		level = next
		idx /= 2
	}

	return path, nil
}

// VerifyMerklePath recomputes the root by walking leaf up through path and
// reports whether it matches root.
func VerifyMerklePath(leaf Hash, path []MerkleStep, root Hash) bool {
	cur := leaf
	for _, step := range path {
		if step.Side == SideRight {
			cur = merkleParent(cur, step.Sibling)
		} else {
			cur = merkleParent(step.Sibling, cur)
		}
	}
	return cur == root
}
