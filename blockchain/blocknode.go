// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/wire"
)

// blockNode is a node in the in-memory block index tree: one per known
// header, whether or not it is on the current best chain. Its fields are
// copied out of the header rather than holding a pointer to the header
// itself, so the full block body can be discarded from memory once
// connected while the index entry remains.
type blockNode struct {
	parent *blockNode

	hash   chainhash.Hash
	height int32

	version    int32
	bits       uint32
	nonce      uint32
	timestamp  time.Time
	merkleRoot chainhash.Hash

	// workSum is the total work from genesis to this node, inclusive.
	workSum *big.Int
}

// newBlockNode returns a blockNode populated from header's fields, linked
// to parent (nil only for genesis).
func newBlockNode(header *wire.BlockHeader, parent *blockNode) *blockNode {
	node := &blockNode{
		parent:     parent,
		hash:       header.BlockHash(),
		version:    header.Version,
		bits:       header.Bits,
		nonce:      header.Nonce,
		timestamp:  header.Timestamp,
		merkleRoot: header.MerkleRoot,
	}
	if parent != nil {
		node.height = parent.height + 1
		node.workSum = new(big.Int).Add(parent.workSum, CalcWork(header.Bits))
	} else {
		node.workSum = CalcWork(header.Bits)
	}
	return node
}

// Header reconstructs the wire block header this node describes.
func (n *blockNode) Header() wire.BlockHeader {
	var prevHash chainhash.Hash
	if n.parent != nil {
		prevHash = n.parent.hash
	}
	return wire.BlockHeader{
		Version:    n.version,
		PrevBlock:  prevHash,
		MerkleRoot: n.merkleRoot,
		Timestamp:  n.timestamp,
		Bits:       n.bits,
		Nonce:      n.nonce,
	}
}

// RelativeAncestor returns the ancestor distance blocks before n, or nil if
// distance is negative or exceeds n's height.
func (n *blockNode) RelativeAncestor(distance int32) *blockNode {
	if distance < 0 || distance > n.height {
		return nil
	}

	node := n
	for i := int32(0); i < distance && node != nil; i++ {
		node = node.parent
	}
	return node
}

// Ancestor returns the ancestor of n at the given height, or nil if height
// is outside [0, n.height].
func (n *blockNode) Ancestor(height int32) *blockNode {
	if height < 0 || height > n.height {
		return nil
	}
	return n.RelativeAncestor(n.height - height)
}
