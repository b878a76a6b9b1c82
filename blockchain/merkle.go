// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/wire"
)

// CalcMerkleRoot computes the merkle root committing to the ordered
// transaction ids of the given transactions.
func CalcMerkleRoot(transactions []*wire.MsgTx) (chainhash.Hash, error) {
	leaves := make([]chainhash.Hash, len(transactions))
	for i, tx := range transactions {
		leaves[i] = tx.TxHash()
	}
	return chainhash.MerkleRoot(leaves)
}
