// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"encoding/binary"

	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/wire"
)

// Namespace prefixes. Every persisted key begins with one of these, so a
// single flat goleveldb instance behaves like the separate buckets a
// bucketed store would use, and util.BytesPrefix iteration stays scoped to
// one kind of record.
var (
	nsHeaders = []byte("headers/")
	nsBlocks  = []byte("blocks/")
	nsUtxo    = []byte("utxo/")
	nsUndo    = []byte("undo/")
	nsMeta    = []byte("meta/")
)

func headerKey(hash chainhash.Hash) []byte {
	return append(append([]byte{}, nsHeaders...), hash[:]...)
}

func blockKey(hash chainhash.Hash) []byte {
	return append(append([]byte{}, nsBlocks...), hash[:]...)
}

// utxoKey encodes an outpoint as txid followed by a big-endian vout, so
// every output of the same transaction sorts together.
func utxoKey(op wire.OutPoint) []byte {
	key := append(append([]byte{}, nsUtxo...), op.Hash[:]...)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], op.Index)
	return append(key, idx[:]...)
}

func undoKey(height int32) []byte {
	key := append([]byte{}, nsUndo...)
	var h [4]byte
	binary.BigEndian.PutUint32(h[:], uint32(height))
	return append(key, h[:]...)
}

func metaKey(name string) []byte {
	return append(append([]byte{}, nsMeta...), []byte(name)...)
}

var (
	metaTip          = metaKey("tip")
	metaFeeEstimator = metaKey("feeestimator")
)
