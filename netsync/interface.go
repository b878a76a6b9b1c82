// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/mempool"
	"github.com/glintchain/glintd/peer"
	"github.com/glintchain/glintd/wire"
)

// PeerNotifier is implemented by whatever owns the peer set. The sync
// manager calls AnnounceNewTransactions for newly accepted transactions and
// RelayInventory to relay new inventory to every other peer; it does not
// call UpdatePeerHeights or TransactionConfirmed. The node's top-level
// server implements this interface.
type PeerNotifier interface {
	AnnounceNewTransactions(newTxs []*mempool.TxDesc)

	UpdatePeerHeights(latestHash chainhash.Hash, latestHeight int32, updateSource *peer.Peer)

	RelayInventory(iv *wire.InvVect, data interface{})

	TransactionConfirmed(tx *wire.MsgTx)
}

// Config configures a new SyncManager.
type Config struct {
	PeerNotifier PeerNotifier
	Chain        *blockchain.BlockChain
	TxMemPool    *mempool.TxPool
	ChainParams  *chaincfg.Params
	FeeEstimator *mempool.FeeEstimator

	// MaxPeers bounds how many peers the manager will track state for.
	// It does not enforce connection limits itself; that is connmgr's
	// job. Zero selects defaultMaxPeers.
	MaxPeers int
}
