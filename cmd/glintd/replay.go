// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/store"
	"github.com/glintchain/glintd/wire"
)

// loadChainFromStore rebuilds chain's in-memory state (headers, bodies,
// and the UTXO set blockchain.New seeded at genesis) by replaying every
// block the store has persisted, oldest first.
//
// The store indexes blocks by their own hash, not by height, so there is
// no direct "list blocks in order" query; this walks backward from the
// persisted tip via each block's PrevBlock link to collect the chain,
// then replays it forward through the same ProcessBlock path a peer's
// relayed block takes.
func loadChainFromStore(chain *blockchain.BlockChain, db *store.Store, params *chaincfg.Params) error {
	tipHash, tipHeight, err := db.Tip()
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if tipHeight == 0 {
		return nil
	}

	genesisHash := params.GenesisBlock.Header.BlockHash()

	var blocks []*wire.MsgBlock
	hash := tipHash
	for hash != genesisHash {
		block, err := db.GetBlock(hash)
		if err != nil {
			return fmt.Errorf("loading persisted block %s: %w", hash, err)
		}
		blocks = append(blocks, block)
		hash = block.Header.PrevBlock
	}

	for i := len(blocks) - 1; i >= 0; i-- {
		block := blocks[i]
		if _, err := chain.ProcessBlock(block); err != nil {
			return fmt.Errorf("replaying persisted block %s: %w", block.BlockHash(), err)
		}
	}

	return nil
}
