// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"testing"
)

// checkGenesis verifies a network's genesis block is internally consistent:
// its declared hash matches its actual double-SHA256, it carries exactly
// one transaction, that transaction is a coinbase, and it pays the fixed
// 50 GLT initial subsidy.
func checkGenesis(t *testing.T, name string, params *Params) {
	t.Helper()

	hash := params.GenesisBlock.BlockHash()
	if !params.GenesisHash.IsEqual(&hash) {
		t.Fatalf("%s: genesis block hash mismatch - got %v, want %v",
			name, hash, params.GenesisHash)
	}

	txs := params.GenesisBlock.Transactions
	if len(txs) != 1 {
		t.Fatalf("%s: genesis block has %d transactions, want 1", name, len(txs))
	}
	if !txs[0].IsCoinBase() {
		t.Fatalf("%s: genesis transaction is not a coinbase", name)
	}
	if len(txs[0].TxOut) != 1 {
		t.Fatalf("%s: genesis coinbase has %d outputs, want 1", name, len(txs[0].TxOut))
	}
	if got, want := txs[0].TxOut[0].Value, int64(50*1e8); got != want {
		t.Fatalf("%s: genesis subsidy = %d, want %d", name, got, want)
	}

	root := txs[0].TxHash()
	if params.GenesisBlock.Header.MerkleRoot != root {
		t.Fatalf("%s: genesis merkle root mismatch - got %v, want %v",
			name, params.GenesisBlock.Header.MerkleRoot, root)
	}
}

func TestGenesisBlock(t *testing.T) {
	checkGenesis(t, "mainnet", &MainNetParams)
}

func TestRegTestGenesisBlock(t *testing.T) {
	checkGenesis(t, "regtest", &RegressionNetParams)
}

func TestTestNet3GenesisBlock(t *testing.T) {
	checkGenesis(t, "testnet3", &TestNet3Params)
}

func TestSimNetGenesisBlock(t *testing.T) {
	checkGenesis(t, "simnet", &SimNetParams)
}
