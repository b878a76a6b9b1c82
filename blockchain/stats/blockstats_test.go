// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stats

import (
	"testing"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/wire"
)

func coinbase(value int64) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0xffffffff), []byte{0x00, 0x00}))
	tx.AddTxOut(wire.NewTxOut(value, []byte{0x51}))
	return tx
}

func spendingTx(inputValue, outputValue int64) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), []byte{0x01, 0x02}))
	tx.AddTxOut(wire.NewTxOut(outputValue, []byte{0x51}))
	return tx
}

func TestComputeBlockStatsFeesAndSizes(t *testing.T) {
	cb := coinbase(50 * 1e8)
	tx1 := spendingTx(10*1e8, 9*1e8)
	tx2 := spendingTx(20*1e8, 19*1e8)

	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{cb, tx1, tx2}}
	spent := []*blockchain.UtxoEntry{
		{Amount: 10 * 1e8, PkScript: []byte{0x51}},
		{Amount: 20 * 1e8, PkScript: []byte{0x51}},
	}

	bs, err := ComputeBlockStats(block, spent)
	if err != nil {
		t.Fatalf("ComputeBlockStats: %v", err)
	}

	wantFees := int64(1e8 + 1e8)
	if bs.TotalFees != wantFees {
		t.Errorf("TotalFees: got %d, want %d", bs.TotalFees, wantFees)
	}
	if bs.NonCoinbaseCount != 2 {
		t.Errorf("NonCoinbaseCount: got %d, want 2", bs.NonCoinbaseCount)
	}
	if bs.TxCount != 3 {
		t.Errorf("TxCount: got %d, want 3", bs.TxCount)
	}
	if bs.MinFee != 1e8 || bs.MaxFee != 1e8 {
		t.Errorf("Min/MaxFee: got %d/%d, want 1e8/1e8", bs.MinFee, bs.MaxFee)
	}
	if avg := bs.AverageFee(); avg != 1e8 {
		t.Errorf("AverageFee: got %d, want 1e8", avg)
	}
}

func TestComputeBlockStatsMismatchedSpentList(t *testing.T) {
	cb := coinbase(50 * 1e8)
	tx1 := spendingTx(10*1e8, 9*1e8)
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{cb, tx1}}

	if _, err := ComputeBlockStats(block, nil); err == nil {
		t.Fatal("expected an error when the spent-output list is too short")
	}
}
