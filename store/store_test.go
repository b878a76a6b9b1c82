// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"testing"
	"time"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/mempool"
	"github.com/glintchain/glintd/wire"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func sampleBlock(t *testing.T) *wire.MsgBlock {
	t.Helper()
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, blockchain.CoinbasePrevOutIndex), []byte{0x51}))
	tx.AddTxOut(wire.NewTxOut(5_000_000_000, []byte{0x51}))

	root, err := blockchain.CalcMerkleRoot([]*wire.MsgTx{tx})
	require.NoError(t, err)

	return &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  chainhash.Hash{1, 2, 3},
			MerkleRoot: root,
			Timestamp:  time.Unix(1700000000, 0),
			Bits:       0x1d00ffff,
			Nonce:      42,
		},
		Transactions: []*wire.MsgTx{tx},
	}
}

// TestHeaderAndBlockRoundTrip persists a header and a full block body and
// reads each back unchanged.
func TestHeaderAndBlockRoundTrip(t *testing.T) {
	s := openTestStore(t)
	block := sampleBlock(t)

	require.NoError(t, s.PutHeader(&block.Header))
	require.NoError(t, s.PutBlock(block))

	hash := block.BlockHash()

	gotHeader, err := s.GetHeader(hash)
	require.NoError(t, err)
	require.Equal(t, hash, gotHeader.BlockHash())

	gotBlock, err := s.GetBlock(hash)
	require.NoError(t, err)
	require.Equal(t, hash, gotBlock.BlockHash())
	require.Len(t, gotBlock.Transactions, 1)

	has, err := s.HasBlock(hash)
	require.NoError(t, err)
	require.True(t, has)

	_, err = s.GetBlock(chainhash.Hash{9, 9, 9})
	require.ErrorIs(t, err, ErrNotFound)
}

// TestUTXORoundTripAndDelete exercises PutUTXO/GetUTXO/DeleteUTXO and the
// blockchain.UtxoSource contract FetchUtxoEntry must satisfy: nil, nil for
// an output that was never there or has since been spent.
func TestUTXORoundTripAndDelete(t *testing.T) {
	s := openTestStore(t)

	op := wire.OutPoint{Hash: chainhash.Hash{4, 5, 6}, Index: 1}
	entry := &blockchain.UtxoEntry{
		Amount:      123456,
		PkScript:    []byte{0x51, 0x52},
		BlockHeight: 10,
		IsCoinBase:  true,
	}

	require.NoError(t, s.PutUTXO(op, entry))

	got, err := s.FetchUtxoEntry(op)
	require.NoError(t, err)
	require.Equal(t, entry, got)

	require.NoError(t, s.DeleteUTXO(op))
	got, err = s.FetchUtxoEntry(op)
	require.NoError(t, err)
	require.Nil(t, got)

	unknown := wire.OutPoint{Hash: chainhash.Hash{7, 7, 7}, Index: 0}
	got, err = s.FetchUtxoEntry(unknown)
	require.NoError(t, err)
	require.Nil(t, got)
}

// TestCommitBlockIsAtomic checks that a single CommitBlock call lands the
// header, body, undo record, UTXO delta, and tip pointer together.
func TestCommitBlockIsAtomic(t *testing.T) {
	s := openTestStore(t)
	block := sampleBlock(t)
	hash := block.BlockHash()

	spentOp := wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}
	spentEntry := &blockchain.UtxoEntry{Amount: 1000, PkScript: []byte{0x51}, BlockHeight: 1}
	require.NoError(t, s.PutUTXO(spentOp, spentEntry))

	createdOp := wire.OutPoint{Hash: block.Transactions[0].TxHash(), Index: 0}
	createdEntry := &blockchain.UtxoEntry{
		Amount:      block.Transactions[0].TxOut[0].Value,
		PkScript:    block.Transactions[0].TxOut[0].PkScript,
		BlockHeight: 5,
		IsCoinBase:  true,
	}

	undo := &UndoRecord{SpentOutputs: map[wire.OutPoint]*blockchain.UtxoEntry{spentOp: spentEntry}}

	err := s.CommitBlock(
		block, 5, undo,
		map[wire.OutPoint]struct{}{spentOp: {}},
		map[wire.OutPoint]*blockchain.UtxoEntry{createdOp: createdEntry},
	)
	require.NoError(t, err)

	has, err := s.HasBlock(hash)
	require.NoError(t, err)
	require.True(t, has)

	gotUndo, err := s.GetUndo(5)
	require.NoError(t, err)
	require.Equal(t, spentEntry, gotUndo.SpentOutputs[spentOp])

	spentNow, err := s.FetchUtxoEntry(spentOp)
	require.NoError(t, err)
	require.Nil(t, spentNow)

	createdNow, err := s.FetchUtxoEntry(createdOp)
	require.NoError(t, err)
	require.Equal(t, createdEntry, createdNow)

	tipHash, tipHeight, err := s.Tip()
	require.NoError(t, err)
	require.Equal(t, hash, tipHash)
	require.Equal(t, int32(5), tipHeight)
}

// TestTipNotFoundBeforeAnyCommit checks Tip's ErrNotFound contract on a
// fresh database.
func TestTipNotFoundBeforeAnyCommit(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.Tip()
	require.ErrorIs(t, err, ErrNotFound)
}

// TestFeeEstimatorRoundTrip checks a fee estimator's observations survive
// Save/persist/Load intact.
func TestFeeEstimatorRoundTrip(t *testing.T) {
	s := openTestStore(t)

	ef := mempool.NewFeeEstimator(100, 1)
	ef.ObserveTransaction(&mempool.TxDesc{
		Tx:     &wire.MsgTx{},
		Height: 1,
		Fee:    5000,
	})

	require.NoError(t, s.SaveFeeEstimator(ef))

	restored, err := s.LoadFeeEstimator()
	require.NoError(t, err)
	require.NotNil(t, restored)
}
