// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"

	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/txscript"
	"github.com/glintchain/glintd/wire"
)

// UtxoEntry holds a transaction output's spendable fields plus the
// bookkeeping needed for maturity checks: it never holds the originating
// outpoint, which the caller already has as the map key. A spent output
// simply has no entry at all, rather than being marked and retained.
type UtxoEntry struct {
	Amount      int64
	PkScript    []byte
	BlockHeight int32
	IsCoinBase  bool
}

// Clone returns an independent copy of e.
func (e *UtxoEntry) Clone() *UtxoEntry {
	if e == nil {
		return nil
	}
	clone := *e
	clone.PkScript = append([]byte(nil), e.PkScript...)
	return &clone
}

// UtxoSource fetches unspent-output entries on demand, backing a
// UtxoViewpoint with whatever persistent store holds the full UTXO set.
type UtxoSource interface {
	FetchUtxoEntry(outpoint wire.OutPoint) (*UtxoEntry, error)
}

// UtxoViewpoint is a working copy of a slice of the UTXO set: entries
// fetched from the underlying source or added by transactions connected
// within this view, with spends removing entries outright, all without
// touching the backing store until the caller commits them.
type UtxoViewpoint struct {
	entries map[wire.OutPoint]*UtxoEntry
	source  UtxoSource
}

// NewUtxoViewpoint returns an empty view backed by source.
func NewUtxoViewpoint(source UtxoSource) *UtxoViewpoint {
	return &UtxoViewpoint{
		entries: make(map[wire.OutPoint]*UtxoEntry),
		source:  source,
	}
}

// cloneForExtension returns a deep copy of view's working set, for a
// caller that wants to speculatively connect further blocks and discard
// the attempt on failure without disturbing view itself.
func (view *UtxoViewpoint) cloneForExtension() *UtxoViewpoint {
	clone := NewUtxoViewpoint(view.source)
	for outpoint, entry := range view.entries {
		clone.entries[outpoint] = entry.Clone()
	}
	return clone
}

// LookupEntry returns the cached entry for outpoint, if any, without
// consulting the backing source.
func (view *UtxoViewpoint) LookupEntry(outpoint wire.OutPoint) *UtxoEntry {
	return view.entries[outpoint]
}

// FetchEntry returns the entry for outpoint, fetching and caching it from
// the backing source on a cache miss. A nil, nil result means the output
// is unknown: never existed, or already spent.
func (view *UtxoViewpoint) FetchEntry(outpoint wire.OutPoint) (*UtxoEntry, error) {
	if entry, ok := view.entries[outpoint]; ok {
		return entry, nil
	}
	if view.source == nil {
		return nil, nil
	}

	entry, err := view.source.FetchUtxoEntry(outpoint)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		view.entries[outpoint] = entry
	}
	return entry, nil
}

// AddTxOuts registers every output of tx, mined at height blockHeight, as
// newly created unspent entries in the view. Unspendable (OP_RETURN)
// outputs are never added, since they can never be the target of a spend.
func (view *UtxoViewpoint) AddTxOuts(tx *wire.MsgTx, blockHeight int32) {
	isCoinBase := tx.IsCoinBase()
	txHash := tx.TxHash()
	for i, txOut := range tx.TxOut {
		if txscript.IsUnspendable(txOut.PkScript) {
			continue
		}
		view.entries[wire.OutPoint{Hash: txHash, Index: uint32(i)}] = &UtxoEntry{
			Amount:      txOut.Value,
			PkScript:    txOut.PkScript,
			BlockHeight: blockHeight,
			IsCoinBase:  isCoinBase,
		}
	}
}

// connectTransaction spends every input's referenced output within view
// and adds tx's own outputs as newly created entries, mirroring what
// connecting tx to a block does to the UTXO set.
func (view *UtxoViewpoint) connectTransaction(tx *wire.MsgTx, blockHeight int32) error {
	if !tx.IsCoinBase() {
		for _, txIn := range tx.TxIn {
			entry, err := view.FetchEntry(txIn.PreviousOutPoint)
			if err != nil {
				return err
			}
			if entry == nil {
				return ruleError(ErrMissingTxOut, "output being spent is not in the utxo view")
			}
			delete(view.entries, txIn.PreviousOutPoint)
		}
	}

	view.AddTxOuts(tx, blockHeight)
	return nil
}

// connectTransactions applies connectTransaction for every transaction in
// block, in order, against view.
func (view *UtxoViewpoint) connectTransactions(block *wire.MsgBlock, height int32) error {
	for _, tx := range block.Transactions {
		if err := view.connectTransaction(tx, height); err != nil {
			return err
		}
	}
	return nil
}

// Entries exposes the view's full working set, for a caller that commits
// the view to persistent storage as a single batch.
func (view *UtxoViewpoint) Entries() map[wire.OutPoint]*UtxoEntry {
	return view.entries
}

// Balance sums the amount of every entry in view's working set whose
// locking script pays addr under netID, the secondary script_pubkey-to-
// address index a caller needs to answer a balance query without walking
// every transaction ever seen.
func (view *UtxoViewpoint) Balance(addr *chainutil.AddressPubKeyHash, netID byte) int64 {
	want := addr.ScriptAddress()

	var total int64
	for _, entry := range view.entries {
		got, ok := txscript.ExtractPkScriptAddr(entry.PkScript, netID)
		if !ok || !bytes.Equal(got.ScriptAddress(), want) {
			continue
		}
		total += entry.Amount
	}
	return total
}
