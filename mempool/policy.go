// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/txscript"
	"github.com/glintchain/glintd/wire"
)

const (
	// maxStandardTxSize bounds a transaction accepted into the pool,
	// stricter than wire.MaxTxSize so a handful of huge-but-legal
	// transactions can't monopolize block space.
	maxStandardTxSize = 100000

	// maxStandardSigScriptSize bounds a single input's unlocking script.
	// A P2PKH spend's scriptSig (signature + pubkey pushes) is well under
	// this; anything larger is almost certainly not a simple spend.
	maxStandardSigScriptSize = 1650

	// dustRelayFeeMultiplier sets the "dust" rule: an output is dust when
	// its value is below this multiple of the fee, at the minimum relay
	// fee rate, for its own bytes plus those of a typical spending input.
	dustRelayFeeMultiplier = 3
)

// DefaultMinRelayTxFee is the minimum fee rate, in glits per 1000 bytes, a
// transaction must pay to be relayed or considered for mining by a node
// using the default policy.
const DefaultMinRelayTxFee = chainutil.Amount(1000)

// DefaultMaxMempoolBytes is the aggregate serialized size, in bytes, the
// pool will hold before evicting its lowest fee-rate transactions.
const DefaultMaxMempoolBytes = 300 * 1024 * 1024

// Policy houses the mempool acceptance policy a TxPool enforces beyond the
// consensus rules that every block must also satisfy.
type Policy struct {
	// MaxTxVersion is the highest transaction version accepted.
	MaxTxVersion int32

	// MaxOrphanTxs is the maximum number of orphan transactions the pool
	// will hold at once.
	MaxOrphanTxs int

	// MaxOrphanTxSize bounds a single orphan transaction's serialized
	// size.
	MaxOrphanTxSize int

	// MinRelayTxFee is the minimum fee rate required to accept a
	// transaction that pays less than a full fee increment.
	MinRelayTxFee chainutil.Amount

	// MaxMempoolBytes bounds the pool's aggregate serialized size.
	// Once exceeded, the lowest fee-rate transactions are evicted until
	// the pool is back under the limit.
	MaxMempoolBytes int
}

// DefaultPolicy returns a Policy with the node's default mempool
// acceptance parameters.
func DefaultPolicy() Policy {
	return Policy{
		MaxTxVersion:    1,
		MaxOrphanTxs:    100,
		MaxOrphanTxSize: maxStandardTxSize,
		MinRelayTxFee:   DefaultMinRelayTxFee,
		MaxMempoolBytes: DefaultMaxMempoolBytes,
	}
}

// isDust reports whether txOut carries a value so small that spending it
// later would cost more in fees than the output itself is worth, at the
// given relay fee rate.
func isDust(txOut *wire.TxOut, minRelayTxFee chainutil.Amount) bool {
	if txscript.IsUnspendable(txOut.PkScript) {
		return false
	}

	// A spending input referencing a P2PKH output costs roughly
	// outpoint(36) + sequence(4) + a ~107-byte sigScript(sig+pubkey) on
	// the wire; approximate every output the same way regardless of its
	// actual script form.
	totalSize := txOut.SerializeSize() + 36 + 4 + 107

	byteFee := int64(minRelayTxFee) * int64(totalSize) / 1000
	return txOut.Value < dustRelayFeeMultiplier*byteFee
}

// checkTransactionStandard applies the non-consensus standardness rules: a
// bounded transaction version and size, every input's unlocking script
// within the standard size bound, and no dust outputs.
func checkTransactionStandard(tx *wire.MsgTx, policy *Policy) error {
	if tx.Version > policy.MaxTxVersion || tx.Version < 1 {
		return txRuleErrorf(ErrNonStandard,
			"transaction version %d is not in the valid range of %d-%d",
			tx.Version, 1, policy.MaxTxVersion)
	}

	if sz := tx.SerializeSize(); sz > maxStandardTxSize {
		return txRuleErrorf(ErrNonStandard,
			"transaction size of %d bytes exceeds the maximum standard size of %d bytes",
			sz, maxStandardTxSize)
	}

	for i, txIn := range tx.TxIn {
		if len(txIn.SignatureScript) > maxStandardSigScriptSize {
			return txRuleErrorf(ErrNonStandard,
				"transaction input %d: signature script size of %d bytes exceeds the maximum standard size of %d bytes",
				i, len(txIn.SignatureScript), maxStandardSigScriptSize)
		}
	}

	for i, txOut := range tx.TxOut {
		if isDust(txOut, policy.MinRelayTxFee) {
			return txRuleErrorf(ErrDustOutput,
				"transaction output %d: payment of %d is dust", i, txOut.Value)
		}
	}

	return nil
}

// calcMinRequiredTxRelayFee returns the minimum fee, in glits, a
// serializedSize-byte transaction must pay at the given per-1000-byte
// relay fee rate: minRelayTxFee*serializedSize/1000, truncated, and raised
// to minRelayTxFee when that truncates to zero at a positive rate.
func calcMinRequiredTxRelayFee(serializedSize int64, minRelayTxFee chainutil.Amount) int64 {
	fee := int64(minRelayTxFee) * serializedSize / 1000
	if fee == 0 && minRelayTxFee > 0 {
		fee = int64(minRelayTxFee)
	}
	if fee < 0 || fee > chainutil.MaxGlit {
		fee = chainutil.MaxGlit
	}
	return fee
}
