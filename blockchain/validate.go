// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/txscript"
	"github.com/glintchain/glintd/wire"
)

// minCoinbaseScriptLen and MaxCoinbaseScriptLen bound a coinbase input's
// signature script, which carries no signature at all but does carry the
// block height and, conventionally, miner-chosen extra nonce bytes.
// MaxCoinbaseScriptLen is exported for the mining package, which must stay
// under it when assembling a coinbase's height and extranonce pushes.
const (
	minCoinbaseScriptLen = 2
	MaxCoinbaseScriptLen = 100
)

// CoinbasePrevOutIndex is the sentinel previous-output index a coinbase
// input's (ignored) outpoint carries.
const CoinbasePrevOutIndex = 0xffffffff
const coinbasePrevOutIndex = CoinbasePrevOutIndex

// baseSubsidy is the block reward paid to the genesis-era miner, before any
// halving: 50 GLT.
const baseSubsidy = 50 * chainutil.GlitPerGlint

// MaxBlockSize is the maximum serialized size, in bytes, a block's
// consensus rules allow. Distinct from (and tighter than)
// wire.MaxBlockPayload, which bounds what a peer may claim to be sending
// over the wire before a block message is even parsed.
const MaxBlockSize = 1000000

// IsCoinBaseTx reports whether tx is a coinbase transaction.
func IsCoinBaseTx(tx *wire.MsgTx) bool {
	return tx.IsCoinBase()
}

// CalcBlockSubsidy returns the block subsidy for a block at the given
// height under params' halving schedule: the subsidy starts at 50 GLT and
// halves every SubsidyReductionInterval blocks, reaching zero once it has
// halved 64 times.
func CalcBlockSubsidy(height int32, params *chaincfg.Params) int64 {
	if params.SubsidyReductionInterval <= 0 {
		return baseSubsidy
	}
	halvings := uint(height) / uint(params.SubsidyReductionInterval)
	if halvings >= 64 {
		return 0
	}
	return baseSubsidy >> halvings
}

// CheckTransactionSanity performs context-free checks on tx that do not
// require chain state: well-formed input/output lists, no oversized
// serialization, no negative or overflowing output amounts, and no
// duplicate inputs.
func CheckTransactionSanity(tx *wire.MsgTx) error {
	if len(tx.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}
	if len(tx.TxOut) == 0 {
		return ruleError(ErrNoTxOutputs, "transaction has no outputs")
	}

	if tx.SerializeSize() > wire.MaxTxSize {
		return ruleError(ErrTxTooBig, "serialized transaction exceeds the maximum allowed size")
	}

	var totalOut int64
	for _, txOut := range tx.TxOut {
		if txOut.Value < 0 {
			return ruleError(ErrBadTxOutValue, "transaction output has negative value")
		}
		if txOut.Value > chainutil.MaxGlit {
			return ruleError(ErrBadTxOutValue, "transaction output value exceeds max allowed")
		}
		totalOut += txOut.Value
		if totalOut > chainutil.MaxGlit {
			return ruleError(ErrBadTxOutValue, "total transaction output value exceeds max allowed")
		}
	}

	seen := make(map[wire.OutPoint]struct{}, len(tx.TxIn))
	for _, txIn := range tx.TxIn {
		if _, ok := seen[txIn.PreviousOutPoint]; ok {
			return ruleError(ErrDuplicateTxInputs, "transaction spends the same output more than once")
		}
		seen[txIn.PreviousOutPoint] = struct{}{}
	}

	if IsCoinBaseTx(tx) {
		scriptLen := len(tx.TxIn[0].SignatureScript)
		if scriptLen < minCoinbaseScriptLen || scriptLen > MaxCoinbaseScriptLen {
			return ruleError(ErrBadCoinbaseScriptLen,
				"coinbase signature script does not satisfy the length constraints")
		}
	} else {
		for _, txIn := range tx.TxIn {
			if txIn.PreviousOutPoint.Index == coinbasePrevOutIndex {
				return ruleError(ErrBadTxInput, "transaction input refers to a null previous outpoint")
			}
		}
	}

	return nil
}

// CheckHeaderSanity performs the context-free checks on a bare header that
// do not require a transaction list: proof of work satisfies the claimed
// difficulty bits, and the timestamp is not absurdly far in the future. It
// is the subset of CheckBlockSanity a sync manager can apply to a headers
// message before any block body has been fetched.
func CheckHeaderSanity(header *wire.BlockHeader, powLimit *big.Int, maxFutureBlockTime time.Duration, now time.Time) error {
	if err := checkProofOfWork(header, powLimit); err != nil {
		return err
	}

	if header.Timestamp.After(now.Add(maxFutureBlockTime)) {
		return ruleError(ErrTimeTooNew, "block timestamp is too far in the future")
	}

	return nil
}

// CheckBlockSanity performs context-free checks on block that do not
// require chain state: proof of work satisfies the claimed difficulty
// bits, the timestamp is not absurdly far in the future, the transaction
// list starts with exactly one coinbase and no other transaction is a
// coinbase, the merkle root commitment matches, and every individual
// transaction passes CheckTransactionSanity.
func CheckBlockSanity(block *wire.MsgBlock, powLimit *big.Int, maxFutureBlockTime time.Duration, now time.Time) error {
	header := &block.Header

	if err := CheckHeaderSanity(header, powLimit, maxFutureBlockTime, now); err != nil {
		return err
	}

	if len(block.Transactions) == 0 {
		return ruleError(ErrNoTransactions, "block has no transactions")
	}

	if block.SerializeSize() > MaxBlockSize {
		return ruleError(ErrTxTooBig, "serialized block exceeds the maximum allowed size")
	}

	if !IsCoinBaseTx(block.Transactions[0]) {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in block is not a coinbase")
	}
	for _, tx := range block.Transactions[1:] {
		if IsCoinBaseTx(tx) {
			return ruleError(ErrMultipleCoinbases, "block contains a second coinbase transaction")
		}
	}

	for _, tx := range block.Transactions {
		if err := CheckTransactionSanity(tx); err != nil {
			return err
		}
	}

	calcRoot, err := CalcMerkleRoot(block.Transactions)
	if err != nil {
		return ruleError(ErrBadMerkleRoot, err.Error())
	}
	if calcRoot != header.MerkleRoot {
		return ruleError(ErrBadMerkleRoot, "merkle root does not match computed value")
	}

	return nil
}

// checkProofOfWork verifies header's hash satisfies the target implied by
// its Bits field, and that Bits itself stays within powLimit.
func checkProofOfWork(header *wire.BlockHeader, powLimit *big.Int) error {
	target := CompactToBig(header.Bits)

	if target.Sign() <= 0 {
		return ruleError(ErrHighHash, "block target difficulty is non-positive")
	}
	if target.Cmp(powLimit) > 0 {
		return ruleError(ErrBadPowLimit, "block target difficulty exceeds the network proof-of-work limit")
	}

	hash := header.BlockHash()
	hashNum := HashToBig(&hash)
	if hashNum.Cmp(target) > 0 {
		return ruleError(ErrHighHash, "block hash does not satisfy the claimed proof-of-work target")
	}

	return nil
}

// CheckConnectBlock validates block's transactions against view (the UTXO
// state just before block), verifying: every non-coinbase input refers to
// an existing, unspent, mature output; no output set is double spent
// within the block; every input's unlocking script satisfies its
// referenced locking script; and the coinbase claims no more than the
// subsidy plus collected fees. On success it mutates view to reflect
// block's effect on the UTXO set.
func CheckConnectBlock(block *wire.MsgBlock, height int32, view *UtxoViewpoint, params *chaincfg.Params) error {
	var totalFees int64

	for i, tx := range block.Transactions {
		if i == 0 {
			if err := view.connectTransaction(tx, height); err != nil {
				return err
			}
			continue
		}

		fee, err := checkTransactionInputs(tx, height, view, params)
		if err != nil {
			return err
		}
		totalFees += fee

		if err := verifyTransactionScripts(tx, view); err != nil {
			return err
		}

		if err := view.connectTransaction(tx, height); err != nil {
			return err
		}
	}

	expectedSubsidy := CalcBlockSubsidy(height, params)
	var coinbaseOut int64
	for _, txOut := range block.Transactions[0].TxOut {
		coinbaseOut += txOut.Value
	}
	if coinbaseOut > expectedSubsidy+totalFees {
		return ruleError(ErrBadFees, "coinbase pays more than the allowed subsidy plus fees")
	}

	return nil
}

// checkTransactionInputs verifies tx's inputs against view (without yet
// applying them) and returns the transaction fee (sum of inputs minus sum
// of outputs). It enforces: every input exists and is unspent, coinbase
// outputs have matured, and outputs don't exceed inputs.
func checkTransactionInputs(tx *wire.MsgTx, height int32, view *UtxoViewpoint, params *chaincfg.Params) (int64, error) {
	var totalIn int64
	for _, txIn := range tx.TxIn {
		entry, err := view.FetchEntry(txIn.PreviousOutPoint)
		if err != nil {
			return 0, err
		}
		if entry == nil {
			return 0, ruleError(ErrMissingTxOut,
				"transaction spends an output that does not exist or is already spent")
		}

		if entry.IsCoinBase {
			blocksSinceMined := height - entry.BlockHeight
			if blocksSinceMined < int32(params.CoinbaseMaturity) {
				return 0, ruleError(ErrImmatureSpend,
					"transaction attempts to spend a coinbase output before it has matured")
			}
		}

		totalIn += entry.Amount
	}

	var totalOut int64
	for _, txOut := range tx.TxOut {
		totalOut += txOut.Value
	}

	if totalIn < totalOut {
		return 0, ruleError(ErrSpendTooHigh, "transaction outputs exceed inputs")
	}

	return totalIn - totalOut, nil
}

// verifyTransactionScripts checks every input's unlocking script against
// its referenced output's locking script, using the simplified legacy
// sighash scheme.
func verifyTransactionScripts(tx *wire.MsgTx, view *UtxoViewpoint) error {
	for i, txIn := range tx.TxIn {
		entry := view.LookupEntry(txIn.PreviousOutPoint)
		if entry == nil {
			return ruleError(ErrMissingTxOut, "transaction spends an output not present in the utxo view")
		}

		if txscript.IsUnspendable(entry.PkScript) {
			return ruleError(ErrScriptValidation, "transaction spends an unspendable output")
		}

		hash, err := txscript.CalcSignatureHash(entry.PkScript, tx, i)
		if err != nil {
			return ruleError(ErrScriptValidation, err.Error())
		}

		engine := txscript.NewEngine(txIn.SignatureScript, entry.PkScript,
			txscript.EcdsaSigChecker{MessageHash: hash})
		if err := engine.Execute(); err != nil {
			return ruleError(ErrScriptValidation, err.Error())
		}
	}

	return nil
}
