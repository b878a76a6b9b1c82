// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// ErrorCode identifies a kind of error returned by the chain validation and
// connection rules, so callers can programmatically discriminate between
// them instead of matching error strings.
type ErrorCode int

const (
	// ErrDuplicateBlock indicates a block already exists in the index.
	ErrDuplicateBlock ErrorCode = iota

	// ErrMissingParent indicates the block's claimed parent is unknown.
	ErrMissingParent

	// ErrBadMerkleRoot indicates the computed merkle root over the
	// block's transactions does not match the header's commitment.
	ErrBadMerkleRoot

	// ErrNoTransactions indicates a block has no transactions.
	ErrNoTransactions

	// ErrNoTxInputs indicates a transaction has no inputs.
	ErrNoTxInputs

	// ErrNoTxOutputs indicates a transaction has no outputs.
	ErrNoTxOutputs

	// ErrTxTooBig indicates a transaction exceeds the maximum allowed
	// serialized size.
	ErrTxTooBig

	// ErrBadTxOutValue indicates a transaction output carries a negative
	// or overflowing amount.
	ErrBadTxOutValue

	// ErrDuplicateTxInputs indicates a transaction spends the same
	// previous output more than once.
	ErrDuplicateTxInputs

	// ErrBadTxInput indicates a transaction input refers to a null
	// previous outpoint outside of a coinbase.
	ErrBadTxInput

	// ErrMissingTxOut indicates a transaction spends an outpoint that is
	// not found in the UTXO set.
	ErrMissingTxOut

	// ErrUnfinalizedTx indicates a transaction is not yet final per its
	// lock time relative to the block it is being mined into.
	ErrUnfinalizedTx

	// ErrDuplicateTx indicates a non-coinbase transaction duplicates one
	// already in the UTXO set (BIP30-style).
	ErrDuplicateTx

	// ErrImmatureSpend indicates a transaction attempts to spend a
	// coinbase output before it has reached maturity.
	ErrImmatureSpend

	// ErrSpendTooHigh indicates a transaction's outputs exceed its
	// inputs.
	ErrSpendTooHigh

	// ErrBadFees indicates the block's coinbase claims more than the
	// subsidy plus collected fees.
	ErrBadFees

	// ErrFirstTxNotCoinbase indicates the first transaction in a block is
	// not a coinbase.
	ErrFirstTxNotCoinbase

	// ErrMultipleCoinbases indicates more than one coinbase transaction
	// is present in a block.
	ErrMultipleCoinbases

	// ErrBadCoinbaseScriptLen indicates a coinbase signature script
	// length is outside the allowed range.
	ErrBadCoinbaseScriptLen

	// ErrScriptValidation indicates a transaction input's unlocking
	// script failed to satisfy its previous output's locking script.
	ErrScriptValidation

	// ErrUnexpectedWitness is unused (segregated witness is out of
	// scope) and retained only as a stable ErrorCode placeholder.
	ErrUnexpectedWitness

	// ErrBadBlockHeight indicates a block's claimed height does not
	// follow its parent.
	ErrBadBlockHeight

	// ErrBadPowLimit indicates a block's difficulty bits do not match
	// the value the retargeting rules require.
	ErrBadPowLimit

	// ErrHighHash indicates a block's hash does not satisfy the
	// proof-of-work target implied by its difficulty bits.
	ErrHighHash

	// ErrTimeTooOld indicates a block's timestamp is not after the
	// median time of the preceding blocks.
	ErrTimeTooOld

	// ErrTimeTooNew indicates a block's timestamp is too far in the
	// future.
	ErrTimeTooNew

	// ErrBadCheckpoint indicates a block conflicts with a hardcoded
	// checkpoint.
	ErrBadCheckpoint

	// ErrForkTooOld indicates a reorganization target forks off the main
	// chain before a checkpoint.
	ErrForkTooOld
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:       "ErrDuplicateBlock",
	ErrMissingParent:        "ErrMissingParent",
	ErrBadMerkleRoot:        "ErrBadMerkleRoot",
	ErrNoTransactions:       "ErrNoTransactions",
	ErrNoTxInputs:           "ErrNoTxInputs",
	ErrNoTxOutputs:          "ErrNoTxOutputs",
	ErrTxTooBig:             "ErrTxTooBig",
	ErrBadTxOutValue:        "ErrBadTxOutValue",
	ErrDuplicateTxInputs:    "ErrDuplicateTxInputs",
	ErrBadTxInput:           "ErrBadTxInput",
	ErrMissingTxOut:         "ErrMissingTxOut",
	ErrUnfinalizedTx:        "ErrUnfinalizedTx",
	ErrDuplicateTx:          "ErrDuplicateTx",
	ErrImmatureSpend:        "ErrImmatureSpend",
	ErrSpendTooHigh:         "ErrSpendTooHigh",
	ErrBadFees:              "ErrBadFees",
	ErrFirstTxNotCoinbase:   "ErrFirstTxNotCoinbase",
	ErrMultipleCoinbases:    "ErrMultipleCoinbases",
	ErrBadCoinbaseScriptLen: "ErrBadCoinbaseScriptLen",
	ErrScriptValidation:     "ErrScriptValidation",
	ErrUnexpectedWitness:    "ErrUnexpectedWitness",
	ErrBadBlockHeight:       "ErrBadBlockHeight",
	ErrBadPowLimit:          "ErrBadPowLimit",
	ErrHighHash:             "ErrHighHash",
	ErrTimeTooOld:           "ErrTimeTooOld",
	ErrTimeTooNew:           "ErrTimeTooNew",
	ErrBadCheckpoint:        "ErrBadCheckpoint",
	ErrForkTooOld:           "ErrForkTooOld",
}

func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation encountered while validating a
// block or transaction against consensus rules, as opposed to a plain I/O
// or programming error.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

func (e RuleError) Error() string {
	return e.Description
}

func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err is a RuleError with the given ErrorCode.
func IsErrorCode(err error, c ErrorCode) bool {
	rerr, ok := err.(RuleError)
	return ok && rerr.ErrorCode == c
}

// AssertError identifies an invariant violation in the chain code itself
// rather than a consensus rule failure — it should never happen in
// correct code and is not meant to be programmatically discriminated.
type AssertError string

func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}
