// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "fmt"

// TxRuleError identifies a violation of a mempool-only acceptance policy,
// as opposed to a consensus rule a block itself must also obey.
type TxRuleError int

const (
	// ErrAlreadyInPool indicates the transaction is already in the pool.
	ErrAlreadyInPool TxRuleError = iota

	// ErrOrphanPolicyViolation indicates an orphan would exceed the
	// configured orphan pool limits.
	ErrOrphanPolicyViolation

	// ErrCoinbase indicates a coinbase transaction was offered directly,
	// which may only ever arrive inside a block.
	ErrCoinbase

	// ErrNonStandard indicates a transaction or one of its inputs does not
	// satisfy the configured standardness policy.
	ErrNonStandard

	// ErrDustOutput indicates an output's value is too small relative to
	// the cost of spending it later.
	ErrDustOutput

	// ErrInsufficientFee indicates a transaction's fee rate falls below
	// the configured minimum relay fee.
	ErrInsufficientFee

	// ErrDoubleSpend indicates a transaction conflicts with another
	// transaction already accepted into the pool.
	ErrDoubleSpend

	// ErrAlreadyMined indicates a transaction's txid is already present in
	// the confirmed chain.
	ErrAlreadyMined

	// ErrTooManySigOps indicates a transaction's input scripts require too
	// many signature checks.
	ErrTooManySigOps

	// ErrMempoolFull indicates the pool is at its configured size limit
	// and the offered transaction pays too little to evict anything.
	ErrMempoolFull
)

var txRuleErrorStrings = map[TxRuleError]string{
	ErrAlreadyInPool:         "ErrAlreadyInPool",
	ErrOrphanPolicyViolation: "ErrOrphanPolicyViolation",
	ErrCoinbase:              "ErrCoinbase",
	ErrNonStandard:           "ErrNonStandard",
	ErrDustOutput:            "ErrDustOutput",
	ErrInsufficientFee:       "ErrInsufficientFee",
	ErrDoubleSpend:           "ErrDoubleSpend",
	ErrAlreadyMined:          "ErrAlreadyMined",
	ErrTooManySigOps:         "ErrTooManySigOps",
	ErrMempoolFull:           "ErrMempoolFull",
}

func (e TxRuleError) String() string {
	if s, ok := txRuleErrorStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown TxRuleError (%d)", int(e))
}

// txRuleError wraps a description and a TxRuleError code into the error
// type callers see from the pool's acceptance path.
type txRuleError struct {
	RuleError TxRuleError
	Desc      string
}

func (e txRuleError) Error() string {
	return e.Desc
}

func newTxRuleError(c TxRuleError, desc string) txRuleError {
	return txRuleError{RuleError: c, Desc: desc}
}

// RuleError identifies a transaction rejection, wrapping either a
// txRuleError (a mempool-only policy violation) or a blockchain.RuleError
// (a consensus rule violation) so callers can type-assert Err to tell the
// two apart without string matching.
type RuleError struct {
	Err error
}

func (e RuleError) Error() string {
	if e.Err == nil {
		return "unknown rule error"
	}
	return e.Err.Error()
}

func (e RuleError) Unwrap() error {
	return e.Err
}

func txRuleErrorf(c TxRuleError, format string, args ...interface{}) RuleError {
	return RuleError{Err: newTxRuleError(c, fmt.Sprintf(format, args...))}
}

// extractRejectCode reports the TxRuleError carried by err, if any, and
// whether err is of that kind at all (as opposed to a wrapped consensus
// blockchain.RuleError or an unrelated error).
func extractRejectCode(err error) (TxRuleError, bool) {
	rerr, ok := err.(RuleError)
	if !ok {
		return 0, false
	}
	terr, ok := rerr.Err.(txRuleError)
	if !ok {
		return 0, false
	}
	return terr.RuleError, true
}

// IsErrorCode returns whether err is a RuleError wrapping the given
// TxRuleError.
func IsErrorCode(err error, c TxRuleError) bool {
	code, ok := extractRejectCode(err)
	return ok && code == c
}
