// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/txscript"
	"github.com/glintchain/glintd/wire"
)

// checkInputsAndFee mirrors blockchain's own input-existence, coinbase
// maturity, and spend-versus-input accounting, then additionally enforces
// the pool's minimum relay fee rate on top of it: a transaction entering
// the pool must pay its own way, where one merely being mined into an
// already-accepted block does not.
func checkInputsAndFee(tx *wire.MsgTx, nextHeight int32, view *blockchain.UtxoViewpoint, policy *Policy, params *chaincfg.Params) (int64, error) {
	var totalIn int64
	for _, txIn := range tx.TxIn {
		entry, err := view.FetchEntry(txIn.PreviousOutPoint)
		if err != nil {
			return 0, err
		}
		if entry == nil {
			return 0, RuleError{Err: blockchain.RuleError{
				ErrorCode:   blockchain.ErrMissingTxOut,
				Description: fmt.Sprintf("output %v spent by transaction %v does not exist or is already spent", txIn.PreviousOutPoint, tx.TxHash()),
			}}
		}

		if entry.IsCoinBase {
			blocksSinceMined := nextHeight - entry.BlockHeight
			if blocksSinceMined < int32(params.CoinbaseMaturity) {
				return 0, RuleError{Err: blockchain.RuleError{
					ErrorCode:   blockchain.ErrImmatureSpend,
					Description: fmt.Sprintf("transaction %v attempts to spend immature coinbase output %v", tx.TxHash(), txIn.PreviousOutPoint),
				}}
			}
		}

		totalIn += entry.Amount
	}

	var totalOut int64
	for _, txOut := range tx.TxOut {
		totalOut += txOut.Value
	}

	if totalIn < totalOut {
		return 0, RuleError{Err: blockchain.RuleError{
			ErrorCode:   blockchain.ErrSpendTooHigh,
			Description: fmt.Sprintf("transaction %v outputs %d exceed inputs %d", tx.TxHash(), totalOut, totalIn),
		}}
	}
	fee := totalIn - totalOut

	minFee := calcMinRequiredTxRelayFee(int64(tx.SerializeSize()), policy.MinRelayTxFee)
	if fee < minFee {
		return 0, txRuleErrorf(ErrInsufficientFee,
			"transaction %v has insufficient fee: needs %d, has %d", tx.TxHash(), minFee, fee)
	}

	return fee, nil
}

// verifyInputScripts checks every input's unlocking script against its
// referenced output's locking script, exactly as a block connection would.
func verifyInputScripts(tx *wire.MsgTx, view *blockchain.UtxoViewpoint) error {
	for i, txIn := range tx.TxIn {
		entry := view.LookupEntry(txIn.PreviousOutPoint)
		if entry == nil {
			return RuleError{Err: blockchain.RuleError{
				ErrorCode:   blockchain.ErrMissingTxOut,
				Description: fmt.Sprintf("output %v not present in the utxo view", txIn.PreviousOutPoint),
			}}
		}

		hash, err := txscript.CalcSignatureHash(entry.PkScript, tx, i)
		if err != nil {
			return RuleError{Err: blockchain.RuleError{ErrorCode: blockchain.ErrScriptValidation, Description: err.Error()}}
		}

		engine := txscript.NewEngine(txIn.SignatureScript, entry.PkScript,
			txscript.EcdsaSigChecker{MessageHash: hash})
		if err := engine.Execute(); err != nil {
			return RuleError{Err: blockchain.RuleError{ErrorCode: blockchain.ErrScriptValidation, Description: err.Error()}}
		}
	}
	return nil
}
