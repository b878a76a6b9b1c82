// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stats aggregates per-block fee and size statistics from a
// connected block, for surfacing over the operator RPC surface.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/wire"
)

var feeRatePercentilesTargets = []float64{10, 25, 50, 75, 90}

// BlockStats aggregates commonly used fee and size statistics for a block.
type BlockStats struct {
	TotalSize            int64
	TotalFees            int64
	TotalOutputValue     int64
	TotalInputs          int64
	TotalOutputs         int64
	UTXOIncrease         int64
	UTXOSizeIncrease     int64
	NonCoinbaseCount     int64
	TotalNonCoinbaseSize int64
	MinFee               int64
	MaxFee               int64
	MinFeeRate           int64
	MaxFeeRate           int64
	MinTxSize            int64
	MaxTxSize            int64
	TxCount              int64
	Fees                 []int64
	FeeRates             []int64
	TxSizes              []int64
}

// ComputeBlockStats returns aggregated statistics for block, given the UTXO
// entries its non-coinbase inputs spent, in the same order those inputs
// appear when the block's transactions are walked.
func ComputeBlockStats(block *wire.MsgBlock, spent []*blockchain.UtxoEntry) (*BlockStats, error) {
	stats := &BlockStats{
		MinFee:     math.MaxInt64,
		MinFeeRate: math.MaxInt64,
		MinTxSize:  math.MaxInt64,
		TxCount:    int64(len(block.Transactions)),
	}

	var spentIndex int

	for _, tx := range block.Transactions {
		txSize := int64(tx.SerializeSize())

		stats.TotalSize += txSize
		stats.TxSizes = append(stats.TxSizes, txSize)
		if txSize < stats.MinTxSize {
			stats.MinTxSize = txSize
		}
		if txSize > stats.MaxTxSize {
			stats.MaxTxSize = txSize
		}

		outputCount := int64(len(tx.TxOut))
		stats.TotalOutputs += outputCount
		stats.UTXOIncrease += outputCount

		var txOutputValue int64
		var outputSizeSum int64
		for _, txOut := range tx.TxOut {
			txOutputValue += txOut.Value
			outputSizeSum += int64(len(txOut.PkScript)) + 8 // 8 bytes for value
		}
		stats.TotalOutputValue += txOutputValue
		stats.UTXOSizeIncrease += outputSizeSum

		inputCount := int64(len(tx.TxIn))
		stats.TotalInputs += inputCount

		if blockchain.IsCoinBaseTx(tx) {
			continue
		}

		if spentIndex+int(inputCount) > len(spent) {
			return nil, fmt.Errorf("spent-output list incomplete for tx %s", tx.TxHash())
		}

		stats.NonCoinbaseCount++
		stats.TotalNonCoinbaseSize += txSize
		stats.UTXOIncrease -= inputCount

		var inputValue int64
		var spentSizeSum int64
		for i := int64(0); i < inputCount; i++ {
			entry := spent[spentIndex]
			spentIndex++
			inputValue += entry.Amount
			spentSizeSum += int64(len(entry.PkScript)) + 8
		}
		stats.UTXOSizeIncrease -= spentSizeSum

		fee := inputValue - txOutputValue
		if fee < 0 {
			fee = 0
		}

		var feeRate int64
		if txSize > 0 {
			feeRate = fee * 1000 / txSize
		}

		stats.TotalFees += fee
		stats.Fees = append(stats.Fees, fee)
		stats.FeeRates = append(stats.FeeRates, feeRate)

		if fee < stats.MinFee {
			stats.MinFee = fee
		}
		if fee > stats.MaxFee {
			stats.MaxFee = fee
		}
		if feeRate < stats.MinFeeRate {
			stats.MinFeeRate = feeRate
		}
		if feeRate > stats.MaxFeeRate {
			stats.MaxFeeRate = feeRate
		}
	}

	if spentIndex != len(spent) {
		return nil, fmt.Errorf("spent-output list has %d entries, used %d", len(spent), spentIndex)
	}

	if stats.MinTxSize == math.MaxInt64 {
		stats.MinTxSize = 0
	}
	if stats.MinFee == math.MaxInt64 {
		stats.MinFee = 0
	}
	if stats.MinFeeRate == math.MaxInt64 {
		stats.MinFeeRate = 0
	}

	return stats, nil
}

// AverageFee returns the average fee paid by non-coinbase transactions.
func (bs *BlockStats) AverageFee() int64 {
	if bs.NonCoinbaseCount == 0 {
		return 0
	}
	return bs.TotalFees / bs.NonCoinbaseCount
}

// AverageFeeRate returns the average fee rate in glits/kB for non-coinbase transactions.
func (bs *BlockStats) AverageFeeRate() int64 {
	if bs.TotalNonCoinbaseSize == 0 {
		return 0
	}
	return bs.TotalFees * 1000 / bs.TotalNonCoinbaseSize
}

// AverageTxSize returns the average serialized transaction size in bytes.
func (bs *BlockStats) AverageTxSize() int64 {
	if bs.TxCount == 0 {
		return 0
	}
	return bs.TotalSize / bs.TxCount
}

// MedianFee returns the median transaction fee.
func (bs *BlockStats) MedianFee() int64 {
	return medianInt64(bs.Fees)
}

// MedianTxSize returns the median transaction size.
func (bs *BlockStats) MedianTxSize() int64 {
	return medianInt64(bs.TxSizes)
}

// FeeRatePercentiles returns the default fee rate percentiles.
func (bs *BlockStats) FeeRatePercentiles() []int64 {
	return percentilesInt64(bs.FeeRates, feeRatePercentilesTargets)
}

func medianInt64(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func percentilesInt64(values []int64, targets []float64) []int64 {
	results := make([]int64, len(targets))
	if len(values) == 0 {
		return results
	}

	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for i, p := range targets {
		idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		results[i] = sorted[idx]
	}
	return results
}
