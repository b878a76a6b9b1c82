// Copyright (c) 2014-2017 The btcsuite developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/mempool"
	"github.com/glintchain/glintd/txscript"
	"github.com/glintchain/glintd/wire"
)

// blockHeaderOverhead is the number of bytes it takes to serialize a block
// header plus the varint transaction count that precedes the transaction
// list, reserved up front so size accounting doesn't need a second pass.
const blockHeaderOverhead = 80 + 9

// TxSource is the transaction pool a BlkTmplGenerator draws candidate
// transactions from. mempool.TxPool satisfies this directly.
type TxSource interface {
	// TxDescs returns every transaction currently eligible for mining.
	TxDescs() []*mempool.TxDesc

	// HaveTransaction reports whether hash is already known to the
	// source.
	HaveTransaction(hash *chainhash.Hash) bool
}

// txPrioItem pairs a candidate transaction with its pool-assigned fee rate
// for ordering in the selection queue.
type txPrioItem struct {
	tx       *wire.MsgTx
	fee      int64
	feePerKB int64
}

// txPriorityQueue orders candidates by descending fee rate, so the richest
// transaction (per kilobyte) is always selected next.
type txPriorityQueue struct {
	items []*txPrioItem
}

func (pq *txPriorityQueue) Len() int { return len(pq.items) }
func (pq *txPriorityQueue) Less(i, j int) bool {
	return pq.items[i].feePerKB > pq.items[j].feePerKB
}
func (pq *txPriorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}
func (pq *txPriorityQueue) Push(x interface{}) {
	pq.items = append(pq.items, x.(*txPrioItem))
}
func (pq *txPriorityQueue) Pop() interface{} {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	return item
}

func newTxPriorityQueue(reserve int) *txPriorityQueue {
	pq := &txPriorityQueue{items: make([]*txPrioItem, 0, reserve)}
	heap.Init(pq)
	return pq
}

// BlockTemplate houses a block that is fully built and valid except for its
// proof of work, ready for a miner to search nonces over.
type BlockTemplate struct {
	// Block is the candidate block.
	Block *wire.MsgBlock

	// Fees holds the fee paid by each transaction in Block.Transactions,
	// in the same order; entry 0 (the coinbase) holds the negative of
	// every other entry's sum.
	Fees []int64

	// Height is the height Block would occupy if accepted.
	Height int32
}

// BlkTmplGenerator builds block templates against the current chain tip
// from a pool of pending transactions.
type BlkTmplGenerator struct {
	policy      *Policy
	chainParams *chaincfg.Params
	txSource    TxSource
	chain       *blockchain.BlockChain
}

// NewBlkTmplGenerator returns a generator drawing candidates from txSource
// and building atop chain, per policy.
func NewBlkTmplGenerator(policy *Policy, chainParams *chaincfg.Params, txSource TxSource, chain *blockchain.BlockChain) *BlkTmplGenerator {
	return &BlkTmplGenerator{
		policy:      policy,
		chainParams: chainParams,
		txSource:    txSource,
		chain:       chain,
	}
}

// minimalNumber returns n encoded as a minimal little-endian sign-magnitude
// byte string, the same representation a script number push uses. Used to
// build the coinbase's BIP34-style height push.
func minimalNumber(n int64) []byte {
	if n == 0 {
		return nil
	}

	negative := n < 0
	if negative {
		n = -n
	}

	var result []byte
	for n > 0 {
		result = append(result, byte(n&0xff))
		n >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		if negative {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if negative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// standardCoinbaseScript builds a coinbase signature script carrying the
// block height (so two coinbases at different heights can never collide)
// followed by the extranonce and a miner tag, the only pushes a coinbase's
// otherwise-unevaluated script needs.
func standardCoinbaseScript(nextHeight int32, extraNonce uint64) []byte {
	extraNonceBytes := make([]byte, 8)
	for i := 0; i < 8; i++ {
		extraNonceBytes[i] = byte(extraNonce >> (8 * i))
	}
	payload := append(extraNonceBytes, []byte(CoinbaseFlags)...)

	script := txscript.CanonicalDataPush(minimalNumber(int64(nextHeight)))
	script = append(script, txscript.CanonicalDataPush(payload)...)
	return script
}

// createCoinbaseTx returns a new coinbase transaction paying subsidy+fees
// to payToAddress, or to an unspendable OP_RETURN output if payToAddress
// is nil.
func createCoinbaseTx(params *chaincfg.Params, coinbaseScript []byte, nextHeight int32, payToAddress *chainutil.AddressPubKeyHash) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, blockchain.CoinbasePrevOutIndex), coinbaseScript))

	pkScript := []byte{txscript.OP_RETURN}
	if payToAddress != nil {
		var err error
		pkScript, err = txscript.PayToAddrScript(payToAddress)
		if err != nil {
			return nil, err
		}
	}
	tx.AddTxOut(wire.NewTxOut(blockchain.CalcBlockSubsidy(nextHeight, params), pkScript))
	return tx, nil
}

// NewBlockTemplate selects transactions from the configured source in
// descending fee-rate order, builds a coinbase paying payToAddress the
// resulting subsidy plus fees, and returns a template ready for a miner to
// search nonces over. A nil payToAddress produces a coinbase whose output
// is an unspendable OP_RETURN script.
func (g *BlkTmplGenerator) NewBlockTemplate(payToAddress *chainutil.AddressPubKeyHash, extraNonce uint64) (*BlockTemplate, error) {
	tip := g.chain.Tip()
	nextHeight := g.chain.BestHeight() + 1

	coinbaseScript := standardCoinbaseScript(nextHeight, extraNonce)
	coinbaseTx, err := createCoinbaseTx(g.chainParams, coinbaseScript, nextHeight, payToAddress)
	if err != nil {
		return nil, err
	}

	sourceTxns := g.txSource.TxDescs()
	priorityQueue := newTxPriorityQueue(len(sourceTxns))
	for _, desc := range sourceTxns {
		if blockchain.IsCoinBaseTx(desc.Tx) {
			continue
		}
		heap.Push(priorityQueue, &txPrioItem{
			tx:       desc.Tx,
			fee:      desc.Fee,
			feePerKB: desc.FeePerKB,
		})
	}

	blockTxns := make([]*wire.MsgTx, 0, len(sourceTxns)+1)
	blockTxns = append(blockTxns, coinbaseTx)
	txFees := make([]int64, 0, len(sourceTxns)+1)
	txFees = append(txFees, 0)

	blockSize := uint32(blockHeaderOverhead) + uint32(coinbaseTx.SerializeSize())
	totalFees := int64(0)

	for priorityQueue.Len() > 0 {
		item := heap.Pop(priorityQueue).(*txPrioItem)

		txSize := uint32(item.tx.SerializeSize())
		if blockSize+txSize > g.policy.BlockMaxSize {
			continue
		}

		blockTxns = append(blockTxns, item.tx)
		txFees = append(txFees, item.fee)
		blockSize += txSize
		totalFees += item.fee
	}

	coinbaseTx.TxOut[0].Value += totalFees
	txFees[0] = -totalFees

	root, err := blockchain.CalcMerkleRoot(blockTxns)
	if err != nil {
		return nil, err
	}

	ts := medianAdjustedTime(g.chain.CalcPastMedianTime())
	bits, err := g.chain.CalcNextRequiredDifficulty(tip, ts)
	if err != nil {
		return nil, err
	}

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  g.chain.BestHash(),
			MerkleRoot: root,
			Timestamp:  ts,
			Bits:       bits,
		},
		Transactions: blockTxns,
	}

	return &BlockTemplate{
		Block:  block,
		Fees:   txFees,
		Height: nextHeight,
	}, nil
}

// medianAdjustedTime returns the current time, or one second past
// pastMedianTime if that would otherwise violate the block ordering rule
// (a new block's timestamp must exceed the median of the last 11).
func medianAdjustedTime(pastMedianTime time.Time) time.Time {
	now := time.Now()
	minTime := pastMedianTime.Add(time.Second)
	if now.Before(minTime) {
		return minTime
	}
	return now
}

// UpdateExtraNonce regenerates template's coinbase with a new extranonce,
// recomputing the merkle root the change invalidates. The CPU miner does
// not call it; it builds a fresh template with the next extranonce when
// its nonce space is exhausted.
func UpdateExtraNonce(template *BlockTemplate, extraNonce uint64) error {
	coinbaseScript := standardCoinbaseScript(template.Height, extraNonce)
	if len(coinbaseScript) > blockchain.MaxCoinbaseScriptLen {
		return fmt.Errorf("coinbase script length of %d is out of range (max %d)",
			len(coinbaseScript), blockchain.MaxCoinbaseScriptLen)
	}
	template.Block.Transactions[0].TxIn[0].SignatureScript = coinbaseScript

	root, err := blockchain.CalcMerkleRoot(template.Block.Transactions)
	if err != nil {
		return err
	}
	template.Block.Header.MerkleRoot = root
	return nil
}

// UpdateBlockTime refreshes template's timestamp to the current time,
// honoring the same past-median floor NewBlockTemplate applied.
func (g *BlkTmplGenerator) UpdateBlockTime(template *BlockTemplate) {
	template.Block.Header.Timestamp = medianAdjustedTime(g.chain.CalcPastMedianTime())
}
