// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/wire"
)

// BlockLocator is an ordered list of block hashes a peer can use to
// describe its view of the chain without sending the full history: recent
// hashes are dense, older ones exponentially sparser.
type BlockLocator []chainhash.Hash

// BlockChain holds the full set of known headers (whether or not they are
// on the current best chain), the authoritative UTXO set for the best
// chain's tip, and every connected block's body, so that a reorganization
// can replay blocks from the fork point rather than needing a separate
// undo log.
type BlockChain struct {
	chainParams *chaincfg.Params

	chainLock sync.RWMutex

	index    map[chainhash.Hash]*blockNode
	heightTo map[int32][]*blockNode
	blocks   map[chainhash.Hash]*wire.MsgBlock
	bestTip  *blockNode

	utxo *UtxoViewpoint

	// disconnected accumulates every non-coinbase transaction from a
	// block the most recent reorganize() call knocked off the best
	// chain, for TakeDisconnectedTransactions to hand to a mempool.
	disconnected []*wire.MsgTx

	orphans       map[chainhash.Hash]*wire.MsgBlock
	orphansByPrev map[chainhash.Hash][]chainhash.Hash
}

// New returns a BlockChain initialized with params' genesis block as its
// sole node and best tip.
func New(params *chaincfg.Params) (*BlockChain, error) {
	b := &BlockChain{
		chainParams:   params,
		index:         make(map[chainhash.Hash]*blockNode),
		heightTo:      make(map[int32][]*blockNode),
		blocks:        make(map[chainhash.Hash]*wire.MsgBlock),
		utxo:          NewUtxoViewpoint(nil),
		orphans:       make(map[chainhash.Hash]*wire.MsgBlock),
		orphansByPrev: make(map[chainhash.Hash][]chainhash.Hash),
	}

	genesis := newBlockNode(&params.GenesisBlock.Header, nil)
	b.index[genesis.hash] = genesis
	b.heightTo[0] = []*blockNode{genesis}
	b.blocks[genesis.hash] = params.GenesisBlock
	b.bestTip = genesis
	if err := b.utxo.connectTransactions(params.GenesisBlock, 0); err != nil {
		return nil, AssertError("genesis block failed to connect: " + err.Error())
	}

	return b, nil
}

// Tip returns the current best chain's tip node.
func (b *BlockChain) Tip() *blockNode {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.bestTip
}

// BestHeight returns the height of the current best chain tip.
func (b *BlockChain) BestHeight() int32 {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.bestTip.height
}

// BestHash returns the block hash of the current best chain tip.
func (b *BlockChain) BestHash() chainhash.Hash {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.bestTip.hash
}

// BestWork returns the cumulative proof-of-work committed to the current
// best chain tip.
func (b *BlockChain) BestWork() *big.Int {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return new(big.Int).Set(b.bestTip.workSum)
}

// HaveBlock reports whether hash is already a known header, either on the
// best chain, a side chain, or pending as an orphan.
func (b *BlockChain) HaveBlock(hash *chainhash.Hash) bool {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	if _, ok := b.index[*hash]; ok {
		return true
	}
	_, ok := b.orphans[*hash]
	return ok
}

// BlockByHash returns the full body of a previously connected block, if
// still retained.
func (b *BlockChain) BlockByHash(hash *chainhash.Hash) (*wire.MsgBlock, bool) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	block, ok := b.blocks[*hash]
	return block, ok
}

// HeaderByHash returns the header of any indexed block, on the best chain
// or not, so a peer's getheaders request can be answered without handing
// out the full body.
func (b *BlockChain) HeaderByHash(hash chainhash.Hash) (wire.BlockHeader, bool) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	node, ok := b.index[hash]
	if !ok {
		return wire.BlockHeader{}, false
	}
	return node.Header(), true
}

// CheckNextHeader validates header as a would-be extension of the already
// indexed block prevHash: proof of work, the difficulty retarget the chain
// requires at that height, and that its timestamp clears the median of its
// ancestors. It is the header-only counterpart of checkBlockContext, letting
// a sync manager validate a peer's headers response before committing to
// fetch the block bodies it describes.
func (b *BlockChain) CheckNextHeader(header *wire.BlockHeader, prevHash chainhash.Hash) error {
	if err := CheckHeaderSanity(header, b.chainParams.PowLimit, b.chainParams.MaxFutureBlockTime, time.Now()); err != nil {
		return err
	}

	b.chainLock.RLock()
	parent, ok := b.index[prevHash]
	b.chainLock.RUnlock()
	if !ok {
		return ruleError(ErrMissingParent, "header's claimed parent is unknown")
	}

	wantBits, err := b.CalcNextRequiredDifficulty(parent, header.Timestamp)
	if err != nil {
		return err
	}
	if header.Bits != wantBits {
		return ruleError(ErrBadPowLimit, "header difficulty bits do not match the required retarget value")
	}

	medianTime := calcPastMedianTime(parent)
	if !header.Timestamp.After(medianTime) {
		return ruleError(ErrTimeTooOld, "header timestamp is not after the median of the preceding blocks")
	}

	return nil
}

// LocateHeaders answers a getheaders request: it walks locator to find the
// highest hash already on the best chain, then returns the best chain's
// headers from just after that point, up to wire.MaxBlockHeadersPerMsg or
// hashStop (inclusive), whichever comes first. An all-zero hashStop means
// no stopping point. If no locator hash is recognized, it returns the best
// chain from genesis.
func (b *BlockChain) LocateHeaders(locator BlockLocator, hashStop chainhash.Hash) []wire.BlockHeader {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	startHeight := int32(-1)
	for _, hash := range locator {
		if node, ok := b.index[hash]; ok && b.isOnBestChainLocked(node) {
			startHeight = node.height
			break
		}
	}

	var ancestors []*blockNode
	for n := b.bestTip; n != nil && n.height > startHeight; n = n.parent {
		ancestors = append(ancestors, n)
	}

	var zero chainhash.Hash
	headers := make([]wire.BlockHeader, 0, len(ancestors))
	for i := len(ancestors) - 1; i >= 0; i-- {
		header := ancestors[i].Header()
		headers = append(headers, header)
		if hashStop != zero && header.BlockHash() == hashStop {
			break
		}
		if len(headers) >= wire.MaxBlockHeadersPerMsg {
			break
		}
	}
	return headers
}

// isOnBestChainLocked reports whether node sits on the current best chain.
// Callers must hold chainLock.
func (b *BlockChain) isOnBestChainLocked(node *blockNode) bool {
	anc := b.bestTip.Ancestor(node.height)
	return anc != nil && anc.hash == node.hash
}

// FetchUtxoEntry returns the best chain's unspent entry for outpoint, or
// nil if it does not exist or has already been spent. It implements
// UtxoSource so other packages (the mempool, chiefly) can build a
// UtxoViewpoint layered on top of the confirmed chain state.
func (b *BlockChain) FetchUtxoEntry(outpoint wire.OutPoint) (*UtxoEntry, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.utxo.LookupEntry(outpoint).Clone(), nil
}

// Balance returns the confirmed spendable balance of addr: the sum of
// every unspent output in the best chain's UTXO set whose locking script
// pays it, derived on demand from the script_pubkey each entry carries
// rather than a standing index.
func (b *BlockChain) Balance(addr *chainutil.AddressPubKeyHash) int64 {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.utxo.Balance(addr, b.chainParams.PubKeyHashAddrID)
}

// TakeDisconnectedTransactions returns every non-coinbase transaction from
// a block the most recent reorganize call disconnected from the best
// chain, clearing the accumulator so a repeated call sees nothing until
// the next reorg. A caller (the sync manager, chiefly) re-offers these to
// its mempool so a transaction that is still valid against the new tip
// does not simply vanish.
func (b *BlockChain) TakeDisconnectedTransactions() []*wire.MsgTx {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()
	txs := b.disconnected
	b.disconnected = nil
	return txs
}

// LatestBlockLocator returns a block locator describing the current best
// chain, for use in a getheaders/getblocks request.
func (b *BlockChain) LatestBlockLocator() BlockLocator {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return blockLocatorFromNode(b.bestTip)
}

// blockLocatorFromNode builds a locator walking back from node: the ten
// most recent hashes, then exponentially sparser, ending at genesis.
func blockLocatorFromNode(node *blockNode) BlockLocator {
	var locator BlockLocator
	step := int32(1)
	for node != nil {
		locator = append(locator, node.hash)
		if node.height == 0 {
			break
		}

		height := node.height - step
		if len(locator) >= 10 {
			step *= 2
		}
		node = node.Ancestor(max32(height, 0))
	}
	return locator
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// CalcPastMedianTime returns the median timestamp of the 11 blocks ending
// at (and including) the chain's current tip, the floor a new block's
// timestamp must exceed. Exported for the mining package's template
// timestamp selection; the contextual check itself lives in
// checkBlockContext.
func (b *BlockChain) CalcPastMedianTime() time.Time {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return calcPastMedianTime(b.bestTip)
}

// calcPastMedianTime returns the median timestamp of the medianTimeBlocks
// blocks ending at (and including) node, used to reject a block whose
// timestamp does not advance past it.
func calcPastMedianTime(node *blockNode) time.Time {
	const medianTimeBlocks = 11

	timestamps := make([]int64, 0, medianTimeBlocks)
	iter := node
	for i := 0; i < medianTimeBlocks && iter != nil; i++ {
		timestamps = append(timestamps, iter.timestamp.Unix())
		iter = iter.parent
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return time.Unix(timestamps[len(timestamps)/2], 0)
}

// ProcessBlock is the entry point for a newly received or mined block: it
// performs full sanity and contextual validation, attaches it to the
// header index, and if it extends or overtakes the current best chain by
// cumulative work, connects it (reorganizing away from a competing branch
// if necessary). A block whose parent is unknown is buffered as an orphan
// rather than rejected outright, since it may be deliverable once its
// ancestors arrive.
//
// isOrphan reports whether block was buffered pending an unknown parent,
// with a nil error in that case.
func (b *BlockChain) ProcessBlock(block *wire.MsgBlock) (isOrphan bool, err error) {
	hash := block.Header.BlockHash()

	if err := CheckBlockSanity(block, b.chainParams.PowLimit, b.chainParams.MaxFutureBlockTime, time.Now()); err != nil {
		return false, err
	}

	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	if _, ok := b.index[hash]; ok {
		return false, ruleError(ErrDuplicateBlock, "block already known")
	}

	parent, ok := b.index[block.Header.PrevBlock]
	if !ok {
		b.orphans[hash] = block
		b.orphansByPrev[block.Header.PrevBlock] = append(b.orphansByPrev[block.Header.PrevBlock], hash)
		return true, nil
	}

	if err := b.acceptBlock(block, hash, parent); err != nil {
		return false, err
	}

	b.processOrphans(hash)
	return false, nil
}

// processOrphans attempts to connect every buffered orphan whose claimed
// parent is newHash, recursively, now that newHash has joined the index.
func (b *BlockChain) processOrphans(newHash chainhash.Hash) {
	queue := []chainhash.Hash{newHash}
	for len(queue) > 0 {
		parentHash := queue[0]
		queue = queue[1:]

		children := b.orphansByPrev[parentHash]
		delete(b.orphansByPrev, parentHash)

		for _, childHash := range children {
			block, ok := b.orphans[childHash]
			if !ok {
				continue
			}
			delete(b.orphans, childHash)

			parent := b.index[parentHash]
			if err := b.acceptBlock(block, childHash, parent); err != nil {
				log.Debugf("discarding former orphan %v: %v", childHash, err)
				continue
			}
			queue = append(queue, childHash)
		}
	}
}

// acceptBlock validates block's contextual rules against parent, adds it
// to the header index, and extends or reorganizes the best chain if its
// cumulative work now exceeds the current tip's.
func (b *BlockChain) acceptBlock(block *wire.MsgBlock, hash chainhash.Hash, parent *blockNode) error {
	node := newBlockNode(&block.Header, parent)

	if err := b.checkBlockContext(block, node, parent); err != nil {
		return err
	}

	b.index[hash] = node
	b.heightTo[node.height] = append(b.heightTo[node.height], node)
	b.blocks[hash] = block

	if node.workSum.Cmp(b.bestTip.workSum) > 0 {
		if err := b.reorganize(node); err != nil {
			delete(b.index, hash)
			delete(b.blocks, hash)
			return err
		}
	}

	return nil
}

// checkBlockContext validates the rules that depend on chain state: the
// claimed height follows the parent, the difficulty bits match what
// retargeting requires, and the timestamp is strictly after the median of
// the preceding blocks.
func (b *BlockChain) checkBlockContext(block *wire.MsgBlock, node, parent *blockNode) error {
	wantBits, err := b.CalcNextRequiredDifficulty(parent, block.Header.Timestamp)
	if err != nil {
		return err
	}
	if block.Header.Bits != wantBits {
		return ruleError(ErrBadPowLimit, "block difficulty bits do not match the required retarget value")
	}

	medianTime := calcPastMedianTime(parent)
	if !block.Header.Timestamp.After(medianTime) {
		return ruleError(ErrTimeTooOld, "block timestamp is not after the median of the preceding blocks")
	}

	return nil
}

// reorganize makes newTip's branch the best chain. When newTip is a direct
// descendant of the current tip (the common case of simply extending the
// chain), it connects the new blocks against a clone of the existing UTXO
// set, committed only once every block validates. Otherwise it is a
// genuine reorganization away from a competing branch: since no separate
// undo log is kept for disconnected blocks, the UTXO set is rebuilt from
// genesis along the new branch instead.
func (b *BlockChain) reorganize(newTip *blockNode) error {
	fork := findFork(b.bestTip, newTip)

	var branch []*blockNode
	for n := newTip; n != fork; n = n.parent {
		branch = append([]*blockNode{n}, branch...)
	}

	var disconnected []*wire.MsgTx
	var view *UtxoViewpoint
	if fork == b.bestTip {
		view = b.utxo.cloneForExtension()
	} else {
		for n := b.bestTip; n != fork; n = n.parent {
			block, ok := b.blocks[n.hash]
			if !ok {
				continue
			}
			for _, tx := range block.Transactions {
				if !tx.IsCoinBase() {
					disconnected = append(disconnected, tx)
				}
			}
		}

		view = NewUtxoViewpoint(nil)
		for _, n := range ancestorChain(fork) {
			block := b.blocks[n.hash]
			if err := CheckConnectBlock(block, n.height, view, b.chainParams); err != nil {
				return AssertError("previously-accepted ancestor failed replay: " + err.Error())
			}
		}
	}

	for _, n := range branch {
		block, ok := b.blocks[n.hash]
		if !ok {
			return AssertError("connecting block body missing from store")
		}
		if err := CheckConnectBlock(block, n.height, view, b.chainParams); err != nil {
			return err
		}
	}

	b.utxo = view
	b.bestTip = newTip
	b.disconnected = append(b.disconnected, disconnected...)
	return nil
}

// findFork returns the highest common ancestor of a and b.
func findFork(a, b *blockNode) *blockNode {
	for a.height > b.height {
		a = a.parent
	}
	for b.height > a.height {
		b = b.parent
	}
	for a != b {
		a = a.parent
		b = b.parent
	}
	return a
}

// ancestorChain returns node's ancestors from genesis up to and including
// node, in height order.
func ancestorChain(node *blockNode) []*blockNode {
	chain := make([]*blockNode, node.height+1)
	for n := node; n != nil; n = n.parent {
		chain[n.height] = n
	}
	return chain
}
