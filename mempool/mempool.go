// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"sync"
	"time"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/wire"
)

// orphanExpiration is how long an orphan transaction may sit in the pool
// awaiting its missing parent before it is swept.
const orphanExpiration = time.Minute * 15

// TxDesc wraps a pooled transaction with the bookkeeping the fee estimator
// and mining template builder need: when it arrived, what height the chain
// was at then, and what it pays.
type TxDesc struct {
	Tx       *wire.MsgTx
	Added    time.Time
	Height   int32
	Fee      int64
	FeePerKB int64
}

// Config houses the values a TxPool needs from the rest of the node: chain
// access for UTXO lookups and height, and the acceptance policy to apply.
type Config struct {
	Policy       Policy
	ChainParams  *chaincfg.Params
	Chain        *blockchain.BlockChain
	FeeEstimator *FeeEstimator
}

// TxPool is a concurrency-safe, fully-validated pool of transactions not
// yet mined into a block, able to hold orphans (transactions spending an output this node does not yet
// know about) until their parent arrives.
type TxPool struct {
	mtx  sync.RWMutex
	cfg  Config

	pool          map[chainhash.Hash]*TxDesc
	orphans       map[chainhash.Hash]*orphanTx
	orphansByPrev map[wire.OutPoint]map[chainhash.Hash]struct{}
	outpoints     map[wire.OutPoint]*wire.MsgTx

	// totalBytes is the aggregate serialized size of every transaction
	// currently in pool, checked against Policy.MaxMempoolBytes after
	// each acceptance.
	totalBytes int

	lastOrphanSweep time.Time
}

type orphanTx struct {
	tx      *wire.MsgTx
	added   time.Time
}

// New returns an empty transaction pool configured per cfg.
func New(cfg Config) *TxPool {
	return &TxPool{
		cfg:           cfg,
		pool:          make(map[chainhash.Hash]*TxDesc),
		orphans:       make(map[chainhash.Hash]*orphanTx),
		orphansByPrev: make(map[wire.OutPoint]map[chainhash.Hash]struct{}),
		outpoints:     make(map[wire.OutPoint]*wire.MsgTx),
	}
}

// Count returns the number of fully validated transactions in the pool.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return len(mp.pool)
}

// OrphanCount returns the number of orphan transactions awaiting a parent.
func (mp *TxPool) OrphanCount() int {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return len(mp.orphans)
}

// HaveTransaction reports whether hash is already known, either fully
// accepted or held as an orphan.
func (mp *TxPool) HaveTransaction(hash *chainhash.Hash) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	_, inPool := mp.pool[*hash]
	_, isOrphan := mp.orphans[*hash]
	return inPool || isOrphan
}

// FetchTransaction returns a fully validated pool transaction by hash, for
// serving a peer's getdata request. It does not return orphan transactions,
// since those are not yet known to be valid.
func (mp *TxPool) FetchTransaction(hash *chainhash.Hash) (*wire.MsgTx, bool) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	desc, ok := mp.pool[*hash]
	if !ok {
		return nil, false
	}
	return desc.Tx, true
}

// TxDescs returns a snapshot of every fully validated transaction
// currently in the pool.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	return descs
}

// fetchInputUtxos builds a UtxoViewpoint for tx's inputs, preferring
// entries created by other pool transactions over the confirmed chain, so
// that chained (unconfirmed-spending-unconfirmed) transactions validate.
func (mp *TxPool) fetchInputUtxos(tx *wire.MsgTx) (*blockchain.UtxoViewpoint, error) {
	view := blockchain.NewUtxoViewpoint(mp.cfg.Chain)

	for _, txIn := range tx.TxIn {
		outpoint := txIn.PreviousOutPoint
		if parent, ok := mp.pool[outpoint.Hash]; ok {
			view.AddTxOuts(parent.Tx, mempoolHeight)
			continue
		}
		if _, err := view.FetchEntry(outpoint); err != nil {
			return nil, err
		}
	}

	return view, nil
}

// mempoolHeight is the sentinel BlockHeight recorded for a UTXO created by
// an unconfirmed pool transaction, distinguishing it from any real chain
// height.
const mempoolHeight = 0x7fffffff

// poolConflicts returns every distinct pool transaction that already
// spends one of the outpoints tx spends, or nil if tx spends nothing
// another pool transaction has claimed.
func (mp *TxPool) poolConflicts(tx *wire.MsgTx) []*wire.MsgTx {
	seen := make(map[chainhash.Hash]*wire.MsgTx)
	for _, txIn := range tx.TxIn {
		if conflict, ok := mp.outpoints[txIn.PreviousOutPoint]; ok {
			seen[conflict.TxHash()] = conflict
		}
	}
	if len(seen) == 0 {
		return nil
	}
	conflicts := make([]*wire.MsgTx, 0, len(seen))
	for _, conflict := range seen {
		conflicts = append(conflicts, conflict)
	}
	return conflicts
}

// checkReplaceByFee reports whether tx, paying feePerKB, may evict every
// transaction in conflicts: each of them must have a strictly lower fee
// rate, so that replacing a conflict costs something rather than being a
// free way to churn the pool. Any conflict tx does not strictly beat
// keeps the existing transaction and rejects tx instead.
func (mp *TxPool) checkReplaceByFee(feePerKB int64, conflicts []*wire.MsgTx) error {
	for _, conflict := range conflicts {
		desc, ok := mp.pool[conflict.TxHash()]
		if !ok || feePerKB <= desc.FeePerKB {
			return RuleError{Err: newTxRuleError(ErrDoubleSpend, fmt.Sprintf(
				"output already spent by transaction %v in the pool at a fee rate this transaction does not exceed",
				conflict.TxHash()))}
		}
	}
	return nil
}

// MaybeAcceptTransaction validates tx against both consensus rules and
// this pool's acceptance policy and, on success, adds it to the pool. If
// tx spends an output this node doesn't yet know about, it is instead
// buffered as an orphan and the hashes of its missing parents are
// returned with a nil desc and a nil error.
func (mp *TxPool) MaybeAcceptTransaction(tx *wire.MsgTx) (missingParents []*chainhash.Hash, desc *TxDesc, err error) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	txHash := tx.TxHash()

	if _, ok := mp.pool[txHash]; ok {
		return nil, nil, RuleError{Err: newTxRuleError(ErrAlreadyInPool,
			fmt.Sprintf("transaction %v is already in the pool", txHash))}
	}

	if blockchain.IsCoinBaseTx(tx) {
		return nil, nil, RuleError{Err: newTxRuleError(ErrCoinbase,
			fmt.Sprintf("transaction %v is an individually submitted coinbase", txHash))}
	}

	if err := blockchain.CheckTransactionSanity(tx); err != nil {
		return nil, nil, RuleError{Err: err}
	}

	if err := checkTransactionStandard(tx, &mp.cfg.Policy); err != nil {
		return nil, nil, err
	}

	conflicts := mp.poolConflicts(tx)

	var missing []*chainhash.Hash
	for _, txIn := range tx.TxIn {
		outpoint := txIn.PreviousOutPoint
		if _, ok := mp.pool[outpoint.Hash]; ok {
			continue
		}
		entry, err := mp.cfg.Chain.FetchUtxoEntry(outpoint)
		if err != nil {
			return nil, nil, err
		}
		if entry == nil {
			hash := outpoint.Hash
			missing = append(missing, &hash)
		}
	}
	if len(missing) > 0 {
		if len(conflicts) > 0 {
			return nil, nil, RuleError{Err: newTxRuleError(ErrDoubleSpend, fmt.Sprintf(
				"transaction %v conflicts with a pool transaction and has unresolved inputs", txHash))}
		}
		if err := mp.maybeAddOrphan(tx); err != nil {
			return nil, nil, err
		}
		return missing, nil, nil
	}

	view, err := mp.fetchInputUtxos(tx)
	if err != nil {
		return nil, nil, err
	}

	bestHeight := mp.cfg.Chain.BestHeight()
	fee, err := checkInputsAndFee(tx, bestHeight+1, view, &mp.cfg.Policy, mp.cfg.ChainParams)
	if err != nil {
		return nil, nil, err
	}
	feePerKB := fee * 1000 / int64(tx.SerializeSize())

	if len(conflicts) > 0 {
		if err := mp.checkReplaceByFee(feePerKB, conflicts); err != nil {
			return nil, nil, err
		}
	}

	if err := mp.makeRoomLocked(tx.SerializeSize(), feePerKB); err != nil {
		return nil, nil, err
	}

	if err := verifyInputScripts(tx, view); err != nil {
		return nil, nil, err
	}

	for _, conflict := range conflicts {
		mp.removeTransaction(conflict, true, RemovalReasonConflict)
	}

	d := &TxDesc{
		Tx:       tx,
		Added:    time.Now(),
		Height:   bestHeight,
		Fee:      fee,
		FeePerKB: feePerKB,
	}
	mp.addTransaction(d)
	if mp.cfg.FeeEstimator != nil {
		mp.cfg.FeeEstimator.ObserveTransaction(d)
	}

	mp.processOrphansLocked(tx)

	return nil, d, nil
}

// addTransaction registers desc's transaction into the pool and its
// spent-outpoint index. Callers must hold mp.mtx.
func (mp *TxPool) addTransaction(desc *TxDesc) {
	mp.pool[desc.Tx.TxHash()] = desc
	for _, txIn := range desc.Tx.TxIn {
		mp.outpoints[txIn.PreviousOutPoint] = desc.Tx
	}
	mp.totalBytes += desc.Tx.SerializeSize()
}

// RemoveTransaction removes tx from the pool. If removeRedeemers is true,
// every transaction in the pool that spends one of tx's outputs is removed
// recursively as well, since it can no longer be valid once tx is gone.
func (mp *TxPool) RemoveTransaction(tx *wire.MsgTx, removeRedeemers bool, reason RemovalReason) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	mp.removeTransaction(tx, removeRedeemers, reason)
}

func (mp *TxPool) removeTransaction(tx *wire.MsgTx, removeRedeemers bool, reason RemovalReason) {
	txHash := tx.TxHash()

	if removeRedeemers {
		for i := range tx.TxOut {
			outpoint := wire.OutPoint{Hash: txHash, Index: uint32(i)}
			if redeemer, ok := mp.outpoints[outpoint]; ok {
				mp.removeTransaction(redeemer, true, reason)
			}
		}
	}

	if _, ok := mp.pool[txHash]; !ok {
		return
	}

	for _, txIn := range tx.TxIn {
		delete(mp.outpoints, txIn.PreviousOutPoint)
	}
	delete(mp.pool, txHash)
	mp.totalBytes -= tx.SerializeSize()
}

// ProcessBlockTransactions removes from the pool every transaction that
// was just mined into a connected block, together with anything left in
// the pool that now conflicts with it.
func (mp *TxPool) ProcessBlockTransactions(height int32, block *wire.MsgBlock) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	minedHashes := make([]chainhash.Hash, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		minedHashes = append(minedHashes, tx.TxHash())
		mp.removeTransaction(tx, false, RemovalReasonBlock)
		mp.removeDoubleSpendsLocked(tx)
	}
	mp.limitOrphansLocked()

	if mp.cfg.FeeEstimator != nil {
		mp.cfg.FeeEstimator.ProcessBlock(height, minedHashes)
	}
}

// ProcessDisconnectedTransactions re-offers every transaction a chain
// reorganization knocked out of the best chain to MaybeAcceptTransaction,
// so a transaction that remains valid against the new tip does not simply
// vanish. A transaction that no longer validates (already mined on the
// new branch, or now missing a parent) is silently dropped rather than
// treated as an error, since that is the expected outcome for most of
// them.
func (mp *TxPool) ProcessDisconnectedTransactions(txs []*wire.MsgTx) {
	for _, tx := range txs {
		if _, _, err := mp.MaybeAcceptTransaction(tx); err != nil {
			log.Debugf("not re-admitting disconnected transaction %v: %v", tx.TxHash(), err)
		}
	}
}

// removeDoubleSpendsLocked removes any pool transaction that spends an
// outpoint tx itself spends, since tx's confirmation makes that spend
// final and the pool copy can never be mined. Callers must hold mp.mtx.
func (mp *TxPool) removeDoubleSpendsLocked(tx *wire.MsgTx) {
	for _, txIn := range tx.TxIn {
		if conflict, ok := mp.outpoints[txIn.PreviousOutPoint]; ok {
			mp.removeTransaction(conflict, true, RemovalReasonConflict)
		}
	}
}

// makeRoomLocked evicts the pool's lowest fee-rate transactions, and
// anything left that spends one of their outputs, until admitting
// addBytes more stays within Policy.MaxMempoolBytes. It refuses with
// ErrMempoolFull instead of evicting a transaction whose fee rate is not
// strictly below feePerKB, since that would let a low-paying transaction
// buy its way in by evicting an equally-or-better-paying one.
// A MaxMempoolBytes of zero leaves the pool unbounded. Callers must hold
// mp.mtx.
func (mp *TxPool) makeRoomLocked(addBytes int, feePerKB int64) error {
	limit := mp.cfg.Policy.MaxMempoolBytes
	if limit <= 0 {
		return nil
	}

	for mp.totalBytes+addBytes > limit {
		victim := mp.lowestFeeRateLocked()
		if victim == nil {
			return nil
		}
		if feePerKB <= mp.pool[victim.TxHash()].FeePerKB {
			return RuleError{Err: newTxRuleError(ErrMempoolFull,
				"mempool is full and the offered transaction's fee rate does not exceed its lowest-paying entries")}
		}
		mp.removeTransaction(victim, true, RemovalReasonEvicted)
	}
	return nil
}

// enforceSizeLimitLocked evicts the pool's lowest fee-rate transactions,
// unconditionally, until its aggregate size is back within
// Policy.MaxMempoolBytes. Used after an orphan is promoted into the pool,
// where there is no caller left to report ErrMempoolFull to. Callers must
// hold mp.mtx.
func (mp *TxPool) enforceSizeLimitLocked() {
	limit := mp.cfg.Policy.MaxMempoolBytes
	if limit <= 0 {
		return
	}

	for mp.totalBytes > limit {
		victim := mp.lowestFeeRateLocked()
		if victim == nil {
			return
		}
		mp.removeTransaction(victim, true, RemovalReasonEvicted)
	}
}

// lowestFeeRateLocked returns the pool transaction with the lowest fee
// rate, or nil if the pool is empty. Callers must hold mp.mtx.
func (mp *TxPool) lowestFeeRateLocked() *wire.MsgTx {
	var lowest *TxDesc
	for _, desc := range mp.pool {
		if lowest == nil || desc.FeePerKB < lowest.FeePerKB {
			lowest = desc
		}
	}
	if lowest == nil {
		return nil
	}
	return lowest.Tx
}

// maybeAddOrphan buffers tx as an orphan, enforcing the configured size and
// count limits. Callers must hold mp.mtx.
func (mp *TxPool) maybeAddOrphan(tx *wire.MsgTx) error {
	if sz := tx.SerializeSize(); sz > mp.cfg.Policy.MaxOrphanTxSize {
		return RuleError{Err: newTxRuleError(ErrOrphanPolicyViolation, fmt.Sprintf(
			"orphan transaction size of %d bytes exceeds the maximum allowed of %d bytes",
			sz, mp.cfg.Policy.MaxOrphanTxSize))}
	}

	if len(mp.orphans) >= mp.cfg.Policy.MaxOrphanTxs && mp.cfg.Policy.MaxOrphanTxs > 0 {
		mp.limitOrphansLocked()
		if len(mp.orphans) >= mp.cfg.Policy.MaxOrphanTxs {
			return RuleError{Err: newTxRuleError(ErrOrphanPolicyViolation,
				"orphan transaction pool is full")}
		}
	}

	txHash := tx.TxHash()
	mp.orphans[txHash] = &orphanTx{tx: tx, added: time.Now()}
	for _, txIn := range tx.TxIn {
		if mp.orphansByPrev[txIn.PreviousOutPoint] == nil {
			mp.orphansByPrev[txIn.PreviousOutPoint] = make(map[chainhash.Hash]struct{})
		}
		mp.orphansByPrev[txIn.PreviousOutPoint][txHash] = struct{}{}
	}

	return nil
}

// limitOrphansLocked sweeps orphans past orphanExpiration. Callers must
// hold mp.mtx.
func (mp *TxPool) limitOrphansLocked() {
	now := time.Now()
	if now.Sub(mp.lastOrphanSweep) < time.Minute {
		return
	}
	mp.lastOrphanSweep = now

	for hash, orphan := range mp.orphans {
		if now.Sub(orphan.added) > orphanExpiration {
			mp.removeOrphanLocked(hash)
		}
	}
}

func (mp *TxPool) removeOrphanLocked(hash chainhash.Hash) {
	orphan, ok := mp.orphans[hash]
	if !ok {
		return
	}
	for _, txIn := range orphan.tx.TxIn {
		delete(mp.orphansByPrev[txIn.PreviousOutPoint], hash)
		if len(mp.orphansByPrev[txIn.PreviousOutPoint]) == 0 {
			delete(mp.orphansByPrev, txIn.PreviousOutPoint)
		}
	}
	delete(mp.orphans, hash)
}

// processOrphansLocked re-attempts acceptance of every orphan that spends
// one of newTx's outputs, recursively, now that newTx is in the pool.
// Callers must hold mp.mtx.
func (mp *TxPool) processOrphansLocked(newTx *wire.MsgTx) {
	queue := []*wire.MsgTx{newTx}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		parentHash := parent.TxHash()

		for i := range parent.TxOut {
			outpoint := wire.OutPoint{Hash: parentHash, Index: uint32(i)}
			children, ok := mp.orphansByPrev[outpoint]
			if !ok {
				continue
			}

			for childHash := range children {
				orphan, ok := mp.orphans[childHash]
				if !ok {
					continue
				}

				ready := true
				for _, txIn := range orphan.tx.TxIn {
					if _, ok := mp.pool[txIn.PreviousOutPoint.Hash]; ok {
						continue
					}
					entry, err := mp.cfg.Chain.FetchUtxoEntry(txIn.PreviousOutPoint)
					if err != nil || entry == nil {
						ready = false
						break
					}
				}
				if !ready {
					continue
				}

				mp.removeOrphanLocked(childHash)

				if len(mp.poolConflicts(orphan.tx)) > 0 {
					continue
				}

				view, err := mp.fetchInputUtxos(orphan.tx)
				if err != nil {
					continue
				}
				bestHeight := mp.cfg.Chain.BestHeight()
				fee, err := checkInputsAndFee(orphan.tx, bestHeight+1, view, &mp.cfg.Policy, mp.cfg.ChainParams)
				if err != nil {
					continue
				}
				if err := verifyInputScripts(orphan.tx, view); err != nil {
					continue
				}

				mp.addTransaction(&TxDesc{
					Tx:       orphan.tx,
					Added:    time.Now(),
					Height:   bestHeight,
					Fee:      fee,
					FeePerKB: fee * 1000 / int64(orphan.tx.SerializeSize()),
				})
				queue = append(queue, orphan.tx)
			}
		}
	}

	mp.enforceSizeLimitLocked()
}
