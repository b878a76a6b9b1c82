// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/chainutil"
)

// Default parameters for a FeeEstimator created by the daemon.
const (
	// DefaultEstimateFeeMaxRollback bounds how many blocks of history an
	// observed-but-unconfirmed transaction is tracked for before it is
	// given up on and dropped.
	DefaultEstimateFeeMaxRollback = 100

	// DefaultEstimateFeeMinRegisteredBlocks is the minimum number of
	// blocks that must have been processed before EstimateFee will
	// return a result instead of an error.
	DefaultEstimateFeeMinRegisteredBlocks = 10

	// feeBucketCount is the number of geometric fee-rate buckets tracked.
	feeBucketCount = 20

	// feeBucketMinRate and feeBucketGrowth define the buckets'
	// geometric progression: bucket i's upper bound is
	// feeBucketMinRate * feeBucketGrowth^i, in glits per 1000 bytes.
	feeBucketMinRate   = 100.0
	feeBucketGrowth    = 1.7
	confirmationDecay  = 0.9
)

// ErrNotEnoughData indicates the estimator has not yet observed enough
// confirmed blocks to produce a trustworthy estimate.
var ErrNotEnoughData = errors.New("not enough blocks processed for a fee estimate")

// feeBucket tracks a decayed running average of how many blocks it has
// taken transactions paying within this bucket's rate to confirm.
type feeBucket struct {
	upperBound       int64
	avgConfirmations float64
	observedCount    uint64
}

type observedTx struct {
	bucket       int
	heightSeen   int32
}

// FeeEstimator watches which fee rate transactions pay and how long they
// take to be mined, to answer "what fee rate gets a transaction confirmed
// within N blocks" queries.
type FeeEstimator struct {
	mtx sync.Mutex

	maxRollback         uint32
	minRegisteredBlocks uint32

	bestHeight       int32
	registeredBlocks uint32

	buckets  [feeBucketCount]feeBucket
	observed map[chainhash.Hash]observedTx
}

// NewFeeEstimator returns an estimator with empty buckets, rolling back
// unconfirmed observations after maxRollback blocks and refusing to answer
// estimates until minRegisteredBlocks blocks have been processed.
func NewFeeEstimator(maxRollback, minRegisteredBlocks uint32) *FeeEstimator {
	ef := &FeeEstimator{
		maxRollback:         maxRollback,
		minRegisteredBlocks: minRegisteredBlocks,
		bestHeight:          -1,
		observed:            make(map[chainhash.Hash]observedTx),
	}
	rate := feeBucketMinRate
	for i := range ef.buckets {
		ef.buckets[i].upperBound = int64(rate)
		rate *= feeBucketGrowth
	}
	return ef
}

// bucketFor returns the index of the lowest bucket whose upper bound is at
// least feeRate, or the top bucket if feeRate exceeds them all.
func (ef *FeeEstimator) bucketFor(feeRate int64) int {
	for i, b := range ef.buckets {
		if feeRate <= b.upperBound {
			return i
		}
	}
	return len(ef.buckets) - 1
}

// ObserveTransaction records a transaction's fee rate at the height it was
// accepted into the pool, so that once it is mined EstimateFee can learn
// how long that rate took to confirm.
func (ef *FeeEstimator) ObserveTransaction(desc *TxDesc) {
	ef.mtx.Lock()
	defer ef.mtx.Unlock()

	if ef.bestHeight < 0 {
		ef.bestHeight = desc.Height
	}

	hash := desc.Tx.TxHash()
	if _, ok := ef.observed[hash]; ok {
		return
	}
	ef.observed[hash] = observedTx{
		bucket:     ef.bucketFor(desc.FeePerKB),
		heightSeen: desc.Height,
	}
}

// ProcessBlock updates the estimator with a newly connected block at
// height: every transaction hash that was being observed and is now mined
// updates its bucket's decayed confirmation-delay average, and anything
// observed more than maxRollback blocks ago without confirming is given up
// on.
func (ef *FeeEstimator) ProcessBlock(height int32, minedTxHashes []chainhash.Hash) {
	ef.mtx.Lock()
	defer ef.mtx.Unlock()

	mined := make(map[chainhash.Hash]struct{}, len(minedTxHashes))
	for _, h := range minedTxHashes {
		mined[h] = struct{}{}
	}

	for hash, obs := range ef.observed {
		if _, ok := mined[hash]; ok {
			confirmations := float64(height - obs.heightSeen + 1)
			b := &ef.buckets[obs.bucket]
			if b.observedCount == 0 {
				b.avgConfirmations = confirmations
			} else {
				b.avgConfirmations = b.avgConfirmations*confirmationDecay + confirmations*(1-confirmationDecay)
			}
			b.observedCount++
			delete(ef.observed, hash)
			continue
		}

		if height-obs.heightSeen > int32(ef.maxRollback) {
			delete(ef.observed, hash)
		}
	}

	if height > ef.bestHeight {
		ef.bestHeight = height
	}
	ef.registeredBlocks++
}

// EstimateFee returns the fee rate, in glits per 1000 bytes, estimated to
// get a transaction confirmed within numBlocks blocks.
func (ef *FeeEstimator) EstimateFee(numBlocks uint32) (chainutil.Amount, error) {
	ef.mtx.Lock()
	defer ef.mtx.Unlock()

	if ef.registeredBlocks < ef.minRegisteredBlocks {
		return 0, ErrNotEnoughData
	}

	for i := len(ef.buckets) - 1; i >= 0; i-- {
		b := ef.buckets[i]
		if b.observedCount == 0 {
			continue
		}
		if b.avgConfirmations <= float64(numBlocks) {
			return chainutil.Amount(b.upperBound), nil
		}
	}

	return chainutil.Amount(ef.buckets[len(ef.buckets)-1].upperBound), nil
}

// Save serializes the estimator's full state for persistence across
// restarts.
func (ef *FeeEstimator) Save() []byte {
	ef.mtx.Lock()
	defer ef.mtx.Unlock()

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, ef.maxRollback)
	binary.Write(buf, binary.BigEndian, ef.minRegisteredBlocks)
	binary.Write(buf, binary.BigEndian, ef.bestHeight)
	binary.Write(buf, binary.BigEndian, ef.registeredBlocks)

	binary.Write(buf, binary.BigEndian, uint32(len(ef.buckets)))
	for _, b := range ef.buckets {
		binary.Write(buf, binary.BigEndian, b.upperBound)
		binary.Write(buf, binary.BigEndian, math.Float64bits(b.avgConfirmations))
		binary.Write(buf, binary.BigEndian, b.observedCount)
	}

	binary.Write(buf, binary.BigEndian, uint32(len(ef.observed)))
	for hash, obs := range ef.observed {
		buf.Write(hash[:])
		binary.Write(buf, binary.BigEndian, int32(obs.bucket))
		binary.Write(buf, binary.BigEndian, obs.heightSeen)
	}

	return buf.Bytes()
}

// RestoreFeeEstimator reconstructs a FeeEstimator previously serialized by
// Save.
func RestoreFeeEstimator(data []byte) (*FeeEstimator, error) {
	r := bytes.NewReader(data)
	ef := &FeeEstimator{observed: make(map[chainhash.Hash]observedTx)}

	if err := binary.Read(r, binary.BigEndian, &ef.maxRollback); err != nil {
		return nil, fmt.Errorf("reading maxRollback: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &ef.minRegisteredBlocks); err != nil {
		return nil, fmt.Errorf("reading minRegisteredBlocks: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &ef.bestHeight); err != nil {
		return nil, fmt.Errorf("reading bestHeight: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &ef.registeredBlocks); err != nil {
		return nil, fmt.Errorf("reading registeredBlocks: %w", err)
	}

	var numBuckets uint32
	if err := binary.Read(r, binary.BigEndian, &numBuckets); err != nil {
		return nil, fmt.Errorf("reading bucket count: %w", err)
	}
	if numBuckets != feeBucketCount {
		return nil, fmt.Errorf("unexpected bucket count %d, want %d", numBuckets, feeBucketCount)
	}
	for i := range ef.buckets {
		if err := binary.Read(r, binary.BigEndian, &ef.buckets[i].upperBound); err != nil {
			return nil, fmt.Errorf("reading bucket %d upper bound: %w", i, err)
		}
		var bits uint64
		if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
			return nil, fmt.Errorf("reading bucket %d average: %w", i, err)
		}
		ef.buckets[i].avgConfirmations = math.Float64frombits(bits)
		if err := binary.Read(r, binary.BigEndian, &ef.buckets[i].observedCount); err != nil {
			return nil, fmt.Errorf("reading bucket %d count: %w", i, err)
		}
	}

	var numObserved uint32
	if err := binary.Read(r, binary.BigEndian, &numObserved); err != nil {
		return nil, fmt.Errorf("reading observed count: %w", err)
	}
	for i := uint32(0); i < numObserved; i++ {
		var hash chainhash.Hash
		if _, err := r.Read(hash[:]); err != nil {
			return nil, fmt.Errorf("reading observed hash %d: %w", i, err)
		}
		var bucket, height int32
		if err := binary.Read(r, binary.BigEndian, &bucket); err != nil {
			return nil, fmt.Errorf("reading observed bucket %d: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &height); err != nil {
			return nil, fmt.Errorf("reading observed height %d: %w", i, err)
		}
		ef.observed[hash] = observedTx{bucket: int(bucket), heightSeen: height}
	}

	return ef, nil
}
