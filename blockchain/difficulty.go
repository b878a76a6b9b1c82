// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

// oneLsh256 is 1 shifted left 256 bits, used by CalcWork to express a
// chain's accumulated work relative to the full 256-bit hash space.
var oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)

// HashToBig converts a chainhash.Hash into a big.Int, interpreting the
// hash's bytes in the reversed (big-endian display) order so that the
// result can be compared directly against a target derived from
// CompactToBig.
func HashToBig(hash *chainhash.Hash) *big.Int {
	buf := *hash
	blen := len(buf)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}
	return new(big.Int).SetBytes(buf[:])
}

// CompactToBig converts a compact representation of a whole number N,
// packed into a block header's Bits field, back to a big.Int. The
// representation is analogous to an IEEE754 float: the top byte is a
// base-256 exponent, the next bit is a sign, and the remaining 23 bits are
// the mantissa, such that N = mantissa * 256^(exponent-3).
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := compact >> 24

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(uint(exponent)-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}
	return bn
}

// BigToCompact converts a whole number N to its compact representation.
// The compact form only carries 23 bits of precision, so values with more
// significant bits than that are rounded down to their most significant
// digits.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// CalcWork converts a block's difficulty bits into the estimated number of
// hashes required to produce a block meeting that target, used to measure
// cumulative chain work. A lower target (harder difficulty) yields a
// larger work value.
func CalcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}

	denominator := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(oneLsh256, denominator)
}

// CalcNextRequiredDifficulty computes the Bits value required of the block
// that extends lastNode, given the params' retarget schedule: difficulty
// is held fixed within a retarget period and adjusted at its boundary by
// the ratio of actual to expected elapsed time, clamped to
// RetargetAdjustmentFactor in either direction.
func (b *BlockChain) CalcNextRequiredDifficulty(lastNode *blockNode, newBlockTime time.Time) (uint32, error) {
	params := b.chainParams

	if lastNode == nil {
		return params.PowLimitBits, nil
	}

	nextHeight := lastNode.height + 1
	if nextHeight%params.RetargetInterval != 0 {
		return lastNode.bits, nil
	}

	firstNode := lastNode.RelativeAncestor(params.RetargetInterval - 1)
	if firstNode == nil {
		return 0, AssertError("unable to obtain last retarget block")
	}

	actualTimespan := lastNode.timestamp.Unix() - firstNode.timestamp.Unix()
	targetTimespan := int64(params.TargetTimespan / time.Second)

	minTimespan := targetTimespan / params.RetargetAdjustmentFactor
	maxTimespan := targetTimespan * params.RetargetAdjustmentFactor
	adjustedTimespan := actualTimespan
	if adjustedTimespan < minTimespan {
		adjustedTimespan = minTimespan
	} else if adjustedTimespan > maxTimespan {
		adjustedTimespan = maxTimespan
	}

	oldTarget := CompactToBig(lastNode.bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))

	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}

	newBits := BigToCompact(newTarget)
	log.Debugf("difficulty retarget at block height %d", nextHeight)
	log.Debugf("old target %08x (%064x)", lastNode.bits, oldTarget)
	log.Debugf("new target %08x (%064x)", newBits, CompactToBig(newBits))
	log.Debugf("actual timespan %v, adjusted timespan %v, target timespan %v",
		time.Duration(actualTimespan)*time.Second,
		time.Duration(adjustedTimespan)*time.Second,
		params.TargetTimespan)

	return newBits, nil
}
