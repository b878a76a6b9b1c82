// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"math/big"
	"time"

	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/wire"
)

// bigOne is 1 represented as a big.Int, used in PowLimit calculations.
var bigOne = big.NewInt(1)

// mainPowLimit is the highest proof-of-work target for the main network,
// corresponding to a minimum difficulty of 1: 2^224 - 1.
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

// regressionPowLimit is the highest proof-of-work target for the regression
// test network: 2^255 - 1, accepting a solved header of essentially any
// value so local test chains mine instantly.
var regressionPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

// testNetPowLimit is the highest proof-of-work target for the test network.
var testNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 236), bigOne)

// simNetPowLimit is the highest proof-of-work target for the simulation
// test network.
var simNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

// Checkpoint identifies a block by height and hash the node trusts without
// re-verifying the whole history leading to it.
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// Params defines a network by its genesis block, consensus constants, and
// the address/key encoding it uses. Exactly one Params value configures a
// running node.
type Params struct {
	// Name is the human-readable identifier for the network.
	Name string

	// Net is the magic number identifying the network on the wire.
	Net wire.GlintNet

	// DefaultPort is the default peer-to-peer port for the network.
	DefaultPort string

	// DNSSeeds are used to discover peer addresses when doing an initial
	// connection to the network.
	DNSSeeds []string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the genesis block hash, cached to avoid recomputing
	// it from GenesisBlock on every comparison.
	GenesisHash *chainhash.Hash

	// PowLimit defines the highest allowed proof-of-work target.
	PowLimit *big.Int

	// PowLimitBits is PowLimit in its compact representation.
	PowLimitBits uint32

	// CoinbaseMaturity is the number of blocks required before newly
	// mined coins, or transactions spending them, may move.
	CoinbaseMaturity uint16

	// SubsidyReductionInterval is the height interval at which the
	// block subsidy is halved.
	SubsidyReductionInterval int32

	// TargetTimePerBlock is the desired average time between blocks.
	TargetTimePerBlock time.Duration

	// TargetTimespan is the desired amount of time it should take to
	// mine RetargetInterval blocks.
	TargetTimespan time.Duration

	// RetargetInterval is the number of blocks between difficulty
	// retargets.
	RetargetInterval int32

	// RetargetAdjustmentFactor clamps how much the difficulty can
	// change in a single retarget, in either direction.
	RetargetAdjustmentFactor int64

	// MaxFutureBlockTime bounds how far into the future a block's
	// timestamp may claim to be relative to the node's clock.
	MaxFutureBlockTime time.Duration

	// Checkpoints are known-good (height, hash) pairs hardcoded into the
	// network definition, used only to reject conflicting alternate
	// histories below the highest checkpoint; they are never required
	// for a block to be considered valid.
	Checkpoints []Checkpoint

	// PubKeyHashAddrID is the version byte used for P2PKH addresses on
	// this network.
	PubKeyHashAddrID byte

	// PrivateKeyID is the version byte used for WIF-encoded private
	// keys on this network.
	PrivateKeyID byte
}

// retargetAdjustmentFactor bounds how far a single difficulty retarget may
// move the target, in either direction, per the spec's [1/4, 4] clamp.
const retargetAdjustmentFactor = 4

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "9590",
	DNSSeeds:    []string{},

	GenesisBlock: &mainGenesisBlock,
	GenesisHash:  &mainGenesisHash,

	PowLimit:     mainPowLimit,
	PowLimitBits: 0x1d00ffff,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 210000,
	TargetTimePerBlock:       600 * time.Second,
	TargetTimespan:           2016 * 600 * time.Second,
	RetargetInterval:         2016,
	RetargetAdjustmentFactor: retargetAdjustmentFactor,
	MaxFutureBlockTime:       7200 * time.Second,

	PubKeyHashAddrID: 0x23,
	PrivateKeyID:     0xa3,
}

// RegressionNetParams defines the network parameters for the regression
// test network.
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.RegTestNet,
	DefaultPort: "19590",
	DNSSeeds:    []string{},

	GenesisBlock: &regTestGenesisBlock,
	GenesisHash:  &regTestGenesisHash,

	PowLimit:     regressionPowLimit,
	PowLimitBits: 0x207fffff,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 210000,
	TargetTimePerBlock:       600 * time.Second,
	TargetTimespan:           2016 * 600 * time.Second,
	RetargetInterval:         2016,
	RetargetAdjustmentFactor: retargetAdjustmentFactor,
	MaxFutureBlockTime:       7200 * time.Second,

	PubKeyHashAddrID: 0x6f,
	PrivateKeyID:     0xef,
}

// TestNet3Params defines the network parameters for the test network.
var TestNet3Params = Params{
	Name:        "testnet3",
	Net:         wire.TestNet,
	DefaultPort: "29590",
	DNSSeeds:    []string{},

	GenesisBlock: &testNet3GenesisBlock,
	GenesisHash:  &testNet3GenesisHash,

	PowLimit:     testNetPowLimit,
	PowLimitBits: 0x1e0fffff,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 210000,
	TargetTimePerBlock:       600 * time.Second,
	TargetTimespan:           2016 * 600 * time.Second,
	RetargetInterval:         2016,
	RetargetAdjustmentFactor: retargetAdjustmentFactor,
	MaxFutureBlockTime:       7200 * time.Second,

	PubKeyHashAddrID: 0x6f,
	PrivateKeyID:     0xef,
}

// SimNetParams defines the network parameters for the simulation test
// network.
var SimNetParams = Params{
	Name:        "simnet",
	Net:         wire.SimNet,
	DefaultPort: "39590",
	DNSSeeds:    []string{},

	GenesisBlock: &simNetGenesisBlock,
	GenesisHash:  &simNetGenesisHash,

	PowLimit:     simNetPowLimit,
	PowLimitBits: 0x207fffff,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 210000,
	TargetTimePerBlock:       600 * time.Second,
	TargetTimespan:           2016 * 600 * time.Second,
	RetargetInterval:         2016,
	RetargetAdjustmentFactor: retargetAdjustmentFactor,
	MaxFutureBlockTime:       7200 * time.Second,

	PubKeyHashAddrID: 0x3f,
	PrivateKeyID:     0x64,
}

var ErrDuplicateNet = errors.New("chaincfg: duplicate network registration")

var registeredNets = map[wire.GlintNet]*Params{
	MainNetParams.Net:        &MainNetParams,
	RegressionNetParams.Net:  &RegressionNetParams,
	TestNet3Params.Net:       &TestNet3Params,
	SimNetParams.Net:         &SimNetParams,
}

// Register makes a network usable by other packages in the module. It
// returns ErrDuplicateNet if the network is already registered.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Net] = params
	return nil
}

// IsRegistered reports whether params's network has been registered.
func IsRegistered(params *Params) bool {
	_, ok := registeredNets[params.Net]
	return ok
}
