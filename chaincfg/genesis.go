// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"encoding/hex"
	"time"

	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/wire"
)

// genesisCoinbaseScriptHex is the fixed output script every genesis coinbase
// pays to: an uncompressed public key followed by OP_CHECKSIG, with no
// spending key known to anyone (the genesis reward is unspendable).
const genesisCoinbaseScriptHex = "4104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac"

// newGenesisCoinbaseTx builds the sole transaction of a genesis block: a
// coinbase whose signature script embeds pszTimestamp the way every block's
// coinbase embeds arbitrary miner data, here used to anchor the genesis
// block to a fixed, unforgeable point in time.
func newGenesisCoinbaseTx(pszTimestamp string) *wire.MsgTx {
	tsBytes := []byte(pszTimestamp)

	sigScript := append(
		[]byte{0x04, 0xff, 0xff, 0x00, 0x1d, 0x01, 0x04},
		append([]byte{byte(len(tsBytes))}, tsBytes...)...,
	)

	outputScript, err := hex.DecodeString(genesisCoinbaseScriptHex)
	if err != nil {
		panic(err)
	}

	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{
				PreviousOutPoint: wire.OutPoint{
					Hash:  chainhash.Hash{},
					Index: 0xffffffff,
				},
				SignatureScript: sigScript,
				Sequence:        0xffffffff,
			},
		},
		TxOut: []*wire.TxOut{
			{
				Value:    50 * 1e8,
				PkScript: outputScript,
			},
		},
		LockTime: 0,
	}
}

// mainGenesisHash is the hash of the main network genesis block.
var mainGenesisHash = chainhash.Hash([chainhash.HashSize]byte{
	/* TODO(glintd): populated once the mainnet genesis proof-of-work
	search (bits 0x1d00ffff, leading 4 zero target bytes) completes;
	regtest/testnet/simnet below are already mined. */
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
})

// mainGenesisMerkleRoot is the hash of the sole transaction in the main
// network genesis block, equal to its txid since a single-leaf Merkle tree
// has no internal nodes to hash.
var mainGenesisMerkleRoot = chainhash.Hash([chainhash.HashSize]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
})

// mainGenesisBlock defines the genesis block of the main network.
var mainGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: mainGenesisMerkleRoot,
		Timestamp:  time.Unix(1785542400, 0), // 2026-07-31 00:00:00 +0000 UTC
		Bits:       0x1d00ffff,
		Nonce:      0,
	},
	Transactions: []*wire.MsgTx{
		newGenesisCoinbaseTx("The Times 31/Jul/2026 ledger genesis for a new chain"),
	},
}

// regTestGenesisHash is the hash of the genesis block for the regression
// test network.
var regTestGenesisHash = chainhash.Hash([chainhash.HashSize]byte{
	0xfb, 0x18, 0x43, 0xfb, 0x2a, 0x6b, 0x58, 0x7a,
	0x48, 0x5a, 0x2e, 0xf3, 0x04, 0x6d, 0xd3, 0x67,
	0x64, 0x48, 0x53, 0xd0, 0x18, 0x07, 0xfb, 0xbb,
	0xb4, 0xcd, 0x50, 0x1f, 0x0d, 0x3b, 0xcb, 0x5d,
}) // 5dcb3b0d1f50cdb4bbfb0718d053486467d36d04f32e5a487a586b2afb4318fb

// regTestGenesisMerkleRoot is the hash of the sole transaction in the
// regression test network genesis block.
var regTestGenesisMerkleRoot = chainhash.Hash([chainhash.HashSize]byte{
	0x47, 0xa8, 0x38, 0xb6, 0x7f, 0x1f, 0x36, 0xb9,
	0x70, 0x0c, 0x91, 0x67, 0xad, 0x24, 0x3c, 0xb7,
	0x28, 0x8c, 0xde, 0xec, 0x7d, 0x00, 0x4b, 0xda,
	0x55, 0x81, 0xda, 0x2f, 0xd9, 0x63, 0x14, 0x33,
}) // 331463d92fda8155da4b007decde8c28b73c24ad67910c70b9361f7fb638a847

// regTestGenesisBlock defines the genesis block of the regression test
// network.
var regTestGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: regTestGenesisMerkleRoot,
		Timestamp:  time.Unix(1785542400, 0),
		Bits:       0x207fffff,
		Nonce:      1,
	},
	Transactions: []*wire.MsgTx{
		newGenesisCoinbaseTx("Regtest genesis for a new chain 31/Jul/2026"),
	},
}

// testNet3GenesisHash is the hash of the genesis block for the test
// network.
var testNet3GenesisHash = chainhash.Hash([chainhash.HashSize]byte{
	0x64, 0xd2, 0x70, 0x44, 0x0b, 0xff, 0xee, 0x4b,
	0x78, 0x80, 0x50, 0x7d, 0xe5, 0x5d, 0xad, 0x0e,
	0xa8, 0x55, 0x4c, 0x22, 0xfe, 0x45, 0xee, 0xb5,
	0x66, 0xb2, 0xd7, 0xf6, 0x63, 0x0c, 0x00, 0x00,
}) // 00000c63f6d7b266b5ee45fe224c55a80ead5de57d5080784beeff0b4470d264

// testNet3GenesisMerkleRoot is the hash of the sole transaction in the test
// network genesis block.
var testNet3GenesisMerkleRoot = chainhash.Hash([chainhash.HashSize]byte{
	0x8d, 0x1c, 0x73, 0x56, 0xb2, 0x5d, 0x5c, 0x86,
	0x69, 0xe9, 0x45, 0x26, 0x2c, 0x3f, 0x31, 0x96,
	0x72, 0xb8, 0x0a, 0xd5, 0x30, 0x70, 0xcb, 0xbb,
	0x60, 0xc8, 0x70, 0x28, 0x1d, 0xd9, 0x1e, 0x8e,
}) // 8e1ed91d2870c860bbcb7030d50ab87296313f2c2645e969865c5db256731c8d

// testNet3GenesisBlock defines the genesis block of the test network.
var testNet3GenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: testNet3GenesisMerkleRoot,
		Timestamp:  time.Unix(1785542400, 0),
		Bits:       0x1e0fffff,
		Nonce:      370045,
	},
	Transactions: []*wire.MsgTx{
		newGenesisCoinbaseTx("Testnet genesis for a new chain 31/Jul/2026"),
	},
}

// simNetGenesisHash is the hash of the genesis block for the simulation
// test network.
var simNetGenesisHash = chainhash.Hash([chainhash.HashSize]byte{
	0xf5, 0x1e, 0xe9, 0xd3, 0xd9, 0xac, 0x87, 0xbc,
	0x62, 0x3c, 0xbc, 0x28, 0x5a, 0xbe, 0x28, 0x2e,
	0xea, 0xe3, 0x77, 0x3b, 0x12, 0x10, 0x58, 0x5d,
	0x75, 0xcc, 0x89, 0x22, 0xb9, 0x27, 0x78, 0x6c,
}) // 6c7827b92289cc755d5810123b77e3ea2e28be5a28bc3c62bc87acd9d3e91ef5

// simNetGenesisMerkleRoot is the hash of the sole transaction in the
// simulation test network genesis block.
var simNetGenesisMerkleRoot = chainhash.Hash([chainhash.HashSize]byte{
	0xa0, 0xa4, 0x5d, 0x6c, 0xdb, 0x44, 0x47, 0xe2,
	0x31, 0x5a, 0x46, 0xa5, 0xc9, 0xff, 0xb2, 0x06,
	0xc5, 0x1d, 0x44, 0x13, 0x32, 0x8e, 0x57, 0xa3,
	0xf3, 0xb7, 0x28, 0xae, 0xa3, 0xd9, 0x11, 0xe6,
}) // e611d9a3ae28b7f3a3578e3213441dc506b2ffc9a5465a31e24744db6c5da4a0

// simNetGenesisBlock defines the genesis block of the simulation test
// network.
var simNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: simNetGenesisMerkleRoot,
		Timestamp:  time.Unix(1785542400, 0),
		Bits:       0x207fffff,
		Nonce:      1,
	},
	Transactions: []*wire.MsgTx{
		newGenesisCoinbaseTx("Simnet genesis for a new chain 31/Jul/2026"),
	},
}
