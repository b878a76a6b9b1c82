// Copyright (c) 2014-2017 The btcsuite developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import "github.com/glintchain/glintd/blockchain"

// CoinbaseFlags is pushed into every generated coinbase's signature script
// (after the height and extranonce pushes) to mark blocks mined by this
// software, in the tradition of Bitcoin Core's own "/P2SH/" coinbase tag.
const CoinbaseFlags = "/glintd/"

// Policy houses the block-generation parameters a BlkTmplGenerator applies
// on top of the consensus rules every block must satisfy regardless.
type Policy struct {
	// BlockMinSize is a minimum block size, in bytes. NewBlockTemplate
	// does not read it, and templates are never padded to reach it.
	BlockMinSize uint32

	// BlockMaxSize bounds how large a generated template's block may
	// grow. NewBlockTemplate uses the value as given; it does not clamp
	// it to blockchain.MaxBlockSize.
	BlockMaxSize uint32
}

// DefaultPolicy returns a Policy that fills blocks up to the full
// consensus size limit with no minimum padding.
func DefaultPolicy() Policy {
	return Policy{
		BlockMinSize: 0,
		BlockMaxSize: blockchain.MaxBlockSize,
	}
}
