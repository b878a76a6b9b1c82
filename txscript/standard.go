// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"

	"github.com/glintchain/glintd/chainutil"
)

// ErrUnsupportedAddress is returned by PayToAddrScript when given a nil
// address.
var ErrUnsupportedAddress = errors.New("txscript: unsupported address type")

// PayToAddrScript builds the canonical pay-to-pubkey-hash locking script:
//
//	OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG
func PayToAddrScript(addr *chainutil.AddressPubKeyHash) ([]byte, error) {
	if addr == nil {
		return nil, ErrUnsupportedAddress
	}

	hash := addr.ScriptAddress()
	script := make([]byte, 0, 25)
	script = append(script, OP_DUP, OP_HASH160, byte(len(hash)))
	script = append(script, hash...)
	script = append(script, OP_EQUALVERIFY, OP_CHECKSIG)
	return script, nil
}

// ExtractPkScriptAddr parses a pay-to-pubkey-hash pkScript back into its
// address, reporting ok=false for anything else (including OP_RETURN
// outputs, which carry no spendable address).
func ExtractPkScriptAddr(pkScript []byte, netID byte) (addr *chainutil.AddressPubKeyHash, ok bool) {
	if len(pkScript) != 25 ||
		pkScript[0] != OP_DUP ||
		pkScript[1] != OP_HASH160 ||
		pkScript[2] != 20 ||
		pkScript[23] != OP_EQUALVERIFY ||
		pkScript[24] != OP_CHECKSIG {
		return nil, false
	}

	a, err := chainutil.NewAddressPubKeyHash(pkScript[3:23], netID)
	if err != nil {
		return nil, false
	}
	return a, true
}

// IsUnspendable reports whether pkScript can never be redeemed, i.e. it
// begins with OP_RETURN.
func IsUnspendable(pkScript []byte) bool {
	return len(pkScript) > 0 && pkScript[0] == OP_RETURN
}
