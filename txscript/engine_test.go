// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/crypto"
	"github.com/glintchain/glintd/wire"
)

func TestEngineValidP2PKHSpend(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}

	pkHash := chainutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := chainutil.NewAddressPubKeyHash(pkHash, 0x6f)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}

	pkScript, err := PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("PayToAddrScript: %v", err)
	}

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), nil))
	tx.AddTxOut(wire.NewTxOut(5000, nil))

	sigScript, err := SignatureScript(tx, 0, pkScript, key, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}

	hash, err := CalcSignatureHash(pkScript, tx, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}

	e := NewEngine(sigScript, pkScript, EcdsaSigChecker{MessageHash: hash})
	if err := e.Execute(); err != nil {
		t.Fatalf("Execute: unexpected error %v", err)
	}
}

func TestEngineBadSignatureFails(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	other, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}

	pkHash := chainutil.Hash160(key.PubKey().SerializeCompressed())
	addr, _ := chainutil.NewAddressPubKeyHash(pkHash, 0x6f)
	pkScript, _ := PayToAddrScript(addr)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), nil))
	tx.AddTxOut(wire.NewTxOut(5000, nil))

	sigScript, err := SignatureScript(tx, 0, pkScript, other, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}

	hash, _ := CalcSignatureHash(pkScript, tx, 0)
	e := NewEngine(sigScript, pkScript, EcdsaSigChecker{MessageHash: hash})
	if err := e.Execute(); err == nil {
		t.Fatal("Execute: expected failure for mismatched key, got success")
	}
}

func TestEngineOpReturnFails(t *testing.T) {
	pkScript := []byte{OP_RETURN}
	e := NewEngine(nil, pkScript, nil)
	if err := e.Execute(); !IsErrorCode(err, ErrEarlyReturn) {
		t.Fatalf("Execute: got %v, want ErrEarlyReturn", err)
	}
}

func TestEngineStackUnderflow(t *testing.T) {
	// OP_HASH160 with nothing on the stack.
	pkScript := []byte{OP_HASH160}
	e := NewEngine(nil, pkScript, nil)
	if err := e.Execute(); !IsErrorCode(err, ErrStackUnderflow) {
		t.Fatalf("Execute: got %v, want ErrStackUnderflow", err)
	}
}

func TestEngineOversizedPushFails(t *testing.T) {
	big := make([]byte, MaxScriptElementSize+1)
	script := append([]byte{OP_PUSHDATA2, byte(len(big)), byte(len(big) >> 8)}, big...)
	e := NewEngine(nil, script, nil)
	if err := e.Execute(); !IsErrorCode(err, ErrElementTooBig) {
		t.Fatalf("Execute: got %v, want ErrElementTooBig", err)
	}
}

func TestEngineEqualVerifyFails(t *testing.T) {
	script := append(CanonicalDataPush([]byte("a")), CanonicalDataPush([]byte("b"))...)
	script = append(script, OP_EQUALVERIFY)
	e := NewEngine(nil, script, nil)
	if err := e.Execute(); !IsErrorCode(err, ErrEqualVerify) {
		t.Fatalf("Execute: got %v, want ErrEqualVerify", err)
	}
}
