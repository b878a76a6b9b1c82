// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/crypto"
	"github.com/glintchain/glintd/txscript"
	"github.com/glintchain/glintd/wire"
)

// testHarness wraps a fresh regtest chain with a single spendable
// coinbase already matured, for exercising pool acceptance end-to-end
// including real signature verification.
type testHarness struct {
	chain       *blockchain.BlockChain
	params      *chaincfg.Params
	key         *crypto.PrivateKey
	pool        *TxPool
	spendableTx *wire.MsgTx
}

func mineOnto(t *testing.T, b *blockchain.BlockChain, txs []*wire.MsgTx, ts time.Time) *wire.MsgBlock {
	t.Helper()
	tip := b.Tip()

	bits, err := b.CalcNextRequiredDifficulty(tip, ts)
	if err != nil {
		t.Fatalf("CalcNextRequiredDifficulty: %v", err)
	}
	root, err := blockchain.CalcMerkleRoot(txs)
	if err != nil {
		t.Fatalf("CalcMerkleRoot: %v", err)
	}

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  b.BestHash(),
			MerkleRoot: root,
			Timestamp:  ts,
			Bits:       bits,
		},
		Transactions: txs,
	}

	target := blockchain.CompactToBig(bits)
	for nonce := uint32(0); nonce < 1_000_000; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		if blockchain.HashToBig(&hash).Cmp(target) <= 0 {
			break
		}
	}

	if _, err := b.ProcessBlock(block); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	return block
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	params := chaincfg.RegressionNetParams
	chain, err := blockchain.New(&params)
	if err != nil {
		t.Fatalf("blockchain.New: %v", err)
	}

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	pkHash := chainutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := chainutil.NewAddressPubKeyHash(pkHash, params.PubKeyHashAddrID)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("PayToAddrScript: %v", err)
	}

	genesis := chain.Tip()
	ts := genesis.Header().Timestamp

	var spendableTx *wire.MsgTx

	// Mine CoinbaseMaturity+1 blocks so the first coinbase matures; the
	// first one pays our test key, the rest pay an unrelated script.
	for i := int32(1); i <= int32(params.CoinbaseMaturity)+1; i++ {
		ts = ts.Add(time.Minute)
		cb := wire.NewMsgTx(1)
		cb.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0xffffffff), []byte{byte(i), byte(i >> 8)}))
		out := pkScript
		if i != 1 {
			out = []byte{0x51}
		}
		cb.AddTxOut(wire.NewTxOut(blockchain.CalcBlockSubsidy(i, &params), out))
		if i == 1 {
			spendableTx = cb
		}
		mineOnto(t, chain, []*wire.MsgTx{cb}, ts)
	}

	pool := New(Config{
		Policy:      DefaultPolicy(),
		ChainParams: &params,
		Chain:       chain,
	})

	return &testHarness{chain: chain, params: &params, key: key, pool: pool, spendableTx: spendableTx}
}

// spendCoinbase builds a transaction spending the harness's matured
// coinbase output, paying toScript.
func (h *testHarness) spendCoinbase(t *testing.T, toScript []byte, value int64) *wire.MsgTx {
	t.Helper()

	coinbaseHash := h.spendableTx.TxHash()
	prevOut := wire.NewOutPoint(&coinbaseHash, 0)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(prevOut, nil))
	tx.AddTxOut(wire.NewTxOut(value, toScript))

	sigScript, err := txscript.SignatureScript(tx, 0, h.spendableTx.TxOut[0].PkScript, h.key, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	tx.TxIn[0].SignatureScript = sigScript

	return tx
}

func TestMaybeAcceptTransactionAcceptsValidSpend(t *testing.T) {
	h := newTestHarness(t)

	tx := h.spendCoinbase(t, []byte{0x51}, 40*1e8)

	missing, desc, err := h.pool.MaybeAcceptTransaction(tx)
	if err != nil {
		t.Fatalf("MaybeAcceptTransaction: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("unexpected missing parents: %v", missing)
	}
	if desc == nil {
		t.Fatal("expected a TxDesc")
	}
	if h.pool.Count() != 1 {
		t.Fatalf("Count: got %d, want 1", h.pool.Count())
	}
}

func TestMaybeAcceptTransactionRejectsDoubleSpend(t *testing.T) {
	h := newTestHarness(t)

	tx1 := h.spendCoinbase(t, []byte{0x51}, 40*1e8)
	if _, _, err := h.pool.MaybeAcceptTransaction(tx1); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	// tx2 pays a lower fee than tx1 (a larger output, same input), so it
	// may not replace it.
	tx2 := h.spendCoinbase(t, []byte{0x51}, 45*1e8)
	if _, _, err := h.pool.MaybeAcceptTransaction(tx2); err == nil {
		t.Fatal("expected the lower-fee conflicting spend to be rejected")
	}
	if h.pool.Count() != 1 {
		t.Fatalf("Count: got %d, want 1", h.pool.Count())
	}
}

// TestMaybeAcceptTransactionReplacesLowerFeeConflict checks that a
// transaction spending an outpoint a pool transaction already claims is
// accepted, evicting the existing one, when it pays a strictly higher fee
// rate.
func TestMaybeAcceptTransactionReplacesLowerFeeConflict(t *testing.T) {
	h := newTestHarness(t)

	tx1 := h.spendCoinbase(t, []byte{0x51}, 40*1e8)
	if _, _, err := h.pool.MaybeAcceptTransaction(tx1); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	tx2 := h.spendCoinbase(t, []byte{0x51}, 10*1e8)
	if _, _, err := h.pool.MaybeAcceptTransaction(tx2); err != nil {
		t.Fatalf("expected the higher-fee replacement to be accepted: %v", err)
	}

	if h.pool.Count() != 1 {
		t.Fatalf("Count: got %d, want 1", h.pool.Count())
	}
	tx1Hash := tx1.TxHash()
	if _, ok := h.pool.FetchTransaction(&tx1Hash); ok {
		t.Fatal("tx1 should have been evicted")
	}
	tx2Hash := tx2.TxHash()
	if _, ok := h.pool.FetchTransaction(&tx2Hash); !ok {
		t.Fatal("tx2 should be in the pool")
	}
}

// TestMaybeAcceptTransactionEvictsForSize checks the pool's aggregate size
// cap: once full, a transaction that cannot outbid the lowest fee-rate
// entry is rejected with ErrMempoolFull, while one that can evicts it and
// is admitted.
func TestMaybeAcceptTransactionEvictsForSize(t *testing.T) {
	h := newTestHarness(t)

	pkHash := chainutil.Hash160(h.key.PubKey().SerializeCompressed())
	addr, err := chainutil.NewAddressPubKeyHash(pkHash, h.params.PubKeyHashAddrID)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("PayToAddrScript: %v", err)
	}

	coinbaseHash := h.spendableTx.TxHash()
	const numOutputs = 5
	funding := wire.NewMsgTx(1)
	funding.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&coinbaseHash, 0), nil))
	for i := 0; i < numOutputs; i++ {
		funding.AddTxOut(wire.NewTxOut(9*1e8, pkScript))
	}
	sigScript, err := txscript.SignatureScript(funding, 0, h.spendableTx.TxOut[0].PkScript, h.key, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	funding.TxIn[0].SignatureScript = sigScript
	if _, _, err := h.pool.MaybeAcceptTransaction(funding); err != nil {
		t.Fatalf("accept funding: %v", err)
	}

	// fees: children[3] pays the least and children[numOutputs-1] the
	// most; of the first three, children[0] pays the least.
	fees := []int64{1 * 1e7, 2 * 1e7, 3 * 1e7, 0.5 * 1e7, 5 * 1e7}
	children := make([]*wire.MsgTx, numOutputs)
	fundingHash := funding.TxHash()
	for i := 0; i < numOutputs; i++ {
		child := wire.NewMsgTx(1)
		child.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&fundingHash, uint32(i)), nil))
		child.AddTxOut(wire.NewTxOut(9*1e8-fees[i], []byte{0x51}))
		sig, err := txscript.SignatureScript(child, 0, pkScript, h.key, true)
		if err != nil {
			t.Fatalf("SignatureScript child %d: %v", i, err)
		}
		child.TxIn[0].SignatureScript = sig
		children[i] = child
	}

	h.pool.cfg.Policy.MaxMempoolBytes = funding.SerializeSize() + 3*children[0].SerializeSize()

	for i := 0; i < 3; i++ {
		if _, _, err := h.pool.MaybeAcceptTransaction(children[i]); err != nil {
			t.Fatalf("accept child %d: %v", i, err)
		}
	}

	// A too-low fee rate cannot evict anything already in the full pool.
	if _, _, err := h.pool.MaybeAcceptTransaction(children[3]); !IsErrorCode(err, ErrMempoolFull) {
		t.Fatalf("expected ErrMempoolFull, got %v", err)
	}

	// A high fee rate evicts the lowest fee-rate entry (children[0]) to
	// make room.
	if _, _, err := h.pool.MaybeAcceptTransaction(children[4]); err != nil {
		t.Fatalf("accept high-fee child: %v", err)
	}
	evicted := children[0].TxHash()
	if _, ok := h.pool.FetchTransaction(&evicted); ok {
		t.Fatal("lowest fee-rate child should have been evicted")
	}
	admitted := children[4].TxHash()
	if _, ok := h.pool.FetchTransaction(&admitted); !ok {
		t.Fatal("high-fee child should be in the pool")
	}
}

func TestMaybeAcceptTransactionRejectsCoinbase(t *testing.T) {
	h := newTestHarness(t)

	cb := wire.NewMsgTx(1)
	cb.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0xffffffff), []byte{0x00, 0x00}))
	cb.AddTxOut(wire.NewTxOut(50*1e8, []byte{0x51}))

	if _, _, err := h.pool.MaybeAcceptTransaction(cb); !IsErrorCode(err, ErrCoinbase) {
		t.Fatalf("expected ErrCoinbase, got %v", err)
	}
}

func TestRemoveTransactionCascadesToRedeemers(t *testing.T) {
	h := newTestHarness(t)

	parent := h.spendCoinbase(t, []byte{0x51}, 40*1e8)
	if _, _, err := h.pool.MaybeAcceptTransaction(parent); err != nil {
		t.Fatalf("accept parent: %v", err)
	}

	child := wire.NewMsgTx(1)
	child.AddTxIn(wire.NewTxIn(wire.NewOutPoint(ptr(parent.TxHash()), 0), nil))
	child.AddTxOut(wire.NewTxOut(39*1e8, []byte{0x51}))
	sigScript, err := txscript.SignatureScript(child, 0, parent.TxOut[0].PkScript, h.key, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	child.TxIn[0].SignatureScript = sigScript

	if _, _, err := h.pool.MaybeAcceptTransaction(child); err != nil {
		t.Fatalf("accept child: %v", err)
	}
	if h.pool.Count() != 2 {
		t.Fatalf("Count before removal: got %d, want 2", h.pool.Count())
	}

	h.pool.RemoveTransaction(parent, true, RemovalReasonConflict)
	if h.pool.Count() != 0 {
		t.Fatalf("Count after cascading removal: got %d, want 0", h.pool.Count())
	}
}

func ptr(h chainhash.Hash) *chainhash.Hash { return &h }
