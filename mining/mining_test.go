// Copyright (c) 2014-2017 The btcsuite developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"
	"time"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/crypto"
	"github.com/glintchain/glintd/mempool"
	"github.com/glintchain/glintd/txscript"
	"github.com/glintchain/glintd/wire"
)

// mineBlock solves block in place against its own declared difficulty, for
// tests that need a connectable chain without running a full miner.
func mineBlock(t *testing.T, block *wire.MsgBlock) {
	t.Helper()
	target := blockchain.CompactToBig(block.Header.Bits)
	for nonce := uint32(0); nonce < 10_000_000; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		if blockchain.HashToBig(&hash).Cmp(target) <= 0 {
			return
		}
	}
	t.Fatal("failed to find a valid nonce within the test bound")
}

func newRegtestChain(t *testing.T) (*blockchain.BlockChain, *chaincfg.Params) {
	t.Helper()
	params := chaincfg.RegressionNetParams
	chain, err := blockchain.New(&params)
	if err != nil {
		t.Fatalf("blockchain.New: %v", err)
	}
	return chain, &params
}

func TestNewBlockTemplateBuildsOnTip(t *testing.T) {
	chain, params := newRegtestChain(t)
	pool := mempool.New(mempool.Config{
		Policy:      mempool.DefaultPolicy(),
		ChainParams: params,
		Chain:       chain,
	})

	gen := NewBlkTmplGenerator(&Policy{BlockMaxSize: blockchain.MaxBlockSize}, params, pool, chain)

	template, err := gen.NewBlockTemplate(nil, 0)
	if err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}
	if template.Height != 1 {
		t.Fatalf("Height: got %d, want 1", template.Height)
	}
	if len(template.Block.Transactions) != 1 {
		t.Fatalf("expected only the coinbase, got %d transactions", len(template.Block.Transactions))
	}
	wantSubsidy := blockchain.CalcBlockSubsidy(1, params)
	if got := template.Block.Transactions[0].TxOut[0].Value; got != wantSubsidy {
		t.Fatalf("coinbase value: got %d, want %d", got, wantSubsidy)
	}
	if template.Block.Header.PrevBlock != chain.BestHash() {
		t.Fatal("template does not build on the chain's current tip")
	}
}

func TestNewBlockTemplateIncludesMempoolTransactions(t *testing.T) {
	chain, params := newRegtestChain(t)

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

	pool := mempool.New(mempool.Config{
		Policy:      mempool.DefaultPolicy(),
		ChainParams: params,
		Chain:       chain,
	})

	// Mine coinbases until one matures, paying the test key on the very
	// first block.
	var spendable *wire.MsgTx
	ts := chain.Tip().Header().Timestamp
	for i := int32(1); i <= int32(params.CoinbaseMaturity)+1; i++ {
		ts = ts.Add(time.Minute)
		cb := wire.NewMsgTx(1)
		cb.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, blockchain.CoinbasePrevOutIndex), []byte{byte(i), byte(i >> 8)}))
		out := pkScript
		if i != 1 {
			out = []byte{0x51}
		}
		cb.AddTxOut(wire.NewTxOut(blockchain.CalcBlockSubsidy(i, params), out))
		if i == 1 {
			spendable = cb
		}

		bits, err := chain.CalcNextRequiredDifficulty(chain.Tip(), ts)
		if err != nil {
			t.Fatalf("CalcNextRequiredDifficulty: %v", err)
		}
		root, err := blockchain.CalcMerkleRoot([]*wire.MsgTx{cb})
		if err != nil {
			t.Fatalf("CalcMerkleRoot: %v", err)
		}
		block := &wire.MsgBlock{
			Header: wire.BlockHeader{
				Version:    1,
				PrevBlock:  chain.BestHash(),
				MerkleRoot: root,
				Timestamp:  ts,
				Bits:       bits,
			},
			Transactions: []*wire.MsgTx{cb},
		}
		mineBlock(t, block)
		if _, err := chain.ProcessBlock(block); err != nil {
			t.Fatalf("ProcessBlock: %v", err)
		}
	}

	coinbaseHash := spendable.TxHash()
	spend := wire.NewMsgTx(1)
	spend.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&coinbaseHash, 0), nil))
	spend.AddTxOut(wire.NewTxOut(40*1e8, []byte{0x51}))
	sigScript, err := txscript.SignatureScript(spend, 0, spendable.TxOut[0].PkScript, key, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	spend.TxIn[0].SignatureScript = sigScript

	if _, _, err := pool.MaybeAcceptTransaction(spend); err != nil {
		t.Fatalf("MaybeAcceptTransaction: %v", err)
	}

	gen := NewBlkTmplGenerator(&Policy{BlockMaxSize: blockchain.MaxBlockSize}, params, pool, chain)
	template, err := gen.NewBlockTemplate(nil, 0)
	if err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}
	if len(template.Block.Transactions) != 2 {
		t.Fatalf("expected coinbase + 1 pooled transaction, got %d", len(template.Block.Transactions))
	}
	if template.Block.Transactions[1].TxHash() != spend.TxHash() {
		t.Fatal("template did not include the pooled transaction")
	}

	wantCoinbase := blockchain.CalcBlockSubsidy(template.Height, params)
	if template.Fees[0] >= 0 {
		t.Fatalf("coinbase fee entry should be negative, got %d", template.Fees[0])
	}
	gotCoinbaseValue := template.Block.Transactions[0].TxOut[0].Value
	if gotCoinbaseValue <= wantCoinbase {
		t.Fatalf("coinbase value %d does not include the pooled transaction's fee", gotCoinbaseValue)
	}
}

func TestUpdateExtraNonceChangesMerkleRoot(t *testing.T) {
	chain, params := newRegtestChain(t)
	pool := mempool.New(mempool.Config{
		Policy:      mempool.DefaultPolicy(),
		ChainParams: params,
		Chain:       chain,
	})
	gen := NewBlkTmplGenerator(&Policy{BlockMaxSize: blockchain.MaxBlockSize}, params, pool, chain)

	template, err := gen.NewBlockTemplate(nil, 0)
	if err != nil {
		t.Fatalf("NewBlockTemplate: %v", err)
	}
	before := template.Block.Header.MerkleRoot

	if err := UpdateExtraNonce(template, 1); err != nil {
		t.Fatalf("UpdateExtraNonce: %v", err)
	}
	if template.Block.Header.MerkleRoot == before {
		t.Fatal("merkle root did not change after the coinbase was mutated")
	}
}

func TestCPUMinerMinesAndStops(t *testing.T) {
	chain, params := newRegtestChain(t)
	pool := mempool.New(mempool.Config{
		Policy:      mempool.DefaultPolicy(),
		ChainParams: params,
		Chain:       chain,
	})

	miner := New(Config{
		Policy:      DefaultPolicy(),
		ChainParams: params,
		Chain:       chain,
		TxSource:    pool,
		NumWorkers:  1,
	})

	miner.Start()
	defer miner.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for chain.BestHeight() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if chain.BestHeight() < 1 {
		t.Fatal("miner did not extend the chain within the deadline")
	}
}
