// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/crypto"
	"github.com/glintchain/glintd/txscript"
	"github.com/glintchain/glintd/wire"
)

// coinbaseTx returns a single-input, single-output coinbase transaction
// paying height's subsidy to an arbitrary, unchecked locking script.
func coinbaseTx(height int32, params *chaincfg.Params, extra byte) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	sigScript := []byte{byte(height), byte(height >> 8), extra}
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0xffffffff), sigScript))
	tx.AddTxOut(wire.NewTxOut(CalcBlockSubsidy(height, params), []byte{0x51}))
	return tx
}

// mineBlock builds and proof-of-work-solves a block extending parent, with
// the given transactions and timestamp.
func mineBlock(t *testing.T, b *BlockChain, parent *blockNode, txs []*wire.MsgTx, timestamp time.Time) *wire.MsgBlock {
	t.Helper()

	bits, err := b.CalcNextRequiredDifficulty(parent, timestamp)
	if err != nil {
		t.Fatalf("CalcNextRequiredDifficulty: %v", err)
	}

	merkleRoot, err := CalcMerkleRoot(txs)
	if err != nil {
		t.Fatalf("CalcMerkleRoot: %v", err)
	}

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  parent.hash,
			MerkleRoot: merkleRoot,
			Timestamp:  timestamp,
			Bits:       bits,
		},
		Transactions: txs,
	}

	target := CompactToBig(bits)
	for nonce := uint32(0); nonce < 1_000_000; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		if HashToBig(&hash).Cmp(target) <= 0 {
			return block
		}
	}
	t.Fatal("failed to find a passing nonce within the search bound")
	return nil
}

func newTestChain(t *testing.T) *BlockChain {
	t.Helper()
	params := chaincfg.RegressionNetParams
	b, err := New(&params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestProcessBlockExtendsTip(t *testing.T) {
	b := newTestChain(t)
	tip := b.Tip()

	for i := int32(1); i <= 3; i++ {
		ts := tip.timestamp.Add(time.Duration(i) * time.Minute)
		block := mineBlock(t, b, tip, []*wire.MsgTx{coinbaseTx(i, b.chainParams, 0)}, ts)

		isOrphan, err := b.ProcessBlock(block)
		if err != nil {
			t.Fatalf("ProcessBlock height %d: %v", i, err)
		}
		if isOrphan {
			t.Fatalf("ProcessBlock height %d: unexpectedly orphaned", i)
		}

		if b.BestHeight() != i {
			t.Fatalf("BestHeight: got %d, want %d", b.BestHeight(), i)
		}
		tip = b.Tip()
	}
}

func TestProcessBlockOrphanThenConnect(t *testing.T) {
	b := newTestChain(t)
	genesis := b.Tip()

	ts1 := genesis.timestamp.Add(time.Minute)
	block1 := mineBlock(t, b, genesis, []*wire.MsgTx{coinbaseTx(1, b.chainParams, 0)}, ts1)

	node1 := newBlockNode(&block1.Header, genesis)
	ts2 := ts1.Add(time.Minute)
	block2 := mineBlock(t, b, node1, []*wire.MsgTx{coinbaseTx(2, b.chainParams, 0)}, ts2)

	isOrphan, err := b.ProcessBlock(block2)
	if err != nil {
		t.Fatalf("ProcessBlock(block2): %v", err)
	}
	if !isOrphan {
		t.Fatal("ProcessBlock(block2): expected orphan since its parent is unknown")
	}
	if b.BestHeight() != 0 {
		t.Fatalf("BestHeight should remain 0 while block2 is an orphan, got %d", b.BestHeight())
	}

	isOrphan, err = b.ProcessBlock(block1)
	if err != nil {
		t.Fatalf("ProcessBlock(block1): %v", err)
	}
	if isOrphan {
		t.Fatal("ProcessBlock(block1): should not be an orphan")
	}

	if b.BestHeight() != 2 {
		t.Fatalf("BestHeight after orphan resolves: got %d, want 2", b.BestHeight())
	}
	if b.BestHash() != block2.Header.BlockHash() {
		t.Fatal("BestHash should be block2's hash once the orphan chain connects")
	}
}

func TestProcessBlockReorgToMoreWork(t *testing.T) {
	b := newTestChain(t)
	genesis := b.Tip()

	ts := genesis.timestamp.Add(time.Minute)
	blockA1 := mineBlock(t, b, genesis, []*wire.MsgTx{coinbaseTx(1, b.chainParams, 0xa1)}, ts)
	if _, err := b.ProcessBlock(blockA1); err != nil {
		t.Fatalf("ProcessBlock(A1): %v", err)
	}

	if b.BestHash() != blockA1.Header.BlockHash() {
		t.Fatal("expected chain A to be the best chain after its first block")
	}

	// Build a competing two-block branch off genesis; once its second
	// block connects it carries more cumulative work than chain A and
	// should trigger a reorg.
	ts1 := genesis.timestamp.Add(2 * time.Minute)
	blockB1 := mineBlock(t, b, genesis, []*wire.MsgTx{coinbaseTx(1, b.chainParams, 0xb1)}, ts1)
	nodeB1 := newBlockNode(&blockB1.Header, genesis)

	ts2 := ts1.Add(time.Minute)
	blockB2 := mineBlock(t, b, nodeB1, []*wire.MsgTx{coinbaseTx(2, b.chainParams, 0xb2)}, ts2)

	if _, err := b.ProcessBlock(blockB1); err != nil {
		t.Fatalf("ProcessBlock(B1): %v", err)
	}
	if b.BestHash() != blockA1.Header.BlockHash() {
		t.Fatal("chain A should remain best while chain B has equal height but arrived later")
	}

	if _, err := b.ProcessBlock(blockB2); err != nil {
		t.Fatalf("ProcessBlock(B2): %v", err)
	}

	if b.BestHash() != blockB2.Header.BlockHash() {
		t.Fatal("expected reorg onto chain B once it had more cumulative work")
	}
	if b.BestHeight() != 2 {
		t.Fatalf("BestHeight after reorg: got %d, want 2", b.BestHeight())
	}
}

// TestReorgReturnsDisconnectedTransactions matures a coinbase, spends it
// in a block on the shorter of two competing branches, then lets the
// longer branch overtake it and checks that the spend surfaces through
// TakeDisconnectedTransactions rather than disappearing.
func TestReorgReturnsDisconnectedTransactions(t *testing.T) {
	b := newTestChain(t)

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	pkHash := chainutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := chainutil.NewAddressPubKeyHash(pkHash, b.chainParams.PubKeyHashAddrID)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("PayToAddrScript: %v", err)
	}

	var spendable *wire.MsgTx
	for i := int32(1); i <= int32(b.chainParams.CoinbaseMaturity)+1; i++ {
		tip := b.Tip()
		ts := tip.timestamp.Add(time.Minute)
		out := []byte{0x51}
		if i == 1 {
			out = pkScript
		}
		cb := wire.NewMsgTx(1)
		cb.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0xffffffff), []byte{byte(i), byte(i >> 8)}))
		cb.AddTxOut(wire.NewTxOut(CalcBlockSubsidy(i, b.chainParams), out))
		if i == 1 {
			spendable = cb
		}

		block := mineBlock(t, b, tip, []*wire.MsgTx{cb}, ts)
		if _, err := b.ProcessBlock(block); err != nil {
			t.Fatalf("ProcessBlock height %d: %v", i, err)
		}
	}
	tip := b.Tip()

	coinbaseHash := spendable.TxHash()
	spend := wire.NewMsgTx(1)
	spend.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&coinbaseHash, 0), nil))
	spend.AddTxOut(wire.NewTxOut(spendable.TxOut[0].Value, []byte{0x51}))
	sigScript, err := txscript.SignatureScript(spend, 0, pkScript, key, true)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	spend.TxIn[0].SignatureScript = sigScript

	height := tip.height + 1
	tsX := tip.timestamp.Add(time.Minute)
	blockX := mineBlock(t, b, tip, []*wire.MsgTx{coinbaseTx(height, b.chainParams, 0xc1), spend}, tsX)
	if _, err := b.ProcessBlock(blockX); err != nil {
		t.Fatalf("ProcessBlock(X): %v", err)
	}
	if b.BestHash() != blockX.Header.BlockHash() {
		t.Fatal("expected branch X to become the best chain once it extends the tip")
	}

	tsY1 := tip.timestamp.Add(2 * time.Minute)
	blockY1 := mineBlock(t, b, tip, []*wire.MsgTx{coinbaseTx(height, b.chainParams, 0xd1)}, tsY1)
	nodeY1 := newBlockNode(&blockY1.Header, tip)
	if _, err := b.ProcessBlock(blockY1); err != nil {
		t.Fatalf("ProcessBlock(Y1): %v", err)
	}
	if b.BestHash() != blockX.Header.BlockHash() {
		t.Fatal("branch X should remain best while branch Y has equal height but arrived later")
	}

	tsY2 := tsY1.Add(time.Minute)
	blockY2 := mineBlock(t, b, nodeY1, []*wire.MsgTx{coinbaseTx(height+1, b.chainParams, 0xd2)}, tsY2)
	if _, err := b.ProcessBlock(blockY2); err != nil {
		t.Fatalf("ProcessBlock(Y2): %v", err)
	}
	if b.BestHash() != blockY2.Header.BlockHash() {
		t.Fatal("expected reorg onto branch Y once it had more cumulative work")
	}

	disconnected := b.TakeDisconnectedTransactions()
	if len(disconnected) != 1 {
		t.Fatalf("TakeDisconnectedTransactions: got %d transactions, want 1", len(disconnected))
	}
	if disconnected[0].TxHash() != spend.TxHash() {
		t.Fatal("disconnected transaction should be the spend from branch X's block")
	}

	if more := b.TakeDisconnectedTransactions(); len(more) != 0 {
		t.Fatal("TakeDisconnectedTransactions should return nothing once already drained")
	}
}

func TestCalcBlockSubsidyHalving(t *testing.T) {
	params := &chaincfg.MainNetParams

	if got := CalcBlockSubsidy(0, params); got != 50*1e8 {
		t.Errorf("CalcBlockSubsidy(0): got %d, want %d", got, 50*1e8)
	}
	if got := CalcBlockSubsidy(params.SubsidyReductionInterval-1, params); got != 50*1e8 {
		t.Errorf("CalcBlockSubsidy(interval-1): got %d, want %d", got, 50*1e8)
	}
	if got := CalcBlockSubsidy(params.SubsidyReductionInterval, params); got != 25*1e8 {
		t.Errorf("CalcBlockSubsidy(interval): got %d, want %d", got, 25*1e8)
	}
	if got := CalcBlockSubsidy(params.SubsidyReductionInterval*2, params); got != 1250000000 {
		t.Errorf("CalcBlockSubsidy(2*interval): got %d, want %d", got, 1250000000)
	}
}

func TestCalcBlockSubsidyReachesZero(t *testing.T) {
	params := &chaincfg.MainNetParams
	height := params.SubsidyReductionInterval * 64
	if got := CalcBlockSubsidy(height, params); got != 0 {
		t.Errorf("CalcBlockSubsidy at 64 halvings: got %d, want 0", got)
	}
}
