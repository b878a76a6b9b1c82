// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/mempool"
	"github.com/glintchain/glintd/peer"
	"github.com/glintchain/glintd/wire"
	"github.com/stretchr/testify/require"
)

// noopNotifier satisfies PeerNotifier without doing anything, for tests that
// don't care about relay/announce side effects.
type noopNotifier struct{}

func (noopNotifier) AnnounceNewTransactions(newTxs []*mempool.TxDesc)                  {}
func (noopNotifier) UpdatePeerHeights(hash chainhash.Hash, height int32, p *peer.Peer) {}
func (noopNotifier) RelayInventory(iv *wire.InvVect, data interface{})                 {}
func (noopNotifier) TransactionConfirmed(tx *wire.MsgTx)                               {}

// mineBlock solves block in place against its own declared difficulty bits.
func mineBlock(t *testing.T, block *wire.MsgBlock) {
	t.Helper()
	target := blockchain.CompactToBig(block.Header.Bits)
	for nonce := uint32(0); nonce < 1_000_000; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		if blockchain.HashToBig(&hash).Cmp(target) <= 0 {
			return
		}
	}
	t.Fatal("failed to find a valid nonce within the test bound")
}

// coinbaseBlock builds a single-transaction block extending prevHash at
// height, with bits held at the network's unretargeted starting difficulty
// (regtest never hits a retarget boundary at these heights).
func coinbaseBlock(t *testing.T, params *chaincfg.Params, prevHash chainhash.Hash, height int32, ts time.Time) *wire.MsgBlock {
	t.Helper()

	cb := wire.NewMsgTx(1)
	cb.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, blockchain.CoinbasePrevOutIndex), []byte{0x51, 0x51}))
	cb.AddTxOut(wire.NewTxOut(blockchain.CalcBlockSubsidy(height, params), []byte{0x51}))

	root, err := blockchain.CalcMerkleRoot([]*wire.MsgTx{cb})
	require.NoError(t, err)

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  prevHash,
			MerkleRoot: root,
			Timestamp:  ts,
			Bits:       params.PowLimitBits,
		},
		Transactions: []*wire.MsgTx{cb},
	}
	mineBlock(t, block)
	return block
}

func newTestChain(t *testing.T) (*blockchain.BlockChain, *chaincfg.Params) {
	t.Helper()
	params := chaincfg.RegressionNetParams
	chain, err := blockchain.New(&params)
	require.NoError(t, err)
	return chain, &params
}

func newTestManager(t *testing.T, chain *blockchain.BlockChain, params *chaincfg.Params) *SyncManager {
	t.Helper()
	pool := mempool.New(mempool.Config{
		Policy:      mempool.DefaultPolicy(),
		ChainParams: params,
		Chain:       chain,
	})
	mgr := New(Config{
		Chain:        chain,
		TxMemPool:    pool,
		ChainParams:  params,
		FeeEstimator: mempool.NewFeeEstimator(100, 1),
		PeerNotifier: noopNotifier{},
	})
	mgr.Start()
	t.Cleanup(mgr.Stop)
	return mgr
}

func testPeerConfig(params *chaincfg.Params, h peer.Handler) peer.Config {
	return peer.Config{
		ChainParams:      params,
		UserAgentName:    "glintd-test",
		UserAgentVersion: "0.0.0",
		Listeners:        h,
		BestHeight:       func() int32 { return 0 },
		HandshakeTimeout: 2 * time.Second,
		PingInterval:     time.Hour,
		PingTimeout:      2 * time.Second,
	}
}

// TestSyncManagerCatchesUpFromGenesis drives a real headers-first sync over
// an in-memory connection: a node with several blocks already connected,
// and a bare node starting from genesis, wired together through their own
// SyncManagers and a handshaken peer.Peer pair. It asserts the bare node's
// chain converges to the same tip.
func TestSyncManagerCatchesUpFromGenesis(t *testing.T) {
	seedChain, params := newTestChain(t)

	ts := seedChain.Tip().Header().Timestamp
	const wantHeight = 5
	for h := int32(1); h <= wantHeight; h++ {
		ts = ts.Add(time.Minute)
		block := coinbaseBlock(t, params, seedChain.BestHash(), h, ts)
		_, err := seedChain.ProcessBlock(block)
		require.NoError(t, err)
	}
	require.Equal(t, int32(wantHeight), seedChain.BestHeight())

	freshChain, err := blockchain.New(params)
	require.NoError(t, err)

	seedMgr := newTestManager(t, seedChain, params)
	freshMgr := newTestManager(t, freshChain, params)

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	seedSide := peer.NewInboundPeer(a, testPeerConfig(params, seedMgr))
	freshSide := peer.NewOutboundPeer(b, testPeerConfig(params, freshMgr))

	handshakeErrs := make(chan error, 2)
	go func() { handshakeErrs <- seedSide.Handshake() }()
	go func() { handshakeErrs <- freshSide.Handshake() }()
	require.NoError(t, <-handshakeErrs)
	require.NoError(t, <-handshakeErrs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go seedSide.Run(ctx)
	go freshSide.Run(ctx)

	seedMgr.NewPeer(seedSide)
	freshMgr.NewPeer(freshSide)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if freshChain.BestHash() == seedChain.BestHash() {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, seedChain.BestHash(), freshChain.BestHash())
	require.Equal(t, seedChain.BestHeight(), freshChain.BestHeight())
}

// TestOnHeadersRejectsDiscontinuousChain exercises the synchronous
// validation path a malicious or buggy peer's headers message takes: a
// batch whose second header does not extend the first is refused before it
// ever reaches the event loop, and the peer layer ban-scores it.
func TestOnHeadersRejectsDiscontinuousChain(t *testing.T) {
	chain, params := newTestChain(t)
	mgr := newTestManager(t, chain, params)

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go io.Copy(io.Discard, b)

	p := peer.NewInboundPeer(a, testPeerConfig(params, mgr))

	ts := chain.Tip().Header().Timestamp.Add(time.Minute)
	first := coinbaseBlock(t, params, chain.BestHash(), 1, ts)
	second := coinbaseBlock(t, params, chainhash.Hash{1, 2, 3}, 2, ts.Add(time.Minute))

	msg := wire.NewMsgHeaders()
	require.NoError(t, msg.AddBlockHeader(&first.Header))
	require.NoError(t, msg.AddBlockHeader(&second.Header))

	err := mgr.OnHeaders(p, msg)
	require.Error(t, err)
}

// TestSyncManagerServesGetHeaders exercises the passive side of headers-first
// sync: a node with a short chain answers a genesis-only locator with every
// header after genesis, in ascending order.
func TestSyncManagerServesGetHeaders(t *testing.T) {
	chain, params := newTestChain(t)
	mgr := newTestManager(t, chain, params)

	ts := chain.Tip().Header().Timestamp
	var headers []wire.BlockHeader
	for h := int32(1); h <= 3; h++ {
		ts = ts.Add(time.Minute)
		block := coinbaseBlock(t, params, chain.BestHash(), h, ts)
		_, err := chain.ProcessBlock(block)
		require.NoError(t, err)
		headers = append(headers, block.Header)
	}

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	p := peer.NewInboundPeer(a, testPeerConfig(params, mgr))

	req := wire.NewMsgGetHeaders()
	genesisHash := params.GenesisBlock.BlockHash()
	require.NoError(t, req.AddBlockLocatorHash(&genesisHash))

	replyCh := make(chan *wire.MsgHeaders, 1)
	go func() {
		msg, _, err := wire.ReadMessage(b, wire.ProtocolVersion, params.Net)
		require.NoError(t, err)
		headersMsg, ok := msg.(*wire.MsgHeaders)
		require.True(t, ok)
		replyCh <- headersMsg
	}()

	require.NoError(t, mgr.OnGetHeaders(p, req))

	select {
	case got := <-replyCh:
		require.Len(t, got.Headers, len(headers))
		for i, h := range headers {
			require.Equal(t, h.BlockHash(), got.Headers[i].BlockHash())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("getheaders was never answered")
	}
}
