// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
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
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestChain(t *testing.T) (*blockchain.BlockChain, *chaincfg.Params) {
	t.Helper()
	params := chaincfg.RegressionNetParams
	chain, err := blockchain.New(&params)
	require.NoError(t, err)
	return chain, &params
}

// TestStatusReportsTipAndMempoolSize checks handleStatus reflects the
// chain's tip and a pool's pending transaction count.
func TestStatusReportsTipAndMempoolSize(t *testing.T) {
	chain, params := newTestChain(t)
	pool := mempool.New(mempool.Config{
		Policy:      mempool.DefaultPolicy(),
		ChainParams: params,
		Chain:       chain,
	})

	addr := "127.0.0.1:18801"
	s := NewServer(Config{ListenAddr: addr, ChainParams: params, Chain: chain, TxPool: pool})
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })

	waitForServer(t, addr)

	resp, err := http.Get("http://" + addr + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, chain.BestHash().String(), status.TipHash)
	require.Equal(t, chain.BestHeight(), status.Height)
	require.Equal(t, 0, status.MempoolSize)
}

// TestSubmitTxRejectsCoinbase exercises the submit-tx path's error
// reporting for a transaction the pool must refuse.
func TestSubmitTxRejectsCoinbase(t *testing.T) {
	chain, params := newTestChain(t)
	pool := mempool.New(mempool.Config{
		Policy:      mempool.DefaultPolicy(),
		ChainParams: params,
		Chain:       chain,
	})

	addr := "127.0.0.1:18802"
	s := NewServer(Config{ListenAddr: addr, ChainParams: params, Chain: chain, TxPool: pool})
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })
	waitForServer(t, addr)

	cb := wire.NewMsgTx(1)
	cb.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, blockchain.CoinbasePrevOutIndex), []byte{0x51}))
	cb.AddTxOut(wire.NewTxOut(5_000_000_000, []byte{0x51}))

	var buf bytes.Buffer
	require.NoError(t, cb.Serialize(&buf))

	body, err := json.Marshal(SubmitTxRequest{Hex: hex.EncodeToString(buf.Bytes())})
	require.NoError(t, err)

	resp, err := http.Post("http://"+addr+"/submit/tx", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestHandleBalanceSumsMatchingUtxos mines a coinbase paying a known
// address and checks /balance reports its full subsidy.
func TestHandleBalanceSumsMatchingUtxos(t *testing.T) {
	chain, params := newTestChain(t)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	pkHash := chainutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := chainutil.NewAddressPubKeyHash(pkHash, params.PubKeyHashAddrID)
	require.NoError(t, err)
	pkScript, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)

	tip := chain.Tip()
	bits, err := chain.CalcNextRequiredDifficulty(tip, tip.Header().Timestamp.Add(time.Minute))
	require.NoError(t, err)

	cb := wire.NewMsgTx(1)
	cb.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, blockchain.CoinbasePrevOutIndex), []byte{0x01}))
	cb.AddTxOut(wire.NewTxOut(blockchain.CalcBlockSubsidy(1, params), pkScript))

	root, err := blockchain.CalcMerkleRoot([]*wire.MsgTx{cb})
	require.NoError(t, err)

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  chain.BestHash(),
			MerkleRoot: root,
			Timestamp:  tip.Header().Timestamp.Add(time.Minute),
			Bits:       bits,
		},
		Transactions: []*wire.MsgTx{cb},
	}
	target := blockchain.CompactToBig(bits)
	for nonce := uint32(0); nonce < 1_000_000; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		if blockchain.HashToBig(&hash).Cmp(target) <= 0 {
			break
		}
	}
	_, err = chain.ProcessBlock(block)
	require.NoError(t, err)

	srvAddr := "127.0.0.1:18804"
	s := NewServer(Config{ListenAddr: srvAddr, ChainParams: params, Chain: chain})
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })
	waitForServer(t, srvAddr)

	resp, err := http.Get("http://" + srvAddr + "/balance?addr=" + addr.EncodeAddress())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bal BalanceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bal))
	require.Equal(t, blockchain.CalcBlockSubsidy(1, params), bal.Balance)
}

// TestWebsocketReceivesTipChangedNotification checks a status-stream
// subscriber is notified when NotifyTipChanged fires.
func TestWebsocketReceivesTipChangedNotification(t *testing.T) {
	addr := "127.0.0.1:18803"
	s := NewServer(Config{ListenAddr: addr})
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })
	waitForServer(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the hub a moment to register the client before broadcasting.
	time.Sleep(50 * time.Millisecond)
	s.NotifyTipChanged("deadbeef", 7, "100")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var n Notification
	require.NoError(t, conn.ReadJSON(&n))
	require.Equal(t, NotifyTipChanged, n.Type)
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := (&http.Client{Timeout: 50 * time.Millisecond}).Get("http://" + addr + "/status")
		if err == nil {
			conn.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
