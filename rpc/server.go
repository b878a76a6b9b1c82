// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc implements Glintchain's operator surface: a small HTTP API
// for start/stop, add-peer, setting the mining reward address, submitting
// a raw transaction or block, and a current-status query, plus a websocket
// stream notifying subscribers of tip changes, rejections, and ban events.
// It is deliberately not a general JSON-RPC command dispatcher; collaborating
// wallets and explorers are expected to read the chain and mempool directly
// rather than through a command surface mirrored here.
package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/connmgr"
	"github.com/glintchain/glintd/mempool"
	"github.com/glintchain/glintd/mining"
	"github.com/glintchain/glintd/peer"
	"github.com/glintchain/glintd/wire"
)

// Config supplies a Server with the subsystems its handlers act on. Any
// field may be left nil; the corresponding handlers then respond with 503
// instead of panicking.
type Config struct {
	ListenAddr  string
	ChainParams *chaincfg.Params
	Chain       *blockchain.BlockChain
	TxPool      *mempool.TxPool
	Miner       *mining.CPUMiner
	ConnMgr     *connmgr.ConnManager
	Bans        *peer.BanList
}

// Server is the operator-facing HTTP and websocket surface.
type Server struct {
	cfg Config
	hub *hub
	srv *http.Server
}

// NewServer builds a Server around cfg. Call Start to begin listening.
func NewServer(cfg Config) *Server {
	s := &Server{cfg: cfg, hub: newHub()}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/peers", s.handleAddPeer)
	mux.HandleFunc("/payto", s.handleSetPayToAddress)
	mux.HandleFunc("/balance", s.handleBalance)
	mux.HandleFunc("/submit/tx", s.handleSubmitTx)
	mux.HandleFunc("/submit/block", s.handleSubmitBlock)
	mux.HandleFunc("/ws", s.hub.serveWS)

	s.srv = &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	return s
}

// Start begins serving in the background. It returns once the listener is
// bound, or with the bind error if one occurred.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("rpc: listen: %w", err)
	}

	go s.hub.run()
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("rpc server error: %v", err)
		}
	}()

	log.Infof("rpc server listening on %s", ln.Addr())
	return nil
}

// Stop shuts the HTTP server down gracefully and stops the notification
// hub.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	s.hub.stop()
	return err
}

// NotifyTipChanged broadcasts a new best-chain tip to every status-stream
// subscriber. Called by whatever observes BlockChain.ProcessBlock outcomes.
func (s *Server) NotifyTipChanged(hash string, height int32, cumulativeWork string) {
	s.hub.notify(Notification{Type: NotifyTipChanged, Data: TipChangedEvent{
		Hash: hash, Height: height, CumulativeWork: cumulativeWork,
	}})
}

// NotifyRejection broadcasts a transaction or block that failed
// acceptance. kind is "tx" or "block".
func (s *Server) NotifyRejection(hash, kind, reason string) {
	s.hub.notify(Notification{Type: NotifyRejection, Data: RejectionEvent{
		Hash: hash, Kind: kind, Reason: reason,
	}})
}

// NotifyBan broadcasts a peer address crossing the ban threshold.
func (s *Server) NotifyBan(addr, reason string) {
	s.hub.notify(Notification{Type: NotifyBanEvent, Data: BanEvent{
		Addr: addr, Reason: reason,
	}})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Chain == nil {
		http.Error(w, "chain unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := StatusResponse{
		TipHash:        s.cfg.Chain.BestHash().String(),
		Height:         s.cfg.Chain.BestHeight(),
		CumulativeWork: s.cfg.Chain.BestWork().String(),
	}
	if s.cfg.TxPool != nil {
		resp.MempoolSize = s.cfg.TxPool.Count()
	}
	if s.cfg.ConnMgr != nil {
		resp.PeerCount = s.cfg.ConnMgr.ConnectedCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Miner == nil {
		http.Error(w, "miner unavailable", http.StatusServiceUnavailable)
		return
	}
	s.cfg.Miner.Start()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Miner == nil {
		http.Error(w, "miner unavailable", http.StatusServiceUnavailable)
		return
	}
	s.cfg.Miner.Stop()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSetPayToAddress(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Miner == nil || s.cfg.ChainParams == nil {
		http.Error(w, "miner unavailable", http.StatusServiceUnavailable)
		return
	}
	var req SetPayToAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	addr, err := chainutil.DecodeAddress(req.Addr, s.cfg.ChainParams.PubKeyHashAddrID)
	if err != nil {
		http.Error(w, "bad address: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.cfg.Miner.SetPayToAddress(addr)
	w.WriteHeader(http.StatusOK)
}

// handleBalance answers ?addr=... with the sum of every unspent output in
// the best chain's UTXO set that pays it, derived from the UTXO set's own
// script_pubkey entries rather than a maintained ledger.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Chain == nil || s.cfg.ChainParams == nil {
		http.Error(w, "chain unavailable", http.StatusServiceUnavailable)
		return
	}
	addrStr := r.URL.Query().Get("addr")
	addr, err := chainutil.DecodeAddress(addrStr, s.cfg.ChainParams.PubKeyHashAddrID)
	if err != nil {
		http.Error(w, "bad address: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Addr:    addrStr,
		Balance: s.cfg.Chain.Balance(addr),
	})
}

func (s *Server) handleAddPeer(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ConnMgr == nil {
		http.Error(w, "connection manager unavailable", http.StatusServiceUnavailable)
		return
	}
	var req AddPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	addr, err := net.ResolveTCPAddr("tcp", req.Addr)
	if err != nil {
		http.Error(w, "bad address: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.cfg.ConnMgr.Connect(&connmgr.ConnReq{Addr: addr, Permanent: req.Permanent})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	if s.cfg.TxPool == nil {
		http.Error(w, "mempool unavailable", http.StatusServiceUnavailable)
		return
	}
	var req SubmitTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := hex.DecodeString(req.Hex)
	if err != nil {
		http.Error(w, "bad hex: "+err.Error(), http.StatusBadRequest)
		return
	}

	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		http.Error(w, "bad transaction: "+err.Error(), http.StatusBadRequest)
		return
	}

	_, desc, err := s.cfg.TxPool.MaybeAcceptTransaction(&tx)
	if err != nil {
		hash := tx.TxHash()
		s.NotifyRejection(hash.String(), "tx", err.Error())
		http.Error(w, "rejected: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"txid": desc.Tx.TxHash().String()})
}

func (s *Server) handleSubmitBlock(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Chain == nil {
		http.Error(w, "chain unavailable", http.StatusServiceUnavailable)
		return
	}
	var req SubmitBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := hex.DecodeString(req.Hex)
	if err != nil {
		http.Error(w, "bad hex: "+err.Error(), http.StatusBadRequest)
		return
	}

	var block wire.MsgBlock
	if err := block.Deserialize(bytes.NewReader(raw)); err != nil {
		http.Error(w, "bad block: "+err.Error(), http.StatusBadRequest)
		return
	}

	isOrphan, err := s.cfg.Chain.ProcessBlock(&block)
	if err != nil {
		hash := block.Header.BlockHash()
		s.NotifyRejection(hash.String(), "block", err.Error())
		http.Error(w, "rejected: "+err.Error(), http.StatusBadRequest)
		return
	}

	hash := block.Header.BlockHash()
	if !isOrphan {
		s.NotifyTipChanged(hash.String(), s.cfg.Chain.BestHeight(), s.cfg.Chain.BestWork().String())
		if s.cfg.TxPool != nil {
			if disconnected := s.cfg.Chain.TakeDisconnectedTransactions(); len(disconnected) > 0 {
				s.cfg.TxPool.ProcessDisconnectedTransactions(disconnected)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hash":     hash.String(),
		"isOrphan": isOrphan,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
