// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/connmgr"
	"github.com/glintchain/glintd/mempool"
	"github.com/glintchain/glintd/mining"
	"github.com/glintchain/glintd/peer"
	"github.com/glintchain/glintd/rpc"
	"github.com/glintchain/glintd/store"
)

func main() {
	// Up to the caller of main to use os.Exit when fmain returns a
	// non-nil error; calling it here would skip every deferred function
	// fmain itself set up.
	if err := fmain(); err != nil {
		os.Exit(1)
	}
}

func fmain() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	debug.SetGCPercent(10)

	w, err := initLogRotator(cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init log rotator: %v\n", err)
		return err
	}
	setLogLevels(w, cfg.DebugLevel)
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	interrupt := interruptListener()
	defer log.Infof("shutdown complete")

	log.Infof("glintd starting (%s, data dir %s)", cfg.chainParams.Name, cfg.DataDir)

	db, err := store.Open(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		log.Errorf("opening store: %v", err)
		return err
	}
	defer db.Close()

	chain, err := blockchain.New(cfg.chainParams)
	if err != nil {
		log.Errorf("initializing chain: %v", err)
		return err
	}
	if err := loadChainFromStore(chain, db, cfg.chainParams); err != nil {
		log.Errorf("replaying persisted chain: %v", err)
		return err
	}
	log.Infof("chain height %d, tip %s", chain.BestHeight(), chain.BestHash())

	feeEstimator, err := db.LoadFeeEstimator()
	if err != nil {
		if err != store.ErrNotFound {
			log.Warnf("loading fee estimator: %v", err)
		}
		feeEstimator = mempool.NewFeeEstimator(mempool.DefaultEstimateFeeMaxRollback, mempool.DefaultEstimateFeeMinRegisteredBlocks)
	}

	txPool := mempool.New(mempool.Config{
		Policy:       mempool.DefaultPolicy(),
		ChainParams:  cfg.chainParams,
		Chain:        chain,
		FeeEstimator: feeEstimator,
	})

	bans := peer.NewBanList()

	var miner *mining.CPUMiner
	var payToAddr *chainutil.AddressPubKeyHash
	if cfg.MiningAddr != "" {
		payToAddr, err = chainutil.DecodeAddress(cfg.MiningAddr, cfg.chainParams.PubKeyHashAddrID)
		if err != nil {
			log.Errorf("invalid mining address %q: %v", cfg.MiningAddr, err)
			return err
		}
		miner = mining.New(mining.Config{
			Policy:       mining.DefaultPolicy(),
			ChainParams:  cfg.chainParams,
			Chain:        chain,
			TxSource:     txPool,
			PayToAddress: payToAddr,
			NumWorkers:   cfg.NumWorkers,
		})
	}

	srv := newServer(cfg.chainParams, chain, db, txPool, feeEstimator, miner, bans)

	if err := srv.listen(cfg.Listeners); err != nil {
		log.Errorf("%v", err)
		return err
	}

	cmCfg := srv.connManagerConfig(cfg.MaxPeers, dialTimeout)
	cmCfg.Listeners = srv.listeners
	cm, err := connmgr.New(cmCfg)
	if err != nil {
		log.Errorf("initializing connection manager: %v", err)
		return err
	}
	srv.connMgr = cm

	var rpcServer *rpc.Server
	if cfg.RPCListen != "" {
		rpcServer = rpc.NewServer(rpc.Config{
			ListenAddr:  cfg.RPCListen,
			ChainParams: cfg.chainParams,
			Chain:       chain,
			TxPool:      txPool,
			Miner:       miner,
			ConnMgr:     cm,
			Bans:        bans,
		})
		srv.rpc = rpcServer
		if err := rpcServer.Start(); err != nil {
			log.Errorf("starting operator surface: %v", err)
			return err
		}
		defer rpcServer.Stop()
	}

	srv.start()
	defer srv.stop()

	for _, addr := range cfg.ConnectPeers {
		resolved, err := net.ResolveTCPAddr("tcp", addr)
		if err != nil {
			log.Warnf("resolving --connect peer %s: %v", addr, err)
			continue
		}
		cm.Connect(&connmgr.ConnReq{Addr: resolved, Permanent: true})
	}
	for _, addr := range cfg.AddPeers {
		resolved, err := net.ResolveTCPAddr("tcp", addr)
		if err != nil {
			log.Warnf("resolving --addpeer peer %s: %v", addr, err)
			continue
		}
		cm.Connect(&connmgr.ConnReq{Addr: resolved})
	}

	log.Infof("glintd started")
	<-interrupt

	if err := db.SaveFeeEstimator(feeEstimator); err != nil {
		log.Warnf("saving fee estimator: %v", err)
	}

	return nil
}

const dialConnTimeout = 10 * time.Second

func dialTimeout(addr net.Addr) (net.Conn, error) {
	return net.DialTimeout(addr.Network(), addr.String(), dialConnTimeout)
}
