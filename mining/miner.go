// Copyright (c) 2014-2017 The btcsuite developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"sync"
	"sync/atomic"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg"
	"github.com/glintchain/glintd/chainutil"
)

// hashesPerCancelCheck bounds how many nonces a worker tries before polling
// for a new chain tip or a stop request, so cancellation never waits for a
// full 2^32 nonce sweep.
const hashesPerCancelCheck = 1 << 16

// Config supplies a CPUMiner with everything it needs to build and solve
// templates.
type Config struct {
	Policy       Policy
	ChainParams  *chaincfg.Params
	Chain        *blockchain.BlockChain
	TxSource     TxSource
	PayToAddress *chainutil.AddressPubKeyHash
	NumWorkers   int
}

// CPUMiner repeatedly builds block templates atop the current tip and
// searches their nonce space for a hash satisfying the required
// difficulty, submitting any solution through the same acceptance path a
// peer-relayed block takes.
type CPUMiner struct {
	cfg       Config
	generator *BlkTmplGenerator

	mtx     sync.Mutex
	started bool
	quit    chan struct{}
	wg      sync.WaitGroup

	tipGen    int64 // bumped by NotifyNewTip to cancel in-flight searches
	payToAddr atomic.Value
}

// New returns a miner configured per cfg. Start must be called before it
// does any work.
func New(cfg Config) *CPUMiner {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	m := &CPUMiner{
		cfg:       cfg,
		generator: NewBlkTmplGenerator(&cfg.Policy, cfg.ChainParams, cfg.TxSource, cfg.Chain),
	}
	m.payToAddr.Store(cfg.PayToAddress)
	return m
}

// SetPayToAddress changes the address mining rewards are paid to. Takes
// effect on the next template a worker builds; in-flight searches keep
// solving the template they already started.
func (m *CPUMiner) SetPayToAddress(addr *chainutil.AddressPubKeyHash) {
	m.payToAddr.Store(addr)
}

// Start launches cfg.NumWorkers mining goroutines. Calling Start on an
// already-started miner is a no-op.
func (m *CPUMiner) Start() {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.quit = make(chan struct{})

	for i := 0; i < m.cfg.NumWorkers; i++ {
		m.wg.Add(1)
		go m.worker(uint32(i))
	}
	log.Infof("CPU miner started with %d worker(s)", m.cfg.NumWorkers)
}

// Stop signals every worker to exit and waits for them to do so.
func (m *CPUMiner) Stop() {
	m.mtx.Lock()
	if !m.started {
		m.mtx.Unlock()
		return
	}
	m.started = false
	close(m.quit)
	m.mtx.Unlock()

	m.wg.Wait()
	log.Infof("CPU miner stopped")
}

// NotifyNewTip cancels every worker's in-flight search so it rebuilds a
// fresh template atop the new tip instead of wasting time extending a
// block that can no longer be the parent. Safe to call whether or not the
// new tip came from this miner's own solved block.
func (m *CPUMiner) NotifyNewTip() {
	atomic.AddInt64(&m.tipGen, 1)
}

// worker continuously builds templates and searches their nonce space
// until told to quit.
func (m *CPUMiner) worker(id uint32) {
	defer m.wg.Done()

	// Each worker claims a disjoint slice of the 64-bit extranonce space
	// so no two workers ever produce an identical coinbase.
	extraNonce := uint64(id) << 48

	for {
		select {
		case <-m.quit:
			return
		default:
		}

		payToAddr, _ := m.payToAddr.Load().(*chainutil.AddressPubKeyHash)
		template, err := m.generator.NewBlockTemplate(payToAddr, extraNonce)
		if err != nil {
			log.Errorf("failed to create new block template: %v", err)
			continue
		}

		startGen := atomic.LoadInt64(&m.tipGen)
		solved, err := m.solveTemplate(template, startGen)
		if err == errMinerStopped {
			return
		}
		if !solved {
			// Nonce space exhausted without a cancellation; roll the
			// extranonce and try the same height again.
			extraNonce++
			continue
		}

		if _, err := m.cfg.Chain.ProcessBlock(template.Block); err != nil {
			log.Errorf("mined block rejected: %v", err)
			continue
		}
		log.Infof("mined block at height %d", template.Height)
		m.NotifyNewTip()
	}
}

// solveTemplate searches template's full nonce space for a hash
// satisfying its target difficulty, polling for cancellation (a stop
// request, or a tip change away from startGen) every
// hashesPerCancelCheck attempts. It returns true if a solution was
// written into template.Block.Header.Nonce, false if the nonce space was
// exhausted first.
func (m *CPUMiner) solveTemplate(template *BlockTemplate, startGen int64) (bool, error) {
	header := &template.Block.Header
	target := blockchain.CompactToBig(header.Bits)

	for nonce := uint32(0); ; nonce++ {
		if nonce%hashesPerCancelCheck == 0 {
			select {
			case <-m.quit:
				return false, errMinerStopped
			default:
			}
			if atomic.LoadInt64(&m.tipGen) != startGen {
				return false, nil
			}
			m.generator.UpdateBlockTime(template)
		}

		header.Nonce = nonce
		hash := header.BlockHash()
		if blockchain.HashToBig(&hash).Cmp(target) <= 0 {
			return true, nil
		}

		if nonce == ^uint32(0) {
			return false, nil
		}
	}
}

var errMinerStopped = miningStoppedError{}

type miningStoppedError struct{}

func (miningStoppedError) Error() string { return "cpu miner stopped" }
