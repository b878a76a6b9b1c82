// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package netsync implements the node's headers-first block synchronization:
// it picks a sync peer, walks the local chain's block locator forward via
// getheaders, validates the returned header chain for proof of work and
// linkage, then fetches the block bodies those headers describe — in
// parallel, spread across every ready peer — applying each one as it
// arrives. It also serves the same requests on behalf of peers syncing from
// this node, and relays newly accepted blocks and transactions onward.
package netsync

import (
	"errors"
	"sync"
	"time"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/mempool"
	"github.com/glintchain/glintd/peer"
	"github.com/glintchain/glintd/wire"
)

const (
	// defaultMaxPeers is used when Config.MaxPeers is left at zero.
	defaultMaxPeers = 125

	// maxInFlightBlocksPerPeer bounds how many block bodies can be
	// outstanding against a single peer at once, so the parallel fetch
	// spreads load instead of piling every request on the sync peer.
	maxInFlightBlocksPerPeer = 16

	// blockDownloadStallTimeout is how long a requested block may remain
	// outstanding before the manager gives up on that peer for it and
	// reassigns the request elsewhere.
	blockDownloadStallTimeout = 10 * time.Minute

	// stallCheckInterval is how often the manager scans for stalled
	// requests.
	stallCheckInterval = 30 * time.Second
)

// peerSyncState is the manager's bookkeeping for one connected peer.
type peerSyncState struct {
	requestedBlocks map[chainhash.Hash]struct{}
}

type newPeerMsg struct{ peer *peer.Peer }
type donePeerMsg struct{ peer *peer.Peer }
type headersMsg struct {
	peer *peer.Peer
	msg  *wire.MsgHeaders
}
type invMsg struct {
	peer *peer.Peer
	msg  *wire.MsgInv
}
type getDataMsg struct {
	peer *peer.Peer
	msg  *wire.MsgGetData
}
type notFoundMsg struct {
	peer *peer.Peer
	msg  *wire.MsgNotFound
}
type blockMsg struct {
	peer *peer.Peer
	msg  *wire.MsgBlock
}
type txMsg struct {
	peer *peer.Peer
	msg  *wire.MsgTx
}

// SyncManager drives headers-first synchronization against the node's
// connected peers and implements peer.Handler, so a connection owner wires
// it in directly as each peer.Config.Listeners.
//
// Every field from peerStates onward is owned exclusively by the run
// goroutine; everything reaches it serialized through msgChan, the same
// discipline btcd's blockManager uses to avoid a lock around the sync
// state machine itself.
type SyncManager struct {
	cfg Config

	msgChan chan interface{}
	quit    chan struct{}
	wg      sync.WaitGroup

	mtx     sync.Mutex
	started bool

	peerStates map[*peer.Peer]*peerSyncState
	syncPeer   *peer.Peer

	// pendingOrder and pending track headers validated for proof of work
	// and internal linkage but not yet applied: a body has been fetched
	// for the ones no longer present here.
	pendingOrder []chainhash.Hash
	pending      map[chainhash.Hash]*wire.BlockHeader

	// requestedBlocks maps an outstanding block request to the peer it
	// was asked of and when, for round-robin assignment and stall
	// detection.
	requestedBlocks   map[chainhash.Hash]*peer.Peer
	requestedAt       map[chainhash.Hash]time.Time
}

// New returns a SyncManager configured per cfg. Start must be called before
// it does any work.
func New(cfg Config) *SyncManager {
	if cfg.MaxPeers <= 0 {
		cfg.MaxPeers = defaultMaxPeers
	}
	return &SyncManager{
		cfg:               cfg,
		msgChan:           make(chan interface{}, cfg.MaxPeers),
		peerStates:        make(map[*peer.Peer]*peerSyncState),
		pending:           make(map[chainhash.Hash]*wire.BlockHeader),
		requestedBlocks:   make(map[chainhash.Hash]*peer.Peer),
		requestedAt:       make(map[chainhash.Hash]time.Time),
	}
}

// Start launches the manager's serialized event loop. Calling Start on an
// already-started manager is a no-op.
func (m *SyncManager) Start() {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.quit = make(chan struct{})

	m.wg.Add(1)
	go m.run()
	log.Infof("sync manager started")
}

// Stop signals the event loop to exit and waits for it to do so.
func (m *SyncManager) Stop() {
	m.mtx.Lock()
	if !m.started {
		m.mtx.Unlock()
		return
	}
	m.started = false
	close(m.quit)
	m.mtx.Unlock()

	m.wg.Wait()
	log.Infof("sync manager stopped")
}

// NewPeer registers p as a sync candidate and, if no sync is currently in
// progress, starts one against it.
func (m *SyncManager) NewPeer(p *peer.Peer) {
	select {
	case m.msgChan <- &newPeerMsg{p}:
	case <-m.quit:
	}
}

// DonePeer unregisters p, reassigning any work it had outstanding.
func (m *SyncManager) DonePeer(p *peer.Peer) {
	select {
	case m.msgChan <- &donePeerMsg{p}:
	case <-m.quit:
	}
}

// OnGetHeaders answers a peer's headers request directly from the chain's
// index; it needs none of the manager's own sync state, so it is served
// synchronously rather than through msgChan.
func (m *SyncManager) OnGetHeaders(p *peer.Peer, msg *wire.MsgGetHeaders) error {
	locator := make(blockchain.BlockLocator, len(msg.BlockLocatorHashes))
	for i, h := range msg.BlockLocatorHashes {
		locator[i] = *h
	}

	headers := m.cfg.Chain.LocateHeaders(locator, msg.HashStop)
	reply := wire.NewMsgHeaders()
	for i := range headers {
		if err := reply.AddBlockHeader(&headers[i]); err != nil {
			return err
		}
	}
	return p.Send(reply)
}

// OnHeaders validates msg for proof of work and internal linkage before
// handing it to the event loop. A header timestamped too far in the future
// returns peer.ErrHeadersFuture, which peer.Peer treats as a reason to defer
// rather than a reason to ban, since it may just be clock skew.
func (m *SyncManager) OnHeaders(p *peer.Peer, msg *wire.MsgHeaders) error {
	now := time.Now()
	for i, h := range msg.Headers {
		if err := blockchain.CheckHeaderSanity(h, m.cfg.ChainParams.PowLimit, m.cfg.ChainParams.MaxFutureBlockTime, now); err != nil {
			if blockchain.IsErrorCode(err, blockchain.ErrTimeTooNew) {
				return peer.ErrHeadersFuture
			}
			return err
		}
		if i > 0 && h.PrevBlock != msg.Headers[i-1].BlockHash() {
			return errors.New("netsync: headers message is not a contiguous chain")
		}
	}

	select {
	case m.msgChan <- &headersMsg{p, msg}:
	case <-m.quit:
	}
	return nil
}

// OnInv hands an inventory announcement to the event loop.
func (m *SyncManager) OnInv(p *peer.Peer, msg *wire.MsgInv) error {
	select {
	case m.msgChan <- &invMsg{p, msg}:
	case <-m.quit:
	}
	return nil
}

// OnGetData hands a data request to the event loop.
func (m *SyncManager) OnGetData(p *peer.Peer, msg *wire.MsgGetData) error {
	select {
	case m.msgChan <- &getDataMsg{p, msg}:
	case <-m.quit:
	}
	return nil
}

// OnNotFound hands a not-found reply to the event loop.
func (m *SyncManager) OnNotFound(p *peer.Peer, msg *wire.MsgNotFound) error {
	select {
	case m.msgChan <- &notFoundMsg{p, msg}:
	case <-m.quit:
	}
	return nil
}

// OnBlock rejects a structurally invalid block immediately, so a peer that
// floods garbage bodies is ban-scored per block rather than only once the
// event loop gets around to it, then hands a sound one to the event loop.
func (m *SyncManager) OnBlock(p *peer.Peer, msg *wire.MsgBlock) error {
	if err := blockchain.CheckBlockSanity(msg, m.cfg.ChainParams.PowLimit, m.cfg.ChainParams.MaxFutureBlockTime, time.Now()); err != nil {
		return err
	}

	select {
	case m.msgChan <- &blockMsg{p, msg}:
	case <-m.quit:
	}
	return nil
}

// OnTx rejects a structurally invalid transaction immediately, then hands a
// sound one to the event loop for mempool acceptance.
func (m *SyncManager) OnTx(p *peer.Peer, msg *wire.MsgTx) error {
	if err := blockchain.CheckTransactionSanity(msg); err != nil {
		return err
	}

	select {
	case m.msgChan <- &txMsg{p, msg}:
	case <-m.quit:
	}
	return nil
}

// OnReject logs a peer's rejection of something this node sent it. It
// carries no ban weight of its own: the peer is telling us it disagreed,
// not misbehaving.
func (m *SyncManager) OnReject(p *peer.Peer, msg *wire.MsgReject) {
	log.Debugf("peer %s rejected %s (%s): %s", p.Addr(), msg.Cmd, msg.Code, msg.Reason)
}

// run is the manager's single serialized event loop. All sync state is
// touched only from here.
func (m *SyncManager) run() {
	defer m.wg.Done()

	stallTicker := time.NewTicker(stallCheckInterval)
	defer stallTicker.Stop()

	for {
		select {
		case msg := <-m.msgChan:
			m.handle(msg)
		case <-stallTicker.C:
			m.reassignStalledLocked()
		case <-m.quit:
			return
		}
	}
}

func (m *SyncManager) handle(msg interface{}) {
	switch v := msg.(type) {
	case *newPeerMsg:
		m.handleNewPeer(v.peer)
	case *donePeerMsg:
		m.handleDonePeer(v.peer)
	case *headersMsg:
		m.handleHeaders(v.peer, v.msg)
	case *invMsg:
		m.handleInv(v.peer, v.msg)
	case *getDataMsg:
		m.handleGetData(v.peer, v.msg)
	case *notFoundMsg:
		m.handleNotFound(v.peer, v.msg)
	case *blockMsg:
		m.handleBlock(v.peer, v.msg)
	case *txMsg:
		m.handleTx(v.peer, v.msg)
	}
}

func (m *SyncManager) handleNewPeer(p *peer.Peer) {
	m.peerStates[p] = &peerSyncState{requestedBlocks: make(map[chainhash.Hash]struct{})}
	if m.syncPeer == nil {
		m.startSyncWith(p)
	}
}

func (m *SyncManager) handleDonePeer(p *peer.Peer) {
	ps, ok := m.peerStates[p]
	if !ok {
		return
	}
	for hash := range ps.requestedBlocks {
		delete(m.requestedBlocks, hash)
		delete(m.requestedAt, hash)
	}
	delete(m.peerStates, p)

	if m.syncPeer == p {
		m.syncPeer = nil
		for other := range m.peerStates {
			m.startSyncWith(other)
			break
		}
	}

	m.requestNextBlocks()
}

// startSyncWith begins (or resumes) headers-first sync against p, sending a
// getheaders built from the local chain's current locator.
func (m *SyncManager) startSyncWith(p *peer.Peer) {
	m.syncPeer = p
	m.sendGetHeaders(p, m.cfg.Chain.LatestBlockLocator())
}

func (m *SyncManager) sendGetHeaders(p *peer.Peer, locator blockchain.BlockLocator) {
	req := wire.NewMsgGetHeaders()
	for i := range locator {
		if err := req.AddBlockLocatorHash(&locator[i]); err != nil {
			log.Warnf("building getheaders for %s: %v", p.Addr(), err)
			return
		}
	}
	if err := p.Send(req); err != nil {
		log.Debugf("sending getheaders to %s: %v", p.Addr(), err)
	}
}

func (m *SyncManager) handleHeaders(p *peer.Peer, msg *wire.MsgHeaders) {
	if len(msg.Headers) == 0 {
		if p == m.syncPeer {
			m.syncPeer = nil
		}
		return
	}

	for _, h := range msg.Headers {
		hash := h.BlockHash()
		if m.cfg.Chain.HaveBlock(&hash) {
			continue
		}
		if _, dup := m.pending[hash]; dup {
			continue
		}
		m.pendingOrder = append(m.pendingOrder, hash)
		m.pending[hash] = h
	}

	m.requestNextBlocks()

	if len(msg.Headers) == wire.MaxBlockHeadersPerMsg {
		last := msg.Headers[len(msg.Headers)-1].BlockHash()
		m.sendGetHeaders(p, blockchain.BlockLocator{last})
	} else if p == m.syncPeer {
		m.syncPeer = nil
	}
}

// requestNextBlocks dispatches getdata requests for pending headers to
// whichever ready peers have spare capacity, spreading the parallel body
// fetch across all of them rather than just the sync peer.
func (m *SyncManager) requestNextBlocks() {
	if len(m.pendingOrder) == 0 || len(m.peerStates) == 0 {
		return
	}

	batches := make(map[*peer.Peer]*wire.MsgGetData)
	now := time.Now()

	for _, hash := range m.pendingOrder {
		if _, inFlight := m.requestedBlocks[hash]; inFlight {
			continue
		}
		if _, ok := m.pending[hash]; !ok {
			continue
		}

		target := m.pickPeerWithCapacityLocked()
		if target == nil {
			break
		}

		batch, ok := batches[target]
		if !ok {
			batch = wire.NewMsgGetData()
			batches[target] = batch
		}
		if err := batch.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &hash)); err != nil {
			break
		}

		m.requestedBlocks[hash] = target
		m.requestedAt[hash] = now
		m.peerStates[target].requestedBlocks[hash] = struct{}{}
	}

	for p, batch := range batches {
		if err := p.Send(batch); err != nil {
			log.Debugf("sending getdata to %s: %v", p.Addr(), err)
		}
	}
}

// pickPeerWithCapacityLocked returns a ready peer with fewer than
// maxInFlightBlocksPerPeer outstanding block requests, or nil if every
// known peer is saturated.
func (m *SyncManager) pickPeerWithCapacityLocked() *peer.Peer {
	for p, ps := range m.peerStates {
		if len(ps.requestedBlocks) < maxInFlightBlocksPerPeer {
			return p
		}
	}
	return nil
}

func (m *SyncManager) handleBlock(p *peer.Peer, msg *wire.MsgBlock) {
	hash := msg.BlockHash()

	if ps, ok := m.peerStates[p]; ok {
		delete(ps.requestedBlocks, hash)
	}
	delete(m.requestedBlocks, hash)
	delete(m.requestedAt, hash)
	delete(m.pending, hash)
	m.removePendingOrder(hash)

	isOrphan, err := m.cfg.Chain.ProcessBlock(msg)
	if err != nil {
		log.Warnf("rejected block %s from %s: %v", hash, p.Addr(), err)
		m.requestNextBlocks()
		return
	}
	if isOrphan {
		// The parent is missing from our index; ask the peer that sent us
		// this block to fill in the gap.
		m.sendGetHeaders(p, blockchain.BlockLocator{m.cfg.Chain.BestHash()})
		m.requestNextBlocks()
		return
	}

	height := m.cfg.Chain.BestHeight()
	m.cfg.TxMemPool.ProcessBlockTransactions(height, msg)
	if disconnected := m.cfg.Chain.TakeDisconnectedTransactions(); len(disconnected) > 0 {
		m.cfg.TxMemPool.ProcessDisconnectedTransactions(disconnected)
	}

	minedHashes := make([]chainhash.Hash, len(msg.Transactions))
	for i, tx := range msg.Transactions {
		minedHashes[i] = tx.TxHash()
	}
	if m.cfg.FeeEstimator != nil {
		m.cfg.FeeEstimator.ProcessBlock(height, minedHashes)
	}

	if m.cfg.PeerNotifier != nil {
		m.cfg.PeerNotifier.RelayInventory(wire.NewInvVect(wire.InvTypeBlock, &hash), &msg.Header)
	}

	m.requestNextBlocks()
}

// removePendingOrder deletes hash from pendingOrder, preserving the order
// of what remains.
func (m *SyncManager) removePendingOrder(hash chainhash.Hash) {
	for i, h := range m.pendingOrder {
		if h == hash {
			m.pendingOrder = append(m.pendingOrder[:i], m.pendingOrder[i+1:]...)
			return
		}
	}
}

func (m *SyncManager) handleInv(p *peer.Peer, msg *wire.MsgInv) {
	var want []*wire.InvVect
	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeBlock:
			if !m.cfg.Chain.HaveBlock(&iv.Hash) {
				want = append(want, iv)
			}
		case wire.InvTypeTx:
			if !m.cfg.TxMemPool.HaveTransaction(&iv.Hash) {
				want = append(want, iv)
			}
		}
	}
	if len(want) == 0 {
		return
	}

	getData := wire.NewMsgGetDataSizeHint(uint(len(want)))
	for _, iv := range want {
		if err := getData.AddInvVect(iv); err != nil {
			break
		}
	}
	if err := p.Send(getData); err != nil {
		log.Debugf("sending getdata to %s: %v", p.Addr(), err)
	}
}

func (m *SyncManager) handleGetData(p *peer.Peer, msg *wire.MsgGetData) {
	notFound := wire.NewMsgNotFound()

	for _, iv := range msg.InvList {
		var found bool
		switch iv.Type {
		case wire.InvTypeBlock:
			if block, ok := m.cfg.Chain.BlockByHash(&iv.Hash); ok {
				if err := p.Send(block); err != nil {
					log.Debugf("sending block to %s: %v", p.Addr(), err)
				}
				found = true
			}
		case wire.InvTypeTx:
			if tx, ok := m.cfg.TxMemPool.FetchTransaction(&iv.Hash); ok {
				if err := p.Send(tx); err != nil {
					log.Debugf("sending tx to %s: %v", p.Addr(), err)
				}
				found = true
			}
		}
		if !found {
			_ = notFound.AddInvVect(iv)
		}
	}

	if len(notFound.InvList) > 0 {
		if err := p.Send(notFound); err != nil {
			log.Debugf("sending notfound to %s: %v", p.Addr(), err)
		}
	}
}

func (m *SyncManager) handleNotFound(p *peer.Peer, msg *wire.MsgNotFound) {
	for _, iv := range msg.InvList {
		if iv.Type != wire.InvTypeBlock {
			continue
		}
		if owner, ok := m.requestedBlocks[iv.Hash]; ok && owner == p {
			delete(m.requestedBlocks, iv.Hash)
			delete(m.requestedAt, iv.Hash)
			if ps, ok := m.peerStates[p]; ok {
				delete(ps.requestedBlocks, iv.Hash)
			}
		}
	}
	m.requestNextBlocks()
}

func (m *SyncManager) handleTx(p *peer.Peer, msg *wire.MsgTx) {
	missingParents, desc, err := m.cfg.TxMemPool.MaybeAcceptTransaction(msg)
	if err != nil {
		log.Debugf("rejected tx %s from %s: %v", msg.TxHash(), p.Addr(), err)
		return
	}

	if len(missingParents) > 0 {
		getData := wire.NewMsgGetDataSizeHint(uint(len(missingParents)))
		for _, parentHash := range missingParents {
			if err := getData.AddInvVect(wire.NewInvVect(wire.InvTypeTx, parentHash)); err != nil {
				break
			}
		}
		if err := p.Send(getData); err != nil {
			log.Debugf("sending getdata to %s: %v", p.Addr(), err)
		}
		return
	}

	if m.cfg.FeeEstimator != nil {
		m.cfg.FeeEstimator.ObserveTransaction(desc)
	}
	if m.cfg.PeerNotifier != nil {
		m.cfg.PeerNotifier.AnnounceNewTransactions([]*mempool.TxDesc{desc})
	}
}

// reassignStalledLocked frees any block request that has been outstanding
// longer than blockDownloadStallTimeout, so it can be retried against a
// different peer on the next requestNextBlocks pass.
func (m *SyncManager) reassignStalledLocked() {
	now := time.Now()
	var stalled []chainhash.Hash
	for hash, at := range m.requestedAt {
		if now.Sub(at) >= blockDownloadStallTimeout {
			stalled = append(stalled, hash)
		}
	}
	if len(stalled) == 0 {
		return
	}

	for _, hash := range stalled {
		owner := m.requestedBlocks[hash]
		delete(m.requestedBlocks, hash)
		delete(m.requestedAt, hash)
		if ps, ok := m.peerStates[owner]; ok {
			delete(ps.requestedBlocks, hash)
		}
		log.Warnf("block %s stalled past %s, reassigning", hash, blockDownloadStallTimeout)
	}
	m.requestNextBlocks()
}
