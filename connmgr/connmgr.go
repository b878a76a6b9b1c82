// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Flokicoin developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ConnState represents the state of the requested connection.
type ConnState uint8

const (
	// ConnPending indicates the connection has been requested but
	// hasn't yet been established.
	ConnPending ConnState = iota

	// ConnEstablished indicates the connection has been successfully
	// established and Config.OnConnection has been invoked.
	ConnEstablished

	// ConnCanceled indicates the connection was canceled before a dial
	// attempt completed, typically via Remove.
	ConnCanceled

	// ConnFailing indicates a dial attempt is being retried after a
	// previous attempt failed.
	ConnFailing

	// ConnDisconnected indicates the connection was established and has
	// since been torn down, either by the remote side or by Disconnect.
	ConnDisconnected
)

func (s ConnState) String() string {
	switch s {
	case ConnPending:
		return "pending"
	case ConnEstablished:
		return "established"
	case ConnCanceled:
		return "canceled"
	case ConnFailing:
		return "failing"
	case ConnDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

var (
	// maxRetryDuration caps the exponential backoff applied between dial
	// attempts for a single ConnReq.
	maxRetryDuration = 5 * time.Minute

	// defaultRetryDuration is the backoff before the first retry of a
	// failed dial, doubling on every subsequent failure up to
	// maxRetryDuration.
	defaultRetryDuration = 5 * time.Second

	// defaultTargetOutbound is used when Config.TargetOutbound is left
	// at zero.
	defaultTargetOutbound uint32 = 8
)

// ConnReq holds the state of a single outbound connection request, whether
// still dialing, connected, or torn down. The zero value is a valid
// unregistered request; ConnManager assigns it an id once handed to
// Connect.
type ConnReq struct {
	// Addr is the address this request dials. A request with a nil Addr
	// fails at dial time.
	Addr net.Addr

	// Permanent marks a connection the manager retries indefinitely on
	// failure or disconnect, rather than giving up after the retry
	// policy exhausts itself against a fresh random address.
	Permanent bool

	id uint64

	mtx   sync.RWMutex
	state ConnState
	conn  net.Conn

	retryCount uint32
}

// ID returns the unique identifier assigned to the request when it was
// handed to Connect. Zero for a request never registered with a manager.
func (c *ConnReq) ID() uint64 {
	return atomic.LoadUint64(&c.id)
}

// State returns the connection's current lifecycle state.
func (c *ConnReq) State() ConnState {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.state
}

func (c *ConnReq) updateState(state ConnState) {
	c.mtx.Lock()
	c.state = state
	c.mtx.Unlock()
}

// Conn returns the established connection, or nil if the request never
// reached ConnEstablished or has since disconnected.
func (c *ConnReq) Conn() net.Conn {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.conn
}

func (c *ConnReq) setConn(conn net.Conn) {
	c.mtx.Lock()
	c.conn = conn
	c.mtx.Unlock()
}

func (c *ConnReq) String() string {
	if c.Addr == nil {
		return fmt.Sprintf("reqid %d", c.ID())
	}
	return fmt.Sprintf("%s (reqid %d)", c.Addr, c.ID())
}

// Config holds the configuration options related to the connection manager.
type Config struct {
	// TargetOutbound is the number of outbound network connections to
	// maintain. Defaults to 8 when zero.
	TargetOutbound uint32

	// RetryDuration is the initial backoff between dial attempts for a
	// failing ConnReq. Defaults to 5 seconds when zero, and doubles on
	// each consecutive failure up to 5 minutes.
	RetryDuration time.Duration

	// Listeners, if non-empty, are accepted for inbound connections and
	// handed to OnAccept. Leave empty to run outbound-only.
	Listeners []net.Listener

	// OnAccept is called with every connection received on a Listener.
	// The manager does not count or track inbound connections beyond
	// invoking this callback; the caller owns their lifecycle.
	OnAccept func(net.Conn)

	// Dial dials the given address, returning the established
	// connection. Required.
	Dial func(net.Addr) (net.Conn, error)

	// OnConnection is invoked, from the manager's own goroutine, the
	// moment a ConnReq's dial succeeds.
	OnConnection func(*ConnReq, net.Conn)

	// OnDisconnection is invoked when an established ConnReq's
	// connection is torn down, whether via Disconnect or a read/write
	// failure reported through Disconnect.
	OnDisconnection func(*ConnReq)

	// GetNewAddress supplies an address for the manager to dial when it
	// needs to replace a failed or disconnected non-permanent request to
	// stay at TargetOutbound. May return an error if no candidate
	// address is currently available, in which case the manager retries
	// later rather than failing permanently.
	GetNewAddress func() (net.Addr, error)
}

// registerPending, handleConnected, handleDisconnected, and handleFailed
// are the messages exchanged between callers and the connection handler's
// serialized event loop, mirroring the internal actor pattern used by the
// sync manager.
type registerPending struct {
	c    *ConnReq
	done chan struct{}
}

type handleConnected struct {
	c    *ConnReq
	conn net.Conn
}

type handleDisconnected struct {
	id       uint64
	forceNew bool
}

type handleFailed struct {
	c   *ConnReq
	err error
}

// ConnManager maintains a target number of outbound connections, retrying
// failed or dropped permanent requests with exponential backoff, replacing
// failed or dropped non-permanent requests with freshly sourced addresses,
// and forwarding any configured Listeners' accepted connections to the
// caller.
type ConnManager struct {
	connReqCount uint64 // atomic, next id to hand out

	start int32 // atomic
	stop  int32 // atomic

	cfg Config

	wg   sync.WaitGroup
	quit chan struct{}

	requests chan interface{}

	mtx   sync.Mutex
	conns map[uint64]*ConnReq
}

// New returns a new connection manager configured per cfg. Dial is
// required; every other field is optional.
func New(cfg *Config) (*ConnManager, error) {
	if cfg.Dial == nil {
		return nil, fmt.Errorf("connmgr: Dial func is required")
	}
	c := &ConnManager{
		cfg:      *cfg,
		requests: make(chan interface{}),
		quit:     make(chan struct{}),
		conns:    make(map[uint64]*ConnReq),
	}
	if c.cfg.TargetOutbound == 0 {
		c.cfg.TargetOutbound = defaultTargetOutbound
	}
	if c.cfg.RetryDuration <= 0 {
		c.cfg.RetryDuration = defaultRetryDuration
	}
	return c, nil
}

// Start launches the connection handler and, for every configured
// Listener, an accept loop, then begins dialing enough fresh addresses to
// reach TargetOutbound. Safe to call only once.
func (cm *ConnManager) Start() {
	if atomic.AddInt32(&cm.start, 1) != 1 {
		return
	}

	log.Tracef("connection manager starting")

	cm.wg.Add(1)
	go cm.connHandler()

	for _, listener := range cm.cfg.Listeners {
		cm.wg.Add(1)
		go cm.listenHandler(listener)
	}

	if cm.cfg.GetNewAddress != nil {
		for i := uint32(0); i < cm.cfg.TargetOutbound; i++ {
			go cm.NewConnReq()
		}
	}
}

// Stop signals every goroutine spawned by Start to exit and closes every
// established connection. Wait blocks until they have.
func (cm *ConnManager) Stop() {
	if atomic.AddInt32(&cm.stop, 1) != 1 {
		log.Warnf("connection manager already stopped")
		return
	}

	for _, listener := range cm.cfg.Listeners {
		if err := listener.Close(); err != nil {
			log.Warnf("failed to close listener %s: %v", listener.Addr(), err)
		}
	}

	close(cm.quit)
	log.Tracef("connection manager stopping")
}

// Wait blocks until every goroutine spawned by Start has returned, which
// only happens once Stop is called.
func (cm *ConnManager) Wait() {
	cm.wg.Wait()
}

// Connect assigns c an id and hands it to the connection handler, which
// dials it asynchronously and applies retry policy on failure.
func (cm *ConnManager) Connect(c *ConnReq) {
	done := make(chan struct{})
	select {
	case cm.requests <- registerPending{c, done}:
	case <-cm.quit:
		return
	}

	select {
	case <-done:
	case <-cm.quit:
	}
}

// Remove cancels a pending connection request or tears down an established
// one by id, without triggering a replacement dial even if the request was
// non-permanent.
func (cm *ConnManager) Remove(id uint64) {
	select {
	case cm.requests <- handleDisconnected{id: id, forceNew: false}:
	case <-cm.quit:
	}
}

// Disconnect tears down the established connection for id. If the request
// is not Permanent, the manager dials a fresh replacement address to stay
// at TargetOutbound.
func (cm *ConnManager) Disconnect(id uint64) {
	cm.mtx.Lock()
	c, ok := cm.conns[id]
	cm.mtx.Unlock()
	if !ok {
		return
	}
	if conn := c.Conn(); conn != nil {
		conn.Close()
	}
	cm.ConnectionLost(id)
}

// ConnectedCount returns the number of connection requests currently in
// ConnEstablished state.
func (cm *ConnManager) ConnectedCount() int32 {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	var n int32
	for _, c := range cm.conns {
		if c.State() == ConnEstablished {
			n++
		}
	}
	return n
}

// NewConnReq sources a fresh address from Config.GetNewAddress and queues
// it for connection, to replace a failed or disconnected slot. A no-op if
// GetNewAddress is unset.
func (cm *ConnManager) NewConnReq() {
	if cm.cfg.GetNewAddress == nil {
		return
	}

	select {
	case <-cm.quit:
		return
	default:
	}

	addr, err := cm.cfg.GetNewAddress()
	if err != nil {
		log.Debugf("failed to source a new outbound address: %v", err)
		time.AfterFunc(cm.cfg.RetryDuration, cm.NewConnReq)
		return
	}

	c := &ConnReq{Addr: addr}
	cm.Connect(c)
}

// connHandler is the manager's serialized event loop: every mutation of
// conns and every dial/retry decision happens here, so none of it needs a
// lock beyond what ConnReq itself already guards.
func (cm *ConnManager) connHandler() {
	defer cm.wg.Done()

	pending := make(map[uint64]*ConnReq)

	for {
		select {
		case req := <-cm.requests:
			switch msg := req.(type) {
			case registerPending:
				id := atomic.AddUint64(&cm.connReqCount, 1)
				atomic.StoreUint64(&msg.c.id, id)
				msg.c.updateState(ConnPending)

				cm.mtx.Lock()
				cm.conns[id] = msg.c
				cm.mtx.Unlock()
				pending[id] = msg.c

				close(msg.done)
				go cm.dial(msg.c)

			case handleConnected:
				if _, ok := pending[msg.c.ID()]; !ok {
					// The request was removed while dialing; drop the
					// now-unwanted connection.
					msg.conn.Close()
					continue
				}
				delete(pending, msg.c.ID())

				msg.c.setConn(msg.conn)
				msg.c.updateState(ConnEstablished)
				if cm.cfg.OnConnection != nil {
					cm.cfg.OnConnection(msg.c, msg.conn)
				}

			case handleDisconnected:
				cm.mtx.Lock()
				c, ok := cm.conns[msg.id]
				if ok {
					delete(cm.conns, msg.id)
				}
				cm.mtx.Unlock()
				delete(pending, msg.id)
				if !ok {
					continue
				}

				wasEstablished := c.State() == ConnEstablished
				if wasEstablished {
					c.updateState(ConnDisconnected)
				} else {
					c.updateState(ConnCanceled)
				}
				if wasEstablished && cm.cfg.OnDisconnection != nil {
					cm.cfg.OnDisconnection(c)
				}

				if !msg.forceNew {
					if conn := c.Conn(); conn != nil {
						conn.Close()
					}
				} else if c.Permanent {
					c.retryCount++
					d := cm.retryDelay(c.retryCount)
					log.Debugf("retrying permanent connection to %v in %v", c, d)
					time.AfterFunc(d, func() { cm.Connect(c) })
				} else {
					go cm.NewConnReq()
				}

			case handleFailed:
				delete(pending, msg.c.ID())
				cm.mtx.Lock()
				delete(cm.conns, msg.c.ID())
				cm.mtx.Unlock()

				if c := msg.c; c.Permanent {
					c.updateState(ConnFailing)
					c.retryCount++
					d := cm.retryDelay(c.retryCount)
					log.Debugf("retrying permanent connection to %v in %v: %v", c, d, msg.err)
					time.AfterFunc(d, func() { cm.Connect(c) })
				} else {
					log.Debugf("dial to %v failed: %v", msg.c, msg.err)
					go cm.NewConnReq()
				}
			}

		case <-cm.quit:
			cm.mtx.Lock()
			for _, c := range cm.conns {
				if conn := c.Conn(); conn != nil {
					conn.Close()
				}
			}
			cm.mtx.Unlock()
			return
		}
	}
}

// retryDelay returns the exponential backoff for the nth retry of a
// connection, doubling from RetryDuration up to maxRetryDuration.
func (cm *ConnManager) retryDelay(retryCount uint32) time.Duration {
	d := cm.cfg.RetryDuration
	for i := uint32(1); i < retryCount && d < maxRetryDuration; i++ {
		d *= 2
	}
	if d > maxRetryDuration {
		d = maxRetryDuration
	}
	return d
}

// dial runs Config.Dial for c outside the event loop, since it may block
// for the OS connect timeout, and reports the outcome back in.
func (cm *ConnManager) dial(c *ConnReq) {
	if c.Addr == nil {
		cm.reportFailed(c, fmt.Errorf("connmgr: connection request has no address"))
		return
	}

	conn, err := cm.cfg.Dial(c.Addr)
	if err != nil {
		cm.reportFailed(c, err)
		return
	}

	select {
	case cm.requests <- handleConnected{c: c, conn: conn}:
	case <-cm.quit:
		conn.Close()
	}
}

func (cm *ConnManager) reportFailed(c *ConnReq, err error) {
	select {
	case cm.requests <- handleFailed{c: c, err: err}:
	case <-cm.quit:
	}
}

// listenHandler accepts connections on listener until it closes, forwarding
// each to Config.OnAccept.
func (cm *ConnManager) listenHandler(listener net.Listener) {
	defer cm.wg.Done()

	log.Infof("server listening on %s", listener.Addr())
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-cm.quit:
				return
			default:
				log.Errorf("can't accept connection on %s: %v", listener.Addr(), err)
				continue
			}
		}
		if cm.cfg.OnAccept != nil {
			go cm.cfg.OnAccept(conn)
		}
	}
}

// ConnectionLost notifies the manager that the established connection for
// id has gone down on its own (e.g. a peer's Run loop returned a read
// error), so it can run OnDisconnection and, for a non-permanent request,
// source a replacement.
func (cm *ConnManager) ConnectionLost(id uint64) {
	select {
	case cm.requests <- handleDisconnected{id: id, forceNew: true}:
	case <-cm.quit:
	}
}
