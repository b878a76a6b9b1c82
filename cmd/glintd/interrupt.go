// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// interruptChannel receives SIGINT and SIGTERM; shutdownChannel is closed
// once the first of them arrives. A second signal forces immediate exit
// rather than waiting for a graceful shutdown that may be stuck.
var (
	interruptChannel chan os.Signal

	shutdownChannel = make(chan struct{})

	interruptCount int32
)

var once sync.Once

// interruptListener starts listening for OS interrupt signals and returns
// a channel that is closed the first time one arrives. A second signal
// exits the process immediately.
func interruptListener() <-chan struct{} {
	once.Do(func() {
		interruptChannel = make(chan os.Signal, 1)
		signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM)

		go func() {
			for range interruptChannel {
				if atomic.AddInt32(&interruptCount, 1) > 1 {
					log.Infof("received interrupt signal again, forcing shutdown")
					os.Exit(1)
				}
				log.Infof("received interrupt signal, shutting down")
				close(shutdownChannel)
			}
		}()
	})
	return shutdownChannel
}

// interruptRequested reports whether shutdown has already been requested
// on the channel interruptListener returned.
func interruptRequested(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
