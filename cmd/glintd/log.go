// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/connmgr"
	flog "github.com/glintchain/glintd/log"
	"github.com/glintchain/glintd/mempool"
	"github.com/glintchain/glintd/mining"
	"github.com/glintchain/glintd/netsync"
	"github.com/glintchain/glintd/peer"
	"github.com/glintchain/glintd/rpc"
	"github.com/jrick/logrotate/rotator"
)

// logRotator rotates the on-disk log file so glintd.log never grows
// without bound. It lives for the process lifetime and is closed on
// shutdown, same as the teacher's logRotator.
var logRotator *rotator.Rotator

// log is this package's own logger, covering startup, shutdown, and
// wiring messages that don't belong to any one subsystem.
var log flog.Logger = flog.Disabled

// subsystemLoggers maps each package's UseLogger hook to the tag its
// messages should carry.
var subsystemLoggers = map[string]func(flog.Logger){
	"CHAIN": blockchain.UseLogger,
	"MEMP":  mempool.UseLogger,
	"MINR":  mining.UseLogger,
	"SYNC":  netsync.UseLogger,
	"PEER":  peer.UseLogger,
	"CONN":  connmgr.UseLogger,
	"RPC":   rpc.UseLogger,
}

// initLogRotator opens (creating if needed) the rotating log file under
// logDir and returns a writer that also mirrors output to stdout.
func initLogRotator(logDir string) (io.Writer, error) {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, err
	}

	logFile := filepath.Join(logDir, defaultLogFilename)
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return nil, err
	}
	logRotator = r

	return io.MultiWriter(os.Stdout, r), nil
}

// setLogLevels wires every subsystem's package-level logger to a backend
// writing through w at level, and returns the level it parsed cfg's
// debuglevel string into (falling back to info on an unrecognized value).
func setLogLevels(w io.Writer, levelStr string) flog.Level {
	level, ok := flog.LevelFromString(levelStr)
	if !ok {
		level = flog.LevelInfo
	}
	for tag, use := range subsystemLoggers {
		use(flog.NewBackend(w, tag, level))
	}
	log = flog.NewBackend(w, "GLTD", level)
	return level
}
