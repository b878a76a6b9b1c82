// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glintchain/glintd/chaincfg"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "glintd.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "glintd.log"
	defaultMaxPeers       = 125
	defaultRPCListen      = "127.0.0.1:9591"
)

var (
	defaultHomeDir    = filepath.Join(homeDir(), ".glintd")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, "data")
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for glintd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ConfigFile     string   `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir        string   `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir         string   `long:"logdir" description:"Directory to log output"`
	AddPeers       []string `short:"a" long:"addpeer" description:"Add a peer to connect with at startup"`
	ConnectPeers   []string `long:"connect" description:"Connect only to the specified peers at startup"`
	Listeners      []string `long:"listen" description:"Add an interface/port to listen for connections (default all interfaces port 9590, testnet: 19590)"`
	MaxPeers       int      `long:"maxpeers" description:"Max number of inbound and outbound peers"`
	RPCListen      string   `long:"rpclisten" description:"Add an interface/port for the operator surface (status, add-peer, submit)"`
	MiningAddr     string   `long:"miningaddr" description:"Address to pay mined block rewards to; enables CPU mining if set"`
	GenerateBlocks bool     `long:"generate" description:"Generate (mine) blocks using the CPU"`
	NumWorkers     int      `long:"miningworkers" description:"Number of CPU mining workers to run when generate is enabled"`
	DebugLevel     string   `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	TestNet3       bool     `long:"testnet" description:"Use the test network"`
	SimNet         bool     `long:"simnet" description:"Use the simulation test network"`
	RegressionTest bool     `long:"regtest" description:"Use the regression test network"`

	chainParams *chaincfg.Params
}

// homeDir returns the current user's home directory, or the working
// directory if it can't be determined.
func homeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return dir
}

// cleanAndExpandPath expands environment variables and a leading ~ in the
// passed path, then cleans the result.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~") {
		path = strings.Replace(path, "~", homeDir(), 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options again so they take precedence over the config file
func loadConfig() (*config, []string, error) {
	cfg := config{
		ConfigFile: defaultConfigFile,
		DataDir:    defaultDataDir,
		LogDir:     defaultLogDir,
		MaxPeers:   defaultMaxPeers,
		RPCListen:  defaultRPCListen,
		DebugLevel: defaultLogLevel,
		NumWorkers: 1,
	}

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, nil, err
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		if err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile); err != nil {
			if _, ok := err.(*os.PathError); !ok {
				return nil, nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			return nil, nil, err
		}
		return nil, nil, err
	}

	numNets := 0
	cfg.chainParams = &chaincfg.MainNetParams
	if cfg.TestNet3 {
		numNets++
		cfg.chainParams = &chaincfg.TestNet3Params
	}
	if cfg.SimNet {
		numNets++
		cfg.chainParams = &chaincfg.SimNetParams
	}
	if cfg.RegressionTest {
		numNets++
		cfg.chainParams = &chaincfg.RegressionNetParams
	}
	if numNets > 1 {
		return nil, nil, fmt.Errorf("loadConfig: multiple network params can't be used together -- choose one")
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	netDir := strings.ToLower(cfg.chainParams.Name)
	cfg.DataDir = filepath.Join(cfg.DataDir, netDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, netDir)

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	if len(cfg.Listeners) == 0 {
		cfg.Listeners = []string{"0.0.0.0:" + cfg.chainParams.DefaultPort}
	}

	if cfg.MaxPeers <= 0 {
		cfg.MaxPeers = defaultMaxPeers
	}

	return &cfg, remainingArgs, nil
}
