package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/icetray-wallet/icetray/netparams"
)

const (
	defaultDebugLevel = "info"
	defaultRangeEnd   = 100

	walletFilename = "wallet.bin"
	keyFilename    = "wallet.key"
	seedFilename   = "signer.seed"
)

var (
	defaultAppDataDir = btcutil.AppDataDir("icetray", false)

	activeNet = &netparams.MainNetParams
)

type config struct {
	// General options
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	AppDataDir  string `short:"A" long:"appdata" description:"Application data directory for the wallet, key, and signer seed files"`
	TestNet3    bool   `long:"testnet" description:"Use the test Bitcoin network (version 3) (default mainnet)"`
	SimNet      bool   `long:"simnet" description:"Use the simulation test network (default mainnet)"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	// Commands
	Create      bool   `long:"create" description:"Create a new wallet, key file, and signer seed"`
	Info        bool   `long:"info" description:"Print a summary of the wallet contents"`
	Register    string `long:"register" description:"Register a descriptor, e.g. wpkh(xpub.../0/*)"`
	RangeStart  uint32 `long:"rangestart" description:"First wildcard index to derive for --register"`
	RangeEnd    uint32 `long:"rangeend" description:"One past the last wildcard index to derive for --register"`
	Address     bool   `long:"address" description:"Allocate and label a receive address"`
	Descriptor  uint32 `long:"descriptor" description:"Descriptor index for --address"`
	Index       int64  `long:"index" description:"Explicit wildcard index for --address (default: next unused)"`
	Notes       string `long:"notes" description:"Notes to attach to the address created by --address"`
	Rescan      string `long:"rescan" description:"Scan a file of serialized blocks into the wallet"`
	ImportICBOC string `long:"importicboc" description:"Import a legacy ICBOC 1D wallet file"`
}

// loadConfig parses the command line, selects the active network, and
// applies the requested log level.
func loadConfig() (*config, error) {
	cfg := config{
		AppDataDir: defaultAppDataDir,
		DebugLevel: defaultDebugLevel,
		RangeEnd:   defaultRangeEnd,
		Index:      -1,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", filepath.Base(os.Args[0]), version)
		os.Exit(0)
	}

	numNets := 0
	if cfg.TestNet3 {
		activeNet = &netparams.TestNet3Params
		numNets++
	}
	if cfg.SimNet {
		activeNet = &netparams.SimNetParams
		numNets++
	}
	if numNets > 1 {
		return nil, fmt.Errorf("testnet and simnet are mutually " +
			"exclusive, use one")
	}

	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return nil, err
	}

	if cfg.Register != "" && cfg.RangeEnd <= cfg.RangeStart {
		return nil, fmt.Errorf("descriptor range [%d,%d) is empty",
			cfg.RangeStart, cfg.RangeEnd)
	}

	return &cfg, nil
}
