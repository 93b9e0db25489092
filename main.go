package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const version = "0.1.0"

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	if err := walletMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func walletMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Create {
		return createWallet(cfg)
	}

	listenForShutdown()

	netDir := networkDir(cfg.AppDataDir, activeNet)
	key, err := walletKey(netDir)
	if err != nil {
		return err
	}
	w, err := openWallet(netDir, key)
	if err != nil {
		return err
	}
	d, err := openDongle(netDir)
	if err != nil {
		return err
	}
	walletPath := filepath.Join(netDir, walletFilename)

	switch {
	case cfg.Register != "":
		return registerDescriptor(cfg, w, d, key, walletPath)
	case cfg.Address:
		return allocateAddress(cfg, w, d, key, walletPath)
	case cfg.Rescan != "":
		return rescanBlocks(cfg, w, d, key, walletPath)
	case cfg.ImportICBOC != "":
		return importICBOC(cfg, w, d, key, walletPath)
	default:
		return printInfo(w, d)
	}
}
