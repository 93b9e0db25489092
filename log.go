package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"

	"github.com/icetray-wallet/icetray/wallet"
)

var (
	backendLog = btclog.NewBackend(os.Stdout)

	log       = backendLog.Logger("ICY")
	walletLog = backendLog.Logger("WLLT")
)

func init() {
	wallet.UseLogger(walletLog)
}

// setLogLevels applies one debug level across every subsystem.
func setLogLevels(levelStr string) error {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return fmt.Errorf("invalid debug level %q", levelStr)
	}
	for _, logger := range []btclog.Logger{log, walletLog} {
		logger.SetLevel(level)
	}
	return nil
}
