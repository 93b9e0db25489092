package wallet

import "github.com/btcsuite/btclog"

// log is a package-level logger that is disabled by default until the
// caller installs one via UseLogger.
var log = btclog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}
