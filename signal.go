package main

import (
	"os"
	"os/signal"
)

// shutdownChannel is closed on the first interrupt.  Long-running
// operations poll shutdownRequested between units of work, so an
// interrupted rescan still saves the progress it made.
var shutdownChannel = make(chan struct{})

func listenForShutdown() {
	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, os.Interrupt)

	go func() {
		sig := <-interruptChannel
		log.Warnf("Received signal (%s).  Shutting down...", sig)
		close(shutdownChannel)
	}()
}

func shutdownRequested() bool {
	select {
	case <-shutdownChannel:
		return true
	default:
		return false
	}
}
