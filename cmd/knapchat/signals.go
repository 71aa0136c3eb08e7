package main

import (
	"os"
	"os/signal"
	"syscall"
)

// receiveSignals reports SIGINT and SIGTERM on the returned channel until
// stop is called. The channel is buffered so a signal sent while nothing is
// receiving is not lost.
func receiveSignals() (<-chan os.Signal, func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	return c, func() { signal.Stop(c) }
}
