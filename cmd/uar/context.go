package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// interruptibleContext returns a context canceled on SIGINT or SIGTERM, the
// way distri.InterruptibleContext does. create checks it between top-level
// targets and extract checks it once before extraction starts (never
// mid-entry, per the core's single-threaded, no-timeout resource model) so a
// ^C lands cleanly instead of mid-write.
func interruptibleContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		signal.Stop(sig)
		cancel()
	}()
	return ctx, cancel
}
