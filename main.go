package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/stellarops/calpipe/cmd"
	errUtils "github.com/stellarops/calpipe/errors"
)

func main() {
	// Exit with the correct POSIX code (128 + signal number) on interrupt.
	// Library scopes close via defers before the error propagates, so an
	// aborted run never leaves members checked out.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		if s, ok := sig.(syscall.Signal); ok {
			errUtils.OsExit(128 + int(s))
		}
		errUtils.OsExit(130)
	}()

	errUtils.OsExit(cmd.Execute())
}
