package utils

import (
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/sirupsen/logrus"
)

// WaitForTermination blocks until the process receives SIGINT or SIGTERM
func WaitForTermination() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// HandleSubroutinePanic recovers panics in background goroutines and
// optionally restarts the subroutine.
func HandleSubroutinePanic(identifier string, restartFn func()) {
	if err := recover(); err != nil {
		logrus.WithField("subroutine", identifier).Errorf("uncaught panic: %v, stack: %v", err, string(debug.Stack()))

		if restartFn != nil {
			go func() {
				defer HandleSubroutinePanic(identifier, restartFn)
				restartFn()
			}()
		}
	}
}
