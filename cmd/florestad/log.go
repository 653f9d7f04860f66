package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/Davidson-Souza/floresta-go/csn"
)

// logWriter sends log output to stdout and, once the rotator is up, to
// the rotating log file as well.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var (
	backendLog = btclog.NewBackend(logWriter{})
	logRotator *rotator.Rotator

	csnLog = backendLog.Logger("CSN")
)

func init() {
	csn.UseLogger(csnLog)
}

// initLogRotator sets up the rotating log file.  Must run before any
// logging output lands in the file.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		return fmt.Errorf("failed to create log directory: %s", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %s", err)
	}
	logRotator = r
	return nil
}

func setLogLevel(level string) bool {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return false
	}
	csnLog.SetLevel(lvl)
	return true
}
