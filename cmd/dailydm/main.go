package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dhruvsoni1802/dailydm/internal/config"
	"github.com/dhruvsoni1802/dailydm/internal/logging"
)

// errRunFailed is returned when a run failed; the details are already in the log.
var errRunFailed = errors.New("run failed")

// Function to initialize the logger
func setupLogger(cfg *config.Config, console io.Writer) (*slog.Logger, io.Closer, error) {
	file, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}

	// Every line goes to the console and is appended to the log file
	logger := logging.New(logging.Tee(console, file), logging.ParseLevel(cfg.LogLevel))
	return logger, file, nil
}

// Main entry point of the program
func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
