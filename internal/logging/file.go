package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OpenFile opens path for appending, creating parent directories as needed.
func OpenFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Tee returns a writer that echoes every line to the console as well as the log file.
func Tee(console io.Writer, file io.Writer) io.Writer {
	if file == nil {
		return console
	}
	return io.MultiWriter(console, file)
}
