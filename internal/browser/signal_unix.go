//go:build !windows

package browser

import (
	"os"
	"syscall"
)

func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// probe sends signal 0, which checks existence without affecting the process.
func probe(p *os.Process) error {
	return p.Signal(syscall.Signal(0))
}
