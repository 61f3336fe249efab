//go:build windows

package browser

import "os"

// Windows has no SIGTERM; Kill is the only way to stop the process.
func terminate(p *os.Process) error {
	return p.Kill()
}

func probe(p *os.Process) error {
	_, err := os.FindProcess(p.Pid)
	return err
}
