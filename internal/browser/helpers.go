package browser

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
)

const (
	MinPortRange = 9222 // Chrome's default debug port
	MaxPortRange = 9272 // 50 candidate debug ports
)

var (
	claimedPorts = make(map[int]bool)
	portMu       sync.Mutex
)

// IsPortAvailable checks if a port is available by attempting to listen on it
func IsPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// GetFreePort claims the first port in range that nothing is listening on.
func GetFreePort() (int, error) {
	portMu.Lock()
	defer portMu.Unlock()

	for port := MinPortRange; port < MaxPortRange; port++ {
		if claimedPorts[port] {
			continue
		}
		if IsPortAvailable(port) {
			claimedPorts[port] = true
			slog.Debug("allocated debug port", "port", port)
			return port, nil
		}
		slog.Debug("port in use by external process", "port", port)
	}

	return 0, fmt.Errorf("no free debug ports in %d-%d", MinPortRange, MaxPortRange-1)
}

// ReturnPort releases a port claimed by GetFreePort.
func ReturnPort(port int) {
	portMu.Lock()
	defer portMu.Unlock()

	if port < MinPortRange || port >= MaxPortRange {
		slog.Warn("attempted to return invalid port", "port", port)
		return
	}
	if !claimedPorts[port] {
		slog.Warn("port was not claimed, ignoring return", "port", port)
		return
	}
	delete(claimedPorts, port)
}
