package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/dhruvsoni1802/dailydm/internal/cdp"
)

type ProcessStatus string

const (
	StatusStarting ProcessStatus = "starting"
	StatusRunning  ProcessStatus = "running"
	StatusStopped  ProcessStatus = "stopped"
	StatusFailed   ProcessStatus = "failed"
)

// stopTimeout is how long Stop waits after SIGTERM before killing.
const stopTimeout = 5 * time.Second

// Options controls how the browser is launched.
type Options struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
}

type Process struct {
	BinaryPath  string        // Path to the chromium binary
	DebugPort   int           // Port for debugging
	UserDataDir string        // Directory for user data
	Options     Options       // Launch options
	Cmd         *exec.Cmd     // Command to execute the chromium browser
	StartedAt   time.Time     // Time when the process started
	Status      ProcessStatus // Status of the process
}

// NewProcess creates a new browser process configuration.
// It claims a free debug port and creates a throwaway profile directory.
func NewProcess(binaryPath string, opts Options) (*Process, error) {
	// Step 1: Claim a debug port nobody else is using
	debugPort, err := GetFreePort()
	if err != nil {
		return nil, fmt.Errorf("failed to get free port: %w", err)
	}

	// Step 2: Create a fresh profile directory for this run
	userDataDir, err := os.MkdirTemp("", "dailydm-chromium-*")
	if err != nil {
		// Return port since we're failing
		ReturnPort(debugPort)
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &Process{
		BinaryPath:  binaryPath,
		DebugPort:   debugPort,
		UserDataDir: userDataDir,
		Options:     opts,
		Status:      StatusStarting,
	}, nil
}

// buildFlags constructs the command-line flags for Chrome
func (p *Process) buildFlags() []string {
	flags := []string{
		fmt.Sprintf("--remote-debugging-port=%d", p.DebugPort),
		fmt.Sprintf("--user-data-dir=%s", p.UserDataDir),
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-blink-features=AutomationControlled",
		"--no-first-run",
		"--no-default-browser-check",
	}
	//Window size only when both sides are set
	if p.Options.WindowWidth > 0 && p.Options.WindowHeight > 0 {
		flags = append(flags, fmt.Sprintf("--window-size=%d,%d", p.Options.WindowWidth, p.Options.WindowHeight))
	}
	if p.Options.Headless {
		flags = append(flags, "--headless=new", "--disable-gpu")
	}
	//Open a blank tab so there is a page target to attach to
	return append(flags, "about:blank")
}

// Start launches the browser process with appropriate flags
func (p *Process) Start() error {
	p.Cmd = exec.Command(p.BinaryPath, p.buildFlags()...)

	if err := p.Cmd.Start(); err != nil {
		p.Status = StatusFailed
		// Give back the port and profile since we're failing
		_ = p.release()
		return fmt.Errorf("failed to start browser process: %w", err)
	}

	p.Status = StatusRunning
	p.StartedAt = time.Now()

	return nil
}

// WaitReady polls the DevTools endpoint until it answers or timeout elapses.
func (p *Process) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	port := strconv.Itoa(p.DebugPort)

	// Poll /json/version until Chrome answers
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		// Each attempt gets its own short deadline
		probeCtx, probeCancel := context.WithTimeout(ctx, 500*time.Millisecond)
		_, err := cdp.GetVersion(probeCtx, "127.0.0.1", port)
		probeCancel()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("devtools did not answer at %s within %s: %w", p.GetDebugURL(), timeout, err)
		case <-ticker.C:
		}
	}
}

// Stop terminates the browser process, force-killing it if it ignores SIGTERM.
func (p *Process) Stop() error {
	if p.Cmd == nil || p.Cmd.Process == nil {
		return fmt.Errorf("process was never started")
	}
	if p.Status == StatusStopped {
		return nil
	}

	// Step 1: Ask the browser to exit
	if err := terminate(p.Cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to send termination signal: %w", err)
	}

	// Step 2: Wait for it in the background
	done := make(chan error, 1)
	go func() {
		done <- p.Cmd.Wait()
	}()

	// Step 3: Force kill if it is still running after stopTimeout
	select {
	case <-done:
		// exit status after a signal is expected
	case <-time.After(stopTimeout):
		if err := p.Cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to force kill process: %w", err)
		}
		<-done
	}

	p.Status = StatusStopped
	return p.release()
}

// release gives back the debug port and deletes the throwaway profile.
func (p *Process) release() error {
	ReturnPort(p.DebugPort)
	if err := os.RemoveAll(p.UserDataDir); err != nil {
		return fmt.Errorf("failed to remove user data directory: %w", err)
	}
	return nil
}

// IsAlive checks if the process is still running
func (p *Process) IsAlive() bool {
	if p.Cmd == nil || p.Cmd.Process == nil || p.Status == StatusStopped {
		return false
	}
	return probe(p.Cmd.Process) == nil
}

// GetPID returns the process ID if the process is running
func (p *Process) GetPID() int {
	if p.Cmd != nil && p.Cmd.Process != nil {
		return p.Cmd.Process.Pid
	}
	return 0
}

// GetDebugURL returns the Chrome DevTools Protocol URL
func (p *Process) GetDebugURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", p.DebugPort)
}
