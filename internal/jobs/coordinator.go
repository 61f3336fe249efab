// Package jobs serializes runs triggered by the schedule and the HTTP API.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dhruvsoni1802/dailydm/internal/bot"
	"github.com/dhruvsoni1802/dailydm/internal/metrics"
)

var (
	ErrRunInProgress    = errors.New("a run is already in progress")
	ErrAlreadySentToday = errors.New("message already sent today")
)

// Trigger says what started a run
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerAPI      Trigger = "api"
)

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Run is the record of one triggered run. It lives in memory only.
type Run struct {
	ID         string     `json:"id"`
	Trigger    Trigger    `json:"trigger"`
	Forced     bool       `json:"forced"`
	Status     RunStatus  `json:"status"`
	Day        string     `json:"day,omitempty"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	Screenshot string     `json:"screenshot,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Runner performs one run. *bot.Runner implements it.
type Runner interface {
	Run(ctx context.Context) bot.Outcome
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context) bot.Outcome

func (f RunnerFunc) Run(ctx context.Context) bot.Outcome { return f(ctx) }

// Coordinator lets at most one run execute at a time and skips unforced runs
// once a run has succeeded on the current calendar day.
type Coordinator struct {
	runner  Runner
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time

	mu             sync.Mutex
	current        *Run
	latest         *Run
	lastSuccessDay string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator creates a coordinator. recorder may be nil.
func NewCoordinator(runner Runner, recorder *metrics.Recorder, logger *slog.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		runner:  runner,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Trigger runs synchronously and returns the finished record.
func (c *Coordinator) Trigger(ctx context.Context, trigger Trigger, force bool) (Run, error) {
	run, err := c.begin(trigger, force)
	if err != nil {
		return Run{}, err
	}
	return c.execute(ctx, run), nil
}

// Start begins a run in the background and returns its record in the running state.
// The run is bound to the coordinator's lifetime, not to the caller.
func (c *Coordinator) Start(trigger Trigger, force bool) (Run, error) {
	run, err := c.begin(trigger, force)
	if err != nil {
		return Run{}, err
	}
	snapshot := *run

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.execute(c.ctx, run)
	}()

	return snapshot, nil
}

// Latest returns the running record if any, else the last finished one.
func (c *Coordinator) Latest() (Run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return *c.current, true
	}
	if c.latest != nil {
		return *c.latest, true
	}
	return Run{}, false
}

// Wait blocks until every background run has finished
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Shutdown cancels background runs and waits for their teardown, bounded by ctx.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) begin(trigger Trigger, force bool) (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.skipped()
		return nil, ErrRunInProgress
	}

	now := c.now()
	if !force && c.lastSuccessDay == dayKey(now) {
		c.skipped()
		return nil, ErrAlreadySentToday
	}

	c.current = &Run{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Forced:    force,
		Status:    StatusRunning,
		StartedAt: now,
	}
	if c.metrics != nil {
		c.metrics.RunStarted()
	}
	return c.current, nil
}

func (c *Coordinator) execute(ctx context.Context, run *Run) Run {
	c.logger.Debug("run started", "run_id", run.ID, "trigger", run.Trigger, "forced", run.Forced)
	outcome := c.runner.Run(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	finished := c.now()
	run.FinishedAt = &finished
	run.Day = outcome.Selection.Weekday
	run.Message = outcome.Selection.Message
	run.Screenshot = outcome.Screenshot
	if outcome.Success {
		run.Status = StatusSucceeded
		c.lastSuccessDay = dayKey(run.StartedAt)
	} else {
		run.Status = StatusFailed
		if outcome.Err != nil {
			run.Error = outcome.Err.Error()
		}
	}

	if c.metrics != nil {
		c.metrics.RunFinished(outcome.Success, outcome.Duration(), finished)
	}

	c.latest = run
	c.current = nil
	c.logger.Debug("run finished", "run_id", run.ID, "status", run.Status)
	return *run
}

func (c *Coordinator) skipped() {
	if c.metrics != nil {
		c.metrics.RunSkipped()
	}
}

// dayKey is the local calendar day of t
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
