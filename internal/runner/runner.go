// Package runner executes analysis runs as subprocesses and relays their
// progress output as classified events.
//
// Running the workflow out of process isolates the serving path from
// analysis crashes and memory spikes, and lets one binary serve both roles:
// the server spawns `healthd analyze` against itself.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// EventType labels the events emitted for one run.
type EventType string

// Event types, mirroring the wire protocol of the analyze stream.
const (
	EventOutput   EventType = "output"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one unit of run progress.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Stage   Stage     `json:"stage"`
}

// stderrTailLimit bounds how much process stderr is kept for error reporting.
const stderrTailLimit = 4096

// waitDelay gives a killed process time to exit before Wait gives up on its
// pipes.
const waitDelay = 5 * time.Second

// Runner spawns analysis subprocesses and tracks how many are in flight.
// Safe for concurrent use.
type Runner struct {
	binPath  string
	baseArgs []string
	logger   *slog.Logger

	mu     sync.Mutex
	active map[int64]struct{}
	nextID int64
}

// New creates a Runner that invokes binPath with baseArgs, appending the
// profile ID and archetype per run. The server passes its own executable
// path with "analyze".
func New(binPath string, baseArgs []string, logger *slog.Logger) (*Runner, error) {
	if binPath == "" {
		return nil, fmt.Errorf("binary path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		binPath:  binPath,
		baseArgs: baseArgs,
		logger:   logger,
		active:   make(map[int64]struct{}),
	}, nil
}

// ActiveCount reports how many runs are currently in flight.
func (r *Runner) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Run starts one analysis subprocess and returns a channel of its events.
// The channel carries one output event per stdout line, then exactly one
// complete or error event, and is then closed. Canceling the context kills
// the process.
func (r *Runner) Run(ctx context.Context, profileID, archetype string) (<-chan Event, error) {
	args := make([]string, 0, len(r.baseArgs)+2)
	args = append(args, r.baseArgs...)
	args = append(args, profileID, archetype)

	cmd := exec.CommandContext(ctx, r.binPath, args...)
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("attaching stdout: %w", err)
	}
	var stderr tailBuffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting analysis process: %w", err)
	}

	id := r.register()
	r.logger.Info("analysis process started",
		"run_id", id, "profile_id", profileID, "archetype", archetype, "pid", cmd.Process.Pid)

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer r.unregister(id)

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			events <- Event{Type: EventOutput, Message: line, Stage: ClassifyStage(line)}
		}
		if err := scanner.Err(); err != nil {
			r.logger.Warn("reading analysis output failed", "run_id", id, "error", err)
		}

		if err := cmd.Wait(); err != nil {
			msg := fmt.Sprintf("Analysis failed: %s", strings.TrimSpace(stderr.String()))
			if ctx.Err() != nil {
				msg = fmt.Sprintf("Analysis canceled: %v", ctx.Err())
			}
			r.logger.Warn("analysis process failed", "run_id", id, "error", err)
			events <- Event{Type: EventError, Message: msg, Stage: StageError}
			return
		}

		r.logger.Info("analysis process finished", "run_id", id)
		events <- Event{Type: EventComplete, Message: "Analysis completed successfully", Stage: StageCompleted}
	}()

	return events, nil
}

func (r *Runner) register() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.active[id] = struct{}{}
	return id
}

func (r *Runner) unregister(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

// tailBuffer keeps only the last stderrTailLimit bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - stderrTailLimit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
