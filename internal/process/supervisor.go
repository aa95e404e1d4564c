package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// State is the supervisor lifecycle state.
type State string

const (
	// StateIdle means no worker is running and none is wanted.
	StateIdle State = "idle"

	// StateRunning means the worker process is alive.
	StateRunning State = "running"

	// StateBackoff means the worker died and a respawn is pending.
	StateBackoff State = "backoff"

	// StateExited means the supervisor gave up: restarts disabled,
	// budget exhausted, or context cancelled.
	StateExited State = "exited"
)

// Supervision defaults applied for zero-valued config fields.
const (
	defaultBackoffInitial = time.Second
	defaultBackoffMax     = 30 * time.Second
	defaultStopGrace      = 5 * time.Second
)

// ErrRunning is returned when starting a supervisor whose worker is
// already alive or pending respawn.
var ErrRunning = errors.New("process: worker already running")

// Config describes one supervised rig worker.
type Config struct {
	// Name identifies the worker in logs.
	Name string

	// Binary is the executable to spawn.
	Binary string

	// Args are passed to the binary verbatim.
	Args []string

	// Env entries (key=value) are appended to the rig's own environment.
	Env []string

	// Dir is the worker's working directory. Empty inherits the rig's.
	Dir string

	// Restart respawns the worker when it exits unexpectedly.
	Restart bool

	// BackoffInitial is the delay before the first respawn. Each
	// further attempt doubles it, capped at BackoffMax.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// MaxRestarts bounds respawn attempts. 0 means unlimited.
	MaxRestarts int

	// StopGrace is how long Stop waits after SIGTERM before SIGKILL.
	StopGrace time.Duration
}

// Logger defines the logging interface used by the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Supervisor keeps one rig worker alive.
//
// All public methods are thread-safe.
type Supervisor struct {
	cfg    Config
	logger Logger

	mu       sync.Mutex
	state    State
	cmd      *exec.Cmd
	started  time.Time
	restarts int
	lastExit error
	stopping bool

	// done closes when the supervise loop finishes; stop wakes a
	// backoff sleep so Stop never waits out a long delay.
	done chan struct{}
	stop chan struct{}
}

// New creates a supervisor for the given worker config.
func New(cfg Config) *Supervisor {
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = defaultBackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	return &Supervisor{
		cfg:    cfg,
		logger: noopLogger{},
		state:  StateIdle,
	}
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Start spawns the worker and begins supervising it. A spawn failure is
// returned directly; later exits are handled by the restart policy.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRunning || s.state == StateBackoff {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRunning, s.cfg.Name)
	}
	s.stopping = false
	s.restarts = 0
	s.done = make(chan struct{})
	s.stop = make(chan struct{})
	s.mu.Unlock()

	if err := s.spawn(ctx); err != nil {
		s.mu.Lock()
		s.state = StateExited
		s.lastExit = err
		s.done = nil
		s.mu.Unlock()
		return err
	}

	go s.supervise(ctx)
	return nil
}

// Stop terminates the worker's process group: SIGTERM, a grace period,
// then SIGKILL. Stopping an idle supervisor is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if s.done == nil || s.stopping {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-s.done:
		s.mu.Unlock()
		return nil
	default:
	}
	s.stopping = true
	close(s.stop)
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		pid := cmd.Process.Pid
		s.logger.Info("stopping worker", "worker", s.cfg.Name, "pid", pid)

		// Signal the whole group: workers that fork (brokers, shells
		// wrapping a daemon) must not leave orphans behind.
		s.signalGroup(pid, syscall.SIGTERM)

		select {
		case <-done:
			s.logger.Info("worker stopped", "worker", s.cfg.Name)
			return nil
		case <-time.After(s.cfg.StopGrace):
			s.logger.Warn("worker ignored SIGTERM, killing",
				"worker", s.cfg.Name, "grace", s.cfg.StopGrace)
		}
		s.signalGroup(pid, syscall.SIGKILL)
	}

	<-done
	return nil
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the worker's process id, or 0 when nothing is running.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning && s.cmd != nil && s.cmd.Process != nil {
		return s.cmd.Process.Pid
	}
	return 0
}

// Restarts returns how many respawn attempts this session has made.
func (s *Supervisor) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// LastExit returns the error from the worker's most recent exit or
// spawn failure, nil if it has never failed.
func (s *Supervisor) LastExit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastExit
}

// Uptime returns how long the current worker process has been alive, 0
// when nothing is running.
func (s *Supervisor) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return 0
	}
	return time.Since(s.started)
}

// spawn launches one worker process and wires its output into the log.
func (s *Supervisor) spawn(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.cfg.Binary, s.cfg.Args...) //nolint:gosec // Binary path comes from validated rig config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}
	cmd.Dir = s.cfg.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker %s stdout pipe: %w", s.cfg.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("worker %s stderr pipe: %w", s.cfg.Name, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning worker %s: %w", s.cfg.Name, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.state = StateRunning
	s.started = time.Now()
	s.mu.Unlock()

	go s.relay("stdout", stdout)
	go s.relay("stderr", stderr)

	s.logger.Info("worker running", "worker", s.cfg.Name, "pid", cmd.Process.Pid)
	return nil
}

// relay copies one output stream into the rig log, line by line.
func (s *Supervisor) relay(stream string, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.logger.Debug("worker output",
			"worker", s.cfg.Name, "stream", stream, "line", sc.Text())
	}
}

// supervise waits on the worker and applies the restart policy until
// stopped or exhausted.
func (s *Supervisor) supervise(ctx context.Context) {
	defer close(s.done)

	backoff := s.cfg.BackoffInitial
	for {
		s.mu.Lock()
		cmd := s.cmd
		s.mu.Unlock()

		err := cmd.Wait()

		s.mu.Lock()
		s.lastExit = err
		stopping := s.stopping
		s.mu.Unlock()

		if stopping {
			s.setState(StateIdle)
			return
		}

		s.logger.Warn("worker exited unexpectedly",
			"worker", s.cfg.Name, "error", err)
		if !s.cfg.Restart {
			s.setState(StateExited)
			return
		}

		// Respawn with doubling backoff until one attempt sticks.
		respawned := false
		for !respawned {
			s.mu.Lock()
			if s.cfg.MaxRestarts > 0 && s.restarts >= s.cfg.MaxRestarts {
				s.mu.Unlock()
				s.logger.Error("worker restart budget exhausted",
					"worker", s.cfg.Name, "restarts", s.cfg.MaxRestarts)
				s.setState(StateExited)
				return
			}
			s.restarts++
			attempt := s.restarts
			s.mu.Unlock()

			s.setState(StateBackoff)
			s.logger.Info("respawning worker",
				"worker", s.cfg.Name, "attempt", attempt, "backoff", backoff)

			select {
			case <-ctx.Done():
				s.setState(StateExited)
				return
			case <-s.stop:
				s.setState(StateIdle)
				return
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > s.cfg.BackoffMax {
				backoff = s.cfg.BackoffMax
			}

			spawnErr := s.spawn(ctx)
			if spawnErr != nil {
				s.mu.Lock()
				s.lastExit = spawnErr
				s.mu.Unlock()
				s.logger.Error("worker respawn failed",
					"worker", s.cfg.Name, "error", spawnErr)
				continue
			}
			respawned = true
		}
	}
}

// signalGroup delivers a signal to the worker's process group, ignoring
// the already-gone case.
func (s *Supervisor) signalGroup(pid int, sig syscall.Signal) {
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warn("signalling worker group failed",
			"worker", s.cfg.Name, "signal", sig, "error", err)
	}
}

// setState updates the lifecycle state under the lock.
func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
