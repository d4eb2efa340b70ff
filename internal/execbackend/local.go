package execbackend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// LocalBackend runs the scraper as a local subprocess with stdout and stderr
// merged into one stream.
type LocalBackend struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewLocalBackend creates a LocalBackend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{}
}

// Submit starts the command and returns its combined output stream.
func (b *LocalBackend) Submit(ctx context.Context, command Command) (LineStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cmd != nil {
		return nil, errors.New("a command is already in flight")
	}

	cmd := exec.CommandContext(ctx, command.Program, command.Args...)
	cmd.Dir = command.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command.Program, err)
	}

	b.cmd = cmd

	return &localStream{
		backend: b,
		cmd:     cmd,
		scanner: bufio.NewScanner(stdout),
	}, nil
}

// Cancel terminates the in-flight process: SIGTERM first, SIGKILL if the
// process is still around shortly after.
func (b *LocalBackend) Cancel() error {
	b.mu.Lock()
	cmd := b.cmd
	b.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Signal(terminateSignal); err != nil {
		return cmd.Process.Kill()
	}

	go func() {
		time.Sleep(5 * time.Second)
		_ = cmd.Process.Kill()
	}()

	return nil
}

// Close releases the backend. The in-flight process, if any, is cancelled.
func (b *LocalBackend) Close() error {
	return b.Cancel()
}

type localStream struct {
	backend *LocalBackend
	cmd     *exec.Cmd
	scanner *bufio.Scanner
}

func (s *localStream) Scan() bool {
	return s.scanner.Scan()
}

func (s *localStream) Text() string {
	return s.scanner.Text()
}

func (s *localStream) Wait() error {
	err := s.cmd.Wait()

	s.backend.mu.Lock()
	s.backend.cmd = nil
	s.backend.mu.Unlock()

	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return err
}
