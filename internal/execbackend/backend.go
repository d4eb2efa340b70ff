// Package execbackend abstracts how the external scraper program is invoked.
// A Backend submits one command and exposes its combined output as a lazy,
// finite, non-restartable sequence of text lines; the same job logic runs
// over a local subprocess or a remote shell.
package execbackend

import (
	"context"
	"fmt"
	"strconv"
)

// Command describes one scraper invocation.
type Command struct {
	// Program is the executable or interpreter entry point.
	Program string

	// Args are passed through verbatim.
	Args []string

	// Dir, when set, is the working directory (local backend only).
	Dir string
}

// ScrapeCommand builds the standard scraper invocation.
func ScrapeCommand(program, url string, maxArticles int, outputDir string) Command {
	return Command{
		Program: program,
		Args: []string{
			url,
			"--max-articles", strconv.Itoa(maxArticles),
			"--output", outputDir,
		},
	}
}

// LineStream yields output lines from a running command. Scan/Text follow
// the bufio.Scanner contract; Wait blocks until the process exits and
// returns nil only for a zero exit status. A stream cannot be restarted.
type LineStream interface {
	Scan() bool
	Text() string
	Wait() error
}

// Backend submits commands for execution.
type Backend interface {
	// Submit starts the command and returns its combined output stream.
	// At most one command is in flight per Backend instance.
	Submit(ctx context.Context, cmd Command) (LineStream, error)

	// Cancel attempts best-effort termination of the in-flight command.
	Cancel() error

	// Close releases backend resources.
	Close() error
}

// ExitError reports a non-zero exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with status %d", e.Code)
}
