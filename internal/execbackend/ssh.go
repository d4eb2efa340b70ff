package execbackend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig holds connection settings for a remote execution host.
type SSHConfig struct {
	Host    string
	User    string
	KeyPath string

	// KillPattern is passed to pkill -f on Cancel to terminate the remote
	// scraper process tree.
	KillPattern string
}

// SSHBackend runs the scraper over an SSH command channel. The combined
// output of the remote command is streamed line by line, so the job worker
// logic is identical to the local subprocess case.
type SSHBackend struct {
	cfg SSHConfig

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHBackend dials the remote host.
func NewSSHBackend(cfg SSHConfig) (*SSHBackend, error) {
	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key %s: %w", cfg.KeyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // scrape hosts are ephemeral
		Timeout:         30 * time.Second,
	}

	addr := cfg.Host
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}

	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s failed: %w", addr, err)
	}

	return &SSHBackend{cfg: cfg, client: client}, nil
}

// Submit runs the command on the remote host, returning its combined output.
func (b *SSHBackend) Submit(ctx context.Context, command Command) (LineStream, error) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()

	if client == nil {
		return nil, errors.New("SSH backend is closed")
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open SSH session: %w", err)
	}

	pr, pw := io.Pipe()
	session.Stdout = pw
	session.Stderr = pw

	done := make(chan error, 1)
	go func() {
		err := session.Run(command.ShellLine())
		pw.CloseWithError(nil)
		session.Close()
		done <- err
	}()

	// Tear the session down if the context is cancelled mid-run.
	go func() {
		<-ctx.Done()
		session.Close()
	}()

	return &sshStream{
		scanner: bufio.NewScanner(pr),
		done:    done,
	}, nil
}

// Cancel best-effort terminates the remote scraper via pkill on a fresh
// session.
func (b *SSHBackend) Cancel() error {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()

	if client == nil || b.cfg.KillPattern == "" {
		return nil
	}

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open kill session: %w", err)
	}
	defer session.Close()

	// pkill exits 1 when nothing matched; that is not a failure here.
	_ = session.Run("pkill -f " + shellQuote(b.cfg.KillPattern))
	return nil
}

// SyncDir uploads dir to s3://bucket/prefix from the remote host. The
// scraper output lives on that host, so the sync has to run there; the
// remote side needs the aws CLI and S3 credentials.
func (b *SSHBackend) SyncDir(ctx context.Context, dir, bucket, prefix string) error {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()

	if client == nil {
		return errors.New("SSH backend is closed")
	}

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open sync session: %w", err)
	}
	defer session.Close()

	go func() {
		<-ctx.Done()
		session.Close()
	}()

	cmd := fmt.Sprintf("aws s3 sync %s s3://%s/%s", shellQuote(dir), bucket, prefix)
	out, err := session.CombinedOutput(cmd)
	if err != nil {
		return fmt.Errorf("remote sync failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Close closes the SSH connection.
func (b *SSHBackend) Close() error {
	b.mu.Lock()
	client := b.client
	b.client = nil
	b.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

type sshStream struct {
	scanner *bufio.Scanner
	done    chan error
}

func (s *sshStream) Scan() bool {
	return s.scanner.Scan()
}

func (s *sshStream) Text() string {
	return s.scanner.Text()
}

func (s *sshStream) Wait() error {
	err := <-s.done
	if err == nil {
		return nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitStatus()}
	}
	return err
}

// ShellLine renders the command as a single shell line with arguments
// quoted, for execution over a remote command channel.
func (c Command) ShellLine() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Program)
	for _, arg := range c.Args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$&|;<>()*?[]#~%{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
