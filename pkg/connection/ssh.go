package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"example.com/netadapter/pkg"
)

// SSHConfig describes how to reach a remote host.
type SSHConfig struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	IdentityFile          string
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
	Timeout               time.Duration
}

// SSHRunner runs commands on a remote host, one SSH session per command.
type SSHRunner struct {
	cfg    SSHConfig
	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHRunner validates cfg and returns a runner. The connection is opened
// lazily on the first Run.
func NewSSHRunner(cfg SSHConfig) (*SSHRunner, error) {
	if cfg.Host == "" {
		return nil, errors.New("ssh host is required")
	}
	if cfg.User == "" {
		return nil, errors.New("ssh user is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	return &SSHRunner{cfg: cfg}, nil
}

func (r *SSHRunner) clientConfig() (*ssh.ClientConfig, error) {
	var hostKeyCallback ssh.HostKeyCallback
	if r.cfg.InsecureIgnoreHostKey {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		if r.cfg.KnownHostsFile == "" {
			return nil, errors.New("known_hosts file is required unless host key checking is disabled")
		}
		var err error
		hostKeyCallback, err = knownhosts.New(r.cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts file: %w", err)
		}
	}

	var auth []ssh.AuthMethod
	if r.cfg.IdentityFile != "" {
		key, err := os.ReadFile(r.cfg.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse identity file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if r.cfg.Password != "" {
		auth = append(auth, ssh.Password(r.cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("no ssh authentication method configured")
	}

	return &ssh.ClientConfig{
		User:            r.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         r.cfg.Timeout,
	}, nil
}

func (r *SSHRunner) connect() (*ssh.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}
	cfg, err := r.clientConfig()
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(r.cfg.Host, strconv.Itoa(r.cfg.Port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	pkg.WithField("host", addr).Info("ssh connection established")
	r.client = client
	return client, nil
}

// commandContext bounds one command by the configured timeout. A zero
// timeout leaves ctx unchanged.
func (r *SSHRunner) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, r.cfg.Timeout)
	}
	return ctx, func() {}
}

func (r *SSHRunner) Run(ctx context.Context, command string) (Result, error) {
	ctx, cancel := r.commandContext(ctx)
	defer cancel()

	client, err := r.connect()
	if err != nil {
		return Result{}, err
	}

	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	pkg.WithFields(map[string]interface{}{"host": r.cfg.Host, "command": command}).Debug("executing over ssh")

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return Result{}, fmt.Errorf("%s: %w", command, ctx.Err())
	case err = <-done:
	}

	res := Result{Stdout: stdout.String(), Stderr: truncateStderr(stderr.String())}
	if err == nil {
		return res, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, nil
	}
	return res, fmt.Errorf("%s: %w", command, err)
}

// IP returns the remote address of the open connection, or the configured
// host before the first Run.
func (r *SSHRunner) IP() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		if host, _, err := net.SplitHostPort(r.client.RemoteAddr().String()); err == nil {
			return host
		}
	}
	return r.cfg.Host
}

// Close closes the underlying SSH connection.
func (r *SSHRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
