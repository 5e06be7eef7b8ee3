package export

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/errors"
)

// SFTPTarget uploads the master output over SSH, authenticating with either
// a password or a private key file.
type SFTPTarget struct {
	host     string
	port     int
	username string
	password string
	keyFile  string
	basePath string
	timeout  time.Duration
}

// NewSFTPTarget creates an SFTP target from the user configuration.
func NewSFTPTarget(cfg conf.ExportTargetSFTP) *SFTPTarget {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SFTPTarget{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		keyFile:  cfg.KeyFile,
		basePath: cfg.Path,
		timeout:  timeout,
	}
}

// Name identifies the target in logs and error messages.
func (t *SFTPTarget) Name() string { return "sftp" }

// connect establishes the SSH session and SFTP client in a goroutine so the
// caller's context can abort a hanging handshake.
func (t *SFTPTarget) connect(ctx context.Context) (*sftp.Client, *ssh.Client, error) {
	type connResult struct {
		client  *sftp.Client
		sshConn *ssh.Client
		err     error
	}
	resultChan := make(chan connResult, 1)

	go func() {
		config := &ssh.ClientConfig{
			User: t.username,
			// Note: use ssh.FixedHostKey or knownhosts when host keys are
			// available; field deployments rarely have them provisioned.
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
			Timeout:         t.timeout,
		}

		switch {
		case t.keyFile != "":
			key, err := os.ReadFile(t.keyFile)
			if err != nil {
				resultChan <- connResult{err: errors.New(err).
					Component("export").
					Category(errors.CategoryFileIO).
					Context("operation", "read_private_key").
					Build()}
				return
			}
			signer, err := ssh.ParsePrivateKey(key)
			if err != nil {
				resultChan <- connResult{err: errors.New(err).
					Component("export").
					Category(errors.CategoryConfiguration).
					Context("operation", "parse_private_key").
					Build()}
				return
			}
			config.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
		case t.password != "":
			config.Auth = []ssh.AuthMethod{ssh.Password(t.password)}
		default:
			resultChan <- connResult{err: errors.Newf("sftp target has neither password nor key file").
				Component("export").
				Category(errors.CategoryConfiguration).
				Build()}
			return
		}

		addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
		sshConn, err := ssh.Dial("tcp", addr, config)
		if err != nil {
			resultChan <- connResult{err: errors.New(err).
				Component("export").
				Category(errors.CategoryNetwork).
				Context("operation", "ssh_dial").
				Build()}
			return
		}

		client, err := sftp.NewClient(sshConn)
		if err != nil {
			_ = sshConn.Close()
			resultChan <- connResult{err: errors.New(err).
				Component("export").
				Category(errors.CategoryNetwork).
				Context("operation", "sftp_session").
				Build()}
			return
		}

		resultChan <- connResult{client: client, sshConn: sshConn}
	}()

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case result := <-resultChan:
		return result.client, result.sshConn, result.err
	}
}

// Validate connects once and verifies the base path can be created.
func (t *SFTPTarget) Validate() error {
	if t.host == "" {
		return errors.Newf("sftp host is empty").
			Component("export").
			Category(errors.CategoryConfiguration).
			Build()
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	client, sshConn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
		_ = sshConn.Close()
	}()

	if t.basePath != "" {
		if err := client.MkdirAll(t.basePath); err != nil {
			return errors.New(err).
				Component("export").
				Category(errors.CategoryNetwork).
				Context("operation", "create_remote_dir").
				Build()
		}
	}
	return nil
}

// Upload copies localPath to the server under the configured base path.
func (t *SFTPTarget) Upload(ctx context.Context, localPath, remoteName string) error {
	client, sshConn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
		_ = sshConn.Close()
	}()

	src, err := os.Open(localPath)
	if err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("operation", "open_master").
			Build()
	}
	defer src.Close()

	remotePath := remoteName
	if t.basePath != "" {
		if err := client.MkdirAll(t.basePath); err != nil {
			return errors.New(err).
				Component("export").
				Category(errors.CategoryNetwork).
				Context("operation", "create_remote_dir").
				Build()
		}
		remotePath = path.Join(t.basePath, remoteName)
	}

	dst, err := client.Create(remotePath)
	if err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryNetwork).
			Context("operation", "create_remote_file").
			Build()
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.New(err).
			Component("export").
			Category(errors.CategoryNetwork).
			Context("operation", "write_remote_file").
			Build()
	}

	return dst.Close()
}
