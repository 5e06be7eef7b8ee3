package export

import (
	"context"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/errors"
)

// FTPTarget uploads the master output to an FTP server. Transfers use
// binary mode; one connection is opened per upload.
type FTPTarget struct {
	host     string
	port     int
	username string
	password string
	basePath string
	timeout  time.Duration
}

// NewFTPTarget creates an FTP target from the user configuration.
func NewFTPTarget(cfg conf.ExportTargetFTP) *FTPTarget {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FTPTarget{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		basePath: cfg.Path,
		timeout:  timeout,
	}
}

// Name identifies the target in logs and error messages.
func (t *FTPTarget) Name() string { return "ftp" }

// connect dials and authenticates in a goroutine so the caller's context
// can abort a hanging handshake.
func (t *FTPTarget) connect(ctx context.Context) (*ftp.ServerConn, error) {
	type connResult struct {
		conn *ftp.ServerConn
		err  error
	}
	resultChan := make(chan connResult, 1)

	go func() {
		addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
		conn, err := ftp.Dial(addr, ftp.DialWithTimeout(t.timeout))
		if err != nil {
			resultChan <- connResult{nil, errors.New(err).
				Component("export").
				Category(errors.CategoryNetwork).
				Context("operation", "ftp_dial").
				Build()}
			return
		}

		if t.username != "" {
			if err := conn.Login(t.username, t.password); err != nil {
				_ = conn.Quit()
				resultChan <- connResult{nil, errors.New(err).
					Component("export").
					Category(errors.CategoryNetwork).
					Context("operation", "ftp_login").
					Build()}
				return
			}
		}

		resultChan <- connResult{conn, nil}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		return result.conn, result.err
	}
}

// Validate connects and authenticates once. Directory creation is deferred
// to upload time since many servers only allow it under the login root.
func (t *FTPTarget) Validate() error {
	if t.host == "" {
		return errors.Newf("ftp host is empty").
			Component("export").
			Category(errors.CategoryConfiguration).
			Build()
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	return conn.Quit()
}

// Upload stores localPath on the server under the configured base path.
func (t *FTPTarget) Upload(ctx context.Context, localPath, remoteName string) error {
	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

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
		// Best effort: the directory may already exist.
		_ = conn.MakeDir(t.basePath)
		remotePath = path.Join(t.basePath, remoteName)
	}

	if err := conn.Stor(remotePath, src); err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryNetwork).
			Context("operation", "ftp_store").
			Build()
	}

	return nil
}
