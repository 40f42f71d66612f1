package sftpclient

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type Config struct {
	Host                  string
	Port                  int
	User                  string
	Pass                  string
	RemoteDir             string
	InsecureIgnoreHostKey bool
	KnownHostsKey         string // authorized_keys format, used when InsecureIgnoreHostKey is false
}

// session owns both connections; closing it closes sftp first, then ssh.
type session struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (s *session) Close() error {
	err := s.sftp.Close()
	if cerr := s.ssh.Close(); err == nil {
		err = cerr
	}
	return err
}

func (cfg Config) withDefaults() Config {
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "/"
	}
	return cfg
}

func hostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if cfg.KnownHostsKey == "" {
		return nil, fmt.Errorf("sftp: host key required (set SFTP_HOST_KEY or SFTP_INSECURE_IGNORE_HOST_KEY)")
	}
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(cfg.KnownHostsKey))
	if err != nil {
		return nil, fmt.Errorf("sftp: parse host key: %w", err)
	}
	return ssh.FixedHostKey(key), nil
}

func dial(ctx context.Context, cfg Config) (*session, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		return nil, fmt.Errorf("sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS")
	}

	cb, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: cb,
		Timeout:         20 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	// ssh.Dial has no ctx; race it against cancellation
	type dialRes struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialRes, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialRes{client: c, err: err}
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.client != nil {
				r.client.Close()
			}
		}()
		return nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("sftp: dial error: %w", r.err)
		}
		sshClient = r.client
	}

	sftpCli, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("sftp: new client: %w", err)
	}
	return &session{ssh: sshClient, sftp: sftpCli}, nil
}

// remoteFile keeps the session alive for as long as the file is being read.
type remoteFile struct {
	*sftp.File
	sess *session
}

func (f *remoteFile) Close() error {
	err := f.File.Close()
	if cerr := f.sess.Close(); err == nil {
		err = cerr
	}
	return err
}

// Open opens remotePath for streaming reads. A relative path is resolved
// against cfg.RemoteDir. The caller must Close the returned reader.
func Open(ctx context.Context, cfg Config, remotePath string) (io.ReadCloser, error) {
	cfg = cfg.withDefaults()
	sess, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if !path.IsAbs(remotePath) {
		remotePath = path.Join(cfg.RemoteDir, remotePath)
	}
	f, err := sess.sftp.Open(remotePath)
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("sftp: open remote file %s: %w", remotePath, err)
	}
	return &remoteFile{File: f, sess: sess}, nil
}

// UploadFile copies localPath to cfg.RemoteDir/remoteFileName.
func UploadFile(ctx context.Context, cfg Config, localPath string, remoteFileName string) error {
	cfg = cfg.withDefaults()
	sess, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.sftp.MkdirAll(cfg.RemoteDir); err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", cfg.RemoteDir, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	remotePath := path.Join(cfg.RemoteDir, remoteFileName)
	dst, err := sess.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("sftp: create remote file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("sftp: upload copy: %w", err)
	}

	return nil
}
