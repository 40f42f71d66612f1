// Package feed acquires the raw feed byte stream from a local path, stdin,
// an HTTP(S) URL or an SFTP server, decoding brotli transparently.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"xcri-import/internal/httpx"
	"xcri-import/internal/sftpclient"
)

// Opener resolves feed locations. The zero value reads local files and HTTP
// with default settings.
type Opener struct {
	HTTP  *http.Client
	Retry httpx.RetryConfig
	SFTP  sftpclient.Config // credentials for sftp:// locations
	Stdin io.Reader
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Open returns the feed at location as a stream. The caller must Close it.
func (o Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, fmt.Errorf("feed: empty location")
	}
	if location == "-" {
		in := o.Stdin
		if in == nil {
			in = os.Stdin
		}
		return io.NopCloser(in), nil
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path (a one-letter scheme is a Windows drive)
		return openFile(location)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return openFile(u.Path)
	case "http", "https":
		return o.openHTTP(ctx, u)
	case "sftp":
		return o.openSFTP(ctx, u)
	default:
		return nil, fmt.Errorf("feed: unsupported scheme %q in %s", u.Scheme, location)
	}
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", path, err)
	}
	return maybeBrotli(f, path, ""), nil
}

func (o Opener) openHTTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	client := o.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}

	target := u.String()
	resp, err := httpx.Open(
		ctx,
		client,
		func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return nil, err
			}
			r.Header.Set("Accept", "application/xml, text/xml;q=0.9, */*;q=0.5")
			return r, nil
		},
		o.Retry,
	)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", u.Redacted(), err)
	}
	return maybeBrotli(resp.Body, u.Path, resp.Header.Get("Content-Encoding")), nil
}

func (o Opener) openSFTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	cfg := o.SFTP
	if h := u.Hostname(); h != "" {
		cfg.Host = h
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("feed: bad sftp port %q", p)
		}
		cfg.Port = port
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			cfg.Pass = pass
		}
	}

	rc, err := sftpclient.Open(ctx, cfg, u.Path)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", u.Redacted(), err)
	}
	return maybeBrotli(rc, u.Path, ""), nil
}

// maybeBrotli wraps rc in a brotli decoder for ".br" paths or a "br"
// content encoding.
func maybeBrotli(rc io.ReadCloser, path, encoding string) io.ReadCloser {
	if strings.HasSuffix(strings.ToLower(path), ".br") || strings.EqualFold(strings.TrimSpace(encoding), "br") {
		return readCloser{Reader: brotli.NewReader(rc), Closer: rc}
	}
	return rc
}
