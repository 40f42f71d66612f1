package feed

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xcri-import/internal/httpx"
)

const sample = `<catalog xmlns="http://xcri.org/profiles/1.2/catalog"/>`

func compress(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := io.WriteString(w, s)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func readAll(t *testing.T, o Opener, location string) string {
	t.Helper()
	rc, err := o.Open(context.Background(), location)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestOpenLocalFiles(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "catalog.xml")
	packed := filepath.Join(dir, "catalog.xml.br")
	require.NoError(t, os.WriteFile(plain, []byte(sample), 0o644))
	require.NoError(t, os.WriteFile(packed, compress(t, sample), 0o644))

	assert.Equal(t, sample, readAll(t, Opener{}, plain))
	assert.Equal(t, sample, readAll(t, Opener{}, packed))
	assert.Equal(t, sample, readAll(t, Opener{}, "file://"+plain))
}

func TestOpenStdin(t *testing.T) {
	assert.Equal(t, sample, readAll(t, Opener{Stdin: strings.NewReader(sample)}, "-"))
}

func TestOpenHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog.xml":
			io.WriteString(w, sample)
		case "/encoded":
			w.Header().Set("Content-Encoding", "br")
			w.Write(compress(t, sample))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := Opener{HTTP: srv.Client(), Retry: httpx.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond}}

	assert.Equal(t, sample, readAll(t, o, srv.URL+"/catalog.xml"))
	assert.Equal(t, sample, readAll(t, o, srv.URL+"/encoded"))

	_, err := o.Open(context.Background(), srv.URL+"/missing.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}

func TestOpenErrors(t *testing.T) {
	testCases := []struct {
		name     string
		location string
		contains string
	}{
		{"empty", "", "empty location"},
		{"missing file", filepath.Join(t.TempDir(), "nope.xml"), "feed: open"},
		{"unsupported scheme", "ftp://example.org/catalog.xml", "unsupported scheme"},
		{"sftp without credentials", "sftp://example.org/catalog.xml", "SFTP_USER"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Opener{}.Open(context.Background(), tc.location)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}
