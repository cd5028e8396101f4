package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "ptscraper/pkg/errors"
	"ptscraper/pkg/logger"
	"ptscraper/pkg/retry"
)

const baselineIP = "198.51.100.1"

// fakeProxy answers every proxied request itself, reporting ip as the egress address
func fakeProxy(t *testing.T, ip string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !r.URL.IsAbs() {
			http.Error(w, "not a proxy request", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, ip+"\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func echoServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, baselineIP)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newValidator(echoURL string) *Validator {
	return &Validator{
		EchoURL:        echoURL,
		UserAgent:      "test-agent",
		Timeout:        2 * time.Second,
		RequestTimeout: 5 * time.Second,
		Concurrency:    4,
		Logger:         logger.NewNopLogger(),
	}
}

func TestBaseline(t *testing.T) {
	echo := echoServer(t)
	ip, err := Baseline(context.Background(), NewDirectClient("ua", time.Second), echo.URL)
	require.NoError(t, err)
	assert.Equal(t, baselineIP, ip)

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	_, err = Baseline(context.Background(), NewDirectClient("ua", time.Second), dead.URL)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	echo := echoServer(t)
	good := fakeProxy(t, "203.0.113.7")
	transparent := fakeProxy(t, baselineIP)
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	tests := []struct {
		name       string
		candidates []string
		want       []string
	}{
		{"routing proxy kept", []string{good.URL}, []string{good.URL}},
		{"same egress discarded", []string{transparent.URL}, nil},
		{"unreachable discarded", []string{closed.URL}, nil},
		{"malformed discarded", []string{"ftp://nope:21"}, nil},
		{"mixed", []string{closed.URL, good.URL, transparent.URL}, []string{good.URL}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clients, err := newValidator(echo.URL).Validate(context.Background(), tt.candidates, baselineIP)
			if tt.want == nil {
				assert.ErrorIs(t, err, errs.ErrNoValidProxies)
				assert.True(t, errs.IsFatal(err))
				return
			}
			require.NoError(t, err)
			var got []string
			for _, c := range clients {
				got = append(got, c.Address())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientFetch(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			fmt.Fprint(w, "hello")
		default:
			http.Error(w, "gone", http.StatusServiceUnavailable)
		}
	}))
	defer site.Close()

	c := NewDirectClient("test-agent", time.Second)
	body, err := c.Fetch(context.Background(), site.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	_, err = c.Fetch(context.Background(), site.URL+"/down")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeHTTPStatus, errs.TypeOf(err))
}

func TestParseEndpoint(t *testing.T) {
	u, err := ParseEndpoint("10.0.0.1:3128")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)

	u, err = ParseEndpoint("socks5://user:pw@10.0.0.1:1080")
	require.NoError(t, err)
	assert.Equal(t, "socks5", u.Scheme)

	_, err = ParseEndpoint("ftp://10.0.0.1:21")
	assert.Error(t, err)
}

func TestLoadCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := "http://a:1\n\n# comment\n  http://b:2  \nhttp://a:1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := LoadCandidates(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a:1", "http://b:2"}, got)

	_, err = LoadCandidates(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestFetchTimeoutIsRetried(t *testing.T) {
	var hits int32
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(200 * time.Millisecond):
		}
	}))
	t.Cleanup(slow.Close)

	client := NewDirectClient("ua", 50*time.Millisecond)
	cfg := &retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	}

	_, err := retry.DoWithResult(context.Background(), func(ctx context.Context) ([]byte, error) {
		return client.Fetch(ctx, slow.URL)
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeTransport, errs.TypeOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}
