package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ptscraper/internal/downloader"
	"ptscraper/pkg/checkpoint"
	"ptscraper/pkg/config"
	errs "ptscraper/pkg/errors"
	"ptscraper/pkg/extract"
	"ptscraper/pkg/logger"
	"ptscraper/pkg/mapping"
	"ptscraper/pkg/proxy"
	"ptscraper/pkg/storage"
)

// mockSite is an HTTP listing site: relative entry links on listing pages,
// absolute torrent links on entry pages, and one torrent that always fails.
type mockSite struct {
	server   *httptest.Server
	pages    int
	requests int32
}

func newMockSite(t *testing.T, pages int) *mockSite {
	t.Helper()
	m := &mockSite{pages: pages}

	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handle)
	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockSite) handle(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requests, 1)
	path := r.URL.Path

	switch {
	case path == "/":
		fmt.Fprint(w, "<html><body>")
		for i := 1; i <= m.pages; i++ {
			fmt.Fprintf(w, `<a class="page-numbers" href="/page/%d">%d</a>`, i, i)
		}
		fmt.Fprint(w, `<a class="next page-numbers" href="/page/2">Next</a></body></html>`)
	case strings.HasPrefix(path, "/page/"):
		n := strings.TrimPrefix(path, "/page/")
		fmt.Fprintf(w, `<html><body><a href="/entry-%s.html">entry</a><a href="/about">about</a></body></html>`, n)
	case strings.HasPrefix(path, "/entry-"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/"), ".html")
		fmt.Fprintf(w, `<html><body><a href="%s/dl/Cat/[site].%s.torrent">get</a>`, m.server.URL, id)
		if id == "entry-2" {
			fmt.Fprintf(w, `<a href="%s/dl/Cat/[site].broken.torrent">get</a>`, m.server.URL)
		}
		fmt.Fprint(w, "</body></html>")
	case strings.HasPrefix(path, "/dl/"):
		if strings.Contains(path, "broken") {
			http.Error(w, "gone away", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "d8:announce4:test")
	default:
		http.NotFound(w, r)
	}
}

func TestRunAgainstHTTPSite(t *testing.T) {
	site := newMockSite(t, 3)

	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = site.server.URL
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Download.RetryAttempts = 1
	cfg.Download.InitialBackoff = time.Millisecond
	cfg.Download.MaxBackoff = time.Millisecond
	cfg.Download.JitterFactor = 0
	cfg.Download.MaxRounds = 2
	cfg.Extract.TorrentPattern = `^` + regexp.QuoteMeta(site.server.URL) + `/dl/(.+)/\[[^\]]+\]\.(.+)\.torrent$`

	layout := storage.NewLayout(cfg.Output.BaseDirectory)
	store := checkpoint.NewFileStore(layout.CheckpointPath())
	ex, err := extract.NewHTMLExtractor(cfg.Extract, cfg.Site.BaseURL)
	require.NoError(t, err)
	mapper, err := mapping.NewTemplateMapper(cfg.Extract.TorrentPattern, layout)
	require.NoError(t, err)

	client := proxy.NewDirectClient(cfg.Site.UserAgent, 5*time.Second)
	log := logger.NewTestLogger()

	p, err := New(cfg, Deps{
		Fetchers:  []downloader.Fetcher{client},
		Store:     store,
		Extractor: ex,
		Mapper:    mapper,
	}, log)
	require.NoError(t, err)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	cp, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cp.MaxPages)
	assert.Equal(t, []string{"entry-1.html", "entry-2.html"}, cp.Entries)
	assert.Len(t, cp.Torrents, 3)
	// same-site torrent links are kept as fetchable URLs
	assert.Contains(t, cp.Torrents, site.server.URL+"/dl/Cat/[site].entry-1.torrent")
	assert.Empty(t, summary.Unmapped)

	data, err := os.ReadFile(layout.TorrentPath("Cat", "entry-1"))
	require.NoError(t, err)
	assert.Equal(t, "d8:announce4:test", string(data))
	assert.FileExists(t, layout.TorrentPath("Cat", "entry-2"))
	assert.NoFileExists(t, layout.TorrentPath("Cat", "broken"))

	failures := summary.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, 2, failures[0].Rounds)
	assert.ErrorIs(t, failures[0].Err, errs.ErrPermanentlyFailed)
	assert.True(t, strings.HasSuffix(failures[0].Job.Source, "broken.torrent"))
	assert.True(t, log.HasMessage("Job permanently failed"))

	// the broken torrent is the only job of the next run
	again, err := New(cfg, Deps{
		Fetchers:  []downloader.Fetcher{client},
		Store:     store,
		Extractor: ex,
		Mapper:    mapper,
	}, logger.NewNopLogger())
	require.NoError(t, err)
	second, err := again.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.JobsIssued())
	assert.Len(t, second.Failures(), 1)
}
