package extract

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ptscraper/pkg/config"
	errs "ptscraper/pkg/errors"
)

const indexHTML = `<html><body>
<div class="nav">
  <span class="page-numbers current">1</span>
  <a class="page-numbers" href="http://www.ptorrents.com/page/2">2</a>
  <a class="page-numbers" href="http://www.ptorrents.com/page/3">3</a>
  <span class="page-numbers dots">…</span>
  <a class="page-numbers" href="http://www.ptorrents.com/page/1234">1,234</a>
  <a class="next page-numbers" href="http://www.ptorrents.com/page/2">Next</a>
</div>
</body></html>`

const listingHTML = `<html><body>
<a href="http://www.ptorrents.com/alpha-movie.html">Alpha</a>
<a href="/beta-game.html">Beta</a>
<a href="http://WWW.PTORRENTS.COM//gamma.html">Gamma</a>
<a href="http://www.ptorrents.com/page/2">page</a>
<a href="http://www.ptorrents.com/alpha-movie.html">Alpha again</a>
<a>no href</a>
</body></html>`

const entryHTML = `<html><body>
<a href="https://d.ptorrents.com/Movies/2024/[ptorrents.com].Example.Title.torrent">Download</a>
<a href="https://d.ptorrents.com/Movies/2024/[site].Other.torrent">Mirror</a>
<a href="http://www.ptorrents.com/alpha-movie.html">Related</a>
</body></html>`

func newExtractor(t *testing.T) *HTMLExtractor {
	t.Helper()
	cfg := config.DefaultConfig()
	ex, err := NewHTMLExtractor(cfg.Extract, cfg.Site.BaseURL)
	require.NoError(t, err)
	return ex
}

func TestPageCount(t *testing.T) {
	ex := newExtractor(t)

	n, err := ex.PageCount([]byte(indexHTML))
	require.NoError(t, err)
	assert.Equal(t, 1234, n)
}

func TestPageCountErrors(t *testing.T) {
	ex := newExtractor(t)

	tests := []struct {
		name    string
		content string
	}{
		{"no pagination", `<html><body><p>empty</p></body></html>`},
		{"single element", `<a class="page-numbers">1</a>`},
		{"not a number", `<a class="page-numbers">x</a><a class="page-numbers">Next</a>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ex.PageCount([]byte(tt.content))
			require.Error(t, err)
			assert.Equal(t, errs.ErrorTypeParse, errs.TypeOf(err))
		})
	}
}

func TestEntryLinks(t *testing.T) {
	ex := newExtractor(t)

	seq, err := ex.Links([]byte(listingHTML), ".html")
	require.NoError(t, err)

	got := slices.Collect(seq)
	assert.Equal(t, []string{"alpha-movie.html", "beta-game.html", "gamma.html", "alpha-movie.html"}, got)

	// a second pass yields the same sequence
	assert.Equal(t, got, slices.Collect(seq))
}

func TestLinksStopEarly(t *testing.T) {
	ex := newExtractor(t)
	seq, err := ex.Links([]byte(listingHTML), ".html")
	require.NoError(t, err)

	var first string
	for link := range seq {
		first = link
		break
	}
	assert.Equal(t, "alpha-movie.html", first)
}

func TestTorrentLinksStayAbsolute(t *testing.T) {
	ex := newExtractor(t)

	seq, err := ex.Links([]byte(entryHTML), ".torrent")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://d.ptorrents.com/Movies/2024/[ptorrents.com].Example.Title.torrent",
		"https://d.ptorrents.com/Movies/2024/[site].Other.torrent",
	}, slices.Collect(seq))
}

func TestLinksKeepUnescapedPaths(t *testing.T) {
	ex := newExtractor(t)
	content := []byte(`<html><body>
<a href="https://d.ptorrents.com/TV Shows/[site].Some Show S01.torrent">spaces</a>
<a href="https://d.ptorrents.com/Music/%5Bsite%5D.Caf%C3%A9%20Album.torrent">escaped</a>
<a href="/new%20releases.html">entry</a>
</body></html>`)

	torrents, err := ex.Links(content, ".torrent")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://d.ptorrents.com/TV Shows/[site].Some Show S01.torrent",
		"https://d.ptorrents.com/Music/[site].Café Album.torrent",
	}, slices.Collect(torrents))

	entries, err := ex.Links(content, ".html")
	require.NoError(t, err)
	assert.Equal(t, []string{"new releases.html"}, slices.Collect(entries))
}

func TestLatin1Content(t *testing.T) {
	ex := newExtractor(t)
	content := []byte("<html><head><meta charset=\"iso-8859-1\"></head><body>" +
		"<a href=\"/caf\xe9.html\">x</a></body></html>")

	seq, err := ex.Links(content, ".html")
	require.NoError(t, err)
	assert.Equal(t, []string{"café.html"}, slices.Collect(seq))
}

func TestNewHTMLExtractorBadSelector(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Extract.PaginationSelector = "a[["

	_, err := NewHTMLExtractor(cfg.Extract, cfg.Site.BaseURL)
	require.Error(t, err)
	assert.True(t, errs.IsFatal(err))
}

func TestExtractFile(t *testing.T) {
	ex := newExtractor(t)
	path := filepath.Join(t.TempDir(), "1.HTML")
	require.NoError(t, os.WriteFile(path, []byte(listingHTML), 0644))

	links, err := ExtractFile(ex, path, ".html")
	require.NoError(t, err)
	assert.Len(t, links, 4)

	_, err = ExtractFile(ex, filepath.Join(t.TempDir(), "missing.HTML"), ".html")
	assert.Error(t, err)
}
