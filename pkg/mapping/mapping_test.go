package mapping

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ptscraper/pkg/config"
	errs "ptscraper/pkg/errors"
	"ptscraper/pkg/storage"
)

func TestTemplateMapper(t *testing.T) {
	m, err := NewTemplateMapper(config.DefaultConfig().Extract.TorrentPattern, storage.NewLayout("/out"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		locator string
		want    string
	}{
		{
			name:    "site tag",
			locator: "https://d.ptorrents.com/Movies/2024/[site].Example.Title.torrent",
			want:    "/out/TORRENT/Movies/2024/Example.Title.TORRENT",
		},
		{
			name:    "domain tag",
			locator: "https://d.ptorrents.com/Games/[ptorrents.com].Some.Game.v1.torrent",
			want:    "/out/TORRENT/Games/Some.Game.v1.TORRENT",
		},
		{name: "other host", locator: "https://example.com/Movies/[site].X.torrent"},
		{name: "no tag", locator: "https://d.ptorrents.com/Movies/X.torrent"},
		{name: "relative", locator: "/Movies/[site].X.torrent"},
		{name: "traversal", locator: "https://d.ptorrents.com/../../etc/[site].passwd.torrent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Map(tt.locator)
			if tt.want == "" {
				assert.True(t, errors.Is(err, errs.ErrNoMapping), "got %v", err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestTemplateMapperUsesLastGroupAsName(t *testing.T) {
	pattern := `^https://d\.ptorrents\.com/(.+)/\[([^\]]+)\]\.(.+)\.torrent$`
	m, err := NewTemplateMapper(pattern, storage.NewLayout("/out"))
	require.NoError(t, err)

	got, err := m.Map("https://d.ptorrents.com/Movies/2024/[site].Example.Title.torrent")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/out/TORRENT/Movies/2024/Example.Title.TORRENT"), got)
}

func TestNewTemplateMapperRejectsBadPatterns(t *testing.T) {
	_, err := NewTemplateMapper("([", storage.NewLayout("/out"))
	assert.Error(t, err)

	_, err = NewTemplateMapper("^https://x/(.+)$", storage.NewLayout("/out"))
	assert.Error(t, err)
	assert.Equal(t, errs.ErrorTypeConfig, errs.TypeOf(err))
}
