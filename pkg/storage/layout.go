package storage

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Fixed names under the base directory
const (
	CheckpointFile = "TORRENTS.JSON"
	htmlDir        = "HTML"
	pagesDir       = "PAGES"
	entriesDir     = "ENTRIES"
	torrentDir     = "TORRENT"
	indexFile      = "INDEX.HTML"
	htmlExt        = ".HTML"
	torrentExt     = ".TORRENT"
)

// Layout maps pipeline artifacts to paths under one base directory
type Layout struct {
	Base string
}

// NewLayout creates a layout rooted at base
func NewLayout(base string) Layout {
	return Layout{Base: filepath.Clean(base)}
}

// CheckpointPath returns <base>/TORRENTS.JSON
func (l Layout) CheckpointPath() string {
	return filepath.Join(l.Base, CheckpointFile)
}

// IndexPath returns <base>/HTML/INDEX.HTML
func (l Layout) IndexPath() string {
	return filepath.Join(l.Base, htmlDir, indexFile)
}

// PagePath returns <base>/HTML/PAGES/<n>.HTML
func (l Layout) PagePath(n int) string {
	return filepath.Join(l.Base, htmlDir, pagesDir, strconv.Itoa(n)+htmlExt)
}

// EntryPath returns <base>/HTML/ENTRIES/<id>.HTML
func (l Layout) EntryPath(id string) string {
	return filepath.Join(l.Base, htmlDir, entriesDir, filepath.FromSlash(id)+htmlExt)
}

// TorrentPath returns <base>/TORRENT/<dir>/<name>.TORRENT
func (l Layout) TorrentPath(dir, name string) string {
	return filepath.Join(l.Base, torrentDir, filepath.FromSlash(dir), name+torrentExt)
}

// PagesDir returns the directory holding listing pages
func (l Layout) PagesDir() string {
	return filepath.Join(l.Base, htmlDir, pagesDir)
}

// EntriesDir returns the directory holding entry pages
func (l Layout) EntriesDir() string {
	return filepath.Join(l.Base, htmlDir, entriesDir)
}

// TorrentsDir returns the root of the torrent tree
func (l Layout) TorrentsDir() string {
	return filepath.Join(l.Base, torrentDir)
}

// Contains reports whether path resolves inside the base directory
func (l Layout) Contains(path string) bool {
	rel, err := filepath.Rel(l.Base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !hasParentPrefix(rel)
}

func hasParentPrefix(rel string) bool {
	prefix := ".." + string(filepath.Separator)
	return len(rel) >= len(prefix) && rel[:len(prefix)] == prefix
}

// String implements fmt.Stringer
func (l Layout) String() string {
	return fmt.Sprintf("layout(%s)", l.Base)
}
