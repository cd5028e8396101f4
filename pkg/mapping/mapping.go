// Package mapping turns torrent download links into local destination paths.
package mapping

import (
	"fmt"
	"regexp"
	"strings"

	errs "ptscraper/pkg/errors"
	"ptscraper/pkg/storage"
)

// Mapper resolves a torrent link to a destination path, or ErrNoMapping
type Mapper interface {
	Map(locator string) (string, error)
}

// TemplateMapper matches links against a pattern with at least two capture
// groups: the first is the directory path, the last the file name.
type TemplateMapper struct {
	pattern *regexp.Regexp
	layout  storage.Layout
}

// NewTemplateMapper compiles pattern. A pattern without two capture groups is rejected.
func NewTemplateMapper(pattern string, layout storage.Layout) (*TemplateMapper, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errs.Config("invalid torrent pattern", err)
	}
	if re.NumSubexp() < 2 {
		return nil, errs.Config(fmt.Sprintf("torrent pattern %q needs two capture groups", pattern), nil)
	}
	return &TemplateMapper{pattern: re, layout: layout}, nil
}

// Map implements Mapper
func (m *TemplateMapper) Map(locator string) (string, error) {
	match := m.pattern.FindStringSubmatch(locator)
	if match == nil {
		return "", fmt.Errorf("%w: %s", errs.ErrNoMapping, locator)
	}

	dir, name := match[1], match[len(match)-1]
	if dir == "" || name == "" || unsafeSegment(dir) || unsafeSegment(name) || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: unsafe path in %s", errs.ErrNoMapping, locator)
	}

	dest := m.layout.TorrentPath(dir, name)
	if !m.layout.Contains(dest) {
		return "", fmt.Errorf("%w: %s escapes output directory", errs.ErrNoMapping, locator)
	}
	return dest, nil
}

func unsafeSegment(s string) bool {
	for _, seg := range strings.Split(s, "/") {
		if seg == ".." || seg == "." {
			return true
		}
	}
	return false
}
