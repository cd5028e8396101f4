package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	errs "ptscraper/pkg/errors"
	"ptscraper/pkg/logger"
)

// Checkpoint is the durable progress record of a harvest
type Checkpoint struct {
	MaxPages int      `json:"max_pages"`
	Entries  []string `json:"entries"`
	Torrents []string `json:"torrents"`
}

// New returns an empty checkpoint
func New() *Checkpoint {
	return &Checkpoint{Entries: []string{}, Torrents: []string{}}
}

// Normalize sorts and deduplicates both link sets
func (c *Checkpoint) Normalize() {
	c.Entries = sortedUnique(c.Entries)
	c.Torrents = sortedUnique(c.Torrents)
	if c.MaxPages < 0 {
		c.MaxPages = 0
	}
}

// SetEntries replaces the entry set with the normalised form of entries
func (c *Checkpoint) SetEntries(entries []string) {
	c.Entries = sortedUnique(entries)
}

// SetTorrents replaces the torrent set with the normalised form of torrents
func (c *Checkpoint) SetTorrents(torrents []string) {
	c.Torrents = sortedUnique(torrents)
}

// Clone returns a deep copy
func (c *Checkpoint) Clone() *Checkpoint {
	return &Checkpoint{
		MaxPages: c.MaxPages,
		Entries:  append([]string{}, c.Entries...),
		Torrents: append([]string{}, c.Torrents...),
	}
}

// Summary describes a checkpoint for display
type Summary struct {
	Path     string `json:"path"`
	Exists   bool   `json:"exists"`
	MaxPages int    `json:"max_pages"`
	Entries  int    `json:"entries"`
	Torrents int    `json:"torrents"`
}

// Summarize reports the sizes of the checkpoint's sets
func (c *Checkpoint) Summarize(path string, exists bool) Summary {
	return Summary{
		Path:     path,
		Exists:   exists,
		MaxPages: c.MaxPages,
		Entries:  len(c.Entries),
		Torrents: len(c.Torrents),
	}
}

func sortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	out = append(out, in...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Store loads and persists checkpoints
type Store interface {
	Load() (*Checkpoint, error)
	Save(*Checkpoint) error
}

// FileStore keeps the checkpoint as a single JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file location
func (s *FileStore) Path() string {
	return s.path
}

// Exists checks if a checkpoint file exists
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and decodes the checkpoint. A missing file yields os.ErrNotExist.
func (s *FileStore) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	cp := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	cp.Normalize()
	return cp, nil
}

// Save encodes the checkpoint and atomically replaces the file
func (s *FileStore) Save(cp *Checkpoint) error {
	norm := cp.Clone()
	norm.Normalize()

	data, err := Encode(norm)
	if err != nil {
		return errs.Persistence("failed to encode checkpoint", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errs.Persistence("failed to create checkpoint directory", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errs.Persistence("failed to create temporary checkpoint file", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Persistence("failed to write checkpoint", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Persistence("failed to sync checkpoint file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.Persistence("failed to close checkpoint file", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return errs.Persistence("failed to replace checkpoint file", err)
	}
	return nil
}

// Encode renders a checkpoint as indented JSON with a trailing newline.
// The output depends only on the checkpoint's contents.
func Encode(cp *Checkpoint) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadOrEmpty loads the checkpoint, substituting an empty one when the file
// is missing or unreadable. Only the corrupt case is logged as a warning.
func LoadOrEmpty(store Store, log logger.Logger) *Checkpoint {
	cp, err := store.Load()
	if err == nil {
		log.InfoWithFields("Checkpoint loaded", map[string]interface{}{
			"max_pages": cp.MaxPages,
			"entries":   len(cp.Entries),
			"torrents":  len(cp.Torrents),
		})
		return cp
	}

	if os.IsNotExist(err) {
		log.Info("No checkpoint found, starting fresh")
	} else {
		log.WithError(errs.Config("unreadable checkpoint", err)).Warn("Checkpoint ignored, starting fresh")
	}
	return New()
}
