package pipeline

import (
	"time"

	"ptscraper/internal/downloader"
)

// Stage names
const (
	StageIndex    = "index"
	StagePages    = "pages"
	StageEntries  = "entries"
	StageEntry    = "entry_pages"
	StageTorrents = "torrents"
)

// StageResult records what one stage did
type StageResult struct {
	Name    string
	Skipped bool
	Jobs    int
	Failed  []downloader.Failure
}

// Summary is the outcome of one pipeline run
type Summary struct {
	RunID    string
	Stages   []StageResult
	MaxPages int
	Entries  int
	Torrents int
	Unmapped []string
	// Foreign lists entry links on other hosts, which are never fetched
	Foreign  []string
	Duration time.Duration
}

func (s *Summary) add(r StageResult) {
	s.Stages = append(s.Stages, r)
}

// Stage returns the result for name, or nil if the stage was not reached
func (s *Summary) Stage(name string) *StageResult {
	for i := range s.Stages {
		if s.Stages[i].Name == name {
			return &s.Stages[i]
		}
	}
	return nil
}

// JobsIssued counts download jobs handed to the downloader across all stages
func (s *Summary) JobsIssued() int {
	n := 0
	for _, st := range s.Stages {
		n += st.Jobs
	}
	return n
}

// Failures returns every permanently failed job
func (s *Summary) Failures() []downloader.Failure {
	var out []downloader.Failure
	for _, st := range s.Stages {
		out = append(out, st.Failed...)
	}
	return out
}
