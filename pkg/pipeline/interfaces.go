package pipeline

import (
	"ptscraper/internal/downloader"
	"ptscraper/pkg/checkpoint"
	"ptscraper/pkg/extract"
	"ptscraper/pkg/mapping"
	"ptscraper/pkg/ui"
)

// Deps are the collaborators a pipeline run needs
type Deps struct {
	// Fetchers are the validated proxy clients; the first also fetches the index
	Fetchers  []downloader.Fetcher
	Store     checkpoint.Store
	Extractor extract.Extractor
	Mapper    mapping.Mapper
	Console   *ui.Console
}
