// Package pipeline sequences an incremental harvest of the listing site.
//
// A run walks the stages in a fixed order:
//
//	index        fetch the site root, read the page count
//	pages        re-fetch every listing page when the count grew
//	entries      rebuild the entry set from pages 1..n-1
//	entry_pages  fetch entry pages not on disk, rebuild the torrent set
//	torrents     fetch torrent files not on disk
//
// Each stage decides from the checkpoint and the files on disk whether it has
// work to do, so running the pipeline twice against an unchanged site issues
// no download jobs the second time.
package pipeline
