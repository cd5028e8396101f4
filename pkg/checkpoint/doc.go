// Package checkpoint persists harvest progress between runs.
//
// A checkpoint records the highest page count seen and the sorted, deduplicated
// sets of entry identifiers and torrent links. It is stored as TORRENTS.JSON in
// the output directory and rewritten wholesale after every stage that changes
// it. Saves go through a temporary file and a rename, and the encoding carries
// no timestamps, so saving an unchanged checkpoint leaves the file byte-identical.
package checkpoint
