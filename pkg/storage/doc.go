// Package storage owns the on-disk artifact layout of a harvest.
//
// Everything lives under one base directory:
//
//	TORRENTS.JSON                  checkpoint
//	HTML/INDEX.HTML                site root
//	HTML/PAGES/<n>.HTML            listing pages
//	HTML/ENTRIES/<id>.HTML         entry pages
//	TORRENT/<dir>/<name>.TORRENT   downloaded files
//
// Writes go through WriteFile, which creates parent directories and renames
// a temporary file into place so a killed run never leaves a truncated
// artifact that later runs would mistake for a finished one.
package storage
