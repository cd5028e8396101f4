package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"ptscraper/pkg/checkpoint"
	"ptscraper/pkg/logger"
	"ptscraper/pkg/mapping"
	"ptscraper/pkg/storage"
	"ptscraper/pkg/ui"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show harvest progress for a base path",
	Long: `Read TORRENTS.JSON under the base path and report how many pages, entries
and torrents are known, and how many of them are already on disk.

Nothing is fetched.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the status as JSON")
	rootCmd.AddCommand(statusCmd)
}

// harvestStatus is the checkpoint summary plus what is present on disk
type harvestStatus struct {
	checkpoint.Summary
	PagesOnDisk    int `json:"pages_on_disk"`
	EntriesOnDisk  int `json:"entries_on_disk"`
	TorrentsOnDisk int `json:"torrents_on_disk"`
	Unmapped       int `json:"unmapped_torrents"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	layout := storage.NewLayout(cfg.Output.BaseDirectory)
	store := checkpoint.NewFileStore(layout.CheckpointPath())
	cp := checkpoint.LoadOrEmpty(store, log)

	status, err := collectStatus(cfg.Extract.TorrentPattern, layout, cp, store.Exists())
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	console := ui.NewConsole(os.Stdout, false)
	console.Info("Checkpoint", status.Path)
	if !status.Exists {
		console.Warn("No checkpoint yet; the next run starts from scratch")
		return nil
	}
	console.Info("Pages", fmt.Sprintf("%d/%d on disk", status.PagesOnDisk, status.MaxPages))
	console.Info("Entries", fmt.Sprintf("%d/%d on disk", status.EntriesOnDisk, status.Entries))
	console.Info("Torrents", fmt.Sprintf("%d/%d on disk", status.TorrentsOnDisk, status.Torrents-status.Unmapped))
	if status.Unmapped > 0 {
		console.Warn(fmt.Sprintf("%d torrent links have no destination mapping", status.Unmapped))
	}

	logger.WithFields(map[string]interface{}{
		"max_pages": status.MaxPages,
		"entries":   status.Entries,
		"torrents":  status.Torrents,
	}).Debug("Status collected")
	return nil
}
func collectStatus(pattern string, layout storage.Layout, cp *checkpoint.Checkpoint, exists bool) (*harvestStatus, error) {
	mapper, err := mapping.NewTemplateMapper(pattern, layout)
	if err != nil {
		return nil, err
	}

	s := &harvestStatus{Summary: cp.Summarize(layout.CheckpointPath(), exists)}

	for n := 1; n <= cp.MaxPages; n++ {
		if storage.Exists(layout.PagePath(n)) {
			s.PagesOnDisk++
		}
	}
	for _, id := range cp.Entries {
		if storage.Exists(layout.EntryPath(id)) {
			s.EntriesOnDisk++
		}
	}
	for _, link := range cp.Torrents {
		dest, err := mapper.Map(link)
		if err != nil {
			s.Unmapped++
			continue
		}
		if storage.Exists(dest) {
			s.TorrentsOnDisk++
		}
	}
	return s, nil
}
