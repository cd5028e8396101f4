package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"ptscraper/internal/downloader"
	"ptscraper/pkg/checkpoint"
	"ptscraper/pkg/extract"
	"ptscraper/pkg/mapping"
	"ptscraper/pkg/pipeline"
	"ptscraper/pkg/proxy"
	"ptscraper/pkg/storage"
	"ptscraper/pkg/ui"
)

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	console := ui.NewConsole(os.Stdout, quiet)
	console.Logo()

	log.InfoWithFields("ptscraper starting", map[string]interface{}{
		"base_path": cfg.Output.BaseDirectory,
		"proxies":   cfg.Proxies.File,
	})

	// compile everything that can fail on bad configuration before touching the network
	layout := storage.NewLayout(cfg.Output.BaseDirectory)
	log.DebugWithFields("Output layout", map[string]interface{}{
		"layout":     layout.String(),
		"checkpoint": layout.CheckpointPath(),
		"pages":      layout.PagesDir(),
		"entries":    layout.EntriesDir(),
		"torrents":   layout.TorrentsDir(),
	})
	extractor, err := extract.NewHTMLExtractor(cfg.Extract, cfg.Site.BaseURL)
	if err != nil {
		return err
	}
	mapper, err := mapping.NewTemplateMapper(cfg.Extract.TorrentPattern, layout)
	if err != nil {
		return err
	}

	console.Step(1, "Checking Proxies...", -1)
	candidates, err := proxy.LoadCandidates(cfg.Proxies.File)
	if err != nil {
		return err
	}

	direct := proxy.NewDirectClient(cfg.Site.UserAgent, cfg.Proxies.ValidationTimeout)
	baseline, err := proxy.Baseline(ctx, direct, cfg.Site.EchoURL)
	if err != nil {
		return err
	}
	log.WithField("baseline_ip", baseline).Debug("Baseline egress IP resolved")

	validator := &proxy.Validator{
		EchoURL:        cfg.Site.EchoURL,
		UserAgent:      cfg.Site.UserAgent,
		Timeout:        cfg.Proxies.ValidationTimeout,
		RequestTimeout: cfg.Download.RequestTimeout,
		Concurrency:    cfg.Proxies.Concurrency,
		Logger:         log,
	}
	clients, err := validator.Validate(ctx, candidates, baseline)
	if err != nil {
		return fmt.Errorf("proxy validation: %w", err)
	}
	console.Info("Proxies", fmt.Sprintf("%d of %d usable", len(clients), len(candidates)))

	fetchers := make([]downloader.Fetcher, len(clients))
	for i, c := range clients {
		fetchers[i] = c
	}

	p, err := pipeline.New(cfg, pipeline.Deps{
		Fetchers:  fetchers,
		Store:     checkpoint.NewFileStore(layout.CheckpointPath()),
		Extractor: extractor,
		Mapper:    mapper,
		Console:   console,
	}, log)
	if err != nil {
		return err
	}

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(console, summary)
	return nil
}

func printSummary(console *ui.Console, s *pipeline.Summary) {
	console.Info("Run", s.RunID)
	console.Info("Pages", fmt.Sprintf("%d", s.MaxPages))
	console.Info("Entries", fmt.Sprintf("%d", s.Entries))
	console.Info("Torrents", fmt.Sprintf("%d", s.Torrents))
	console.Info("Jobs", fmt.Sprintf("%d", s.JobsIssued()))

	if failures := s.Failures(); len(failures) > 0 {
		console.Warn(fmt.Sprintf("%d jobs failed permanently and will be retried on the next run:", len(failures)))
		for _, f := range failures {
			console.Warn(fmt.Sprintf("  %s (%d rounds): %v", f.Job.Source, f.Rounds, f.Err))
		}
	}
	if len(s.Foreign) > 0 {
		console.Warn(fmt.Sprintf("%d entry links point to other hosts and were not fetched", len(s.Foreign)))
	}
	if len(s.Unmapped) > 0 {
		console.Warn(fmt.Sprintf("%d torrent links have no destination mapping", len(s.Unmapped)))
	}
	console.Success(fmt.Sprintf("Done in %s", s.Duration.Round(time.Millisecond)))
}
