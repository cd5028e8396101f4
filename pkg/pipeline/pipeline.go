package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"ptscraper/internal/downloader"
	"ptscraper/pkg/checkpoint"
	"ptscraper/pkg/config"
	errs "ptscraper/pkg/errors"
	"ptscraper/pkg/extract"
	"ptscraper/pkg/logger"
	"ptscraper/pkg/retry"
	"ptscraper/pkg/storage"
	"ptscraper/pkg/ui"
)

// Pipeline drives one incremental harvest: index, pages, entries, torrents
type Pipeline struct {
	cfg     *config.Config
	deps    Deps
	layout  storage.Layout
	policy  *retry.Config
	baseURL string
	logger  logger.Logger
}

// New creates a pipeline over the validated fetchers
func New(cfg *config.Config, deps Deps, log logger.Logger) (*Pipeline, error) {
	if len(deps.Fetchers) == 0 {
		return nil, errs.ErrNoValidProxies
	}
	if deps.Store == nil || deps.Extractor == nil || deps.Mapper == nil {
		return nil, errors.New("pipeline needs a checkpoint store, an extractor and a mapper")
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if deps.Console == nil {
		deps.Console = ui.NewWriterConsole(nil, false, true)
	}

	return &Pipeline{
		cfg:     cfg,
		deps:    deps,
		layout:  storage.NewLayout(cfg.Output.BaseDirectory),
		policy:  retry.FromDownloadConfig(cfg.Download, log),
		baseURL: strings.TrimRight(cfg.Site.BaseURL, "/"),
		logger:  log,
	}, nil
}

// Run executes every stage in order. Stages consult the checkpoint and the
// files already on disk, so an interrupted run resumes where it stopped.
// Individual job failures are reported in the summary; only setup, parse and
// persistence failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	log := p.logger.WithField("run_id", summary.RunID)

	cp := checkpoint.LoadOrEmpty(p.deps.Store, log)

	maxPages, err := p.scrapeIndex(ctx, log, summary)
	if err != nil {
		return summary, err
	}

	if err := p.refreshPages(ctx, log, summary, cp, maxPages); err != nil {
		return summary, err
	}

	if err := p.fetchEntries(ctx, log, summary, cp); err != nil {
		return summary, err
	}

	if err := p.fetchTorrents(ctx, log, summary, cp); err != nil {
		return summary, err
	}

	summary.MaxPages = cp.MaxPages
	summary.Entries = len(cp.Entries)
	summary.Torrents = len(cp.Torrents)
	summary.Duration = time.Since(start)

	log.InfoWithFields("Run finished", map[string]interface{}{
		"jobs":     summary.JobsIssued(),
		"failed":   len(summary.Failures()),
		"unmapped": len(summary.Unmapped),
		"duration": summary.Duration,
	})
	return summary, nil
}

// scrapeIndex fetches the site root through the first client and reads the page count
func (p *Pipeline) scrapeIndex(ctx context.Context, log logger.Logger, summary *Summary) (int, error) {
	p.deps.Console.Step(2, "Getting max page number...", -1)
	logger.LogStage(log, StageIndex, false, nil)

	job := downloader.Job{Source: p.baseURL, Destination: p.layout.IndexPath()}
	content, err := downloader.FetchOne(ctx, p.deps.Fetchers[0], job, p.policy)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch index: %w", err)
	}

	maxPages, err := p.deps.Extractor.PageCount(content)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}

	summary.add(StageResult{Name: StageIndex})
	log.InfoWithFields("Page count scraped", map[string]interface{}{"max_pages": maxPages})
	return maxPages, nil
}

// refreshPages re-fetches every listing page when the site has grown, then
// rebuilds the entry set from pages 1..n-1.
func (p *Pipeline) refreshPages(ctx context.Context, log logger.Logger, summary *Summary, cp *checkpoint.Checkpoint, maxPages int) error {
	savingText := fmt.Sprintf("Saving %d pages to disk...", maxPages)
	scrapingText := fmt.Sprintf("Scraping %d pages for entries...", maxPages)

	if maxPages <= cp.MaxPages {
		p.deps.Console.Skipped(3, savingText)
		p.deps.Console.Skipped(4, scrapingText)
		logger.LogStage(log, StagePages, true, map[string]interface{}{"max_pages": cp.MaxPages})
		logger.LogStage(log, StageEntries, true, nil)
		summary.add(StageResult{Name: StagePages, Skipped: true})
		summary.add(StageResult{Name: StageEntries, Skipped: true})
		return nil
	}

	jobs := make([]downloader.Job, 0, maxPages)
	for page := 1; page <= maxPages; page++ {
		jobs = append(jobs, downloader.Job{
			Source:      fmt.Sprintf("%s/page/%d", p.baseURL, page),
			Destination: p.layout.PagePath(page),
		})
	}

	p.deps.Console.Step(3, savingText, len(jobs))
	logger.LogStage(log, StagePages, false, map[string]interface{}{"jobs": len(jobs)})
	report, err := p.submit(ctx, log, jobs)
	if err != nil {
		return err
	}
	summary.add(StageResult{Name: StagePages, Jobs: len(jobs), Failed: report.Failed})

	// a page that never arrived would be lost for good once the count is recorded
	if len(report.Failed) == 0 {
		cp.MaxPages = maxPages
		if err := p.deps.Store.Save(cp); err != nil {
			return err
		}
	} else {
		log.WarnWithFields("Page count not advanced, pages missing", map[string]interface{}{
			"failed": len(report.Failed),
		})
	}

	p.deps.Console.Step(4, scrapingText, -1)
	logger.LogStage(log, StageEntries, false, nil)

	// the last page is left out of entry derivation
	paths := make([]string, 0, maxPages)
	for page := 1; page < maxPages; page++ {
		paths = append(paths, p.layout.PagePath(page))
	}
	entries, err := p.derive(ctx, log, paths, p.cfg.Extract.EntrySuffix)
	if err != nil {
		return err
	}

	cp.SetEntries(entries)
	summary.add(StageResult{Name: StageEntries})
	return p.deps.Store.Save(cp)
}

// fetchEntries downloads entry pages not yet on disk and, when any were
// fetched, rebuilds the torrent set from every entry page.
func (p *Pipeline) fetchEntries(ctx context.Context, log logger.Logger, summary *Summary, cp *checkpoint.Checkpoint) error {
	local := make([]string, 0, len(cp.Entries))
	for _, id := range cp.Entries {
		if isAbsolute(id) {
			summary.Foreign = append(summary.Foreign, id)
			continue
		}
		local = append(local, id)
	}
	if len(summary.Foreign) > 0 {
		log.WarnWithFields("Entry links on other hosts skipped", map[string]interface{}{
			"count": len(summary.Foreign),
		})
	}

	total := len(local)
	savingText := fmt.Sprintf("Saving %d entries to disk...", total)
	scrapingText := fmt.Sprintf("Scraping %d entries for torrents...", total)

	missing := storage.Missing(local, p.layout.EntryPath)
	if len(missing) == 0 {
		p.deps.Console.Skipped(5, savingText)
		p.deps.Console.Skipped(6, scrapingText)
		logger.LogStage(log, StageEntry, true, map[string]interface{}{"entries": total})
		summary.add(StageResult{Name: StageEntry, Skipped: true})
		return nil
	}

	jobs := make([]downloader.Job, 0, len(missing))
	for _, id := range missing {
		jobs = append(jobs, downloader.Job{
			Source:      p.resolve(id),
			Destination: p.layout.EntryPath(id),
		})
	}

	p.deps.Console.Step(5, savingText, len(jobs))
	logger.LogStage(log, StageEntry, false, map[string]interface{}{"jobs": len(jobs), "entries": total})
	report, err := p.submit(ctx, log, jobs)
	if err != nil {
		return err
	}
	summary.add(StageResult{Name: StageEntry, Jobs: len(jobs), Failed: report.Failed})

	p.deps.Console.Step(6, scrapingText, -1)
	paths := make([]string, 0, total)
	for _, id := range local {
		paths = append(paths, p.layout.EntryPath(id))
	}
	links, err := p.derive(ctx, log, paths, p.cfg.Extract.TorrentSuffix)
	if err != nil {
		return err
	}

	// torrents are fetched and mapped by URL, so same-site ids are resolved
	torrents := make([]string, len(links))
	for i, link := range links {
		torrents[i] = p.resolve(link)
	}

	cp.SetTorrents(torrents)
	return p.deps.Store.Save(cp)
}

// fetchTorrents maps every known torrent link to its destination and downloads
// the ones not on disk. Links without a mapping are logged and reported.
func (p *Pipeline) fetchTorrents(ctx context.Context, log logger.Logger, summary *Summary, cp *checkpoint.Checkpoint) error {
	total := len(cp.Torrents)
	savingText := fmt.Sprintf("Saving %d torrents to disk...", total)

	var mapped []downloader.Job
	for _, link := range cp.Torrents {
		link = p.resolve(link)
		dest, err := p.deps.Mapper.Map(link)
		if err != nil {
			log.WithError(err).DebugWithFields("Torrent link has no destination", map[string]interface{}{
				"link": link,
			})
			summary.Unmapped = append(summary.Unmapped, link)
			continue
		}
		mapped = append(mapped, downloader.Job{Source: link, Destination: dest})
	}
	if len(summary.Unmapped) > 0 {
		log.WarnWithFields("Torrent links skipped without a mapping", map[string]interface{}{
			"count": len(summary.Unmapped),
		})
	}

	jobs := storage.Missing(mapped, func(j downloader.Job) string { return j.Destination })
	if len(jobs) == 0 {
		p.deps.Console.Skipped(7, savingText)
		logger.LogStage(log, StageTorrents, true, map[string]interface{}{"torrents": total})
		summary.add(StageResult{Name: StageTorrents, Skipped: true})
		return nil
	}

	p.deps.Console.Step(7, savingText, len(jobs))
	logger.LogStage(log, StageTorrents, false, map[string]interface{}{"jobs": len(jobs), "torrents": total})
	report, err := p.submit(ctx, log, jobs)
	if err != nil {
		return err
	}
	summary.add(StageResult{Name: StageTorrents, Jobs: len(jobs), Failed: report.Failed})
	return nil
}

func (p *Pipeline) submit(ctx context.Context, log logger.Logger, jobs []downloader.Job) (*downloader.Report, error) {
	var bar *ui.ProgressBar
	d := downloader.New(p.deps.Fetchers, downloader.Options{
		MaxRounds:         p.cfg.Download.MaxRounds,
		Retry:             p.policy,
		RequestsPerMinute: p.cfg.Download.RequestsPerMinute,
		OnProgress:        func(done, total int) { bar.Update(done, total) },
	}, log)

	bar = p.deps.Console.NewProgress(len(jobs), d.Workers())
	defer bar.Finish()
	return d.Submit(ctx, jobs)
}

// resolve turns a same-site identifier back into a URL under the base URL
func (p *Pipeline) resolve(link string) string {
	if isAbsolute(link) {
		return link
	}
	return p.baseURL + "/" + strings.TrimLeft(link, "/")
}

func isAbsolute(link string) bool {
	u, err := url.Parse(link)
	return err == nil && u.IsAbs() && u.Host != ""
}

// derive extracts links from every file in paths concurrently. Files that are
// missing or unreadable are logged and skipped.
func (p *Pipeline) derive(ctx context.Context, log logger.Logger, paths []string, suffix string) ([]string, error) {
	results := make([][]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Extract.Concurrency > 0 {
		g.SetLimit(p.cfg.Extract.Concurrency)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			links, err := extract.ExtractFile(p.deps.Extractor, path, suffix)
			if err != nil {
				log.WithError(err).WarnWithFields("Skipping file during extraction", map[string]interface{}{
					"path": path,
				})
				return nil
			}
			results[i] = links
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var links []string
	for _, r := range results {
		links = append(links, r...)
	}
	return links, nil
}
