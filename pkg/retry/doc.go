// Package retry runs an operation repeatedly with backoff until it succeeds,
// the attempt budget runs out, or the context is cancelled.
//
// The harvester wraps every page and torrent request in Do:
//
//	body, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
//		return client.Fetch(ctx, url)
//	}, retry.FromDownloadConfig(cfg.Download, log))
//
// All errors other than context cancellation are retried. Exhausting the
// budget returns the last error wrapped, so callers can still inspect it
// with errors.Is and errors.As.
package retry
