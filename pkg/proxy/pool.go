package proxy

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	errs "ptscraper/pkg/errors"
	"ptscraper/pkg/logger"
)

// LoadCandidates reads one proxy endpoint per line, skipping blanks, comments
// and duplicates.
func LoadCandidates(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy list: %w", err)
	}
	defer file.Close()

	seen := make(map[string]bool)
	var candidates []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		candidates = append(candidates, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}
	return candidates, nil
}

// Baseline returns this machine's egress IP as reported by the echo service,
// fetched without any proxy.
func Baseline(ctx context.Context, direct *Client, echoURL string) (string, error) {
	body, err := direct.Fetch(ctx, echoURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch baseline IP: %w", err)
	}
	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", errs.Transport("echo service returned an empty body", nil)
	}
	return ip, nil
}

// Validator checks candidate proxies against the echo service
type Validator struct {
	EchoURL        string
	UserAgent      string
	Timeout        time.Duration
	RequestTimeout time.Duration
	Concurrency    int
	Logger         logger.Logger
}

// Validate keeps the candidates that answer through the echo service with an IP
// other than baseline. Candidate order is preserved. An empty result is
// ErrNoValidProxies.
func (v *Validator) Validate(ctx context.Context, candidates []string, baseline string) ([]*Client, error) {
	log := v.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	results := make([]*Client, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	if v.Concurrency > 0 {
		g.SetLimit(v.Concurrency)
	}

	for i, candidate := range candidates {
		g.Go(func() error {
			client, err := v.check(gctx, candidate, baseline)
			if err != nil {
				log.WithError(err).DebugWithFields("Proxy discarded", map[string]interface{}{
					"proxy": candidate,
				})
				return nil
			}
			results[i] = client
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var valid []*Client
	for _, c := range results {
		if c != nil {
			valid = append(valid, c)
		}
	}

	log.InfoWithFields("Proxy validation finished", map[string]interface{}{
		"candidates": len(candidates),
		"valid":      len(valid),
	})
	if len(valid) == 0 {
		return nil, errs.ErrNoValidProxies
	}
	return valid, nil
}

func (v *Validator) check(ctx context.Context, candidate, baseline string) (*Client, error) {
	candidateClient, err := NewClient(candidate, v.UserAgent, v.Timeout)
	if err != nil {
		return nil, err
	}

	body, err := candidateClient.Fetch(ctx, v.EchoURL)
	if err != nil {
		return nil, errs.Validation("proxy unreachable", err)
	}
	if ip := strings.TrimSpace(string(body)); ip == baseline {
		return nil, errs.Validation(fmt.Sprintf("egress IP %s unchanged", ip), nil)
	}

	// the validated client keeps the longer download timeout
	return NewClient(candidate, v.UserAgent, v.RequestTimeout)
}
