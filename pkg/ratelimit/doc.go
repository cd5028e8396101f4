// Package ratelimit paces requests sent through each proxy.
//
// Every downloader worker owns one Limiter built from
// download.requests_per_minute. A rate of zero, the default, disables
// pacing entirely; retries and backoff are then the only brake on load.
package ratelimit
