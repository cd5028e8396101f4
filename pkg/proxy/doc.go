// Package proxy builds the pool of HTTP clients that all harvest traffic is
// routed through.
//
// A candidate is kept only if a request through it reaches the IP echo
// service and reports an address different from the direct baseline. The
// baseline is fetched once by the caller and passed to Validate.
package proxy
