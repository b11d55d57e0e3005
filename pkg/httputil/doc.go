// Package httputil provides HTTP client helpers shared by the feed client.
//
// It contains two pieces:
//   - Retry: exponential backoff for transient network failures
//   - Cache: a typed JSON view over a cache backend, with TTL and key
//     namespacing, used to cache feed metadata responses between runs
package httputil
