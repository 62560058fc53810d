// Package httputil downloads repository assets over HTTP.
//
// # Overview
//
// The audit reads the publisher's dependency catalog from disk. Refreshing
// it (`pkgcheck data update-assets`) goes through this package:
//
//   - [Download]: fetch a URL into a file, replacing it atomically
//   - [ValidatorStore]: validators of previous downloads, kept in any
//     [cache.Cache] backend
//
// # Conditional requests
//
// When a [Client] has a [ValidatorStore], the ETag and Last-Modified
// headers of every successful download are remembered per URL and sent back
// as If-None-Match / If-Modified-Since. A 304 answer leaves the file alone:
//
//	fc, _ := cache.NewFileCache(dir)
//	c := &httputil.Client{Meta: httputil.NewValidatorStore(fc, cache.NewScopedKeyer(nil, "assets:"))}
//	changed, err := c.Download(ctx, url, "data/catalog.dependency.C")
//
// # Retry
//
// Network errors, 5xx responses and 429 rate limiting are retried three
// times with a doubling delay. Other status codes fail immediately. Failed
// round trips carry the NETWORK_ERROR or TIMEOUT code of package errors.
//
// [cache.Cache]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/cache#Cache
package httputil
