// Package observability carries audit, cache and download events to
// whatever records them.
//
// Packages such as audit, userland and httputil report through the
// interfaces below and never import Prometheus. Only the serve command
// installs a recorder:
//
//	hooks := observability.NewPrometheusHooks(reg)
//	observability.SetAuditHooks(hooks)
//	observability.SetCacheHooks(hooks)
//	observability.SetHTTPHooks(hooks)
//	defer observability.Reset()
//
// and an emitting package looks the recorder up on every event:
//
//	observability.Audit().OnStageStart(ctx, audit.StageCatalog)
//
// Nothing is recorded until a setter is called.
package observability

import (
	"context"
	"time"
)

// AuditHooks observes an audit run.
type AuditHooks interface {
	// OnStageStart and OnStageComplete bracket one pipeline stage. items
	// counts what the stage produced and its unit depends on the stage.
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, items int, duration time.Duration, err error)

	// OnBuildQuery is called after a make variable was read for a
	// component, cached or not.
	OnBuildQuery(ctx context.Context, variable string, duration time.Duration, err error)

	// OnProblems reports the final count of one problem kind.
	OnProblems(ctx context.Context, kind string, count int)
}

// CacheHooks observes lookups in a cache. keyType names the cached data,
// such as "buildq" or "dependents".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks observes catalog downloads.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError is called when no response arrived at all.
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopAuditHooks ignores every event. Embed it to implement a subset.
type NoopAuditHooks struct{}

func (NoopAuditHooks) OnStageStart(context.Context, string)                               {}
func (NoopAuditHooks) OnStageComplete(context.Context, string, int, time.Duration, error) {}
func (NoopAuditHooks) OnBuildQuery(context.Context, string, time.Duration, error)         {}
func (NoopAuditHooks) OnProblems(context.Context, string, int)                            {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}
