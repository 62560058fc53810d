package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	a := NoopAuditHooks{}
	a.OnStageStart(ctx, "catalog")
	a.OnStageComplete(ctx, "catalog", 10, time.Second, nil)
	a.OnBuildQuery(ctx, "REQUIRED_PACKAGES", time.Second, nil)
	a.OnProblems(ctx, "missing-owner", 3)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "buildq")
	c.OnCacheMiss(ctx, "buildq")
	c.OnCacheSet(ctx, "buildq", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "pkg.openindiana.org", "/hipster/catalog/1/catalog.dependency.C")
	h.OnResponse(ctx, "GET", "pkg.openindiana.org", "/hipster/catalog/1/catalog.dependency.C", 200, time.Second)
	h.OnError(ctx, "GET", "pkg.openindiana.org", "/", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Audit().(NoopAuditHooks); !ok {
		t.Error("Audit() should return NoopAuditHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	hooks := NewPrometheusHooks(prometheus.NewRegistry())
	SetAuditHooks(hooks)
	SetCacheHooks(hooks)
	SetHTTPHooks(hooks)
	if Audit() != AuditHooks(hooks) || Cache() != CacheHooks(hooks) || HTTP() != HTTPHooks(hooks) {
		t.Error("setters should install the given hooks")
	}

	SetAuditHooks(nil)
	if Audit() != AuditHooks(hooks) {
		t.Error("SetAuditHooks(nil) should keep the current hooks")
	}

	SetAuditHooks(NoopAuditHooks{})
	if Cache() != CacheHooks(hooks) {
		t.Error("replacing audit hooks should keep the cache hooks")
	}

	Reset()
	if _, ok := Audit().(NoopAuditHooks); !ok {
		t.Error("Reset should restore NoopAuditHooks")
	}
}

func TestHooksConcurrentUse(t *testing.T) {
	defer Reset()
	hooks := NewPrometheusHooks(prometheus.NewRegistry())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				SetCacheHooks(hooks)
				return
			}
			Cache().OnCacheMiss(context.Background(), "buildq")
		}()
	}
	wg.Wait()
	if Cache() != CacheHooks(hooks) {
		t.Error("cache hooks not installed")
	}
}

func TestPrometheusHooks(t *testing.T) {
	ctx := context.Background()
	h := NewPrometheusHooks(prometheus.NewRegistry())

	h.OnStageComplete(ctx, "catalog", 42, time.Second, nil)
	h.OnStageComplete(ctx, "components", 0, time.Second, errors.New("boom"))
	if got := testutil.ToFloat64(h.StageItems.WithLabelValues("catalog")); got != 42 {
		t.Errorf("stage items = %v, want 42", got)
	}
	if got := testutil.ToFloat64(h.StageErrors.WithLabelValues("components")); got != 1 {
		t.Errorf("stage errors = %v, want 1", got)
	}

	h.OnBuildQuery(ctx, "REQUIRED_PACKAGES", time.Millisecond, nil)
	h.OnBuildQuery(ctx, "REQUIRED_PACKAGES", time.Millisecond, errors.New("make failed"))
	if got := testutil.ToFloat64(h.BuildQueries.WithLabelValues("REQUIRED_PACKAGES", "error")); got != 1 {
		t.Errorf("failed queries = %v, want 1", got)
	}

	h.OnProblems(ctx, "missing-owner", 7)
	if got := testutil.ToFloat64(h.ProblemsByKind.WithLabelValues("missing-owner")); got != 7 {
		t.Errorf("problems = %v, want 7", got)
	}

	h.OnCacheHit(ctx, "buildq")
	h.OnCacheHit(ctx, "buildq")
	h.OnCacheMiss(ctx, "buildq")
	if got := testutil.ToFloat64(h.CacheRequests.WithLabelValues("buildq", "hit")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}

	h.OnResponse(ctx, "GET", "example.org", "/", 304, time.Millisecond)
	if got := testutil.ToFloat64(h.HTTPRequests.WithLabelValues("GET", "example.org", "304")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}
}

func TestPrometheusHooksDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusHooks(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	NewPrometheusHooks(reg)
}
