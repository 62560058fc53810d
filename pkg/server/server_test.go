package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/graph/cycles"
	"github.com/matzehuels/pkgcheck/pkg/observability"
	"github.com/matzehuels/pkgcheck/pkg/problem"
	"github.com/matzehuels/pkgcheck/pkg/snapshot"
)

func testSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	g := graph.New(graph.Options{})
	libc, zlib := fmri.MustParse("system/libc"), fmri.MustParse("library/zlib")
	for _, p := range []struct {
		id       string
		obsolete bool
		deps     []depend.Dependency
	}{
		{"system/libc@1.0", false, nil},
		{"library/zlib@1.3", false, []depend.Dependency{depend.Require(libc)}},
		{"library/old@1.0", true, []depend.Dependency{depend.Require(zlib)}},
	} {
		if _, err := g.AddPackage(fmri.MustParse(p.id), p.obsolete, false, p.deps); err != nil {
			t.Fatal(err)
		}
	}
	comp, err := g.AddComponent("library/zlib", "/c/library/zlib", []fmri.FMRI{zlib}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.AddComponentDependencies(comp, depend.Build, []fmri.FMRI{libc}, nil); err != nil {
		t.Fatal(err)
	}
	g.ResolveVersions()
	if err := g.DistributeReverse(nil); err != nil {
		t.Fatal(err)
	}

	snap := snapshot.FromGraph(g)
	snap.Problems = []problem.Problem{
		{Kind: problem.MissingOwner, Package: "system/libc"},
		{Kind: problem.StaleOwnership, Package: "library/old", Component: "x", Reason: problem.ReasonObsolete},
	}
	snap.Counts = problem.CountKinds(snap.Problems)
	snap.Cycles = []cycles.Cycle{{Route: []cycles.Hop{{Node: "a", Edge: cycles.Build}, {Node: "b", Edge: cycles.Build}}}}
	return snap
}

func newTestServer(t *testing.T, reg *prometheus.Registry) *Server {
	t.Helper()
	s, err := New(Options{CacheSize: 8, Registry: reg, Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestNoSnapshot(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := get(t, h, "/api/v1/summary"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("summary without snapshot = %d, want 503", rec.Code)
	}
}

func TestQueries(t *testing.T) {
	s := newTestServer(t, nil)
	snap := testSnapshot(t)
	if err := s.Reload(snap); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	h := s.Handler()

	var health map[string]string
	decode(t, get(t, h, "/healthz"), &health)
	if health["snapshot"] != snap.ID {
		t.Errorf("healthz = %v", health)
	}

	var sum snapshot.Summary
	decode(t, get(t, h, "/api/v1/summary"), &sum)
	if sum.ID != snap.ID || sum.Problems != 2 || sum.Stats.Packages != 3 {
		t.Errorf("summary = %+v", sum)
	}

	var doc problem.Document
	decode(t, get(t, h, "/api/v1/problems?kind=missing-owner"), &doc)
	if doc.Total != 1 || doc.Problems[0].Package != "system/libc" {
		t.Errorf("problems = %+v", doc)
	}
	if rec := get(t, h, "/api/v1/problems?kind=bogus"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d", rec.Code)
	}

	var cs []cycleResponse
	decode(t, get(t, h, "/api/v1/cycles"), &cs)
	if len(cs) != 1 || cs[0].Text != "a --build--> b --build--> a" {
		t.Errorf("cycles = %+v", cs)
	}

	var deps dependentsResponse
	decode(t, get(t, h, "/api/v1/dependents?fmri=pkg://openindiana.org/system/libc@1.0"), &deps)
	if deps.FMRI != "system/libc" || len(deps.Dependents) != 2 {
		t.Fatalf("dependents = %+v", deps)
	}
	if deps.Dependents[0].Class != depend.Runtime || deps.Dependents[0].Name != "library/zlib" {
		t.Errorf("first dependent = %+v", deps.Dependents[0])
	}
	if deps.Dependents[1].Class != depend.Build || deps.Dependents[1].Name != "library/zlib" {
		t.Errorf("second dependent = %+v", deps.Dependents[1])
	}
	if rec := get(t, h, "/api/v1/dependents?fmri=no/such"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown dependents = %d", rec.Code)
	}
	if rec := get(t, h, "/api/v1/dependents"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing fmri = %d", rec.Code)
	}

	tests := []struct {
		target string
		key    string
		want   any
	}{
		{"/api/v1/known?fmri=library/zlib", "known", true},
		{"/api/v1/known?fmri=library/nothere", "known", false},
		{"/api/v1/obsoleted?fmri=library/old", "obsoleted", true},
		{"/api/v1/obsoleted?fmri=library/zlib", "obsoleted", false},
		{"/api/v1/owner?fmri=library/zlib", "owner", "library/zlib"},
		{"/api/v1/owner?fmri=system/libc", "found", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			var out map[string]any
			decode(t, get(t, h, tt.target), &out)
			if out[tt.key] != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, out[tt.key], tt.want)
			}
		})
	}
}

func TestDependentsCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	s := newTestServer(t, reg)
	if err := s.Reload(testSnapshot(t)); err != nil {
		t.Fatal(err)
	}
	h := s.Handler()
	for range 3 {
		if rec := get(t, h, "/api/v1/dependents?fmri=library/zlib"); rec.Code != http.StatusOK {
			t.Fatalf("dependents = %d", rec.Code)
		}
	}
	if got := testutil.ToFloat64(hooks.CacheRequests.WithLabelValues("dependents", "hit")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if s.dependents.Len() != 1 {
		t.Errorf("cache len = %d", s.dependents.Len())
	}

	if err := s.Reload(testSnapshot(t)); err != nil {
		t.Fatal(err)
	}
	if s.dependents.Len() != 0 {
		t.Error("reload should purge the dependents cache")
	}

	body := get(t, h, "/metrics").Body.String()
	if !strings.Contains(body, `pkgcheck_server_requests_total{code="200",route="/api/v1/dependents"} 3`) {
		t.Errorf("metrics missing request counter:\n%s", body)
	}
}

func TestRenderRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	if err := s.Reload(testSnapshot(t)); err != nil {
		t.Fatal(err)
	}
	h := s.Handler()

	rec := get(t, h, "/api/v1/render/dependents?fmri=system/libc&format=dot")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"pkg:library/zlib" -> "pkg:system/libc"`) {
		t.Errorf("render dependents = %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("content type = %s", ct)
	}
	if rec := get(t, h, "/api/v1/render/dependents?fmri=system/libc&depth=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("depth 0 = %d", rec.Code)
	}
	if rec := get(t, h, "/api/v1/render/cycles?format=png"); rec.Code != http.StatusBadRequest {
		t.Errorf("png = %d", rec.Code)
	}
	rec = get(t, h, "/api/v1/render/cycles")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<svg") {
		t.Errorf("render cycles = %d", rec.Code)
	}
}

func TestWatch(t *testing.T) {
	store, err := snapshot.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := newTestServer(t, nil)
	s.logger = log.New(os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, store) }()
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	snap := testSnapshot(t)
	if err := store.Save(ctx, snap); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Snapshot() == nil || s.Snapshot().ID != snap.ID {
		if time.Now().After(deadline) {
			t.Fatal("snapshot not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch: %v", err)
	}
}
