package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/pkgcheck/pkg/audit"
	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/snapshot"
	"github.com/matzehuels/pkgcheck/pkg/userland"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	testEnv(t)
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Build.Timeout.Duration != userland.DefaultQueryTimeout {
		t.Errorf("Timeout = %s", cfg.Build.Timeout)
	}
	if cfg.Build.Workers != audit.DefaultWorkers || cfg.Build.Cache != CacheFile {
		t.Errorf("Build = %+v", cfg.Build)
	}
	if cfg.Build.CacheTTL.Duration != defaultCacheTTL {
		t.Errorf("CacheTTL = %s", cfg.Build.CacheTTL)
	}
	if !slices.Equal(cfg.Catalog.URLs, DefaultCatalogURLs) {
		t.Errorf("URLs = %v", cfg.Catalog.URLs)
	}
	if !cfg.Serve.Watch {
		t.Error("Watch should default to true")
	}

	dir, _ := dataDir()
	want := []string{
		filepath.Join(dir, "catalogs", "hipster", "catalog.dependency.C"),
		filepath.Join(dir, "catalogs", "hipster-encumbered", "catalog.dependency.C"),
	}
	if got := cfg.CatalogPaths(); !slices.Equal(got, want) {
		t.Errorf("CatalogPaths() = %v, want %v", got, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	testEnv(t)
	root := t.TempDir()
	history := filepath.Join(root, "components", "meta-packages", "history", "history")
	if err := os.MkdirAll(filepath.Dir(history), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(history, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	path := writeConfig(t, `
[repo]
root = "`+root+`"

[build]
timeout = "30s"
workers = 3
cache = "none"

[store]
backend = "redis"
redis_url = "redis://localhost:6379/1"

[serve]
schedule = "0 3 * * *"
watch = false
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Repo.Components != filepath.Join(root, "components") {
		t.Errorf("Components = %q", cfg.Repo.Components)
	}
	if cfg.Repo.History != history {
		t.Errorf("History = %q", cfg.Repo.History)
	}
	if cfg.Build.Timeout.Duration != 30*time.Second || cfg.Build.Workers != 3 || cfg.Build.Cache != CacheNone {
		t.Errorf("Build = %+v", cfg.Build)
	}
	if cfg.Store.Backend != snapshot.BackendRedis {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Serve.Watch {
		t.Error("Watch = true, want false")
	}

	opts := cfg.AuditOptions()
	if opts.Components != cfg.Repo.Components || opts.Workers != 3 || len(opts.Catalogs) != 2 {
		t.Errorf("AuditOptions() = %+v", opts)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	testEnv(t)
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{"unknown key", "[build]\nthreads = 4\n", errors.ErrCodeInvalidConfig},
		{"bad cache", "[build]\ncache = \"memcached\"\n", errors.ErrCodeInvalidConfig},
		{"redis without url", "[build]\ncache = \"redis\"\n", errors.ErrCodeInvalidConfig},
		{"bad schedule", "[serve]\nschedule = \"every day\"\n", errors.ErrCodeInvalidConfig},
		{"bad duration", "[build]\ntimeout = \"soon\"\n", errors.ErrCodeInvalidConfig},
		{"bad store", "[store]\nbackend = \"s3\"\n", errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.content))
			if !errors.Is(err, tt.code) {
				t.Errorf("loadConfig() = %v, want code %s", err, tt.code)
			}
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, errors.ErrCodeFileNotFound) {
			t.Errorf("loadConfig() = %v, want file not found", err)
		}
	})
}

func TestCatalogFile(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://pkg.openindiana.org/hipster/catalog/1/catalog.dependency.C", "/d/hipster/catalog.dependency.C"},
		{"https://pkg.openindiana.org/catalog.dependency.C", "/d/pkg.openindiana.org/catalog.dependency.C"},
		{"://bad", "/d/default/catalog.dependency.C"},
	}
	for _, tt := range tests {
		if got := catalogFile("/d", tt.url); got != tt.want {
			t.Errorf("catalogFile(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestAuditFlagsApply(t *testing.T) {
	testEnv(t)
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Repo.History = "/old/history"

	f := auditFlags{repo: "/src/oi", catalogs: []string{"a.C", "b.C"}, workers: 2, cycleEdges: "build"}
	if err := f.apply(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Repo.Components != filepath.Join("/src/oi", "components") || cfg.Repo.History != "" {
		t.Errorf("Repo = %+v", cfg.Repo)
	}
	if got := cfg.CatalogPaths(); !slices.Equal(got, []string{"a.C", "b.C"}) {
		t.Errorf("CatalogPaths() = %v", got)
	}
	if cfg.Build.Workers != 2 || cfg.Build.CycleEdges != "build" {
		t.Errorf("Build = %+v", cfg.Build)
	}
}
