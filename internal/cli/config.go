package cli

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"github.com/matzehuels/pkgcheck/pkg/audit"
	"github.com/matzehuels/pkgcheck/pkg/catalog"
	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/server"
	"github.com/matzehuels/pkgcheck/pkg/snapshot"
	"github.com/matzehuels/pkgcheck/pkg/userland"
)

// configFile is the name of the config file inside configDir.
const configFile = "config.toml"

// Build-query cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// DefaultCatalogURLs are the OpenIndiana hipster dependency catalogs.
var DefaultCatalogURLs = []string{
	"https://pkg.openindiana.org/hipster/catalog/1/catalog.dependency.C",
	"https://pkg.openindiana.org/hipster-encumbered/catalog/1/catalog.dependency.C",
}

const defaultCacheTTL = 7 * 24 * time.Hour

// Duration is a time.Duration written as "90s" or "2h" in the config file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the content of config.toml.
//
//	[repo]
//	root = "/src/oi-userland"
//
//	[catalog]
//	urls = ["https://pkg.openindiana.org/hipster/catalog/1/catalog.dependency.C"]
//
//	[build]
//	workers = 16
//	cache = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[store]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[serve]
//	addr = ":8080"
//	schedule = "0 3 * * *"
type Config struct {
	Repo    RepoConfig      `toml:"repo"`
	Catalog CatalogConfig   `toml:"catalog"`
	Build   BuildConfig     `toml:"build"`
	Store   snapshot.Config `toml:"store"`
	Serve   ServeConfig     `toml:"serve"`
}

// RepoConfig locates the oi-userland checkout.
type RepoConfig struct {
	// Root is the checkout; Components and History default to paths below it.
	Root       string `toml:"root"`
	Components string `toml:"components"`
	History    string `toml:"history"`
}

// CatalogConfig lists the dependency catalogs.
type CatalogConfig struct {
	// Paths are local catalog files. When empty, the files downloaded from
	// URLs into Dir are used.
	Paths []string `toml:"paths"`
	URLs  []string `toml:"urls"`
	Dir   string   `toml:"dir"`
}

// BuildConfig configures the build queries.
type BuildConfig struct {
	Timeout    Duration `toml:"timeout"`
	Workers    int      `toml:"workers"`
	Cache      string   `toml:"cache"`
	CacheTTL   Duration `toml:"cache_ttl"`
	RedisURL   string   `toml:"redis_url"`
	CycleEdges string   `toml:"cycle_edges"`
}

// ServeConfig configures `pkgcheck serve`.
type ServeConfig struct {
	Addr string `toml:"addr"`
	// Schedule is a cron expression for re-running the audit. Empty
	// disables scheduled runs.
	Schedule string `toml:"schedule"`
	LRUSize  int    `toml:"lru_size"`
	// Watch reloads snapshots saved by other processes (file store only).
	Watch bool `toml:"watch"`
}

// loadConfig reads the config file at path. An empty path reads the default
// location and tolerates its absence.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Serve: ServeConfig{Watch: true}}
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err == nil {
			path = filepath.Join(dir, configFile)
		}
	}

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case err == nil:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
			}
		case os.IsNotExist(err) && !explicit:
		case os.IsNotExist(err):
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		default:
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
		}
	}

	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills in zero values.
func (c *Config) SetDefaults() error {
	if c.Repo.Root != "" {
		if c.Repo.Components == "" {
			c.Repo.Components = filepath.Join(c.Repo.Root, "components")
		}
		if c.Repo.History == "" {
			if h := filepath.Join(c.Repo.Root, "components", "meta-packages", "history", "history"); fileExists(h) {
				c.Repo.History = h
			}
		}
	}

	if len(c.Catalog.URLs) == 0 {
		c.Catalog.URLs = DefaultCatalogURLs
	}
	if c.Catalog.Dir == "" {
		dir, err := dataDir()
		if err != nil {
			return err
		}
		c.Catalog.Dir = filepath.Join(dir, "catalogs")
	}

	if c.Build.Timeout.Duration <= 0 {
		c.Build.Timeout.Duration = userland.DefaultQueryTimeout
	}
	if c.Build.Workers <= 0 {
		c.Build.Workers = audit.DefaultWorkers
	}
	if c.Build.Cache == "" {
		c.Build.Cache = CacheFile
	}
	if c.Build.CacheTTL.Duration <= 0 {
		c.Build.CacheTTL.Duration = defaultCacheTTL
	}
	if c.Build.CycleEdges == "" {
		c.Build.CycleEdges = audit.DefaultCycleEdges
	}

	if c.Serve.Addr == "" {
		c.Serve.Addr = server.DefaultAddr
	}
	if c.Serve.LRUSize <= 0 {
		c.Serve.LRUSize = server.DefaultCacheSize
	}
	return nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Build.Cache {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Build.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "build cache %q needs redis_url", CacheRedis)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown build cache %q", c.Build.Cache)
	}
	for _, u := range c.Catalog.URLs {
		if err := errors.ValidateURL(u); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "catalog url")
		}
	}
	if c.Serve.Schedule != "" {
		if _, err := cron.ParseStandard(c.Serve.Schedule); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "serve schedule %q", c.Serve.Schedule)
		}
	}
	return c.Store.Validate()
}

// CatalogPaths returns the catalogs to load, in order.
func (c *Config) CatalogPaths() []string {
	if len(c.Catalog.Paths) > 0 {
		return c.Catalog.Paths
	}
	paths := make([]string, len(c.Catalog.URLs))
	for i, u := range c.Catalog.URLs {
		paths[i] = catalogFile(c.Catalog.Dir, u)
	}
	return paths
}

// AuditOptions converts the config into audit options.
func (c *Config) AuditOptions() audit.Options {
	return audit.Options{
		Catalogs:   c.CatalogPaths(),
		History:    c.Repo.History,
		Components: c.Repo.Components,
		Workers:    c.Build.Workers,
		CycleEdges: c.Build.CycleEdges,
	}
}

// catalogFile names the local copy of a catalog URL after its publisher
// path segment: .../hipster/catalog/1/catalog.dependency.C is stored as
// <dir>/hipster/catalog.dependency.C.
func catalogFile(dir, rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)[0]
		if name == "" || name == path.Base(u.Path) {
			name = u.Hostname()
		}
	}
	if name == "" {
		name = "default"
	}
	return filepath.Join(dir, name, catalog.FileName)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// auditFlags are the flags shared by commands that run an audit. Set values
// override the config file.
type auditFlags struct {
	repo       string
	catalogs   []string
	history    string
	workers    int
	cycleEdges string
	noCache    bool
}

func (f *auditFlags) apply(cfg *Config) error {
	if f.repo != "" {
		cfg.Repo = RepoConfig{Root: f.repo}
	}
	if f.history != "" {
		cfg.Repo.History = f.history
	}
	if len(f.catalogs) > 0 {
		cfg.Catalog.Paths = f.catalogs
	}
	if f.workers > 0 {
		cfg.Build.Workers = f.workers
	}
	if f.cycleEdges != "" {
		cfg.Build.CycleEdges = f.cycleEdges
	}
	return cfg.SetDefaults()
}

// config loads the config file named by --config.
func (c *CLI) config() (*Config, error) {
	cfg, err := loadConfig(c.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
