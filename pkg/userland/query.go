package userland

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/pkgcheck/pkg/cache"
	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/observability"
)

// Variables maps each component class to the Makefile variable listing it.
var Variables = map[depend.Class]string{
	depend.Build:       "REQUIRED_PACKAGES",
	depend.Test:        "TEST_REQUIRED_PACKAGES",
	depend.SystemBuild: "USERLAND_REQUIRED_PACKAGES",
	depend.SystemTest:  "USERLAND_TEST_REQUIRED_PACKAGES",
}

// Command returns the make invocation that prints the dependencies of class.
func Command(class depend.Class) string {
	return "make print-value-" + Variables[class]
}

// Querier reports the dependencies a component declares for one class.
type Querier interface {
	Query(ctx context.Context, comp Entry, class depend.Class) ([]fmri.FMRI, error)
}

// QueryError is returned when the build tool could not be run for a
// component. Loaders report it as an unrunnable build query rather than
// failing the load.
type QueryError struct {
	Command string
	Path    string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("can't run %s in %s: %v", e.Command, e.Path, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// DefaultQueryTimeout bounds a single make invocation.
const DefaultQueryTimeout = 2 * time.Minute

// MakeQuerier answers queries by running make in the component directory.
type MakeQuerier struct {
	Runner  Runner
	Timeout time.Duration

	// Cache and Keyer enable caching; a nil Cache disables it. Entries are
	// keyed on the component's Makefile, so editing it invalidates them.
	Cache cache.Cache
	Keyer cache.Keyer
	TTL   time.Duration
	// CacheBackoff retries transient cache errors; the zero value makes
	// two attempts 100ms apart.
	CacheBackoff cache.Backoff
}

var defaultCacheBackoff = cache.Backoff{Attempts: 2, Initial: 100 * time.Millisecond}

// NewMakeQuerier returns a querier running commands through runner.
// A nil cache disables caching.
func NewMakeQuerier(runner Runner, c cache.Cache, ttl time.Duration) *MakeQuerier {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &MakeQuerier{
		Runner:  runner,
		Timeout: DefaultQueryTimeout,
		Cache:   c,
		Keyer:   cache.NewDefaultKeyer(),
		TTL:     ttl,
	}
}

// Query implements [Querier].
func (q *MakeQuerier) Query(ctx context.Context, comp Entry, class depend.Class) ([]fmri.FMRI, error) {
	variable, ok := Variables[class]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no build query for %s dependencies", class)
	}

	key := q.cacheKey(comp, variable)
	if key != "" {
		var (
			data []byte
			hit  bool
		)
		err := cache.RetryWithBackoff(ctx, q.backoff(), func() (err error) {
			data, hit, err = q.Cache.Get(ctx, key)
			return err
		})
		if err == nil && hit {
			var raw []string
			if json.Unmarshal(data, &raw) == nil {
				observability.Cache().OnCacheHit(ctx, "buildq")
				return parseTokens(raw)
			}
		}
		observability.Cache().OnCacheMiss(ctx, "buildq")
	}

	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := q.Runner.Run(qctx, comp.Path, "make", "print-value-"+variable)
	observability.Audit().OnBuildQuery(ctx, variable, time.Since(start), err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &QueryError{Command: Command(class), Path: comp.Path, Err: err}
	}

	raw := strings.Fields(string(out))
	deps, err := parseTokens(raw)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if data, err := json.Marshal(raw); err == nil {
			err := cache.RetryWithBackoff(ctx, q.backoff(), func() error {
				return q.Cache.Set(ctx, key, data, q.TTL)
			})
			if err == nil {
				observability.Cache().OnCacheSet(ctx, "buildq", len(data))
			}
		}
	}
	return deps, nil
}

func (q *MakeQuerier) backoff() cache.Backoff {
	if q.CacheBackoff.Attempts <= 0 {
		return defaultCacheBackoff
	}
	return q.CacheBackoff
}

func (q *MakeQuerier) cacheKey(comp Entry, variable string) string {
	if q.Cache == nil {
		return ""
	}
	makefile, err := os.ReadFile(filepath.Join(comp.Path, "Makefile"))
	if err != nil {
		return ""
	}
	keyer := q.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return keyer.BuildQueryKey(comp.Name, variable, makefile)
}

func parseTokens(raw []string) ([]fmri.FMRI, error) {
	deps := make([]fmri.FMRI, 0, len(raw))
	for _, tok := range raw {
		f, err := fmri.Parse(tok)
		if err != nil {
			return nil, err
		}
		deps = append(deps, f.Normalize())
	}
	return deps, nil
}
