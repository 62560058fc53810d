package httputil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/pkgcheck/pkg/cache"
)

// Validators are the response headers remembered for conditional requests.
type Validators struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// ValidatorStore keeps the [Validators] of previous downloads in a
// [cache.Cache], keyed by URL.
type ValidatorStore struct {
	cache cache.Cache
	keyer cache.Keyer
	// TTL bounds how long validators are kept; zero keeps them forever.
	TTL time.Duration
}

// NewValidatorStore stores validators in c. A nil keyer means
// [cache.DefaultKeyer].
func NewValidatorStore(c cache.Cache, keyer cache.Keyer) *ValidatorStore {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &ValidatorStore{cache: c, keyer: keyer}
}

// Get returns the validators recorded for url. Unreadable entries count as
// misses.
func (s *ValidatorStore) Get(ctx context.Context, url string) (Validators, bool, error) {
	data, hit, err := s.cache.Get(ctx, s.keyer.HTTPKey(url))
	if err != nil || !hit {
		return Validators{}, false, err
	}
	var v Validators
	if json.Unmarshal(data, &v) != nil {
		return Validators{}, false, nil
	}
	return v, true, nil
}

// Set records v for url. Empty validators remove the entry, since the
// server offers nothing to revalidate against.
func (s *ValidatorStore) Set(ctx context.Context, url string, v Validators) error {
	key := s.keyer.HTTPKey(url)
	if v == (Validators{}) {
		return s.cache.Delete(ctx, key)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.TTL)
}
