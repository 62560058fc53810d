package cache

// ScopedKeyer prefixes the keys of another Keyer so that unrelated users
// of one backend, such as build queries and download validators, cannot
// collide.
//
//	assets := NewScopedKeyer(nil, "assets:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer means [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// BuildQueryKey prefixes the inner build query key.
func (k *ScopedKeyer) BuildQueryKey(component, variable string, makefile []byte) string {
	return k.prefix + k.inner.BuildQueryKey(component, variable, makefile)
}

// HTTPKey prefixes the inner HTTP key.
func (k *ScopedKeyer) HTTPKey(url string) string {
	return k.prefix + k.inner.HTTPKey(url)
}
