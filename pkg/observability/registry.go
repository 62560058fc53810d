package observability

import (
	"sync"
	"sync/atomic"
)

// recorders is the set of hooks in effect. It is replaced as a whole, so
// emitters never observe a half-updated set.
type recorders struct {
	audit AuditHooks
	cache CacheHooks
	http  HTTPHooks
}

var (
	current atomic.Pointer[recorders]
	// setMu serialises the read-modify-write in update.
	setMu sync.Mutex
)

var noop = recorders{
	audit: NoopAuditHooks{},
	cache: NoopCacheHooks{},
	http:  NoopHTTPHooks{},
}

func init() { Reset() }

func update(apply func(*recorders)) {
	setMu.Lock()
	defer setMu.Unlock()
	next := *current.Load()
	apply(&next)
	current.Store(&next)
}

// SetAuditHooks installs h for audit events. A nil h is ignored.
func SetAuditHooks(h AuditHooks) {
	if h != nil {
		update(func(r *recorders) { r.audit = h })
	}
}

// SetCacheHooks installs h for cache events. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(r *recorders) { r.cache = h })
	}
}

// SetHTTPHooks installs h for download events. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(r *recorders) { r.http = h })
	}
}

// Reset drops every installed hook.
func Reset() {
	setMu.Lock()
	defer setMu.Unlock()
	r := noop
	current.Store(&r)
}

// Audit returns the installed audit hooks.
func Audit() AuditHooks { return current.Load().audit }

// Cache returns the installed cache hooks.
func Cache() CacheHooks { return current.Load().cache }

// HTTP returns the installed download hooks.
func HTTP() HTTPHooks { return current.Load().http }
