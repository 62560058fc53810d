package httputil

import (
	"fmt"
	"net/http"

	"github.com/matzehuels/pkgcheck/pkg/cache"
)

// StatusError is returned for an unexpected HTTP status.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// checkStatus turns a non-2xx status into an error. Server errors and rate
// limiting are transient.
func checkStatus(url string, status int) error {
	err := &StatusError{URL: url, Status: status}
	if status >= 500 || status == http.StatusTooManyRequests {
		return cache.Retryable(err)
	}
	return err
}
