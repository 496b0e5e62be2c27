package cellio

import (
	"fmt"
	"strings"
	"sync"
)

// OpenerFunc constructs a stream for a locator.
type OpenerFunc func(locator string) (*Stream, error)

var registry = struct {
	mu      sync.RWMutex
	schemes map[string]OpenerFunc
}{schemes: make(map[string]OpenerFunc)}

// Register associates a locator scheme (without the trailing colon) with
// an opener. The http and file subpackages register their schemes at
// init; a later registration for the same scheme replaces the earlier
// one.
func Register(scheme string, open OpenerFunc) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.schemes[strings.ToLower(scheme)] = open
}

// Supports reports whether a registered source can construct a stream
// from the locator.
func Supports(locator string) bool {
	_, ok := lookup(locator)
	return ok
}

// Open dispatches the locator to the source registered for its scheme.
// Locators without a scheme, or with a scheme no source claims, fail with
// [ErrUnsupportedLocator].
func Open(locator string) (*Stream, error) {
	open, ok := lookup(locator)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLocator, locator)
	}
	return open(locator)
}

func lookup(locator string) (OpenerFunc, bool) {
	scheme, _, ok := strings.Cut(locator, ":")
	if !ok || scheme == "" {
		return nil, false
	}
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	open, ok := registry.schemes[strings.ToLower(scheme)]
	return open, ok
}
