package dispatch

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Navigator moves the user between application routes.
type Navigator interface {
	CurrentRoute() string
	Navigate(route string)
}

// RouteTracker is an in-memory Navigator that remembers where it has been.
type RouteTracker struct {
	mu      sync.Mutex
	current string
	history []string
}

func NewRouteTracker(initial string) *RouteTracker {
	if initial == "" {
		initial = "/"
	}
	return &RouteTracker{current: initial}
}

func (t *RouteTracker) CurrentRoute() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *RouteTracker) Navigate(route string) {
	t.mu.Lock()
	from := t.current
	t.current = route
	t.history = append(t.history, route)
	t.mu.Unlock()
	log.WithFields(log.Fields{"from": from, "to": route}).Debug("navigate")
}

// History returns every route navigated to, oldest first.
func (t *RouteTracker) History() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.history...)
}
