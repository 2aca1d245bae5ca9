// Package session tracks which search session the viewer is looking at.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidSession is returned when the navigation fragment does not name a
// session.
var ErrInvalidSession = errors.New("invalid session")

// Cursor identifies one search session's stored results.
type Cursor int64

// fragmentPrefix is the router prefix in front of the cursor, as in "#/42".
const fragmentPrefix = "#/"

// ParseFragment extracts the cursor from a navigation fragment such as "#/42".
func ParseFragment(fragment string) (Cursor, error) {
	raw := strings.TrimSpace(fragment)
	if !strings.HasPrefix(raw, fragmentPrefix) {
		return 0, fmt.Errorf("%w: fragment %q", ErrInvalidSession, fragment)
	}
	n, err := strconv.ParseInt(raw[len(fragmentPrefix):], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: fragment %q", ErrInvalidSession, fragment)
	}
	return Cursor(n), nil
}

// FragmentFor is the inverse of ParseFragment.
func FragmentFor(c Cursor) string {
	return fragmentPrefix + strconv.FormatInt(int64(c), 10)
}

// Location exposes the fragment of the current view.
type Location interface {
	Fragment() string
}

// Navigator is a Location that can be moved between sessions.
type Navigator struct {
	mu       sync.RWMutex
	fragment string
}

func NewNavigator(fragment string) *Navigator {
	return &Navigator{fragment: fragment}
}

func (n *Navigator) Fragment() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.fragment
}

func (n *Navigator) Navigate(fragment string) {
	n.mu.Lock()
	n.fragment = fragment
	n.mu.Unlock()
}

// Goto navigates to the fragment for c.
func (n *Navigator) Goto(c Cursor) {
	n.Navigate(FragmentFor(c))
}
