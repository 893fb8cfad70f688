package loader

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader is a process-wide cache of open bundles keyed by path. Racing
// opens of the same bundle collapse into one; the resulting Bundle is
// shared by every caller. Safe for concurrent use.
type Loader struct {
	opts []Option

	mu      sync.RWMutex
	bundles map[string]*Bundle
	group   singleflight.Group
}

// New creates a bundle loader. The given options apply to every bundle it
// opens.
func New(opts ...Option) *Loader {
	return &Loader{
		opts:    opts,
		bundles: make(map[string]*Bundle),
	}
}

// Bundle returns the open bundle at path, opening and verifying it on
// first use.
func (l *Loader) Bundle(path string) (*Bundle, error) {
	l.mu.RLock()
	b, ok := l.bundles[path]
	l.mu.RUnlock()
	if ok {
		return b, nil
	}

	v, err, _ := l.group.Do(path, func() (any, error) {
		l.mu.RLock()
		b, ok := l.bundles[path]
		l.mu.RUnlock()
		if ok {
			return b, nil
		}

		opened, err := OpenBundle(path, l.opts...)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.bundles[path] = opened
		l.mu.Unlock()

		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

// Close closes every open bundle and empties the cache.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for path, b := range l.bundles {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.bundles, path)
	}
	return firstErr
}
