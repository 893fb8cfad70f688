// Package loader loads resources from signed bundles and records where
// each loaded resource came from, together with its security metadata.
package loader

import (
	"crypto/x509"
	"net/url"
	"sync/atomic"
	"time"
)

// Entry describes a single loaded resource: its origin, raw content, and
// the security metadata gathered while loading it. An Entry is created
// empty when a resource lookup begins and its fields are populated as
// loading proceeds. The loaded artifact is the only field with a
// cross-thread visibility guarantee; once stored, any reader in any
// goroutine observes the latest store without additional synchronization.
// No atomicity is promised across the other fields.
type Entry struct {
	// LastModified is the modification time of the origin at the time the
	// resource was read. The zero value means unknown.
	LastModified time.Time

	// Data is the binary content of the resource.
	Data []byte

	// Source is the location the resource was read from.
	Source *url.URL

	// CodeBase is the location of the bundle the resource came from.
	CodeBase *url.URL

	// Manifest is the bundle manifest, when the resource was loaded from
	// a bundle.
	Manifest *Manifest

	// Certificates is the signer chain of the bundle, leaf first, when
	// the bundle was signed.
	Certificates []*x509.Certificate

	loaded atomic.Pointer[any]
}

// Loaded returns the artifact produced from this entry, if one has been
// stored.
func (e *Entry) Loaded() (any, bool) {
	p := e.loaded.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// StoreLoaded records the artifact produced from this entry. Racing
// loaders may both store; the last store wins and is visible to all
// subsequent readers.
func (e *Entry) StoreLoaded(artifact any) {
	e.loaded.Store(&artifact)
}
