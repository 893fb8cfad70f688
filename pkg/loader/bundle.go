package loader

import (
	"archive/zip"
	"crypto/x509"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/authgate/authgate/pkg/errors"
	"github.com/authgate/authgate/pkg/logger"
)

// Bundle is an open resource bundle: a zip archive with a signed manifest.
// Members are loaded on demand; each load verifies the member digest
// against the manifest before the entry is handed out. Safe for concurrent
// use.
type Bundle struct {
	path     string
	codeBase *url.URL
	reader   *zip.ReadCloser
	manifest *Manifest
	certs    []*x509.Certificate

	mu      sync.RWMutex
	entries map[string]*Entry
	group   singleflight.Group
}

// options configures bundle verification.
type options struct {
	roots         *x509.CertPool
	allowUnsigned bool
}

// Option configures bundle opening.
type Option func(*options)

// WithRoots verifies the signer chain against the given root pool instead
// of only checking the manifest signature.
func WithRoots(roots *x509.CertPool) Option {
	return func(o *options) { o.roots = roots }
}

// WithAllowUnsigned permits bundles that carry no signature. Member digest
// checks still apply when a manifest is present.
func WithAllowUnsigned() Option {
	return func(o *options) { o.allowUnsigned = true }
}

// OpenBundle opens and verifies the bundle at path. The manifest is read
// and its signature checked before any member can be loaded; a bundle with
// a bad signature never produces entries.
func OpenBundle(path string, opts ...Option) (*Bundle, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.NewBundleError(fmt.Sprintf("failed to open bundle %s", path), err)
	}

	b := &Bundle{
		path:    path,
		reader:  reader,
		entries: make(map[string]*Entry),
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	b.codeBase = &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	if err := b.verify(&o); err != nil {
		_ = reader.Close()
		return nil, err
	}

	return b, nil
}

// verify reads the manifest, signer chain, and signature members and
// checks them against each other.
func (b *Bundle) verify(o *options) error {
	manifestBytes, err := b.readMember(ManifestMember)
	if err != nil {
		return errors.NewBundleError("bundle has no manifest", err)
	}

	manifest, err := parseManifest(manifestBytes)
	if err != nil {
		return err
	}
	b.manifest = manifest

	sig, sigErr := b.readMember(SignatureMember)
	signerPEM, signerErr := b.readMember(SignerMember)

	if sigErr != nil && signerErr != nil {
		if o.allowUnsigned {
			logger.Debugf("bundle %s is unsigned", b.path)
			return nil
		}
		return errors.NewBundleError(fmt.Sprintf("bundle %s is not signed", b.path), nil)
	}
	if sigErr != nil || signerErr != nil {
		return errors.NewBundleError(fmt.Sprintf("bundle %s has a partial signature", b.path), nil)
	}

	chain, err := parseCertChain(signerPEM)
	if err != nil {
		return err
	}

	if err := verifySignature(chain[0], manifestBytes, sig); err != nil {
		return err
	}

	if o.roots != nil {
		intermediates := x509.NewCertPool()
		for _, cert := range chain[1:] {
			intermediates.AddCert(cert)
		}
		if _, err := chain[0].Verify(x509.VerifyOptions{
			Roots:         o.roots,
			Intermediates: intermediates,
		}); err != nil {
			return errors.NewBundleError("signer chain is not trusted", err)
		}
	}

	b.certs = chain
	return nil
}

// Manifest returns the bundle manifest.
func (b *Bundle) Manifest() *Manifest {
	return b.manifest
}

// Certificates returns the signer chain, leaf first, or nil for an
// unsigned bundle.
func (b *Bundle) Certificates() []*x509.Certificate {
	return b.certs
}

// Entry returns the cached entry for a member, if it has been loaded.
func (b *Bundle) Entry(name string) (*Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[name]
	return e, ok
}

// Load reads the named member, verifies its digest, and returns its entry.
// Concurrent loads of the same member collapse into a single read; every
// caller receives the same populated entry.
func (b *Bundle) Load(name string) (*Entry, error) {
	if e, ok := b.Entry(name); ok {
		return e, nil
	}

	v, err, _ := b.group.Do(name, func() (any, error) {
		// Re-check under the group in case a racing load finished first.
		if e, ok := b.Entry(name); ok {
			return e, nil
		}

		entry := &Entry{
			CodeBase:     b.codeBase,
			Manifest:     b.manifest,
			Certificates: b.certs,
		}

		file := b.member(name)
		if file == nil {
			return nil, errors.NewNotFoundError(fmt.Sprintf("member %s not found in bundle %s", name, b.path), nil)
		}

		data, err := readZipFile(file)
		if err != nil {
			return nil, errors.NewBundleError(fmt.Sprintf("failed to read member %s", name), err)
		}

		if err := b.manifest.verifyDigest(name, data); err != nil {
			return nil, err
		}

		entry.Data = data
		entry.LastModified = file.Modified
		entry.Source = &url.URL{Scheme: "bundle", Opaque: b.path + "!/" + name}

		b.mu.Lock()
		b.entries[name] = entry
		b.mu.Unlock()

		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Close releases the underlying archive.
func (b *Bundle) Close() error {
	return b.reader.Close()
}

func (b *Bundle) member(name string) *zip.File {
	for _, f := range b.reader.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (b *Bundle) readMember(name string) ([]byte, error) {
	f := b.member(name)
	if f == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("member %s not found", name), nil)
	}
	return readZipFile(f)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
