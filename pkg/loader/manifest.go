package loader

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/authgate/authgate/pkg/errors"
)

// Well-known member names inside a bundle.
const (
	// ManifestMember is the bundle manifest.
	ManifestMember = "manifest.json"

	// SignatureMember is the raw signature over the manifest bytes.
	SignatureMember = "manifest.sig"

	// SignerMember is the PEM-encoded signer certificate chain, leaf first.
	SignerMember = "signer.pem"
)

// Manifest describes a bundle: its identity and the expected SHA-256
// digest of every member. The manifest is the unit of signing; member
// integrity follows from the digest list once the manifest signature has
// been verified.
type Manifest struct {
	// Name identifies the bundle.
	Name string `json:"name"`

	// Version is the bundle version string.
	Version string `json:"version"`

	// Members maps member paths to lowercase hex SHA-256 digests.
	Members map[string]string `json:"members"`
}

// parseManifest parses HuJSON manifest bytes.
func parseManifest(data []byte) (*Manifest, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, errors.NewBundleError("failed to parse manifest", err)
	}

	var m Manifest
	if err := json.Unmarshal(std, &m); err != nil {
		return nil, errors.NewBundleError("failed to parse manifest", err)
	}
	if m.Name == "" {
		return nil, errors.NewBundleError("manifest has no name", nil)
	}
	return &m, nil
}

// verifyDigest checks member content against the digest recorded in the
// manifest.
func (m *Manifest) verifyDigest(member string, data []byte) error {
	want, ok := m.Members[member]
	if !ok {
		return errors.NewBundleError(fmt.Sprintf("member %s not listed in manifest", member), nil)
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != want {
		return errors.NewBundleError(fmt.Sprintf("digest mismatch for member %s", member), nil)
	}
	return nil
}

// parseCertChain parses a PEM-encoded certificate chain, leaf first.
func parseCertChain(pemData []byte) ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, errors.NewBundleError("failed to parse signer certificate", err)
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, errors.NewBundleError("no certificates in signer chain", nil)
	}
	return chain, nil
}

// verifySignature verifies sig over manifestBytes with the leaf
// certificate's public key. ECDSA, RSA (PKCS #1 v1.5), and Ed25519 signers
// are supported; the digest is SHA-256 except for Ed25519 which signs the
// raw bytes.
func verifySignature(leaf *x509.Certificate, manifestBytes, sig []byte) error {
	digest := sha256.Sum256(manifestBytes)

	switch key := leaf.PublicKey.(type) {
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(key, digest[:], sig) {
			return errors.NewBundleError("manifest signature verification failed", nil)
		}
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig); err != nil {
			return errors.NewBundleError("manifest signature verification failed", err)
		}
	case ed25519.PublicKey:
		if !ed25519.Verify(key, manifestBytes, sig) {
			return errors.NewBundleError("manifest signature verification failed", nil)
		}
	default:
		return errors.NewBundleError(fmt.Sprintf("unsupported signer key type %T", leaf.PublicKey), nil)
	}
	return nil
}
