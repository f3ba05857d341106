// Package protect encrypts regulated lead fields before they reach any
// persistence layer and derives one-way fingerprints for duplicate detection.
//
// Encryption is deterministic on purpose: the nonce is synthesized from the
// field name and plaintext with a dedicated MAC key (SIV construction), so
// re-protecting an identical record yields byte-identical ciphertext and
// replayed imports stay idempotent end to end.
package protect

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"leadgate/internal/lead"
)

// ErrMissingKey means no key material was configured. This is fatal for the
// whole run: encryption is a precondition, not a per-record condition.
var ErrMissingKey = errors.New("protect: no encryption key material configured")

// ErrInvalidCiphertext means a stored value could not be authenticated or
// decoded with the configured key.
var ErrInvalidCiphertext = errors.New("protect: ciphertext invalid for configured key")

const keyDerivationInfo = "leadgate/field-protection/v1"

// Protector applies authenticated field-level encryption to lead records.
// It is safe for concurrent use.
type Protector struct {
	aead     cipher.AEAD
	nonceKey []byte
	fpKey    []byte
}

// New derives the cipher, nonce and fingerprint keys from the supplied key
// material via HKDF-SHA256. Any non-empty key material is acceptable; the
// derivation stretches it to the required sizes.
func New(key []byte) (*Protector, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}

	kdf := hkdf.New(sha256.New, key, nil, []byte(keyDerivationInfo))
	aeadKey := make([]byte, chacha20poly1305.KeySize)
	nonceKey := make([]byte, sha256.Size)
	fpKey := make([]byte, sha256.Size)
	for _, buf := range [][]byte{aeadKey, nonceKey, fpKey} {
		if _, err := io.ReadFull(kdf, buf); err != nil {
			return nil, fmt.Errorf("derive protection keys: %w", err)
		}
	}

	aead, err := chacha20poly1305.NewX(aeadKey)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}

	return &Protector{aead: aead, nonceKey: nonceKey, fpKey: fpKey}, nil
}

// Protect returns a copy of the record with every regulated field replaced by
// ciphertext, plus the dedup fingerprint. The input record is not mutated.
// Empty regulated fields pass through empty so absent data never produces
// ciphertext.
func (p *Protector) Protect(record lead.Record) (lead.Protected, error) {
	out := record
	for _, name := range lead.RegulatedFieldNames {
		value, _ := record.RegulatedValue(name)
		if value == "" {
			continue
		}
		sealed, err := p.EncryptField(name, value)
		if err != nil {
			return lead.Protected{}, fmt.Errorf("protect field %s of lead %s: %w", name, record.LeadID, err)
		}
		out.SetRegulatedValue(name, sealed)
	}
	protected := lead.Protected{Record: out}
	if source := fingerprintSource(record); source != "" {
		protected.Fingerprint = p.Fingerprint(source)
	}
	return protected, nil
}

// EncryptField seals one regulated value. The field name is bound in as
// associated data so a ciphertext cannot be transplanted between columns.
func (p *Protector) EncryptField(field, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := p.syntheticNonce(field, plaintext)
	sealed := p.aead.Seal(nonce, nonce, []byte(plaintext), []byte(field))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecryptField inverts EncryptField for the same field name and key.
func (p *Protector) DecryptField(field, encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(raw) <= p.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, sealed := raw[:p.aead.NonceSize()], raw[p.aead.NonceSize():]
	plaintext, err := p.aead.Open(nil, nonce, sealed, []byte(field))
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}

// Fingerprint returns a keyed one-way hash of the plaintext, normalized for
// case and surrounding whitespace. It is deterministic per key and cannot be
// reversed to the source value.
func (p *Protector) Fingerprint(plaintext string) string {
	mac := hmac.New(sha256.New, p.fpKey)
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(plaintext))))
	return hex.EncodeToString(mac.Sum(nil))
}

// syntheticNonce derives the AEAD nonce from field name and plaintext under a
// key independent of the cipher key. Identical inputs reuse the nonce, which
// is the deterministic property we want; distinct inputs diverge with
// overwhelming probability.
func (p *Protector) syntheticNonce(field, plaintext string) []byte {
	mac := hmac.New(sha256.New, p.nonceKey)
	mac.Write([]byte(field))
	mac.Write([]byte{0})
	mac.Write([]byte(plaintext))
	return mac.Sum(nil)[:chacha20poly1305.NonceSizeX]
}

// fingerprintSource picks the identity field the fingerprint is derived from.
// Email is the strongest cross-source identity; phone is the fallback, then
// the lead ID. A record with none of the three gets no fingerprint at all:
// fingerprinting the empty string would alias every such record in the dedup
// index.
func fingerprintSource(record lead.Record) string {
	switch {
	case record.Email != "":
		return record.Email
	case record.Phone != "":
		return record.Phone
	default:
		return record.LeadID
	}
}
