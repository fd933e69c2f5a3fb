// Package curve provides the elliptic-curve key primitives used by the
// wire-format layer: key generation, the tagged serialized key form, and
// message signing/verification.
//
// Serialized public keys carry a one-byte key-type identifier followed by
// the raw 32-byte key material, 33 bytes in total. Only the DJB key type
// (0x05) is defined.
package curve

import (
	"crypto"
	"crypto/ed25519"
	"fmt"
	"io"
)

// Key type identifiers
const (
	// KeyTypeDJB identifies a Curve25519-family key (type byte 0x05).
	KeyTypeDJB byte = 0x05
)

// Key and signature lengths
const (
	// KeyLength is the raw key material length.
	KeyLength = 32

	// SerializedPublicKeyLength is the type byte plus the key material.
	SerializedPublicKeyLength = 1 + KeyLength

	// SignatureLength is the fixed length of a signature.
	SignatureLength = ed25519.SignatureSize
)

// ErrNoKeyTypeIdentifier is returned when a serialized key is empty and
// carries no type byte at all.
var ErrNoKeyTypeIdentifier = fmt.Errorf("no key type identifier")

// BadKeyTypeError is returned when a serialized key has an unknown type
// byte.
type BadKeyTypeError struct {
	KeyType byte
}

func (e *BadKeyTypeError) Error() string {
	return fmt.Sprintf("bad key type <%#04x>", e.KeyType)
}

// BadKeyLengthError is returned when a serialized key has the wrong length
// for its declared type.
type BadKeyLengthError struct {
	KeyType byte
	Length  int
}

func (e *BadKeyLengthError) Error() string {
	return fmt.Sprintf("bad key length <%d> for key with type <%#04x>", e.Length, e.KeyType)
}

// PublicKey is an immutable public key.
type PublicKey struct {
	key [KeyLength]byte
}

// NewPublicKey builds a public key from exactly KeyLength bytes of raw key
// material (no type byte).
func NewPublicKey(material []byte) (*PublicKey, error) {
	if len(material) != KeyLength {
		return nil, &BadKeyLengthError{KeyType: KeyTypeDJB, Length: len(material)}
	}
	pk := &PublicKey{}
	copy(pk.key[:], material)
	return pk, nil
}

// DecodePublicKey parses the serialized type-tagged form produced by
// Serialize.
func DecodePublicKey(value []byte) (*PublicKey, error) {
	if len(value) == 0 {
		return nil, ErrNoKeyTypeIdentifier
	}
	if value[0] != KeyTypeDJB {
		return nil, &BadKeyTypeError{KeyType: value[0]}
	}
	if len(value) != SerializedPublicKeyLength {
		return nil, &BadKeyLengthError{KeyType: value[0], Length: len(value)}
	}
	return NewPublicKey(value[1:])
}

// Serialize returns the type-tagged serialized form: the key type byte
// followed by the raw key material.
func (k *PublicKey) Serialize() []byte {
	out := make([]byte, SerializedPublicKeyLength)
	out[0] = KeyTypeDJB
	copy(out[1:], k.key[:])
	return out
}

// KeyBytes returns the raw key material without the type byte.
func (k *PublicKey) KeyBytes() []byte {
	out := make([]byte, KeyLength)
	copy(out, k.key[:])
	return out
}

// Equal reports whether both keys hold the same key material.
func (k *PublicKey) Equal(other *PublicKey) bool {
	if other == nil {
		return false
	}
	return k.key == other.key
}

// VerifySignature checks signature over message. A malformed or mismatched
// signature reports false; it never errors.
func (k *PublicKey) VerifySignature(message, signature []byte) bool {
	if len(signature) != SignatureLength {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(k.key[:]), message, signature)
}

// PrivateKey is an immutable private key.
type PrivateKey struct {
	seed [KeyLength]byte
}

// DecodePrivateKey parses the raw 32-byte private key form produced by
// Serialize.
func DecodePrivateKey(value []byte) (*PrivateKey, error) {
	if len(value) != KeyLength {
		return nil, &BadKeyLengthError{KeyType: KeyTypeDJB, Length: len(value)}
	}
	sk := &PrivateKey{}
	copy(sk.seed[:], value)
	return sk, nil
}

// Serialize returns the raw 32-byte private key material.
func (k *PrivateKey) Serialize() []byte {
	out := make([]byte, KeyLength)
	copy(out, k.seed[:])
	return out
}

// PublicKey derives the public counterpart of this private key.
func (k *PrivateKey) PublicKey() *PublicKey {
	priv := ed25519.NewKeyFromSeed(k.seed[:])
	pk := &PublicKey{}
	copy(pk.key[:], priv.Public().(ed25519.PublicKey))
	return pk
}

// Sign signs message and returns a SignatureLength-byte signature. rand is
// the caller's randomness source for signature schemes that need a nonce.
func (k *PrivateKey) Sign(rand io.Reader, message []byte) ([]byte, error) {
	priv := ed25519.NewKeyFromSeed(k.seed[:])
	return priv.Sign(rand, message, crypto.Hash(0))
}

// KeyPair holds a matched public and private key.
type KeyPair struct {
	PublicKey  *PublicKey
	PrivateKey *PrivateKey
}

// GenerateKeyPair creates a fresh key pair from rand.
func GenerateKeyPair(rand io.Reader) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	pk := &PublicKey{}
	copy(pk.key[:], pub)
	sk := &PrivateKey{}
	copy(sk.seed[:], priv.Seed())
	return &KeyPair{PublicKey: pk, PrivateKey: sk}, nil
}

// NewKeyPairFromPrivateKey rebuilds a key pair from a private key alone.
func NewKeyPairFromPrivateKey(priv *PrivateKey) *KeyPair {
	return &KeyPair{PublicKey: priv.PublicKey(), PrivateKey: priv}
}
