// Package identity wraps curve keys into the long-term identity types used
// to authenticate sessions: the public Key embedded in pre-key messages and
// mixed into pairwise MACs, and the KeyPair a client stores for itself.
package identity

import (
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/openratchet/protocol/pkg/curve"
)

// Serialized key-pair field numbers.
const (
	keyPairFieldPublicKey  = 1
	keyPairFieldPrivateKey = 2
)

// Key is the public identity of a user. It is an immutable wrapper around a
// curve public key.
type Key struct {
	publicKey *curve.PublicKey
}

// NewKey wraps a public key as a public identity.
func NewKey(publicKey *curve.PublicKey) Key {
	return Key{publicKey: publicKey}
}

// DecodeKey parses a serialized public identity.
func DecodeKey(value []byte) (Key, error) {
	pk, err := curve.DecodePublicKey(value)
	if err != nil {
		return Key{}, err
	}
	return Key{publicKey: pk}, nil
}

// PublicKey returns the public key representing this identity.
func (k Key) PublicKey() *curve.PublicKey {
	return k.publicKey
}

// Serialize returns the type-tagged serialized key form, parseable with
// DecodeKey.
func (k Key) Serialize() []byte {
	return k.publicKey.Serialize()
}

// Equal reports whether both identities hold the same public key.
func (k Key) Equal(other Key) bool {
	return k.publicKey.Equal(other.publicKey)
}

// KeyPair is the private identity of a user: the public Key plus the
// private key that defines it.
type KeyPair struct {
	identityKey Key
	privateKey  *curve.PrivateKey
}

// NewKeyPair builds a key pair from a public identity and its private key.
func NewKeyPair(identityKey Key, privateKey *curve.PrivateKey) KeyPair {
	return KeyPair{identityKey: identityKey, privateKey: privateKey}
}

// GenerateKeyPair creates a fresh identity from randomness in rand.
func GenerateKeyPair(rand io.Reader) (KeyPair, error) {
	pair, err := curve.GenerateKeyPair(rand)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{
		identityKey: NewKey(pair.PublicKey),
		privateKey:  pair.PrivateKey,
	}, nil
}

// IdentityKey returns the public identity of this pair.
func (p KeyPair) IdentityKey() Key {
	return p.identityKey
}

// PublicKey returns the public key that defines this identity.
func (p KeyPair) PublicKey() *curve.PublicKey {
	return p.identityKey.PublicKey()
}

// PrivateKey returns the private key that defines this identity.
func (p KeyPair) PrivateKey() *curve.PrivateKey {
	return p.privateKey
}

// Serialize returns a storable encoding of the pair, parseable with
// DecodeKeyPair.
func (p KeyPair) Serialize() []byte {
	var out []byte
	out = protowire.AppendTag(out, keyPairFieldPublicKey, protowire.BytesType)
	out = protowire.AppendBytes(out, p.identityKey.Serialize())
	out = protowire.AppendTag(out, keyPairFieldPrivateKey, protowire.BytesType)
	out = protowire.AppendBytes(out, p.privateKey.Serialize())
	return out
}

// DecodeKeyPair parses a serialized key pair produced by Serialize.
func DecodeKeyPair(value []byte) (KeyPair, error) {
	var publicKey, privateKey []byte
	for len(value) > 0 {
		num, typ, n := protowire.ConsumeTag(value)
		if n < 0 {
			return KeyPair{}, protowire.ParseError(n)
		}
		value = value[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, value)
			if n < 0 {
				return KeyPair{}, protowire.ParseError(n)
			}
			value = value[n:]
			continue
		}

		field, n := protowire.ConsumeBytes(value)
		if n < 0 {
			return KeyPair{}, protowire.ParseError(n)
		}
		value = value[n:]

		switch num {
		case keyPairFieldPublicKey:
			publicKey = field
		case keyPairFieldPrivateKey:
			privateKey = field
		}
	}

	identityKey, err := DecodeKey(publicKey)
	if err != nil {
		return KeyPair{}, err
	}
	priv, err := curve.DecodePrivateKey(privateKey)
	if err != nil {
		return KeyPair{}, err
	}
	return NewKeyPair(identityKey, priv), nil
}
