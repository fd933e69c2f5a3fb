// Package fingerprint derives human-comparable safety numbers from two
// parties' identity keys.
//
// A fingerprint has two faces: a displayable 60-digit number both users can
// read aloud, and a scannable binary blob one client can show as a QR code
// for the other to verify.
package fingerprint

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/openratchet/protocol/pkg/identity"
)

// DefaultIterations is the hash iteration count clients agreed on.
const DefaultIterations = 5200

const digitsPerChunk = 5
const chunkBytes = 5
const displayChunks = 6

// Scannable encoding field numbers.
const (
	combinedFieldVersion = 1
	combinedFieldLocal   = 2
	combinedFieldRemote  = 3

	logicalFieldContent = 1
)

// ErrFingerprintParsing is returned when a scannable blob cannot be
// decoded.
var ErrFingerprintParsing = errors.New("fingerprint parsing error")

// VersionMismatchError is returned when two scannable fingerprints were
// generated with different format versions and cannot be compared.
type VersionMismatchError struct {
	Theirs uint32
	Ours   uint32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("fingerprint version number mismatch them %d us %d", e.Theirs, e.Ours)
}

// DisplayableFingerprint is the numeric safety number shown to users.
type DisplayableFingerprint struct {
	local  string
	remote string
}

// Text returns the combined safety number. Both parties see the same text
// because the halves are ordered lexicographically, not by ownership.
func (d DisplayableFingerprint) Text() string {
	if d.local <= d.remote {
		return d.local + d.remote
	}
	return d.remote + d.local
}

func (d DisplayableFingerprint) String() string {
	return d.Text()
}

// ScannableFingerprint is the binary comparison form exchanged by QR scan.
type ScannableFingerprint struct {
	version    uint32
	localHash  []byte
	remoteHash []byte
	serialized []byte
}

// Serialized returns the encoded blob to show to the other party.
func (s ScannableFingerprint) Serialized() []byte {
	return s.serialized
}

// Compare checks this fingerprint against the serialized blob scanned from
// the other party. Matching content reports true; differing content reports
// false. A format-version skew is an error, not a mismatch.
func (s ScannableFingerprint) Compare(scanned []byte) (bool, error) {
	theirs, err := decodeScannable(scanned)
	if err != nil {
		return false, err
	}
	if theirs.version != s.version {
		return false, &VersionMismatchError{Theirs: theirs.version, Ours: s.version}
	}

	same := subtle.ConstantTimeCompare(s.localHash, theirs.remoteHash) &
		subtle.ConstantTimeCompare(s.remoteHash, theirs.localHash)
	return same == 1, nil
}

// Fingerprint pairs the displayable and scannable faces derived from the
// same key material.
type Fingerprint struct {
	Displayable DisplayableFingerprint
	Scannable   ScannableFingerprint
}

// Generator derives fingerprints with a fixed hash iteration count. Both
// parties must use the same count to get comparable output.
type Generator struct {
	iterations int
}

// NewGenerator returns a generator using the given iteration count, or
// DefaultIterations when count is not positive.
func NewGenerator(iterations int) *Generator {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Generator{iterations: iterations}
}

// CreateFor derives the fingerprint binding the local and remote
// identities. The stable identifiers are whatever both clients agree
// identifies an account, typically its address bytes.
func (g *Generator) CreateFor(
	version uint32,
	localIdentifier []byte,
	localKey identity.Key,
	remoteIdentifier []byte,
	remoteKey identity.Key,
) (*Fingerprint, error) {
	localHash, err := g.hashIdentity(version, localIdentifier, localKey)
	if err != nil {
		return nil, err
	}
	remoteHash, err := g.hashIdentity(version, remoteIdentifier, remoteKey)
	if err != nil {
		return nil, err
	}

	scannable := ScannableFingerprint{
		version:    version,
		localHash:  localHash[:32],
		remoteHash: remoteHash[:32],
	}
	scannable.serialized = encodeScannable(scannable)

	return &Fingerprint{
		Displayable: DisplayableFingerprint{
			local:  displayText(localHash),
			remote: displayText(remoteHash),
		},
		Scannable: scannable,
	}, nil
}

// hashIdentity iterates BLAKE2b-512 over the version, the serialized key,
// and the stable identifier.
func (g *Generator) hashIdentity(version uint32, identifier []byte, key identity.Key) ([]byte, error) {
	keyBytes := key.Serialize()

	hash, err := blake2b.New512(nil)
	if err != nil {
		return nil, err
	}
	var versionBytes [2]byte
	binary.BigEndian.PutUint16(versionBytes[:], uint16(version))
	hash.Write(versionBytes[:])
	hash.Write(keyBytes)
	hash.Write(identifier)
	digest := hash.Sum(nil)

	for i := 1; i < g.iterations; i++ {
		hash.Reset()
		hash.Write(digest)
		hash.Write(keyBytes)
		digest = hash.Sum(nil)
	}
	return digest, nil
}

// displayText folds the digest into displayChunks groups of five decimal
// digits.
func displayText(digest []byte) string {
	var sb strings.Builder
	for chunk := 0; chunk < displayChunks; chunk++ {
		block := digest[chunk*chunkBytes : (chunk+1)*chunkBytes]
		var v uint64
		for _, b := range block {
			v = v<<8 | uint64(b)
		}
		fmt.Fprintf(&sb, "%05d", v%100000)
	}
	return sb.String()
}

func encodeScannable(s ScannableFingerprint) []byte {
	var local []byte
	local = protowire.AppendTag(local, logicalFieldContent, protowire.BytesType)
	local = protowire.AppendBytes(local, s.localHash)

	var remote []byte
	remote = protowire.AppendTag(remote, logicalFieldContent, protowire.BytesType)
	remote = protowire.AppendBytes(remote, s.remoteHash)

	var out []byte
	out = protowire.AppendTag(out, combinedFieldVersion, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(s.version))
	out = protowire.AppendTag(out, combinedFieldLocal, protowire.BytesType)
	out = protowire.AppendBytes(out, local)
	out = protowire.AppendTag(out, combinedFieldRemote, protowire.BytesType)
	out = protowire.AppendBytes(out, remote)
	return out
}

func decodeScannable(value []byte) (*ScannableFingerprint, error) {
	out := &ScannableFingerprint{}
	seenVersion := false
	for len(value) > 0 {
		num, typ, n := protowire.ConsumeTag(value)
		if n < 0 {
			return nil, ErrFingerprintParsing
		}
		value = value[n:]

		switch num {
		case combinedFieldVersion:
			if typ != protowire.VarintType {
				return nil, ErrFingerprintParsing
			}
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return nil, ErrFingerprintParsing
			}
			out.version = uint32(v)
			seenVersion = true
			value = value[n:]
		case combinedFieldLocal, combinedFieldRemote:
			if typ != protowire.BytesType {
				return nil, ErrFingerprintParsing
			}
			v, n := protowire.ConsumeBytes(value)
			if n < 0 {
				return nil, ErrFingerprintParsing
			}
			content, err := decodeLogical(v)
			if err != nil {
				return nil, err
			}
			if num == combinedFieldLocal {
				out.localHash = content
			} else {
				out.remoteHash = content
			}
			value = value[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, value)
			if n < 0 {
				return nil, ErrFingerprintParsing
			}
			value = value[n:]
		}
	}

	if !seenVersion || out.localHash == nil || out.remoteHash == nil {
		return nil, ErrFingerprintParsing
	}
	return out, nil
}

func decodeLogical(value []byte) ([]byte, error) {
	var content []byte
	for len(value) > 0 {
		num, typ, n := protowire.ConsumeTag(value)
		if n < 0 {
			return nil, ErrFingerprintParsing
		}
		value = value[n:]

		if num == logicalFieldContent && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(value)
			if n < 0 {
				return nil, ErrFingerprintParsing
			}
			content = append([]byte(nil), v...)
			value = value[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, value)
		if n < 0 {
			return nil, ErrFingerprintParsing
		}
		value = value[n:]
	}
	if content == nil {
		return nil, ErrFingerprintParsing
	}
	return content, nil
}
