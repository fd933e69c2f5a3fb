package protocol

import (
	"crypto/subtle"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/openratchet/protocol/pkg/curve"
	"github.com/openratchet/protocol/pkg/identity"
)

// SignalMessage is a pairwise Double-Ratchet ciphertext message.
//
// Wire layout: version_byte | body | mac[8]. The 8-byte tag is an
// HMAC-SHA256 over the sender identity, receiver identity, and every
// serialized byte preceding the tag.
type SignalMessage struct {
	messageVersion   MessageVersion
	senderRatchetKey *curve.PublicKey
	counter          uint32
	previousCounter  uint32
	ciphertext       []byte
	serialized       []byte
}

// NewSignalMessage builds and authenticates a pairwise message. macKey must
// be exactly MacKeyLength bytes.
func NewSignalMessage(
	messageVersion MessageVersion,
	macKey []byte,
	senderRatchetKey *curve.PublicKey,
	counter uint32,
	previousCounter uint32,
	ciphertext []byte,
	senderIdentityKey identity.Key,
	receiverIdentityKey identity.Key,
) (*SignalMessage, error) {
	body := &signalMessageBody{
		ratchetKey:      senderRatchetKey.Serialize(),
		counter:         &counter,
		previousCounter: &previousCounter,
		ciphertext:      append([]byte(nil), ciphertext...),
	}
	encoded := body.marshal()

	serialized := make([]byte, 1+len(encoded)+MacLength)
	serialized[0] = packVersionByte(messageVersion)
	copy(serialized[1:], encoded)

	macOffset := len(serialized) - MacLength
	mac, err := computeMAC(senderIdentityKey, receiverIdentityKey, macKey, serialized[:macOffset])
	if err != nil {
		return nil, err
	}
	copy(serialized[macOffset:], mac)

	return &SignalMessage{
		messageVersion:   messageVersion,
		senderRatchetKey: senderRatchetKey,
		counter:          counter,
		previousCounter:  previousCounter,
		ciphertext:       body.ciphertext,
		serialized:       serialized,
	}, nil
}

// ParseSignalMessage validates and decodes a serialized pairwise message.
// It performs no MAC check; callers verify with VerifyMAC once they hold
// the identity keys.
func ParseSignalMessage(value []byte) (*SignalMessage, error) {
	if len(value) < MacLength+1 {
		return nil, &CiphertextTooShortError{Length: len(value)}
	}
	messageVersion, err := parseVersionByte(value[0], KindSignalMessage)
	if err != nil {
		return nil, err
	}

	body := &signalMessageBody{}
	if err := body.unmarshal(value[1 : len(value)-MacLength]); err != nil {
		return nil, err
	}

	if body.ratchetKey == nil || body.counter == nil || body.ciphertext == nil {
		return nil, ErrInvalidProtobufEncoding
	}
	senderRatchetKey, err := curve.DecodePublicKey(body.ratchetKey)
	if err != nil {
		return nil, err
	}

	// Absent previous_counter decodes as zero, not as an error.
	var previousCounter uint32
	if body.previousCounter != nil {
		previousCounter = *body.previousCounter
	}

	serialized := make([]byte, len(value))
	copy(serialized, value)

	return &SignalMessage{
		messageVersion:   messageVersion,
		senderRatchetKey: senderRatchetKey,
		counter:          *body.counter,
		previousCounter:  previousCounter,
		ciphertext:       body.ciphertext,
		serialized:       serialized,
	}, nil
}

// MessageVersion returns the logical message version.
func (m *SignalMessage) MessageVersion() MessageVersion {
	return m.messageVersion
}

// SenderRatchetKey returns the sender's ephemeral ratchet key.
func (m *SignalMessage) SenderRatchetKey() *curve.PublicKey {
	return m.senderRatchetKey
}

// Counter returns the message counter within the current chain.
func (m *SignalMessage) Counter() uint32 {
	return m.counter
}

// PreviousCounter returns the message counter of the previous chain.
func (m *SignalMessage) PreviousCounter() uint32 {
	return m.previousCounter
}

// Body returns the encrypted payload.
func (m *SignalMessage) Body() []byte {
	return m.ciphertext
}

// Serialized returns the cached wire bytes. Callers must treat the slice
// as read-only.
func (m *SignalMessage) Serialized() []byte {
	return m.serialized
}

// VerifyMAC recomputes the tag over the cached wire bytes and compares it
// in constant time against the stored tag. A mismatch reports false, not an
// error; an error means the check could not run at all.
func (m *SignalMessage) VerifyMAC(senderIdentityKey, receiverIdentityKey identity.Key, macKey []byte) (bool, error) {
	macOffset := len(m.serialized) - MacLength
	ourMAC, err := computeMAC(senderIdentityKey, receiverIdentityKey, macKey, m.serialized[:macOffset])
	if err != nil {
		return false, err
	}
	theirMAC := m.serialized[macOffset:]
	if subtle.ConstantTimeCompare(ourMAC, theirMAC) != 1 {
		logger.Error("bad MAC on signal message",
			zap.String("their_mac", hex.EncodeToString(theirMAC)),
			zap.String("our_mac", hex.EncodeToString(ourMAC)))
		return false, nil
	}
	return true, nil
}

func (m *SignalMessage) MessageType() CiphertextMessageType {
	return WhisperType
}

func (m *SignalMessage) ciphertextMessage() {}
