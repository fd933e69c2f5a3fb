package protocol

import (
	"github.com/openratchet/protocol/pkg/curve"
	"github.com/openratchet/protocol/pkg/identity"
)

// PreKeySignalMessage is the session-establishing envelope around a
// SignalMessage. It carries the pre-key material the receiver needs to
// build the session that decrypts the inner message.
//
// Wire layout: version_byte | body. The envelope carries no authentication
// tag of its own; authentication is delegated entirely to the inner
// message's MAC.
type PreKeySignalMessage struct {
	messageVersion MessageVersion
	registrationID DeviceID
	preKeyID       *PreKeyID
	signedPreKeyID SignedPreKeyID
	baseKey        *curve.PublicKey
	identityKey    identity.Key
	message        *SignalMessage
	serialized     []byte
}

// NewPreKeySignalMessage wraps message into a pre-key envelope. preKeyID is
// nil when no one-time pre-key was used.
func NewPreKeySignalMessage(
	messageVersion MessageVersion,
	registrationID DeviceID,
	preKeyID *PreKeyID,
	signedPreKeyID SignedPreKeyID,
	baseKey *curve.PublicKey,
	identityKey identity.Key,
	message *SignalMessage,
) (*PreKeySignalMessage, error) {
	registration := uint32(registrationID)
	signedPreKey := uint32(signedPreKeyID)
	body := &preKeyMessageBody{
		baseKey:        baseKey.Serialize(),
		identityKey:    identityKey.Serialize(),
		message:        message.Serialized(),
		registrationID: &registration,
		signedPreKeyID: &signedPreKey,
	}
	if preKeyID != nil {
		id := uint32(*preKeyID)
		body.preKeyID = &id
	}
	encoded := body.marshal()

	serialized := make([]byte, 1+len(encoded))
	serialized[0] = packVersionByte(messageVersion)
	copy(serialized[1:], encoded)

	return &PreKeySignalMessage{
		messageVersion: messageVersion,
		registrationID: registrationID,
		preKeyID:       preKeyID,
		signedPreKeyID: signedPreKeyID,
		baseKey:        baseKey,
		identityKey:    identityKey,
		message:        message,
		serialized:     serialized,
	}, nil
}

// ParsePreKeySignalMessage validates and decodes a serialized pre-key
// envelope, including its inner message.
func ParsePreKeySignalMessage(value []byte) (*PreKeySignalMessage, error) {
	if len(value) == 0 {
		return nil, &CiphertextTooShortError{Length: len(value)}
	}
	messageVersion, err := parseVersionByte(value[0], KindPreKeySignalMessage)
	if err != nil {
		return nil, err
	}

	body := &preKeyMessageBody{}
	if err := body.unmarshal(value[1:]); err != nil {
		return nil, err
	}

	if body.baseKey == nil || body.identityKey == nil || body.message == nil || body.signedPreKeyID == nil {
		return nil, ErrInvalidProtobufEncoding
	}

	baseKey, err := curve.DecodePublicKey(body.baseKey)
	if err != nil {
		return nil, err
	}
	identityKey, err := identity.DecodeKey(body.identityKey)
	if err != nil {
		return nil, err
	}
	message, err := ParseSignalMessage(body.message)
	if err != nil {
		return nil, err
	}

	// Absent registration_id decodes as zero; an absent pre_key_id means no
	// one-time pre-key was used.
	var registrationID DeviceID
	if body.registrationID != nil {
		registrationID = DeviceID(*body.registrationID)
	}
	var preKeyID *PreKeyID
	if body.preKeyID != nil {
		id := PreKeyID(*body.preKeyID)
		preKeyID = &id
	}

	serialized := make([]byte, len(value))
	copy(serialized, value)

	return &PreKeySignalMessage{
		messageVersion: messageVersion,
		registrationID: registrationID,
		preKeyID:       preKeyID,
		signedPreKeyID: SignedPreKeyID(*body.signedPreKeyID),
		baseKey:        baseKey,
		identityKey:    identityKey,
		message:        message,
		serialized:     serialized,
	}, nil
}

// MessageVersion returns the logical message version.
func (m *PreKeySignalMessage) MessageVersion() MessageVersion {
	return m.messageVersion
}

// RegistrationID returns the sender device's registration identifier.
func (m *PreKeySignalMessage) RegistrationID() DeviceID {
	return m.registrationID
}

// PreKeyID returns the one-time pre-key identifier, or nil when none was
// used.
func (m *PreKeySignalMessage) PreKeyID() *PreKeyID {
	return m.preKeyID
}

// SignedPreKeyID returns the signed pre-key identifier.
func (m *PreKeySignalMessage) SignedPreKeyID() SignedPreKeyID {
	return m.signedPreKeyID
}

// BaseKey returns the sender's ephemeral base key.
func (m *PreKeySignalMessage) BaseKey() *curve.PublicKey {
	return m.baseKey
}

// IdentityKey returns the sender's public identity.
func (m *PreKeySignalMessage) IdentityKey() identity.Key {
	return m.identityKey
}

// Message returns the inner pairwise message.
func (m *PreKeySignalMessage) Message() *SignalMessage {
	return m.message
}

// Serialized returns the cached wire bytes. Callers must treat the slice
// as read-only.
func (m *PreKeySignalMessage) Serialized() []byte {
	return m.serialized
}

func (m *PreKeySignalMessage) MessageType() CiphertextMessageType {
	return PreKeyType
}

func (m *PreKeySignalMessage) ciphertextMessage() {}
