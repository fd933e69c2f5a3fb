package protocol

import (
	"io"

	"github.com/google/uuid"

	"github.com/openratchet/protocol/pkg/curve"
)

// ChainKeyLength is the sender chain key length carried by a distribution
// message.
const ChainKeyLength = 32

// SenderKeyMessage is a group ciphertext message.
//
// Wire layout: version_byte | body | signature[64]. The signature covers
// every serialized byte preceding it and verifies with the group's
// per-distribution public signing key.
type SenderKeyMessage struct {
	messageVersion MessageVersion
	distributionID uuid.UUID
	chainID        uint32
	iteration      uint32
	ciphertext     []byte
	serialized     []byte
}

// NewSenderKeyMessage builds and signs a group message. rand supplies the
// signature nonce.
func NewSenderKeyMessage(
	distributionID uuid.UUID,
	chainID uint32,
	iteration uint32,
	ciphertext []byte,
	rand io.Reader,
	signatureKey *curve.PrivateKey,
) (*SenderKeyMessage, error) {
	body := &senderKeyMessageBody{
		distributionUUID: distributionID[:],
		chainID:          &chainID,
		iteration:        &iteration,
		ciphertext:       append([]byte(nil), ciphertext...),
	}
	encoded := body.marshal()

	serialized := make([]byte, 1+len(encoded)+curve.SignatureLength)
	serialized[0] = packVersionByte(CurrentMessageVersion())
	copy(serialized[1:], encoded)

	signatureOffset := len(serialized) - curve.SignatureLength
	signature, err := signatureKey.Sign(rand, serialized[:signatureOffset])
	if err != nil {
		return nil, err
	}
	copy(serialized[signatureOffset:], signature)

	return &SenderKeyMessage{
		messageVersion: CurrentMessageVersion(),
		distributionID: distributionID,
		chainID:        chainID,
		iteration:      iteration,
		ciphertext:     body.ciphertext,
		serialized:     serialized,
	}, nil
}

// ParseSenderKeyMessage validates and decodes a serialized group message.
// It performs no signature check; callers verify with VerifySignature once
// they hold the distribution's signing key.
func ParseSenderKeyMessage(value []byte) (*SenderKeyMessage, error) {
	if len(value) < 1+curve.SignatureLength {
		return nil, &CiphertextTooShortError{Length: len(value)}
	}
	messageVersion, err := parseVersionByte(value[0], KindSenderKeyMessage)
	if err != nil {
		return nil, err
	}

	body := &senderKeyMessageBody{}
	if err := body.unmarshal(value[1 : len(value)-curve.SignatureLength]); err != nil {
		return nil, err
	}

	if body.distributionUUID == nil || body.chainID == nil || body.iteration == nil || body.ciphertext == nil {
		return nil, ErrInvalidProtobufEncoding
	}
	distributionID, err := uuid.FromBytes(body.distributionUUID)
	if err != nil {
		return nil, ErrInvalidProtobufEncoding
	}

	serialized := make([]byte, len(value))
	copy(serialized, value)

	return &SenderKeyMessage{
		messageVersion: messageVersion,
		distributionID: distributionID,
		chainID:        *body.chainID,
		iteration:      *body.iteration,
		ciphertext:     body.ciphertext,
		serialized:     serialized,
	}, nil
}

// MessageVersion returns the logical message version.
func (m *SenderKeyMessage) MessageVersion() MessageVersion {
	return m.messageVersion
}

// DistributionID returns the sender key distribution this message belongs
// to.
func (m *SenderKeyMessage) DistributionID() uuid.UUID {
	return m.distributionID
}

// ChainID returns the sending chain identifier.
func (m *SenderKeyMessage) ChainID() uint32 {
	return m.chainID
}

// Iteration returns the chain iteration this message was encrypted at.
func (m *SenderKeyMessage) Iteration() uint32 {
	return m.iteration
}

// Ciphertext returns the encrypted payload.
func (m *SenderKeyMessage) Ciphertext() []byte {
	return m.ciphertext
}

// Serialized returns the cached wire bytes. Callers must treat the slice
// as read-only.
func (m *SenderKeyMessage) Serialized() []byte {
	return m.serialized
}

// VerifySignature checks the trailing signature over the cached wire bytes
// with the distribution's public signing key. A cryptographic mismatch is
// ErrSignatureValidationFailed.
func (m *SenderKeyMessage) VerifySignature(signatureKey *curve.PublicKey) error {
	signatureOffset := len(m.serialized) - curve.SignatureLength
	if !signatureKey.VerifySignature(m.serialized[:signatureOffset], m.serialized[signatureOffset:]) {
		return ErrSignatureValidationFailed
	}
	return nil
}

func (m *SenderKeyMessage) MessageType() CiphertextMessageType {
	return SenderKeyType
}

func (m *SenderKeyMessage) ciphertextMessage() {}

// SenderKeyDistributionMessage is the control message that conveys a fresh
// group sending chain (chain key plus verification key) to group members.
//
// Wire layout: version_byte | body. It carries no authentication tag; trust
// comes from the channel that delivers it.
type SenderKeyDistributionMessage struct {
	messageVersion MessageVersion
	distributionID uuid.UUID
	chainID        uint32
	iteration      uint32
	chainKey       []byte
	signingKey     *curve.PublicKey
	serialized     []byte
}

// NewSenderKeyDistributionMessage builds a distribution message. chainKey
// must be exactly ChainKeyLength bytes.
func NewSenderKeyDistributionMessage(
	distributionID uuid.UUID,
	chainID uint32,
	iteration uint32,
	chainKey []byte,
	signingKey *curve.PublicKey,
) (*SenderKeyDistributionMessage, error) {
	if len(chainKey) != ChainKeyLength {
		return nil, &InvalidArgumentError{Reason: "chain key must be 32 bytes"}
	}

	body := &distributionMessageBody{
		distributionUUID: distributionID[:],
		chainID:          &chainID,
		iteration:        &iteration,
		chainKey:         append([]byte(nil), chainKey...),
		signingKey:       signingKey.Serialize(),
	}
	encoded := body.marshal()

	serialized := make([]byte, 1+len(encoded))
	serialized[0] = packVersionByte(CurrentMessageVersion())
	copy(serialized[1:], encoded)

	return &SenderKeyDistributionMessage{
		messageVersion: CurrentMessageVersion(),
		distributionID: distributionID,
		chainID:        chainID,
		iteration:      iteration,
		chainKey:       body.chainKey,
		signingKey:     signingKey,
		serialized:     serialized,
	}, nil
}

// ParseSenderKeyDistributionMessage validates and decodes a serialized
// distribution message.
func ParseSenderKeyDistributionMessage(value []byte) (*SenderKeyDistributionMessage, error) {
	// The message contains at least a signing key and a chain key.
	if len(value) < 1+ChainKeyLength+32 {
		return nil, &CiphertextTooShortError{Length: len(value)}
	}
	messageVersion, err := parseVersionByte(value[0], KindSenderKeyDistributionMessage)
	if err != nil {
		return nil, err
	}

	body := &distributionMessageBody{}
	if err := body.unmarshal(value[1:]); err != nil {
		return nil, err
	}

	if body.distributionUUID == nil || body.chainID == nil || body.iteration == nil ||
		body.chainKey == nil || body.signingKey == nil {
		return nil, ErrInvalidProtobufEncoding
	}
	if len(body.chainKey) != ChainKeyLength || len(body.signingKey) != curve.SerializedPublicKeyLength {
		return nil, ErrInvalidProtobufEncoding
	}
	distributionID, err := uuid.FromBytes(body.distributionUUID)
	if err != nil {
		return nil, ErrInvalidProtobufEncoding
	}
	signingKey, err := curve.DecodePublicKey(body.signingKey)
	if err != nil {
		return nil, err
	}

	serialized := make([]byte, len(value))
	copy(serialized, value)

	return &SenderKeyDistributionMessage{
		messageVersion: messageVersion,
		distributionID: distributionID,
		chainID:        *body.chainID,
		iteration:      *body.iteration,
		chainKey:       body.chainKey,
		signingKey:     signingKey,
		serialized:     serialized,
	}, nil
}

// MessageVersion returns the logical message version.
func (m *SenderKeyDistributionMessage) MessageVersion() MessageVersion {
	return m.messageVersion
}

// DistributionID returns the sender key distribution being announced.
func (m *SenderKeyDistributionMessage) DistributionID() uuid.UUID {
	return m.distributionID
}

// ChainID returns the sending chain identifier.
func (m *SenderKeyDistributionMessage) ChainID() uint32 {
	return m.chainID
}

// Iteration returns the chain iteration the chain key is at.
func (m *SenderKeyDistributionMessage) Iteration() uint32 {
	return m.iteration
}

// ChainKey returns the announced sender chain key.
func (m *SenderKeyDistributionMessage) ChainKey() []byte {
	return m.chainKey
}

// SigningKey returns the public key that verifies messages sent under this
// distribution.
func (m *SenderKeyDistributionMessage) SigningKey() *curve.PublicKey {
	return m.signingKey
}

// Serialized returns the cached wire bytes. Callers must treat the slice
// as read-only.
func (m *SenderKeyDistributionMessage) Serialized() []byte {
	return m.serialized
}
