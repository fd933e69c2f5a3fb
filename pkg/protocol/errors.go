package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for payload-less failure kinds.
var (
	// ErrInvalidProtobufEncoding reports a body that decoded syntactically
	// but was missing a mandatory field or carried a fixed-length field of
	// the wrong length.
	ErrInvalidProtobufEncoding = errors.New("protobuf encoding was invalid")

	// ErrSignatureValidationFailed reports a signature that did not verify.
	ErrSignatureValidationFailed = errors.New("invalid signature detected")
)

// MessageKind names a wire message type in version-mismatch diagnostics.
type MessageKind uint8

// Message kinds.
const (
	KindSignalMessage MessageKind = iota + 1
	KindPreKeySignalMessage
	KindSenderKeyMessage
	KindSenderKeyDistributionMessage
)

func (k MessageKind) String() string {
	switch k {
	case KindSignalMessage:
		return "SignalMessage"
	case KindPreKeySignalMessage:
		return "PreKeySignalMessage"
	case KindSenderKeyMessage:
		return "SenderKeyMessage"
	case KindSenderKeyDistributionMessage:
		return "SenderKeyDistributionMessage"
	default:
		return fmt.Sprintf("MessageKind(%d)", uint8(k))
	}
}

// CiphertextTooShortError reports a buffer shorter than the structural
// minimum for its message kind.
type CiphertextTooShortError struct {
	Length int
}

func (e *CiphertextTooShortError) Error() string {
	return fmt.Sprintf("ciphertext serialized bytes were too short <%d>", e.Length)
}

// LegacyVersionError reports a version nibble below the current version.
type LegacyVersionError struct {
	Kind    MessageKind
	Version MessageVersion
}

func (e *LegacyVersionError) Error() string {
	return fmt.Sprintf("%v ciphertext version was too old <%d>", e.Kind, e.Version)
}

// UnrecognizedVersionError reports a version nibble above the current
// version.
type UnrecognizedVersionError struct {
	Kind    MessageKind
	Version MessageVersion
}

func (e *UnrecognizedVersionError) Error() string {
	return fmt.Sprintf("%v ciphertext version was unrecognized <%d>", e.Kind, e.Version)
}

// UnrecognizedMessageVersionError reports a 32-bit version field that does
// not map to a known message version.
type UnrecognizedMessageVersionError struct {
	Version uint32
}

func (e *UnrecognizedMessageVersionError) Error() string {
	return fmt.Sprintf("unrecognized message version <%d>", e.Version)
}

// InvalidMacKeyLengthError reports a MAC key that is not exactly
// MacKeyLength bytes.
type InvalidMacKeyLengthError struct {
	Length int
}

func (e *InvalidMacKeyLengthError) Error() string {
	return fmt.Sprintf("invalid MAC key length <%d>", e.Length)
}

// InvalidArgumentError reports a structurally invalid caller argument not
// covered by a more specific kind.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Reason)
}

// DecodeError reports that the structured body codec itself failed on
// malformed bytes.
type DecodeError struct {
	cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode protobuf: %v", e.cause)
}

func (e *DecodeError) Unwrap() error {
	return e.cause
}

// EncodeError reports a failure in the structured body encoder.
type EncodeError struct {
	cause error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode protobuf: %v", e.cause)
}

func (e *EncodeError) Unwrap() error {
	return e.cause
}

// CallbackError reports a failure inside an application-supplied callback.
// It carries the callback name and the opaque underlying cause for
// diagnostic chaining.
type CallbackError struct {
	Name  string
	Cause error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("error in method call '%s': %v", e.Name, e.Cause)
}

func (e *CallbackError) Unwrap() error {
	return e.Cause
}
