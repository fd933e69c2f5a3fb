package protocol

// CiphertextMessageType is the wire-type discriminant outer envelope and
// transport layers use to route a ciphertext message.
type CiphertextMessageType uint8

// Discriminant values. These line up with the outer envelope's type space
// (older kinds intentionally do not) and must not be renumbered.
const (
	WhisperType   CiphertextMessageType = 2
	PreKeyType    CiphertextMessageType = 3
	SenderKeyType CiphertextMessageType = 7
)

func (t CiphertextMessageType) String() string {
	switch t {
	case WhisperType:
		return "whisper"
	case PreKeyType:
		return "prekey"
	case SenderKeyType:
		return "senderkey"
	default:
		return "unknown"
	}
}

// CiphertextMessage is the closed union of the three message kinds that
// travel as opaque ciphertext: SignalMessage, PreKeySignalMessage, and
// SenderKeyMessage. It lets transport code carry any of them uniformly.
//
// The interface is sealed; no type outside this package can implement it.
// SenderKeyDistributionMessage is a control message, not ciphertext, and is
// deliberately not a member.
type CiphertextMessage interface {
	// MessageType returns the stable wire-type discriminant.
	MessageType() CiphertextMessageType

	// Serialized returns the cached wire bytes of the held message.
	Serialized() []byte

	ciphertextMessage()
}

var (
	_ CiphertextMessage = (*SignalMessage)(nil)
	_ CiphertextMessage = (*PreKeySignalMessage)(nil)
	_ CiphertextMessage = (*SenderKeyMessage)(nil)
)
