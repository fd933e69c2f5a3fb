package protocol

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/openratchet/protocol/pkg/identity"
)

const (
	// MacLength is the truncated HMAC tag length appended to a
	// SignalMessage.
	MacLength = 8

	// MacKeyLength is the required MAC key length.
	MacKeyLength = 32
)

// computeMAC keys HMAC-SHA256 with macKey and feeds it the serialized
// sender identity, the serialized receiver identity, and the message bytes,
// truncating the output to MacLength.
func computeMAC(senderIdentityKey, receiverIdentityKey identity.Key, macKey, message []byte) ([]byte, error) {
	if len(macKey) != MacKeyLength {
		return nil, &InvalidMacKeyLengthError{Length: len(macKey)}
	}

	mac := hmac.New(sha256.New, macKey)
	mac.Write(senderIdentityKey.Serialize())
	mac.Write(receiverIdentityKey.Serialize())
	mac.Write(message)
	return mac.Sum(nil)[:MacLength], nil
}
