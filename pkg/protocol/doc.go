// Package protocol implements the ciphertext wire format and message
// authentication for a Double-Ratchet / sender-key messaging protocol.
//
// The package defines the four messages clients exchange, their byte-exact
// encoding and parsing, and the authentication tags that bind each message
// to the session or group that produced it.
//
// # Message Types
//
// Three message kinds travel as opaque ciphertext and are grouped by the
// CiphertextMessage union:
//   - SignalMessage: a pairwise Double-Ratchet message, authenticated by a
//     truncated HMAC-SHA256 tag over the sender and receiver identities.
//   - PreKeySignalMessage: a session-establishing envelope around a
//     SignalMessage, carrying the pre-key material the receiver needs.
//   - SenderKeyMessage: a group message, authenticated by a signature
//     verifiable with the group's per-distribution signing key.
//
// SenderKeyDistributionMessage is a separate control message that conveys a
// fresh group sending chain to group members. It is not ciphertext and
// carries no authentication tag of its own; it must be delivered over an
// already-authenticated channel.
//
// # Wire Format
//
// Every message starts with a single version byte: the logical message
// version in the high nibble and the library's current version in the low
// nibble. The structured body that follows uses the protobuf wire format.
// MAC-bearing and signature-bearing messages append their tag after the
// body:
//
//	version_byte | body | mac[8]        (SignalMessage)
//	version_byte | body                 (PreKeySignalMessage)
//	version_byte | body | signature[64] (SenderKeyMessage)
//	version_byte | body                 (SenderKeyDistributionMessage)
//
// Only the current version (3) is accepted on decode. Older version nibbles
// are rejected as legacy, newer ones as unrecognized.
//
// # Parsing and Authentication
//
// Each message type is an immutable value constructed either from fields or
// by parsing raw bytes. The exact bytes a message was built or parsed from
// are cached and are the authoritative input for MAC and signature checks;
// verification never re-encodes parsed fields, because re-encoding is not
// guaranteed to reproduce the original bytes.
//
// Parsing performs no authentication. Callers verify explicitly once they
// hold the contextual keys:
//
//	msg, err := protocol.ParseSignalMessage(raw)
//	if err != nil {
//	    // reject this message
//	}
//	ok, err := msg.VerifyMAC(senderIdentity, receiverIdentity, macKey)
//
// All failures are values from a closed error set; parsing never panics on
// attacker-controlled input.
package protocol
