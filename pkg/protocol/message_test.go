package protocol

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/openratchet/protocol/pkg/curve"
	"github.com/openratchet/protocol/pkg/identity"
)

type signalMessageFixture struct {
	message          *SignalMessage
	macKey           []byte
	senderIdentity   identity.Key
	receiverIdentity identity.Key
}

func createSignalMessage(t *testing.T) *signalMessageFixture {
	t.Helper()

	macKey := make([]byte, MacKeyLength)
	if _, err := rand.Read(macKey); err != nil {
		t.Fatalf("rand.Read() error = %v", err)
	}
	ciphertext := make([]byte, 20)
	if _, err := rand.Read(ciphertext); err != nil {
		t.Fatalf("rand.Read() error = %v", err)
	}

	ratchetPair, err := curve.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	senderIdentity, err := identity.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	receiverIdentity, err := identity.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	message, err := NewSignalMessage(
		CurrentMessageVersion(),
		macKey,
		ratchetPair.PublicKey,
		42,
		41,
		ciphertext,
		senderIdentity.IdentityKey(),
		receiverIdentity.IdentityKey(),
	)
	if err != nil {
		t.Fatalf("NewSignalMessage() error = %v", err)
	}

	return &signalMessageFixture{
		message:          message,
		macKey:           macKey,
		senderIdentity:   senderIdentity.IdentityKey(),
		receiverIdentity: receiverIdentity.IdentityKey(),
	}
}

func assertSignalMessagesEqual(t *testing.T, m1, m2 *SignalMessage) {
	t.Helper()

	if m1.MessageVersion() != m2.MessageVersion() {
		t.Errorf("MessageVersion = %d, want %d", m2.MessageVersion(), m1.MessageVersion())
	}
	if !m1.SenderRatchetKey().Equal(m2.SenderRatchetKey()) {
		t.Error("SenderRatchetKey mismatch")
	}
	if m1.Counter() != m2.Counter() {
		t.Errorf("Counter = %d, want %d", m2.Counter(), m1.Counter())
	}
	if m1.PreviousCounter() != m2.PreviousCounter() {
		t.Errorf("PreviousCounter = %d, want %d", m2.PreviousCounter(), m1.PreviousCounter())
	}
	if !bytes.Equal(m1.Body(), m2.Body()) {
		t.Error("Body mismatch")
	}
	if !bytes.Equal(m1.Serialized(), m2.Serialized()) {
		t.Error("Serialized mismatch")
	}
}

func TestSignalMessageRoundTrip(t *testing.T) {
	fixture := createSignalMessage(t)

	parsed, err := ParseSignalMessage(fixture.message.Serialized())
	if err != nil {
		t.Fatalf("ParseSignalMessage() error = %v", err)
	}
	assertSignalMessagesEqual(t, fixture.message, parsed)

	if parsed.Counter() != 42 {
		t.Errorf("Counter = %d, want 42", parsed.Counter())
	}
	if parsed.PreviousCounter() != 41 {
		t.Errorf("PreviousCounter = %d, want 41", parsed.PreviousCounter())
	}

	ok, err := parsed.VerifyMAC(fixture.senderIdentity, fixture.receiverIdentity, fixture.macKey)
	if err != nil {
		t.Fatalf("VerifyMAC() error = %v", err)
	}
	if !ok {
		t.Error("VerifyMAC() = false for untampered message")
	}
}

func TestSignalMessageMACDetectsTampering(t *testing.T) {
	fixture := createSignalMessage(t)
	serialized := fixture.message.Serialized()

	// Every single-bit flip past the version byte must either fail to
	// parse or fail MAC verification. At least one flip has to reach the
	// verification path for the test to mean anything.
	verified := 0
	for i := 1; i < len(serialized); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), serialized...)
			tampered[i] ^= 1 << bit

			parsed, err := ParseSignalMessage(tampered)
			if err != nil {
				continue
			}
			ok, err := parsed.VerifyMAC(fixture.senderIdentity, fixture.receiverIdentity, fixture.macKey)
			if err != nil {
				t.Fatalf("VerifyMAC() error = %v", err)
			}
			if ok {
				t.Fatalf("VerifyMAC() = true after flipping bit %d of byte %d", bit, i)
			}
			verified++
		}
	}
	if verified == 0 {
		t.Fatal("no tampered message reached MAC verification")
	}
}

func TestSignalMessageWrongIdentityFailsMAC(t *testing.T) {
	fixture := createSignalMessage(t)

	other, err := identity.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	ok, err := fixture.message.VerifyMAC(other.IdentityKey(), fixture.receiverIdentity, fixture.macKey)
	if err != nil {
		t.Fatalf("VerifyMAC() error = %v", err)
	}
	if ok {
		t.Error("VerifyMAC() = true under the wrong sender identity")
	}
}

func TestSignalMessageMacKeyLength(t *testing.T) {
	fixture := createSignalMessage(t)

	shortKey := make([]byte, 31)
	_, err := fixture.message.VerifyMAC(fixture.senderIdentity, fixture.receiverIdentity, shortKey)
	var invalidLength *InvalidMacKeyLengthError
	if !errors.As(err, &invalidLength) {
		t.Fatalf("VerifyMAC() error = %v, want InvalidMacKeyLengthError", err)
	}
	if invalidLength.Length != 31 {
		t.Errorf("Length = %d, want 31", invalidLength.Length)
	}

	ratchetPair, err := curve.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	_, err = NewSignalMessage(
		CurrentMessageVersion(), shortKey, ratchetPair.PublicKey, 1, 0, []byte("body"),
		fixture.senderIdentity, fixture.receiverIdentity,
	)
	if !errors.As(err, &invalidLength) {
		t.Fatalf("NewSignalMessage() error = %v, want InvalidMacKeyLengthError", err)
	}
}

func TestSignalMessageTooShort(t *testing.T) {
	for length := 0; length <= MacLength; length++ {
		buf := bytes.Repeat([]byte{0x33}, length)
		_, err := ParseSignalMessage(buf)
		var tooShort *CiphertextTooShortError
		if !errors.As(err, &tooShort) {
			t.Fatalf("ParseSignalMessage(len %d) error = %v, want CiphertextTooShortError", length, err)
		}
		if tooShort.Length != length {
			t.Errorf("Length = %d, want %d", tooShort.Length, length)
		}
	}
}

func TestSignalMessageVersionRejection(t *testing.T) {
	fixture := createSignalMessage(t)

	legacy := append([]byte(nil), fixture.message.Serialized()...)
	legacy[0] = packVersionByte(MessageVersion2)
	_, err := ParseSignalMessage(legacy)
	var legacyErr *LegacyVersionError
	if !errors.As(err, &legacyErr) {
		t.Fatalf("ParseSignalMessage() error = %v, want LegacyVersionError", err)
	}

	future := append([]byte(nil), fixture.message.Serialized()...)
	future[0] = (4 << 4) | CiphertextCurrentVersion
	_, err = ParseSignalMessage(future)
	var unrecognizedErr *UnrecognizedVersionError
	if !errors.As(err, &unrecognizedErr) {
		t.Fatalf("ParseSignalMessage() error = %v, want UnrecognizedVersionError", err)
	}
}

func TestSignalMessageMandatoryFields(t *testing.T) {
	ratchetPair, err := curve.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	counter := uint32(7)

	tests := []struct {
		name string
		body *signalMessageBody
	}{
		{
			name: "missing ciphertext",
			body: &signalMessageBody{ratchetKey: ratchetPair.PublicKey.Serialize(), counter: &counter},
		},
		{
			name: "missing counter",
			body: &signalMessageBody{ratchetKey: ratchetPair.PublicKey.Serialize(), ciphertext: []byte("ct")},
		},
		{
			name: "missing ratchet key",
			body: &signalMessageBody{counter: &counter, ciphertext: []byte("ct")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.body.marshal()
			value := make([]byte, 1+len(encoded)+MacLength)
			value[0] = packVersionByte(CurrentMessageVersion())
			copy(value[1:], encoded)

			_, err := ParseSignalMessage(value)
			if !errors.Is(err, ErrInvalidProtobufEncoding) {
				t.Errorf("ParseSignalMessage() error = %v, want ErrInvalidProtobufEncoding", err)
			}
		})
	}
}

func TestSignalMessageAbsentPreviousCounter(t *testing.T) {
	ratchetPair, err := curve.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	counter := uint32(9)
	body := &signalMessageBody{
		ratchetKey: ratchetPair.PublicKey.Serialize(),
		counter:    &counter,
		ciphertext: []byte("ct"),
	}
	encoded := body.marshal()
	value := make([]byte, 1+len(encoded)+MacLength)
	value[0] = packVersionByte(CurrentMessageVersion())
	copy(value[1:], encoded)

	parsed, err := ParseSignalMessage(value)
	if err != nil {
		t.Fatalf("ParseSignalMessage() error = %v", err)
	}
	if parsed.PreviousCounter() != 0 {
		t.Errorf("PreviousCounter = %d, want 0", parsed.PreviousCounter())
	}
}

func TestSignalMessageMalformedBody(t *testing.T) {
	// A truncated varint in the body is a codec failure, not a missing
	// field.
	value := []byte{packVersionByte(CurrentMessageVersion()), 0x10, 0x80}
	value = append(value, make([]byte, MacLength)...)

	_, err := ParseSignalMessage(value)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("ParseSignalMessage() error = %v, want DecodeError", err)
	}
}
