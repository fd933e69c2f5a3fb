package protocol

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/openratchet/protocol/pkg/curve"
	"github.com/openratchet/protocol/pkg/identity"
)

func TestPreKeySignalMessageRoundTrip(t *testing.T) {
	oneTimeID := PreKeyID(12345)

	tests := []struct {
		name     string
		preKeyID *PreKeyID
	}{
		{name: "without one-time pre-key", preKeyID: nil},
		{name: "with one-time pre-key", preKeyID: &oneTimeID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := createSignalMessage(t)
			basePair, err := curve.GenerateKeyPair(rand.Reader)
			if err != nil {
				t.Fatalf("GenerateKeyPair() error = %v", err)
			}
			identityPair, err := identity.GenerateKeyPair(rand.Reader)
			if err != nil {
				t.Fatalf("GenerateKeyPair() error = %v", err)
			}

			message, err := NewPreKeySignalMessage(
				CurrentMessageVersion(),
				365,
				tt.preKeyID,
				97,
				basePair.PublicKey,
				identityPair.IdentityKey(),
				fixture.message,
			)
			if err != nil {
				t.Fatalf("NewPreKeySignalMessage() error = %v", err)
			}

			parsed, err := ParsePreKeySignalMessage(message.Serialized())
			if err != nil {
				t.Fatalf("ParsePreKeySignalMessage() error = %v", err)
			}

			if parsed.MessageVersion() != message.MessageVersion() {
				t.Errorf("MessageVersion = %d, want %d", parsed.MessageVersion(), message.MessageVersion())
			}
			if parsed.RegistrationID() != 365 {
				t.Errorf("RegistrationID = %d, want 365", parsed.RegistrationID())
			}
			if parsed.SignedPreKeyID() != 97 {
				t.Errorf("SignedPreKeyID = %d, want 97", parsed.SignedPreKeyID())
			}
			if tt.preKeyID == nil {
				if parsed.PreKeyID() != nil {
					t.Errorf("PreKeyID = %d, want nil", *parsed.PreKeyID())
				}
			} else {
				if parsed.PreKeyID() == nil || *parsed.PreKeyID() != *tt.preKeyID {
					t.Errorf("PreKeyID = %v, want %d", parsed.PreKeyID(), *tt.preKeyID)
				}
			}
			if !parsed.BaseKey().Equal(message.BaseKey()) {
				t.Error("BaseKey mismatch")
			}
			if !parsed.IdentityKey().Equal(message.IdentityKey()) {
				t.Error("IdentityKey mismatch")
			}
			assertSignalMessagesEqual(t, message.Message(), parsed.Message())
			if !bytes.Equal(parsed.Serialized(), message.Serialized()) {
				t.Error("Serialized mismatch")
			}
		})
	}
}

func TestPreKeySignalMessageTooShort(t *testing.T) {
	_, err := ParsePreKeySignalMessage(nil)
	var tooShort *CiphertextTooShortError
	if !errors.As(err, &tooShort) {
		t.Fatalf("ParsePreKeySignalMessage() error = %v, want CiphertextTooShortError", err)
	}
	if tooShort.Length != 0 {
		t.Errorf("Length = %d, want 0", tooShort.Length)
	}
}

func TestPreKeySignalMessageVersionRejection(t *testing.T) {
	_, err := ParsePreKeySignalMessage([]byte{packVersionByte(MessageVersion2)})
	var legacyErr *LegacyVersionError
	if !errors.As(err, &legacyErr) {
		t.Fatalf("error = %v, want LegacyVersionError", err)
	}
	if legacyErr.Kind != KindPreKeySignalMessage {
		t.Errorf("Kind = %v, want %v", legacyErr.Kind, KindPreKeySignalMessage)
	}

	_, err = ParsePreKeySignalMessage([]byte{(5 << 4) | CiphertextCurrentVersion})
	var unrecognizedErr *UnrecognizedVersionError
	if !errors.As(err, &unrecognizedErr) {
		t.Fatalf("error = %v, want UnrecognizedVersionError", err)
	}
}

func TestPreKeySignalMessageMandatoryFields(t *testing.T) {
	fixture := createSignalMessage(t)
	basePair, err := curve.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	identityPair, err := identity.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	signedPreKeyID := uint32(97)

	complete := func() *preKeyMessageBody {
		return &preKeyMessageBody{
			baseKey:        basePair.PublicKey.Serialize(),
			identityKey:    identityPair.IdentityKey().Serialize(),
			message:        fixture.message.Serialized(),
			signedPreKeyID: &signedPreKeyID,
		}
	}

	tests := []struct {
		name   string
		mutate func(*preKeyMessageBody)
	}{
		{name: "missing base key", mutate: func(b *preKeyMessageBody) { b.baseKey = nil }},
		{name: "missing identity key", mutate: func(b *preKeyMessageBody) { b.identityKey = nil }},
		{name: "missing inner message", mutate: func(b *preKeyMessageBody) { b.message = nil }},
		{name: "missing signed pre-key id", mutate: func(b *preKeyMessageBody) { b.signedPreKeyID = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := complete()
			tt.mutate(body)
			encoded := body.marshal()
			value := append([]byte{packVersionByte(CurrentMessageVersion())}, encoded...)

			_, err := ParsePreKeySignalMessage(value)
			if !errors.Is(err, ErrInvalidProtobufEncoding) {
				t.Errorf("ParsePreKeySignalMessage() error = %v, want ErrInvalidProtobufEncoding", err)
			}
		})
	}
}

func TestPreKeySignalMessageAbsentRegistrationID(t *testing.T) {
	fixture := createSignalMessage(t)
	basePair, err := curve.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	identityPair, err := identity.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	signedPreKeyID := uint32(1)

	body := &preKeyMessageBody{
		baseKey:        basePair.PublicKey.Serialize(),
		identityKey:    identityPair.IdentityKey().Serialize(),
		message:        fixture.message.Serialized(),
		signedPreKeyID: &signedPreKeyID,
	}
	value := append([]byte{packVersionByte(CurrentMessageVersion())}, body.marshal()...)

	parsed, err := ParsePreKeySignalMessage(value)
	if err != nil {
		t.Fatalf("ParsePreKeySignalMessage() error = %v", err)
	}
	if parsed.RegistrationID() != 0 {
		t.Errorf("RegistrationID = %d, want 0", parsed.RegistrationID())
	}
}

func TestPreKeySignalMessageBadEmbeddedKey(t *testing.T) {
	fixture := createSignalMessage(t)
	identityPair, err := identity.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	signedPreKeyID := uint32(1)

	body := &preKeyMessageBody{
		baseKey:        []byte{0x09, 0x01, 0x02}, // unknown key type
		identityKey:    identityPair.IdentityKey().Serialize(),
		message:        fixture.message.Serialized(),
		signedPreKeyID: &signedPreKeyID,
	}
	value := append([]byte{packVersionByte(CurrentMessageVersion())}, body.marshal()...)

	_, err = ParsePreKeySignalMessage(value)
	var badType *curve.BadKeyTypeError
	if !errors.As(err, &badType) {
		t.Fatalf("ParsePreKeySignalMessage() error = %v, want BadKeyTypeError", err)
	}
}
