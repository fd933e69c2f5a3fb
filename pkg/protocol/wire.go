package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Body field numbers. These match the historical wire layouts and must not
// be renumbered.
const (
	signalFieldRatchetKey      = 1
	signalFieldCounter         = 2
	signalFieldPreviousCounter = 3
	signalFieldCiphertext      = 4

	preKeyFieldPreKeyID       = 1
	preKeyFieldBaseKey        = 2
	preKeyFieldIdentityKey    = 3
	preKeyFieldMessage        = 4
	preKeyFieldRegistrationID = 5
	preKeyFieldSignedPreKeyID = 6

	senderKeyFieldDistributionUUID = 1
	senderKeyFieldChainID          = 2
	senderKeyFieldIteration        = 3
	senderKeyFieldCiphertext       = 4

	distributionFieldDistributionUUID = 1
	distributionFieldChainID          = 2
	distributionFieldIteration        = 3
	distributionFieldChainKey         = 4
	distributionFieldSigningKey       = 5
)

// decodeBody walks one protobuf-encoded body, dispatching each field to a
// per-message handler. Unknown fields are skipped; a handler returning
// false means the field number is known but arrived with the wrong wire
// type, which is a decode failure like any other malformed input.
func decodeBody(data []byte, handle func(num protowire.Number, typ protowire.Type, data []byte) (bool, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return &DecodeError{cause: protowire.ParseError(n)}
		}
		data = data[n:]

		known, err := handle(num, typ, data)
		if err != nil {
			return err
		}
		if !known {
			return &DecodeError{cause: fmt.Errorf("field %d: unexpected wire type %d", num, typ)}
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return &DecodeError{cause: protowire.ParseError(n)}
		}
		data = data[n:]
	}
	return nil
}

// consumeUint32 reads a varint field as uint32.
func consumeUint32(data []byte) (uint32, error) {
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, &DecodeError{cause: protowire.ParseError(n)}
	}
	return uint32(v), nil
}

// consumeBytes reads a length-delimited field and copies it out of the
// input buffer.
func consumeBytes(data []byte) ([]byte, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, &DecodeError{cause: protowire.ParseError(n)}
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// signalMessageBody is the structured body of a SignalMessage. Pointer
// fields track wire presence.
type signalMessageBody struct {
	ratchetKey      []byte
	counter         *uint32
	previousCounter *uint32
	ciphertext      []byte
}

func (b *signalMessageBody) marshal() []byte {
	var out []byte
	if b.ratchetKey != nil {
		out = protowire.AppendTag(out, signalFieldRatchetKey, protowire.BytesType)
		out = protowire.AppendBytes(out, b.ratchetKey)
	}
	if b.counter != nil {
		out = protowire.AppendTag(out, signalFieldCounter, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*b.counter))
	}
	if b.previousCounter != nil {
		out = protowire.AppendTag(out, signalFieldPreviousCounter, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*b.previousCounter))
	}
	if b.ciphertext != nil {
		out = protowire.AppendTag(out, signalFieldCiphertext, protowire.BytesType)
		out = protowire.AppendBytes(out, b.ciphertext)
	}
	return out
}

func (b *signalMessageBody) unmarshal(data []byte) error {
	return decodeBody(data, func(num protowire.Number, typ protowire.Type, data []byte) (bool, error) {
		switch num {
		case signalFieldRatchetKey:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.ratchetKey = v
		case signalFieldCounter:
			if typ != protowire.VarintType {
				return false, nil
			}
			v, err := consumeUint32(data)
			if err != nil {
				return true, err
			}
			b.counter = &v
		case signalFieldPreviousCounter:
			if typ != protowire.VarintType {
				return false, nil
			}
			v, err := consumeUint32(data)
			if err != nil {
				return true, err
			}
			b.previousCounter = &v
		case signalFieldCiphertext:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.ciphertext = v
		}
		return true, nil
	})
}

// preKeyMessageBody is the structured body of a PreKeySignalMessage.
type preKeyMessageBody struct {
	preKeyID       *uint32
	baseKey        []byte
	identityKey    []byte
	message        []byte
	registrationID *uint32
	signedPreKeyID *uint32
}

func (b *preKeyMessageBody) marshal() []byte {
	var out []byte
	if b.preKeyID != nil {
		out = protowire.AppendTag(out, preKeyFieldPreKeyID, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*b.preKeyID))
	}
	if b.baseKey != nil {
		out = protowire.AppendTag(out, preKeyFieldBaseKey, protowire.BytesType)
		out = protowire.AppendBytes(out, b.baseKey)
	}
	if b.identityKey != nil {
		out = protowire.AppendTag(out, preKeyFieldIdentityKey, protowire.BytesType)
		out = protowire.AppendBytes(out, b.identityKey)
	}
	if b.message != nil {
		out = protowire.AppendTag(out, preKeyFieldMessage, protowire.BytesType)
		out = protowire.AppendBytes(out, b.message)
	}
	if b.registrationID != nil {
		out = protowire.AppendTag(out, preKeyFieldRegistrationID, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*b.registrationID))
	}
	if b.signedPreKeyID != nil {
		out = protowire.AppendTag(out, preKeyFieldSignedPreKeyID, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*b.signedPreKeyID))
	}
	return out
}

func (b *preKeyMessageBody) unmarshal(data []byte) error {
	return decodeBody(data, func(num protowire.Number, typ protowire.Type, data []byte) (bool, error) {
		switch num {
		case preKeyFieldPreKeyID:
			if typ != protowire.VarintType {
				return false, nil
			}
			v, err := consumeUint32(data)
			if err != nil {
				return true, err
			}
			b.preKeyID = &v
		case preKeyFieldBaseKey:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.baseKey = v
		case preKeyFieldIdentityKey:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.identityKey = v
		case preKeyFieldMessage:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.message = v
		case preKeyFieldRegistrationID:
			if typ != protowire.VarintType {
				return false, nil
			}
			v, err := consumeUint32(data)
			if err != nil {
				return true, err
			}
			b.registrationID = &v
		case preKeyFieldSignedPreKeyID:
			if typ != protowire.VarintType {
				return false, nil
			}
			v, err := consumeUint32(data)
			if err != nil {
				return true, err
			}
			b.signedPreKeyID = &v
		}
		return true, nil
	})
}

// senderKeyMessageBody is the structured body of a SenderKeyMessage.
type senderKeyMessageBody struct {
	distributionUUID []byte
	chainID          *uint32
	iteration        *uint32
	ciphertext       []byte
}

func (b *senderKeyMessageBody) marshal() []byte {
	var out []byte
	if b.distributionUUID != nil {
		out = protowire.AppendTag(out, senderKeyFieldDistributionUUID, protowire.BytesType)
		out = protowire.AppendBytes(out, b.distributionUUID)
	}
	if b.chainID != nil {
		out = protowire.AppendTag(out, senderKeyFieldChainID, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*b.chainID))
	}
	if b.iteration != nil {
		out = protowire.AppendTag(out, senderKeyFieldIteration, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*b.iteration))
	}
	if b.ciphertext != nil {
		out = protowire.AppendTag(out, senderKeyFieldCiphertext, protowire.BytesType)
		out = protowire.AppendBytes(out, b.ciphertext)
	}
	return out
}

func (b *senderKeyMessageBody) unmarshal(data []byte) error {
	return decodeBody(data, func(num protowire.Number, typ protowire.Type, data []byte) (bool, error) {
		switch num {
		case senderKeyFieldDistributionUUID:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.distributionUUID = v
		case senderKeyFieldChainID:
			if typ != protowire.VarintType {
				return false, nil
			}
			v, err := consumeUint32(data)
			if err != nil {
				return true, err
			}
			b.chainID = &v
		case senderKeyFieldIteration:
			if typ != protowire.VarintType {
				return false, nil
			}
			v, err := consumeUint32(data)
			if err != nil {
				return true, err
			}
			b.iteration = &v
		case senderKeyFieldCiphertext:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.ciphertext = v
		}
		return true, nil
	})
}

// distributionMessageBody is the structured body of a
// SenderKeyDistributionMessage.
type distributionMessageBody struct {
	distributionUUID []byte
	chainID          *uint32
	iteration        *uint32
	chainKey         []byte
	signingKey       []byte
}

func (b *distributionMessageBody) marshal() []byte {
	var out []byte
	if b.distributionUUID != nil {
		out = protowire.AppendTag(out, distributionFieldDistributionUUID, protowire.BytesType)
		out = protowire.AppendBytes(out, b.distributionUUID)
	}
	if b.chainID != nil {
		out = protowire.AppendTag(out, distributionFieldChainID, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*b.chainID))
	}
	if b.iteration != nil {
		out = protowire.AppendTag(out, distributionFieldIteration, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(*b.iteration))
	}
	if b.chainKey != nil {
		out = protowire.AppendTag(out, distributionFieldChainKey, protowire.BytesType)
		out = protowire.AppendBytes(out, b.chainKey)
	}
	if b.signingKey != nil {
		out = protowire.AppendTag(out, distributionFieldSigningKey, protowire.BytesType)
		out = protowire.AppendBytes(out, b.signingKey)
	}
	return out
}

func (b *distributionMessageBody) unmarshal(data []byte) error {
	return decodeBody(data, func(num protowire.Number, typ protowire.Type, data []byte) (bool, error) {
		switch num {
		case distributionFieldDistributionUUID:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.distributionUUID = v
		case distributionFieldChainID:
			if typ != protowire.VarintType {
				return false, nil
			}
			v, err := consumeUint32(data)
			if err != nil {
				return true, err
			}
			b.chainID = &v
		case distributionFieldIteration:
			if typ != protowire.VarintType {
				return false, nil
			}
			v, err := consumeUint32(data)
			if err != nil {
				return true, err
			}
			b.iteration = &v
		case distributionFieldChainKey:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.chainKey = v
		case distributionFieldSigningKey:
			if typ != protowire.BytesType {
				return false, nil
			}
			v, err := consumeBytes(data)
			if err != nil {
				return true, err
			}
			b.signingKey = v
		}
		return true, nil
	})
}
