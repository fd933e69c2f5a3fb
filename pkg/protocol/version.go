package protocol

// CiphertextCurrentVersion is the wire version this library produces and
// the only one it accepts on decode.
const CiphertextCurrentVersion = 3

// MessageVersion is the logical version of the message chain format.
type MessageVersion uint8

// Known message versions.
const (
	// MessageVersion2 is the legacy version. It is retained so version
	// mismatches can name it; construction never produces it and decode
	// rejects it.
	MessageVersion2 MessageVersion = 2

	// MessageVersion3 is the current version.
	MessageVersion3 MessageVersion = CiphertextCurrentVersion
)

// CurrentMessageVersion returns the version new messages are built with.
func CurrentMessageVersion() MessageVersion {
	return MessageVersion3
}

// MessageVersionFromUint32 validates a generic 32-bit version field against
// the known message versions.
func MessageVersionFromUint32(value uint32) (MessageVersion, error) {
	switch value {
	case uint32(MessageVersion2):
		return MessageVersion2, nil
	case uint32(MessageVersion3):
		return MessageVersion3, nil
	default:
		return 0, &UnrecognizedMessageVersionError{Version: value}
	}
}

// packVersionByte packs the logical message version into the high nibble of
// the wire's first byte. The low nibble always carries the library's
// current version, independent of the logical version being packed.
func packVersionByte(version MessageVersion) byte {
	return (byte(version)&0xF)<<4 | CiphertextCurrentVersion
}

// parseVersionByte classifies the high nibble of the wire's first byte.
// Only the current version is accepted; kind tags the rejection.
func parseVersionByte(value byte, kind MessageKind) (MessageVersion, error) {
	version := MessageVersion(value >> 4)
	if version < CiphertextCurrentVersion {
		return 0, &LegacyVersionError{Kind: kind, Version: version}
	}
	if version > CiphertextCurrentVersion {
		return 0, &UnrecognizedVersionError{Kind: kind, Version: version}
	}
	return version, nil
}
