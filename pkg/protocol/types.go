package protocol

// PreKeyID identifies a one-time pre-key.
type PreKeyID uint32

// SignedPreKeyID identifies a signed pre-key.
type SignedPreKeyID uint32

// DeviceID is the registration identifier of a device.
type DeviceID uint32
