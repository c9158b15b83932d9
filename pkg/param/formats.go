package param

// Well-known parameter-data formats for the standard PIDs this library
// implements. Parsed once at init.
var (
	// DiscUniqueBranch carries the lower and upper bounds of a discovery
	// branch probe.
	DiscUniqueBranch = MustParse("uu$")

	// DiscMute carries the responder's control field and, optionally, its
	// binding UID.
	DiscMute = MustParse("wv$")

	// DeviceInfo carries the DEVICE_INFO block. The leading literal is the
	// RDM protocol version, 1.0.
	DeviceInfo = MustParse("#0100hwwdwbbwwb$")

	// Label carries an ASCII label of up to 32 characters, used by
	// DEVICE_LABEL, SOFTWARE_VERSION_LABEL and similar parameters.
	Label = MustParse("a$")

	// Word carries a single 16-bit value, used by DMX_START_ADDRESS, NACK
	// reasons and ACK timer payloads.
	Word = MustParse("w$")

	// Byte carries a single 8-bit value, used by IDENTIFY_DEVICE.
	Byte = MustParse("b$")
)
