package pwire

const (
	// MaxParcelSize is the largest single parcel the link layer is assumed
	// to carry in one write (transport MTU).
	MaxParcelSize = 280

	// HeaderParcelOverhead is messageID(2) + totalParcels(2) + integrityCode(4) + flags(1).
	HeaderParcelOverhead = 9

	// DataParcelOverhead is messageID(2) + parcelIndex(2).
	DataParcelOverhead = 4

	// HeaderPayloadCapacity is the payload room left in a header parcel.
	HeaderPayloadCapacity = MaxParcelSize - HeaderParcelOverhead

	// DataPayloadCapacity is the payload room left in a data parcel.
	DataPayloadCapacity = MaxParcelSize - DataParcelOverhead

	// MessageIDLength is the fixed length of a wire message id.
	MessageIDLength = 2

	// MaxTotalParcels is bounded by the uint16 totalParcels field.
	MaxTotalParcels = 65535

	// MaxMessagePayloadSize is the largest post-compression payload Split can frame.
	MaxMessagePayloadSize = HeaderPayloadCapacity + (MaxTotalParcels-1)*DataPayloadCapacity
)

const (
	// CompressionAlgorithmMask selects the algorithm id from the header flags
	// byte. The high nibble is reserved.
	CompressionAlgorithmMask = uint8(0x0F)

	// DefaultCompressionMinSize is the payload size below which compression
	// is not worth the overhead.
	DefaultCompressionMinSize = 300
)

// Pacing and retry policy defaults. These are contract values consumed by the
// transport scheduler, never enforced inside the codec.
const (
	DefaultInterParcelDelayMillis       = 20
	DefaultListenWindowEveryParcels     = 10
	DefaultListenWindowMillis           = 200
	DefaultReceiptTimeoutMillis         = 5000
	DefaultMissingRequestIntervalMillis = 2000
	DefaultMaxRetryCount                = 3
	DefaultStaleTimeoutSeconds          = 60
	DefaultSweepIntervalSeconds         = 15
)
