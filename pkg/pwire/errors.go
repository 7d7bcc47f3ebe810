package pwire

import "errors"

var (
	// ErrParcelTooShort is returned when a buffer is smaller than the framing
	// overhead of the expected parcel kind.
	// you can check for this error with errors.Is
	ErrParcelTooShort = errors.New("buffer is shorter than the parcel framing overhead")

	// ErrBadMessageID is returned when a message id is not exactly two
	// printable ASCII characters.
	ErrBadMessageID = errors.New("message id must be two printable characters")

	// ErrReservedParcelIndex is returned when a data parcel claims index 0,
	// which is reserved for header parcels.
	ErrReservedParcelIndex = errors.New("parcel index 0 is reserved for the header parcel")

	// ErrZeroTotalParcels is returned when a header parcel declares a total
	// parcel count of zero.
	ErrZeroTotalParcels = errors.New("header declares zero total parcels")

	// ErrPayloadExceedsCapacity is returned when a parcel payload is larger
	// than its kind allows. This is a splitter bug, never truncate.
	ErrPayloadExceedsCapacity = errors.New("parcel payload exceeds the capacity for its kind")

	// ErrMessageTooLarge is returned when a payload cannot be framed within
	// the uint16 total-parcel budget.
	ErrMessageTooLarge = errors.New("payload too large to frame as parcels")

	// ErrUnknownCompression is returned when the flags nibble carries a
	// reserved compression algorithm id.
	ErrUnknownCompression = errors.New("unknown compression algorithm id")

	// ErrCorruptCompressedData is returned when a compressed stream cannot be
	// decompressed. Retransmission will not fix this, treat it as fatal.
	ErrCorruptCompressedData = errors.New("compressed data is corrupt")

	// ErrChecksumMismatch is returned when an assembled message does not
	// match the integrity code declared by its header.
	ErrChecksumMismatch = errors.New("assembled payload does not match the declared integrity code")

	// ErrMessageIncomplete is returned when Assemble is called before every
	// parcel index has been received.
	ErrMessageIncomplete = errors.New("message is missing parcels")

	// ErrParcelIndexOutOfRange is returned when a parcel index is not below
	// the total declared by the header.
	ErrParcelIndexOutOfRange = errors.New("parcel index is outside the declared total")

	// ErrRetryLimitReached is returned when a send is abandoned after the
	// configured retransmission budget is spent.
	ErrRetryLimitReached = errors.New("retry limit reached for message")

	// ErrMessageIDCollision is returned when a fresh message id could not be
	// found for a new outgoing message.
	ErrMessageIDCollision = errors.New("could not generate an unused message id")

	// ErrSenderShutdown is returned when work is handed to a sender that has
	// already been shut down.
	ErrSenderShutdown = errors.New("sender has been shut down")
)
