package pwire

import (
	"encoding/binary"
	"fmt"
)

// ParcelKind tells the parser which wire layout to expect. The kind is
// session context tracked by the caller (header seen or not per message id),
// it is never guessed from the bytes themselves.
type ParcelKind int

const (
	// HeaderParcelKind is the first parcel of a message, index 0. It carries
	// the total parcel count, the integrity code and the flags byte.
	HeaderParcelKind ParcelKind = iota

	// DataParcelKind carries one payload slice at index 1 or above.
	DataParcelKind
)

// String helps logging the ParcelKind.
func (kind ParcelKind) String() string {
	if kind == HeaderParcelKind {
		return "header"
	}
	return "data"
}

// Parcel is the wire unit of the protocol.
//
// Header layout: [messageID:2][totalParcels:2 BE][integrityCode:4 BE][flags:1][payload...]
// Data layout:   [messageID:2][parcelIndex:2 BE][payload...]
type Parcel struct {
	MessageID     string
	ParcelIndex   uint16
	TotalParcels  uint16 // header only
	IntegrityCode uint32 // header only
	Flags         uint8  // header only
	Payload       []byte
}

// Kind reports the wire layout of this parcel. Index 0 is reserved for the
// header parcel.
func (par *Parcel) Kind() ParcelKind {
	if par.ParcelIndex == 0 {
		return HeaderParcelKind
	}
	return DataParcelKind
}

// Capacity returns the payload room for this parcel's kind.
func (par *Parcel) Capacity() int {
	if par.Kind() == HeaderParcelKind {
		return HeaderPayloadCapacity
	}
	return DataPayloadCapacity
}

// Algorithm extracts the compression algorithm id from the header flags.
func (par *Parcel) Algorithm() CompressionAlgorithm {
	return CompressionAlgorithm(par.Flags & CompressionAlgorithmMask)
}

// Serialize encodes the parcel into transport-ready bytes. Payloads over the
// kind's capacity are rejected loudly, silent truncation would corrupt the
// reassembled message.
func (par *Parcel) Serialize() ([]byte, error) {

	if err := validateMessageID(par.MessageID); err != nil {
		return nil, err
	}

	if len(par.Payload) > par.Capacity() {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadExceedsCapacity, len(par.Payload), par.Capacity())
	}

	if par.Kind() == HeaderParcelKind {
		if par.TotalParcels == 0 {
			return nil, ErrZeroTotalParcels
		}

		buffer := make([]byte, HeaderParcelOverhead, HeaderParcelOverhead+len(par.Payload))
		copy(buffer[0:MessageIDLength], par.MessageID)
		binary.BigEndian.PutUint16(buffer[2:4], par.TotalParcels)
		binary.BigEndian.PutUint32(buffer[4:8], par.IntegrityCode)
		buffer[8] = par.Flags

		return append(buffer, par.Payload...), nil
	}

	buffer := make([]byte, DataParcelOverhead, DataParcelOverhead+len(par.Payload))
	copy(buffer[0:MessageIDLength], par.MessageID)
	binary.BigEndian.PutUint16(buffer[2:4], par.ParcelIndex)

	return append(buffer, par.Payload...), nil
}

// ParseParcel decodes one received buffer using the explicit kind hint from
// the session layer. Malformed buffers are framing errors, the caller should
// discard them silently and let the missing-parcel mechanism recover.
func ParseParcel(data []byte, kind ParcelKind) (*Parcel, error) {

	if kind == HeaderParcelKind {
		if len(data) < HeaderParcelOverhead {
			return nil, fmt.Errorf("%w: %d < %d", ErrParcelTooShort, len(data), HeaderParcelOverhead)
		}

		messageID := string(data[0:MessageIDLength])
		if err := validateMessageID(messageID); err != nil {
			return nil, err
		}

		totalParcels := binary.BigEndian.Uint16(data[2:4])
		if totalParcels == 0 {
			return nil, ErrZeroTotalParcels
		}

		payload := make([]byte, len(data)-HeaderParcelOverhead)
		copy(payload, data[HeaderParcelOverhead:])

		return &Parcel{
			MessageID:     messageID,
			ParcelIndex:   0,
			TotalParcels:  totalParcels,
			IntegrityCode: binary.BigEndian.Uint32(data[4:8]),
			Flags:         data[8],
			Payload:       payload,
		}, nil
	}

	if len(data) < DataParcelOverhead {
		return nil, fmt.Errorf("%w: %d < %d", ErrParcelTooShort, len(data), DataParcelOverhead)
	}

	messageID := string(data[0:MessageIDLength])
	if err := validateMessageID(messageID); err != nil {
		return nil, err
	}

	parcelIndex := binary.BigEndian.Uint16(data[2:4])
	if parcelIndex == 0 {
		return nil, ErrReservedParcelIndex
	}

	payload := make([]byte, len(data)-DataParcelOverhead)
	copy(payload, data[DataParcelOverhead:])

	return &Parcel{
		MessageID:   messageID,
		ParcelIndex: parcelIndex,
		Payload:     payload,
	}, nil
}

func validateMessageID(messageID string) error {

	if len(messageID) != MessageIDLength {
		return fmt.Errorf("%w: got %d bytes", ErrBadMessageID, len(messageID))
	}

	for i := 0; i < len(messageID); i++ {
		if messageID[i] < 0x20 || messageID[i] > 0x7E {
			return fmt.Errorf("%w: non-printable byte 0x%02X", ErrBadMessageID, messageID[i])
		}
	}

	return nil
}
