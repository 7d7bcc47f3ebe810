package pwire

import "fmt"

// Split turns an OutgoingMessage into its ordered parcel sequence: one header
// parcel followed by zero or more data parcels. Delivered in any order and
// reassembled, the sequence deterministically reconstructs the payload.
//
// Compression is attempted only when the peer advertises support and the
// payload passes ShouldCompress, and the deflated form is kept only when it
// is strictly smaller. The integrity code always covers the bytes that go on
// the wire, never the pre-compression payload.
func Split(msg *OutgoingMessage) ([]*Parcel, error) {

	dataToSend := msg.Payload
	algorithm := CompressionNone

	if msg.PeerSupportsCompression && ShouldCompress(msg.Payload) {

		compressed, err := Compress(msg.Payload, CompressionDeflate)
		if err != nil {
			return nil, err
		}

		if len(compressed) < len(msg.Payload) {
			dataToSend = compressed
			algorithm = CompressionDeflate
		}
	}

	if len(dataToSend) > MaxMessagePayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(dataToSend))
	}

	integrityCode := Checksum(dataToSend)

	headerChunkLen := len(dataToSend)
	if headerChunkLen > HeaderPayloadCapacity {
		headerChunkLen = HeaderPayloadCapacity
	}

	remaining := dataToSend[headerChunkLen:]
	totalParcels := 1 + (len(remaining)+DataPayloadCapacity-1)/DataPayloadCapacity

	parcels := make([]*Parcel, 0, totalParcels)
	parcels = append(parcels, &Parcel{
		MessageID:     msg.MessageID,
		ParcelIndex:   0,
		TotalParcels:  uint16(totalParcels),
		IntegrityCode: integrityCode,
		Flags:         uint8(algorithm),
		Payload:       dataToSend[:headerChunkLen],
	})

	for index := uint16(1); len(remaining) > 0; index++ {

		chunkLen := len(remaining)
		if chunkLen > DataPayloadCapacity {
			chunkLen = DataPayloadCapacity
		}

		parcels = append(parcels, &Parcel{
			MessageID:   msg.MessageID,
			ParcelIndex: index,
			Payload:     remaining[:chunkLen],
		})

		remaining = remaining[chunkLen:]
	}

	return parcels, nil
}
