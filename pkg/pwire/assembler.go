package pwire

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// IncomingMessage tracks the reassembly state for one message id from one
// peer. It is created from the header parcel and mutated as parcels arrive,
// all mutation and inspection is serialized by an internal lock so the radio
// callback and the assembly poller cannot race.
type IncomingMessage struct {
	MessageID             string
	SourcePeerID          string
	TotalParcels          uint16
	ExpectedIntegrityCode uint32
	Flags                 uint8

	stateLock            *sync.Mutex
	receivedParcels      map[uint16][]byte
	startedAt            time.Time
	lastParcelReceivedAt time.Time
	lastMissingRequestAt time.Time // zero while no request is outstanding
}

// NewIncomingMessage creates assembly state from a freshly received header
// parcel. A reserved compression algorithm id is rejected here, before any
// state exists, so it can never reach decompression.
func NewIncomingMessage(sourcePeerID string, header *Parcel) (*IncomingMessage, error) {

	if header.Kind() != HeaderParcelKind {
		return nil, ErrReservedParcelIndex
	}

	if !header.Algorithm().Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(header.Algorithm()))
	}

	now := time.Now().UTC()

	msg := &IncomingMessage{
		MessageID:             header.MessageID,
		SourcePeerID:          sourcePeerID,
		TotalParcels:          header.TotalParcels,
		ExpectedIntegrityCode: header.IntegrityCode,
		Flags:                 header.Flags,
		stateLock:             &sync.Mutex{},
		receivedParcels:       make(map[uint16][]byte, header.TotalParcels),
		startedAt:             now,
		lastParcelReceivedAt:  now,
	}

	msg.receivedParcels[0] = header.Payload

	return msg, nil
}

// AddParcel stores one received payload slice at its index. Duplicate
// delivery overwrites in place, which keeps insertion idempotent. A fresh
// arrival also clears the missing-request suppression, the peer is clearly
// still retransmitting.
func (msg *IncomingMessage) AddParcel(parcel *Parcel) error {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	if parcel.ParcelIndex >= msg.TotalParcels {
		return fmt.Errorf("%w: %d >= %d", ErrParcelIndexOutOfRange, parcel.ParcelIndex, msg.TotalParcels)
	}

	msg.receivedParcels[parcel.ParcelIndex] = parcel.Payload
	msg.lastParcelReceivedAt = time.Now().UTC()
	msg.lastMissingRequestAt = time.Time{}

	return nil
}

// IsComplete reports whether every index in [0, TotalParcels) is present.
func (msg *IncomingMessage) IsComplete() bool {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	return len(msg.receivedParcels) == int(msg.TotalParcels)
}

// ReceivedCount returns how many distinct parcel indices have arrived.
func (msg *IncomingMessage) ReceivedCount() int {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	return len(msg.receivedParcels)
}

// MissingIndices returns every index not yet received, in ascending order.
// The result feeds a missing-parcels receipt so the sender retransmits only
// what was lost.
func (msg *IncomingMessage) MissingIndices() []uint16 {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	missing := make([]uint16, 0)
	for index := uint16(0); index < msg.TotalParcels; index++ {
		if _, found := msg.receivedParcels[index]; !found {
			missing = append(missing, index)
		}
	}

	return missing
}

// Assemble concatenates the chunks in index order, verifies the integrity
// code and then decompresses when the header flags ask for it. The checksum
// is checked first, corrupt bytes are never fed to the decompressor.
func (msg *IncomingMessage) Assemble() ([]byte, error) {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	if len(msg.receivedParcels) != int(msg.TotalParcels) {
		return nil, ErrMessageIncomplete
	}

	buffer := &bytes.Buffer{}
	for index := uint16(0); index < msg.TotalParcels; index++ {
		buffer.Write(msg.receivedParcels[index])
	}

	assembled := buffer.Bytes()

	if Checksum(assembled) != msg.ExpectedIntegrityCode {
		return nil, ErrChecksumMismatch
	}

	return Decompress(assembled, CompressionAlgorithm(msg.Flags&CompressionAlgorithmMask))
}

// IsStale reports whether this incomplete message has outlived the staleness
// timeout and should be evicted.
func (msg *IncomingMessage) IsStale(now time.Time, timeout time.Duration) bool {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	if len(msg.receivedParcels) == int(msg.TotalParcels) {
		return false
	}

	return now.Sub(msg.startedAt) > timeout
}

// StartedAt returns when the first parcel for this message arrived.
func (msg *IncomingMessage) StartedAt() time.Time {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	return msg.startedAt
}

// LastParcelReceivedAt returns the arrival time of the most recent parcel.
func (msg *IncomingMessage) LastParcelReceivedAt() time.Time {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	return msg.lastParcelReceivedAt
}

// MarkMissingRequestSent records that a missing-parcels receipt went out so
// repeated poll ticks do not spam the sender while retransmission is already
// on its way.
func (msg *IncomingMessage) MarkMissingRequestSent() {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	msg.lastMissingRequestAt = time.Now().UTC()
}

// ShouldRequestMissing reports whether enough time has passed since the last
// missing-parcels request to send another one.
func (msg *IncomingMessage) ShouldRequestMissing(now time.Time, interval time.Duration) bool {

	msg.stateLock.Lock()
	defer msg.stateLock.Unlock()

	if msg.lastMissingRequestAt.IsZero() {
		return true
	}

	return now.Sub(msg.lastMissingRequestAt) >= interval
}
