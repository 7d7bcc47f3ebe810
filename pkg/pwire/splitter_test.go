package pwire_test

import (
	"testing"

	"github.com/copperkettle/parcelwire/pkg/pwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSingleParcelMessage(t *testing.T) {

	msg := pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(pwire.HeaderPayloadCapacity), false)

	parcels, err := pwire.Split(msg)
	require.NoError(t, err)
	require.Len(t, parcels, 1)

	assert.Equal(t, uint16(1), parcels[0].TotalParcels)
	assert.Equal(t, pwire.CompressionNone, parcels[0].Algorithm())
	assert.Equal(t, msg.Payload, parcels[0].Payload)
}

func TestSplitEmptyPayload(t *testing.T) {

	msg := pwire.NewOutgoingMessage("peer-1", []byte{}, true)

	parcels, err := pwire.Split(msg)
	require.NoError(t, err)
	require.Len(t, parcels, 1)

	assert.Equal(t, uint16(1), parcels[0].TotalParcels)
	assert.Empty(t, parcels[0].Payload)
}

func TestSplitBoundaryRollsIntoDataParcel(t *testing.T) {

	msg := pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(pwire.HeaderPayloadCapacity+1), false)

	parcels, err := pwire.Split(msg)
	require.NoError(t, err)
	require.Len(t, parcels, 2)

	assert.Equal(t, uint16(2), parcels[0].TotalParcels)
	assert.Equal(t, uint16(1), parcels[1].ParcelIndex)
	assert.Len(t, parcels[1].Payload, 1)
}

func TestSplitTotalParcelsMatchesProducedCount(t *testing.T) {

	for _, size := range []int{1, 100, 271, 272, 547, 548, 1000, 50000} {
		msg := pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(size), false)

		parcels, err := pwire.Split(msg)
		require.NoError(t, err)
		assert.Equal(t, int(parcels[0].TotalParcels), len(parcels), "size %d", size)
	}
}

func TestSplitCapacityInvariant(t *testing.T) {

	msg := pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(10000), false)

	parcels, err := pwire.Split(msg)
	require.NoError(t, err)

	for i, parcel := range parcels {
		if i == 0 {
			assert.LessOrEqual(t, len(parcel.Payload), pwire.HeaderPayloadCapacity)
		} else {
			assert.LessOrEqual(t, len(parcel.Payload), pwire.DataPayloadCapacity)
		}

		data, err := parcel.Serialize()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(data), pwire.MaxParcelSize)
	}
}

func TestSplitAscendingIndexOrder(t *testing.T) {

	msg := pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(2000), false)

	parcels, err := pwire.Split(msg)
	require.NoError(t, err)

	for i, parcel := range parcels {
		assert.Equal(t, uint16(i), parcel.ParcelIndex)
		assert.Equal(t, msg.MessageID, parcel.MessageID)
	}
}

func TestSplitIncompressibleRandomPayloadScenario(t *testing.T) {

	// 1000 random bytes: past the compression threshold, but deflate cannot
	// shrink random data, so the wire stays uncompressed and needs
	// 1 + ceil((1000-271)/276) = 4 parcels.
	msg := pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(1000), true)

	parcels, err := pwire.Split(msg)
	require.NoError(t, err)

	require.Len(t, parcels, 4)
	assert.Equal(t, uint16(4), parcels[0].TotalParcels)
	assert.Equal(t, pwire.CompressionNone, parcels[0].Algorithm())
}

func TestSplitCompressesWhenWorthwhile(t *testing.T) {

	payload := pwire.RepeatedBytes(10000, 20)
	msg := pwire.NewOutgoingMessage("peer-1", payload, true)

	parcels, err := pwire.Split(msg)
	require.NoError(t, err)

	assert.Equal(t, pwire.CompressionDeflate, parcels[0].Algorithm())
	assert.NotEqual(t, pwire.Checksum(payload), parcels[0].IntegrityCode,
		"integrity code must cover the compressed bytes")

	wireBytes := 0
	for _, parcel := range parcels {
		wireBytes += len(parcel.Payload)
	}
	assert.Less(t, wireBytes, len(payload))
}

func TestSplitCompressionNeverHarms(t *testing.T) {

	for _, payload := range [][]byte{
		pwire.RandomBytes(1000),
		pwire.RepeatedBytes(1000, 10),
		pwire.RandomBytes(350),
	} {
		msg := pwire.NewOutgoingMessage("peer-1", payload, true)

		parcels, err := pwire.Split(msg)
		require.NoError(t, err)

		wireBytes := 0
		for _, parcel := range parcels {
			wireBytes += len(parcel.Payload)
		}
		assert.LessOrEqual(t, wireBytes, len(payload))
	}
}

func TestSplitChecksumCoversWireBytes(t *testing.T) {

	payload := pwire.RandomBytes(600)
	msg := pwire.NewOutgoingMessage("peer-1", payload, false)

	parcels, err := pwire.Split(msg)
	require.NoError(t, err)

	assert.Equal(t, pwire.Checksum(payload), parcels[0].IntegrityCode)
}
