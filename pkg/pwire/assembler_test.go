package pwire_test

import (
	"testing"
	"time"

	"github.com/copperkettle/parcelwire/pkg/pwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assembleFromParcels(t *testing.T, parcels []*pwire.Parcel) *pwire.IncomingMessage {
	t.Helper()

	msg, err := pwire.NewIncomingMessage("peer-1", parcels[0])
	require.NoError(t, err)

	for _, parcel := range parcels[1:] {
		require.NoError(t, msg.AddParcel(parcel))
	}

	return msg
}

func TestRoundTrip(t *testing.T) {

	payloads := map[string][]byte{
		"empty":          {},
		"one byte":       {0x42},
		"boundary":       pwire.RandomBytes(pwire.HeaderPayloadCapacity),
		"compressible":   pwire.RepeatedBytes(100000, 25),
		"incompressible": pwire.RandomBytes(100000),
		"megabytes":      pwire.RepeatedBytes(3*1024*1024, 7),
	}

	for name, payload := range payloads {
		for _, supportsCompression := range []bool{false, true} {

			out := pwire.NewOutgoingMessage("peer-1", payload, supportsCompression)
			parcels, err := pwire.Split(out)
			require.NoError(t, err, name)

			msg := assembleFromParcels(t, parcels)
			require.True(t, msg.IsComplete(), name)

			restored, err := msg.Assemble()
			require.NoError(t, err, name)
			assert.Equal(t, payload, restored, "%s (compression=%v)", name, supportsCompression)
		}
	}
}

func TestRoundTripArbitraryArrivalOrder(t *testing.T) {

	payload := pwire.RandomBytes(5000)
	parcels, err := pwire.Split(pwire.NewOutgoingMessage("peer-1", payload, false))
	require.NoError(t, err)
	require.Greater(t, len(parcels), 2)

	msg, err := pwire.NewIncomingMessage("peer-1", parcels[0])
	require.NoError(t, err)

	// deliver data parcels in reverse
	for i := len(parcels) - 1; i >= 1; i-- {
		require.NoError(t, msg.AddParcel(parcels[i]))
	}

	restored, err := msg.Assemble()
	require.NoError(t, err)
	assert.Equal(t, payload, restored)
}

func TestIdempotentParcelInsertion(t *testing.T) {

	parcels, err := pwire.Split(pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(1000), false))
	require.NoError(t, err)
	require.Len(t, parcels, 4)

	msg, err := pwire.NewIncomingMessage("peer-1", parcels[0])
	require.NoError(t, err)

	require.NoError(t, msg.AddParcel(parcels[1]))
	require.NoError(t, msg.AddParcel(parcels[1]))
	require.NoError(t, msg.AddParcel(parcels[1]))

	assert.Equal(t, 2, msg.ReceivedCount())
	assert.Equal(t, []uint16{2, 3}, msg.MissingIndices())
}

func TestMissingIndicesDetection(t *testing.T) {

	parcels, err := pwire.Split(pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(1000), true))
	require.NoError(t, err)
	require.Len(t, parcels, 4)

	msg, err := pwire.NewIncomingMessage("peer-1", parcels[0])
	require.NoError(t, err)

	require.NoError(t, msg.AddParcel(parcels[1]))
	require.NoError(t, msg.AddParcel(parcels[3]))

	assert.False(t, msg.IsComplete())
	assert.Equal(t, []uint16{2}, msg.MissingIndices())

	_, err = msg.Assemble()
	assert.ErrorIs(t, err, pwire.ErrMessageIncomplete)

	require.NoError(t, msg.AddParcel(parcels[2]))
	assert.True(t, msg.IsComplete())
	assert.Empty(t, msg.MissingIndices())

	restored, err := msg.Assemble()
	require.NoError(t, err)
	assert.Len(t, restored, 1000)
}

func TestChecksumCatchesSingleBitFlip(t *testing.T) {

	parcels, err := pwire.Split(pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(1000), false))
	require.NoError(t, err)

	// flip one bit in one data parcel payload
	parcels[2].Payload[10] ^= 0x01

	msg := assembleFromParcels(t, parcels)
	require.True(t, msg.IsComplete())

	_, err = msg.Assemble()
	assert.ErrorIs(t, err, pwire.ErrChecksumMismatch)
}

func TestAssembleRejectsOutOfRangeIndex(t *testing.T) {

	parcels, err := pwire.Split(pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(1000), false))
	require.NoError(t, err)

	msg, err := pwire.NewIncomingMessage("peer-1", parcels[0])
	require.NoError(t, err)

	rogue := &pwire.Parcel{MessageID: parcels[0].MessageID, ParcelIndex: 99, Payload: []byte{1}}
	assert.ErrorIs(t, msg.AddParcel(rogue), pwire.ErrParcelIndexOutOfRange)
}

func TestNewIncomingMessageRejectsReservedAlgorithm(t *testing.T) {

	header := &pwire.Parcel{
		MessageID:    "Ab",
		TotalParcels: 1,
		Flags:        0x07,
	}

	_, err := pwire.NewIncomingMessage("peer-1", header)
	assert.ErrorIs(t, err, pwire.ErrUnknownCompression)
}

func TestNewIncomingMessageRejectsDataParcel(t *testing.T) {

	_, err := pwire.NewIncomingMessage("peer-1", &pwire.Parcel{MessageID: "Ab", ParcelIndex: 1})
	assert.Error(t, err)
}

func TestStaleness(t *testing.T) {

	parcels, err := pwire.Split(pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(1000), false))
	require.NoError(t, err)

	msg, err := pwire.NewIncomingMessage("peer-1", parcels[0])
	require.NoError(t, err)

	now := time.Now().UTC()
	assert.False(t, msg.IsStale(now, 60*time.Second))
	assert.True(t, msg.IsStale(now.Add(61*time.Second), 60*time.Second))
}

func TestCompleteMessageIsNeverStale(t *testing.T) {

	parcels, err := pwire.Split(pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(100), false))
	require.NoError(t, err)

	msg := assembleFromParcels(t, parcels)
	assert.False(t, msg.IsStale(time.Now().UTC().Add(time.Hour), 60*time.Second))
}

func TestMissingRequestSuppression(t *testing.T) {

	parcels, err := pwire.Split(pwire.NewOutgoingMessage("peer-1", pwire.RandomBytes(1000), false))
	require.NoError(t, err)

	msg, err := pwire.NewIncomingMessage("peer-1", parcels[0])
	require.NoError(t, err)

	now := time.Now().UTC()
	interval := 2 * time.Second

	assert.True(t, msg.ShouldRequestMissing(now, interval))

	msg.MarkMissingRequestSent()
	assert.False(t, msg.ShouldRequestMissing(now, interval))
	assert.True(t, msg.ShouldRequestMissing(now.Add(3*time.Second), interval))

	// a fresh arrival clears the suppression, the peer is still sending
	require.NoError(t, msg.AddParcel(parcels[1]))
	assert.True(t, msg.ShouldRequestMissing(now, interval))
}
