package pwire_test

import (
	"testing"

	"github.com/copperkettle/parcelwire/pkg/pwire"
	"github.com/stretchr/testify/assert"
)

func TestRandomMessageID(t *testing.T) {

	id := pwire.RandomMessageID()
	assert.Len(t, id, pwire.MessageIDLength)

	for i := 0; i < len(id); i++ {
		assert.GreaterOrEqual(t, id[i], uint8(0x20))
		assert.LessOrEqual(t, id[i], uint8(0x7E))
	}
}

func TestRandomBytesLength(t *testing.T) {

	assert.Len(t, pwire.RandomBytes(100), 100)
	assert.Len(t, pwire.RepeatedBytes(100, 10), 100)
}

func TestChecksumIsStable(t *testing.T) {

	data := pwire.RandomBytes(1000)
	assert.Equal(t, pwire.Checksum(data), pwire.Checksum(data))

	flipped := append([]byte{}, data...)
	flipped[0] ^= 0x01
	assert.NotEqual(t, pwire.Checksum(data), pwire.Checksum(flipped))
}
