package pwire_test

import (
	"testing"

	"github.com/copperkettle/parcelwire/pkg/pwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressAndDecompressWithDeflate(t *testing.T) {

	data := pwire.RepeatedBytes(5000, 10)

	compressed, err := pwire.Compress(data, pwire.CompressionDeflate)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(data))

	restored, err := pwire.Decompress(compressed, pwire.CompressionDeflate)
	require.NoError(t, err)
	assert.Equal(t, data, restored)
}

func TestCompressWithNoneIsIdentity(t *testing.T) {

	data := pwire.RandomBytes(512)

	out, err := pwire.Compress(data, pwire.CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	restored, err := pwire.Decompress(out, pwire.CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, data, restored)
}

func TestCompressKeepsIncompressibleDataUnchanged(t *testing.T) {

	data := pwire.RandomBytes(1000)

	out, err := pwire.Compress(data, pwire.CompressionDeflate)
	require.NoError(t, err)

	// deflate cannot shrink random bytes, the original must come back
	assert.Equal(t, data, out)
}

func TestCompressRejectsReservedAlgorithm(t *testing.T) {

	_, err := pwire.Compress(pwire.RandomBytes(10), pwire.CompressionAlgorithm(0x7))
	assert.ErrorIs(t, err, pwire.ErrUnknownCompression)
}

func TestDecompressRejectsReservedAlgorithm(t *testing.T) {

	_, err := pwire.Decompress(pwire.RandomBytes(10), pwire.CompressionAlgorithm(0x7))
	assert.ErrorIs(t, err, pwire.ErrUnknownCompression)
}

func TestDecompressRejectsCorruptStream(t *testing.T) {

	_, err := pwire.Decompress(pwire.RandomBytes(64), pwire.CompressionDeflate)
	assert.ErrorIs(t, err, pwire.ErrCorruptCompressedData)
}

func TestShouldCompressSizeThreshold(t *testing.T) {

	assert.False(t, pwire.ShouldCompress(pwire.RepeatedBytes(pwire.DefaultCompressionMinSize-1, 10)))
	assert.True(t, pwire.ShouldCompress(pwire.RepeatedBytes(pwire.DefaultCompressionMinSize, 10)))
}

func TestShouldCompressSkipsCompressedContainers(t *testing.T) {

	signatures := map[string][]byte{
		"png":  {0x89, 0x50, 0x4E, 0x47},
		"jpeg": {0xFF, 0xD8, 0xFF},
		"gzip": {0x1F, 0x8B},
		"zlib": {0x78, 0x9C},
		"zip":  {0x50, 0x4B, 0x03, 0x04},
	}

	for name, signature := range signatures {
		payload := append(append([]byte{}, signature...), pwire.RepeatedBytes(1000, 10)...)
		assert.False(t, pwire.ShouldCompress(payload), name)
	}
}

func TestCompressionAlgorithmValidity(t *testing.T) {

	assert.True(t, pwire.CompressionNone.Valid())
	assert.True(t, pwire.CompressionDeflate.Valid())
	assert.False(t, pwire.CompressionAlgorithm(0x2).Valid())
	assert.False(t, pwire.CompressionAlgorithm(0xF).Valid())
}
