package pwire

import (
	"bytes"
	"fmt"
	"io/ioutil"

	"github.com/klauspost/compress/flate"
)

// CompressionAlgorithm identifies the codec recorded in the low nibble of the
// header flags byte. Values outside the declared set are reserved.
type CompressionAlgorithm uint8

const (
	// CompressionNone transmits the payload untouched.
	CompressionNone CompressionAlgorithm = 0x0

	// CompressionDeflate transmits a raw DEFLATE stream.
	CompressionDeflate CompressionAlgorithm = 0x1
)

// Valid reports whether the algorithm id is part of the closed wire set.
func (alg CompressionAlgorithm) Valid() bool {
	return alg == CompressionNone || alg == CompressionDeflate
}

// String helps logging the CompressionAlgorithm.
func (alg CompressionAlgorithm) String() string {
	switch alg {
	case CompressionNone:
		return "none"
	case CompressionDeflate:
		return "deflate"
	default:
		return fmt.Sprintf("reserved(%d)", uint8(alg))
	}
}

// Leading bytes of containers that are already compressed. Compressing these
// again wastes CPU for no size benefit.
var compressedSignatures = [][]byte{
	{0x89, 0x50, 0x4E, 0x47}, // PNG
	{0xFF, 0xD8, 0xFF},       // JPEG
	{0x1F, 0x8B},             // GZIP
	{0x78, 0x01},             // ZLIB, fastest
	{0x78, 0x9C},             // ZLIB, default
	{0x78, 0xDA},             // ZLIB, best
	{0x50, 0x4B, 0x03, 0x04}, // ZIP
}

// Compress transforms data with the requested algorithm. With
// CompressionNone it is the identity function. With CompressionDeflate the
// compressed buffer is returned only when it is strictly smaller than the
// input, otherwise the original bytes come back unchanged and the caller must
// detect that by re-checking the length.
func Compress(data []byte, algorithm CompressionAlgorithm) ([]byte, error) {

	switch algorithm {
	case CompressionNone:
		return data, nil

	case CompressionDeflate:
		buffer := &bytes.Buffer{}

		flateWriter, err := flate.NewWriter(buffer, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}

		_, err = flateWriter.Write(data)
		if err != nil {

			closeErr := flateWriter.Close()
			if closeErr != nil {
				return nil, closeErr
			}

			return nil, err
		}

		if err := flateWriter.Close(); err != nil {
			return nil, err
		}

		if buffer.Len() >= len(data) {
			return data, nil
		}

		return buffer.Bytes(), nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(algorithm))
	}
}

// Decompress reverses Compress. A reserved algorithm id or a stream that
// cannot be inflated is a hard failure for the whole reassembly attempt,
// retransmission will not produce different bytes.
func Decompress(data []byte, algorithm CompressionAlgorithm) ([]byte, error) {

	switch algorithm {
	case CompressionNone:
		return data, nil

	case CompressionDeflate:
		flateReader := flate.NewReader(bytes.NewReader(data))

		inflated, err := ioutil.ReadAll(flateReader)
		if err != nil {
			_ = flateReader.Close()
			return nil, fmt.Errorf("%w: %v", ErrCorruptCompressedData, err)
		}

		if err := flateReader.Close(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptCompressedData, err)
		}

		return inflated, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(algorithm))
	}
}

// ShouldCompress reports whether compressing data is worth attempting. Small
// payloads and known pre-compressed container formats are skipped.
func ShouldCompress(data []byte) bool {

	if len(data) < DefaultCompressionMinSize {
		return false
	}

	for _, signature := range compressedSignatures {
		if bytes.HasPrefix(data, signature) {
			return false
		}
	}

	return true
}
