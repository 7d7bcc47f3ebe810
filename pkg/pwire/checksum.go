package pwire

import "hash/crc32"

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the 32-bit integrity code carried by a header parcel.
// It is always computed over the bytes that actually travel on the wire, so
// a compressed message is checksummed after compression.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}
