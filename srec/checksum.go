package srec

// Checksum returns the checksum byte for a record with the given length,
// address and data fields.
func Checksum(length byte, address, data []byte) byte {
	sum := length
	for _, b := range address {
		sum += b
	}
	for _, b := range data {
		sum += b
	}
	return sum ^ 0xff
}

// Verify reports whether checksum is correct for the given fields.
func Verify(length byte, address, data []byte, checksum byte) bool {
	return Checksum(length, address, data) == checksum
}
