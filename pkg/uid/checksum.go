package uid

// Checksum computes the 16-bit additive RDM checksum over data: the sum of
// all bytes truncated to 16 bits. Carries beyond bit 15 are discarded.
func Checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}
