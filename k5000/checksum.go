package k5000

const checksumSeed = 0xA5

// Checksum folds data into the 7-bit checksum used by single patches and
// additive kits.
func Checksum(data ...[]byte) byte {
	sum := checksumSeed
	for _, d := range data {
		for _, b := range d {
			sum += int(b)
		}
	}
	return byte(sum & 0x7F)
}
