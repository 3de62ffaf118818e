package k5000

// AdditiveWave is the wave number that selects an additive source.
const AdditiveWave uint16 = 512

// MaxWave is the largest value the 10-bit wave field can hold.
const MaxWave uint16 = 0x3FF

// SplitWave packs a 10-bit wave number into the two source bytes: the top
// 3 bits go to the low bits of msb, the remaining 7 bits to lsb.
func SplitWave(wave uint16) (msb, lsb byte) {
	return byte(wave>>7) & 0x07, byte(wave) & 0x7F
}

// JoinWave is the inverse of SplitWave. ok is false when either byte has
// bits set outside its field.
func JoinWave(msb, lsb byte) (wave uint16, ok bool) {
	if msb&^0x07 != 0 || lsb&^0x7F != 0 {
		return 0, false
	}
	return uint16(msb)<<7 | uint16(lsb), true
}

// IsAdditive reports whether the wave number is the additive marker.
func IsAdditive(wave uint16) bool {
	return wave == AdditiveWave
}
