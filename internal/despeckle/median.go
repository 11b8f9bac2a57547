package despeckle

import "slices"

// median sorts s in place and returns its median. For an odd count that is
// the middle element; for an even count it is the truncated mean of the two
// central elements. s must hold at least two samples.
func median(s []uint8) uint8 {
	slices.Sort(s)
	t := len(s) / 2
	if len(s)%2 == 0 {
		return uint8((int(s[t-1]) + int(s[t])) / 2)
	}
	return s[t]
}
