package observation

import "time"

// ObservationSequenceTimeout defines how long is sequence number is valid. https://tools.ietf.org/html/rfc7641#section-3.4
const ObservationSequenceTimeout = 128 * time.Second

// maxSequenceDistance is 2^23, half of the 24-bit sequence space.
const maxSequenceDistance = 1 << 23

// ValidSequenceNumber implements conditions in https://tools.ietf.org/html/rfc7641#section-3.4
func ValidSequenceNumber(old, new uint32, lastEventOccurs time.Time, now time.Time) bool {
	if (old < new && new-old < maxSequenceDistance) ||
		(old > new && old-new > maxSequenceDistance) ||
		(now.Sub(lastEventOccurs) > ObservationSequenceTimeout) {
		return true
	}
	return false
}
