package helpers

import (
	mathrand "math/rand"
	"time"
)

// RandBetween returns a random duration in [min, max)
func RandBetween(rnd *mathrand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rnd.Int63n(int64(max-min)))
}
