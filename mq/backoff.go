package mq

import (
	"math"
	"math/rand"
	"time"
)

// backoffUnit is the base delay scaled by 4^attempt before jitter.
const backoffUnit = 100 * time.Millisecond

// backoffDelay computes the sleep before retry attempt k (0-indexed):
// rand(0,1) * 4^k * 100ms. Full jitter with a growing ceiling and no cap;
// the retry count is the only bound.
func backoffDelay(attempt int) time.Duration {
	ceiling := math.Pow(4, float64(attempt)) * float64(backoffUnit)
	return time.Duration(rand.Float64() * ceiling)
}
