// Package simulation implements the stochastic risk engines: a geometric
// Brownian motion Value-at-Risk simulator and a five-year stochastic DCF
// fair-value simulator with antithetic variates.
//
// Randomness is always drawn from a call-local generator. A supplied seed
// reproduces the full draw sequence bit-for-bit; a nil seed keeps the run
// non-deterministic. Nothing touches a process-wide random source, so
// concurrent calls need no synchronization.
package simulation

import (
	"time"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

func newStandardNormal(seed *uint64) distuv.Normal {
	var src xrand.Source
	if seed != nil {
		src = xrand.NewSource(*seed)
	} else {
		src = xrand.NewSource(uint64(time.Now().UnixNano()))
	}
	return distuv.Normal{Mu: 0, Sigma: 1, Src: src}
}
