package model

import "math/rand"

// Source supplies standard normal variates. *rand.Rand satisfies it.
type Source interface {
	NormFloat64() float64
}

func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
