package utils

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/wildstyl3r/cxmc/internal/constants"
)

type Number interface {
	constraints.Float | constraints.Integer
}

func SumSlice[T Number](arr []T) (r T) {
	for i := range arr {
		r += arr[i]
	}
	return
}

func Average[T Number](s []T) (mean float64) {
	if len(s) == 0 {
		return 0
	}
	return float64(SumSlice(s)) / float64(len(s))
}

// unbiased selects the n-1 denominator
func MeanAndVariance[T Number](s []T, unbiased bool) (mean, variance float64) {
	mean = Average(s)
	for i := range s {
		variance += (float64(s[i]) - mean) * (float64(s[i]) - mean)
	}
	if unbiased {
		variance /= float64(len(s) - 1)
	} else {
		variance /= float64(len(s))
	}

	return
}

func MeanAndStd[T Number](s []T) (mean, std float64) {
	mean, variance := MeanAndVariance(s, false)
	return mean, math.Sqrt(variance)
}

// largest |a[i]-ref|/|ref|, absolute when ref is zero
func MaxRelativeDeviation(a []float64, ref float64) (d float64) {
	scale := math.Abs(ref)
	if scale == 0 {
		scale = 1
	}
	for i := range a {
		d = max(d, math.Abs(a[i]-ref)/scale)
	}
	return
}

func J2eV(val float64) float64 {
	return val / constants.ElectronCharge
}

func AMU2kg(val float64) float64 {
	return val * constants.AtomicMassUnit
}
