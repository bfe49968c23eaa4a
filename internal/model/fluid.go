package model

import (
	"math"

	"github.com/wildstyl3r/cxmc/internal/utils"
)

// FluidState holds the continuum ion moments. momentum is the momentum
// density mass*density*u; kineticEnergy is recomputed from the other fields
// after every mutation.
type FluidState struct {
	mass        float64
	density     float64
	momentum    float64
	temperature float64
	volume      float64

	kineticEnergy float64
}

func NewFluidState(mass, density, momentum, temperature, volume float64) (*FluidState, error) {
	if !(mass > 0) {
		return nil, invalid("fluid mass must be positive, got %v", mass)
	}
	if density < 0 || math.IsNaN(density) {
		return nil, invalid("fluid density must be non-negative, got %v", density)
	}
	if !(volume > 0) {
		return nil, invalid("volume must be positive, got %v", volume)
	}
	if math.IsNaN(momentum) || math.IsNaN(temperature) {
		return nil, invalid("fluid momentum and temperature must be numbers")
	}
	f := &FluidState{
		mass:        mass,
		density:     density,
		momentum:    momentum,
		temperature: temperature,
		volume:      volume,
	}
	f.UpdateKineticEnergy()
	return f, nil
}

func (f *FluidState) Mass() float64          { return f.mass }
func (f *FluidState) Density() float64       { return f.density }
func (f *FluidState) Momentum() float64      { return f.momentum }
func (f *FluidState) Temperature() float64   { return f.temperature }
func (f *FluidState) Volume() float64        { return f.volume }
func (f *FluidState) KineticEnergy() float64 { return f.kineticEnergy }

// Particles is the number of ions in the volume.
func (f *FluidState) Particles() float64 {
	return f.density * f.volume
}

// TotalMomentum is momentum*volume, the quantity exchanged with the ensemble.
func (f *FluidState) TotalMomentum() float64 {
	return f.momentum * f.volume
}

func (f *FluidState) BulkVelocity() float64 {
	if f.density == 0 {
		return 0
	}
	return f.momentum / (f.mass * f.density)
}

func (f *FluidState) ThermalVelocity() float64 {
	return math.Sqrt(max(f.temperature, 0) / f.mass)
}

func (f *FluidState) BulkEnergy() float64 {
	if f.density == 0 {
		return 0
	}
	p := f.momentum * f.volume
	return p * p / (2. * f.mass * f.density * f.volume)
}

func (f *FluidState) ThermalEnergy() float64 {
	return f.mass * f.density * f.volume * (f.temperature / f.mass) / 2.
}

// maxRedraws bounds the attempts at a batch with nonzero spread.
const maxRedraws = 8

// SampleIonVelocity draws n normal velocities around the bulk velocity and
// rescales the batch so that its mean and (population) standard deviation
// equal the bulk and thermal velocities exactly. A cold fluid gives n copies
// of the bulk velocity.
func (f *FluidState) SampleIonVelocity(src Source, n int) ([]float64, error) {
	if n < 2 {
		return nil, ErrTooFewSamples
	}
	mu, sigma := f.BulkVelocity(), f.ThermalVelocity()
	samples := make([]float64, n)
	if sigma == 0 {
		for i := range samples {
			samples[i] = mu
		}
		return samples, nil
	}
	var mean, std float64
	for range maxRedraws {
		for i := range samples {
			samples[i] = mu + sigma*src.NormFloat64()
		}
		if mean, std = utils.MeanAndStd(samples); std > 0 {
			break
		}
	}
	if std == 0 {
		return nil, ErrDegenerateSample
	}
	scale := sigma / std
	for i := range samples {
		samples[i] = math.FMA(samples[i]-mean, scale, mu)
	}
	return samples, nil
}

func (f *FluidState) UpdateKineticEnergy() {
	f.kineticEnergy = f.BulkEnergy() + f.ThermalEnergy()
}

// UpdateTemperature solves the temperature backward so that the fluid
// kinetic energy equals totalEnergy - otherKinetic.
func (f *FluidState) UpdateTemperature(totalEnergy, otherKinetic float64) {
	particles := f.Particles()
	if particles == 0 {
		f.temperature = 0
		f.UpdateKineticEnergy()
		return
	}
	f.temperature = 2. * (totalEnergy - otherKinetic - f.BulkEnergy()) / particles
	f.UpdateKineticEnergy()
}
