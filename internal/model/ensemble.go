package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ParticleEnsemble is an ordered population of neutral macro-particles
// sharing one mass. weights and velocities always have the same length.
type ParticleEnsemble struct {
	mass       float64
	weights    []float64
	velocities []float64

	kineticEnergy float64
	temperature   float64
}

func NewParticleEnsemble(mass float64, weights, velocities []float64) (*ParticleEnsemble, error) {
	if !(mass > 0) {
		return nil, invalid("particle mass must be positive, got %v", mass)
	}
	if len(weights) != len(velocities) {
		return nil, invalid("got %d weights and %d velocities", len(weights), len(velocities))
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, invalid("weight %d is negative: %v", i, w)
		}
	}
	e := &ParticleEnsemble{
		mass:       mass,
		weights:    append([]float64(nil), weights...),
		velocities: append([]float64(nil), velocities...),
	}
	e.UpdateKineticEnergy()
	e.UpdateTemperature()
	return e, nil
}

func (e *ParticleEnsemble) Mass() float64          { return e.mass }
func (e *ParticleEnsemble) Len() int               { return len(e.weights) }
func (e *ParticleEnsemble) KineticEnergy() float64 { return e.kineticEnergy }
func (e *ParticleEnsemble) Temperature() float64   { return e.temperature }

func (e *ParticleEnsemble) Weights() []float64 {
	return append([]float64(nil), e.weights...)
}

func (e *ParticleEnsemble) Velocities() []float64 {
	return append([]float64(nil), e.velocities...)
}

func (e *ParticleEnsemble) TotalWeight() float64 {
	return floats.Sum(e.weights)
}

// Momentum is mass*Σ(w_i*v_i).
func (e *ParticleEnsemble) Momentum() float64 {
	return e.mass * floats.Dot(e.weights, e.velocities)
}

// MeanVelocity is the weight-weighted mean velocity; zero for an empty
// or weightless population.
func (e *ParticleEnsemble) MeanVelocity() float64 {
	if e.TotalWeight() == 0 {
		return 0
	}
	return stat.Mean(e.velocities, e.weights)
}

func (e *ParticleEnsemble) UpdateKineticEnergy() {
	var sum float64
	for i := range e.weights {
		sum += e.weights[i] * e.velocities[i] * e.velocities[i]
	}
	e.kineticEnergy = 0.5 * e.mass * sum
}

// UpdateTemperature sets mass*Σw(v-v̄)²/Σw from the current kinetic energy.
func (e *ParticleEnsemble) UpdateTemperature() {
	total := e.TotalWeight()
	if total == 0 {
		e.temperature = 0
		return
	}
	mean := stat.Mean(e.velocities, e.weights)
	e.temperature = 2. * (e.kineticEnergy - 0.5*e.mass*total*mean*mean) / total
}

// Append adds one macro-particle, as done by neutral injection.
func (e *ParticleEnsemble) Append(weight, velocity float64) error {
	if weight < 0 || math.IsNaN(weight) {
		return invalid("appended weight is negative: %v", weight)
	}
	e.weights = append(e.weights, weight)
	e.velocities = append(e.velocities, velocity)
	e.UpdateKineticEnergy()
	e.UpdateTemperature()
	return nil
}

// Compact drops zero-weight particles and merges every particle lighter than
// floor into a single particle at their weighted mean velocity. Total weight
// and momentum are unchanged; the kinetic energy removed by the merge is
// returned.
func (e *ParticleEnsemble) Compact(floor float64) (removedEnergy float64) {
	before := e.kineticEnergy
	var lightWeight, lightMomentum float64
	kept := 0
	for i := range e.weights {
		w := e.weights[i]
		if w == 0 {
			continue
		}
		if w < floor {
			lightWeight += w
			lightMomentum += w * e.velocities[i]
			continue
		}
		e.weights[kept] = w
		e.velocities[kept] = e.velocities[i]
		kept++
	}
	e.weights = e.weights[:kept]
	e.velocities = e.velocities[:kept]
	if lightWeight > 0 {
		e.weights = append(e.weights, lightWeight)
		e.velocities = append(e.velocities, lightMomentum/lightWeight)
	}
	e.UpdateKineticEnergy()
	e.UpdateTemperature()
	return before - e.kineticEnergy
}
