package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scalarParticle and scalarFluid form the single-particle exchange: the
// particle's velocity is relaxed in place and the fluid carries the momentum
// of one representative ion.
type scalarParticle struct {
	mass, weight, velocity float64
}

type scalarFluid struct {
	mass, density, momentum float64
}

// exchange draws the ion momentum from N(momentum, spread) and swaps dw of
// the particle's weight; dw is capped at the particle weight.
func (p *scalarParticle) exchange(src Source, rate, dt float64, f *scalarFluid, spread float64) {
	dw := min(dt*rate*p.weight*f.density, p.weight)
	ionMomentum := f.momentum + spread*src.NormFloat64()

	f.momentum += dw * p.velocity * p.mass / p.weight
	p.velocity -= dw * p.velocity / p.weight

	p.velocity += dw * ionMomentum / (p.weight * p.mass)
	f.momentum -= dw * ionMomentum / p.weight
}

// fixedPopulationExchange relaxes every particle velocity towards one ion
// sample without growing the population. totalEnergy is the conserved
// reference the fluid temperature is solved against.
func fixedPopulationExchange(src Source, rate, dt float64, fluid *FluidState, e *ParticleEnsemble, totalEnergy float64) error {
	ions, err := fluid.SampleIonVelocity(src, e.Len())
	if err != nil {
		return err
	}
	f := rate * dt * fluid.Density()
	var out, in float64
	for i := range e.weights {
		out += e.weights[i] * e.velocities[i]
		in += e.weights[i] * ions[i]
	}
	fluid.momentum += e.mass * f * (out - in) / fluid.Volume()
	for i := range e.velocities {
		e.velocities[i] += f * (ions[i] - e.velocities[i])
	}
	e.UpdateKineticEnergy()
	e.UpdateTemperature()
	fluid.UpdateTemperature(totalEnergy, e.KineticEnergy())
	return nil
}

func TestSingleParticleExchangeConservesMomentum(t *testing.T) {
	const (
		rate   = 5e-14
		dt     = 1.66667e-7
		steps  = 250
		spread = 0.08 // ion momentum spread, a tenth of the bulk momentum
	)
	p := scalarParticle{mass: 1, weight: 1.65e16, velocity: 0.2}
	f := scalarFluid{mass: 1, density: 3.3e18, momentum: 0.8}
	src := NewSource(2024)

	for range steps {
		p.exchange(src, rate, dt, &f, spread)
	}

	assert.Less(t, math.Abs(f.momentum+p.mass*p.velocity-0.8-0.2*1.0), 1e-12)
}

func TestSingleParticleExchangeFollowsReference(t *testing.T) {
	const (
		rate  = 5e-14
		dt    = 1.66667e-7
		steps = 250
	)
	p := scalarParticle{mass: 1, weight: 1.65e16, velocity: 0.2}
	f := scalarFluid{mass: 1, density: 3.3e18, momentum: 0.8}
	ref, err := NewReferenceSolver(rate, f.density, 1, 1)
	require.NoError(t, err)
	v, u := ref.Trajectory(dt, steps, p.velocity, f.momentum/f.mass)

	src := NewSource(1)
	for step := 1; step <= steps; step++ {
		p.exchange(src, rate, dt, &f, 0)
		assert.InDelta(t, v[step], p.velocity, 0.01, "step %d", step)
		assert.InDelta(t, u[step], f.momentum/f.mass, 0.01, "step %d", step)
	}
	assert.InDelta(t, 0.5, p.velocity, 1e-4)
}

func TestSingleParticleExchangeClampsWeight(t *testing.T) {
	p := scalarParticle{mass: 1, weight: 2, velocity: 0.2}
	f := scalarFluid{mass: 1, density: 10, momentum: 0.8}

	// rate*dt*density = 5, so the whole weight is exchanged
	p.exchange(NewSource(1), 1, 0.5, &f, 0)

	assert.InDelta(t, 0.8, p.velocity, 1e-15)
	assert.InDelta(t, 0.2, f.momentum, 1e-15)
}

func TestFixedPopulationExchangeFollowsReference(t *testing.T) {
	const (
		rate  = 1.
		dt    = 0.01
		steps = 300
	)
	fluid, err := NewFluidState(1, 2, 1.6, 0.05, 1)
	require.NoError(t, err)
	offsets := []float64{-0.2, -0.15, -0.1, -0.05, 0.05, 0.1, 0.15, 0.2}
	weights := make([]float64, len(offsets))
	velocities := make([]float64, len(offsets))
	for i := range offsets {
		weights[i] = 1. / float64(len(offsets))
		velocities[i] = 0.2 + offsets[i]
	}
	ensemble, err := NewParticleEnsemble(1, weights, velocities)
	require.NoError(t, err)

	ref, err := ReferenceFor(rate, fluid, ensemble)
	require.NoError(t, err)
	v, u := ref.Trajectory(dt, steps, ensemble.MeanVelocity(), fluid.BulkVelocity())
	momentum := fluid.TotalMomentum() + ensemble.Momentum()
	energy := fluid.KineticEnergy() + ensemble.KineticEnergy()

	src := NewSource(8)
	for step := 1; step <= steps; step++ {
		require.NoError(t, fixedPopulationExchange(src, rate, dt, fluid, ensemble, energy))
		assert.InDelta(t, v[step], ensemble.MeanVelocity(), 0.01, "step %d", step)
		assert.InDelta(t, u[step], fluid.BulkVelocity(), 0.01, "step %d", step)
		assert.InEpsilon(t, momentum, fluid.TotalMomentum()+ensemble.Momentum(), 1e-12)
	}
	assert.InDelta(t, ref.Equilibrium(0.2, 0.8), ensemble.MeanVelocity(), 1e-3)
}
