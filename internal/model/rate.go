package model

import "math"

// RateModel gives the charge-exchange rate coefficient for the coming step.
// One value applies to every particle within a step.
type RateModel interface {
	RateAt(fluid *FluidState, ensemble *ParticleEnsemble) float64
}

type ConstantRate float64

func (r ConstantRate) RateAt(*FluidState, *ParticleEnsemble) float64 {
	return float64(r)
}

// CrossSectionTable is satisfied by *lxgata.Collisions.
type CrossSectionTable interface {
	TotalCrossSectionAt(energy float64) float64
}

// CrossSectionRate evaluates σ(E)·v_rel·RateScale at the mean relative speed
// of ions and neutrals, v_rel² = (u-v̄)² + T_f/m_f + T_n/m_n, with the
// collision energy E = ½·μ·v_rel²·EnergyToEV in the table's units.
type CrossSectionRate struct {
	Table       CrossSectionTable
	ReducedMass float64
	EnergyToEV  float64
	RateScale   float64
}

func (r CrossSectionRate) RelativeSpeed(fluid *FluidState, ensemble *ParticleEnsemble) float64 {
	drift := fluid.BulkVelocity() - ensemble.MeanVelocity()
	spread := max(fluid.Temperature(), 0)/fluid.Mass() + max(ensemble.Temperature(), 0)/ensemble.Mass()
	return math.Sqrt(drift*drift + spread)
}

func (r CrossSectionRate) RateAt(fluid *FluidState, ensemble *ParticleEnsemble) float64 {
	speed := r.RelativeSpeed(fluid, ensemble)
	if speed == 0 {
		return 0
	}
	energy := 0.5 * r.ReducedMass * speed * speed * r.EnergyToEV
	return r.Table.TotalCrossSectionAt(energy) * speed * r.RateScale
}
