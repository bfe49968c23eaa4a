package model

// Operator is the collision step: the only place where the fluid and the
// ensemble are mutated together.
type Operator struct {
	Rate    RateModel
	Dt      float64
	Volume  float64
	Samples int
	Threads int
}

func (op Operator) Step(src Source, fluid *FluidState, ensemble *ParticleEnsemble) (Exchange, error) {
	rate := op.Rate.RateAt(fluid, ensemble)
	return ensemble.ApplyChargeExchange(src, rate, op.Dt, fluid, op.Volume, op.Samples, op.Threads)
}

// Compact merges light particles and returns the energy they lost to the
// fluid as heat. Without ions there is nothing to take that heat, so only
// zero weights are dropped.
func (op Operator) Compact(fluid *FluidState, ensemble *ParticleEnsemble, floor float64) float64 {
	if fluid.Particles() == 0 {
		return ensemble.Compact(0)
	}
	total := fluid.KineticEnergy() + ensemble.KineticEnergy()
	removed := ensemble.Compact(floor)
	fluid.UpdateTemperature(total, ensemble.KineticEnergy())
	return removed
}
