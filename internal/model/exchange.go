package model

import (
	"math"
	"sync"
)

// Exchange summarises one charge-exchange step.
type Exchange struct {
	Rate               float64
	ExchangedWeight    float64
	MomentumToFluid    float64 // carried by neutrals converted to ions
	MomentumToNeutrals float64 // carried by ions converted to neutrals
	EnergyToNeutrals   float64
	Clamped            int
	Appended           int
}

type blockSum struct {
	weight   float64
	momentum float64 // Σ dw_i*v_i, without mass
	clamped  int
}

// ApplyChargeExchange converts rate*dt*density of every particle's weight into
// ions and replaces it with `samples` new macro-particles drawn from the ion
// distribution. Particle i belongs to block i*samples/n; the block's exchanged
// weight becomes the weight of the new particle moving at the block's ion
// sample. Fluid momentum and temperature are updated so that total momentum
// and total kinetic energy are conserved.
func (e *ParticleEnsemble) ApplyChargeExchange(src Source, rate, dt float64, fluid *FluidState, volume float64, samples, threads int) (Exchange, error) {
	if rate < 0 || math.IsNaN(rate) {
		return Exchange{}, invalid("rate must be non-negative, got %v", rate)
	}
	if dt < 0 || math.IsNaN(dt) {
		return Exchange{}, invalid("dt must be non-negative, got %v", dt)
	}
	if !(volume > 0) {
		return Exchange{}, invalid("volume must be positive, got %v", volume)
	}
	if samples < 2 {
		return Exchange{}, ErrTooFewSamples
	}
	ex := Exchange{Rate: rate}

	fraction := rate * dt * fluid.Density()
	n := len(e.weights)
	if fraction == 0 || n == 0 {
		return ex, nil
	}

	ions, err := fluid.SampleIonVelocity(src, samples)
	if err != nil {
		return ex, err
	}

	blocks := make([]blockSum, samples)
	e.depleteBlocks(blocks, fraction, max(threads, 1))

	var momentumOut, momentumIn float64
	for b := range blocks {
		ex.ExchangedWeight += blocks[b].weight
		ex.Clamped += blocks[b].clamped
		momentumOut += blocks[b].momentum
		momentumIn += blocks[b].weight * ions[b]
	}
	for b := range blocks {
		e.weights = append(e.weights, blocks[b].weight)
		e.velocities = append(e.velocities, ions[b])
	}
	ex.Appended = samples
	ex.MomentumToFluid = e.mass * momentumOut
	ex.MomentumToNeutrals = e.mass * momentumIn

	fluid.momentum += e.mass * (momentumOut - momentumIn) / volume

	ensembleBefore := e.kineticEnergy
	fluidBefore := fluid.kineticEnergy
	e.UpdateKineticEnergy()
	e.UpdateTemperature()
	ex.EnergyToNeutrals = e.kineticEnergy - ensembleBefore
	fluidAfter := fluidBefore - ex.EnergyToNeutrals
	fluid.UpdateTemperature(fluidAfter+e.kineticEnergy, e.kineticEnergy)
	return ex, nil
}

// depleteBlocks subtracts dw_i = min(w_i, fraction*w_i) from the first
// len(e.weights) particles and records per-block sums. Blocks are split
// between workers in contiguous ranges; each block is summed by one worker
// so the result does not depend on the worker count.
func (e *ParticleEnsemble) depleteBlocks(blocks []blockSum, fraction float64, threads int) {
	n := len(e.weights)
	samples := len(blocks)
	deplete := func(fromBlock, toBlock int) {
		for b := fromBlock; b < toBlock; b++ {
			lo, hi := b*n/samples, (b+1)*n/samples
			var sum blockSum
			for i := lo; i < hi; i++ {
				w := e.weights[i]
				dw := fraction * w
				if dw >= w {
					dw = w
					if w > 0 {
						sum.clamped++
					}
				}
				sum.weight += dw
				sum.momentum += dw * e.velocities[i]
				e.weights[i] = w - dw
			}
			blocks[b] = sum
		}
	}

	if threads <= 1 || samples < 2*threads {
		deplete(0, samples)
		return
	}
	var wg sync.WaitGroup
	for t := range threads {
		from, to := t*samples/threads, (t+1)*samples/threads
		wg.Add(1)
		go func() {
			defer wg.Done()
			deplete(from, to)
		}()
	}
	wg.Wait()
}
