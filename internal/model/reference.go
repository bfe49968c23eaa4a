package model

import (
	"gonum.org/v1/gonum/mat"
)

// ReferenceSolver is the closed-form linear relaxation of a neutral mean
// velocity v and an ion bulk velocity u under a constant exchange frequency
// λ = rate·n:
//
//	d/dt [v u] = λ [[-1, 1], [r, -r]] [v u],  r = N_n/N_f
//
// For r = 1 this is the single-particle oracle.
type ReferenceSolver struct {
	lambda float64
	ratio  float64
	a      *mat.Dense
}

func NewReferenceSolver(rate, fluidDensity, fluidParticles, neutralParticles float64) (*ReferenceSolver, error) {
	if rate < 0 || fluidDensity < 0 {
		return nil, invalid("rate and density must be non-negative")
	}
	if !(fluidParticles > 0) || neutralParticles < 0 {
		return nil, invalid("particle numbers must be positive, got %v ions and %v neutrals", fluidParticles, neutralParticles)
	}
	lambda := rate * fluidDensity
	r := neutralParticles / fluidParticles
	return &ReferenceSolver{
		lambda: lambda,
		ratio:  r,
		a: mat.NewDense(2, 2, []float64{
			-lambda, lambda,
			lambda * r, -lambda * r,
		}),
	}, nil
}

// ReferenceFor builds the solver from the current state of a run.
func ReferenceFor(rate float64, fluid *FluidState, ensemble *ParticleEnsemble) (*ReferenceSolver, error) {
	return NewReferenceSolver(rate, fluid.Density(), fluid.Particles(), ensemble.TotalWeight())
}

func (s *ReferenceSolver) Frequency() float64 {
	return s.lambda
}

// At returns v(t) and u(t) starting from v0 and u0.
func (s *ReferenceSolver) At(t, v0, u0 float64) (v, u float64) {
	var scaled, propagator mat.Dense
	scaled.Scale(t, s.a)
	propagator.Exp(&scaled)
	var x mat.VecDense
	x.MulVec(&propagator, mat.NewVecDense(2, []float64{v0, u0}))
	return x.AtVec(0), x.AtVec(1)
}

// Trajectory samples At on steps+1 points spaced by dt.
func (s *ReferenceSolver) Trajectory(dt float64, steps int, v0, u0 float64) (v, u []float64) {
	v = make([]float64, steps+1)
	u = make([]float64, steps+1)
	for i := range v {
		v[i], u[i] = s.At(float64(i)*dt, v0, u0)
	}
	return
}

// Equilibrium is the common velocity both species relax to.
func (s *ReferenceSolver) Equilibrium(v0, u0 float64) float64 {
	return (s.ratio*v0 + u0) / (1 + s.ratio)
}
