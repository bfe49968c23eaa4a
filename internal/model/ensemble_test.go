package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticleEnsembleValidation(t *testing.T) {
	_, err := NewParticleEnsemble(0, []float64{1}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewParticleEnsemble(1, []float64{1, -1e-30}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewParticleEnsemble(1, []float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	e, err := NewParticleEnsemble(1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, 0., e.MeanVelocity())
	assert.Equal(t, 0., e.Temperature())
}

func TestEnsembleMoments(t *testing.T) {
	e, err := NewParticleEnsemble(2, []float64{1, 1}, []float64{1, 3})
	require.NoError(t, err)

	assert.InDelta(t, 10., e.KineticEnergy(), 1e-15)
	assert.InDelta(t, 2., e.MeanVelocity(), 1e-15)
	assert.InDelta(t, 8., e.Momentum(), 1e-15)
	assert.InDelta(t, 2., e.Temperature(), 1e-14)
}

func TestEnsembleOwnsItsSlices(t *testing.T) {
	weights := []float64{1, 2}
	e, err := NewParticleEnsemble(1, weights, []float64{0, 0})
	require.NoError(t, err)

	weights[0] = 100
	got := e.Weights()
	got[1] = 100
	assert.Equal(t, []float64{1, 2}, e.Weights())
}

func TestEnsembleAppend(t *testing.T) {
	e, err := NewParticleEnsemble(1, []float64{1}, []float64{0})
	require.NoError(t, err)

	require.NoError(t, e.Append(1, 2))
	assert.Equal(t, 2, e.Len())
	assert.InDelta(t, 2., e.KineticEnergy(), 1e-15)
	assert.InDelta(t, 1., e.MeanVelocity(), 1e-15)

	assert.ErrorIs(t, e.Append(-1, 0), ErrInvalidConfiguration)
	assert.Equal(t, 2, e.Len())
}

func TestCompactConservesWeightAndMomentum(t *testing.T) {
	e, err := NewParticleEnsemble(3, []float64{1, 0, 0.01, 0.01}, []float64{1, 5, 2, 4})
	require.NoError(t, err)
	weight, momentum := e.TotalWeight(), e.Momentum()

	removed := e.Compact(0.1)

	assert.Equal(t, 2, e.Len())
	assert.InDelta(t, weight, e.TotalWeight(), 1e-15)
	assert.InDelta(t, momentum, e.Momentum(), 1e-14)
	assert.InDeltaSlice(t, []float64{1, 3}, e.Velocities(), 1e-15)
	assert.InDelta(t, 0.5*3*(0.01*4+0.01*16-0.02*9), removed, 1e-14)
}

func TestCompactWithoutLightParticlesOnlyDropsZeros(t *testing.T) {
	e, err := NewParticleEnsemble(1, []float64{1, 0, 2}, []float64{1, 9, 3})
	require.NoError(t, err)

	removed := e.Compact(0)

	assert.Equal(t, []float64{1, 2}, e.Weights())
	assert.Equal(t, []float64{1, 3}, e.Velocities())
	assert.InDelta(t, 0., removed, 1e-15)
}
