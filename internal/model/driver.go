package model

import (
	"math"

	"github.com/wildstyl3r/cxmc/internal/utils"
)

type Phase int

const (
	Running Phase = iota
	Injecting
	Steady
)

func (p Phase) String() string {
	switch p {
	case Injecting:
		return "INJECTING"
	case Steady:
		return "STEADY"
	default:
		return "RUNNING"
	}
}

// Injection appends one neutral of weight Rate*Dt moving at Velocity after
// every step up to and including UntilStep.
type Injection struct {
	Rate      float64
	Velocity  float64
	UntilStep int
}

// Config is fixed for the lifetime of a Driver. Samples == 0 means one
// sample per initial particle (at least 2); Volume == 0 means the fluid's
// volume.
type Config struct {
	Steps   int
	Dt      float64
	Volume  float64
	Samples int
	Threads int
	Seed    int64
	Rate    RateModel

	CompactEvery int
	CompactFloor float64

	Injection *Injection
}

func (c Config) validate() error {
	if c.Steps < 0 {
		return invalid("negative number of steps: %d", c.Steps)
	}
	if c.Dt < 0 || math.IsNaN(c.Dt) {
		return invalid("dt must be non-negative, got %v", c.Dt)
	}
	if c.Volume < 0 {
		return invalid("volume must be positive, got %v", c.Volume)
	}
	if c.Samples == 1 || c.Samples < 0 {
		return ErrTooFewSamples
	}
	if c.Rate == nil {
		return invalid("no rate model")
	}
	if c.CompactEvery < 0 || c.CompactFloor < 0 {
		return invalid("compaction settings must be non-negative")
	}
	if c.Injection != nil && c.Injection.Rate < 0 {
		return invalid("injection rate must be non-negative, got %v", c.Injection.Rate)
	}
	return nil
}

func (c Config) phaseAt(step int) Phase {
	switch {
	case c.Injection == nil:
		return Running
	case step <= c.Injection.UntilStep:
		return Injecting
	default:
		return Steady
	}
}

type Driver struct {
	config Config
	src    Source
}

// NewDriver seeds its own source from config.Seed when src is nil.
func NewDriver(config Config, src Source) (*Driver, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = NewSource(config.Seed)
	}
	return &Driver{config: config, src: src}, nil
}

func (d *Driver) Config() Config {
	return d.config
}

// Run advances fluid and ensemble Steps times and returns the per-step
// diagnostics, index 0 holding the initial state.
func (d *Driver) Run(fluid *FluidState, ensemble *ParticleEnsemble) (*Diagnostics, error) {
	op := Operator{
		Rate:    d.config.Rate,
		Dt:      d.config.Dt,
		Volume:  d.config.Volume,
		Samples: d.config.Samples,
		Threads: d.config.Threads,
	}
	if op.Volume == 0 {
		op.Volume = fluid.Volume()
	} else if op.Volume != fluid.Volume() {
		return nil, invalid("driver volume %v differs from fluid volume %v", op.Volume, fluid.Volume())
	}
	if op.Samples == 0 {
		op.Samples = max(ensemble.Len(), 2)
	}

	diag := newDiagnostics(d.config.Steps, op.Volume, op.Dt)
	diag.record(0, d.config.phaseAt(0), fluid, ensemble, Exchange{})

	for step := 1; step <= d.config.Steps; step++ {
		phase := d.config.phaseAt(step)
		ex, err := op.Step(d.src, fluid, ensemble)
		if err != nil {
			return diag, &StepError{Step: step, Phase: phase, Err: err}
		}
		if phase == Injecting {
			w := d.config.Injection.Rate * d.config.Dt
			v := d.config.Injection.Velocity
			if err := ensemble.Append(w, v); err != nil {
				return diag, &StepError{Step: step, Phase: phase, Err: err}
			}
			diag.injectedMomentum += ensemble.Mass() * w * v
			diag.injectedEnergy += 0.5 * ensemble.Mass() * w * v * v
		}
		if d.config.CompactEvery > 0 && step%d.config.CompactEvery == 0 {
			op.Compact(fluid, ensemble, d.config.CompactFloor)
		}
		diag.record(step, phase, fluid, ensemble, ex)
	}
	return diag, nil
}

// Diagnostics are per-step snapshots. Injected* hold the cumulative momentum
// and energy added by injection, which the conservation checks subtract.
type Diagnostics struct {
	Volume float64

	Time                  []float64
	Phase                 []Phase
	Rate                  []float64
	FluidMomentum         []float64
	FluidBulkVelocity     []float64
	FluidTemperature      []float64
	FluidKineticEnergy    []float64
	EnsembleMeanVelocity  []float64
	EnsembleMomentum      []float64
	EnsembleKineticEnergy []float64
	EnsembleTemperature   []float64
	ParticleCount         []int
	ClampedCount          []int
	InjectedMomentum      []float64
	InjectedEnergy        []float64

	dt               float64
	injectedMomentum float64
	injectedEnergy   float64
}

func newDiagnostics(steps int, volume, dt float64) *Diagnostics {
	n := steps + 1
	return &Diagnostics{
		Volume:                volume,
		dt:                    dt,
		Time:                  make([]float64, 0, n),
		Phase:                 make([]Phase, 0, n),
		Rate:                  make([]float64, 0, n),
		FluidMomentum:         make([]float64, 0, n),
		FluidBulkVelocity:     make([]float64, 0, n),
		FluidTemperature:      make([]float64, 0, n),
		FluidKineticEnergy:    make([]float64, 0, n),
		EnsembleMeanVelocity:  make([]float64, 0, n),
		EnsembleMomentum:      make([]float64, 0, n),
		EnsembleKineticEnergy: make([]float64, 0, n),
		EnsembleTemperature:   make([]float64, 0, n),
		ParticleCount:         make([]int, 0, n),
		ClampedCount:          make([]int, 0, n),
		InjectedMomentum:      make([]float64, 0, n),
		InjectedEnergy:        make([]float64, 0, n),
	}
}

func (d *Diagnostics) record(step int, phase Phase, fluid *FluidState, ensemble *ParticleEnsemble, ex Exchange) {
	d.Time = append(d.Time, float64(step)*d.dt)
	d.Phase = append(d.Phase, phase)
	d.Rate = append(d.Rate, ex.Rate)
	d.FluidMomentum = append(d.FluidMomentum, fluid.Momentum())
	d.FluidBulkVelocity = append(d.FluidBulkVelocity, fluid.BulkVelocity())
	d.FluidTemperature = append(d.FluidTemperature, fluid.Temperature())
	d.FluidKineticEnergy = append(d.FluidKineticEnergy, fluid.KineticEnergy())
	d.EnsembleMeanVelocity = append(d.EnsembleMeanVelocity, ensemble.MeanVelocity())
	d.EnsembleMomentum = append(d.EnsembleMomentum, ensemble.Momentum())
	d.EnsembleKineticEnergy = append(d.EnsembleKineticEnergy, ensemble.KineticEnergy())
	d.EnsembleTemperature = append(d.EnsembleTemperature, ensemble.Temperature())
	d.ParticleCount = append(d.ParticleCount, ensemble.Len())
	d.ClampedCount = append(d.ClampedCount, ex.Clamped)
	d.InjectedMomentum = append(d.InjectedMomentum, d.injectedMomentum)
	d.InjectedEnergy = append(d.InjectedEnergy, d.injectedEnergy)
}

func (d *Diagnostics) Len() int {
	return len(d.Time)
}

// TotalMomentum is fluid momentum*volume plus ensemble momentum, minus what
// injection brought in.
func (d *Diagnostics) TotalMomentum() []float64 {
	total := make([]float64, d.Len())
	for i := range total {
		total[i] = d.FluidMomentum[i]*d.Volume + d.EnsembleMomentum[i] - d.InjectedMomentum[i]
	}
	return total
}

func (d *Diagnostics) TotalEnergy() []float64 {
	total := make([]float64, d.Len())
	for i := range total {
		total[i] = d.FluidKineticEnergy[i] + d.EnsembleKineticEnergy[i] - d.InjectedEnergy[i]
	}
	return total
}

// MomentumDrift is the largest deviation of the total momentum from its
// initial value, relative to it.
func (d *Diagnostics) MomentumDrift() float64 {
	total := d.TotalMomentum()
	if len(total) == 0 {
		return 0
	}
	return utils.MaxRelativeDeviation(total, total[0])
}

func (d *Diagnostics) EnergyDrift() float64 {
	total := d.TotalEnergy()
	if len(total) == 0 {
		return 0
	}
	return utils.MaxRelativeDeviation(total, total[0])
}

// VelocityGap is |u - v̄| at every recorded step.
func (d *Diagnostics) VelocityGap() []float64 {
	gap := make([]float64, d.Len())
	for i := range gap {
		gap[i] = math.Abs(d.FluidBulkVelocity[i] - d.EnsembleMeanVelocity[i])
	}
	return gap
}
