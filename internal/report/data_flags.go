package report

import (
	"flag"
	"sort"
)

type DataItem struct {
	saveFlag   *bool
	fileSuffix string
}

// SequentialDataItem is a time series: one row per recorded step, the time
// column first.
type SequentialDataItem struct {
	DataItem
	columnNames []string
	values      func(*DataExtractor, int) []float64
	// nil when the series needs nothing beyond the diagnostics
	available func(*DataExtractor) bool
}

type DataFlags struct {
	all         *bool
	sequentials map[string]SequentialDataItem
	outputPath  string
}

// NewDataFlags registers one boolean flag per series on flags.
func NewDataFlags(flags *flag.FlagSet) DataFlags {
	return DataFlags{
		all: flags.Bool("all", false, "save every available series"),
		sequentials: map[string]SequentialDataItem{
			"Fluid momentum": {
				DataItem: DataItem{
					saveFlag:   flags.Bool("fm", false, "save ion momentum density and bulk velocity"),
					fileSuffix: "fluid_momentum",
				},
				columnNames: []string{"t (s)", "p (kg m^-2 s^-1)", "u (m/s)"},
				values: func(de *DataExtractor, i int) []float64 {
					return []float64{de.diagnostics.FluidMomentum[i], de.diagnostics.FluidBulkVelocity[i]}
				},
			},
			"Fluid temperature": {
				DataItem: DataItem{
					saveFlag:   flags.Bool("ft", false, "save ion temperature"),
					fileSuffix: "fluid_temperature",
				},
				columnNames: []string{"t (s)", "T (J)"},
				values: func(de *DataExtractor, i int) []float64 {
					return []float64{de.diagnostics.FluidTemperature[i]}
				},
			},
			"Fluid energy": {
				DataItem: DataItem{
					saveFlag:   flags.Bool("fe", false, "save ion kinetic energy"),
					fileSuffix: "fluid_energy",
				},
				columnNames: []string{"t (s)", "E (J)"},
				values: func(de *DataExtractor, i int) []float64 {
					return []float64{de.diagnostics.FluidKineticEnergy[i]}
				},
			},
			"Neutral velocity": {
				DataItem: DataItem{
					saveFlag:   flags.Bool("nv", false, "save neutral mean velocity and momentum"),
					fileSuffix: "neutral_velocity",
				},
				columnNames: []string{"t (s)", "v (m/s)", "P (kg m s^-1)"},
				values: func(de *DataExtractor, i int) []float64 {
					return []float64{de.diagnostics.EnsembleMeanVelocity[i], de.diagnostics.EnsembleMomentum[i]}
				},
			},
			"Neutral energy": {
				DataItem: DataItem{
					saveFlag:   flags.Bool("ne", false, "save neutral kinetic energy"),
					fileSuffix: "neutral_energy",
				},
				columnNames: []string{"t (s)", "E (J)"},
				values: func(de *DataExtractor, i int) []float64 {
					return []float64{de.diagnostics.EnsembleKineticEnergy[i]}
				},
			},
			"Neutral temperature": {
				DataItem: DataItem{
					saveFlag:   flags.Bool("nt", false, "save neutral temperature"),
					fileSuffix: "neutral_temperature",
				},
				columnNames: []string{"t (s)", "T (J)"},
				values: func(de *DataExtractor, i int) []float64 {
					return []float64{de.diagnostics.EnsembleTemperature[i]}
				},
			},
			"Neutral population": {
				DataItem: DataItem{
					saveFlag:   flags.Bool("np", false, "save macro-particle count and clamped exchanges"),
					fileSuffix: "neutral_population",
				},
				columnNames: []string{"t (s)", "particles", "clamped"},
				values: func(de *DataExtractor, i int) []float64 {
					return []float64{float64(de.diagnostics.ParticleCount[i]), float64(de.diagnostics.ClampedCount[i])}
				},
			},
			"Conservation": {
				DataItem: DataItem{
					saveFlag:   flags.Bool("cons", false, "save total momentum and energy"),
					fileSuffix: "conservation",
				},
				columnNames: []string{"t (s)", "P total (kg m s^-1)", "E total (J)"},
				values: func(de *DataExtractor, i int) []float64 {
					return []float64{de.totalMomentum[i], de.totalEnergy[i]}
				},
			},
			"Reference": {
				DataItem: DataItem{
					saveFlag:   flags.Bool("ref", false, "save velocities next to the analytic relaxation"),
					fileSuffix: "reference",
				},
				columnNames: []string{"t (s)", "v (m/s)", "u (m/s)", "v exact (m/s)", "u exact (m/s)"},
				values: func(de *DataExtractor, i int) []float64 {
					v, u := de.reference.At(de.diagnostics.Time[i], de.diagnostics.EnsembleMeanVelocity[0], de.diagnostics.FluidBulkVelocity[0])
					return []float64{de.diagnostics.EnsembleMeanVelocity[i], de.diagnostics.FluidBulkVelocity[i], v, u}
				},
				available: func(de *DataExtractor) bool { return de.reference != nil },
			},
		},
	}
}

func (df *DataFlags) SetOutputPath(path string) {
	if path != "" && path[len(path)-1] != '/' {
		df.outputPath = path + "/"
	} else {
		df.outputPath = path
	}
}

func (df *DataFlags) GetOutputPath() string {
	return df.outputPath
}

// Selected lists the series that will be saved, in name order.
func (df *DataFlags) Selected() (names []string) {
	for name, item := range df.sequentials {
		if *item.saveFlag || *df.all {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
