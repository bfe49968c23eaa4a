package report

import (
	"bytes"
	"encoding/csv"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wildstyl3r/cxmc/internal/config"
	"github.com/wildstyl3r/cxmc/internal/model"
)

func newFlags(t *testing.T, args ...string) DataFlags {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	df := NewDataFlags(fs)
	require.NoError(t, fs.Parse(args))
	return df
}

func runModel(t *testing.T, steps int) (*model.Diagnostics, *model.ReferenceSolver) {
	t.Helper()
	fluid, err := model.NewFluidState(1, 10, 5, 0.01, 1)
	require.NoError(t, err)
	ensemble, err := model.NewParticleEnsemble(1, []float64{0.5, 0.5, 0.5, 0.5}, []float64{0, 0, 0, 0})
	require.NoError(t, err)
	reference, err := model.ReferenceFor(0.01, fluid, ensemble)
	require.NoError(t, err)

	driver, err := model.NewDriver(model.Config{Steps: steps, Dt: 0.1, Rate: model.ConstantRate(0.01), Seed: 3}, nil)
	require.NoError(t, err)
	diagnostics, err := driver.Run(fluid, ensemble)
	require.NoError(t, err)
	return diagnostics, reference
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func parse(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}

func TestDataFlagsSelection(t *testing.T) {
	df := newFlags(t, "-ref", "-fm")
	assert.Equal(t, []string{"Fluid momentum", "Reference"}, df.Selected())

	df = newFlags(t)
	assert.Empty(t, df.Selected())

	df = newFlags(t, "-all")
	assert.Len(t, df.Selected(), 9)
}

func TestSetOutputPath(t *testing.T) {
	df := newFlags(t)
	df.SetOutputPath("out")
	assert.Equal(t, "out/", df.GetOutputPath())
	df.SetOutputPath("")
	assert.Equal(t, "", df.GetOutputPath())
}

func TestSaveWritesSelectedSeries(t *testing.T) {
	diagnostics, reference := runModel(t, 20)
	dir := t.TempDir()
	df := newFlags(t, "-fm", "-cons", "-ref")
	df.SetOutputPath(dir)

	de := NewDataExtractor(diagnostics, reference, &config.ModelParameters{MakeDir: true})
	require.NoError(t, de.Save("m1", df))

	rows := readCSV(t, filepath.Join(dir, "fluid_momentum", "m1.csv"))
	require.Len(t, rows, diagnostics.Len()+1)
	assert.Equal(t, []string{"t (s)", "p (kg m^-2 s^-1)", "u (m/s)"}, rows[0])
	assert.Equal(t, "0", rows[1][0])
	assert.Equal(t, "5", rows[1][1])
	assert.InDelta(t, 2., parse(t, rows[21][0]), 1e-12)

	rows = readCSV(t, filepath.Join(dir, "conservation", "m1.csv"))
	p0 := parse(t, rows[1][1])
	for _, row := range rows[2:] {
		assert.InDelta(t, p0, parse(t, row[1]), 1e-12*p0)
	}

	rows = readCSV(t, filepath.Join(dir, "reference", "m1.csv"))
	require.Len(t, rows[1], 5)
	assert.InDelta(t, parse(t, rows[1][1]), parse(t, rows[1][3]), 1e-12)
	assert.InDelta(t, parse(t, rows[1][2]), parse(t, rows[1][4]), 1e-12)

	assert.NoFileExists(t, filepath.Join(dir, "fluid_temperature", "m1.csv"))
}

func TestSaveFlatLayoutAndSkippedReference(t *testing.T) {
	diagnostics, _ := runModel(t, 5)
	dir := t.TempDir()
	df := newFlags(t, "-nt", "-ref")
	df.SetOutputPath(dir)

	de := NewDataExtractor(diagnostics, nil, &config.ModelParameters{MakeDir: false})
	require.NoError(t, de.Save("m1", df))

	assert.FileExists(t, filepath.Join(dir, "m1_neutral_temperature.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "m1_reference.csv"))
}

func TestSaveReportsUnwritableOutput(t *testing.T) {
	diagnostics, _ := runModel(t, 1)
	df := newFlags(t, "-fe")
	df.SetOutputPath(filepath.Join(t.TempDir(), "missing", "deeper"))

	de := NewDataExtractor(diagnostics, nil, &config.ModelParameters{MakeDir: false})
	assert.ErrorContains(t, de.Save("m1", df), "unable to save Fluid energy")
}

func TestSummaryNaturalOrder(t *testing.T) {
	diagnostics, _ := runModel(t, 30)
	s := NewSummary(t.TempDir()+"/", "")
	s.Add("m10", diagnostics)
	s.Add("m2", diagnostics)
	s.Add("m1", diagnostics)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, summaryColumns, rows[0])
	assert.Equal(t, []string{"m1", "m2", "m10"}, []string{rows[1][0], rows[2][0], rows[3][0]})
	assert.Equal(t, s.ID(), rows[1][1])
	assert.Equal(t, "30", rows[1][2])
	assert.Equal(t, strconv.Itoa(diagnostics.ParticleCount[30]), rows[1][3])
}

func TestSummaryFlush(t *testing.T) {
	dir := t.TempDir() + "/"
	s := NewSummary(dir, "models")
	require.NoError(t, s.Flush())
	assert.NoFileExists(t, s.Path())

	diagnostics, _ := runModel(t, 3)
	s.Add("only", diagnostics)
	require.NoError(t, s.Flush())
	rows := readCSV(t, s.Path())
	assert.Len(t, rows, 2)
	assert.Equal(t, "models_summary_"+s.ID()+".csv", filepath.Base(s.Path()))
}

func TestTailVelocity(t *testing.T) {
	diagnostics, _ := runModel(t, 1)
	v, dv := tailVelocity(diagnostics)
	assert.Equal(t, diagnostics.EnsembleMeanVelocity[1], v)
	assert.Zero(t, dv)

	diagnostics, _ = runModel(t, 40)
	v, dv = tailVelocity(diagnostics)
	assert.Greater(t, dv, 0.)
	assert.InDelta(t, diagnostics.EnsembleMeanVelocity[40], v, 10*dv+1e-3)
}
