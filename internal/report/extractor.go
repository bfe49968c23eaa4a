package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/wildstyl3r/cxmc/internal/config"
	"github.com/wildstyl3r/cxmc/internal/model"
	"github.com/wildstyl3r/cxmc/internal/utils"
)

type DataExtractor struct {
	diagnostics   *model.Diagnostics
	reference     *model.ReferenceSolver
	parameters    *config.ModelParameters
	totalMomentum []float64
	totalEnergy   []float64
}

// NewDataExtractor wraps a finished run. reference may be nil, in which case
// the reference series is skipped.
func NewDataExtractor(diagnostics *model.Diagnostics, reference *model.ReferenceSolver, parameters *config.ModelParameters) *DataExtractor {
	de := DataExtractor{
		diagnostics:   diagnostics,
		reference:     reference,
		parameters:    parameters,
		totalMomentum: diagnostics.TotalMomentum(),
		totalEnergy:   diagnostics.TotalEnergy(),
	}

	if parameters.Verbose() && diagnostics.Len() > 0 {
		last := diagnostics.Len() - 1
		fmt.Printf("particles: %d, momentum drift: %g, energy drift: %g, |u-v|: %g -> %g\n",
			diagnostics.ParticleCount[last],
			diagnostics.MomentumDrift(),
			diagnostics.EnergyDrift(),
			diagnostics.VelocityGap()[0],
			diagnostics.VelocityGap()[last])
	}
	return &de
}

func (de *DataExtractor) rows(output SequentialDataItem) [][]string {
	rows := [][]string{output.columnNames}
	for i := range de.diagnostics.Len() {
		row := []string{strconv.FormatFloat(de.diagnostics.Time[i], 'g', -1, 64)}
		for _, value := range output.values(de, i) {
			row = append(row, strconv.FormatFloat(value, 'g', -1, 64))
		}
		rows = append(rows, row)
	}
	return rows
}

// Save writes every selected series of the run into its own CSV file.
func (de *DataExtractor) Save(modelName string, df DataFlags) error {
	var errs []error
	for _, name := range df.Selected() {
		output := df.sequentials[name]
		if output.available != nil && !output.available(de) {
			if de.parameters.Verbose() {
				fmt.Printf("%s skipped: not available for this run\n", name)
			}
			continue
		}
		file, err := utils.OpenFile(de.parameters.MakeDir, df.outputPath, output.fileSuffix, modelName)
		if err != nil {
			errs = append(errs, fmt.Errorf("unable to save %s: %w", name, err))
			continue
		}
		w := csv.NewWriter(file)
		if err := w.WriteAll(de.rows(output)); err != nil {
			errs = append(errs, fmt.Errorf("error writing %s: %w", name, err))
		}
		if err := file.Close(); err != nil {
			errs = append(errs, err)
		}
		if de.parameters.Verbose() {
			fmt.Println(name + " saved")
		}
	}
	return errors.Join(errs...)
}
