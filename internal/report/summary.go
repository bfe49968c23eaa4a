package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
	"github.com/wildstyl3r/cxmc/internal/constants"
	"github.com/wildstyl3r/cxmc/internal/model"
	"github.com/wildstyl3r/cxmc/internal/utils"
)

var summaryColumns = []string{
	"model", "run", "steps", "particles",
	"momentum drift", "energy drift",
	"gap start (m/s)", "gap end (m/s)",
	"v tail (m/s)", "v tail 95% (m/s)",
	"T fluid end (eV)",
}

// Summary collects one row per model and writes them, in natural model
// order, into <label>_summary_<run id>.csv.
type Summary struct {
	id   xid.ID
	path string

	mu   sync.Mutex
	rows utils.CSV
}

func NewSummary(outputPath, label string) *Summary {
	s := &Summary{id: xid.New()}
	name := "summary_" + s.id.String() + ".csv"
	if label != "" {
		name = label + "_" + name
	}
	s.path = outputPath + name
	return s
}

func (s *Summary) ID() string {
	return s.id.String()
}

func (s *Summary) Path() string {
	return s.path
}

// tailVelocity is the mean of the last tenth of the neutral mean velocity
// series with its 95% half-width.
func tailVelocity(diagnostics *model.Diagnostics) (mean, halfWidth float64) {
	n := diagnostics.Len()
	tail := diagnostics.EnsembleMeanVelocity[n-max(n/10, 1):]
	if len(tail) < 2 {
		return tail[0], 0
	}
	mean, variance := utils.MeanAndVariance(tail, true)
	return mean, constants.Quantile95 * math.Sqrt(variance/float64(len(tail)))
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func (s *Summary) Add(modelName string, diagnostics *model.Diagnostics) {
	if diagnostics.Len() == 0 {
		return
	}
	last := diagnostics.Len() - 1
	gap := diagnostics.VelocityGap()
	v, dv := tailVelocity(diagnostics)
	row := []string{
		modelName,
		s.ID(),
		strconv.Itoa(last),
		strconv.Itoa(diagnostics.ParticleCount[last]),
		format(diagnostics.MomentumDrift()),
		format(diagnostics.EnergyDrift()),
		format(gap[0]),
		format(gap[last]),
		format(v),
		format(dv),
		format(utils.J2eV(diagnostics.FluidTemperature[last])),
	}
	s.mu.Lock()
	s.rows = append(s.rows, row)
	s.mu.Unlock()
}

func (s *Summary) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Summary) Write(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return utils.WriteAsCSV(w, s.rows, summaryColumns)
}

// Flush writes the summary file. Nothing is written for an empty summary.
func (s *Summary) Flush() error {
	if s.Len() == 0 {
		return nil
	}
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("unable to save summary: %w", err)
	}
	if err := s.Write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// FlushAtExit registers Flush to run on atexit.Exit or atexit.Fatal.
func (s *Summary) FlushAtExit() {
	atexit.Register(func() {
		if err := s.Flush(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	})
}
