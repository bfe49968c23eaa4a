package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/facette/natsort"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"github.com/wildstyl3r/cxmc/internal/config"
	"github.com/wildstyl3r/cxmc/internal/model"
	"github.com/wildstyl3r/cxmc/internal/report"
	"github.com/wildstyl3r/cxmc/internal/utils"
)

var (
	configFileName string
	verbose        bool
	threads        int
	dataFlags      report.DataFlags
)

var rootCmd = &cobra.Command{
	Use:   "cxmc",
	Short: "Charge exchange between an ion fluid and neutral macro-particles",
	Long: `cxmc runs every model of a TOML file: an ion fluid and a weighted
neutral population exchange momentum and energy through charge-exchange
collisions. Selected time series go to CSV files, one summary row per model
goes to <input>_summary_<run id>.csv.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	dataFlags = report.NewDataFlags(flag.CommandLine)
	rootCmd.Flags().StringVarP(&configFileName, "input", "i", "models", "model configuration in toml format")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print per-model details")
	rootCmd.Flags().IntVar(&threads, "threads", runtime.NumCPU(), "workers per exchange step")
	rootCmd.Flags().AddGoFlagSet(flag.CommandLine)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func run() error {
	startTime := time.Now()
	fmt.Printf("Current time: %s\n", startTime.UTC().Format(time.UnixDate))

	cfg, meta, err := config.LoadConfig(configFileName)
	if err != nil {
		return err
	}

	if cfg.OutputDir != "" && cfg.OutputDir != "./" {
		if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
			return fmt.Errorf("unable to create output dir: %w", err)
		}
		dataFlags.SetOutputPath(cfg.OutputDir)
	}

	summary := report.NewSummary(dataFlags.GetOutputPath(), utils.GetFilename(configFileName))
	summary.FlushAtExit()

	modelNames := make([]string, 0, len(cfg.Models))
	for modelName := range cfg.Models {
		modelNames = append(modelNames, modelName)
	}
	sort.Slice(modelNames, func(i, j int) bool {
		return natsort.Compare(modelNames[i], modelNames[j])
	})

	for _, modelName := range modelNames {
		parameters := cfg.Models[modelName]
		fmt.Println("\n" + modelName)
		if err := parameters.Unify(modelName, &cfg, &meta); err != nil {
			fmt.Println(err)
			continue
		}
		parameters.SetVerbosity(verbose)
		parameters.SetThreads(threads)

		diagnostics, reference, err := runModel(&parameters)
		if err != nil {
			fmt.Println(err)
			// a failed step still leaves the steps before it
			if diagnostics == nil || diagnostics.Len() < 2 {
				continue
			}
		}
		summary.Add(modelName, diagnostics)
		de := report.NewDataExtractor(diagnostics, reference, &parameters)
		if err := de.Save(modelName, dataFlags); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	if verbose {
		fmt.Printf("Summary: %s\n", summary.Path())
	}
	fmt.Printf("Elapsed time: %v\n", time.Since(startTime))
	return nil
}

func runModel(parameters *config.ModelParameters) (*model.Diagnostics, *model.ReferenceSolver, error) {
	modelConfig, fluid, ensemble, err := parameters.Build()
	if err != nil {
		return nil, nil, err
	}
	driver, err := model.NewDriver(modelConfig, nil)
	if err != nil {
		return nil, nil, err
	}

	var reference *model.ReferenceSolver
	if rate, constant := modelConfig.Rate.(model.ConstantRate); constant && modelConfig.Injection == nil {
		reference, err = model.ReferenceFor(float64(rate), fluid, ensemble)
		if err != nil && parameters.Verbose() {
			fmt.Printf("no reference solution: %v\n", err)
		}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go spin(done, stopped)
	diagnostics, err := driver.Run(fluid, ensemble)
	close(done)
	<-stopped
	return diagnostics, reference, err
}

func spin(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	status := []string{"//", "==", "\\\\", "||"}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for counter := 0; ; counter++ {
		select {
		case <-done:
			print("\r")
			return
		case <-ticker.C:
			print("\r" + status[counter&0b11])
		}
	}
}
