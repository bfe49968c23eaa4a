package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/wildstyl3r/cxmc/internal/model"
	"github.com/wildstyl3r/cxmc/internal/utils"
	"github.com/wildstyl3r/lxgata"
)

var (
	ErrNoModels       = errors.New("no models provided")
	ErrMissingField   = errors.New("required field not found")
	ErrConflictFields = errors.New("conflicting fields")
)

type Config struct {
	OutputDir string
	Models    map[string]ModelParameters
	ModelParameters
	isDefinedMap map[string]struct{}
}

func (c *Config) isDefined(path []string, meta *toml.MetaData) bool {
	if _, sureDefined := c.isDefinedMap[strings.Join(path, "#")]; sureDefined {
		return true
	}
	return meta.IsDefined(path...)
}

// LoadConfig decodes a TOML model file. The ".toml" extension is added when
// the name has none.
func LoadConfig(configFileName string) (Config, toml.MetaData, error) {
	var config Config
	config.isDefinedMap = map[string]struct{}{}
	if filepath.Ext(configFileName) == "" {
		configFileName += ".toml"
	}
	meta, err := toml.DecodeFile(configFileName, &config)
	if err != nil {
		return config, meta, fmt.Errorf("unable to load config %s: %w", configFileName, err)
	}
	if len(config.Models) == 0 {
		return config, meta, ErrNoModels
	}
	if config.OutputDir != "" && !strings.HasSuffix(config.OutputDir, "/") {
		config.OutputDir += "/"
	}
	return config, meta, nil
}

type ModelParameters struct {
	// ion fluid
	IonMass        float64 // [kg]
	IonDensity     float64 // [m^-3]
	IonMomentum    float64 // momentum density [kg m^-2 s^-1]
	IonTemperature float64 // [J]
	Volume         float64 // [m^3]

	// neutral macro-particles
	NeutralMass   float64 // [kg]
	Weights       []float64
	Velocities    []float64
	ParticlesFile string // two columns: weight velocity

	// collisions: either a constant Rate or an LXCat CrossSections file
	Rate          float64 // [m^3 s^-1]
	CrossSections string
	ReducedMass   float64 // [amu]
	EnergyToEV    float64
	RateScale     float64

	Steps        int
	Dt           float64 // [s]
	Samples      int
	Seed         int64
	CompactEvery int
	CompactFloor float64

	InjectionRate     float64 // [s^-1]
	InjectionVelocity float64
	InjectUntilStep   int

	MakeDir bool

	_crossSections *lxgata.Collisions
	_verbose       bool
	_threads       int
}

func (p *ModelParameters) CrossSectionsData() *lxgata.Collisions {
	return p._crossSections
}

func (p *ModelParameters) SetCrossSectionsData(cd *lxgata.Collisions) {
	p._crossSections = cd
}

func (p *ModelParameters) Verbose() bool {
	return p._verbose
}

func (p *ModelParameters) SetVerbosity(verbose bool) {
	p._verbose = verbose
}

func (p *ModelParameters) Threads() int {
	return p._threads
}

func (p *ModelParameters) SetThreads(threads int) {
	p._threads = threads
}

var defaultValues = map[string]any{ // in SI
	"IonMass":      1.,
	"NeutralMass":  1.,
	"Volume":       1.,
	"EnergyToEV":   1.,
	"RateScale":    1.,
	"Seed":         int64(1),
	"CompactFloor": 0.,
	"MakeDir":      true,
}

var requiredFields = []string{"IonDensity", "Steps", "Dt"}

var fieldsXor = map[string][]string{
	"Rate":          {"CrossSections"},
	"CrossSections": {"Rate"},
	"ParticlesFile": {"Weights", "Velocities"},
	"Weights":       {"ParticlesFile"},
	"Velocities":    {"ParticlesFile"},
}

var fieldsAnd = map[string][]string{
	"CrossSections": {"ReducedMass"},
	"Weights":       {"Velocities"},
	"Velocities":    {"Weights"},
	"InjectionRate": {"InjectUntilStep"},
}

/*
field value priority:
1. model table
2. global value
3. default
*/

// Unify fills every field the model table leaves out from the global values
// and then from the defaults, and checks required, paired and exclusive fields.
func (modelConfig *ModelParameters) Unify(modelName string, config *Config, meta *toml.MetaData) error {
	path := []string{"Models", modelName}
	defined := map[string]struct{}{}

	modelConfigReflect := reflect.ValueOf(modelConfig).Elem()
	modelConfigType := modelConfigReflect.Type()
	globalConfigReflect := reflect.ValueOf(&config.ModelParameters).Elem()
	for i := range modelConfigReflect.NumField() {
		field := modelConfigType.Field(i)
		if !field.IsExported() {
			continue
		}
		if config.isDefined(append(path, field.Name), meta) {
			defined[field.Name] = struct{}{}
			continue
		}
		if meta.IsDefined(field.Name) && !excluded(field.Name, defined, path, config, meta) {
			modelConfigReflect.Field(i).Set(globalConfigReflect.Field(i))
			defined[field.Name] = struct{}{}
		}
	}

	for fieldName, value := range defaultValues {
		if _, some := defined[fieldName]; !some {
			modelConfigReflect.FieldByName(fieldName).Set(reflect.ValueOf(value))
		}
	}

	var missing []string
	for _, fieldName := range requiredFields {
		if _, some := defined[fieldName]; !some {
			missing = append(missing, fieldName)
		}
	}
	if _, rate := defined["Rate"]; !rate {
		if _, cs := defined["CrossSections"]; !cs {
			missing = append(missing, "Rate or CrossSections")
		}
	}
	if _, file := defined["ParticlesFile"]; !file {
		if _, inline := defined["Weights"]; !inline {
			missing = append(missing, "ParticlesFile or Weights")
		}
	}
	for fieldName := range defined {
		for _, requirement := range fieldsAnd[fieldName] {
			if _, some := defined[requirement]; !some {
				missing = append(missing, requirement)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("model %s: %w: %v", modelName, ErrMissingField, missing)
	}

	for fieldName := range defined {
		for _, conflict := range fieldsXor[fieldName] {
			if _, some := defined[conflict]; some {
				return fmt.Errorf("model %s: %w: %s and %s", modelName, ErrConflictFields, fieldName, conflict)
			}
		}
	}
	return nil
}

// a global value is not inherited when the model table sets one of its
// exclusive alternatives
func excluded(fieldName string, defined map[string]struct{}, path []string, config *Config, meta *toml.MetaData) bool {
	for _, alternative := range fieldsXor[fieldName] {
		if _, some := defined[alternative]; some {
			return true
		}
		if config.isDefined(append(path, alternative), meta) {
			return true
		}
	}
	return false
}

// LoadCrossSectionsData reads the LXCat table named by CrossSections, if any.
func (p *ModelParameters) LoadCrossSectionsData() error {
	if p.CrossSections == "" {
		return nil
	}
	crossSections, err := lxgata.LoadCrossSections(p.CrossSections)
	if err != nil {
		return fmt.Errorf("invalid cross section file: %w", err)
	}
	p.SetCrossSectionsData(&crossSections)
	return nil
}

func (p *ModelParameters) particles() (weights, velocities []float64, err error) {
	if p.ParticlesFile == "" {
		if len(p.Weights) != len(p.Velocities) {
			return nil, nil, fmt.Errorf("%w: %d weights for %d velocities", model.ErrInvalidConfiguration, len(p.Weights), len(p.Velocities))
		}
		return p.Weights, p.Velocities, nil
	}
	pairs, err := utils.ReadFloatPairs(p.ParticlesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("particles file %s: %w", p.ParticlesFile, err)
	}
	weights = make([]float64, len(pairs))
	velocities = make([]float64, len(pairs))
	for i := range pairs {
		weights[i], velocities[i] = pairs[i][0], pairs[i][1]
	}
	return weights, velocities, nil
}

func (p *ModelParameters) rateModel() (model.RateModel, error) {
	if p.CrossSections == "" {
		return model.ConstantRate(p.Rate), nil
	}
	if p._crossSections == nil {
		if err := p.LoadCrossSectionsData(); err != nil {
			return nil, err
		}
	}
	return model.CrossSectionRate{
		Table:       p._crossSections,
		ReducedMass: utils.AMU2kg(p.ReducedMass),
		EnergyToEV:  p.EnergyToEV,
		RateScale:   p.RateScale,
	}, nil
}

// Build turns unified parameters into the driver configuration and the
// initial fluid and ensemble.
func (p *ModelParameters) Build() (model.Config, *model.FluidState, *model.ParticleEnsemble, error) {
	rate, err := p.rateModel()
	if err != nil {
		return model.Config{}, nil, nil, err
	}
	config := model.Config{
		Steps:        p.Steps,
		Dt:           p.Dt,
		Volume:       p.Volume,
		Samples:      p.Samples,
		Threads:      p.Threads(),
		Seed:         p.Seed,
		Rate:         rate,
		CompactEvery: p.CompactEvery,
		CompactFloor: p.CompactFloor,
	}
	if p.InjectionRate > 0 {
		config.Injection = &model.Injection{
			Rate:      p.InjectionRate,
			Velocity:  p.InjectionVelocity,
			UntilStep: p.InjectUntilStep,
		}
	}

	fluid, err := model.NewFluidState(p.IonMass, p.IonDensity, p.IonMomentum, p.IonTemperature, p.Volume)
	if err != nil {
		return model.Config{}, nil, nil, fmt.Errorf("fluid: %w", err)
	}
	weights, velocities, err := p.particles()
	if err != nil {
		return model.Config{}, nil, nil, err
	}
	ensemble, err := model.NewParticleEnsemble(p.NeutralMass, weights, velocities)
	if err != nil {
		return model.Config{}, nil, nil, fmt.Errorf("neutrals: %w", err)
	}
	return config, fluid, ensemble, nil
}
