// Package config defines the data structures related to configuration and
// includes functions for loading the config and turning its scenarios into
// projection inputs.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/iwvelando/hoa-forecast/pkg/constants"
	"github.com/iwvelando/hoa-forecast/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for hoa-forecast.
type Configuration struct {
	Association Association   `yaml:"association" mapstructure:"association"`
	Scenarios   []Scenario    `yaml:"scenarios" mapstructure:"scenarios"`
	Logging     LoggingConfig `yaml:"logging,omitempty" mapstructure:"logging"`
	Output      OutputConfig  `yaml:"output,omitempty" mapstructure:"output"`

	// baseDir resolves relative table file paths.
	baseDir string
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json, xlsx
	File   string `yaml:"file,omitempty" mapstructure:"file"`
}

// Association holds the parameters shared by every scenario: the community
// itself, the projection horizon and the baseline tables.
type Association struct {
	Homes               int              `yaml:"homes,omitempty" mapstructure:"homes"`
	StartYear           int              `yaml:"startYear,omitempty" mapstructure:"startYear"`
	HorizonYears        int              `yaml:"horizonYears,omitempty" mapstructure:"horizonYears"`
	OperatingBudget     []LineItem       `yaml:"operatingBudget,omitempty" mapstructure:"operatingBudget"`
	OperatingBudgetFile string           `yaml:"operatingBudgetFile,omitempty" mapstructure:"operatingBudgetFile"`
	CapitalProjects     []CapitalProject `yaml:"capitalProjects,omitempty" mapstructure:"capitalProjects"`
	CapitalProjectsFile string           `yaml:"capitalProjectsFile,omitempty" mapstructure:"capitalProjectsFile"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	configuration, err := decode(v)
	if err != nil {
		return nil, err
	}
	configuration.baseDir = filepath.Dir(configPath)
	return configuration, nil
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
// Relative table file paths resolve against the working directory.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.Association.applyDefaults()
	return &configuration, nil
}

func (a *Association) applyDefaults() {
	if a.Homes == 0 {
		a.Homes = constants.DefaultHomes
	}
	if a.StartYear == 0 {
		a.StartYear = defaultStartYear()
	}
	if a.HorizonYears == 0 {
		a.HorizonYears = constants.DefaultHorizonYears
	}
}

// SimulationYears returns the consecutive years covered by the projection.
func (a Association) SimulationYears() []int {
	years := make([]int, 0, a.HorizonYears)
	for i := 0; i < a.HorizonYears; i++ {
		years = append(years, a.StartYear+i)
	}
	return years
}

// checkHorizon rejects horizons outside the supported range before any
// per-year allocation happens.
func (a Association) checkHorizon() error {
	if a.HorizonYears < constants.MinHorizonYears || a.HorizonYears > constants.MaxHorizonYears {
		return fmt.Errorf("horizon of %d years is outside the supported range %d-%d",
			a.HorizonYears, constants.MinHorizonYears, constants.MaxHorizonYears)
	}
	return nil
}

// ActiveScenarios returns the scenarios flagged as active, in file order.
func (conf *Configuration) ActiveScenarios() []Scenario {
	var active []Scenario
	for _, scenario := range conf.Scenarios {
		if scenario.Active {
			active = append(active, scenario)
		}
	}
	return active
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Problems that make a scenario impossible to project are
// reported as errors by ScenarioConfig instead.
func (conf *Configuration) ValidateConfiguration() []string {
	validator := validation.ConfigValidator{
		FirstYear:    conf.Association.StartYear,
		HorizonYears: conf.Association.HorizonYears,
	}
	if conf.Association.HorizonYears < constants.MinHorizonYears || conf.Association.HorizonYears > constants.MaxHorizonYears {
		validator.Warnings = append(validator.Warnings, fmt.Sprintf("Horizon of %d years is outside the supported range %d-%d",
			conf.Association.HorizonYears, constants.MinHorizonYears, constants.MaxHorizonYears))
	}

	for _, project := range conf.Association.CapitalProjects {
		validator.Projects = append(validator.Projects, validation.ProjectConfig{
			Name: project.Name,
			Year: project.Year,
		})
	}

	for _, scenario := range conf.Scenarios {
		info := validation.ScenarioConfig{
			Name:   scenario.Name,
			Active: scenario.Active,
		}
		if scenario.Dues.IncreaseYears != nil {
			info.DuesIncreaseYears = append(info.DuesIncreaseYears, scenario.Dues.IncreaseYears...)
		}
		if scenario.SpecialAssessment.Value > 0 {
			info.AssessmentYear = scenario.SpecialAssessment.Year
		}
		if scenario.Loan.Amount > 0 {
			info.LoanStartYear = scenario.Loan.StartYear
			if info.LoanStartYear == 0 {
				info.LoanStartYear = conf.Association.StartYear + 1
			}
			info.LoanTermYears = valueOrInt(scenario.Loan.TermYears, constants.DefaultLoanTermYears)
		}
		validator.Scenarios = append(validator.Scenarios, info)
	}

	if len(conf.ActiveScenarios()) == 0 {
		validator.Warnings = append(validator.Warnings, "No active scenarios configured")
	}

	return validator.ValidateAll()
}
