// Package constants provides shared constants for the hoa-forecast application.
package constants

import "time"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// CurrencyPlaces is the number of decimal places used when exporting amounts
	CurrencyPlaces = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// BalanceEpsilon is the remaining loan balance below which a loan is
	// considered fully repaid.
	BalanceEpsilon = 1e-6
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatXLSX is the spreadsheet output format
	OutputFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultEnvFile is the optional dotenv file loaded before configuration
	DefaultEnvFile = ".env"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "HOA"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultServerReadTimeout bounds how long a request body may take to arrive
	DefaultServerReadTimeout = 30 * time.Second

	// DefaultServerWriteTimeout bounds how long a response may take to write
	DefaultServerWriteTimeout = 60 * time.Second

	// ServerShutdownTimeout is how long in-flight requests get to finish on shutdown
	ServerShutdownTimeout = 5 * time.Second
)

// Scenario defaults used when a configuration leaves a value unset.
const (
	DefaultHomes               = 420
	DefaultHorizonYears        = 5
	MinHorizonYears            = 1
	MaxHorizonYears            = 30
	DefaultOperatingInflation  = 3.0
	DefaultStartingDues        = 300.0
	DefaultDuesIncrease        = 5.0
	DefaultReserveStart        = 1_000_000.0
	DefaultReserveEarnings     = 2.0
	DefaultReserveContribution = 75.0
	DefaultFFBStart            = 1_250_000.0
	DefaultFFBGrowth           = 3.0
	DefaultLoanRate            = 6.5
	DefaultLoanTermYears       = 10
	MaxLoanTermYears           = 50
)

// Preset names
const (
	PresetBase               = "base"
	PresetCatchUp            = "catch-up"
	PresetHighInflation      = "high-inflation"
	PresetAggressiveReserves = "aggressive-reserves"
)

// Mode names accepted in configuration files.
const (
	ContributionModePerHomeMonth = "per-home-month"
	ContributionModeFixedAnnual  = "fixed-annual"
	AssessmentModePerHome        = "per-home"
	AssessmentModeTotal          = "total"
)

