package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iwvelando/hoa-forecast/pkg/projection"
)

// LineItem is one row of the baseline operating budget.
type LineItem struct {
	Category     string  `yaml:"category" mapstructure:"category"`
	AnnualAmount float64 `yaml:"annualAmount" mapstructure:"annualAmount"`
}

// CapitalProject is one row of the capital project plan. PhasePercent defaults
// to 100 when omitted.
type CapitalProject struct {
	Year         int      `yaml:"year" mapstructure:"year"`
	Name         string   `yaml:"name" mapstructure:"name"`
	Cost         float64  `yaml:"cost" mapstructure:"cost"`
	PhasePercent *float64 `yaml:"phasePercent,omitempty" mapstructure:"phasePercent"`
}

// DefaultOperatingBudget returns the sample baseline operating budget used
// when the configuration provides none.
func DefaultOperatingBudget() []LineItem {
	return []LineItem{
		{Category: "Landscaping", AnnualAmount: 380_000},
		{Category: "Water & Irrigation", AnnualAmount: 240_000},
		{Category: "Insurance", AnnualAmount: 220_000},
		{Category: "Utilities (Electric/Gas)", AnnualAmount: 105_000},
		{Category: "Management & Admin", AnnualAmount: 125_000},
		{Category: "Staffing (Ops & Golf)", AnnualAmount: 210_000},
		{Category: "Repairs & Maintenance", AnnualAmount: 140_000},
		{Category: "Pool Ops & Chemicals", AnnualAmount: 60_000},
		{Category: "Tennis/Pickleball/Basketball", AnnualAmount: 30_000},
		{Category: "Clubhouse Ops", AnnualAmount: 55_000},
		{Category: "Security/Access Control", AnnualAmount: 45_000},
		{Category: "Contingency", AnnualAmount: 35_000},
	}
}

// DefaultCapitalProjects returns the sample capital plan for the given
// horizon: an irrigation overhaul in the second year and half of a creek
// stabilization in the third. Short horizons fall back to the nearest year.
func DefaultCapitalProjects(years []int) []CapitalProject {
	if len(years) == 0 {
		return nil
	}
	second := years[0]
	if len(years) > 1 {
		second = years[1]
	}
	third := years[len(years)-1]
	if len(years) > 2 {
		third = years[2]
	}
	return []CapitalProject{
		{Year: second, Name: "Golf Irrigation Overhaul", Cost: 1_200_000, PhasePercent: floatPtr(100)},
		{Year: third, Name: "Creek Stabilization Phase 1", Cost: 1_250_000, PhasePercent: floatPtr(50)},
	}
}

// LoadTables reads the table files named by the association, resolving
// relative paths against the configuration file's directory, and fills in
// the sample tables for anything still empty. File contents replace inline
// rows.
func (conf *Configuration) LoadTables() error {
	assoc := &conf.Association

	if assoc.OperatingBudgetFile != "" {
		f, err := os.Open(conf.resolvePath(assoc.OperatingBudgetFile))
		if err != nil {
			return fmt.Errorf("failed to open operating budget file: %w", err)
		}
		items, err := ParseOperatingBudgetCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse operating budget file %s: %w", assoc.OperatingBudgetFile, err)
		}
		assoc.OperatingBudget = items
	}

	if assoc.CapitalProjectsFile != "" {
		f, err := os.Open(conf.resolvePath(assoc.CapitalProjectsFile))
		if err != nil {
			return fmt.Errorf("failed to open capital projects file: %w", err)
		}
		projects, err := ParseCapitalProjectsCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse capital projects file %s: %w", assoc.CapitalProjectsFile, err)
		}
		assoc.CapitalProjects = projects
	}

	if len(assoc.OperatingBudget) == 0 {
		assoc.OperatingBudget = DefaultOperatingBudget()
	}
	if len(assoc.CapitalProjects) == 0 {
		if err := assoc.checkHorizon(); err != nil {
			return err
		}
		assoc.CapitalProjects = DefaultCapitalProjects(assoc.SimulationYears())
	}
	return nil
}

// UsesTableFiles reports whether the association reads either table from disk.
func (conf *Configuration) UsesTableFiles() bool {
	return conf.Association.OperatingBudgetFile != "" || conf.Association.CapitalProjectsFile != ""
}

func (conf *Configuration) resolvePath(path string) string {
	if filepath.IsAbs(path) || conf.baseDir == "" {
		return path
	}
	return filepath.Join(conf.baseDir, path)
}

func (conf *Configuration) operatingBudget() []projection.LineItem {
	items := make([]projection.LineItem, 0, len(conf.Association.OperatingBudget))
	for _, item := range conf.Association.OperatingBudget {
		items = append(items, projection.LineItem{Category: item.Category, AnnualAmount: item.AnnualAmount})
	}
	return items
}

func (conf *Configuration) capitalProjects() []projection.CapitalProject {
	projects := make([]projection.CapitalProject, 0, len(conf.Association.CapitalProjects))
	for _, p := range conf.Association.CapitalProjects {
		projects = append(projects, projection.CapitalProject{
			Year:         p.Year,
			Name:         p.Name,
			Cost:         p.Cost,
			PhasePercent: valueOr(p.PhasePercent, 100),
		})
	}
	return projects
}

// ParseOperatingBudgetCSV reads an operating budget with the columns
// Category and AnnualAmountUSD. Header names are matched case-insensitively
// and extra columns are ignored.
func ParseOperatingBudgetCSV(r io.Reader) ([]LineItem, error) {
	header, records, err := readTable(r)
	if err != nil {
		return nil, err
	}
	category, err := header.require("Category")
	if err != nil {
		return nil, err
	}
	amount, err := header.require("AnnualAmountUSD")
	if err != nil {
		return nil, err
	}

	items := make([]LineItem, 0, len(records))
	for i, record := range records {
		value, err := parseAmount(record[amount])
		if err != nil {
			return nil, fmt.Errorf("row %d: AnnualAmountUSD: %w", i+2, err)
		}
		items = append(items, LineItem{
			Category:     strings.TrimSpace(record[category]),
			AnnualAmount: value,
		})
	}
	return items, nil
}

// ParseCapitalProjectsCSV reads a capital plan with the columns Year,
// Project, CostUSD and an optional PhasePercent. A blank phase means 100.
func ParseCapitalProjectsCSV(r io.Reader) ([]CapitalProject, error) {
	header, records, err := readTable(r)
	if err != nil {
		return nil, err
	}
	yearCol, err := header.require("Year")
	if err != nil {
		return nil, err
	}
	nameCol, err := header.require("Project")
	if err != nil {
		return nil, err
	}
	costCol, err := header.require("CostUSD")
	if err != nil {
		return nil, err
	}
	phaseCol, hasPhase := header["phasepercent"]

	projects := make([]CapitalProject, 0, len(records))
	for i, record := range records {
		row := i + 2
		year, err := strconv.Atoi(strings.TrimSpace(record[yearCol]))
		if err != nil {
			return nil, fmt.Errorf("row %d: Year: %w", row, err)
		}
		cost, err := parseAmount(record[costCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: CostUSD: %w", row, err)
		}
		project := CapitalProject{
			Year: year,
			Name: strings.TrimSpace(record[nameCol]),
			Cost: cost,
		}
		if hasPhase && strings.TrimSpace(record[phaseCol]) != "" {
			phase, err := parseAmount(strings.TrimSuffix(strings.TrimSpace(record[phaseCol]), "%"))
			if err != nil {
				return nil, fmt.Errorf("row %d: PhasePercent: %w", row, err)
			}
			project.PhasePercent = &phase
		}
		projects = append(projects, project)
	}
	return projects, nil
}

type tableHeader map[string]int

func (h tableHeader) require(name string) (int, error) {
	idx, ok := h[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("missing required column %q", name)
	}
	return idx, nil
}

func readTable(r io.Reader) (tableHeader, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("table is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	header := make(tableHeader, len(first))
	for i, name := range first {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		header[name] = i
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return header, records, nil
}

func parseAmount(s string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if cleaned == "" {
		return 0, nil
	}
	return strconv.ParseFloat(cleaned, 64)
}
