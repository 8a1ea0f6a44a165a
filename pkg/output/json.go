package output

import (
	"io"

	json "github.com/goccy/go-json"
	"github.com/iwvelando/hoa-forecast/internal/forecast"
)

// Report is the document written by JSONFormat.
type Report struct {
	Scenarios []forecast.Forecast `json:"scenarios"`
}

// JSONFormat writes the forecasts as an indented JSON document.
func JSONFormat(w io.Writer, results []forecast.Forecast) error {
	if results == nil {
		results = []forecast.Forecast{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(Report{Scenarios: results})
}
