package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"httpconnect/internal/runner"
)

// ExportCSV writes the level rows plus per-agent percentiles to filename.
func ExportCSV(results []runner.LevelResult, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'

	header := append(append([]string{}, Header...),
		"samples", "gateway_p50_ms", "gateway_p99_ms",
		"request_p50_ms", "request_p99_ms", "request_mean_ms", "request_max_ms",
	)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		record := append(Row(r),
			strconv.Itoa(r.Samples),
			formatFloat(r.GatewayP50Ms),
			formatFloat(r.GatewayP99Ms),
			formatFloat(r.RequestP50Ms),
			formatFloat(r.RequestP99Ms),
			formatFloat(r.RequestMeanMs),
			formatFloat(r.RequestMaxMs),
		)
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Summary is the JSON export document.
type Summary struct {
	ID        string               `json:"id,omitempty"`
	StartedAt time.Time            `json:"started_at"`
	Config    runner.Config        `json:"config"`
	Error     string               `json:"error,omitempty"`
	Results   []runner.LevelResult `json:"results"`
}

// ExportJSON exports the sweep to a JSON file.
func ExportJSON(s Summary, filename string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
