package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"httpconnect/internal/runner"
)

// Header is the column list of the stdout report.
var Header = []string{
	"timestamp", "num_server_sockets", "num_agents",
	"gateway_time_ms", "gateway_latency_ms", "gateway_throughput_ms",
	"request_time_ms", "request_latency_ms", "request_throughput_ms",
}

// Writer emits one semicolon separated row per level and flushes after
// each, so rows show up while the sweep is still running.
type Writer struct {
	w *csv.Writer
}

func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return &Writer{w: cw}
}

func (w *Writer) WriteHeader() error {
	return w.write(Header)
}

func (w *Writer) WriteLevel(r runner.LevelResult) error {
	return w.write(Row(r))
}

func (w *Writer) write(record []string) error {
	if err := w.w.Write(record); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

// Row formats a level result in Header order.
func Row(r runner.LevelResult) []string {
	return []string{
		strconv.FormatInt(r.Timestamp.UnixMilli(), 10),
		strconv.Itoa(r.ServerSockets),
		strconv.Itoa(r.NumAgents),
		formatFloat(r.GatewayTimeMs),
		formatFloat(r.GatewayLatencyMs),
		formatFloat(r.GatewayThroughput),
		formatFloat(r.RequestTimeMs),
		formatFloat(r.RequestLatencyMs),
		formatFloat(r.RequestThroughput),
	}
}

// formatFloat prints the shortest single precision form, e.g. 403.6.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 32)
}
