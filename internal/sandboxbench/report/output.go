package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/armadaproject/sandboxbench/internal/common/sandboxerrors"
)

type Formatter func(interface{}) ([]byte, error)

var (
	YamlFormatter Formatter = yaml.Marshal
	JsonFormatter Formatter = func(v interface{}) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}
)

// Format selects the encoding of written reports.
type Format string

const (
	FormatYaml Format = "yaml"
	FormatJson Format = "json"
)

func (f *Format) UnmarshalText(text []byte) error {
	switch v := Format(strings.ToLower(string(text))); v {
	case FormatYaml, FormatJson:
		*f = v
		return nil
	}
	return &sandboxerrors.ErrInvalidArgument{
		Name:    "reportFormat",
		Value:   string(text),
		Message: "must be one of yaml, json",
	}
}

func (f Format) Formatter() Formatter {
	if f == FormatJson {
		return JsonFormatter
	}
	return YamlFormatter
}

func (s *Summary) Print(out io.Writer) {
	_, _ = fmt.Fprintf(out, "\nSummary of the last %d cycles (%d run, %d failed):\n", s.Window, s.Cycles, s.Failures)
	if len(s.Statistics) == 0 {
		_, _ = fmt.Fprintf(out, "  No operations recorded\n")
		return
	}
	_, _ = fmt.Fprintf(out, "  %-22s %5s %8s %8s %8s %8s %8s %8s %8s\n",
		"operation", "count", "min", "p50", "p95", "p99", "max", "mean", "stddev")
	for _, ps := range s.Statistics {
		stats := ps.Statistics
		_, _ = fmt.Fprintf(out, "  %-22s %5d %7.2fs %7.2fs %7.2fs %7.2fs %7.2fs %7.2fs %7.2fs\n",
			ps.Phase, stats.Count, stats.Min, stats.P50, stats.P95, stats.P99, stats.Max, stats.Average, stats.StandardDeviation)
	}
}

func (s *Summary) Generate(formatter Formatter) ([]byte, error) {
	if formatter == nil {
		formatter = YamlFormatter
	}
	return formatter(s)
}

// WriteFile writes the generated summary to path, replacing any previous content.
func (s *Summary) WriteFile(path string, formatter Formatter) error {
	b, err := s.Generate(formatter)
	if err != nil {
		return errors.WithStack(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp, path))
}
