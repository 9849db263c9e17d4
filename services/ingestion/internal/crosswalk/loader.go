package crosswalk

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"tradewages/common/errors"
	"tradewages/common/telemetry"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("tradewages/ingestion/crosswalk")

// DefaultWeight is assigned to every row when the file carries no weight
// column, as the published NCES CIP2020-SOC2018 file does not.
const DefaultWeight = "100"

type columns struct {
	program    int
	occupation int
	weight     int
}

func locateColumns(header []string) (columns, error) {
	cols := columns{program: -1, occupation: -1, weight: -1}
	for i, name := range header {
		n := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		switch {
		case cols.program < 0 && strings.Contains(n, "cip") && strings.Contains(n, "code"):
			cols.program = i
		case cols.occupation < 0 && strings.Contains(n, "soc") && strings.Contains(n, "code"):
			cols.occupation = i
		case cols.weight < 0 && (strings.Contains(n, "weight") || strings.Contains(n, "percent") || strings.Contains(n, "confidence")):
			cols.weight = i
		}
	}
	if cols.program < 0 || cols.occupation < 0 {
		return cols, fmt.Errorf("header %v lacks CIP and SOC code columns", header)
	}
	return cols, nil
}

// ReadRows parses a crosswalk CSV. A line that fails to parse is returned
// as a row with empty codes so the resolver reports it. An unreadable header
// or a failure of r itself fails the whole read.
func ReadRows(ctx context.Context, r io.Reader, logger *zap.Logger) ([]Row, error) {
	_, span := tracer.Start(ctx, "crosswalk.ReadRows")
	defer span.End()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		span.RecordError(err)
		return nil, errors.InvalidInput("reading crosswalk header", err)
	}
	cols, err := locateColumns(header)
	if err != nil {
		span.RecordError(err)
		return nil, errors.InvalidInput("locating crosswalk columns", err)
	}

	var rows []Row
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !stderrors.As(err, &parseErr) {
				span.RecordError(err)
				return nil, errors.UpstreamUnavailable(fmt.Sprintf("reading crosswalk line %d", line), err)
			}
			logger.Warn("unreadable crosswalk line", zap.Int("line", line), zap.Error(err))
			rows = append(rows, Row{Line: line})
			continue
		}
		if isBlank(record) {
			continue
		}

		row := Row{Line: line, Weight: DefaultWeight}
		row.Program = field(record, cols.program)
		row.Occupation = field(record, cols.occupation)
		if cols.weight >= 0 {
			row.Weight = field(record, cols.weight)
		}
		rows = append(rows, row)
	}

	span.SetAttributes(telemetry.Int("crosswalk.rows", len(rows)))
	logger.Info("read crosswalk rows", zap.Int("rows", len(rows)), zap.Bool("weighted", cols.weight >= 0))
	return rows, nil
}

// LoadFile reads the crosswalk at path and builds a Resolver from it.
func LoadFile(ctx context.Context, path string, logger *zap.Logger) (*Resolver, BuildStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, BuildStats{}, errors.UpstreamUnavailable("opening crosswalk file", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("failed to close crosswalk file", zap.Error(cerr))
		}
	}()

	rows, err := ReadRows(ctx, f, logger)
	if err != nil {
		return nil, BuildStats{}, err
	}
	resolver, stats := Build(rows, logger)
	return resolver, stats, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
