package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tradewages/common/cache"
	"tradewages/common/cache/memory"
	"tradewages/common/errors"
	"tradewages/services/ingestion/internal/api"
	"tradewages/services/ingestion/internal/config"
	"tradewages/services/ingestion/internal/events"
	"tradewages/services/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	weldersSeries = "OEUS480000000000051412104"
	hvacSeries    = "OEUS480000000000049902104"
)

type fakeProgramSource struct {
	schools    []models.SourceSchool
	pageErrors []error
	err        error
}

func (f *fakeProgramSource) FetchSchools(ctx context.Context) (*api.SchoolListing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.SchoolListing{Schools: f.schools, PageErrors: f.pageErrors}, nil
}

func (f *fakeProgramSource) Live() bool { return true }

type fakeSalarySource struct {
	data    map[string][]models.DataPoint
	failing map[string]bool
	calls   [][]string
}

func (f *fakeSalarySource) FetchSeries(ctx context.Context, ids []string) (*models.SeriesResponse, error) {
	f.calls = append(f.calls, ids)
	for _, id := range ids {
		if f.failing[id] {
			return nil, errors.BatchFetchFailed("upstream timeout", nil)
		}
	}
	resp := &models.SeriesResponse{Status: models.RequestSucceeded}
	for _, id := range ids {
		resp.Results.Series = append(resp.Results.Series, models.Series{SeriesID: id, Data: f.data[id]})
	}
	return resp, nil
}

func (f *fakeSalarySource) Live() bool { return true }

type fakePublisher struct {
	mu      sync.Mutex
	records []models.ProgramSalaryRecord
	runs    []events.RunCompletedEvent
	err     error
}

func (p *fakePublisher) PublishProgramSalary(ctx context.Context, record models.ProgramSalaryRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, record)
	return nil
}

func (p *fakePublisher) PublishRunCompleted(ctx context.Context, event events.RunCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, event)
	return nil
}

func (p *fakePublisher) Close() {}

func school(id int, name string, programs ...string) models.SourceSchool {
	type program struct {
		Code  string `json:"code"`
		Title string `json:"title"`
	}
	list := make([]program, len(programs))
	for i, code := range programs {
		list[i] = program{Code: code, Title: "Program " + code}
	}
	raw, _ := json.Marshal(list)
	return models.SourceSchool{ID: id, Name: name, State: "TX", Programs: raw}
}

func testConfig(t *testing.T, crosswalkCSV string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crosswalk.csv")
	if crosswalkCSV != "" {
		require.NoError(t, os.WriteFile(path, []byte(crosswalkCSV), 0o644))
	}
	return &config.Config{
		State:            "TX",
		StateFIPS:        "48",
		CIPFamilies:      []string{"46", "47", "48"},
		BLSBatchSize:     50,
		BLSBatchDelay:    time.Second,
		BLSAreaType:      "S",
		BLSStatisticType: "04",
		BLSIndustry:      "000000",
		BLSSurveyPrefix:  "OEU",
		CrosswalkPath:    path,
		CrosswalkRollup:  true,
	}
}

func newTestRunner(t *testing.T, cfg *config.Config, programs *fakeProgramSource, salaries *fakeSalarySource, pub *fakePublisher) (*Runner, *[]time.Duration) {
	t.Helper()
	r, err := NewRunner(programs, salaries, pub, zap.NewNop(), cfg, nil)
	require.NoError(t, err)

	var sleeps []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return r, &sleeps
}

func TestRunner_WeldingEndToEnd(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n")
	programs := &fakeProgramSource{schools: []models.SourceSchool{
		school(227386, "Texas State Technical College", "48.0508"),
	}}
	salaries := &fakeSalarySource{data: map[string][]models.DataPoint{
		weldersSeries: {
			{Year: "2023", Period: "A01", PeriodName: "Annual", Value: "47000"},
			{Year: "2024", Period: "A01", PeriodName: "Annual", Value: "48000"},
		},
	}}
	pub := &fakePublisher{}
	runner, sleeps := newTestRunner(t, cfg, programs, salaries, pub)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, salaries.calls, 1)
	assert.Equal(t, []string{weldersSeries}, salaries.calls[0])
	assert.Empty(t, *sleeps)

	require.Len(t, pub.records, 1)
	record := pub.records[0]
	assert.Equal(t, 227386, record.School.UnitID)
	assert.Equal(t, models.ProgramCode("48.0508"), record.ProgramCode)
	require.Len(t, record.Occupations, 1)
	occ := record.Occupations[0]
	assert.Equal(t, models.OccupationCode("51-4121"), occ.OccupationCode)
	assert.Equal(t, 100.0, occ.Weight)
	require.NotNil(t, occ.Observation)
	assert.Equal(t, 48000.0, occ.Observation.Value)
	assert.Equal(t, 2024, occ.Observation.Year)
	assert.Equal(t, models.WageUnitAnnual, occ.Observation.Unit)

	assert.Equal(t, 1, summary.Schools)
	assert.Equal(t, 1, summary.Merge.Matched)
	assert.Equal(t, 1, summary.Merge.WithWageData)
	assert.Equal(t, 1, summary.Published)
	assert.Zero(t, summary.ErrorCount())
	assert.False(t, summary.CrosswalkMock)

	require.Len(t, pub.runs, 1)
	assert.Equal(t, summary.RunID, pub.runs[0].RunID)
	assert.Equal(t, 1, pub.runs[0].Published)
}

func TestRunner_UnmatchedProgram(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n")
	programs := &fakeProgramSource{schools: []models.SourceSchool{
		school(1, "Lone Star", "47.0303"),
	}}
	salaries := &fakeSalarySource{}
	pub := &fakePublisher{}
	runner, _ := newTestRunner(t, cfg, programs, salaries, pub)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, salaries.calls)
	require.Len(t, pub.records, 1)
	assert.Empty(t, pub.records[0].Occupations)
	assert.NotNil(t, pub.records[0].Occupations)
	assert.Equal(t, 1, summary.Merge.Unmatched)
	assert.Zero(t, summary.Batches)
}

func TestRunner_BatchFailureIsolated(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n47.0201,49-9021\n")
	cfg.BLSBatchSize = 1
	programs := &fakeProgramSource{schools: []models.SourceSchool{
		school(227386, "Texas State Technical College", "48.0508", "47.0201"),
	}}
	salaries := &fakeSalarySource{
		data: map[string][]models.DataPoint{
			hvacSeries: {{Year: "2024", Period: "A01", PeriodName: "Annual", Value: "52000"}},
		},
		failing: map[string]bool{weldersSeries: true},
	}
	pub := &fakePublisher{}
	runner, sleeps := newTestRunner(t, cfg, programs, salaries, pub)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, salaries.calls, 2)
	assert.Equal(t, []time.Duration{time.Second}, *sleeps)
	assert.Equal(t, 1, summary.Salary.FailedBatches)
	assert.Equal(t, 1, summary.Errors[errors.ErrTypeBatchFetchFailed])

	require.Len(t, pub.records, 2)
	welding, hvac := pub.records[0], pub.records[1]
	require.Len(t, welding.Occupations, 1)
	assert.Nil(t, welding.Occupations[0].Observation)
	require.Len(t, hvac.Occupations, 1)
	require.NotNil(t, hvac.Occupations[0].Observation)
	assert.Equal(t, 52000.0, hvac.Occupations[0].Observation.Value)
}

func TestRunner_MissingCrosswalkUsesBuiltInRows(t *testing.T) {
	cfg := testConfig(t, "")
	programs := &fakeProgramSource{schools: []models.SourceSchool{
		school(227386, "Texas State Technical College", "48.0508"),
	}}
	pub := &fakePublisher{}
	runner, _ := newTestRunner(t, cfg, programs, &fakeSalarySource{}, pub)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.CrosswalkMock)
	assert.Equal(t, 1, summary.Errors[errors.ErrTypeUpstreamUnavailable])
	require.Len(t, pub.records, 1)
	require.Len(t, pub.records[0].Occupations, 1)
	assert.Equal(t, models.OccupationCode("51-4121"), pub.records[0].Occupations[0].OccupationCode)
}

func TestRunner_RollsUpFourDigitPrograms(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n48.0501,51-4041\n")
	programs := &fakeProgramSource{schools: []models.SourceSchool{
		school(1, "Lone Star", "4805"),
	}}
	pub := &fakePublisher{}
	runner, _ := newTestRunner(t, cfg, programs, &fakeSalarySource{}, pub)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Merge.RolledUp)
	require.Len(t, pub.records, 1)
	assert.Equal(t, models.ProgramCode("48.05"), pub.records[0].ProgramCode)
	assert.Len(t, pub.records[0].Occupations, 2)
}

func TestRunner_ProgramSourceFailure(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n")
	programs := &fakeProgramSource{err: errors.UpstreamUnavailable("no scorecard page could be read", nil)}
	pub := &fakePublisher{}
	runner, _ := newTestRunner(t, cfg, programs, &fakeSalarySource{}, pub)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors[errors.ErrTypeUpstreamUnavailable])
	assert.Zero(t, summary.Schools)
	assert.Empty(t, pub.records)
	require.Len(t, pub.runs, 1)
}

func TestRunner_CountsFailedSchoolPages(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n")
	programs := &fakeProgramSource{
		schools: []models.SourceSchool{school(1, "Lone Star", "48.0508")},
		pageErrors: []error{
			errors.UpstreamUnavailable("scorecard page 1", errors.Internal("unexpected status 502", nil)),
		},
	}
	pub := &fakePublisher{}
	runner, _ := newTestRunner(t, cfg, programs, &fakeSalarySource{}, pub)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors[errors.ErrTypeUpstreamUnavailable])
	assert.Equal(t, 1, summary.Schools)
	assert.Len(t, pub.records, 1)
}

func TestRunner_RecordsSourceFallbacks(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n47.0201,49-9021\n")
	c := memory.New(cache.DefaultOptions())
	defer c.Close()

	salaries, salaryErr := api.NewSalarySource(zap.NewNop(), cfg, c)
	require.Error(t, salaryErr)
	programs, programErr := api.NewProgramSource(zap.NewNop(), cfg, c)
	require.Error(t, programErr)

	pub := &fakePublisher{}
	runner, err := NewRunner(programs, salaries, pub, zap.NewNop(), cfg, nil)
	require.NoError(t, err)
	runner.WithFallbacks(salaryErr, nil, programErr)
	runner.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	for i := 0; i < 2; i++ {
		summary, err := runner.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Errors[errors.ErrTypeUpstreamUnavailable])
		assert.Equal(t, 2, summary.ErrorCount())
		assert.False(t, summary.Live)
		assert.Equal(t, 2, summary.Merge.WithWageData)
	}
	require.Len(t, pub.runs, 2)
	assert.Equal(t, 2, pub.runs[1].Errors[string(errors.ErrTypeUpstreamUnavailable)])
}

func TestRunner_CancellationAbortsRun(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n47.0201,49-9021\n")
	cfg.BLSBatchSize = 1
	programs := &fakeProgramSource{schools: []models.SourceSchool{
		school(227386, "Texas State Technical College", "48.0508", "47.0201"),
	}}
	salaries := &fakeSalarySource{}
	pub := &fakePublisher{}
	runner, _ := newTestRunner(t, cfg, programs, salaries, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, salaries.calls, 1)
	assert.Empty(t, pub.records)
	assert.Empty(t, pub.runs)
}

func TestRunner_StartRunsOnceWithoutInterval(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n")
	programs := &fakeProgramSource{schools: []models.SourceSchool{
		school(227386, "Texas State Technical College", "48.0508"),
	}}
	pub := &fakePublisher{}
	runner, _ := newTestRunner(t, cfg, programs, &fakeSalarySource{}, pub)

	require.NoError(t, runner.Start(context.Background()))
	assert.Len(t, pub.runs, 1)
}

func TestNewRunner_RejectsBatchSize(t *testing.T) {
	cfg := testConfig(t, "")
	for _, size := range []int{0, 51} {
		cfg.BLSBatchSize = size
		_, err := NewRunner(&fakeProgramSource{}, &fakeSalarySource{}, &fakePublisher{}, zap.NewNop(), cfg, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTypeInvalidInput))
	}
}

func TestRunSummary_Render(t *testing.T) {
	cfg := testConfig(t, "CIP Code,SOC Code\n48.0508,51-4121\n47.0201,49-9021\n")
	programs := &fakeProgramSource{schools: []models.SourceSchool{
		school(227386, "Texas State Technical College", "48.0508", "47.0201"),
	}}
	salaries := &fakeSalarySource{data: map[string][]models.DataPoint{
		weldersSeries: {{Year: "2024", Period: "A01", PeriodName: "Annual", Value: "48000"}},
	}}
	var out bytes.Buffer
	runner, err := NewRunner(programs, salaries, &fakePublisher{}, zap.NewNop(), cfg, &out)
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, "state TX")
	assert.Contains(t, report, "51-4121")
	assert.Contains(t, report, "$48,000")
	assert.Contains(t, report, "n/a")
}

func TestFormatWage(t *testing.T) {
	assert.Equal(t, "$48,000", FormatWage(48000, models.WageUnitAnnual))
	assert.Equal(t, "$23.50/hr", FormatWage(23.5, models.WageUnitHourly))
}
