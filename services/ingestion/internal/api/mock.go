package api

import (
	"context"
	"encoding/json"
	"strings"

	"tradewages/services/ingestion/internal/models"
	"tradewages/services/ingestion/internal/series"
)

type mockWage struct {
	annual float64
	hourly float64
}

// Statewide Texas means used when no BLS key is configured.
var mockWages = map[string]mockWage{
	"514121": {annual: 48000, hourly: 23.00},
	"499021": {annual: 52000, hourly: 25.00},
}

// mockSalarySource answers from mockWages. It reads the occupation digits
// and statistic type back out of the fixed-width series identifier.
type mockSalarySource struct{}

func (mockSalarySource) Live() bool {
	return false
}

func (mockSalarySource) FetchSeries(ctx context.Context, seriesIDs []string) (*models.SeriesResponse, error) {
	resp := &models.SeriesResponse{Status: models.RequestSucceeded}
	for _, id := range seriesIDs {
		s := models.Series{SeriesID: id}
		if len(id) == series.IDLength {
			if w, ok := mockWages[id[17:23]]; ok {
				value := w.annual
				if series.IsHourlyStatistic(id[series.IDLength-2:]) {
					value = w.hourly
				}
				s.Data = []models.DataPoint{{
					Year:       "2024",
					Period:     "A01",
					PeriodName: "Annual",
					Latest:     "true",
					Value:      formatValue(value),
				}}
			}
		}
		resp.Results.Series = append(resp.Results.Series, s)
	}
	return resp, nil
}

func formatValue(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

type mockProgram struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// mockProgramSource returns a single school when no Scorecard key is
// configured.
type mockProgramSource struct {
	state string
}

func (mockProgramSource) Live() bool {
	return false
}

func (m mockProgramSource) FetchSchools(ctx context.Context) (*SchoolListing, error) {
	programs, err := json.Marshal([]mockProgram{
		{Code: "48.0508", Title: "Welding Technology/Welder"},
		{Code: "47.0201", Title: "Heating, Air Conditioning, Ventilation and Refrigeration Maintenance Technology/Technician"},
	})
	if err != nil {
		return nil, err
	}
	state := strings.ToUpper(m.state)
	if state == "" {
		state = "TX"
	}
	return &SchoolListing{Schools: []models.SourceSchool{{
		ID:         227386,
		Name:       "Texas State Technical College",
		City:       "Waco",
		State:      state,
		Zip:        "76705",
		URL:        "https://www.tstc.edu",
		Accreditor: "Southern Association of Colleges and Schools Commission on Colleges",
		Programs:   programs,
	}}}, nil
}
