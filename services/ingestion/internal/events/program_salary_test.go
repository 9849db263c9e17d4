package events

import (
	"encoding/json"
	"testing"
	"time"

	"tradewages/services/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgramSalaryEvent(t *testing.T) {
	generated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	record := models.ProgramSalaryRecord{
		School:       models.School{UnitID: 227386, Name: "Texas State Technical College", State: "TX"},
		ProgramCode:  "48.0508",
		ProgramTitle: "Welding Technology/Welder",
		Occupations: []models.OccupationWage{
			{
				OccupationCode: "51-4121",
				Weight:         100,
				Observation: &models.SalaryObservation{
					OccupationCode: "51-4121",
					SeriesID:       "OEUS480000000000051412104",
					Year:           2024,
					Period:         "A01",
					PeriodName:     "Annual",
					Value:          48000,
					Unit:           models.WageUnitAnnual,
				},
			},
			{OccupationCode: "51-9199", Weight: 40},
		},
		GeneratedAt: generated,
	}

	event := NewProgramSalaryEvent(record)
	assert.Equal(t, 227386, event.UnitID)
	assert.Equal(t, "48.0508", event.CIPCode)
	assert.Equal(t, generated, event.GeneratedAt)
	require.Len(t, event.Occupations, 2)

	welders := event.Occupations[0]
	require.NotNil(t, welders.Value)
	assert.Equal(t, 48000.0, *welders.Value)
	assert.Equal(t, "USD/year", welders.Unit)
	assert.Equal(t, 2024, welders.Year)

	assert.Nil(t, event.Occupations[1].Value)

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":null`)
}
