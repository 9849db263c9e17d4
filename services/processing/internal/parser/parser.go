// Package parser turns bus messages into ClickHouse rows.
package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tradewages/common/errors"
	"tradewages/services/processing/internal/models"

	"github.com/google/uuid"
)

var (
	cipPattern   = regexp.MustCompile(`^\d{2}(\.\d{2}(\d{2})?)?$`)
	socPattern   = regexp.MustCompile(`^\d{2}-\d{4}$`)
	statePattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

var namespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func generateUUID(parts ...string) string {
	return uuid.NewSHA1(namespace, []byte(strings.Join(parts, "|"))).String()
}

// ProgramSalaryID is the row id of a (school, program) pair. It is stable
// across runs so re-runs replace rather than duplicate.
func ProgramSalaryID(unitID int, cipCode string) string {
	return generateUUID(strconv.Itoa(unitID), cipCode)
}

func OccupationWageID(state, socCode string) string {
	return generateUUID(state, socCode)
}

// ParseProgramSalary decodes and validates one event and returns its
// program_salaries row together with one occupation_wages row per
// occupation that carries a wage.
func ParseProgramSalary(data []byte, now time.Time) (*models.ProgramSalaryRow, []models.OccupationWageRow, error) {
	var event models.ProgramSalaryEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, nil, errors.InvalidInput("decoding program salary event", err)
	}
	if err := validate(&event); err != nil {
		return nil, nil, err
	}

	state := strings.ToUpper(strings.TrimSpace(event.State))
	row := &models.ProgramSalaryRow{
		ID:           ProgramSalaryID(event.UnitID, event.CIPCode),
		UnitID:       uint32(event.UnitID),
		SchoolName:   strings.TrimSpace(event.SchoolName),
		City:         event.City,
		State:        state,
		Zip:          event.Zip,
		Website:      event.Website,
		Accreditor:   event.Accreditor,
		CIPCode:      event.CIPCode,
		ProgramTitle: strings.TrimSpace(event.ProgramTitle),
		SOCCodes:     make([]string, 0, len(event.Occupations)),
		Weights:      make([]float64, 0, len(event.Occupations)),
		Wages:        make([]*float64, 0, len(event.Occupations)),
		WageUnits:    make([]string, 0, len(event.Occupations)),
		WageYears:    make([]uint16, 0, len(event.Occupations)),
		WagePeriods:  make([]string, 0, len(event.Occupations)),
		SeriesIDs:    make([]string, 0, len(event.Occupations)),
		Matched:      len(event.Occupations) > 0,
		GeneratedAt:  event.GeneratedAt.UTC(),
		UpdatedAt:    now.UTC(),
	}
	if row.GeneratedAt.IsZero() {
		row.GeneratedAt = row.UpdatedAt
	}

	var wages []models.OccupationWageRow
	for _, o := range event.Occupations {
		row.SOCCodes = append(row.SOCCodes, o.SOCCode)
		row.Weights = append(row.Weights, o.Weight)
		row.Wages = append(row.Wages, o.Value)
		row.WageUnits = append(row.WageUnits, o.Unit)
		row.WageYears = append(row.WageYears, uint16(o.Year))
		row.WagePeriods = append(row.WagePeriods, o.Period)
		row.SeriesIDs = append(row.SeriesIDs, o.SeriesID)

		if o.Value == nil {
			continue
		}
		row.HasWageData = true
		wages = append(wages, models.OccupationWageRow{
			ID:         OccupationWageID(state, o.SOCCode),
			State:      state,
			SOCCode:    o.SOCCode,
			SeriesID:   o.SeriesID,
			Year:       uint16(o.Year),
			Period:     o.Period,
			PeriodName: o.PeriodName,
			Value:      *o.Value,
			Unit:       o.Unit,
			UpdatedAt:  row.UpdatedAt,
		})
	}

	return row, wages, nil
}

func validate(event *models.ProgramSalaryEvent) error {
	if event.UnitID <= 0 || int64(event.UnitID) > math.MaxUint32 {
		return errors.InvalidInput(fmt.Sprintf("unit_id %d out of range", event.UnitID), nil)
	}
	if !cipPattern.MatchString(event.CIPCode) {
		return errors.MalformedIdentifier(fmt.Sprintf("cip_code %q", event.CIPCode), nil)
	}
	if !statePattern.MatchString(strings.ToUpper(strings.TrimSpace(event.State))) {
		return errors.InvalidInput(fmt.Sprintf("state %q", event.State), nil)
	}
	for _, o := range event.Occupations {
		if !socPattern.MatchString(o.SOCCode) {
			return errors.MalformedIdentifier(fmt.Sprintf("soc_code %q", o.SOCCode), nil)
		}
		if o.Value != nil && (math.IsNaN(*o.Value) || *o.Value < 0) {
			return errors.InvalidInput(fmt.Sprintf("wage %v for %s", *o.Value, o.SOCCode), nil)
		}
		if o.Year < 0 || o.Year > math.MaxUint16 {
			return errors.InvalidInput(fmt.Sprintf("year %d for %s", o.Year, o.SOCCode), nil)
		}
	}
	return nil
}

// ParseRunCompleted decodes a run summary message.
func ParseRunCompleted(data []byte) (*models.RunCompletedEvent, error) {
	var event models.RunCompletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, errors.InvalidInput("decoding run summary", err)
	}
	return &event, nil
}
