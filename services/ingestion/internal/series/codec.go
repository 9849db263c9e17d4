// Package series builds BLS series identifiers from occupation codes and
// groups them into request batches.
package series

import (
	"fmt"

	"tradewages/common/errors"
	"tradewages/services/ingestion/internal/models"
)

// IDLength is the length of every identifier produced by Codec.
const IDLength = 25

// Segments are the fixed parts of an OES series identifier:
//
//	OEU   survey prefix (OES, not seasonally adjusted)
//	S     area type (statewide)
//	4800000  area code: state FIPS followed by five zeros
//	000000   industry: cross-industry total
//	04    statistic type: annual mean wage
type Segments struct {
	Prefix        string
	AreaType      string
	AreaCode      string
	Industry      string
	StatisticType string
}

// StateSegments returns the statewide annual-mean segments for a two-digit
// state FIPS code.
func StateSegments(fips string) Segments {
	return Segments{
		Prefix:        "OEU",
		AreaType:      "S",
		AreaCode:      fips + "00000",
		Industry:      "000000",
		StatisticType: StatAnnualMean,
	}
}

const (
	StatHourlyMean   = "03"
	StatAnnualMean   = "04"
	StatHourlyMedian = "08"
	StatAnnualMedian = "13"
)

// IsHourlyStatistic reports whether an OES statistic type code is an hourly
// wage: the mean, or the median and the 10th to 90th percentiles.
func IsHourlyStatistic(stat string) bool {
	switch stat {
	case StatHourlyMean, StatHourlyMedian, "09", "10", "11", "12":
		return true
	}
	return false
}

// Unit reports whether the statistic type is an hourly or annual figure.
func (s Segments) Unit() models.WageUnit {
	if IsHourlyStatistic(s.StatisticType) {
		return models.WageUnitHourly
	}
	return models.WageUnitAnnual
}

func (s Segments) validate() error {
	checks := []struct {
		name   string
		value  string
		width  int
		digits bool
	}{
		{"prefix", s.Prefix, 3, false},
		{"area type", s.AreaType, 1, false},
		{"area code", s.AreaCode, 7, true},
		{"industry", s.Industry, 6, true},
		{"statistic type", s.StatisticType, 2, true},
	}
	for _, c := range checks {
		if len(c.value) != c.width {
			return fmt.Errorf("%s %q must be %d characters", c.name, c.value, c.width)
		}
		if c.digits && !isDigits(c.value) {
			return fmt.Errorf("%s %q must be numeric", c.name, c.value)
		}
	}
	return nil
}

// Codec turns occupation codes into series identifiers. It holds no state
// beyond its segments and is safe to share.
type Codec struct {
	segments Segments
	head     string
}

func NewCodec(segments Segments) (*Codec, error) {
	if err := segments.validate(); err != nil {
		return nil, errors.InvalidInput("invalid series segments", err)
	}
	return &Codec{
		segments: segments,
		head:     segments.Prefix + segments.AreaType + segments.AreaCode + segments.Industry,
	}, nil
}

func (c *Codec) Segments() Segments {
	return c.segments
}

// Encode returns the series identifier for code.
func (c *Codec) Encode(code models.OccupationCode) (string, error) {
	digits := code.Digits()
	if len(digits) != 6 || !isDigits(digits) {
		return "", errors.MalformedIdentifier(fmt.Sprintf("occupation code %q does not reduce to six digits", code), nil)
	}
	return c.head + digits + c.segments.StatisticType, nil
}

// Request pairs a series identifier with the occupation it was built from.
type Request struct {
	SeriesID string
	Code     models.OccupationCode
}

// Requests encodes codes in order, skipping repeats. Codes that cannot be
// encoded are left out and reported, one error each.
func (c *Codec) Requests(codes []models.OccupationCode) ([]Request, []error) {
	seen := make(map[models.OccupationCode]struct{}, len(codes))
	reqs := make([]Request, 0, len(codes))
	var errs []error

	for _, code := range codes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}

		id, err := c.Encode(code)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reqs = append(reqs, Request{SeriesID: id, Code: code})
	}
	return reqs, errs
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
