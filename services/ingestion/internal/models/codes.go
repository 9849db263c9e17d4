package models

import (
	"fmt"
	"strings"
)

// ProgramCode is a CIP code in canonical dotted form: "48", "48.05" or
// "48.0508".
type ProgramCode string

// OccupationCode is a SOC code in canonical hyphenated form, e.g. "51-4121".
type OccupationCode string

// NoMatchOccupation is the placeholder the NCES crosswalk uses for programs
// that map to no occupation.
const NoMatchOccupation OccupationCode = "99-9999"

// cleanCode strips whitespace, quotes and the ="..." wrapper spreadsheet
// exports put around codes with leading zeros.
func cleanCode(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "=")
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseProgramCode accepts "48.0508", "480508", "48.05", "4805", "48" and
// "1.0101" (family with its leading zero dropped).
func ParseProgramCode(raw string) (ProgramCode, error) {
	s := cleanCode(raw)
	if s == "" {
		return "", fmt.Errorf("empty program code")
	}

	var family, rest string
	if i := strings.IndexByte(s, '.'); i >= 0 {
		family, rest = s[:i], s[i+1:]
		if len(family) == 1 {
			family = "0" + family
		}
		if len(family) != 2 || !allDigits(family) {
			return "", fmt.Errorf("invalid program code %q", raw)
		}
		if rest != "" && (!allDigits(rest) || (len(rest) != 2 && len(rest) != 4)) {
			return "", fmt.Errorf("invalid program code %q", raw)
		}
	} else {
		if !allDigits(s) {
			return "", fmt.Errorf("invalid program code %q", raw)
		}
		switch len(s) {
		case 2, 4, 6:
			family, rest = s[:2], s[2:]
		default:
			return "", fmt.Errorf("invalid program code %q", raw)
		}
	}

	if rest == "" {
		return ProgramCode(family), nil
	}
	return ProgramCode(family + "." + rest), nil
}

// Family returns the two-digit CIP family.
func (c ProgramCode) Family() string {
	if len(c) < 2 {
		return string(c)
	}
	return string(c[:2])
}

// Series returns the four-digit level of the code ("48.05" for "48.0508").
// Family-level codes are returned unchanged.
func (c ProgramCode) Series() ProgramCode {
	if len(c) > 5 {
		return c[:5]
	}
	return c
}

func (c ProgramCode) IsDetail() bool {
	return len(c) == 7
}

// Contains reports whether other sits at or below c in the CIP hierarchy.
func (c ProgramCode) Contains(other ProgramCode) bool {
	if c == other {
		return true
	}
	return len(other) > len(c) && strings.HasPrefix(string(other), string(c))
}

// ParseOccupationCode accepts "51-4121" and "514121".
func ParseOccupationCode(raw string) (OccupationCode, error) {
	s := cleanCode(raw)
	switch {
	case len(s) == 7 && s[2] == '-' && allDigits(s[:2]) && allDigits(s[3:]):
		return OccupationCode(s), nil
	case len(s) == 6 && allDigits(s):
		return OccupationCode(s[:2] + "-" + s[2:]), nil
	}
	return "", fmt.Errorf("invalid occupation code %q", raw)
}

// Digits returns the code with its separator removed.
func (c OccupationCode) Digits() string {
	return strings.ReplaceAll(string(c), "-", "")
}

func (c OccupationCode) Major() string {
	if len(c) < 2 {
		return string(c)
	}
	return string(c[:2])
}
