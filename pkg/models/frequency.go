package models

import "fmt"

// FrequencyMode is a per-user pace preference that scales computed review
// intervals. It is read at schedule time and has no other lifecycle.
type FrequencyMode string

const (
	FrequencyIntensive FrequencyMode = "intensive"
	FrequencyNormal    FrequencyMode = "normal"
	FrequencyRelaxed   FrequencyMode = "relaxed"
)

// IsValid reports whether m is a known frequency mode.
func (m FrequencyMode) IsValid() bool {
	switch m {
	case FrequencyIntensive, FrequencyNormal, FrequencyRelaxed:
		return true
	}
	return false
}

// ParseFrequencyMode converts a stored or submitted string into a mode.
func ParseFrequencyMode(s string) (FrequencyMode, error) {
	m := FrequencyMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown frequency mode %q", s)
	}
	return m, nil
}
