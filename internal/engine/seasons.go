// Season calendar and seasonal yield modifiers.
package engine

import "fmt"

// Season is the quarter of the year a turn is played in.
type Season uint8

// Seasons in calendar order. A year starts in Winter.
const (
	SeasonWinter Season = iota
	SeasonSpring
	SeasonSummer
	SeasonAutumn
)

// NumSeasons is the number of turns in a year.
const NumSeasons = 4

// SeasonName returns a human-readable season name.
func SeasonName(season Season) string {
	switch season {
	case SeasonWinter:
		return "Winter"
	case SeasonSpring:
		return "Spring"
	case SeasonSummer:
		return "Summer"
	case SeasonAutumn:
		return "Autumn"
	default:
		return "Unknown"
	}
}

// String implements fmt.Stringer.
func (s Season) String() string { return SeasonName(s) }

// MarshalText implements encoding.TextMarshaler.
func (s Season) MarshalText() ([]byte, error) {
	if s >= NumSeasons {
		return nil, fmt.Errorf("unknown season %d", s)
	}
	return []byte(SeasonName(s)), nil
}

// UnmarshalText parses a season name.
func (s *Season) UnmarshalText(text []byte) error {
	for i := Season(0); i < NumSeasons; i++ {
		if SeasonName(i) == string(text) {
			*s = i
			return nil
		}
	}
	return fmt.Errorf("unknown season %q", string(text))
}

// Next returns the following season, wrapping Autumn back to Winter.
func (s Season) Next() Season {
	return (s + 1) % NumSeasons
}

// SeasonalYieldMod returns the gathering multiplier for a season.
// Lean in winter, richest in summer.
func SeasonalYieldMod(season Season) float64 {
	switch season {
	case SeasonWinter:
		return 0.7
	case SeasonSpring:
		return 1.0
	case SeasonSummer:
		return 1.2
	case SeasonAutumn:
		return 1.1
	}
	return 1.0
}
