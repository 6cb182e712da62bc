// Simulation holds the host's current world and advances it turn by turn.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
)

// Simulation owns the authoritative WorldState and replaces it wholesale
// after every turn. Methods are safe for concurrent use; turns are
// serialized.
type Simulation struct {
	mu     sync.Mutex
	engine *TurnEngine
	state  WorldState
	turn   uint64 // Turns played since the simulation was created

	// OnTurn, when set, is called after every turn with the new state.
	// It runs with the simulation locked and must not call back into it.
	OnTurn func(turn uint64, s WorldState, r TurnReport)
}

// SimStats tracks aggregate world statistics.
type SimStats struct {
	Turn       uint64  `json:"turn"`
	Year       int     `json:"year"`
	Season     Season  `json:"season"`
	Population int     `json:"population"` // Alive
	Adults     int     `json:"adults"`
	Deaths     int     `json:"deaths"`
	Water      float64 `json:"water"`
	Fruits     float64 `json:"fruits"`
	AvgHP      float64 `json:"avg_hp"`
	AvgMorale  float64 `json:"avg_morale"`
	HasHearth  bool    `json:"has_hearth"`
}

// NewSimulation creates a Simulation starting from a copy of initial.
func NewSimulation(eng *TurnEngine, initial WorldState) *Simulation {
	return &Simulation{
		engine: eng,
		state:  initial.Clone(),
	}
}

// Step plays one turn.
func (s *Simulation) Step() TurnReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked()
}

// StepYear plays a full year of turns.
func (s *Simulation) StepYear() []TurnReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports := make([]TurnReport, 0, NumSeasons)
	for i := 0; i < NumSeasons; i++ {
		reports = append(reports, s.stepLocked())
	}
	return reports
}

func (s *Simulation) stepLocked() TurnReport {
	next, report := s.engine.AdvanceTurnReport(s.state)
	s.state = next
	s.turn++

	s.logReport(report)
	if s.OnTurn != nil {
		s.OnTurn(s.turn, next, report)
	}
	return report
}

// logReport records notable turn outcomes.
func (s *Simulation) logReport(r TurnReport) {
	slog.Debug("turn",
		"turn", s.turn,
		"year", r.Year,
		"season", SeasonName(r.Season),
		"water_gain", fmt.Sprintf("%.3f", r.WaterGain),
		"fruit_gain", fmt.Sprintf("%.3f", r.FruitGain),
		"research", fmt.Sprintf("%.3f", r.Research),
		"water", fmt.Sprintf("%.3f", s.state.Water()),
		"fruits", fmt.Sprintf("%.3f", s.state.Fruits()),
	)

	if r.Famine {
		slog.Debug("famine: all adults gathering", "turn", s.turn)
	}
	if r.Rained {
		slog.Info("rain", "turn", s.turn, "season", SeasonName(r.Season))
	}
	for _, key := range r.Discovered {
		slog.Info("technology discovered", "turn", s.turn, "year", r.Year, "tech", key)
	}
	if r.HearthLit {
		slog.Info("hearth lit", "turn", s.turn, "year", r.Year)
	}
	for _, name := range r.Deaths {
		slog.Info("death", "turn", s.turn, "year", r.Year, "name", name)
	}
}

// State returns a copy of the current world.
func (s *Simulation) State() WorldState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// CurrentTurn returns the number of turns played.
func (s *Simulation) CurrentTurn() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

// Stats computes aggregate statistics for the current world.
func (s *Simulation) Stats() SimStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SimStats{
		Turn:      s.turn,
		Year:      s.state.Year,
		Season:    s.state.Season,
		Water:     s.state.Water(),
		Fruits:    s.state.Fruits(),
		HasHearth: s.state.HasHearth,
	}

	totalHP, totalMorale := 0, 0
	for _, p := range s.state.People {
		if !p.Alive {
			st.Deaths++
			continue
		}
		st.Population++
		if p.IsAdult() {
			st.Adults++
		}
		totalHP += p.HP
		totalMorale += p.Morale
	}
	if st.Population > 0 {
		st.AvgHP = float64(totalHP) / float64(st.Population)
		st.AvgMorale = float64(totalMorale) / float64(st.Population)
	}
	return st
}
