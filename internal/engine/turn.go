// Turn advancement: the fixed per-season pipeline that maps one world
// snapshot to the next.
package engine

import (
	"fmt"

	"github.com/talgya/civsim/internal/agents"
)

// Tunables for the turn pipeline.
const (
	NeedSafe     = 0.20 // Per-person water and fruit need in safety mode
	NeedStandard = 0.25

	gatherBaseRate   = 1.2
	gatherSkillRate  = 0.5
	gatherEffort     = 1.2
	waterYieldScale  = 0.5
	fruitYieldScale  = 0.42
	fruitYieldFloor  = 0.02 // Per gatherer
	researchRate     = 0.25 * 0.6
	observeSkillRate = 0.5
	passiveResearch  = 0.05

	agingPerTurn = 0.25 // Years

	rainThreshold = 0.6
	rainBonus     = 0.6
)

// TurnEngine advances a WorldState by one season. It holds only its
// configuration; every call is a pure function of its input.
type TurnEngine struct {
	Safety bool // Lower consumption need (0.20 instead of 0.25)
}

// NewTurnEngine creates an engine. Safety selects the lower per-person need.
func NewTurnEngine(safety bool) *TurnEngine {
	return &TurnEngine{Safety: safety}
}

// Need returns the per-person, per-turn water and fruit requirement.
func (e *TurnEngine) Need() float64 {
	if e.Safety {
		return NeedSafe
	}
	return NeedStandard
}

// TurnReport summarizes what happened during one turn.
type TurnReport struct {
	Year      int     `json:"year"`
	Season    Season  `json:"season"` // Season the turn was played in
	WaterGain float64 `json:"water_gain"`
	FruitGain float64 `json:"fruit_gain"`
	Research  float64 `json:"research"` // Progress applied this turn, passive included
	Rained    bool    `json:"rained"`

	Famine     bool     `json:"famine"` // Every adult was sent gathering
	Discovered []string `json:"discovered,omitempty"`
	HearthLit  bool     `json:"hearth_lit,omitempty"`
	Deaths     []string `json:"deaths,omitempty"`

	Roles [agents.NumRoles]int `json:"roles"` // Living people per role after assignment
}

// AdvanceTurn returns the world one season later.
func (e *TurnEngine) AdvanceTurn(s WorldState) WorldState {
	next, _ := e.AdvanceTurnReport(s)
	return next
}

// AdvanceTurnReport returns the world one season later together with a
// report of the turn. s is not modified.
func (e *TurnEngine) AdvanceTurnReport(s WorldState) (WorldState, TurnReport) {
	report := TurnReport{Year: s.Year, Season: s.Season}

	assigned, famine := e.assignRoles(s)
	report.Famine = famine
	for _, p := range assigned.People {
		if p.Alive && int(p.Role) < len(report.Roles) {
			report.Roles[p.Role]++
		}
	}

	acted, waterGain, fruitGain := e.performActions(assigned)
	report.WaterGain, report.FruitGain = waterGain, fruitGain

	researched, progress := e.research(acted)
	report.Research = progress
	if researched.Obs.Discovered && !acted.Obs.Discovered {
		report.Discovered = append(report.Discovered, researched.Obs.Key)
	}
	if researched.Fire.Discovered && !acted.Fire.Discovered {
		report.Discovered = append(report.Discovered, researched.Fire.Key)
	}
	report.HearthLit = researched.HasHearth && !acted.HasHearth

	deposited := e.deposit(researched, waterGain, fruitGain)

	consumed := e.consumeAndAge(deposited)
	for i, p := range consumed.People {
		if deposited.People[i].Alive && !p.Alive {
			report.Deaths = append(report.Deaths, p.Name)
		}
	}

	evented := e.seasonalEvent(consumed)
	report.Rained = evented.Water() > consumed.Water()

	logged := e.logTurn(evented, waterGain, fruitGain)
	return e.advance(logged), report
}

// assignRoles puts every adult to work. When water or fruit is short of two
// turns of adult need, all adults gather; otherwise the first adult in
// population order researches and the rest gather. Minors and the dead keep
// their role.
func (e *TurnEngine) assignRoles(s WorldState) (WorldState, bool) {
	need := e.Need()
	adults := s.AdultCount()
	threshold := 2 * need * float64(adults)
	famine := s.Water() < threshold || s.Fruits() < threshold

	people := make([]agents.Person, len(s.People))
	rank := 0
	for i, p := range s.People {
		if p.IsAdult() {
			if rank == 0 && !famine {
				p.Role = agents.RoleResearch
			} else {
				p.Role = agents.RoleGather
			}
			rank++
		}
		people[i] = p
	}

	s.People = people
	return s, famine
}

// performActions totals what the living gatherers bring in this turn.
// People are not changed.
func (e *TurnEngine) performActions(s WorldState) (WorldState, float64, float64) {
	seasonMult := SeasonalYieldMod(s.Season)
	area := s.Tile.ExploredPct()

	var waterGain, fruitGain float64
	for _, p := range s.People {
		if !p.Alive || p.Role != agents.RoleGather {
			continue
		}
		base := gatherBaseRate + gatherSkillRate*float64(p.Skills.Gather)
		e := agents.Energy(p)
		// Scale first, then area, energy, effort and season, in that order,
		// so results are reproducible bit for bit.
		waterGain += base * waterYieldScale * area * e * gatherEffort * seasonMult
		fruitGain += max(fruitYieldFloor, base*fruitYieldScale*area*e*gatherEffort*seasonMult)
	}
	return s, waterGain, fruitGain
}

// research applies this turn's progress to the first undiscovered tech:
// Observation, then Controlled Fire. Only one tech advances per turn and
// surplus does not carry over.
func (e *TurnEngine) research(s WorldState) (WorldState, float64) {
	total := passiveResearch
	for _, p := range s.People {
		if p.Alive && p.Role == agents.RoleResearch {
			total += researchRate * agents.Energy(p) * (1 + observeSkillRate*float64(p.Skills.Observe))
		}
	}

	switch {
	case !s.Obs.Discovered:
		s.Obs = advanceTech(s.Obs, total)
	case !s.Fire.Discovered:
		s.Fire = advanceTech(s.Fire, total)
	}
	s.HasHearth = s.HasHearth || s.Fire.Discovered
	return s, total
}

func advanceTech(t Tech, amount float64) Tech {
	t.Progress += amount
	t.Discovered = t.Progress >= t.Complexity
	return t
}

// deposit adds the gathered water and fruit to the stockpile.
func (e *TurnEngine) deposit(s WorldState, water, fruit float64) WorldState {
	s.Inventory[ResourceWater] += water
	s.Inventory[ResourceFruits] += fruit
	return s
}

// consumeAndAge feeds the living in population order from the shared
// stockpile. Whoever finds a stock short of need loses 1 hp and 1 morale
// for it; earlier people are served first. Everyone alive ages a season.
// The dead are skipped.
func (e *TurnEngine) consumeAndAge(s WorldState) WorldState {
	need := e.Need()
	inv := s.Inventory
	people := make([]agents.Person, len(s.People))

	for i, p := range s.People {
		if !p.Alive {
			people[i] = p
			continue
		}
		for _, res := range [...]Resource{ResourceWater, ResourceFruits} {
			if inv[res] >= need {
				inv[res] -= need
			} else {
				p.HP = max(0, p.HP-1)
				p.Morale = max(0, p.Morale-1)
			}
		}
		p.Age += agingPerTurn
		p.Alive = p.HP > 0
		people[i] = p
	}

	s.People = people
	s.Inventory = inv
	return s
}

// seasonalEvent brings rain whenever water is nearly gone.
func (e *TurnEngine) seasonalEvent(s WorldState) WorldState {
	if s.Water() >= rainThreshold {
		return s
	}
	s.Inventory[ResourceWater] += rainBonus
	s.Log = appendLog(s.Log, fmt.Sprintf("%s: Rain (+%.1f water)", s.Season, rainBonus))
	return s
}

// logTurn appends the turn summary line.
func (e *TurnEngine) logTurn(s WorldState, water, fruit float64) WorldState {
	line := fmt.Sprintf("Y%d %s | Water+%.2f Fruits+%.2f | Stock W%.2f F%.2f | OBS %.1f/%.1f FIRE %.1f/%.1f",
		s.Year, s.Season,
		water, fruit,
		s.Water(), s.Fruits(),
		s.Obs.Progress, s.Obs.Complexity,
		s.Fire.Progress, s.Fire.Complexity,
	)
	s.Log = appendLog(s.Log, line)
	return s
}

// advance moves the calendar one season, starting a new year on Winter.
func (e *TurnEngine) advance(s WorldState) WorldState {
	s.Season = s.Season.Next()
	if s.Season == SeasonWinter {
		s.Year++
	}
	return s
}

// appendLog returns a new slice holding log plus line, keeping only the
// most recent MaxLogLines entries. log itself is never written to.
func appendLog(log []string, line string) []string {
	start := 0
	if len(log)+1 > MaxLogLines {
		start = len(log) + 1 - MaxLogLines
	}
	out := make([]string, 0, len(log)-start+1)
	out = append(out, log[start:]...)
	return append(out, line)
}
