package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/civsim/internal/agents"
	"github.com/talgya/civsim/internal/world"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func startingWorld() WorldState {
	aeon := agents.NewPerson("Aeon", agents.SexMale, 18)
	aeon.Role = agents.RoleGather
	naiara := agents.NewPerson("Naiara", agents.SexFemale, 18)
	naiara.Role = agents.RoleResearch
	return NewWorldState([]agents.Person{aeon, naiara})
}

func TestAdvanceTurn_StartingScenario(t *testing.T) {
	eng := NewTurnEngine(true)
	s := startingWorld()

	next := eng.AdvanceTurn(s)

	if next.Season != SeasonSpring || next.Year != 0 {
		t.Fatalf("calendar = %s year %d, want Spring year 0", next.Season, next.Year)
	}

	// The first adult researches, the second gathers.
	if next.People[0].Role != agents.RoleResearch {
		t.Fatalf("people[0].Role = %s, want Research", next.People[0].Role)
	}
	if next.People[1].Role != agents.RoleGather {
		t.Fatalf("people[1].Role = %s, want Gather", next.People[1].Role)
	}

	energy := agents.Energy(s.People[0]) // 0.86 at default vitals
	if !approx(energy, 0.86) {
		t.Fatalf("energy = %v, want 0.86", energy)
	}
	wantObs := 0.05 + 0.25*0.6*energy
	if !approx(next.Obs.Progress, wantObs) {
		t.Fatalf("OBS progress = %v, want %v", next.Obs.Progress, wantObs)
	}
	if next.Fire.Progress != 0 {
		t.Fatalf("FIRE progress = %v, want 0", next.Fire.Progress)
	}

	// One Winter gatherer on a 10% explored tile.
	yield := 1.2 * 0.1 * energy * 1.2 * 0.7
	wantWater := 1.0 + yield*0.5 - 2*0.20
	wantFruits := 1.0 + yield*0.42 - 2*0.20
	if !approx(next.Water(), wantWater) {
		t.Fatalf("water = %v, want %v", next.Water(), wantWater)
	}
	if !approx(next.Fruits(), wantFruits) {
		t.Fatalf("fruits = %v, want %v", next.Fruits(), wantFruits)
	}

	for i, p := range next.People {
		if p.Age != 18.25 {
			t.Errorf("people[%d].Age = %v, want 18.25", i, p.Age)
		}
		if p.HP != 100 || p.Morale != 72 || !p.Alive {
			t.Errorf("people[%d] vitals changed: hp=%d morale=%d alive=%t", i, p.HP, p.Morale, p.Alive)
		}
	}

	if len(next.Log) != 2 {
		t.Fatalf("log length = %d, want 2 (opening + turn)", len(next.Log))
	}
}

func TestAdvanceTurn_DoesNotModifyInput(t *testing.T) {
	eng := NewTurnEngine(true)
	s := startingWorld()
	before := s.Clone()

	_ = eng.AdvanceTurn(s)

	for i := range s.People {
		if s.People[i] != before.People[i] {
			t.Fatalf("input people[%d] modified: %+v, want %+v", i, s.People[i], before.People[i])
		}
	}
	if len(s.Log) != len(before.Log) || s.Inventory != before.Inventory || s.Obs != before.Obs {
		t.Fatalf("input state modified")
	}
}

func TestAssignRoles(t *testing.T) {
	child := agents.NewPerson("Kid", agents.SexFemale, 9)
	child.Role = agents.RoleScout
	dead := agents.NewPerson("Gone", agents.SexMale, 30)
	dead.Alive = false
	dead.HP = 0
	dead.Role = agents.RoleEducate
	a1 := agents.NewPerson("First", agents.SexMale, 25)
	a2 := agents.NewPerson("Second", agents.SexFemale, 40)

	tests := []struct {
		name   string
		water  float64
		fruits float64
		want   []agents.Role
		famine bool
	}{
		{"ample", 5, 5, []agents.Role{agents.RoleScout, agents.RoleEducate, agents.RoleResearch, agents.RoleGather}, false},
		{"low water", 0.79, 5, []agents.Role{agents.RoleScout, agents.RoleEducate, agents.RoleGather, agents.RoleGather}, true},
		{"low fruits", 5, 0.5, []agents.Role{agents.RoleScout, agents.RoleEducate, agents.RoleGather, agents.RoleGather}, true},
		{"exactly threshold", 0.8, 0.8, []agents.Role{agents.RoleScout, agents.RoleEducate, agents.RoleResearch, agents.RoleGather}, false},
	}

	eng := NewTurnEngine(true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWorldState([]agents.Person{child, dead, a1, a2})
			s.Inventory[ResourceWater] = tt.water
			s.Inventory[ResourceFruits] = tt.fruits

			got, famine := eng.assignRoles(s)
			if famine != tt.famine {
				t.Fatalf("famine = %t, want %t", famine, tt.famine)
			}
			for i, p := range got.People {
				if p.Role != tt.want[i] {
					t.Errorf("people[%d] %s role = %s, want %s", i, p.Name, p.Role, tt.want[i])
				}
			}
		})
	}
}

func TestAssignRoles_StandardNeedRaisesThreshold(t *testing.T) {
	s := NewWorldState([]agents.Person{
		agents.NewPerson("A", agents.SexMale, 20),
		agents.NewPerson("B", agents.SexFemale, 20),
	})
	s.Inventory[ResourceWater] = 0.9
	s.Inventory[ResourceFruits] = 0.9

	if _, famine := NewTurnEngine(true).assignRoles(s); famine {
		t.Fatalf("safety: famine at 0.9 stock, threshold 0.8")
	}
	if _, famine := NewTurnEngine(false).assignRoles(s); !famine {
		t.Fatalf("standard: no famine at 0.9 stock, threshold 1.0")
	}
}

func TestPerformActions(t *testing.T) {
	g := agents.NewPerson("G", agents.SexMale, 20)
	g.Role = agents.RoleGather
	g.Skills.Gather = 2
	r := agents.NewPerson("R", agents.SexFemale, 20)
	r.Role = agents.RoleResearch
	dead := g
	dead.Alive = false

	s := NewWorldState([]agents.Person{g, r, dead})
	s.Season = SeasonSummer

	_, water, fruit := NewTurnEngine(true).performActions(s)

	yield := (1.2 + 0.5*2) * 0.1 * agents.Energy(g) * 1.2 * 1.2
	if !approx(water, yield*0.5) {
		t.Fatalf("water = %v, want %v", water, yield*0.5)
	}
	if !approx(fruit, yield*0.42) {
		t.Fatalf("fruit = %v, want %v", fruit, yield*0.42)
	}
}

func TestPerformActions_ExactMultiplicationOrder(t *testing.T) {
	g := agents.NewPerson("G", agents.SexMale, 20)
	g.Role = agents.RoleGather
	g.Skills.Gather = 1
	g.HP, g.Fatigue, g.Morale = 83, 17, 41

	s := NewWorldState([]agents.Person{g})
	s.Tile = world.Tile{Area: 300, Explored: 37}
	s.Season = SeasonAutumn

	_, water, fruit := NewTurnEngine(true).performActions(s)

	base, area, e := 1.2+0.5*1.0, s.Tile.ExploredPct(), agents.Energy(g)
	if want := base * 0.5 * area * e * 1.2 * 1.1; water != want {
		t.Fatalf("water = %v, want exactly %v", water, want)
	}
	if want := base * 0.42 * area * e * 1.2 * 1.1; fruit != want {
		t.Fatalf("fruit = %v, want exactly %v", fruit, want)
	}
}

func TestPerformActions_FruitFloorPerGatherer(t *testing.T) {
	g := agents.NewPerson("G", agents.SexMale, 20)
	g.Role = agents.RoleGather
	s := NewWorldState([]agents.Person{g, g, g})
	s.Tile = world.Tile{Area: 100, Explored: 0}

	_, water, fruit := NewTurnEngine(true).performActions(s)
	if water != 0 {
		t.Fatalf("water = %v on unexplored tile, want 0", water)
	}
	if !approx(fruit, 3*0.02) {
		t.Fatalf("fruit = %v, want %v", fruit, 3*0.02)
	}
}

func TestSeasonalYieldMod(t *testing.T) {
	want := map[Season]float64{
		SeasonWinter: 0.7,
		SeasonSpring: 1.0,
		SeasonSummer: 1.2,
		SeasonAutumn: 1.1,
	}
	for season, mult := range want {
		if got := SeasonalYieldMod(season); got != mult {
			t.Errorf("SeasonalYieldMod(%s) = %v, want %v", season, got, mult)
		}
	}
}

func TestResearch_ObservationBeforeFire(t *testing.T) {
	eng := NewTurnEngine(true)
	s := startingWorld()
	s.Inventory[ResourceWater] = 1000
	s.Inventory[ResourceFruits] = 1000
	s.Obs.Complexity = 1

	for i := 0; i < 40; i++ {
		next := eng.AdvanceTurn(s)
		if !s.Obs.Discovered && next.Fire.Progress != 0 {
			t.Fatalf("turn %d: FIRE accrued %v before OBS was discovered", i, next.Fire.Progress)
		}
		if next.Obs.Progress < s.Obs.Progress || next.Fire.Progress < s.Fire.Progress {
			t.Fatalf("turn %d: progress decreased", i)
		}
		s = next
	}
	if !s.Obs.Discovered {
		t.Fatalf("OBS not discovered after 40 turns with complexity 1")
	}
	if s.Fire.Progress == 0 {
		t.Fatalf("FIRE accrued no progress after OBS was discovered")
	}
}

func TestResearch_NoCarryOver(t *testing.T) {
	s := startingWorld()
	s.Obs.Progress = 59.99
	s.People[0].Role = agents.RoleResearch

	got, total := NewTurnEngine(true).research(s)
	if !got.Obs.Discovered {
		t.Fatalf("OBS not discovered at progress %v", got.Obs.Progress)
	}
	if !approx(got.Obs.Progress, 59.99+total) {
		t.Fatalf("OBS progress = %v, want %v", got.Obs.Progress, 59.99+total)
	}
	if got.Fire.Progress != 0 {
		t.Fatalf("FIRE progress = %v in the turn OBS was discovered, want 0", got.Fire.Progress)
	}
}

func TestResearch_ObserveSkillMultiplier(t *testing.T) {
	tests := []struct {
		observe int
		mult    float64
	}{
		{0, 1},
		{1, 1.5},
		{2, 2},
		{4, 3},
	}
	for _, tt := range tests {
		r := agents.NewPerson("R", agents.SexFemale, 25)
		r.Role = agents.RoleResearch
		r.Skills.Observe = tt.observe
		s := NewWorldState([]agents.Person{r})

		got, total := NewTurnEngine(true).research(s)
		want := 0.05 + 0.15*agents.Energy(r)*tt.mult
		if !approx(total, want) {
			t.Errorf("observe %d: research = %v, want %v", tt.observe, total, want)
		}
		if !approx(got.Obs.Progress, want) {
			t.Errorf("observe %d: OBS progress = %v, want %v", tt.observe, got.Obs.Progress, want)
		}
	}
}

func TestResearch_HearthWithFire(t *testing.T) {
	eng := NewTurnEngine(true)
	s := startingWorld()
	s.Inventory[ResourceWater] = 1000
	s.Inventory[ResourceFruits] = 1000
	s.Obs.Discovered = true
	s.Obs.Progress = s.Obs.Complexity
	s.Fire.Progress = s.Fire.Complexity - 0.1

	next, report := eng.AdvanceTurnReport(s)
	if !next.Fire.Discovered || !next.HasHearth {
		t.Fatalf("fire discovered=%t hearth=%t, want both true", next.Fire.Discovered, next.HasHearth)
	}
	if !report.HearthLit || len(report.Discovered) != 1 || report.Discovered[0] != TechFire {
		t.Fatalf("report = %+v, want FIRE discovered and hearth lit", report)
	}

	for i := 0; i < 12; i++ {
		next = eng.AdvanceTurn(next)
		if !next.HasHearth || !next.Fire.Discovered {
			t.Fatalf("turn %d: hearth or fire reverted", i)
		}
	}
	if next.Fire.Progress != s.Fire.Complexity-0.1+report.Research {
		t.Fatalf("FIRE progress changed after discovery: %v", next.Fire.Progress)
	}
}

func TestResearch_MinorsOnlyGetPassiveProgress(t *testing.T) {
	eng := NewTurnEngine(true)
	s := NewWorldState([]agents.Person{
		agents.NewPerson("Kid", agents.SexMale, 8),
		agents.NewPerson("Tot", agents.SexFemale, 3),
	})
	s.Inventory[ResourceWater] = 1000
	s.Inventory[ResourceFruits] = 1000

	const turns = 20
	for i := 0; i < turns; i++ {
		s = eng.AdvanceTurn(s)
		for _, p := range s.People {
			if p.Role != agents.RoleRest {
				t.Fatalf("turn %d: minor %s has role %s, want Rest", i, p.Name, p.Role)
			}
		}
	}
	if !approx(s.Obs.Progress, turns*0.05) {
		t.Fatalf("OBS progress = %v, want passive-only %v", s.Obs.Progress, turns*0.05)
	}
}

func TestConsumeAndAge_PriorityByOrder(t *testing.T) {
	first := agents.NewPerson("First", agents.SexMale, 20)
	second := agents.NewPerson("Second", agents.SexFemale, 20)
	s := NewWorldState([]agents.Person{first, second})
	s.Inventory[ResourceWater] = 0.3
	s.Inventory[ResourceFruits] = 0.1

	got := NewTurnEngine(true).consumeAndAge(s)

	// First drinks, second goes thirsty; nobody eats.
	if got.People[0].HP != 99 || got.People[0].Morale != 71 {
		t.Fatalf("first: hp=%d morale=%d, want 99/71", got.People[0].HP, got.People[0].Morale)
	}
	if got.People[1].HP != 98 || got.People[1].Morale != 70 {
		t.Fatalf("second: hp=%d morale=%d, want 98/70", got.People[1].HP, got.People[1].Morale)
	}
	if !approx(got.Water(), 0.1) || !approx(got.Fruits(), 0.1) {
		t.Fatalf("stock = %v/%v, want 0.1/0.1", got.Water(), got.Fruits())
	}
}

func TestConsumeAndAge_DeathIsPermanent(t *testing.T) {
	eng := NewTurnEngine(true)
	frail := agents.NewPerson("Frail", agents.SexMale, 30)
	frail.HP = 2
	frail.Morale = 1
	s := NewWorldState([]agents.Person{frail})
	s.Inventory = Inventory{}
	s.Tile = world.Tile{Area: 100, Explored: 0}

	next, report := eng.AdvanceTurnReport(s)
	p := next.People[0]
	if p.Alive || p.HP != 0 || p.Morale != 0 {
		t.Fatalf("after starving turn: %+v, want dead with hp 0, morale 0", p)
	}
	if len(report.Deaths) != 1 || report.Deaths[0] != "Frail" {
		t.Fatalf("report deaths = %v, want [Frail]", report.Deaths)
	}

	dead := p
	for i := 0; i < 8; i++ {
		next = eng.AdvanceTurn(next)
		if next.People[0] != dead {
			t.Fatalf("turn %d: dead person changed: %+v", i, next.People[0])
		}
	}
	if len(next.People) != 1 {
		t.Fatalf("population length = %d, want 1", len(next.People))
	}
}

func TestSeasonalEvent_Rain(t *testing.T) {
	eng := NewTurnEngine(true)
	s := NewWorldState(nil)
	s.Inventory[ResourceWater] = 0.59
	s.Season = SeasonAutumn

	got := eng.seasonalEvent(s)
	if !approx(got.Water(), 1.19) {
		t.Fatalf("water = %v, want 1.19", got.Water())
	}
	if want := "Autumn: Rain (+0.6 water)"; got.Log[len(got.Log)-1] != want {
		t.Fatalf("log = %q, want %q", got.Log[len(got.Log)-1], want)
	}

	s.Inventory[ResourceWater] = 0.6
	if got := eng.seasonalEvent(s); got.Water() != 0.6 || len(got.Log) != len(s.Log) {
		t.Fatalf("rain at water 0.6")
	}
}

func TestSeasonalEvent_RepeatsEveryDryTurn(t *testing.T) {
	eng := NewTurnEngine(true)
	s := NewWorldState(nil)
	s.Inventory[ResourceWater] = 0

	rains := 0
	for i := 0; i < 3; i++ {
		var r TurnReport
		s, r = eng.AdvanceTurnReport(s)
		if r.Rained {
			rains++
		}
		s.Inventory[ResourceWater] = 0
	}
	if rains != 3 {
		t.Fatalf("rained %d times in 3 dry turns, want 3", rains)
	}
}

func TestLogTurn_Format(t *testing.T) {
	s := NewWorldState(nil)
	s.Year = 3
	s.Season = SeasonSummer
	s.Inventory[ResourceWater] = 2.5
	s.Inventory[ResourceFruits] = 1.25
	s.Obs.Progress = 12.34

	got := NewTurnEngine(true).logTurn(s, 0.5, 0.126)
	want := "Y3 Summer | Water+0.50 Fruits+0.13 | Stock W2.50 F1.25 | OBS 12.3/60.0 FIRE 0.0/220.0"
	if got.Log[len(got.Log)-1] != want {
		t.Fatalf("log line = %q, want %q", got.Log[len(got.Log)-1], want)
	}
}

func TestLog_CappedAndChronological(t *testing.T) {
	eng := NewTurnEngine(true)
	s := startingWorld()
	s.Inventory[ResourceWater] = 1000
	s.Inventory[ResourceFruits] = 1000

	var last string
	for i := 0; i < 260; i++ {
		s = eng.AdvanceTurn(s)
		if len(s.Log) > MaxLogLines {
			t.Fatalf("turn %d: log length %d > %d", i, len(s.Log), MaxLogLines)
		}
		if len(s.Log) > 1 && s.Log[len(s.Log)-2] != last && last != "" {
			t.Fatalf("turn %d: previous last line %q not second to last", i, last)
		}
		last = s.Log[len(s.Log)-1]
	}
	if len(s.Log) != MaxLogLines {
		t.Fatalf("log length = %d, want %d", len(s.Log), MaxLogLines)
	}
	if s.Log[0] == OpeningLogLine {
		t.Fatalf("opening line still present after 260 turns")
	}
}

func TestAppendLog_DoesNotAlias(t *testing.T) {
	base := make([]string, 1, 10)
	base[0] = "a"
	x := appendLog(base, "x")
	y := appendLog(base, "y")
	if x[1] != "x" || y[1] != "y" {
		t.Fatalf("appendLog aliased backing array: x=%v y=%v", x, y)
	}
}

func TestAdvance_Calendar(t *testing.T) {
	eng := NewTurnEngine(true)
	s := NewWorldState(nil)

	want := []Season{SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter}
	for year := 0; year < 3; year++ {
		for i, season := range want {
			s = eng.advance(s)
			if s.Season != season {
				t.Fatalf("year %d step %d: season %s, want %s", year, i, s.Season, season)
			}
			wantYear := year
			if season == SeasonWinter {
				wantYear = year + 1
			}
			if s.Year != wantYear {
				t.Fatalf("year %d step %d: year %d, want %d", year, i, s.Year, wantYear)
			}
		}
	}
}

func TestAdvanceTurn_StableYear(t *testing.T) {
	eng := NewTurnEngine(true)
	s := startingWorld()
	s.Inventory[ResourceWater] = 500
	s.Inventory[ResourceFruits] = 500

	start := s
	for i := 0; i < NumSeasons; i++ {
		s = eng.AdvanceTurn(s)
	}
	if s.Season != start.Season || s.Year != start.Year+1 {
		t.Fatalf("after a year: %s year %d, want %s year %d", s.Season, s.Year, start.Season, start.Year+1)
	}
	if len(s.Log) != len(start.Log)+NumSeasons {
		t.Fatalf("log grew by %d, want %d", len(s.Log)-len(start.Log), NumSeasons)
	}
	if s.AliveCount() != 2 {
		t.Fatalf("alive = %d, want 2", s.AliveCount())
	}
}

func TestAdvanceTurn_Deterministic(t *testing.T) {
	eng := NewTurnEngine(false)
	s := startingWorld()
	a, b := s, s
	for i := 0; i < 30; i++ {
		a = eng.AdvanceTurn(a)
		b = eng.AdvanceTurn(b)
	}
	if a.Inventory != b.Inventory || a.Obs != b.Obs || a.Log[len(a.Log)-1] != b.Log[len(b.Log)-1] {
		t.Fatalf("two runs from the same state diverged")
	}
}

func TestAdvanceTurn_RangesHold(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		people := make([]agents.Person, 1+rng.Intn(8))
		for i := range people {
			p := agents.NewPerson("P", agents.SexFemale, rng.Float64()*50)
			p.HP = rng.Intn(101)
			p.Fatigue = rng.Intn(101)
			p.Morale = rng.Intn(101)
			p.Alive = p.HP > 0
			p.Role = agents.Role(rng.Intn(agents.NumRoles))
			p.Skills = agents.SkillSet{Gather: rng.Intn(4), Observe: rng.Intn(4)}
			people[i] = p
		}
		s := NewWorldState(people)
		s.Inventory[ResourceWater] = rng.Float64() * 3
		s.Inventory[ResourceFruits] = rng.Float64() * 3
		s.Tile.Explored = rng.Float64() * 150
		s.Season = Season(rng.Intn(NumSeasons))

		eng := NewTurnEngine(rng.Intn(2) == 0)
		for turn := 0; turn < 60; turn++ {
			s = eng.AdvanceTurn(s)
			for res, qty := range s.Inventory {
				if qty < 0 {
					t.Fatalf("trial %d turn %d: %s = %v < 0", trial, turn, Resource(res), qty)
				}
			}
			for _, p := range s.People {
				if p.HP < 0 || p.HP > 100 || p.Morale < 0 || p.Morale > 100 || p.Fatigue < 0 || p.Fatigue > 100 {
					t.Fatalf("trial %d turn %d: vitals out of range: %+v", trial, turn, p)
				}
				if p.HP <= 0 && p.Alive {
					t.Fatalf("trial %d turn %d: %+v alive with hp 0", trial, turn, p)
				}
			}
		}
	}
}
