// Population spawning: creates an initial tribe with names, sexes and ages
// drawn deterministically from a seed.
package agents

import (
	"math/rand"
)

// Spawner creates people for a fresh world.
type Spawner struct {
	rng  *rand.Rand
	used map[string]bool
}

// NewSpawner creates a spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:  rand.New(rand.NewSource(seed + 300)),
		used: make(map[string]bool),
	}
}

// SpawnPopulation creates count people. The first two are always adults so
// that a freshly spawned tribe can work from its first turn.
func (s *Spawner) SpawnPopulation(count int) []Person {
	people := make([]Person, 0, count)
	for i := 0; i < count; i++ {
		people = append(people, s.spawnOne(i < 2))
	}
	return people
}

func (s *Spawner) spawnOne(adult bool) Person {
	sex := SexMale
	if s.rng.Float32() < 0.5 {
		sex = SexFemale
	}

	p := NewPerson(s.generateName(sex), sex, s.weightedAge(adult))
	p.Skills = SkillSet{
		Gather:  s.rng.Intn(3),
		Observe: s.rng.Intn(2),
		Scout:   s.rng.Intn(2),
	}
	return p
}

func (s *Spawner) weightedAge(adult bool) float64 {
	// Bell curve centered on 22, range 2–45.
	age := 22.0 + s.rng.NormFloat64()*8.0
	lo := 2.0
	if adult {
		lo = AdultAge
	}
	if age < lo {
		age = lo
	}
	if age > 45 {
		age = 45
	}
	// Whole seasons only.
	return float64(int(age*4)) / 4
}

// generateName picks an unused name, suffixing a numeral once a pool is
// exhausted so names stay unique within the tribe.
func (s *Spawner) generateName(sex Sex) string {
	pool := maleNames
	if sex == SexFemale {
		pool = femaleNames
	}
	name := pool[s.rng.Intn(len(pool))]
	for n := 2; s.used[name]; n++ {
		name = pool[s.rng.Intn(len(pool))]
		if n > len(pool) {
			name = name + " " + roman(n-len(pool)+1)
		}
	}
	s.used[name] = true
	return name
}

func roman(n int) string {
	numerals := []struct {
		v int
		s string
	}{{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"}}
	out := ""
	for _, num := range numerals {
		for n >= num.v {
			out += num.s
			n -= num.v
		}
	}
	return out
}

// Name pools for procedural generation.
var maleNames = []string{
	"Aeon", "Bako", "Dur", "Eshan", "Gorm", "Hakan", "Ilo", "Jarro",
	"Kesh", "Lugo", "Moru", "Nakai", "Oren", "Tavo", "Urun", "Zef",
}

var femaleNames = []string{
	"Naiara", "Ama", "Brisa", "Dela", "Enya", "Hira", "Isa", "Kaya",
	"Lumi", "Mara", "Nuna", "Oda", "Rhea", "Sela", "Tala", "Yuna",
}
