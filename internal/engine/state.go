package engine

import (
	"github.com/talgya/civsim/internal/agents"
	"github.com/talgya/civsim/internal/world"
)

// Resource enumerates stockpiled goods.
type Resource uint8

const (
	ResourceWater Resource = iota
	ResourceFruits
	ResourceWood
)

// NumResources is the total number of resource types.
const NumResources = 3

// String returns a human-readable resource name.
func (r Resource) String() string {
	switch r {
	case ResourceWater:
		return "Water"
	case ResourceFruits:
		return "Fruits"
	case ResourceWood:
		return "Wood"
	default:
		return "Unknown"
	}
}

// Inventory is a fixed-size array of stock per resource. Being an array it
// copies by value with the WorldState that holds it.
type Inventory [NumResources]float64

// DefaultInventory returns the starting stock: one unit each of water and fruit.
func DefaultInventory() Inventory {
	var inv Inventory
	inv[ResourceWater] = 1.0
	inv[ResourceFruits] = 1.0
	return inv
}

// Tech is a discoverable technology.
type Tech struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Complexity float64 `json:"complexity"` // Progress required
	Progress   float64 `json:"progress"`
	Discovered bool    `json:"discovered"`
	Prereq     string  `json:"prereq,omitempty"` // Informational, not enforced
}

// Tech keys.
const (
	TechObservation = "OBS"
	TechFire        = "FIRE"
)

// DefaultObservation returns the undiscovered Observation tech.
func DefaultObservation() Tech {
	return Tech{Key: TechObservation, Name: "Observation", Complexity: 60}
}

// DefaultFire returns the undiscovered Controlled Fire tech.
func DefaultFire() Tech {
	return Tech{Key: TechFire, Name: "Controlled Fire", Complexity: 220, Prereq: TechObservation}
}

// OpeningLogLine seeds a fresh world's log.
const OpeningLogLine = "Start: cave and spring, 10% of the land known."

// MaxLogLines caps WorldState.Log; older lines are dropped first.
const MaxLogLines = 200

// WorldState is one immutable snapshot of the world. Treat it as a value:
// the engine never writes through the slices of a state it was given.
type WorldState struct {
	People    []agents.Person `json:"people"`
	Inventory Inventory       `json:"inventory"`
	Tile      world.Tile      `json:"tile"`
	Year      int             `json:"year"`
	Season    Season          `json:"season"`
	Obs       Tech            `json:"obs"`
	Fire      Tech            `json:"fire"`
	HasHearth bool            `json:"has_hearth"`
	Log       []string        `json:"log"`
}

// NewWorldState returns a world at year 0, Winter, with default stock, tile
// and techs, populated with a copy of people.
func NewWorldState(people []agents.Person) WorldState {
	return WorldState{
		People:    append([]agents.Person(nil), people...),
		Inventory: DefaultInventory(),
		Tile:      world.DefaultTile(),
		Season:    SeasonWinter,
		Obs:       DefaultObservation(),
		Fire:      DefaultFire(),
		Log:       []string{OpeningLogLine},
	}
}

// Clone returns a deep copy that shares no backing storage with s.
func (s WorldState) Clone() WorldState {
	c := s
	c.People = append([]agents.Person(nil), s.People...)
	c.Log = append([]string(nil), s.Log...)
	return c
}

// Water returns the water stock.
func (s WorldState) Water() float64 { return s.Inventory[ResourceWater] }

// Fruits returns the fruit stock.
func (s WorldState) Fruits() float64 { return s.Inventory[ResourceFruits] }

// AliveCount returns how many people are alive.
func (s WorldState) AliveCount() int {
	n := 0
	for _, p := range s.People {
		if p.Alive {
			n++
		}
	}
	return n
}

// AdultCount returns how many people are alive adults.
func (s WorldState) AdultCount() int {
	n := 0
	for _, p := range s.People {
		if p.IsAdult() {
			n++
		}
	}
	return n
}
