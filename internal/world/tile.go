// Package world provides the home tile the tribe lives on and its
// generation from a seed.
package world

import "fmt"

// Tile is the patch of land the tribe knows. Area and Explored share a unit;
// only their ratio matters to the simulation.
type Tile struct {
	Area     float64 `json:"area" yaml:"area"`
	Explored float64 `json:"explored" yaml:"explored"`
	Biome    string  `json:"biome" yaml:"biome"`
	Risk     float64 `json:"risk" yaml:"risk"` // Informational
}

// DefaultTile returns the starting tile: a temperate forest, 10% explored.
func DefaultTile() Tile {
	return Tile{
		Area:     100,
		Explored: 10,
		Biome:    "Temperate forest",
		Risk:     0.08,
	}
}

// ExploredPct returns Explored/Area clamped to [0, 1]. A tile with no area
// counts as unexplored.
func (t Tile) ExploredPct() float64 {
	if t.Area <= 0 {
		return 0
	}
	pct := t.Explored / t.Area
	if pct < 0 {
		return 0
	}
	if pct > 1 {
		return 1
	}
	return pct
}

// String returns a summary of the tile.
func (t Tile) String() string {
	return fmt.Sprintf("Tile(%s, %.0f%% explored)", t.Biome, t.ExploredPct()*100)
}
