// Tile generation using layered simplex noise.
// Samples elevation, rainfall and temperature at the tribe's home site, then
// derives biome, risk and the share of land already known.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds tile generation parameters.
type GenConfig struct {
	Seed int64
	Area float64 // Total tile area

	// MinExplored and MaxExplored bound the starting explored fraction.
	MinExplored float64
	MaxExplored float64
}

// DefaultGenConfig returns a configuration matching the default tile's scale.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:        42,
		Area:        100,
		MinExplored: 0.05,
		MaxExplored: 0.20,
	}
}

// Biome labels produced by generation.
const (
	BiomeTemperateForest = "Temperate forest"
	BiomeSteppe          = "Steppe"
	BiomeWetland         = "Wetland"
	BiomeHighland        = "Highland"
	BiomeTundra          = "Tundra"
	BiomeScrub           = "Dry scrub"
)

// GenerateTile derives a home tile from the seed. The same config always
// yields the same tile.
func GenerateTile(cfg GenConfig) Tile {
	// Three noise generators for independent layers.
	elevNoise := opensimplex.NewNormalized(cfg.Seed)
	rainNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	tempNoise := opensimplex.NewNormalized(cfg.Seed + 2)

	// Sample a point offset by the seed so nearby seeds don't land on
	// neighboring noise values.
	x := float64(cfg.Seed%9973) * 0.37
	y := float64(cfg.Seed%7919) * 0.53

	elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)
	rain := octaveNoise(rainNoise, x, y, 3, 0.06, 0.5)
	temp := octaveNoise(tempNoise, x, y, 3, 0.05, 0.5)

	// Temperature falls with elevation.
	temp = temp*0.8 + (1.0-elev)*0.2

	biome := deriveBiome(elev, rain, temp)

	explored := cfg.MinExplored + (cfg.MaxExplored-cfg.MinExplored)*rain
	area := cfg.Area
	if area <= 0 {
		area = DefaultTile().Area
	}

	return Tile{
		Area:     area,
		Explored: math.Round(area*explored*100) / 100,
		Biome:    biome,
		Risk:     math.Round(biomeRisk(biome, elev)*1000) / 1000,
	}
}

// deriveBiome determines the biome from environmental parameters.
func deriveBiome(elev, rain, temp float64) string {
	if elev > 0.72 {
		return BiomeHighland
	}
	if temp < 0.3 {
		return BiomeTundra
	}
	if rain < 0.3 && temp > 0.5 {
		return BiomeScrub
	}
	if rain > 0.7 && elev < 0.45 {
		return BiomeWetland
	}
	if rain > 0.45 {
		return BiomeTemperateForest
	}
	return BiomeSteppe
}

// biomeRisk returns a base hazard level, higher for harsh land.
func biomeRisk(biome string, elev float64) float64 {
	base := 0.08
	switch biome {
	case BiomeHighland:
		base = 0.14
	case BiomeTundra:
		base = 0.16
	case BiomeScrub:
		base = 0.12
	case BiomeWetland:
		base = 0.10
	case BiomeSteppe:
		base = 0.06
	}
	return base + elev*0.02
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
