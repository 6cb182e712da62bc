// Package config loads a run's scenario: defaults, then an optional YAML
// file, then CIVSIM_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/talgya/civsim/internal/agents"
	"github.com/talgya/civsim/internal/engine"
	"github.com/talgya/civsim/internal/world"
)

// Config is a complete run configuration.
type Config struct {
	Settings `yaml:",inline"`

	Population []PersonConfig   `yaml:"population"`
	Spawn      int              `yaml:"spawn"` // People spawned from Seed; excludes Population
	Inventory  *InventoryConfig `yaml:"inventory"`
	Tile       *world.Tile      `yaml:"tile"`
}

// Settings are the scalar run options. Each can be overridden from the
// environment.
type Settings struct {
	Safety   bool          `yaml:"safety" env:"CIVSIM_SAFETY"`
	Turns    int           `yaml:"turns" env:"CIVSIM_TURNS"`
	Seed     int64         `yaml:"seed" env:"CIVSIM_SEED"` // 0 = default tile, no spawning
	Interval time.Duration `yaml:"interval" env:"CIVSIM_INTERVAL"`
	LogLevel string        `yaml:"log_level" env:"CIVSIM_LOG_LEVEL"`

	DBPath    string `yaml:"db_path" env:"CIVSIM_DB"`       // Empty disables run history
	TracePath string `yaml:"trace_path" env:"CIVSIM_TRACE"` // Empty disables the turn trace
}

// PersonConfig describes one seeded person. Omitted vitals take defaults.
type PersonConfig struct {
	Name    string          `yaml:"name"`
	Sex     agents.Sex      `yaml:"sex"`
	Age     float64         `yaml:"age"`
	Role    *agents.Role    `yaml:"role"`
	HP      *int            `yaml:"hp"`
	Fatigue *int            `yaml:"fatigue"`
	Morale  *int            `yaml:"morale"`
	Skills  agents.SkillSet `yaml:"skills"`
}

// InventoryConfig sets the starting stock.
type InventoryConfig struct {
	Water  float64 `yaml:"water"`
	Fruits float64 `yaml:"fruits"`
	Wood   float64 `yaml:"wood"`
}

// Default returns the built-in scenario settings in safety mode. With no
// population or spawn count the world starts with DefaultPopulation.
func Default() Config {
	return Config{
		Settings: Settings{
			Safety:   true,
			Turns:    40,
			LogLevel: "info",
			DBPath:   "data/civsim.db",
		},
	}
}

// DefaultPopulation is the built-in pair: two 18-year-olds in a cave by a
// spring, one gathering and one researching.
func DefaultPopulation() []PersonConfig {
	gather, research := agents.RoleGather, agents.RoleResearch
	return []PersonConfig{
		{Name: "Aeon", Sex: agents.SexMale, Age: 18, Role: &gather},
		{Name: "Naiara", Sex: agents.SexFemale, Age: 18, Role: &research},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}

	// Unset variables leave the file's values in place.
	if err := env.Parse(&cfg.Settings); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports configuration values the simulation cannot start from.
func (c Config) Validate() error {
	var errs []error
	if c.Turns < 0 {
		errs = append(errs, fmt.Errorf("turns must be >= 0, got %d", c.Turns))
	}
	if c.Spawn < 0 {
		errs = append(errs, fmt.Errorf("spawn must be >= 0, got %d", c.Spawn))
	}
	if c.Spawn > 0 && len(c.Population) > 0 {
		errs = append(errs, errors.New("spawn and population are mutually exclusive"))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must be >= 0, got %s", c.Interval))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for i, p := range c.Population {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("population[%d]: name is required", i))
		}
		if p.Age < 0 {
			errs = append(errs, fmt.Errorf("population[%d]: age must be >= 0, got %g", i, p.Age))
		}
		for _, v := range []struct {
			name string
			val  *int
		}{{"hp", p.HP}, {"fatigue", p.Fatigue}, {"morale", p.Morale}} {
			if v.val != nil && (*v.val < 0 || *v.val > 100) {
				errs = append(errs, fmt.Errorf("population[%d]: %s must be in [0, 100], got %d", i, v.name, *v.val))
			}
		}
	}
	if inv := c.Inventory; inv != nil {
		for _, v := range []struct {
			name string
			val  float64
		}{{"water", inv.Water}, {"fruits", inv.Fruits}, {"wood", inv.Wood}} {
			if v.val < 0 {
				errs = append(errs, fmt.Errorf("inventory: %s must be >= 0, got %g", v.name, v.val))
			}
		}
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// People returns the seeded population: the configured list, Spawn people
// drawn from Seed, or DefaultPopulation when neither is given. An explicit
// empty list yields nobody.
func (c Config) People() []agents.Person {
	list := c.Population
	switch {
	case len(list) > 0:
	case c.Spawn > 0:
		return agents.NewSpawner(c.Seed).SpawnPopulation(c.Spawn)
	case list == nil:
		list = DefaultPopulation()
	default:
		return nil
	}

	people := make([]agents.Person, 0, len(list))
	for _, pc := range list {
		p := agents.NewPerson(pc.Name, pc.Sex, pc.Age)
		if pc.Role != nil {
			p.Role = *pc.Role
		}
		if pc.HP != nil {
			p.HP = *pc.HP
		}
		if pc.Fatigue != nil {
			p.Fatigue = *pc.Fatigue
		}
		if pc.Morale != nil {
			p.Morale = *pc.Morale
		}
		p.Skills = pc.Skills
		p.Alive = p.HP > 0
		people = append(people, p)
	}
	return people
}

// WorldState builds the initial world for this scenario.
func (c Config) WorldState() engine.WorldState {
	s := engine.NewWorldState(c.People())

	if c.Inventory != nil {
		s.Inventory[engine.ResourceWater] = c.Inventory.Water
		s.Inventory[engine.ResourceFruits] = c.Inventory.Fruits
		s.Inventory[engine.ResourceWood] = c.Inventory.Wood
	}

	switch {
	case c.Tile != nil:
		s.Tile = *c.Tile
	case c.Seed != 0:
		gen := world.DefaultGenConfig()
		gen.Seed = c.Seed
		s.Tile = world.GenerateTile(gen)
	}
	return s
}
