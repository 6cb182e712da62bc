// Package agents provides the person data model: demographics, vitals,
// working roles and skills.
package agents

import (
	"fmt"
	"strings"
)

// Sex is stored as the single character shown to players ('M' or 'F').
type Sex byte

const (
	SexMale   Sex = 'M'
	SexFemale Sex = 'F'
)

// String returns the one-letter form.
func (s Sex) String() string {
	if s == 0 {
		return "?"
	}
	return string(rune(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Sex) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts "M", "F", "male" or "female" in any case.
func (s *Sex) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "M", "MALE":
		*s = SexMale
	case "F", "FEMALE":
		*s = SexFemale
	default:
		return fmt.Errorf("unknown sex %q", string(text))
	}
	return nil
}

// Role is the activity a person performs during a turn.
type Role uint8

const (
	RoleScout Role = iota
	RoleGather
	RoleRest
	RoleResearch
	RoleEducate
)

// NumRoles is the total number of roles.
const NumRoles = 5

var roleNames = [NumRoles]string{"Scout", "Gather", "Rest", "Research", "Educate"}

// String returns a human-readable role name.
func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if int(r) >= len(roleNames) {
		return nil, fmt.Errorf("unknown role %d", r)
	}
	return []byte(r.String()), nil
}

// UnmarshalText parses a role name case-insensitively.
func (r *Role) UnmarshalText(text []byte) error {
	name := strings.TrimSpace(string(text))
	for i, n := range roleNames {
		if strings.EqualFold(n, name) {
			*r = Role(i)
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", name)
}

// Default vitals for a newly seeded person.
const (
	DefaultHP      = 100
	DefaultFatigue = 0
	DefaultMorale  = 72

	// AdultAge is the age at which a person can be assigned work.
	AdultAge = 18.0
)

// SkillSet tracks a person's skill levels. Values are non-negative.
type SkillSet struct {
	Gather  int `json:"gather" yaml:"gather"`
	Observe int `json:"observe" yaml:"observe"`
	Scout   int `json:"scout" yaml:"scout"`
}

// Person is one member of the tribe. Person is a plain value; the engine
// copies it rather than sharing it between snapshots.
type Person struct {
	Name string `json:"name"`
	Sex  Sex    `json:"sex"`

	Age     float64 `json:"age"`     // Years
	HP      int     `json:"hp"`      // 0–100
	Fatigue int     `json:"fatigue"` // 0–100
	Morale  int     `json:"morale"`  // 0–100

	Role   Role     `json:"role"`
	Alive  bool     `json:"alive"`
	Skills SkillSet `json:"skills"`
}

// NewPerson returns a living person with default vitals and the Rest role.
func NewPerson(name string, sex Sex, age float64) Person {
	return Person{
		Name:    name,
		Sex:     sex,
		Age:     age,
		HP:      DefaultHP,
		Fatigue: DefaultFatigue,
		Morale:  DefaultMorale,
		Role:    RoleRest,
		Alive:   true,
	}
}

// IsAdult reports whether p is alive and old enough to be assigned work.
func (p Person) IsAdult() bool {
	return p.Alive && p.Age >= AdultAge
}
