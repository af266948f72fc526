package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlWorldFile is the top-level YAML structure for world fixture files.
type yamlWorldFile struct {
	World yamlWorld `yaml:"world"`
}

type yamlWorld struct {
	Biomes      []Biome         `yaml:"biomes"`
	Realms      []Realm         `yaml:"realms"`
	Settlements []Settlement    `yaml:"settlements"`
	Sieges      []Siege         `yaml:"sieges"`
	Characters  []yamlCharacter `yaml:"characters"`
	Listings    []Listing       `yaml:"listings"`
	Houses      []House         `yaml:"houses"`
}

// yamlSoldier describes a squad of identical soldiers.
type yamlSoldier struct {
	Type    SoldierType `yaml:"type"`
	Count   int         `yaml:"count"`
	Wounded bool        `yaml:"wounded"`
	Dead    bool        `yaml:"dead"`
}

type yamlCharacter struct {
	ID         CharacterID   `yaml:"id"`
	Name       string        `yaml:"name"`
	Location   Point         `yaml:"location"`
	Inside     SettlementID  `yaml:"inside"`
	System     string        `yaml:"system"`
	Inactive   bool          `yaml:"inactive"`
	Soldiers   []yamlSoldier `yaml:"soldiers"`
	Entourage  []Entourage   `yaml:"entourage"`
	Travelling bool          `yaml:"travelling"`
	Progress   float64       `yaml:"progress"`
	Speed      float64       `yaml:"speed"`
	PrisonerOf CharacterID   `yaml:"prisoner_of"`
	House      HouseID       `yaml:"house"`
}

// LoadFile reads a world fixture YAML file into a new State.
//
// Precondition: path must point to a valid world fixture.
// Postcondition: Returns a populated State or a non-nil error.
func LoadFile(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses a world fixture from YAML bytes.
//
// Postcondition: Returns a populated State or a non-nil error. Prisoner
// relations are mirrored onto the captor's Prisoners list.
func LoadBytes(data []byte) (*State, error) {
	var file yamlWorldFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing world YAML: %w", err)
	}

	s := NewState()
	for _, b := range file.World.Biomes {
		if b.Spot <= 0 {
			return nil, fmt.Errorf("biome %q: spot must be > 0", b.Name)
		}
		s.SetBiome(b)
	}
	for i := range file.World.Realms {
		if err := s.AddRealm(&file.World.Realms[i]); err != nil {
			return nil, err
		}
	}
	for i := range file.World.Houses {
		if err := s.AddHouse(&file.World.Houses[i]); err != nil {
			return nil, err
		}
	}
	for i := range file.World.Settlements {
		if err := s.AddSettlement(&file.World.Settlements[i]); err != nil {
			return nil, err
		}
	}
	for i := range file.World.Sieges {
		if err := s.AddSiege(&file.World.Sieges[i]); err != nil {
			return nil, err
		}
	}

	var soldierID int64
	for _, yc := range file.World.Characters {
		c := convertYAMLCharacter(yc, &soldierID)
		if c.Inside != 0 {
			if _, ok := s.Settlement(c.Inside); !ok {
				return nil, fmt.Errorf("character %d: inside unknown settlement %d", c.ID, c.Inside)
			}
		}
		if err := s.AddCharacter(c); err != nil {
			return nil, err
		}
	}
	for i := range file.World.Listings {
		if err := s.AddListing(&file.World.Listings[i]); err != nil {
			return nil, err
		}
	}
	for _, c := range s.Characters() {
		if c.PrisonerOf == 0 {
			continue
		}
		captor, ok := s.Character(c.PrisonerOf)
		if !ok {
			return nil, fmt.Errorf("character %d: prisoner of unknown character %d", c.ID, c.PrisonerOf)
		}
		captor.Prisoners = append(captor.Prisoners, c.ID)
	}
	return s, nil
}

func convertYAMLCharacter(yc yamlCharacter, nextSoldier *int64) *Character {
	c := &Character{
		ID:         yc.ID,
		Name:       yc.Name,
		Location:   yc.Location,
		Inside:     yc.Inside,
		System:     yc.System,
		Active:     !yc.Inactive,
		Entourage:  yc.Entourage,
		Travelling: yc.Travelling,
		Progress:   yc.Progress,
		Speed:      yc.Speed,
		PrisonerOf: yc.PrisonerOf,
		House:      yc.House,
	}
	for _, squad := range yc.Soldiers {
		n := squad.Count
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			*nextSoldier++
			c.Soldiers = append(c.Soldiers, Soldier{
				ID:      *nextSoldier,
				Type:    squad.Type,
				Wounded: squad.Wounded,
				Alive:   !squad.Dead,
			})
		}
	}
	return c
}
