package resolution

import (
	"math"
	"time"

	"github.com/cory-johannsen/warband/internal/game/world"
)

// Disengage chance bounds, in percent.
const (
	MinDisengageChance = 5.0
	MaxDisengageChance = 80.0
)

// DisengageChance returns the percent chance that a force of the given size
// slips away from an enemy with enemyActive fighting soldiers, on terrain
// with the given spot factor. incompatible forces the result to zero.
//
// Postcondition: result is 0 when incompatible, else within
// [MinDisengageChance, MaxDisengageChance].
func DisengageChance(soldiers, entourage int, spot float64, enemyActive int, incompatible bool) float64 {
	if spot <= 0 {
		spot = 1
	}
	chance := 40 - math.Sqrt(float64(5*(soldiers+entourage)))
	chance *= 1 / spot
	switch {
	case enemyActive < 5:
		chance += 30
	case enemyActive < 10:
		chance += 20
	case enemyActive < 25:
		chance += 10
	}
	chance = min(max(chance, MinDisengageChance), MaxDisengageChance)
	if incompatible {
		return 0
	}
	return chance
}

// CalculateDisengageTime is 15 minutes plus the square roots of ten times
// the entourage and of the soldiers' handling cost, in minutes. Every
// living soldier costs 5, wounded ones 5 more, cavalry and mounted archers
// 3 more and heavy infantry 2 more.
//
// Postcondition: non-decreasing in soldiers, wounded soldiers and entourage.
func CalculateDisengageTime(c *world.Character) time.Duration {
	minutes := 15 + math.Sqrt(float64(len(c.Entourage)*10))
	takes := 0
	for _, s := range c.Soldiers {
		if !s.Alive {
			continue
		}
		takes += 5
		if s.Wounded {
			takes += 5
		}
		switch s.Type {
		case world.Cavalry, world.MountedArcher:
			takes += 3
		case world.HeavyInfantry:
			takes += 2
		}
	}
	minutes += math.Sqrt(float64(takes))
	return time.Duration(math.Round(minutes*60)) * time.Second
}
