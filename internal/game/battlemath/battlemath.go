// Package battlemath computes battle preparation timers and settlement
// time-to-take. Both formulas can be overridden by Lua hooks.
package battlemath

import (
	"math"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/world"
	"github.com/cory-johannsen/warband/internal/scripting"
)

// Hook names looked up in the battle script.
const (
	HookPreparationTime = "preparation_time"
	HookTimeToTake      = "time_to_take"
)

// Bounds on time-to-take.
const (
	MinTimeToTake = 15 * time.Minute
	MaxTimeToTake = 48 * time.Hour
)

// Calculator is the battle-math collaborator used by resolvers.
type Calculator interface {
	// PreparationTime returns the seconds until b starts.
	PreparationTime(b *battle.Battle) int
	// TimeToTake returns how long c needs to take s against its garrison.
	TimeToTake(s *world.Settlement, c *world.Character, attackers, extraDefenders int) time.Duration
}

// Scripted evaluates the battle script's hooks when present and falls back
// to the built-in formulas otherwise.
type Scripted struct {
	state   *world.State
	battles *battle.Registry
	scripts *scripting.Manager
	logger  *zap.Logger
}

// NewScripted returns a Scripted calculator. scripts may be nil.
//
// Precondition: state, battles and logger must be non-nil.
func NewScripted(state *world.State, battles *battle.Registry, scripts *scripting.Manager, logger *zap.Logger) *Scripted {
	return &Scripted{state: state, battles: battles, scripts: scripts, logger: logger}
}

// Sides counts the active soldiers on the attacking and defending groups of
// b, plus the number of characters involved.
func (m *Scripted) Sides(b *battle.Battle) (attackers, defenders, characters int) {
	for _, g := range m.battles.Groups(b) {
		n := 0
		for _, id := range g.Characters {
			if c, ok := m.state.Character(id); ok {
				n += c.ActiveSoldiers()
			}
		}
		characters += len(g.Characters)
		if g.Attacker {
			attackers += n
		} else {
			defenders += n
		}
	}
	return attackers, defenders, characters
}

// PreparationTime is 30 minutes plus two minutes per square root of the
// soldiers involved, shortened in towns and lengthened in sieges.
//
// Postcondition: result >= 0.
func (m *Scripted) PreparationTime(b *battle.Battle) int {
	att, def, chars := m.Sides(b)
	minutes := 30 + 2*math.Sqrt(float64(att+def))
	switch b.Type {
	case battle.TypeUrban, battle.TypeSkirmish:
		minutes *= 0.75
	case battle.TypeSiegeAssault, battle.TypeSiegeSortie:
		minutes *= 1.5
	}
	seconds := int(math.Round(minutes * 60))

	if v, ok := m.hook(HookPreparationTime, map[string]lua.LValue{
		"type":       lua.LString(b.Type.String()),
		"attackers":  lua.LNumber(att),
		"defenders":  lua.LNumber(def),
		"characters": lua.LNumber(chars),
		"default":    lua.LNumber(seconds),
	}); ok {
		seconds = int(math.Round(v))
	}
	return seconds
}

// TimeToTake is one hour plus two hours per defender-to-attacker ratio,
// clamped to [MinTimeToTake, MaxTimeToTake].
func (m *Scripted) TimeToTake(s *world.Settlement, c *world.Character, attackers, extraDefenders int) time.Duration {
	defenders := s.Defenders + extraDefenders
	ratio := float64(defenders) / float64(max(attackers, 1))
	d := time.Duration((1 + 2*ratio) * float64(time.Hour))

	if v, ok := m.hook(HookTimeToTake, map[string]lua.LValue{
		"settlement": lua.LNumber(s.ID),
		"character":  lua.LNumber(c.ID),
		"attackers":  lua.LNumber(attackers),
		"defenders":  lua.LNumber(defenders),
		"default":    lua.LNumber(d.Seconds()),
	}); ok {
		d = time.Duration(v * float64(time.Second))
	}
	return min(max(d, MinTimeToTake), MaxTimeToTake)
}

func (m *Scripted) hook(name string, fields map[string]lua.LValue) (float64, bool) {
	if m.scripts == nil {
		return 0, false
	}
	v, ok := m.scripts.CallNumber(name, fields)
	if !ok {
		return 0, false
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		m.logger.Warn("battlemath: hook returned invalid value",
			zap.String("hook", name), zap.Float64("value", v))
		return 0, false
	}
	return v, true
}
