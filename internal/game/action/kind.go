package action

// Kind selects the resolver bound to an action. The set is closed: every
// valid Kind has exactly one resolver registered with the resolution engine.
// The zero value (KindUnknown) is intentionally invalid and is what legacy or
// unrecognised type strings parse to.
type Kind int

const (
	KindUnknown Kind = iota
	KindSettlementTake
	KindSettlementRename
	KindSettlementGrant
	KindSettlementEnter
	KindSettlementLoot
	KindSettlementAttack
	KindSettlementAssault
	KindSettlementSortie
	KindSettlementDefend
	KindMilitaryBattle
	KindMilitaryBlock
	KindMilitaryDisengage
	KindMilitaryIntercepted
	KindMilitaryAid
	KindMilitaryEvade
	KindMilitaryHire
	KindMilitaryRegroup
	KindMilitaryDamage
	KindMilitaryLoot
	KindPersonalPrisonAssign
	KindCharacterEscape
	KindTaskResearch

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:              "unknown",
	KindSettlementTake:       "settlement.take",
	KindSettlementRename:     "settlement.rename",
	KindSettlementGrant:      "settlement.grant",
	KindSettlementEnter:      "settlement.enter",
	KindSettlementLoot:       "settlement.loot",
	KindSettlementAttack:     "settlement.attack",
	KindSettlementAssault:    "settlement.assault",
	KindSettlementSortie:     "settlement.sortie",
	KindSettlementDefend:     "settlement.defend",
	KindMilitaryBattle:       "military.battle",
	KindMilitaryBlock:        "military.block",
	KindMilitaryDisengage:    "military.disengage",
	KindMilitaryIntercepted:  "military.intercepted",
	KindMilitaryAid:          "military.aid",
	KindMilitaryEvade:        "military.evade",
	KindMilitaryHire:         "military.hire",
	KindMilitaryRegroup:      "military.regroup",
	KindMilitaryDamage:       "military.damage",
	KindMilitaryLoot:         "military.loot",
	KindPersonalPrisonAssign: "personal.prisonassign",
	KindCharacterEscape:      "character.escape",
	KindTaskResearch:         "task.research",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := KindUnknown + 1; k < kindCount; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

// String returns the dotted type name, e.g. "military.disengage".
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Valid reports whether k is a member of the closed set.
func (k Kind) Valid() bool {
	return k > KindUnknown && k < kindCount
}

// ParseKind maps a dotted type name to its Kind. Unrecognised names yield
// KindUnknown.
func ParseKind(s string) Kind {
	return kindsByName[s]
}

// Kinds returns every valid Kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// BattleKinds are the kinds that mark a character as occupied by a battle.
var BattleKinds = []Kind{
	KindMilitaryBattle,
	KindSettlementAttack,
	KindSettlementAssault,
	KindSettlementSortie,
}

// IsBattle reports whether k is one of BattleKinds.
func (k Kind) IsBattle() bool {
	for _, b := range BattleKinds {
		if k == b {
			return true
		}
	}
	return false
}
