// Package permission answers whether a character may act on a settlement at
// the moment an action resolves, and whether a character matches a listing.
package permission

import (
	"github.com/cory-johannsen/warband/internal/game/geo"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// Reasons reported by Decision. They are suffixes of the
// "resolution.<reason>" translation keys used in failure events.
const (
	ReasonUnknown    = "unavailable.unknown"
	ReasonInBattle   = "unavailable.inbattle"
	ReasonPrisoner   = "unavailable.prisoner"
	ReasonIsYours    = "unavailable.isyours"
	ReasonNotYours   = "unavailable.notyours"
	ReasonNotNearby  = "unavailable.notnearby"
	ReasonNoSoldiers = "unavailable.nosoldiers"
	ReasonSameOwner  = "unavailable.sameowner"
)

// Decision is the outcome of a permission test.
type Decision struct {
	OK     bool
	Reason string
}

// Allow is the affirmative decision.
var Allow = Decision{OK: true}

// Deny returns a negative decision with reason.
func Deny(reason string) Decision { return Decision{Reason: reason} }

// Checker is the permission collaborator used by resolvers.
type Checker interface {
	// CheckListing reports whether c is an allowed member of the listing,
	// returning the listing id and the matched level.
	CheckListing(listing int64, c *world.Character) (bool, int64, string)
	CanTake(c *world.Character, s *world.Settlement) Decision
	CanRename(c *world.Character, s *world.Settlement) Decision
	CanGrant(c *world.Character, s *world.Settlement, to *world.Character) Decision
}

// BattleMembership reports whether a character is engaged in a battle.
type BattleMembership interface {
	InBattle(c world.CharacterID) bool
}

// Rules is the default Checker over world state.
type Rules struct {
	state   *world.State
	geo     geo.Geography
	battles BattleMembership
}

// NewRules returns Rules reading from state.
//
// Precondition: all arguments must be non-nil.
func NewRules(state *world.State, g geo.Geography, battles BattleMembership) *Rules {
	return &Rules{state: state, geo: g, battles: battles}
}

// CheckListing matches c against the listing's allowed members. An unknown
// listing matches nobody.
func (r *Rules) CheckListing(listing int64, c *world.Character) (bool, int64, string) {
	l, ok := r.state.Listing(listing)
	if !ok {
		return false, 0, ""
	}
	m, ok := l.Lookup(c.ID)
	if !ok {
		return false, l.ID, ""
	}
	if !m.Allowed {
		return false, l.ID, "denied"
	}
	return true, l.ID, "allowed"
}

// CanTake requires a free character with active soldiers, near the
// settlement, not fighting, and not already its owner.
func (r *Rules) CanTake(c *world.Character, s *world.Settlement) Decision {
	switch {
	case c.PrisonerOf != 0:
		return Deny(ReasonPrisoner)
	case s.Owner == c.ID:
		return Deny(ReasonIsYours)
	case r.battles.InBattle(c.ID):
		return Deny(ReasonInBattle)
	case c.ActiveSoldiers() == 0:
		return Deny(ReasonNoSoldiers)
	case r.geo.DistanceToSettlement(c, s) > r.geo.ActionDistance(s):
		return Deny(ReasonNotNearby)
	}
	return Allow
}

// CanRename requires the character to own the settlement.
func (r *Rules) CanRename(c *world.Character, s *world.Settlement) Decision {
	switch {
	case c.PrisonerOf != 0:
		return Deny(ReasonPrisoner)
	case s.Owner != c.ID:
		return Deny(ReasonNotYours)
	}
	return Allow
}

// CanGrant requires the character to own the settlement and the recipient
// to be someone else.
func (r *Rules) CanGrant(c *world.Character, s *world.Settlement, to *world.Character) Decision {
	switch {
	case c.PrisonerOf != 0:
		return Deny(ReasonPrisoner)
	case s.Owner != c.ID:
		return Deny(ReasonNotYours)
	case to == nil:
		return Deny(ReasonUnknown)
	case to.ID == c.ID:
		return Deny(ReasonSameOwner)
	}
	return Allow
}
