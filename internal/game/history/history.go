// Package history records game events against characters, settlements,
// realms and houses, and tracks which readers may see which part of each subject's log.
package history

import (
	"fmt"
	"math"
	"time"

	"github.com/cory-johannsen/warband/internal/game/world"
)

// Severity ranks an event for display and notification.
type Severity int

const (
	Low Severity = iota
	Medium
	High
	Ultra
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Ultra:
		return "ultra"
	default:
		return "unknown"
	}
}

// SubjectKind distinguishes the owners of event logs.
type SubjectKind string

const (
	SubjectCharacter  SubjectKind = "character"
	SubjectSettlement SubjectKind = "settlement"
	SubjectRealm      SubjectKind = "realm"
	SubjectHouse      SubjectKind = "house"
)

// FullAccess is the window start of a reader who sees a log from its
// first event.
const FullAccess = math.MinInt

// Subject identifies whose log an event belongs to.
type Subject struct {
	Kind SubjectKind
	ID   int64
}

// String renders the subject as "kind:id".
func (s Subject) String() string { return fmt.Sprintf("%s:%d", s.Kind, s.ID) }

// OfCharacter returns the log subject for a character.
func OfCharacter(id world.CharacterID) Subject {
	return Subject{Kind: SubjectCharacter, ID: int64(id)}
}

// OfSettlement returns the log subject for a settlement.
func OfSettlement(id world.SettlementID) Subject {
	return Subject{Kind: SubjectSettlement, ID: int64(id)}
}

// OfRealm returns the log subject for a realm.
func OfRealm(id world.RealmID) Subject {
	return Subject{Kind: SubjectRealm, ID: int64(id)}
}

// OfHouse returns the log subject for a house.
func OfHouse(id world.HouseID) Subject {
	return Subject{Kind: SubjectHouse, ID: int64(id)}
}

// Params carries translation placeholders such as "%link-character%".
type Params map[string]any

// Event is one journal entry.
type Event struct {
	Subject  Subject
	Key      string
	Params   Params
	Severity Severity
	Notify   bool
	Cycle    int
	At       time.Time
	// Expires is nil for events that never expire.
	Expires *time.Time
}

// Sink accepts events. LogEvent is fire-and-forget: implementations must not
// block the caller on I/O and never report failures back.
type Sink interface {
	LogEvent(subject Subject, key string, params Params, severity Severity, notify bool, expiryHours int)
}

// Journal manages per-reader access windows over subject logs.
type Journal interface {
	// OpenLog grants reader access to the subject's log from the current cycle.
	OpenLog(subject Subject, reader world.CharacterID)
	// CloseLog ends the reader's access at the current cycle.
	CloseLog(subject Subject, reader world.CharacterID)
	// AccessFrom returns the earliest cycle the reader can see.
	AccessFrom(subject Subject, reader world.CharacterID) (int, bool)
	// SetAccessFrom moves the reader's window start.
	SetAccessFrom(subject Subject, reader world.CharacterID, cycle int)
	// PreviousCycle returns the latest cycle strictly before the given one in
	// which the subject logged an event.
	PreviousCycle(subject Subject, before int) (int, bool)
}
