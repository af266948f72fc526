// Package request models player-to-player requests: one party asks another
// to approve something, such as feeding its soldiers or joining a house.
package request

import (
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/warband/internal/game/world"
)

// Sentinel errors returned by New and the Manager.
var (
	ErrInvalidRequest = errors.New("request: invalid request")
	ErrNotFound       = errors.New("request: not found")
	ErrNotAuthorized  = errors.New("request: not authorized")
	ErrDecided        = errors.New("request: already decided")
)

// ID identifies a stored request.
type ID int64

// Kind selects how a request is approved or denied.
type Kind int

const (
	KindUnknown Kind = iota
	KindSoldierFood
	KindHouseJoin
)

var kindNames = map[Kind]string{
	KindUnknown:     "unknown",
	KindSoldierFood: "soldier.food",
	KindHouseJoin:   "house.join",
}

// String returns the dotted type name.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return kindNames[KindUnknown]
}

// ParseKind maps a dotted type name to its Kind; unknown names yield
// KindUnknown.
func ParseKind(s string) Kind {
	for k, n := range kindNames {
		if n == s {
			return k
		}
	}
	return KindUnknown
}

// Party is one slot of a request: who asks, who is asked, or what is
// included. The set of variants is closed.
type Party interface {
	party()
	String() string
}

// CharacterParty is a single character.
type CharacterParty struct{ ID world.CharacterID }

// SettlementParty is a settlement, acted for by its owner.
type SettlementParty struct{ ID world.SettlementID }

// RealmParty is a realm, acted for by its ruler.
type RealmParty struct{ ID world.RealmID }

// HouseParty is a house, acted for by its head.
type HouseParty struct{ ID world.HouseID }

// SoldiersParty is a set of soldiers offered as part of a request.
type SoldiersParty struct{ IDs []int64 }

func (CharacterParty) party()  {}
func (SettlementParty) party() {}
func (RealmParty) party()      {}
func (HouseParty) party()      {}
func (SoldiersParty) party()   {}

func (p CharacterParty) String() string  { return fmt.Sprintf("character:%d", p.ID) }
func (p SettlementParty) String() string { return fmt.Sprintf("settlement:%d", p.ID) }
func (p RealmParty) String() string      { return fmt.Sprintf("realm:%d", p.ID) }
func (p HouseParty) String() string      { return fmt.Sprintf("house:%d", p.ID) }
func (p SoldiersParty) String() string   { return fmt.Sprintf("soldiers:%d", len(p.IDs)) }

// Request is a pending or decided player-to-player request.
//
// Invariant: From and To are non-nil; Include is nil or a single variant.
type Request struct {
	ID      ID
	Kind    Kind
	Created time.Time
	Expires *time.Time

	NumberValue float64
	StringValue string
	Subject     string
	Text        string

	From    Party
	To      Party
	Include Party

	// Accepted is nil while the request awaits a decision.
	Accepted *bool
}

// Pending reports whether no decision has been made.
func (r *Request) Pending() bool { return r.Accepted == nil }

// Expired reports whether r has an expiry at or before now.
func (r *Request) Expired(now time.Time) bool {
	return r.Expires != nil && !r.Expires.After(now)
}

// clone returns a copy of r that shares no pointers with it.
func (r *Request) clone() *Request {
	cp := *r
	if r.Expires != nil {
		e := *r.Expires
		cp.Expires = &e
	}
	if r.Accepted != nil {
		a := *r.Accepted
		cp.Accepted = &a
	}
	return &cp
}

// Option sets an optional field on a new request.
type Option func(*Request)

// WithExpiry sets the expiry time.
func WithExpiry(t time.Time) Option { return func(r *Request) { r.Expires = &t } }

// WithSubject sets the subject line.
func WithSubject(s string) Option { return func(r *Request) { r.Subject = s } }

// WithText sets the message body.
func WithText(s string) Option { return func(r *Request) { r.Text = s } }

// WithNumber sets NumberValue.
func WithNumber(v float64) Option { return func(r *Request) { r.NumberValue = v } }

// WithString sets StringValue.
func WithString(s string) Option { return func(r *Request) { r.StringValue = s } }

// WithInclude sets the included payload.
func WithInclude(p Party) Option { return func(r *Request) { r.Include = p } }

// New builds a request of kind from one party to another.
//
// Precondition: from and to must be non-nil.
// Postcondition: the returned request matches the shape its kind requires,
// or the error wraps ErrInvalidRequest.
func New(kind Kind, from, to Party, opts ...Option) (*Request, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("%s: missing party: %w", kind, ErrInvalidRequest)
	}
	r := &Request{Kind: kind, From: from, To: to}
	for _, o := range opts {
		o(r)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Request) validate() error {
	if _, ok := r.From.(CharacterParty); !ok {
		return fmt.Errorf("%s from %s: %w", r.Kind, r.From, ErrInvalidRequest)
	}
	switch r.Kind {
	case KindSoldierFood:
		if _, ok := r.To.(SettlementParty); !ok {
			return fmt.Errorf("%s to %s: %w", r.Kind, r.To, ErrInvalidRequest)
		}
	case KindHouseJoin:
		if _, ok := r.To.(HouseParty); !ok {
			return fmt.Errorf("%s to %s: %w", r.Kind, r.To, ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("kind %d: %w", r.Kind, ErrInvalidRequest)
	}
	return nil
}
