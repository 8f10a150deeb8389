// Package domain contains entities without logic, just meta-data
// and the few pure functions defined over them.
package domain

import (
	"errors"
	"strings"
)

const MaxParticipantIDLen = 64

var (
	ErrLangEmpty  = errors.New("language empty")
	ErrLangLocked = errors.New("language locked")
)

type ParticipantID string

// Lang is a BCP 47 language tag ("en", "es-MX", ...).
type Lang string

// Primary strips any region subtag and lowercases: "es-MX" -> "es".
func (l Lang) Primary() Lang {
	s := string(l)
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	return Lang(strings.ToLower(strings.TrimSpace(s)))
}

// Participant is one member of a room as the local process sees it.
// The id is assigned by the relay on connect. The preferred language is
// mutable until locked and immutable for the rest of the session.
type Participant struct {
	ID     ParticipantID `json:"id"`
	Lang   Lang          `json:"lang"`
	Locked bool          `json:"locked"`
}

func NewParticipant(id ParticipantID, lang Lang) *Participant {
	return &Participant{ID: id, Lang: lang.Primary()}
}

// SetLang changes the preferred language. Fails once the language is locked.
func (p *Participant) SetLang(lang Lang) error {
	if p.Locked {
		return ErrLangLocked
	}
	if lang.Primary() == "" {
		return ErrLangEmpty
	}
	p.Lang = lang.Primary()
	return nil
}

// Lock freezes the preferred language for the rest of the session.
func (p *Participant) Lock() { p.Locked = true }

// Role says which side of a peer session this participant drives.
type Role int

const (
	RoleResponder Role = iota
	RoleInitiator
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

// RoleFor computes the negotiation role from the two participant ids with a
// fixed total order. Both sides of a pair compute complementary roles, so a
// pair never produces two simultaneous offers.
func RoleFor(local, remote ParticipantID) Role {
	if local < remote {
		return RoleInitiator
	}
	return RoleResponder
}
