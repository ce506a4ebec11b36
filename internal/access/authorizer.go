package access

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/Checker-Finance/cardlock/pkg/credentials"
)

// ErrInvalidUID is returned for card UIDs that are not an even-length hex
// string of at most MaxUIDBytes bytes.
var ErrInvalidUID = errors.New("invalid card uid")

// MaxUIDBytes is the longest UID an ISO 14443 card reports (triple size).
const MaxUIDBytes = 10

// InvalidUIDMarker replaces UIDs that do not normalize, so caller input is
// never copied into events or logs.
const InvalidUIDMarker = "INVALID"

// Decision reasons.
const (
	ReasonAuthorized    = "authorized"
	ReasonNotAuthorized = "not_authorized"
	ReasonInvalidUID    = "invalid_uid"
	ReasonDisabled      = "disabled"
	ReasonRateLimited   = "rate_limited"
)

// Decision is the outcome of one card check.
type Decision struct {
	UID     string `json:"uid"`
	Granted bool   `json:"granted"`
	Reason  string `json:"reason"`
}

var uidSeparators = strings.NewReplacer(":", "", "-", "", " ", "")

// NormalizeUID turns a reader UID such as "54:74:e9:00" into "5474E900".
func NormalizeUID(raw string) (string, error) {
	uid := strings.ToUpper(uidSeparators.Replace(strings.TrimSpace(raw)))
	if uid == "" || len(uid)%2 != 0 || len(uid) > 2*MaxUIDBytes {
		return "", ErrInvalidUID
	}
	if _, err := hex.DecodeString(uid); err != nil {
		return "", ErrInvalidUID
	}
	return uid, nil
}

// DisplayUID is the form of raw that is safe to record: the normalized UID,
// or InvalidUIDMarker.
func DisplayUID(raw string) string {
	uid, err := NormalizeUID(raw)
	if err != nil {
		return InvalidUIDMarker
	}
	return uid
}

// Authorizer answers membership checks against the allow-list of a table.
// It is read-only after construction.
type Authorizer struct {
	cards    map[string]struct{}
	disabled bool
}

// NewAuthorizer indexes the authorized cards of t. Entries that do not
// normalize are skipped; Validate reports them.
func NewAuthorizer(t credentials.Table) *Authorizer {
	a := &Authorizer{cards: make(map[string]struct{}, t.NumAuthorizedCards())}
	for _, card := range t.AuthorizedCards() {
		uid, err := NormalizeUID(card)
		if err != nil {
			continue
		}
		a.cards[uid] = struct{}{}
	}
	return a
}

// Disabled returns an Authorizer that denies every card.
func Disabled() *Authorizer {
	return &Authorizer{cards: map[string]struct{}{}, disabled: true}
}

// Check decides whether the card with the given UID may operate the lock.
func (a *Authorizer) Check(raw string) Decision {
	if a.disabled {
		return Decision{UID: DisplayUID(raw), Reason: ReasonDisabled}
	}
	uid, err := NormalizeUID(raw)
	if err != nil {
		return Decision{UID: InvalidUIDMarker, Reason: ReasonInvalidUID}
	}
	if _, ok := a.cards[uid]; ok {
		return Decision{UID: uid, Granted: true, Reason: ReasonAuthorized}
	}
	return Decision{UID: uid, Reason: ReasonNotAuthorized}
}

// Size is the number of distinct cards accepted.
func (a *Authorizer) Size() int {
	return len(a.cards)
}
