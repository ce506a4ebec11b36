package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Checker-Finance/cardlock/pkg/credentials"
)

// ErrMisconfigured is wrapped by every ConfigError.
var ErrMisconfigured = errors.New("credential table misconfigured")

// FieldError describes one rejected value.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// ConfigError collects every problem found in a table.
type ConfigError struct {
	Fields []FieldError
}

func (e *ConfigError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s", ErrMisconfigured, strings.Join(parts, "; "))
}

func (e *ConfigError) Unwrap() error { return ErrMisconfigured }

// Validate checks a table before the service uses it. Empty values,
// sample placeholders and malformed card UIDs are errors.
func Validate(t credentials.Table) error {
	var errs []FieldError
	add := func(field, reason string) {
		errs = append(errs, FieldError{Field: field, Reason: reason})
	}

	for _, f := range []struct{ name, value string }{
		{credentials.FieldWiFiSSID, t.WiFiSSID()},
		{credentials.FieldWiFiPassword, t.WiFiPassword()},
		{credentials.FieldAppKey, t.AppKey()},
		{credentials.FieldAppSecret, t.AppSecret()},
		{credentials.FieldLockID, t.LockID()},
		{credentials.FieldSwitchID, t.SwitchID()},
	} {
		switch {
		case strings.TrimSpace(f.value) == "":
			add(f.name, "empty")
		case credentials.IsPlaceholder(f.name, f.value):
			add(f.name, "placeholder value")
		}
	}

	cards := t.AuthorizedCards()
	if len(cards) == 0 {
		add(credentials.FieldAuthorizedCards, "empty")
	}
	for i, card := range cards {
		if strings.TrimSpace(card) == "" {
			add(fmt.Sprintf("%s[%d]", credentials.FieldAuthorizedCards, i), "empty")
			continue
		}
		if _, err := NormalizeUID(card); err != nil {
			add(fmt.Sprintf("%s[%d]", credentials.FieldAuthorizedCards, i), "not a hex uid")
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ConfigError{Fields: errs}
}

// Duplicates lists normalized card UIDs that appear more than once.
// Duplicates are harmless for checks, so they are reported, not rejected.
func Duplicates(t credentials.Table) []string {
	seen := make(map[string]int)
	var dups []string
	for _, card := range t.AuthorizedCards() {
		uid, err := NormalizeUID(card)
		if err != nil {
			continue
		}
		seen[uid]++
		if seen[uid] == 2 {
			dups = append(dups, uid)
		}
	}
	return dups
}
