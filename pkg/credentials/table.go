package credentials

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/cardlock/pkg/utils"
)

// Placeholder values shipped in the sample table. A deployment that still
// carries any of these has not been configured.
const (
	PlaceholderWiFiSSID     = "Your_WiFi_Name"
	PlaceholderWiFiPassword = "Your_WiFi_Password"
	PlaceholderAppKey       = "your-app-key-here"
	PlaceholderAppSecret    = "your-app-secret-here"
	PlaceholderLockID       = "your-lock-id-here"
	PlaceholderSwitchID     = "your-switch-id-here"
)

// Field names used in validation errors, log fields and secret maps.
const (
	FieldWiFiSSID        = "wifi_ssid"
	FieldWiFiPassword    = "wifi_pass"
	FieldAppKey          = "app_key"
	FieldAppSecret       = "app_secret"
	FieldLockID          = "lock_id"
	FieldSwitchID        = "switch_id"
	FieldAuthorizedCards = "authorized_cards"
)

var placeholders = map[string]string{
	FieldWiFiSSID:     PlaceholderWiFiSSID,
	FieldWiFiPassword: PlaceholderWiFiPassword,
	FieldAppKey:       PlaceholderAppKey,
	FieldAppSecret:    PlaceholderAppSecret,
	FieldLockID:       PlaceholderLockID,
	FieldSwitchID:     PlaceholderSwitchID,
}

// sampleCards are the card UIDs of the sample table.
var sampleCards = []string{"5474E900", "3ED70805", "93936A14"}

// Params holds the raw inputs of a Table.
type Params struct {
	WiFiSSID        string
	WiFiPassword    string
	AppKey          string
	AppSecret       string
	LockID          string
	SwitchID        string
	AuthorizedCards []string
}

// Table is the read-only credential and allow-list table of one deployment.
// The zero value is an empty table. A Table never changes after New, so it
// can be shared between goroutines and passed by value.
type Table struct {
	wifiSSID     string
	wifiPassword string
	appKey       string
	appSecret    string
	lockID       string
	switchID     string
	cards        []string
}

// New builds a Table from p. The card list is copied. Empty values are
// stored as given; rejecting them is up to the caller.
func New(p Params) Table {
	return Table{
		wifiSSID:     p.WiFiSSID,
		wifiPassword: p.WiFiPassword,
		appKey:       p.AppKey,
		appSecret:    p.AppSecret,
		lockID:       p.LockID,
		switchID:     p.SwitchID,
		cards:        cloneStrings(p.AuthorizedCards),
	}
}

// Sample returns the table of placeholder values.
func Sample() Table {
	return New(Params{
		WiFiSSID:        PlaceholderWiFiSSID,
		WiFiPassword:    PlaceholderWiFiPassword,
		AppKey:          PlaceholderAppKey,
		AppSecret:       PlaceholderAppSecret,
		LockID:          PlaceholderLockID,
		SwitchID:        PlaceholderSwitchID,
		AuthorizedCards: sampleCards,
	})
}

// IsPlaceholder reports whether value is the sample placeholder of field.
func IsPlaceholder(field, value string) bool {
	p, ok := placeholders[field]
	return ok && value == p
}

// WiFiSSID is the network name the controller joins.
func (t Table) WiFiSSID() string { return t.wifiSSID }

// WiFiPassword is the network secret. Sensitive.
func (t Table) WiFiPassword() string { return t.wifiPassword }

// AppKey is the SinricPro application key. Sensitive.
func (t Table) AppKey() string { return t.appKey }

// AppSecret is the SinricPro application secret. Sensitive.
func (t Table) AppSecret() string { return t.appSecret }

// LockID is the SinricPro device id of the lock.
func (t Table) LockID() string { return t.lockID }

// SwitchID is the SinricPro device id of the switch.
func (t Table) SwitchID() string { return t.switchID }

// AuthorizedCards returns a copy of the authorized card UIDs in table order.
func (t Table) AuthorizedCards() []string {
	return cloneStrings(t.cards)
}

// NumAuthorizedCards is always derived from the card list.
func (t Table) NumAuthorizedCards() int {
	return len(t.cards)
}

// Params returns the inputs of t, so a caller can derive a modified table.
func (t Table) Params() Params {
	return Params{
		WiFiSSID:        t.wifiSSID,
		WiFiPassword:    t.wifiPassword,
		AppKey:          t.appKey,
		AppSecret:       t.appSecret,
		LockID:          t.lockID,
		SwitchID:        t.switchID,
		AuthorizedCards: cloneStrings(t.cards),
	}
}

// Summary is the masked, serializable view of a Table.
type Summary struct {
	WiFiSSID           string `json:"wifi_ssid"`
	WiFiPassword       string `json:"wifi_pass"`
	AppKey             string `json:"app_key"`
	AppSecret          string `json:"app_secret"`
	LockID             string `json:"lock_id"`
	SwitchID           string `json:"switch_id"`
	NumAuthorizedCards int    `json:"num_authorized_cards"`
}

// Summary masks every sensitive field of t.
func (t Table) Summary() Summary {
	return Summary{
		WiFiSSID:           t.wifiSSID,
		WiFiPassword:       utils.MaskSecret(t.wifiPassword),
		AppKey:             utils.MaskSecret(t.appKey),
		AppSecret:          utils.MaskSecret(t.appSecret),
		LockID:             t.lockID,
		SwitchID:           t.switchID,
		NumAuthorizedCards: t.NumAuthorizedCards(),
	}
}

// LogFields renders the masked table as zap fields.
func (t Table) LogFields() []zap.Field {
	s := t.Summary()
	return []zap.Field{
		zap.String(FieldWiFiSSID, s.WiFiSSID),
		zap.String(FieldWiFiPassword, s.WiFiPassword),
		zap.String(FieldAppKey, s.AppKey),
		zap.String(FieldAppSecret, s.AppSecret),
		zap.String(FieldLockID, s.LockID),
		zap.String(FieldSwitchID, s.SwitchID),
		zap.Int("num_authorized_cards", s.NumAuthorizedCards),
	}
}

// String never prints secrets in clear text.
func (t Table) String() string {
	s := t.Summary()
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%q %s=%s %s=%s %s=%s ",
		FieldWiFiSSID, s.WiFiSSID, FieldWiFiPassword, s.WiFiPassword,
		FieldAppKey, s.AppKey, FieldAppSecret, s.AppSecret)
	fmt.Fprintf(&b, "%s=%q %s=%q cards=%d",
		FieldLockID, s.LockID, FieldSwitchID, s.SwitchID, s.NumAuthorizedCards)
	return b.String()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
