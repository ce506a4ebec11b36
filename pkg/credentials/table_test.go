package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		WiFiSSID:        "office-net",
		WiFiPassword:    "correct-horse-battery",
		AppKey:          "0a1b2c3d-app-key-9f8e",
		AppSecret:       "s3cr3t-value-for-app-1234",
		LockID:          "lock-5f1a",
		SwitchID:        "switch-77c2",
		AuthorizedCards: []string{"5474E900", "3ED70805", "93936A14"},
	}
}

func TestNew_CountDerivedFromList(t *testing.T) {
	tbl := New(testParams())

	assert.Equal(t, 3, tbl.NumAuthorizedCards())
	assert.Equal(t, len(tbl.AuthorizedCards()), tbl.NumAuthorizedCards())
}

func TestNew_AppendCardRederivesCount(t *testing.T) {
	p := New(testParams()).Params()
	p.AuthorizedCards = append(p.AuthorizedCards, "AA11BB22")

	tbl := New(p)
	assert.Equal(t, 4, tbl.NumAuthorizedCards())
	assert.Equal(t, "AA11BB22", tbl.AuthorizedCards()[3])
}

func TestNew_CopiesInputSlice(t *testing.T) {
	p := testParams()
	tbl := New(p)

	p.AuthorizedCards[0] = "DEADBEEF"
	assert.Equal(t, "5474E900", tbl.AuthorizedCards()[0])
}

func TestAuthorizedCards_ReturnsCopy(t *testing.T) {
	tbl := New(testParams())

	cards := tbl.AuthorizedCards()
	cards[1] = "00000000"

	assert.Equal(t, []string{"5474E900", "3ED70805", "93936A14"}, tbl.AuthorizedCards())
	assert.Equal(t, 3, tbl.NumAuthorizedCards())
}

func TestAccessors_StableAcrossReads(t *testing.T) {
	tbl := New(testParams())

	for i := 0; i < 2; i++ {
		assert.Equal(t, "office-net", tbl.WiFiSSID())
		assert.Equal(t, "correct-horse-battery", tbl.WiFiPassword())
		assert.Equal(t, "0a1b2c3d-app-key-9f8e", tbl.AppKey())
		assert.Equal(t, "s3cr3t-value-for-app-1234", tbl.AppSecret())
		assert.Equal(t, "lock-5f1a", tbl.LockID())
		assert.Equal(t, "switch-77c2", tbl.SwitchID())
	}
}

func TestNew_AcceptsEmptyValues(t *testing.T) {
	tbl := New(Params{})

	assert.Equal(t, "", tbl.WiFiSSID())
	assert.Equal(t, 0, tbl.NumAuthorizedCards())
	assert.Nil(t, tbl.AuthorizedCards())
}

func TestSample(t *testing.T) {
	tbl := Sample()

	assert.Equal(t, 3, tbl.NumAuthorizedCards())
	assert.True(t, IsPlaceholder(FieldWiFiSSID, tbl.WiFiSSID()))
	assert.True(t, IsPlaceholder(FieldAppSecret, tbl.AppSecret()))
	assert.True(t, IsPlaceholder(FieldSwitchID, tbl.SwitchID()))
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(FieldLockID, PlaceholderLockID))
	assert.False(t, IsPlaceholder(FieldLockID, "lock-5f1a"))
	assert.False(t, IsPlaceholder("unknown", PlaceholderLockID))
}

func TestSummary_MasksSecrets(t *testing.T) {
	s := New(testParams()).Summary()

	assert.Equal(t, "office-net", s.WiFiSSID)
	assert.Equal(t, "***1234", s.AppSecret)
	assert.NotContains(t, s.WiFiPassword, "horse")
	assert.NotContains(t, s.AppKey, "0a1b2c3d")
	assert.Equal(t, 3, s.NumAuthorizedCards)
}

func TestString_NoClearTextSecrets(t *testing.T) {
	out := New(testParams()).String()

	require.Contains(t, out, "cards=3")
	assert.NotContains(t, out, "correct-horse-battery")
	assert.NotContains(t, out, "s3cr3t-value-for-app-1234")
}

func TestLogFields(t *testing.T) {
	fields := New(testParams()).LogFields()
	require.Len(t, fields, 7)
	assert.Equal(t, "num_authorized_cards", fields[6].Key)
	assert.Equal(t, int64(3), fields[6].Integer)
}
