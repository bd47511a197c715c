package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserPatchApply(t *testing.T) {
	u := User{ID: 1, FirstName: "Old", Gender: GenderFemale, Blocked: true, UTMSource: "ads"}
	UserPatch{
		ID:        1,
		FirstName: StringPtr("New"),
		LastName:  StringPtr(""),
		IsPremium: BoolPtr(true),
		UTMSource: StringPtr("organic"),
	}.Apply(&u, false)

	assert.Equal(t, "New", u.FirstName)
	assert.True(t, u.IsPremium)
	assert.Equal(t, GenderFemale, u.Gender)
	assert.True(t, u.Blocked)
	assert.Equal(t, "ads", u.UTMSource, "attribution is first-touch")
}

func TestUserPatchApplyAttributionOnlyOnCreate(t *testing.T) {
	patch := UserPatch{ID: 1, UTMSource: StringPtr("ads"), UTMCampaign: StringPtr("x")}

	var existing User
	patch.Apply(&existing, false)
	assert.Empty(t, existing.UTMSource)
	assert.Empty(t, existing.UTMCampaign)

	var fresh User
	patch.Apply(&fresh, true)
	assert.Equal(t, "ads", fresh.UTMSource)
	assert.Equal(t, "x", fresh.UTMCampaign)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ann", User{ID: 1, FirstName: "Ann", Username: "ann"}.DisplayName())
	assert.Equal(t, "ann", User{ID: 1, Username: "ann"}.DisplayName())
	assert.Equal(t, "ID: 12", User{ID: 12}.DisplayName())
}
