package domain

import (
	"strconv"
	"time"
)

// Gender values an operator may assign to a user.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// User is the per-bot profile of an end user.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Username     string    `json:"username,omitempty"`
	LanguageCode string    `json:"language_code,omitempty"`
	IsPremium    bool      `json:"is_premium"`
	UTMSource    string    `json:"utmSource,omitempty"`
	UTMCampaign  string    `json:"utmCampaign,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	Blocked      bool      `json:"blocked"`
	BotBlocked   bool      `json:"botBlocked"`
	FirstSeen    time.Time `json:"firstSeen"`
	LastSeen     time.Time `json:"lastSeen"`
}

// DisplayName picks the most readable identifier for the user.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return "ID: " + strconv.FormatInt(u.ID, 10)
	}
}

// UserPatch carries the fields to merge into a stored user. Nil pointers keep
// the stored value.
type UserPatch struct {
	ID           int64
	FirstName    *string
	LastName     *string
	Username     *string
	LanguageCode *string
	IsPremium    *bool
	UTMSource    *string
	UTMCampaign  *string
	Gender       *string
	Blocked      *bool
	BotBlocked   *bool
}

// Apply merges the patch over u. Attribution fields are only taken when
// created is set, i.e. on the sighting that creates the record.
func (p UserPatch) Apply(u *User, created bool) {
	u.ID = p.ID
	setString(&u.FirstName, p.FirstName)
	setString(&u.LastName, p.LastName)
	setString(&u.Username, p.Username)
	setString(&u.LanguageCode, p.LanguageCode)
	setString(&u.Gender, p.Gender)
	if p.IsPremium != nil {
		u.IsPremium = *p.IsPremium
	}
	if p.Blocked != nil {
		u.Blocked = *p.Blocked
	}
	if p.BotBlocked != nil {
		u.BotBlocked = *p.BotBlocked
	}
	if created {
		setString(&u.UTMSource, p.UTMSource)
		setString(&u.UTMCampaign, p.UTMCampaign)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string {
	return &v
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}
