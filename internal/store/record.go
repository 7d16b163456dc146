package store

import (
	"strings"
	"time"
)

// UserID is the chat platform's opaque user identifier.
type UserID int64

// ChannelID is the chat platform's opaque channel identifier.
type ChannelID int64

// Mimic is a named impersonation identity a user can post under.
type Mimic struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// MimicUser holds one user's impersonation state. The active mimic and the
// channel overrides reference set entries by name, so they can never point at
// a mimic the business rules have already removed.
type MimicUser struct {
	Mimics          []Mimic              `json:"mimics,omitempty"`
	Active          string               `json:"active,omitempty"`
	AutoMode        bool                 `json:"auto_mode,omitempty"`
	ChannelOverride map[ChannelID]string `json:"channel_override,omitempty"`
}

// Find returns the mimic with the given name. Names are unique within a set,
// compared case-insensitively.
func (m *MimicUser) Find(name string) (Mimic, bool) {
	for _, mm := range m.Mimics {
		if strings.EqualFold(mm.Name, name) {
			return mm, true
		}
	}
	return Mimic{}, false
}

// ScheduleEvent is a named future instant a user wants to be reminded of.
// When is always UTC; TZ is the IANA zone the event was created in and only
// affects display. ID tags the event so a reminder timer armed for it can
// tell whether the event still exists when the timer fires.
type ScheduleEvent struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	When time.Time `json:"when"`
	TZ   string    `json:"tz,omitempty"`
}

// ScheduleUser holds one user's reminder schedule. Events stay sorted
// ascending by instant after every mutation.
type ScheduleUser struct {
	Timezone string          `json:"timezone,omitempty"`
	Events   []ScheduleEvent `json:"events,omitempty"`
}

// WalletUser is a per-user integer ledger. LastDailyTS is unix seconds of the
// last daily claim, 0 if never claimed.
type WalletUser struct {
	Tabs        int64 `json:"tabs"`
	LastDailyTS int64 `json:"last_daily_ts,omitempty"`
}

// User is the composite per-user record. A materialized record always carries
// all three sub-records, possibly empty.
type User struct {
	Mimic    MimicUser    `json:"mimic"`
	Schedule ScheduleUser `json:"schedule"`
	Wallet   WalletUser   `json:"wallet"`
}

func (u *User) clone() User {
	c := *u
	if u.Mimic.Mimics != nil {
		c.Mimic.Mimics = append([]Mimic(nil), u.Mimic.Mimics...)
	}
	if u.Mimic.ChannelOverride != nil {
		c.Mimic.ChannelOverride = make(map[ChannelID]string, len(u.Mimic.ChannelOverride))
		for ch, name := range u.Mimic.ChannelOverride {
			c.Mimic.ChannelOverride[ch] = name
		}
	}
	if u.Schedule.Events != nil {
		c.Schedule.Events = append([]ScheduleEvent(nil), u.Schedule.Events...)
	}
	return c
}
