package model

import "time"

// Member is a guild member as reported by Discord.
type Member struct {
	ID       int64
	Username string
	Nick     string
	Bot      bool
	RoleIDs  []int64
	JoinedAt time.Time
}

// DisplayName prefers the guild nickname over the account name.
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.Username
}

// Actor is the member invoking a privileged command.
type Actor struct {
	ID            int64
	RoleIDs       []int64
	Administrator bool
	ManageGuild   bool
}
