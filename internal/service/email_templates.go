package service

import (
	"fmt"
	"time"
)

func kickLogEmailTemplate(evt KickEvent, appName string) (string, string) {
	subject := fmt.Sprintf("[%s] Member removed: %s", appName, evt.Username)

	status := "Removed from the server."
	if evt.RemovalErr != nil {
		status = fmt.Sprintf("Removal failed: %v", evt.RemovalErr)
	}

	body := fmt.Sprintf(`A member was removed for not authenticating in time.

Username: %s
Discord ID: %d
Guild ID: %d
Joined: %s
Removed: %s
Reminders sent: %d

%s

The %s Bot`,
		evt.Username,
		evt.DiscordID,
		evt.GuildID,
		evt.JoinedAt.UTC().Format(time.RFC1123),
		evt.KickedAt.UTC().Format(time.RFC1123),
		evt.ReminderCount,
		status,
		appName,
	)

	return subject, body
}
