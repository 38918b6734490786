package service

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

const (
	colorWelcome  = 0x5865F2
	colorReminder = 0xFAA61A
	colorKick     = 0xED4245
	colorSuccess  = 0x57F287
)

func welcomeMessage(appName, link string, ttl time.Duration) Message {
	return Message{
		Title: fmt.Sprintf("Welcome to %s!", appName),
		Description: "To get access to the server you need to link your Discord account with your character.\n\n" +
			fmt.Sprintf("[Click here to authenticate](%s)", link),
		URL:   link,
		Color: colorWelcome,
		Fields: []MessageField{
			{Name: "Link expires in", Value: humanDuration(ttl), Inline: true},
		},
		Footer: "This link can only be used once. Use /bind to get a new one.",
	}
}

func reminderMessage(appName, link string, ttl time.Duration, reminderCount int, kickAt time.Time) Message {
	return Message{
		Title: fmt.Sprintf("Reminder: authenticate with %s", appName),
		Description: "You have not linked your account yet. Members who do not authenticate are removed from the server.\n\n" +
			fmt.Sprintf("[Click here to authenticate](%s)", link),
		URL:   link,
		Color: colorReminder,
		Fields: []MessageField{
			{Name: "Removal scheduled", Value: kickAt.UTC().Format("2006-01-02 15:04 MST"), Inline: true},
			{Name: "Link expires in", Value: humanDuration(ttl), Inline: true},
			{Name: "Reminder", Value: fmt.Sprintf("#%d", reminderCount), Inline: true},
		},
	}
}

func adminIssuedMessage(appName, link string, ttl time.Duration) Message {
	msg := welcomeMessage(appName, link, ttl)
	msg.Title = fmt.Sprintf("Authenticate with %s", appName)
	msg.Footer = "An administrator requested this link for you."
	return msg
}

func kickLogMessage(evt KickEvent) Message {
	status := "removed"
	if evt.RemovalErr != nil {
		status = "removal failed: " + evt.RemovalErr.Error()
	}
	return Message{
		Title:       "Member removed for not authenticating",
		Description: fmt.Sprintf("<@%d> (%s)", evt.DiscordID, evt.Username),
		Color:       colorKick,
		Fields: []MessageField{
			{Name: "Joined", Value: evt.JoinedAt.UTC().Format(time.RFC3339), Inline: true},
			{Name: "Reminders sent", Value: fmt.Sprintf("%d", evt.ReminderCount), Inline: true},
			{Name: "Status", Value: status},
		},
	}
}

func linkedMessage(characterName string) Message {
	return Message{
		Title:       "Account linked",
		Description: fmt.Sprintf("Your Discord account is now linked to **%s**.", characterName),
		Color:       colorSuccess,
	}
}

// goodbyeData is available to the goodbye message template.
type goodbyeData struct {
	Username     string
	AppName      string
	TimeoutHours int
	JoinedAt     time.Time
}

func parseGoodbyeTemplate(text string) (*template.Template, error) {
	tmpl, err := template.New("goodbye").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid goodbye message template: %w", err)
	}
	return tmpl, nil
}

func renderGoodbye(tmpl *template.Template, data goodbyeData) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to render goodbye message: %w", err)
	}
	return buf.String(), nil
}

// humanDuration formats whole hours and minutes, e.g. "1h", "1h30m", "45m".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
