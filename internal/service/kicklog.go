package service

import (
	"context"
	"errors"
)

// ChannelKickLogger posts kick events to a Discord channel.
type ChannelKickLogger struct {
	messenger Messenger
	channelID int64
}

func NewChannelKickLogger(messenger Messenger, channelID int64) *ChannelKickLogger {
	return &ChannelKickLogger{messenger: messenger, channelID: channelID}
}

func (l *ChannelKickLogger) LogKick(ctx context.Context, evt KickEvent) error {
	return l.messenger.SendChannel(ctx, l.channelID, kickLogMessage(evt))
}

// MultiKickLogger fans a kick event out to every logger. One failing logger
// does not stop the others.
type MultiKickLogger []KickLogger

func (m MultiKickLogger) LogKick(ctx context.Context, evt KickEvent) error {
	var errs []error
	for _, l := range m {
		err := l.LogKick(ctx, evt)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
