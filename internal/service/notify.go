package service

import (
	"context"
	"log/slog"
)

type Enqueuer interface {
	Enqueue(name string, fn func(ctx context.Context) error) bool
}

// MemberSyncer applies the linked character to the Discord member.
type MemberSyncer interface {
	SyncMember(ctx context.Context, guildID, discordID int64, nickname string, roleIDs []int64) error
}

// SyncNotifier hands completed links to the background queue for nickname
// and role synchronisation.
type SyncNotifier struct {
	queue   Enqueuer
	syncer  MemberSyncer
	guildID int64
	roleIDs []int64
}

func NewSyncNotifier(queue Enqueuer, syncer MemberSyncer, guildID int64, roleIDs []int64) *SyncNotifier {
	return &SyncNotifier{queue: queue, syncer: syncer, guildID: guildID, roleIDs: roleIDs}
}

func (n *SyncNotifier) LinkingCompleted(ctx context.Context, evt LinkingCompleted) {
	ok := n.queue.Enqueue("member_sync", func(ctx context.Context) error {
		return n.syncer.SyncMember(ctx, n.guildID, evt.DiscordID, evt.CharacterName, n.roleIDs)
	})
	if !ok {
		slog.Warn("member sync dropped, queue full", "discord_id", evt.DiscordID)
	}
}

// MessageNotifier tells the member in a direct message that linking worked.
type MessageNotifier struct {
	messenger Messenger
}

func NewMessageNotifier(messenger Messenger) *MessageNotifier {
	return &MessageNotifier{messenger: messenger}
}

func (n *MessageNotifier) LinkingCompleted(ctx context.Context, evt LinkingCompleted) {
	err := n.messenger.SendDirect(context.WithoutCancel(ctx), evt.DiscordID, linkedMessage(evt.CharacterName))
	if err != nil {
		slog.Warn("linked dm failed", "error", err, "discord_id", evt.DiscordID)
	}
}

// Notifiers fans a completion out to several notifiers.
type Notifiers []CompletionNotifier

func (ns Notifiers) LinkingCompleted(ctx context.Context, evt LinkingCompleted) {
	for _, n := range ns {
		n.LinkingCompleted(ctx, evt)
	}
}
