package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncCall struct {
	guildID   int64
	discordID int64
	nickname  string
	roleIDs   []int64
}

type fakeSyncer struct {
	calls []syncCall
}

func (f *fakeSyncer) SyncMember(ctx context.Context, guildID, discordID int64, nickname string, roleIDs []int64) error {
	f.calls = append(f.calls, syncCall{guildID, discordID, nickname, roleIDs})
	return nil
}

// inlineQueue runs jobs immediately, or rejects them when full is set.
type inlineQueue struct {
	full  bool
	names []string
}

func (q *inlineQueue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	if q.full {
		return false
	}
	q.names = append(q.names, name)
	return fn(context.Background()) == nil
}

func TestSyncNotifier(t *testing.T) {
	queue := &inlineQueue{}
	syncer := &fakeSyncer{}
	n := NewSyncNotifier(queue, syncer, testGuildID, []int64{10, 11})

	n.LinkingCompleted(context.Background(), LinkingCompleted{DiscordID: 1, CharacterName: "Pilot One"})

	assert.Equal(t, []string{"member_sync"}, queue.names)
	require.Len(t, syncer.calls, 1)
	assert.Equal(t, syncCall{testGuildID, 1, "Pilot One", []int64{10, 11}}, syncer.calls[0])
}

func TestSyncNotifier_QueueFull(t *testing.T) {
	syncer := &fakeSyncer{}
	n := NewSyncNotifier(&inlineQueue{full: true}, syncer, testGuildID, nil)

	n.LinkingCompleted(context.Background(), LinkingCompleted{DiscordID: 1})
	assert.Empty(t, syncer.calls)
}

func TestNotifiers_FanOut(t *testing.T) {
	messenger := &fakeMessenger{failFor: map[int64]bool{}}
	recorder := &fakeNotifier{}
	ns := Notifiers{NewMessageNotifier(messenger), recorder}

	ns.LinkingCompleted(context.Background(), LinkingCompleted{DiscordID: 5, CharacterName: "Pilot"})

	assert.Len(t, recorder.events, 1)
	msgs := messenger.directTo(5)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Description, "Pilot")
}
