package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/templui/discord-onboarding/internal/db/dbtest"
	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/repository"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	testGuildID  = int64(777)
	testTokenTTL = time.Hour
	testTimeout  = 168 * time.Hour
	testInterval = 48 * time.Hour
	testGoodbye  = "Bye {{.Username}}, you had {{.TimeoutHours}} hours."
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Set(t time.Time)         { c.t = t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type sentMessage struct {
	To  int64
	Msg Message
}

type fakeMessenger struct {
	mu       sync.Mutex
	direct   []sentMessage
	channel  []sentMessage
	failFor  map[int64]bool
	failSend error
}

func (f *fakeMessenger) SendDirect(ctx context.Context, discordID int64, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[discordID] {
		return DispatchError("direct message", errors.New("cannot send messages to this user"))
	}
	f.direct = append(f.direct, sentMessage{To: discordID, Msg: msg})
	return nil
}

func (f *fakeMessenger) SendChannel(ctx context.Context, channelID int64, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		return f.failSend
	}
	f.channel = append(f.channel, sentMessage{To: channelID, Msg: msg})
	return nil
}

func (f *fakeMessenger) directTo(discordID int64) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.direct {
		if m.To == discordID {
			out = append(out, m.Msg)
		}
	}
	return out
}

type fakeRemover struct {
	mu      sync.Mutex
	removed []int64
	err     error
}

func (f *fakeRemover) RemoveMember(ctx context.Context, guildID, discordID int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, discordID)
	return nil
}

type fakeLister struct {
	members []model.Member
}

func (f *fakeLister) ListMembers(ctx context.Context, guildID int64) ([]model.Member, error) {
	return f.members, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []LinkingCompleted
}

func (f *fakeNotifier) LinkingCompleted(ctx context.Context, evt LinkingCompleted) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

type fakeKickLogger struct {
	events []KickEvent
	err    error
}

func (f *fakeKickLogger) LogKick(ctx context.Context, evt KickEvent) error {
	f.events = append(f.events, evt)
	return f.err
}

type fakeArchiver struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (f *fakeArchiver) Archive(ctx context.Context, key string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.bodies = append(f.bodies, body)
	return nil
}

type testEnv struct {
	db         *sqlx.DB
	repos      *repository.Repositories
	clock      *clock
	messenger  *fakeMessenger
	remover    *fakeRemover
	lister     *fakeLister
	notifier   *fakeNotifier
	kickLog    *fakeKickLogger
	archiver   *fakeArchiver
	tokens     *TokenService
	schedules  *ScheduleService
	members    *MemberService
	onboarding *OnboardingService
	sweeper    *Sweeper
}

func newEnv(t *testing.T, opts ...func(*SweepConfig)) *testEnv {
	t.Helper()

	database := dbtest.New(t)
	env := &testEnv{
		db:        database,
		repos:     repository.New(database, testTokenTTL),
		clock:     &clock{t: t0},
		messenger: &fakeMessenger{failFor: map[int64]bool{}},
		remover:   &fakeRemover{},
		lister:    &fakeLister{},
		notifier:  &fakeNotifier{},
		kickLog:   &fakeKickLogger{},
		archiver:  &fakeArchiver{},
	}

	env.tokens = NewTokenService(env.repos.Tokens, env.repos.Users, env.messenger, "Test Alliance", "https://auth.example.com", testTokenTTL, 3, []int64{500})
	env.tokens.now = env.clock.Now

	env.schedules = NewScheduleService(database, env.repos.Schedules, env.repos.Links, env.lister, env.archiver, testGuildID, testTimeout)
	env.schedules.now = env.clock.Now

	env.members = NewMemberService(env.tokens, env.schedules, env.messenger, "Test Alliance", true)
	env.members.now = env.clock.Now

	env.onboarding = NewOnboardingService(database, testTokenTTL, env.notifier)
	env.onboarding.now = env.clock.Now

	cfg := SweepConfig{
		AppName:          "Test Alliance",
		GuildID:          testGuildID,
		RemindersEnabled: true,
		ReminderInterval: testInterval,
		KickTimeout:      testTimeout,
		GoodbyeTemplate:  testGoodbye,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	sweeper, err := NewSweeper(env.repos.Schedules, env.repos.Tokens, env.tokens, env.messenger, env.remover, env.kickLog, cfg)
	require.NoError(t, err)
	sweeper.now = env.clock.Now
	env.sweeper = sweeper

	return env
}

// join simulates a member joining at the current clock time.
func (e *testEnv) join(t *testing.T, discordID int64, username string) {
	t.Helper()
	require.NoError(t, e.members.Joined(context.Background(), model.Member{ID: discordID, Username: username, JoinedAt: e.clock.Now()}))
}

func (e *testEnv) activeSchedule(t *testing.T, discordID int64) *model.KickSchedule {
	t.Helper()
	s, err := e.repos.Schedules.ActiveByDiscordID(context.Background(), discordID)
	require.NoError(t, err)
	return s
}

func identity(characterID int64, name string) model.Identity {
	return model.Identity{CharacterID: characterID, CharacterName: name, OwnerHash: "hash-" + name}
}
