package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"

	"github.com/templui/discord-onboarding/internal/config"
	"github.com/templui/discord-onboarding/internal/db"
	"github.com/templui/discord-onboarding/internal/discord"
	"github.com/templui/discord-onboarding/internal/jobs"
	"github.com/templui/discord-onboarding/internal/repository"
	"github.com/templui/discord-onboarding/internal/service"
	"github.com/templui/discord-onboarding/internal/session"
	"github.com/templui/discord-onboarding/internal/sso"
	"github.com/templui/discord-onboarding/internal/storage"
)

type App struct {
	Cfg               *config.Config
	DB                *sqlx.DB
	Repos             *repository.Repositories
	TokenService      *service.TokenService
	ScheduleService   *service.ScheduleService
	MemberService     *service.MemberService
	OnboardingService *service.OnboardingService
	Sweeper           *service.Sweeper
	Sessions          *session.Manager
	SSO               *sso.Provider // nil without SSO credentials
	Bot               *discord.Bot  // nil without a bot token
	Queue             *jobs.Queue
	Scheduler         *jobs.Scheduler
}

// discordPorts groups the outbound Discord operations. Without a bot token
// they are served by a logging stand-in.
type discordPorts interface {
	service.Messenger
	service.MemberRemover
	service.MemberLister
	service.MemberSyncer
}

func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err != nil {
			_ = db.Close(database)
		}
	}()

	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repos := repository.New(database, cfg.TokenTTL)

	// Discord
	var discordSession *discordgo.Session
	var ports discordPorts = service.LogMessenger{}
	if cfg.DiscordBotToken != "" {
		discordSession, err = discord.NewSession(cfg.DiscordBotToken)
		if err != nil {
			return nil, err
		}
		ports = discord.NewClient(discordSession)
	} else {
		slog.Warn("DISCORD_BOT_TOKEN not set, discord actions are only logged")
	}

	// Archive of purged schedules
	var archiver service.Archiver
	if cfg.S3Enabled() {
		archive, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		archiver = archive
	}

	// Kick log destinations
	var kickLoggers service.MultiKickLogger
	if cfg.KickLogChannelID != 0 {
		kickLoggers = append(kickLoggers, service.NewChannelKickLogger(ports, cfg.KickLogChannelID))
	}
	if cfg.KickLogEmail != "" {
		kickLoggers = append(kickLoggers, service.NewEmailService(
			cfg.ResendAPIKey,
			cfg.EmailFrom,
			cfg.KickLogEmail,
			cfg.AppName,
			cfg.IsDevelopment(),
		))
	}

	queue := jobs.NewQueue(2, 256, 30*time.Second)
	notifier := service.Notifiers{
		service.NewSyncNotifier(queue, ports, cfg.DiscordGuildID, cfg.AuthenticatedRoles),
		service.NewMessageNotifier(ports),
	}

	// Services
	tokenService := service.NewTokenService(
		repos.Tokens,
		repos.Users,
		ports,
		cfg.AppName,
		cfg.AppURL,
		cfg.TokenTTL,
		cfg.MaxRequestsPerDay,
		cfg.AdminRoleIDs,
	)
	scheduleService := service.NewScheduleService(
		database,
		repos.Schedules,
		repos.Links,
		ports,
		archiver,
		cfg.DiscordGuildID,
		cfg.AutoKickTimeout,
	)
	memberService := service.NewMemberService(tokenService, scheduleService, ports, cfg.AppName, cfg.AutoKickEnabled)
	onboardingService := service.NewOnboardingService(database, cfg.TokenTTL, notifier)

	sweeper, err := service.NewSweeper(
		repos.Schedules,
		repos.Tokens,
		tokenService,
		ports,
		ports,
		kickLoggers,
		service.SweepConfig{
			AppName:              cfg.AppName,
			GuildID:              cfg.DiscordGuildID,
			RemindersEnabled:     cfg.RemindersEnabled,
			ReminderInterval:     cfg.ReminderInterval,
			SkipOverdueReminders: cfg.SkipOverdueReminders,
			KickTimeout:          cfg.AutoKickTimeout,
			GoodbyeTemplate:      cfg.GoodbyeMessage,
		},
	)
	if err != nil {
		return nil, err
	}

	var ssoProvider *sso.Provider
	if cfg.SSOEnabled() {
		ssoProvider = sso.New(sso.Config{
			ClientID:     cfg.SSOClientID,
			ClientSecret: cfg.SSOClientSecret,
			AuthURL:      cfg.SSOAuthURL,
			TokenURL:     cfg.SSOTokenURL,
			VerifyURL:    cfg.SSOVerifyURL,
			RedirectURL:  cfg.AppURL + "/onboarding/callback",
			Scopes:       cfg.SSOScopes,
		})
	} else {
		slog.Warn("SSO credentials not set, onboarding links cannot be completed")
	}

	var bot *discord.Bot
	if discordSession != nil {
		bot = discord.NewBot(discordSession, cfg.DiscordGuildID, memberService, tokenService)
	}

	scheduler := jobs.NewScheduler()
	if cfg.AutoKickEnabled {
		err = scheduler.Add("sweep", cfg.SweepSchedule, func(ctx context.Context) error {
			_, err := sweeper.Run(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	err = scheduler.Add("token_purge", cfg.PurgeSchedule, func(ctx context.Context) error {
		_, err := tokenService.Purge(ctx, cfg.TokenRetention, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &App{
		Cfg:               cfg,
		DB:                database,
		Repos:             repos,
		TokenService:      tokenService,
		ScheduleService:   scheduleService,
		MemberService:     memberService,
		OnboardingService: onboardingService,
		Sweeper:           sweeper,
		Sessions:          session.NewManager(cfg.SessionSecret, cfg.SessionExpiry, cfg.IsProduction()),
		SSO:               ssoProvider,
		Bot:               bot,
		Queue:             queue,
		Scheduler:         scheduler,
	}, nil
}

// Start runs the background parts: the job queue, the Discord gateway and
// the periodic jobs. Commands that only need the services skip it.
func (a *App) Start() error {
	a.Queue.Start()

	if a.Bot != nil {
		err := a.Bot.Open()
		if err != nil {
			return err
		}
	}

	a.Scheduler.Start()
	return nil
}

// Close stops background work and closes the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	errs = append(errs, a.Scheduler.Stop(ctx))
	if a.Bot != nil {
		errs = append(errs, a.Bot.Close())
	}
	errs = append(errs, a.Queue.Stop(ctx))
	if a.DB != nil {
		errs = append(errs, db.Close(a.DB))
	}

	return errors.Join(errs...)
}
