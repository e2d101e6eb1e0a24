// Package app wires the bot together: config, logging, storage, the Discord
// session, the assignment queue, and the reconciliation pass.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"rolecall/internal/assignqueue"
	"rolecall/internal/config"
	"rolecall/internal/discord"
	"rolecall/internal/eventrole"
	"rolecall/internal/reconcile"
	"rolecall/internal/storage"
	logx "rolecall/pkg/logx"
)

type App struct {
	cfg    *config.Config
	mgr    *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store   storage.Store
	session *discordgo.Session
	queue   *assignqueue.Service
	service *eventrole.Service
	pass    *reconcile.Pass

	cron        *cron.Cron
	watchCancel context.CancelFunc
	wg          sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, err := logx.New(cfg.Logging.ToLogx())
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	log := logSvc.Logger()
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	stCfg, err := cfg.Storage.ToStorage()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(stCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildScheduledEvents |
		discordgo.IntentGuildMembers

	client := discord.NewClient(session, log.With(logx.String("comp", "discord")))
	queue := assignqueue.New(cfg.AssignQueue.ToQueue(), client, log.With(logx.String("comp", "assign_queue")))
	service := eventrole.New(store, client, queue, log.With(logx.String("comp", "eventrole")))
	pass := reconcile.New(cfg.Discord.GuildID, client, service, queue, log.With(logx.String("comp", "reconcile")))

	return &App{
		cfg:     cfg,
		mgr:     mgr,
		logSvc:  logSvc,
		log:     log,
		store:   store,
		session: session,
		queue:   queue,
		service: service,
		pass:    pass,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.queue.Start(ctx)

	// The startup reconciliation pass runs once per gateway ready; it is
	// the recovery path for everything missed while the process was down.
	a.session.AddHandlerOnce(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.log.Info("gateway ready",
			logx.String("user", r.User.Username),
			logx.String("guild_id", a.cfg.Discord.GuildID))
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			_ = a.pass.Run(ctx)
		}()
	})

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	if spec := a.cfg.Reconcile.Resweep; spec != "" {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(spec, func() { _ = a.pass.Run(ctx) }); err != nil {
			a.log.Warn("invalid resweep spec, periodic sweep disabled",
				logx.String("spec", spec), logx.Err(err))
			a.cron = nil
		} else {
			a.cron.Start()
			a.log.Info("periodic reconciliation sweep enabled", logx.String("spec", spec))
		}
	}

	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.mgr.Watch(wctx)
	}()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.applyLoop(wctx)
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	return nil
}

// applyLoop re-applies the hot-reloadable config subset.
func (a *App) applyLoop(ctx context.Context) {
	sub := a.mgr.Subscribe(1)
	defer a.mgr.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			if err := a.logSvc.Apply(cfg.Logging.ToLogx()); err != nil {
				a.log.Warn("cannot apply logging config", logx.Err(err))
			}
			a.queue.Apply(cfg.AssignQueue.ToQueue())
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.queue.Stop()
	err := a.session.Close()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown timed out waiting for background work")
	}

	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	_ = a.logSvc.Close()
	return err
}
