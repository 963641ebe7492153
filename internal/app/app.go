// Package app wires configuration, logging, the hook registry and the
// webhook notifier into one daemon lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	logx "offlinehook/pkg/logx"

	"offlinehook/internal/config"
	"offlinehook/internal/feed"
	"offlinehook/internal/hook"
	rtsup "offlinehook/internal/runtime/supervisor"
	"offlinehook/internal/webhook"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	hooks *hook.Registry
	notif *webhook.Service

	heartbeat *cron.Cron

	// source feeds offline-message records into the hook chain.
	// Defaults to stdin; replaceable before Start (tests, embedding).
	source io.Reader

	unhook  func()
	updates chan *config.Config
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(context.Background(), cfg); err != nil {
		return nil, err
	}
	cfgm.SetValidator(validate)

	logSvc, log := logx.New(mapLoggingConfig(cfg.Logging))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	hooks := hook.New(log.With(logx.String("comp", "hook")))

	wcfg, err := mapWebhookConfig(cfg.Webhook)
	if err != nil {
		return nil, err
	}
	notif := webhook.New(wcfg, log.With(logx.String("comp", "webhook")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		hooks:   hooks,
		notif:   notif,
		source:  os.Stdin,
	}, nil
}

// SetSource replaces the offline-message source before Start.
func (a *App) SetSource(r io.Reader) {
	if r != nil {
		a.source = r
	}
}

// Hooks exposes the dispatch point for in-process hosts.
func (a *App) Hooks() *hook.Registry { return a.hooks }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return nil
	}
	cfg := a.cfgm.Get()

	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		rtsup.WithCancelOnError(false),
	)
	runCtx := a.sup.Context()

	// Workers first so the hook has somewhere to put notifications.
	a.notif.Start(runCtx)
	a.unhook = a.hooks.Register(hook.OfflineMessage, a.notif.HandleOffline)

	// Config watch + apply loop. Only logging is live; webhook changes need a restart.
	a.updates = a.cfgm.Subscribe(4)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go0("config.apply", func(c context.Context) {
		a.applyLoop(c, cfg.Webhook)
	})

	// Host feed.
	src := a.source
	a.sup.Go("feed.pump", func(c context.Context) error {
		return feed.Pump(c, src, a.hooks, a.log.With(logx.String("comp", "feed")))
	})

	if cfg.Heartbeat.Enabled {
		if err := a.startHeartbeat(cfg.Heartbeat); err != nil {
			return err
		}
	}

	a.log.Info("offlinehook started",
		logx.String("config", a.cfgPath),
		logx.String("post_url", a.notif.Config().PostURL),
		logx.Bool("confidential", a.notif.Config().Confidential),
	)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.heartbeat != nil {
		hctx := a.heartbeat.Stop()
		select {
		case <-hctx.Done():
		case <-ctx.Done():
		}
		a.heartbeat = nil
	}

	if a.unhook != nil {
		a.unhook()
		a.unhook = nil
	}

	// Drain queued notifications best-effort, then tear down the loops.
	a.notif.Stop(ctx)
	a.sup.Cancel()
	err := a.sup.Wait(ctx)
	a.sup = nil

	if a.updates != nil {
		a.cfgm.Unsubscribe(a.updates)
		a.updates = nil
	}

	a.log.Info("offlinehook stopped")
	_ = a.logs.Close()
	return err
}

// applyLoop consumes validated config updates. The webhook contract is fixed
// for the process lifetime; edits to it get a restart-required warning so
// operators are not left guessing why nothing changed.
func (a *App) applyLoop(ctx context.Context, boot config.WebhookConfig) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.updates:
			if !ok || cfg == nil {
				return
			}
			a.logs.Apply(mapLoggingConfig(cfg.Logging))
			a.log.Info("logging config re-applied", logx.String("level", cfg.Logging.Level))
			if cfg.Webhook != boot {
				a.log.Warn("webhook config changed on disk; restart required to apply")
			}
		}
	}
}

func (a *App) startHeartbeat(cfg config.HeartbeatConfig) error {
	spec := cfg.Schedule
	if spec == "" {
		spec = "@every 1m"
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		st := a.notif.Stats()
		a.log.Info("webhook stats",
			logx.Uint64("queued", st.Queued),
			logx.Uint64("sent", st.Sent),
			logx.Uint64("failed", st.Failed),
			logx.Uint64("skipped", st.Skipped),
			logx.Uint64("dropped", st.Dropped),
		)
	})
	if err != nil {
		return fmt.Errorf("heartbeat.schedule: %w", err)
	}
	c.Start()
	a.heartbeat = c
	return nil
}

// validate is the ConfigManager validator: it rejects configs whose derived
// settings cannot be constructed, keeping the last good config committed.
func validate(_ context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := mapWebhookConfig(cfg.Webhook); err != nil {
		return err
	}
	if cfg.Heartbeat.Enabled && cfg.Heartbeat.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Heartbeat.Schedule); err != nil {
			return fmt.Errorf("heartbeat.schedule: %w", err)
		}
	}
	return nil
}

func mapLoggingConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}

func mapWebhookConfig(wc config.WebhookConfig) (webhook.Config, error) {
	timeout, err := config.ParseDurationOrDefault("webhook.timeout", wc.Timeout, webhook.DefaultTimeout)
	if err != nil {
		return webhook.Config{}, err
	}
	return webhook.Config{
		AuthToken:    wc.AuthToken,
		PostURL:      wc.PostURL,
		Confidential: wc.Confidential,
		Workers:      wc.Workers,
		QueueSize:    wc.QueueSize,
		RatePerSec:   wc.RatePerSec,
		Timeout:      timeout,
	}, nil
}
