package app

import (
	"context"
	"fmt"
	"time"

	"pandorum/internal/calendar"
	"pandorum/internal/commands"
	"pandorum/internal/config"
	rtsup "pandorum/internal/runtime/supervisor"
	"pandorum/internal/storage"
	kit "pandorum/internal/transport"
	"pandorum/internal/transport/telegram"
	logx "pandorum/pkg/logx"
)

// Options tweak startup behavior (mirrors the bot's CLI flags).
type Options struct {
	// Passive skips the command surface; the reminder worker still runs.
	Passive bool
}

// App owns all components and wires them together explicitly; nothing is
// looked up through ambient state.
type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	adapter kit.Adapter
	marks   storage.Store

	store  *calendar.Store  // nil when the calendar feature is disabled
	worker *calendar.Worker // nil when the calendar feature is disabled
	digest *calendar.Digest // nil unless a digest spec is configured

	cmdm *commands.Manager // nil in passive mode

	sup     *rtsup.Supervisor
	updates chan kit.Update
}

func New(ctx context.Context, cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// Bootstrap with the Telegram sink disabled, set the target, then
	// apply the final config, so Apply() doesn't warn about a missing
	// target chat.
	baseLogCfg := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    false,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))
	if cfg.Telegram.GroupLog != 0 {
		logSvc.SetTelegramTarget(cfg.Telegram.GroupLog)
	}
	finalLogCfg := baseLogCfg
	finalLogCfg.Telegram.Enabled = cfg.Logging.Telegram.Enabled
	logSvc.Apply(finalLogCfg)

	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(ctx context.Context, c *config.Config) error {
		_, err := config.ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout)
		return err
	})

	// Storage (optional fired-reminder marks)
	storageCfg, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	marks, err := storage.Open(storageCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	if marks != nil {
		log.Info("reminder marks enabled", logx.String("driver", storageCfg.Driver))
	}

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		adapter: ad,
		marks:   marks,
		updates: make(chan kit.Update, 256),
	}

	if cfg.Calendar.Enabled {
		log.Info("init calendar...")
		client, err := calendar.NewGoogleClient(ctx, cfg.Calendar.CredentialsDir, log.With(logx.String("comp", "calendar")))
		if err != nil {
			// Missing credentials disable the feature; the host keeps
			// running and the commands report it as unavailable.
			log.Error("calendar service not started", logx.Err(err),
				logx.String("credentials_dir", cfg.Calendar.CredentialsDir))
		} else {
			a.store = calendar.NewStore(client, cfg.Calendar.Filter, log.With(logx.String("comp", "calendar")))
			a.worker = calendar.NewWorker(a.store, ad, cfg.Calendar.Channel, marks,
				log.With(logx.String("comp", "worker")))

			if cfg.Calendar.Digest != "" {
				d, err := calendar.NewDigest(cfg.Calendar.Digest, a.store, ad, cfg.Calendar.Channel,
					log.With(logx.String("comp", "digest")))
				if err != nil {
					return nil, err
				}
				a.digest = d
			}
		}
	}

	if !opts.Passive && cfg.Commands.Enabled {
		log.Info("init commands...")
		a.cmdm = commands.NewManager(commands.Deps{
			Adapter: ad,
			Config:  cfgm,
			Store:   a.store,
			Log:     log.With(logx.String("comp", "commands")),
		})
	}

	return a, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

// Start brings up the transport and, once it is up, the reminder worker.
func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log))

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	// Transport is up: the worker may start ticking.
	if a.worker != nil {
		a.worker.Start()
	}
	if a.digest != nil {
		a.digest.Start()
	}

	if a.cmdm != nil {
		a.sup.Go("commands.dispatch", func(c context.Context) error {
			return a.cmdm.DispatchLoop(c, a.updates)
		})
	}

	// Hot reload: logging and the maintainer set follow the config file;
	// calendar policy stays fixed for the lifetime of the process.
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go0("config.reload", func(c context.Context) {
		sub := a.cfgm.Subscribe(8)
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyLogging(newCfg)
			}
		}
	})

	a.log.Info("started")
	return nil
}

func (a *App) applyLogging(cfg *config.Config) {
	if cfg.Telegram.GroupLog != 0 {
		a.logs.SetTelegramTarget(cfg.Telegram.GroupLog)
	} else {
		a.logs.SetTelegramTarget(0)
	}
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	})
	a.log.Info("logging config applied")
}

// Stop shuts everything down in reverse order; the worker is joined before
// the transport goes away.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("shutting down...")

	if a.worker != nil {
		a.worker.Stop()
	}
	if a.digest != nil {
		a.digest.Stop()
	}
	_ = a.adapter.Stop(ctx)

	if a.sup != nil {
		a.sup.Cancel()
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = a.sup.Wait(wctx)
	}

	if a.marks != nil {
		_ = a.marks.Close()
	}
	_ = a.logs.Close()
	return nil
}
