// Package app wires the spark client together with fx.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/spark/internal/analytics"
	"github.com/matheus3301/spark/internal/bus"
	"github.com/matheus3301/spark/internal/config"
	"github.com/matheus3301/spark/internal/conversation"
	"github.com/matheus3301/spark/internal/lock"
	"github.com/matheus3301/spark/internal/logging"
	"github.com/matheus3301/spark/internal/profile"
	"github.com/matheus3301/spark/internal/store"
	"github.com/matheus3301/spark/internal/timer"
	"github.com/matheus3301/spark/internal/tui"
	"github.com/matheus3301/spark/internal/tui/model"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// LoopQueue is the event loop's job queue capacity.
const LoopQueue = 256

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	ConfigPath string // optional override; empty = use default
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("spark",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLock,
			provideStore,
			provideBus,
			provideRecorder,
			provideLoop,
			model.NewViewModel,
			provideSession,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

// Logger routes fx's own events into the client log file.
func Logger() fx.Option {
	return fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: l.Named("fx")}
	})
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = profile.ConfigPath()
	}
	return config.LoadOrDefault(path)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	// The terminal belongs to the TUI; log to file only.
	return logging.New(profile.LogPath(p.Profile), p.Profile, false)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideRecorder(db *store.DB, b *bus.Bus, logger *zap.Logger) *analytics.Recorder {
	return analytics.NewRecorder(db, b, logger.Named("analytics"))
}

func provideLoop() *timer.Loop {
	l := timer.NewLoop(LoopQueue)
	l.Start()
	return l
}

// provideSession opens the conversation on the loop goroutine.
func provideSession(cfg *config.Config, loop *timer.Loop, b *bus.Bus, vm *model.ViewModel, logger *zap.Logger) (*conversation.Session, error) {
	match, err := MatchFromConfig(cfg.Match)
	if err != nil {
		return nil, err
	}

	var sess *conversation.Session
	loop.Do(func() {
		sess, err = conversation.Open(match, loop,
			conversation.WithLogger(logger.Named("conversation")),
			conversation.WithNotifier(conversation.BusNotifier{Bus: b}),
			conversation.WithSnapshotListener(vm.Update),
			conversation.WithResponder(ResponderFromConfig(cfg.Responder)),
			conversation.WithTimings(TimingsFromConfig(cfg.Timings)),
			conversation.WithReadReceipts(cfg.Privacy.ReadReceipts),
			conversation.WithIDGenerator(uuid.NewString),
		)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("conversation opened",
		zap.String("peer", match.PeerID),
		zap.String("preference", string(match.FirstMessagePreference)))
	return sess, nil
}

func provideApp(p Params, vm *model.ViewModel, sess *conversation.Session, loop *timer.Loop) *tui.App {
	return tui.NewApp(vm, sess, loop, p.Profile)
}

func registerLifecycle(lc fx.Lifecycle, sd fx.Shutdowner, ui *tui.App, sess *conversation.Session, loop *timer.Loop, rec *analytics.Recorder, b *bus.Bus, db *store.DB, lk *lock.Lock, cfg *config.Config, logger *zap.Logger) {
	sessionID := uuid.NewString()

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			rec.Start(context.Background())

			if err := db.OpenSession(sessionID, cfg.Match.PeerID, time.Now().UnixMilli()); err != nil {
				logger.Warn("failed to record session open", zap.Error(err))
			}

			go func() {
				if err := ui.Run(); err != nil {
					logger.Error("tui error", zap.Error(err))
				}
				if err := sd.Shutdown(); err != nil {
					logger.Warn("shutdown request failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			ui.Stop()
			loop.Do(sess.Close)
			loop.Close()

			rec.Stop()
			b.Close()
			if d := b.Dropped(); d > 0 {
				logger.Warn("bus dropped events", zap.Int64("count", d))
			}

			if err := db.CloseSession(sessionID, time.Now().UnixMilli()); err != nil {
				logger.Warn("failed to record session close", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
