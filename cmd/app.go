package cmd

import (
	"context"
	"fmt"
	"time"

	"cuetrainer/cache"
	"cuetrainer/config"
	"cuetrainer/core/audio"
	"cuetrainer/core/history"
	"cuetrainer/core/library"
	"cuetrainer/core/scheduler"
	"cuetrainer/core/status"
	"cuetrainer/db"
	"cuetrainer/logger"
	"cuetrainer/repository"
	"cuetrainer/storage"
)

// app 组装好的运行时组件
type app struct {
	cfg   *config.Config
	store storage.AudioStore
	repo  repository.LibraryRepository
	lib   *library.Library
	cache *cache.PlaybackCache
	spool *audio.Spool
	board *status.Board
	sched *scheduler.Scheduler
	hist  *history.Service
}

type appOptions struct {
	// persistent connects MySQL, MinIO and Redis when they are enabled.
	persistent bool
	// mirror publishes progress and status to Redis.
	mirror bool
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	var libOpts []library.Option
	a.store = storage.NewMemoryStore()
	if opts.persistent && cfg.DBEnabled {
		if err := db.ConnectGormDB(cfg); err != nil {
			return nil, err
		}
		if err := db.AutoMigrateModels(); err != nil {
			return nil, err
		}
		a.repo = repository.NewGormLibraryRepository(db.GormDB)
		libOpts = append(libOpts, library.WithRepository(a.repo))
	}
	if opts.persistent && cfg.MinioEnabled {
		ms, err := storage.NewMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		a.store = ms
	}
	a.lib = library.New(a.store, libOpts...)
	if a.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := a.lib.Load(ctx, a.repo)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	var (
		statusMirror   status.Mirror
		progressMirror scheduler.ProgressMirror
	)
	if opts.mirror && cfg.RedisEnabled {
		if err := db.ConnectRedis(cfg); err != nil {
			return nil, err
		}
		a.cache = cache.NewPlaybackCache(db.RedisClient)
		statusMirror, progressMirror = a.cache, a.cache
	}
	a.board = status.NewBoard(cfg.StatusTTL, statusMirror)

	spool, err := audio.NewSpool(cfg.SpoolDir, a.store)
	if err != nil {
		return nil, err
	}
	a.spool = spool
	a.lib.OnRecordingRemoved(spool.Release)

	player, err := newPlayer(cfg, spool)
	if err != nil {
		return nil, err
	}
	a.sched = scheduler.New(a.lib, player, scheduler.Options{
		Status:  a.board,
		History: a.lib,
		Tick:    cfg.CountdownTick,
		Mirror:  progressMirror,
	})
	a.hist = history.NewService(a.lib, time.Local)

	ok = true
	return a, nil
}

func newPlayer(cfg *config.Config, spool *audio.Spool) (audio.Player, error) {
	switch cfg.PlaybackMode {
	case "", "clock":
		return audio.NewClockPlayer(spool, audio.NewProber(cfg.FFprobePath)), nil
	case "ffplay":
		return audio.NewFFplayPlayer(cfg.FFplayPath, spool), nil
	default:
		return nil, fmt.Errorf("unknown PLAYBACK_MODE %q (want clock or ffplay)", cfg.PlaybackMode)
	}
}

// close 按依赖逆序释放资源
func (a *app) close() {
	if a.sched != nil {
		a.sched.Close()
	}
	if a.lib != nil {
		a.lib.Close()
	}
	if a.spool != nil {
		if err := a.spool.Close(); err != nil {
			logger.Warn("清理音频缓存失败", logger.ErrorField(err))
		}
	}
	if err := db.CloseRedis(); err != nil {
		logger.Warn("关闭Redis连接失败", logger.ErrorField(err))
	}
	if err := db.CloseGormDB(); err != nil {
		logger.Warn("关闭数据库连接失败", logger.ErrorField(err))
	}
}
