// Package appbuilder wires the engine to its stores and transports.
package appbuilder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/adminapi"
	"github.com/park285/ek-server/internal/config"
	"github.com/park285/ek-server/internal/engine"
	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/internal/history"
	"github.com/park285/ek-server/internal/lobby"
	"github.com/park285/ek-server/internal/msgcat"
	"github.com/park285/ek-server/internal/transport"
)

type Deps struct {
	Engine    *engine.Engine
	Transport *transport.Server
	Admin     *adminapi.Server
	Directory lobby.Directory
	Sweeper   *lobby.Sweeper
	Results   *history.Repository
	Redis     *redis.Client
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	// Lobby directory (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		d.Redis = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = d.Redis.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = d.Redis.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		d.Directory = lobby.NewRedisDirectory(d.Redis, cfg.LobbyTTL)
		logger.Info("lobby_directory", zap.String("backend", "redis"))
	} else {
		d.Directory = lobby.NewMemoryDirectory()
		logger.Info("lobby_directory", zap.String("backend", "memory"))
	}

	// Results archive (DB optional)
	var sink engine.ResultSink
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := history.Open(cfg.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = repo.EnsureSchema(ctx)
		cancel()
		if err != nil {
			_ = repo.Close()
			d.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		d.Results = repo
		sink = repo
	} else {
		logger.Warn("results_archive_disabled")
	}

	eng, err := engine.New(engine.Options{
		Settings: game.Settings{
			MinPlayers: cfg.Game.MinPlayers,
			MaxPlayers: cfg.Game.MaxPlayers,
			NopeTime:   cfg.Game.NopeTime,
		},
		Seed:      cfg.Game.Seed,
		Directory: d.Directory,
		Results:   sink,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("init engine: %w", err)
	}
	d.Engine = eng

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	if missing := cat.Missing(engine.MessageKeys()); len(missing) > 0 {
		logger.Warn("messages_missing", zap.Strings("keys", missing))
	}
	d.Transport = transport.New(eng, cat, transport.Options{
		ActionRate:  cfg.ActionRate,
		ActionBurst: cfg.ActionBurst,
	})
	eng.SetNotifier(d.Transport)

	d.Sweeper = lobby.NewSweeper(d.Directory, eng)

	adminOpts := []adminapi.Option{adminapi.WithSessions(d.Transport)}
	if d.Results != nil {
		adminOpts = append(adminOpts, adminapi.WithResults(d.Results))
	}
	d.Admin = adminapi.New(eng, d.Directory, adminOpts...)
	return d, nil
}

// Close releases external connections.
func (d *Deps) Close() {
	if d.Results != nil {
		_ = d.Results.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, errors.New("missing host")
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: u.User.Username(),
		Password: pass,
		DB:       db,
	}, nil
}
