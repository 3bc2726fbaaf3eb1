package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nhle/taskchat/internal/ai"
	"github.com/nhle/taskchat/internal/chat"
	"github.com/nhle/taskchat/internal/credential"
	"github.com/nhle/taskchat/internal/logging"
	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/store"
	"github.com/nhle/taskchat/internal/tasks"
)

// env holds everything a command needs, wired from the config file.
type env struct {
	cfg      *model.AppConfig
	logger   *slog.Logger
	db       *store.SQLiteStore
	tasks    *tasks.Store
	sessions *chat.Manager
	gateway  *ai.Gateway
	service  *chat.Service
	keyCount int
	closers  []io.Closer
}

// openEnv loads config, opens the log file and database, and restores the
// task and session state. The provider gateway is only built when withAI
// is set, so plain task commands never touch the keyring.
func (c *cli) openEnv(ctx context.Context, withAI bool) (*env, error) {
	cfg, err := model.LoadConfig(c.configPath())
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}

	logger, closer, err := logging.Open(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		// Logging is best effort; commands still run without a log file.
		logger = logging.Discard()
	} else {
		e.closers = append(e.closers, closer)
	}
	e.logger = logger

	db, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	e.db = db
	e.closers = append(e.closers, db)

	e.tasks = tasks.New(db, logger)
	if err := e.tasks.Load(ctx); err != nil {
		e.Close()
		return nil, err
	}
	e.sessions = chat.NewManager(db, logger, chat.WithGreeting(cfg.Chat.Greeting))
	if err := e.sessions.Load(ctx); err != nil {
		e.Close()
		return nil, err
	}

	if withAI {
		keys := c.keys
		if keys == nil {
			keys = credential.LoadAPIKeys(cfg.AI.CredentialKeys, logger)
		}
		e.keyCount = len(keys)
		e.gateway = ai.NewGateway(c.newCompleter(cfg), ai.GatewayConfig{
			Keys:    keys,
			Models:  cfg.AI.Models,
			Timeout: time.Duration(cfg.AI.RequestTimeoutSec) * time.Second,
		}, logger)
		e.service = chat.NewService(e.sessions, e.tasks, e.gateway, chat.ServiceConfig{
			HistoryWindow: cfg.AI.HistoryWindow,
			StreamDelay:   time.Duration(cfg.Chat.StreamDelayMs) * time.Millisecond,
		}, logger)

		profile, err := chat.LoadProfile(ctx, db)
		if err != nil {
			logger.Warn("ignoring stored profile", "error", err)
		}
		e.service.SetProfile(profile)
	}
	return e, nil
}

func (c *cli) newCompleter(cfg *model.AppConfig) ai.Completer {
	if c.completer != nil {
		return c.completer
	}
	if cfg.AI.Provider == model.ProviderOpenAI {
		return ai.NewOpenAICompleter(cfg.AI.BaseURL)
	}
	return ai.NewGeminiCompleter()
}

// Close releases the database and log file, newest first.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
