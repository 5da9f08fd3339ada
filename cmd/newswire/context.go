package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"newswire/internal/config"
	"newswire/internal/logging"
	"newswire/internal/store"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, debugFlag: debugFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if c.debugFlag != nil && *c.debugFlag {
		level = "debug"
	}
	return logging.NewFromSettings(logging.LogSettings{
		Level:  level,
		Format: cfg.Logging.Format,
		Dir:    cfg.Paths.LogDir,
	})
}

// withStore opens the database for a command and closes it afterwards.
func (c *commandContext) withStore(fn func(cfg *config.Config, st *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

// withLock additionally takes the single-writer lock. Pipeline runs and
// destructive maintenance go through here; read-only commands do not.
func (c *commandContext) withLock(fn func(cfg *config.Config, st *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire pipeline lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another newswire process holds the lock at %s", cfg.LockPath())
	}
	defer lock.Unlock()

	return c.withStore(fn)
}
