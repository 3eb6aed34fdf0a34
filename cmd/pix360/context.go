package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pix360/internal/client"
	"pix360/internal/config"
	"pix360/internal/history"
	"pix360/internal/logging"
	"pix360/internal/notifications"
	"pix360/internal/session"
	"pix360/internal/tracker"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	sessionOnce sync.Once
	session     string

	mu      sync.Mutex
	log     *slog.Logger
	journal *history.Store
	closers []func()
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) sessionID() string {
	c.sessionOnce.Do(func() {
		c.session = session.NewID()
	})
	return c.session
}

// logger returns the run logger, writing to stderr and the log file.
func (c *commandContext) logger() *slog.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.log != nil {
		return c.log
	}
	logger, err := logging.NewFromConfig(c.configValue())
	if err != nil {
		logger = logging.NewNop()
	}
	c.log = logger
	return c.log
}

// useFileLogger switches the run logger to the log file only.
func (c *commandContext) useFileLogger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	logger, err := logging.NewFileLogger(c.configValue())
	if err != nil {
		logger = logging.NewNop()
	}
	c.log = logger
}

func (c *commandContext) newClient() (*client.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg, client.WithSessionID(c.sessionID())), nil
}

// history opens the journal once per run. It stays open until close.
func (c *commandContext) history() (*history.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.journal != nil {
		return c.journal, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	c.journal = store
	c.closers = append(c.closers, func() { _ = store.Close() })
	return store, nil
}

// newTracker wires a tracker with the configured server, notifier, journal and
// logger. A journal that cannot be opened is logged and skipped.
func (c *commandContext) newTracker(presenter tracker.Presenter, opts ...tracker.Option) (*tracker.Tracker, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	api, err := c.newClient()
	if err != nil {
		return nil, err
	}
	logger := c.logger()

	base := []tracker.Option{
		tracker.WithInterval(cfg.PollInterval()),
		tracker.WithNotifier(notifications.NewService(cfg)),
		tracker.WithLogger(logger),
		tracker.WithSessionID(c.sessionID()),
	}
	if journal, err := c.history(); err != nil {
		logger.Warn("history journal unavailable", logging.Error(err))
	} else {
		base = append(base, tracker.WithJournal(journal))
	}
	tr := tracker.New(api, presenter, append(base, opts...)...)

	c.mu.Lock()
	c.closers = append([]func(){tr.Close}, c.closers...)
	c.mu.Unlock()
	return tr, nil
}

func (c *commandContext) close() {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.journal = nil
	c.mu.Unlock()
	for _, fn := range closers {
		fn()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
