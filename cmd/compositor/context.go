package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"compositor/internal/composer"
	"compositor/internal/config"
	"compositor/internal/history"
	"compositor/internal/logging"
	"compositor/internal/orchestrator"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	// executor replaces process execution in tests.
	executor orchestrator.Executor

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	composerMu sync.Mutex
	composer   *composer.Composer
	history    *history.Store
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
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
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		logging.PruneLogs(logger, cfg.LogRetention(), logging.RetentionTargets(cfg)...)
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// withComposer runs fn against a composer and closes it afterwards, which
// waits for every job fn submitted.
func (c *commandContext) withComposer(fn func(*composer.Composer) error) error {
	comp, err := c.ensureComposer()
	if err != nil {
		return err
	}
	runErr := fn(comp)
	return errors.Join(runErr, c.close())
}

// withHistory runs fn against the history ledger and closes it afterwards.
func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	store, err := c.historyStore()
	if err != nil {
		return err
	}
	runErr := fn(store)
	return errors.Join(runErr, c.close())
}

func (c *commandContext) ensureComposer() (*composer.Composer, error) {
	c.composerMu.Lock()
	defer c.composerMu.Unlock()
	if c.composer != nil {
		return c.composer, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	comp, err := composer.New(cfg, composer.Options{Logger: logger, Executor: c.executor})
	if err != nil {
		return nil, err
	}
	c.composer = comp
	return comp, nil
}

// historyStore opens the ledger without starting an orchestrator.
func (c *commandContext) historyStore() (*history.Store, error) {
	c.composerMu.Lock()
	defer c.composerMu.Unlock()
	if c.composer != nil && c.composer.History() != nil {
		return c.composer.History(), nil
	}
	if c.history != nil {
		return c.history, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.OpenFromConfig(cfg, nil)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("job history is disabled (set history.enabled = true)")
	}
	c.history = store
	return store, nil
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) close() error {
	c.composerMu.Lock()
	defer c.composerMu.Unlock()
	var errs []error
	if c.composer != nil {
		errs = append(errs, c.composer.Close())
		c.composer = nil
	}
	if c.history != nil {
		errs = append(errs, c.history.Close())
		c.history = nil
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
