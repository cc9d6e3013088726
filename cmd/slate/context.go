package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/history"
	"slate/internal/host"
	"slate/internal/logging"
	"slate/internal/notifications"
	"slate/internal/template"
	"slate/internal/tracking"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
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

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) openStore() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.Paths.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return store, nil
}

// openSession returns a file-backed session when a path is supplied, and the
// application bridge otherwise.
func (c *commandContext) openSession(sessionPath string) (host.Session, error) {
	if path := strings.TrimSpace(sessionPath); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		return host.NewFileSession(expanded), nil
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Host.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return host.NewBridge(cfg.Host.BridgeURL,
		host.WithBridgeHTTPClient(&http.Client{Timeout: timeout}))
}

func (c *commandContext) loadTemplates() (*template.Registry, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	registry, err := template.LoadRegistry(cfg.Paths.TemplatesFile)
	if err != nil {
		return nil, fmt.Errorf("load templates from %s: %w", cfg.Paths.TemplatesFile, err)
	}
	return registry, nil
}

func (c *commandContext) trackingClient() (*tracking.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Tracking.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return tracking.NewClient(cfg.Tracking.URL, cfg.Tracking.ScriptName, cfg.Tracking.APIKey,
		tracking.WithHTTPClient(&http.Client{Timeout: timeout}),
		tracking.WithEntityCacheTTL(time.Duration(cfg.Tracking.EntityCacheSeconds)*time.Second))
}

func (c *commandContext) notifier() notifications.Service {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	return notifications.NewService(cfg)
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
