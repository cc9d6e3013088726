package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTracking()
	c.normalizeHost()
	c.normalizeRender()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TemplatesFile) == "" {
		c.Paths.TemplatesFile = defaultTemplatesFile
	}
	if c.Paths.TemplatesFile, err = expandPath(c.Paths.TemplatesFile); err != nil {
		return fmt.Errorf("paths.templates_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeTracking() {
	c.Tracking.URL = strings.TrimRight(strings.TrimSpace(c.Tracking.URL), "/")
	c.Tracking.ScriptName = strings.TrimSpace(c.Tracking.ScriptName)
	if c.Tracking.ScriptName == "" {
		c.Tracking.ScriptName = defaultTrackingScriptName
	}
	c.Tracking.APIKey = strings.TrimSpace(c.Tracking.APIKey)
	if c.Tracking.APIKey == "" {
		if value, ok := os.LookupEnv("SLATE_TRACKING_API_KEY"); ok {
			c.Tracking.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Tracking.TimeoutSeconds <= 0 {
		c.Tracking.TimeoutSeconds = defaultTrackingTimeout
	}
	if c.Tracking.EntityCacheSeconds <= 0 {
		c.Tracking.EntityCacheSeconds = defaultEntityCacheSeconds
	}
}

func (c *Config) normalizeHost() {
	c.Host.BridgeURL = strings.TrimRight(strings.TrimSpace(c.Host.BridgeURL), "/")
	if c.Host.BridgeURL == "" {
		c.Host.BridgeURL = defaultHostBridgeURL
	}
	if c.Host.TimeoutSeconds <= 0 {
		c.Host.TimeoutSeconds = defaultHostTimeout
	}
}

func (c *Config) normalizeRender() {
	c.Render.FarmURL = strings.TrimRight(strings.TrimSpace(c.Render.FarmURL), "/")
	c.Render.APIKey = strings.TrimSpace(c.Render.APIKey)
	if c.Render.APIKey == "" {
		if value, ok := os.LookupEnv("SLATE_RENDER_API_KEY"); ok {
			c.Render.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
