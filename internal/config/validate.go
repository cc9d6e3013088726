package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTracking(); err != nil {
		return err
	}
	if err := c.validateHost(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTracking() error {
	if strings.TrimSpace(c.Tracking.URL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/slate/config.toml"
		}
		return fmt.Errorf("tracking.url is required. Edit %s (create with 'slate config init')", defaultPath)
	}
	if _, err := url.Parse(c.Tracking.URL); err != nil {
		return fmt.Errorf("tracking.url is not a valid URL: %w", err)
	}
	if c.Tracking.APIKey == "" {
		return errors.New("tracking.api_key is required. Set SLATE_TRACKING_API_KEY or add it to the config file")
	}
	return nil
}

func (c *Config) validateHost() error {
	if _, err := url.Parse(c.Host.BridgeURL); err != nil {
		return fmt.Errorf("host.bridge_url is not a valid URL: %w", err)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FarmURL == "" {
		return nil
	}
	if _, err := url.Parse(c.Render.FarmURL); err != nil {
		return fmt.Errorf("render.farm_url is not a valid URL: %w", err)
	}
	return nil
}
